package handlers_test

import (
	"bytes"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/inventra/internal/handlers/testutil"
	"github.com/charlesng35/inventra/internal/models"
	"github.com/charlesng35/inventra/internal/services"
)

type itemPayload struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	SKU           string  `json:"sku"`
	Quantity      int     `json:"quantity"`
	City          string  `json:"city"`
	Building      string  `json:"building"`
	BuildingRefID *string `json:"building_ref_id"`
	FullAddress   string  `json:"full_address"`
	LowStock      bool    `json:"low_stock"`
}

func createItem(t *testing.T, env *testutil.Env, token string, building *models.Building, name, sku string, quantity int) itemPayload {
	t.Helper()
	w := env.Request(http.MethodPost, "/api/items", map[string]any{
		"name":        name,
		"sku":         sku,
		"quantity":    quantity,
		"city_id":     building.CityID,
		"building_id": building.ID,
	}, token)
	return testutil.DecodeData[itemPayload](t, w, http.StatusCreated)
}

func TestItemHandler_CreateListAndGet(t *testing.T) {
	env := testutil.NewEnv(t)
	owner := env.CreateUser("alice", false)
	other := env.CreateUser("bob", false)
	_, building := env.CreateBuilding("Timisoara", "Iulius Town")
	token := env.Token(owner)

	item := createItem(t, env, token, building, "Laptop", "LT-1", 12)
	require.Equal(t, "Timisoara", item.City)
	require.Equal(t, "Iulius Town", item.Building)
	require.NotNil(t, item.BuildingRefID)
	require.Equal(t, "Iulius Town street 1, Iulius Town, Timisoara, Romania", item.FullAddress)

	list := testutil.DecodeData[struct {
		Items     []itemPayload `json:"items"`
		Cities    []string      `json:"cities"`
		Buildings []string      `json:"buildings"`
		HasKey    bool          `json:"has_key"`
	}](t, env.Request(http.MethodGet, "/api/items?q=lap", nil, token), http.StatusOK)
	require.Len(t, list.Items, 1)
	require.Equal(t, []string{"Timisoara"}, list.Cities)
	require.Equal(t, []string{"Iulius Town"}, list.Buildings)
	require.False(t, list.HasKey)

	got := testutil.DecodeData[itemPayload](t, env.Request(http.MethodGet, "/api/items/"+item.ID, nil, token), http.StatusOK)
	require.Equal(t, item.ID, got.ID)

	// Items are private to their owner.
	w := env.Request(http.MethodGet, "/api/items/"+item.ID, nil, env.Token(other))
	errInfo := testutil.DecodeError(t, w, http.StatusNotFound)
	require.Equal(t, "ITEM_NOT_FOUND", errInfo.Code)

	empty := testutil.DecodeData[struct {
		Items  []itemPayload `json:"items"`
		Cities []string      `json:"cities"`
	}](t, env.Request(http.MethodGet, "/api/items", nil, env.Token(other)), http.StatusOK)
	require.Empty(t, empty.Items)
	require.NotNil(t, empty.Cities)
}

func TestItemHandler_CreateValidation(t *testing.T) {
	env := testutil.NewEnv(t)
	owner := env.CreateUser("alice", false)
	_, building := env.CreateBuilding("Timisoara", "Iulius Town")
	_, foreign := env.CreateBuilding("Cluj-Napoca", "Iulius Mall")
	token := env.Token(owner)

	w := env.Request(http.MethodPost, "/api/items", map[string]any{"name": "Laptop"}, token)
	errInfo := testutil.DecodeError(t, w, http.StatusUnprocessableEntity)
	require.Contains(t, errInfo.Fields, "city_id")
	require.Contains(t, errInfo.Fields, "building_id")

	w = env.Request(http.MethodPost, "/api/items", map[string]any{
		"name":        "Laptop",
		"sku":         "LT-1",
		"quantity":    1,
		"city_id":     building.CityID,
		"building_id": foreign.ID,
	}, token)
	errInfo = testutil.DecodeError(t, w, http.StatusUnprocessableEntity)
	require.Equal(t, "BUILDING_NOT_IN_CITY", errInfo.Code)

	createItem(t, env, token, building, "Laptop", "LT-1", 1)
	w = env.Request(http.MethodPost, "/api/items", map[string]any{
		"name":        "Laptop 2",
		"sku":         "LT-1",
		"quantity":    1,
		"city_id":     building.CityID,
		"building_id": building.ID,
	}, token)
	errInfo = testutil.DecodeError(t, w, http.StatusUnprocessableEntity)
	require.Equal(t, "DUPLICATE_SKU", errInfo.Code)
}

func TestItemHandler_UpdateIsStaffOnly(t *testing.T) {
	env := testutil.NewEnv(t)
	owner := env.CreateUser("alice", false)
	staff := env.CreateUser("admin", true)
	_, building := env.CreateBuilding("Timisoara", "Iulius Town")
	item := createItem(t, env, env.Token(owner), building, "Laptop", "LT-1", 20)

	w := env.Request(http.MethodPatch, "/api/items/"+item.ID, map[string]any{"quantity": 3}, env.Token(owner))
	testutil.DecodeError(t, w, http.StatusForbidden)

	updated := testutil.DecodeData[itemPayload](t,
		env.Request(http.MethodPatch, "/api/items/"+item.ID, map[string]any{"quantity": 3}, env.Token(staff)),
		http.StatusOK)
	require.Equal(t, 3, updated.Quantity)
	require.True(t, updated.LowStock)

	var notices []models.Notification
	require.NoError(t, env.DB.Where("user_id = ? AND type = ?", owner.ID, models.NotificationLowStock).Find(&notices).Error)
	require.Len(t, notices, 1)
}

func TestItemHandler_MoveAndHistory(t *testing.T) {
	env := testutil.NewEnv(t)
	owner := env.CreateUser("alice", false)
	staff := env.CreateUser("admin", true)
	_, from := env.CreateBuilding("Timisoara", "Iulius Town")
	_, to := env.CreateBuilding("Cluj-Napoca", "Iulius Mall")
	token := env.Token(owner)
	item := createItem(t, env, token, from, "Laptop", "LT-1", 5)
	staffToken := env.Token(staff)

	w := env.Request(http.MethodPost, "/api/items/"+item.ID+"/move", map[string]any{
		"city_id":     to.CityID,
		"building_id": to.ID,
	}, token)
	testutil.DecodeError(t, w, http.StatusForbidden)

	moved := testutil.DecodeData[struct {
		Item itemPayload        `json:"item"`
		Move models.MoveRequest `json:"move"`
	}](t, env.Request(http.MethodPost, "/api/items/"+item.ID+"/move", map[string]any{
		"city_id":     to.CityID,
		"building_id": to.ID,
	}, staffToken), http.StatusOK)
	require.Equal(t, "Cluj-Napoca", moved.Item.City)
	require.Equal(t, "Timisoara", moved.Move.FromCity)
	require.Equal(t, "Iulius Mall", moved.Move.ToBuilding)
	require.Equal(t, "admin", moved.Move.MovedBy)

	history := testutil.DecodeData[[]models.MoveRequest](t,
		env.Request(http.MethodGet, "/api/items/"+item.ID+"/history", nil, token), http.StatusOK)
	require.Len(t, history, 1)

	w = env.Request(http.MethodPost, "/api/items/"+item.ID+"/move", map[string]any{"city_id": to.CityID}, staffToken)
	errInfo := testutil.DecodeError(t, w, http.StatusUnprocessableEntity)
	require.Contains(t, errInfo.Fields, "building_id")
}

func TestItemHandler_DeleteRefusedWithDeliveries(t *testing.T) {
	env := testutil.NewEnv(t)
	owner := env.CreateUser("alice", false)
	staff := env.CreateUser("admin", true)
	_, building := env.CreateBuilding("Timisoara", "Iulius Town")
	token := env.Token(owner)
	kept := createItem(t, env, token, building, "Laptop", "LT-1", 5)
	dropped := createItem(t, env, token, building, "Mouse", "MS-1", 5)

	w := env.Request(http.MethodPost, "/api/deliveries", map[string]any{
		"item_id":  kept.ID,
		"quantity": 1,
		"to_city":  "Arad",
	}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.Request(http.MethodDelete, "/api/items/"+kept.ID, nil, env.Token(staff))
	errInfo := testutil.DecodeError(t, w, http.StatusConflict)
	require.Equal(t, "ITEM_HAS_DELIVERIES", errInfo.Code)

	w = env.Request(http.MethodDelete, "/api/items/"+dropped.ID, nil, token)
	testutil.DecodeError(t, w, http.StatusForbidden)

	w = env.Request(http.MethodDelete, "/api/items/"+dropped.ID, nil, env.Token(staff))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var count int64
	require.NoError(t, env.DB.Model(&models.Item{}).Where("id = ?", dropped.ID).Count(&count).Error)
	require.Zero(t, count)
}

func TestItemHandler_ExportCSV(t *testing.T) {
	env := testutil.NewEnv(t)
	owner := env.CreateUser("alice", false)
	_, building := env.CreateBuilding("Timisoara", "Iulius Town")
	token := env.Token(owner)
	createItem(t, env, token, building, "Laptop", "LT-1", 5)
	createItem(t, env, token, building, "Mouse", "MS-1", 7)

	w := env.Request(http.MethodGet, "/api/items/export?q=mouse", nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	require.Contains(t, w.Header().Get("Content-Disposition"), services.ItemExportFilename)

	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[1], "MS-1")
}

func TestItemHandler_QRCode(t *testing.T) {
	env := testutil.NewEnv(t)
	owner := env.CreateUser("alice", false)
	_, building := env.CreateBuilding("Timisoara", "Iulius Town")
	token := env.Token(owner)
	item := createItem(t, env, token, building, "Laptop", "LT-1", 5)

	w := env.Request(http.MethodGet, "/api/items/"+item.ID+"/qrcode?size=128", nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, "image/png", w.Header().Get("Content-Type"))
	require.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))

	w = env.Request(http.MethodGet, "/api/items/missing/qrcode", nil, token)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestItemHandler_MapAndCatalog(t *testing.T) {
	env := testutil.NewEnv(t, testutil.WithMapsKey("test-key"))
	owner := env.CreateUser("alice", false)
	city, building := env.CreateBuilding("Timisoara", "Iulius Town")
	token := env.Token(owner)
	createItem(t, env, token, building, "Laptop", "LT-1", 5)

	view := testutil.DecodeData[services.ItemMap](t, env.Request(http.MethodGet, "/api/map", nil, token), http.StatusOK)
	require.True(t, view.HasKey)
	require.Equal(t, 1, view.MarkerCount)
	require.NotEmpty(t, view.URLs)
	require.Contains(t, view.URLs[0], "key=test-key")
	require.NotNil(t, view.Bounds)

	list := testutil.DecodeData[struct {
		HasKey bool `json:"has_key"`
	}](t, env.Request(http.MethodGet, "/api/items", nil, token), http.StatusOK)
	require.True(t, list.HasKey)

	cities := testutil.DecodeData[[]models.City](t, env.Request(http.MethodGet, "/api/cities", nil, token), http.StatusOK)
	require.Len(t, cities, 1)
	require.Equal(t, city.ID, cities[0].ID)

	buildings := testutil.DecodeData[[]models.Building](t,
		env.Request(http.MethodGet, "/api/cities/"+city.ID+"/buildings", nil, token), http.StatusOK)
	require.Len(t, buildings, 1)
	require.Equal(t, building.ID, buildings[0].ID)
}
