package services

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/inventra/internal/models"
)

func TestGetOrCreateCityIsDiacriticInsensitive(t *testing.T) {
	f := newFixture(t)

	first, created, err := f.catalog.GetOrCreateCity(f.ctx, "Timișoara")
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, "Timisoara", first.Name)

	for _, spelling := range []string{"timisoara", "TIMIȘOARA", " Timişoara "} {
		city, created, err := f.catalog.GetOrCreateCity(f.ctx, spelling)
		require.NoError(t, err)
		require.False(t, created)
		require.Equal(t, first.ID, city.ID)

		found, err := f.catalog.FindCityByName(f.ctx, spelling)
		require.NoError(t, err)
		require.Equal(t, first.ID, found.ID)
	}

	_, _, err = f.catalog.GetOrCreateCity(f.ctx, "   ")
	require.Error(t, err)
}

func TestDeleteCityAndBuildingGuards(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", false)
	depot := f.building(t, "Cluj", "Depot")
	item := f.item(t, alice, depot, "Widget", "WID-1", 1)

	require.ErrorIs(t, f.catalog.DeleteCity(f.ctx, depot.CityID), ErrCityHasBuildings)
	_, err := f.catalog.DeleteBuilding(f.ctx, depot.ID)
	require.ErrorIs(t, err, ErrBuildingHasItems)

	_, err = f.catalog.GetCity(f.ctx, depot.CityID)
	require.NoError(t, err)
	_, err = f.catalog.GetBuilding(f.ctx, depot.ID)
	require.NoError(t, err)

	require.NoError(t, f.db.Delete(&models.Item{}, "id = ?", item.ID).Error)
	_, err = f.catalog.DeleteBuilding(f.ctx, depot.ID)
	require.NoError(t, err)
	require.NoError(t, f.catalog.DeleteCity(f.ctx, depot.CityID))

	_, err = f.catalog.GetCity(f.ctx, depot.CityID)
	require.ErrorIs(t, err, ErrCityNotFound)
}

func TestCreateBuildingReturnsExisting(t *testing.T) {
	f := newFixture(t)
	depot := f.building(t, "Cluj", "Depot")

	again, created, err := f.catalog.CreateBuilding(f.ctx, CreateBuildingInput{CityID: depot.CityID, Name: "Depot", Address: "elsewhere"})
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, depot.ID, again.ID)
	require.Equal(t, "Depot street 1", again.Address)
}

func TestBuildingItemsTotals(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", false)
	depot := f.building(t, "Cluj", "Depot")
	f.item(t, alice, depot, "Widget", "WID-1", 4)
	f.item(t, alice, depot, "Gadget", "GAD-1", 6)

	view, err := f.catalog.BuildingItems(f.ctx, depot.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), view.TotalItems)
	require.Equal(t, int64(10), view.TotalQuantity)
	require.Equal(t, "Gadget", view.Items[0].Name)
}

type mergeScenario struct {
	primary     models.City
	dupAccent   models.City
	dupLower    models.City
	primaryDept models.Building
	dupDept     models.Building
	dupHub      models.Building
	repointed   *models.Item
	hubItem     *models.Item
	legacy      models.Item
}

func seedMergeScenario(t *testing.T, f *fixture) *mergeScenario {
	t.Helper()
	s := &mergeScenario{
		primary:   models.City{Name: "Timisoara"},
		dupAccent: models.City{Name: "Timișoara"},
		dupLower:  models.City{Name: "timisoara"},
	}
	require.NoError(t, f.db.Create(&s.primary).Error)
	require.NoError(t, f.db.Create(&s.dupAccent).Error)
	require.NoError(t, f.db.Create(&s.dupLower).Error)

	lat, lng := 45.75, 21.23
	s.primaryDept = models.Building{CityID: s.primary.ID, Name: "Depot", Address: "Main 1", Lat: &lat, Lng: &lng}
	s.dupDept = models.Building{CityID: s.dupAccent.ID, Name: "Depot", Address: "Old 2"}
	s.dupHub = models.Building{CityID: s.dupAccent.ID, Name: "Hub", Address: "Hub 3"}
	require.NoError(t, f.db.Create(&s.primaryDept).Error)
	require.NoError(t, f.db.Create(&s.dupDept).Error)
	require.NoError(t, f.db.Create(&s.dupHub).Error)

	alice := f.user(t, "alice", false)
	s.repointed = f.item(t, alice, &s.dupDept, "Widget", "WID-1", 5)
	s.hubItem = f.item(t, alice, &s.dupHub, "Gadget", "GAD-1", 5)
	s.legacy = models.Item{OwnerID: alice.UserID, Name: "Legacy", SKU: "LEG-1", Quantity: 1, City: "timisoara", Building: "Shed"}
	require.NoError(t, f.db.Omit("BuildingRef", "Owner").Create(&s.legacy).Error)
	return s
}

func TestMergeDuplicateCitiesDryRun(t *testing.T) {
	f := newFixture(t)
	s := seedMergeScenario(t, f)

	report, err := f.catalog.MergeDuplicateCities(f.ctx, true)
	require.NoError(t, err)
	require.True(t, report.DryRun)
	require.Zero(t, report.MergedCount)
	require.Len(t, report.Groups, 1)

	group := report.Groups[0]
	require.Equal(t, "Timisoara", group.Canonical)
	require.Equal(t, s.primary.ID, group.Kept.ID)
	require.Len(t, group.Cities, 3)
	require.Len(t, group.Merged, 2)

	byID := map[string]MergeResult{}
	for _, m := range group.Merged {
		byID[m.ID] = m
	}
	require.Equal(t, int64(1), byID[s.dupAccent.ID].BuildingsMoved)
	require.Equal(t, int64(1), byID[s.dupAccent.ID].BuildingsMerged)
	require.Equal(t, int64(1), byID[s.dupAccent.ID].ItemsRepointed)
	require.Equal(t, int64(1), byID[s.dupLower.ID].TextItemsUpdated)

	var cities int64
	require.NoError(t, f.db.Model(&models.City{}).Count(&cities).Error)
	require.Equal(t, int64(3), cities)
	var stored models.Item
	require.NoError(t, f.db.Take(&stored, "id = ?", s.repointed.ID).Error)
	require.Equal(t, s.dupDept.ID, *stored.BuildingRefID)
}

func TestMergeDuplicateCities(t *testing.T) {
	f := newFixture(t)
	s := seedMergeScenario(t, f)

	report, err := f.catalog.MergeDuplicateCities(f.ctx, false)
	require.NoError(t, err)
	require.Equal(t, 2, report.MergedCount)

	var cities []models.City
	require.NoError(t, f.db.Find(&cities).Error)
	require.Len(t, cities, 1)
	require.Equal(t, s.primary.ID, cities[0].ID)

	var buildings []models.Building
	require.NoError(t, f.db.Order("name ASC").Find(&buildings).Error)
	require.Len(t, buildings, 2)
	require.Equal(t, s.primaryDept.ID, buildings[0].ID)
	require.Equal(t, s.dupHub.ID, buildings[1].ID)
	require.Equal(t, s.primary.ID, buildings[1].CityID)

	var repointed models.Item
	require.NoError(t, f.db.Take(&repointed, "id = ?", s.repointed.ID).Error)
	require.Equal(t, s.primaryDept.ID, *repointed.BuildingRefID)
	require.Equal(t, "Timisoara", repointed.City)
	require.Equal(t, "Main 1", repointed.Address)
	require.NotNil(t, repointed.Lat)

	var hubItem models.Item
	require.NoError(t, f.db.Take(&hubItem, "id = ?", s.hubItem.ID).Error)
	require.Equal(t, "Timisoara", hubItem.City)
	require.Equal(t, s.dupHub.ID, *hubItem.BuildingRefID)

	var legacy models.Item
	require.NoError(t, f.db.Take(&legacy, "id = ?", s.legacy.ID).Error)
	require.Equal(t, "Timisoara", legacy.City)

	again, err := f.catalog.MergeDuplicateCities(f.ctx, false)
	require.NoError(t, err)
	require.Empty(t, again.Groups)
}

func TestMergeDuplicateCitiesDryRunMatchesMerge(t *testing.T) {
	f := newFixture(t)
	primary := models.City{Name: "Timisoara"}
	accent := models.City{Name: "Timișoara"}
	lower := models.City{Name: "timisoara"}
	require.NoError(t, f.db.Create(&primary).Error)
	require.NoError(t, f.db.Create(&accent).Error)
	require.NoError(t, f.db.Create(&lower).Error)

	accentHub := models.Building{CityID: accent.ID, Name: "Hub", Address: "Hub 1"}
	lowerHub := models.Building{CityID: lower.ID, Name: "Hub", Address: "Hub 2"}
	require.NoError(t, f.db.Create(&accentHub).Error)
	require.NoError(t, f.db.Create(&lowerHub).Error)

	alice := f.user(t, "alice", false)
	item := f.item(t, alice, &lowerHub, "Widget", "WID-1", 3)

	results := func(report *MergeReport) map[string]MergeResult {
		require.Len(t, report.Groups, 1)
		byID := map[string]MergeResult{}
		for _, m := range report.Groups[0].Merged {
			byID[m.ID] = m
		}
		return byID
	}

	dry, err := f.catalog.MergeDuplicateCities(f.ctx, true)
	require.NoError(t, err)
	planned := results(dry)
	require.Equal(t, int64(1), planned[accent.ID].BuildingsMoved)
	require.Equal(t, int64(0), planned[lower.ID].BuildingsMoved)
	require.Equal(t, int64(1), planned[lower.ID].BuildingsMerged)
	require.Equal(t, int64(1), planned[lower.ID].ItemsRepointed)

	applied, err := f.catalog.MergeDuplicateCities(f.ctx, false)
	require.NoError(t, err)
	require.Equal(t, planned, results(applied))

	var stored models.Item
	require.NoError(t, f.db.Take(&stored, "id = ?", item.ID).Error)
	require.Equal(t, accentHub.ID, *stored.BuildingRefID)
}
