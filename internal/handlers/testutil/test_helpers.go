package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/inventra/internal/api"
	"github.com/charlesng35/inventra/internal/app"
	iauth "github.com/charlesng35/inventra/internal/auth"
	sharedtestutil "github.com/charlesng35/inventra/internal/database/testutil"
	"github.com/charlesng35/inventra/internal/models"
	"github.com/charlesng35/inventra/internal/realtime"
	"github.com/charlesng35/inventra/pkg/crypto"
	"github.com/charlesng35/inventra/pkg/response"
)

// DefaultPassword is the password of every user created through the Env.
const DefaultPassword = "Secret123!"

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T      *testing.T
	DB     *gorm.DB
	Router *gin.Engine
	JWT    *iauth.JWTService
	Hub    *realtime.Hub
	Config *app.Config
}

// EnvOption adjusts the configuration before the router is built.
type EnvOption func(*app.Config)

// WithMapsKey enables static map URLs.
func WithMapsKey(key string) EnvOption {
	return func(cfg *app.Config) { cfg.Maps.APIKey = key }
}

// NewEnv provisions a fresh handler test environment with migrations applied.
func NewEnv(t *testing.T, opts ...EnvOption) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithAutoMigrate())

	cfg := &app.Config{}
	cfg.Auth.JWT = app.JWTSettings{
		Secret: "test-suite-super-secret-key-32-bytes!!",
		Issuer: "test-suite",
		TTL:    time.Hour,
	}
	cfg.Monitoring.Prometheus.Enabled = true
	for _, opt := range opts {
		opt(cfg)
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTConfig())
	require.NoError(t, err)

	hub := realtime.NewHub()
	router, err := api.NewRouter(db, jwtSvc, cfg, api.Options{Hub: hub})
	require.NoError(t, err)

	return &Env{
		T:      t,
		DB:     db,
		Router: router,
		JWT:    jwtSvc,
		Hub:    hub,
		Config: cfg,
	}
}

// CreateUser inserts an active user with DefaultPassword and default
// notification settings.
func (e *Env) CreateUser(username string, staff bool) *models.User {
	e.T.Helper()

	hashed, err := crypto.HashPassword(DefaultPassword)
	require.NoError(e.T, err)

	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: hashed,
		IsActive: true,
		IsStaff:  staff,
	}
	require.NoError(e.T, e.DB.Omit("NotificationSettings").Create(user).Error)

	settings := models.DefaultNotificationSettings(user.ID)
	require.NoError(e.T, e.DB.Create(&settings).Error)
	return user
}

// Token issues an access token for user without going through login.
func (e *Env) Token(user *models.User) string {
	e.T.Helper()
	token, err := e.JWT.GenerateAccessToken(iauth.AccessTokenInput{
		UserID:   user.ID,
		Username: user.Username,
		IsStaff:  user.IsStaff,
	})
	require.NoError(e.T, err)
	return token
}

// CreateBuilding inserts a city (if needed) and a building in it.
func (e *Env) CreateBuilding(cityName, buildingName string) (*models.City, *models.Building) {
	e.T.Helper()

	var city models.City
	require.NoError(e.T, e.DB.Where(models.City{Name: cityName}).FirstOrCreate(&city).Error)

	lat, lng := 45.7489, 21.2087
	building := &models.Building{
		CityID:  city.ID,
		Name:    buildingName,
		Address: buildingName + " street 1",
		Lat:     &lat,
		Lng:     &lng,
	}
	require.NoError(e.T, e.DB.Omit("City").Create(building).Error)
	return &city, building
}

// LoginResult mirrors the login response payload.
type LoginResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	User        struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		IsStaff  bool   `json:"is_staff"`
	} `json:"user"`
}

// Login authenticates through the API and returns the issued token.
func (e *Env) Login(username, password string) LoginResult {
	e.T.Helper()

	w := e.Request(http.MethodPost, "/api/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	resp := DecodeResponse(e.T, w)
	require.True(e.T, resp.Success, w.Body.String())

	var result LoginResult
	DecodeInto(e.T, resp.Data, &result)
	require.NotEmpty(e.T, result.AccessToken)
	require.Equal(e.T, username, result.User.Username)
	return result
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// DecodeData asserts a success envelope with the given status and decodes its data.
func DecodeData[T any](t *testing.T, w *httptest.ResponseRecorder, status int) T {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	resp := DecodeResponse(t, w)
	require.True(t, resp.Success, w.Body.String())
	var out T
	DecodeInto(t, resp.Data, &out)
	return out
}

// DecodeError asserts an error envelope with the given status and returns its details.
func DecodeError(t *testing.T, w *httptest.ResponseRecorder, status int) *response.ErrorInfo {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	resp := DecodeResponse(t, w)
	require.False(t, resp.Success, w.Body.String())
	require.NotNil(t, resp.Error)
	return resp.Error
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.T, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, path, &buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}
