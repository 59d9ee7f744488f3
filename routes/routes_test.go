package routes

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"yellowpages-backend/controllers"
	"yellowpages-backend/database"
	"yellowpages-backend/middlewares"
	"yellowpages-backend/store"
)

type testServer struct {
	app   *fiber.App
	db    *gorm.DB
	store *store.VendorStore
}

func newTestServer(t *testing.T, opts store.Options, adminSecret string) *testServer {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	nop := zerolog.Nop()
	opts.Logger = &nop
	s := store.NewVendorStore(database.NewVendorCollection(db), opts)
	app := NewApp(Deps{DB: db, Store: s, AdminJWTSecret: adminSecret, DBTimeout: opts.Timeout}, AppConfig{BodyLimit: 64 * 1024})
	return &testServer{app: app, db: db, store: s}
}

func (ts *testServer) do(t *testing.T, method, path, body string, headers ...string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := ts.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return out
}

type vendorJSON struct {
	Id                  string    `json:"id"`
	VendorName          string    `json:"vendor_name"`
	ServiceProviderName string    `json:"service_provider_name"`
	PhoneNumber         string    `json:"phone_number"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func TestVendorLifecycle(t *testing.T) {
	ts := newTestServer(t, store.Options{}, "")

	resp, raw := ts.do(t, http.MethodPost, "/api/vendors",
		`{"id":"client-id","vendor_name":"ABC Corp","service_provider_name":"John Smith","phone_number":"1234567890"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(raw))
	created := decode[vendorJSON](t, raw)
	assert.Equal(t, "1234567890", created.PhoneNumber)
	assert.NotEqual(t, "client-id", created.Id)
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))
	assert.Empty(t, resp.Header.Get(controllers.FallbackHeader))

	resp, raw = ts.do(t, http.MethodPost, "/api/vendors",
		`{"vendor_name":"ABC Corp","service_provider_name":"Jane Doe","phone_number":"0987654321"}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "duplicate_name", decode[map[string]any](t, raw)["kind"])

	resp, raw = ts.do(t, http.MethodPost, "/api/vendors",
		`{"vendor_name":"XYZ Corp","service_provider_name":"Jane Doe","phone_number":"(123) 456-7890"}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "duplicate_phone", decode[map[string]any](t, raw)["kind"])

	resp, raw = ts.do(t, http.MethodGet, "/api/vendors/"+created.Id, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	got := decode[vendorJSON](t, raw)
	assert.Equal(t, created.Id, got.Id)
	assert.Equal(t, created.VendorName, got.VendorName)
	assert.True(t, created.CreatedAt.Equal(got.CreatedAt))

	resp, _ = ts.do(t, http.MethodGet, "/api/vendors/never-created", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, raw = ts.do(t, http.MethodPut, "/api/vendors/"+created.Id, `{"phone_number":"555-123-4567"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(raw))
	updated := decode[vendorJSON](t, raw)
	assert.Equal(t, "5551234567", updated.PhoneNumber)
	assert.Equal(t, "ABC Corp", updated.VendorName)

	resp, raw = ts.do(t, http.MethodPut, "/api/vendors/"+created.Id, `{"vendor_name":"   "}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "vendor_name", decode[map[string]any](t, raw)["field"])

	resp, _ = ts.do(t, http.MethodPut, "/api/vendors/never-created", `{"vendor_name":"X"}`)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, raw = ts.do(t, http.MethodGet, "/api/vendors", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]vendorJSON](t, raw), 1)

	resp, raw = ts.do(t, http.MethodDelete, "/api/vendors/"+created.Id, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "Vendor deleted successfully", decode[map[string]any](t, raw)["message"])

	resp, _ = ts.do(t, http.MethodDelete, "/api/vendors/"+created.Id, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestCreateVendorValidation(t *testing.T) {
	ts := newTestServer(t, store.Options{}, "")

	tests := []struct {
		name   string
		body   string
		field  string
		reason string
	}{
		{"short phone", `{"vendor_name":"A","service_provider_name":"B","phone_number":"123"}`, "phone_number", "too_short"},
		{"letters", `{"vendor_name":"A","service_provider_name":"B","phone_number":"123abc4567"}`, "phone_number", "non_numeric"},
		{"missing name", `{"service_provider_name":"B","phone_number":"1234567890"}`, "vendor_name", "empty"},
		{"long name", `{"vendor_name":"` + strings.Repeat("n", 101) + `","service_provider_name":"B","phone_number":"1234567890"}`, "vendor_name", "too_long"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, raw := ts.do(t, http.MethodPost, "/api/vendors", tt.body)
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
			body := decode[map[string]any](t, raw)
			assert.Equal(t, tt.field, body["field"])
			assert.Equal(t, tt.reason, body["reason"])
		})
	}

	resp, raw := ts.do(t, http.MethodPost, "/api/vendors",
		`{"vendor_name":"`+strings.Repeat("n", 300)+`","service_provider_name":"B","phone_number":"1234567890"}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, map[string]any{"vendor_name": "max"}, decode[map[string]any](t, raw)["errors"])

	resp, _ = ts.do(t, http.MethodPost, "/api/vendors", `{broken`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestCreateVendorAcceptsHeavilyPaddedFields(t *testing.T) {
	ts := newTestServer(t, store.Options{}, "")
	pad := strings.Repeat(" ", 300)

	resp, raw := ts.do(t, http.MethodPost, "/api/vendors",
		`{"vendor_name":"`+pad+`Padded Co`+pad+`","service_provider_name":"P","phone_number":"`+pad+`5553334444"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(raw))
	v := decode[vendorJSON](t, raw)
	assert.Equal(t, "Padded Co", v.VendorName)
	assert.Equal(t, "5553334444", v.PhoneNumber)

	resp, raw = ts.do(t, http.MethodPut, "/api/vendors/"+v.Id, `{"service_provider_name":"`+pad+`Q`+pad+`"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(raw))
	assert.Equal(t, "Q", decode[vendorJSON](t, raw).ServiceProviderName)
}

func TestSeedTwice(t *testing.T) {
	ts := newTestServer(t, store.Options{}, "")
	entries, err := store.SeedCatalog()
	require.NoError(t, err)

	resp, raw := ts.do(t, http.MethodPost, "/api/vendors/seed", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(raw))
	first := decode[map[string]any](t, raw)
	assert.EqualValues(t, len(entries), first["inserted"])

	resp, raw = ts.do(t, http.MethodPost, "/api/vendors/seed", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	second := decode[map[string]any](t, raw)
	assert.EqualValues(t, 0, second["inserted"])
	assert.EqualValues(t, len(entries), second["total"])
	assert.Contains(t, second["message"], "already has")

	resp, raw = ts.do(t, http.MethodGet, "/api/vendors?limit=5", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]vendorJSON](t, raw), 5)
}

func TestSeedRequiresAdminWhenSecretSet(t *testing.T) {
	ts := newTestServer(t, store.Options{}, "topsecret")

	resp, _ := ts.do(t, http.MethodPost, "/api/vendors/seed", "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	token, err := middlewares.GenerateAdminToken("topsecret", "ops", time.Minute)
	require.NoError(t, err)
	resp, raw := ts.do(t, http.MethodPost, "/api/vendors/seed", "", "Authorization", "Bearer "+token)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode, string(raw))
}

func TestFallbackModeOverHTTP(t *testing.T) {
	ts := newTestServer(t, store.Options{FallbackEnabled: true, FallbackOnEmpty: true}, "")

	resp, raw := ts.do(t, http.MethodGet, "/api/vendors", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "true", resp.Header.Get(controllers.FallbackHeader))
	demo := decode[[]vendorJSON](t, raw)
	require.Len(t, demo, len(store.DemoCatalog()))
	assert.True(t, strings.HasPrefix(demo[0].Id, store.FallbackIDPrefix))

	resp, raw = ts.do(t, http.MethodPost, "/api/vendors",
		`{"vendor_name":"Offline","service_provider_name":"O","phone_number":"5550001111"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "true", resp.Header.Get(controllers.FallbackHeader))
	assert.True(t, strings.HasPrefix(decode[vendorJSON](t, raw).Id, store.FallbackIDPrefix))

	resp, raw = ts.do(t, http.MethodGet, "/api/health", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	health := decode[map[string]any](t, raw)
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, true, health["fallback_mode"])
}

func TestHealthReportsDisconnectedDatabase(t *testing.T) {
	ts := newTestServer(t, store.Options{}, "")

	resp, raw := ts.do(t, http.MethodGet, "/api/health", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "connected", decode[map[string]any](t, raw)["database"])

	sqlDB, err := ts.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	resp, raw = ts.do(t, http.MethodGet, "/api/health", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	health := decode[map[string]any](t, raw)
	assert.Equal(t, "unhealthy", health["status"])
	assert.Equal(t, "disconnected", health["database"])
	assert.Equal(t, false, health["fallback_mode"])

	resp, _ = ts.do(t, http.MethodGet, "/api/vendors/anything", "")
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get(fiber.HeaderRetryAfter))
}

func TestRootAndStatusChecks(t *testing.T) {
	ts := newTestServer(t, store.Options{}, "")

	resp, raw := ts.do(t, http.MethodGet, "/api/", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "BMP Yellow Pages API", decode[map[string]any](t, raw)["message"])

	resp, raw = ts.do(t, http.MethodPost, "/api/status", `{"client_name":"uptime-monitor"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(raw))
	check := decode[map[string]any](t, raw)
	assert.Equal(t, "uptime-monitor", check["client_name"])
	assert.NotEmpty(t, check["id"])

	resp, _ = ts.do(t, http.MethodPost, "/api/status", `{}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, raw = ts.do(t, http.MethodGet, "/api/status", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]map[string]any](t, raw), 1)
}

func TestIdempotentCreate(t *testing.T) {
	ts := newTestServer(t, store.Options{}, "")
	body := `{"vendor_name":"Retry Co","service_provider_name":"R","phone_number":"5557778888"}`

	resp, raw := ts.do(t, http.MethodPost, "/api/vendors", body, middlewares.IdempotencyHeader, "create-1")
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(raw))
	first := decode[vendorJSON](t, raw)

	resp, raw = ts.do(t, http.MethodPost, "/api/vendors", body, middlewares.IdempotencyHeader, "create-1")
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(raw))
	assert.Equal(t, first.Id, decode[vendorJSON](t, raw).Id)
	assert.Equal(t, "true", resp.Header.Get(middlewares.IdempotentReplayHeader))
}

// stallFor delays a statement by d unless its context ends first.
func stallFor(d time.Duration) func(*gorm.DB) {
	return func(tx *gorm.DB) {
		select {
		case <-time.After(d):
		case <-tx.Statement.Context.Done():
			_ = tx.AddError(tx.Statement.Context.Err())
		}
	}
}

func TestIdempotentCreateIsBoundedWhenStorageStalls(t *testing.T) {
	timeout := 150 * time.Millisecond
	ts := newTestServer(t, store.Options{FallbackEnabled: true, Timeout: timeout}, "")

	stall := stallFor(3 * time.Second)
	require.NoError(t, ts.db.Callback().Query().Before("gorm:query").Register("test:stall", stall))
	require.NoError(t, ts.db.Callback().Create().Before("gorm:create").Register("test:stall", stall))
	require.NoError(t, ts.db.Callback().Update().Before("gorm:update").Register("test:stall", stall))
	require.NoError(t, ts.db.Callback().Delete().Before("gorm:delete").Register("test:stall", stall))

	body := `{"vendor_name":"Slow Co","service_provider_name":"S","phone_number":"5551112222"}`
	start := time.Now()
	resp, raw := ts.do(t, http.MethodPost, "/api/vendors", body, middlewares.IdempotencyHeader, "slow-1")
	elapsed := time.Since(start)

	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(raw))
	assert.Equal(t, "true", resp.Header.Get(controllers.FallbackHeader))
	assert.True(t, strings.HasPrefix(decode[vendorJSON](t, raw).Id, store.FallbackIDPrefix))
	assert.Less(t, elapsed, 6*timeout, "request took %s", elapsed)
}
