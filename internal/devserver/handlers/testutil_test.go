package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/my-own-web-services/mows-sub001/internal/devserver/config"
	"github.com/my-own-web-services/mows-sub001/internal/devserver/database"
	"github.com/my-own-web-services/mows-sub001/internal/devserver/middleware"
	"github.com/my-own-web-services/mows-sub001/internal/devserver/session"
	"github.com/my-own-web-services/mows-sub001/internal/devserver/storage"
	"github.com/my-own-web-services/mows-sub001/pkg/filez"
	"github.com/my-own-web-services/mows-sub001/pkg/logger"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type testEnv struct {
	app    *fiber.App
	db     *gorm.DB
	issuer *session.Issuer
	cfg    *config.Config
}

var testSetupOnce sync.Once

func testConfig() *config.Config {
	return &config.Config{
		Session: config.SessionConfig{Secret: "test-secret", ExpirationHours: 24},
		Identity: config.IdentityConfig{
			AutoApprove:     true,
			DevEmail:        "dev@filez.local",
			DevName:         "Filez Developer",
			VerificationURL: "http://localhost:8080/oauth/device",
			PollInterval:    1,
		},
		Server: config.ServerConfig{AllowedOrigins: "http://localhost:3000", BodyLimitMB: 10},
	}
}

func setupTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()

	testSetupOnce.Do(func() {
		database.RegisterSQLiteFunctions()
		logger.SetOutput(io.Discard)
	})

	cfg := testConfig()
	for _, m := range mutate {
		m(cfg)
	}

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed automigrating models: %v", err)
	}

	issuer := session.NewIssuer(cfg.Session.Secret, time.Hour, cfg.Session.SessionTTL())

	app := fiber.New(fiber.Config{BodyLimit: cfg.Server.BodyLimitMB * 1024 * 1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())

	RegisterRoutes(app, Dependencies{
		DB:     db,
		Store:  storage.NewDatabaseStore(db),
		Issuer: issuer,
		Config: cfg,
	})

	return &testEnv{app: app, db: db, issuer: issuer, cfg: cfg}
}

// sessionHeaders returns headers carrying a session cookie for subject.
func (e *testEnv) sessionHeaders(t *testing.T, subject string) map[string]string {
	t.Helper()
	token, err := e.issuer.IssueSessionToken(session.Identity{
		Subject: subject,
		Email:   subject + "@filez.local",
		Name:    subject,
	})
	if err != nil {
		t.Fatalf("failed issuing session token: %v", err)
	}
	return map[string]string{
		"Cookie":         filez.SessionCookieName + "=" + token,
		"X-Filez-App-Id": "test-app",
	}
}

// registerUser creates the user for subject and returns its session headers.
func (e *testEnv) registerUser(t *testing.T, subject string) (filez.User, map[string]string) {
	t.Helper()
	headers := e.sessionHeaders(t, subject)
	resp := performRequest(t, e.app, http.MethodPost, "/api/create_user/", nil, headers)
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		t.Fatalf("failed registering %s: status %d", subject, resp.StatusCode)
	}
	var user filez.User
	decodeJSON(t, resp, &user)
	return user, headers
}

// uploadFile creates a file through create_file and returns it.
func (e *testEnv) uploadFile(t *testing.T, headers map[string]string, meta filez.CreateFileRequest, content string) filez.File {
	t.Helper()
	resp := performRequest(t, e.app, http.MethodPost, "/api/create_file/", bytes.NewBufferString(content), withMetadata(t, headers, meta))
	assertStatus(t, resp, http.StatusCreated)
	var file filez.File
	decodeJSON(t, resp, &file)
	return file
}

func (e *testEnv) createGroup(t *testing.T, headers map[string]string, req filez.CreateGroupRequest) string {
	t.Helper()
	resp := performJSONRequest(t, e.app, http.MethodPost, "/api/create_group/", req, headers)
	assertStatus(t, resp, http.StatusCreated)
	var out filez.CreateGroupResponse
	decodeJSON(t, resp, &out)
	return out.GroupID
}

func withMetadata(t *testing.T, headers map[string]string, meta filez.CreateFileRequest) map[string]string {
	t.Helper()
	encoded, err := json.Marshal(meta)
	if err != nil {
		t.Fatalf("failed to marshal metadata: %v", err)
	}
	out := map[string]string{"Content-Type": "application/octet-stream", metadataHeader: string(encoded)}
	for key, value := range headers {
		out[key] = value
	}
	return out
}

func performRequest(t *testing.T, app *fiber.App, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := app.Test(req, int((10 * time.Second).Milliseconds()))
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}

	return resp
}

func performJSONRequest(t *testing.T, app *fiber.App, method, path string, payload any, headers map[string]string) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}

	requestHeaders := map[string]string{}
	for key, value := range headers {
		requestHeaders[key] = value
	}
	if payload != nil {
		requestHeaders["Content-Type"] = "application/json"
	}

	return performRequest(t, app, method, path, body, requestHeaders)
}

func performFormRequest(t *testing.T, app *fiber.App, path string, form url.Values) *http.Response {
	t.Helper()
	return performRequest(t, app, http.MethodPost, path, strings.NewReader(form.Encode()), map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
	})
}

func decodeJSON(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed reading response body: %v", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		t.Fatalf("failed decoding JSON response: %v body=%q", err, string(raw))
	}
}

func decodeJSONMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var payload map[string]any
	decodeJSON(t, resp, &payload)
	return payload
}

func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected status %d, got %d body=%q", expected, resp.StatusCode, string(body))
	}
}

func assertError(t *testing.T, resp *http.Response, status int, expected string) {
	t.Helper()
	assertStatus(t, resp, status)
	body := decodeJSONMap(t, resp)
	if got, _ := body["error"].(string); got != expected {
		t.Fatalf("expected error %q, got %q", expected, got)
	}
}
