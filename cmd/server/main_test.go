package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"interviewprep/ai/internal/config"
	"interviewprep/ai/internal/handlers"
	"interviewprep/ai/internal/lock"
	"interviewprep/ai/internal/models"
	"interviewprep/ai/internal/store"

	"github.com/alicebob/miniredis/v2"
	"go.uber.org/zap"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Provider:           "gemini",
		DBDriver:           config.DriverSQLite,
		SQLitePath:         filepath.Join(t.TempDir(), "interviews.db"),
		LockBackend:        config.LockLocal,
		LockTTL:            time.Minute,
		CORSAllowedOrigins: []string{"http://localhost:5173"},
	}
}

func TestInitDatabaseSQLite(t *testing.T) {
	db, err := initDatabase(testConfig(t))
	if err != nil {
		t.Fatalf("initDatabase returned error: %v", err)
	}

	for _, model := range models.AllModels() {
		if !db.Migrator().HasTable(model) {
			t.Fatalf("expected table for %T to be migrated", model)
		}
	}
	if err := store.New(db).Ping(context.Background()); err != nil {
		t.Fatalf("expected database to answer, got %v", err)
	}
}

func TestInitLocker(t *testing.T) {
	cfg := testConfig(t)

	locker, closeLocker, err := initLocker(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("local locker failed: %v", err)
	}
	closeLocker()
	if _, ok := locker.(*lock.Local); !ok {
		t.Fatalf("expected local locker, got %T", locker)
	}

	cfg.LockBackend = config.LockNone
	locker, _, err = initLocker(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("noop locker failed: %v", err)
	}
	if _, ok := locker.(lock.Noop); !ok {
		t.Fatalf("expected noop locker, got %T", locker)
	}

	mr := miniredis.RunT(t)
	cfg.LockBackend = config.LockRedis
	cfg.RedisAddr = mr.Addr()
	locker, closeLocker, err = initLocker(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("redis locker failed: %v", err)
	}
	defer closeLocker()
	release, err := locker.TryLock(context.Background(), lock.Key(1))
	if err != nil {
		t.Fatalf("expected to acquire the redis lock, got %v", err)
	}
	release()

	cfg.RedisAddr = "127.0.0.1:1"
	if _, _, err := initLocker(cfg, zap.NewNop()); err == nil {
		t.Fatal("expected an unreachable redis to be rejected")
	}
}

func TestNewRouter(t *testing.T) {
	cfg := testConfig(t)
	interviewHandler := handlers.NewInterviewHandler(nil, nil, zap.NewNop())
	healthHandler := handlers.NewHealthHandler(nil, nil, nil, cfg)

	router := newRouter(cfg, interviewHandler, healthHandler)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected /healthz to be registered, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("expected CORS header for the configured origin, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/interviews/abc/questions", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected interview routes to be registered, got %d", rec.Code)
	}
}
