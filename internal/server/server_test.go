package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"gorm.io/gorm"

	"github.com/zulandar/fleetboard/internal/config"
	"github.com/zulandar/fleetboard/internal/db"
	"github.com/zulandar/fleetboard/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// openFleet creates a migrated sqlite fleet database with a few cars.
func openFleet(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := config.DatabaseConfig{Driver: "sqlite", Path: t.TempDir() + "/fleet.db"}
	gormDB, err := db.Connect(&cfg)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	batch := models.CarModel{BatchID: 1, CommonName: "Mark I"}
	if err := gormDB.Create(&batch).Error; err != nil {
		t.Fatalf("seed batch: %v", err)
	}
	for id := int64(1); id <= 3; id++ {
		name := fmt.Sprintf("Car %03d", id)
		one := int64(1)
		car := models.TrainCar{CarID: id, Name: &name, Status: models.StatusInService, BatchID: &one}
		if err := gormDB.Create(&car).Error; err != nil {
			t.Fatalf("seed car: %v", err)
		}
	}
	marriage := models.Marriage{MarriageID: 1, BatchID: 1, CarIDs: models.IntList{1, 2}, GroupSize: 2}
	if err := gormDB.Create(&marriage).Error; err != nil {
		t.Fatalf("seed marriage: %v", err)
	}
	return gormDB
}

func testRouter(t *testing.T, gormDB *gorm.DB) *gin.Engine {
	t.Helper()
	return newRouter(gormDB, config.ServerConfig{}, nil)
}

func get(router *gin.Engine, target string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		if k == "Host" {
			req.Host = v
			continue
		}
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return body
}

func TestTrainCars_Envelope(t *testing.T) {
	router := testRouter(t, openFleet(t))

	w := get(router, "/api/train-cars", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	body := decodeEnvelope(t, w)
	for _, key := range []string{"data", "total", "limit", "offset", "lastUpdated", "marriages"} {
		if _, ok := body[key]; !ok {
			t.Errorf("envelope missing key %q", key)
		}
	}
	if body["total"].(float64) != 3 {
		t.Errorf("total = %v, want 3", body["total"])
	}
	if body["limit"].(float64) != 50 {
		t.Errorf("limit = %v, want default 50", body["limit"])
	}
	if body["marriages"] != nil {
		t.Errorf("marriages = %v, want null without grouping", body["marriages"])
	}
	if body["lastUpdated"] == nil {
		t.Error("lastUpdated should be set")
	}
}

func TestTrainCars_ParamClamping(t *testing.T) {
	router := testRouter(t, openFleet(t))

	tests := []struct {
		name       string
		query      string
		wantLimit  float64
		wantOffset float64
	}{
		{"defaults", "", 50, 0},
		{"too large", "?limit=999", 100, 0},
		{"too small", "?limit=0", 1, 0},
		{"negative offset", "?offset=-4", 50, 0},
		{"unparseable", "?limit=abc&offset=xyz", 50, 0},
		{"in range", "?limit=25&offset=10", 25, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(router, "/api/train-cars"+tt.query, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", w.Code)
			}
			body := decodeEnvelope(t, w)
			if body["limit"].(float64) != tt.wantLimit {
				t.Errorf("limit = %v, want %v", body["limit"], tt.wantLimit)
			}
			if body["offset"].(float64) != tt.wantOffset {
				t.Errorf("offset = %v, want %v", body["offset"], tt.wantOffset)
			}
		})
	}
}

func TestTrainCars_Grouped(t *testing.T) {
	router := testRouter(t, openFleet(t))

	w := get(router, "/api/train-cars?groupByMarriage=true&search=ignored", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := decodeEnvelope(t, w)

	marriages, ok := body["marriages"].([]any)
	if !ok {
		t.Fatalf("marriages = %v, want array", body["marriages"])
	}
	if len(marriages) != 1 {
		t.Errorf("len(marriages) = %d, want 1", len(marriages))
	}
	// Search is ignored server-side under grouping.
	if body["total"].(float64) != 3 {
		t.Errorf("total = %v, want 3 (unfiltered)", body["total"])
	}
	if len(body["data"].([]any)) != 3 {
		t.Errorf("data len = %d, want all 3 cars", len(body["data"].([]any)))
	}
}

func TestTrainCars_QueryFailure(t *testing.T) {
	gormDB := openFleet(t)
	router := testRouter(t, gormDB)

	if err := gormDB.Migrator().DropTable(&models.TrainCar{}); err != nil {
		t.Fatalf("drop table: %v", err)
	}

	w := get(router, "/api/train-cars", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	body := decodeEnvelope(t, w)
	if body["error"] != errFleetQuery {
		t.Errorf("error = %v, want %q", body["error"], errFleetQuery)
	}
	// No internal detail leaks into the response.
	for _, leak := range []string{"SELECT", "train_cars", "sqlite"} {
		if strings.Contains(w.Body.String(), leak) {
			t.Errorf("response leaks %q: %s", leak, w.Body.String())
		}
	}
}

func TestOriginBoundary(t *testing.T) {
	router := testRouter(t, openFleet(t))

	tests := []struct {
		name     string
		header   map[string]string
		wantCode int
	}{
		{"no headers", map[string]string{"Host": "fleet.example.com"}, 200},
		{"matching origin", map[string]string{"Host": "fleet.example.com", "Origin": "https://fleet.example.com"}, 200},
		{"matching referer", map[string]string{"Host": "fleet.example.com", "Referer": "https://fleet.example.com/page"}, 200},
		{"foreign origin", map[string]string{"Host": "fleet.example.com", "Origin": "https://evil.example"}, 403},
		{"foreign referer", map[string]string{"Host": "fleet.example.com", "Referer": "https://evil.example/x"}, 403},
		{"loopback host relaxed", map[string]string{"Host": "127.0.0.1:8080", "Origin": "http://dev.local"}, 200},
		{"localhost relaxed", map[string]string{"Host": "localhost:8080", "Origin": "http://anything.dev"}, 200},
		{"garbage origin", map[string]string{"Host": "fleet.example.com", "Origin": "::::"}, 403},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(router, "/api/train-cars", tt.header)
			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", w.Code, tt.wantCode)
			}
			if tt.wantCode == http.StatusForbidden {
				body := decodeEnvelope(t, w)
				if body["error"] != "unauthorized" {
					t.Errorf("error = %v, want unauthorized", body["error"])
				}
			}
		})
	}
}

func TestStaticAssets(t *testing.T) {
	router := testRouter(t, openFleet(t))

	for _, path := range []string{"/static/style.css", "/static/app.js"} {
		w := get(router, path, nil)
		if w.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, w.Code)
		}
		if w.Body.Len() == 0 {
			t.Errorf("GET %s returned empty body", path)
		}
	}
}

func TestIndexAndFallback(t *testing.T) {
	router := testRouter(t, openFleet(t))

	for _, path := range []string{"/", "/fleet", "/some/other/page"} {
		w := get(router, path, nil)
		if w.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, w.Code)
			continue
		}
		if !strings.Contains(w.Body.String(), "Fleetboard") {
			t.Errorf("GET %s does not serve the client page", path)
		}
	}
}

func TestHealth(t *testing.T) {
	router := testRouter(t, openFleet(t))

	w := get(router, "/api/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := decodeEnvelope(t, w)
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
}

func TestRateLimit(t *testing.T) {
	gormDB := openFleet(t)
	cfg := config.ServerConfig{RateLimitPerSec: 0.001, RateLimitBurst: 2}
	router := newRouter(gormDB, cfg, nil)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := get(router, "/api/health", nil)
		codes = append(codes, w.Code)
	}
	if codes[0] != 200 || codes[1] != 200 {
		t.Errorf("first requests = %v, want burst of 2 allowed", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("third request = %d, want 429", codes[2])
	}
}

func TestResponseCache(t *testing.T) {
	gormDB := openFleet(t)
	store := cache.New(time.Minute, time.Minute)
	cfg := config.ServerConfig{CacheTTLSeconds: 60}
	router := newRouter(gormDB, cfg, store)

	first := get(router, "/api/train-cars", nil)
	if first.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", first.Code)
	}

	// Change the data; a cached response must not reflect it.
	name := "Car 099"
	car := models.TrainCar{CarID: 99, Name: &name, Status: models.StatusInTesting}
	if err := gormDB.Create(&car).Error; err != nil {
		t.Fatalf("insert: %v", err)
	}

	second := get(router, "/api/train-cars", nil)
	if second.Body.String() != first.Body.String() {
		t.Error("second response differs; expected cache hit")
	}

	// After a flush the new row is visible.
	store.Flush()
	third := get(router, "/api/train-cars", nil)
	if third.Body.String() == first.Body.String() {
		t.Error("response unchanged after cache flush")
	}
}

func TestCacheRefresher_FlushesOnChange(t *testing.T) {
	gormDB := openFleet(t)
	store := cache.New(time.Minute, time.Minute)
	store.Set("key", "value", time.Minute)

	refresh := newCacheRefresher(gormDB, store)

	// First run observes the current state and flushes nothing new on the
	// second run because nothing changed.
	refresh()
	store.Set("key", "value", time.Minute)
	refresh()
	if _, found := store.Get("key"); !found {
		t.Fatal("cache flushed with no data change")
	}

	// Advance the fleet and expect a flush.
	time.Sleep(1100 * time.Millisecond) // make the new row's timestamp strictly later
	name := "Car 100"
	car := models.TrainCar{CarID: 100, Name: &name, Status: models.StatusInService}
	if err := gormDB.Create(&car).Error; err != nil {
		t.Fatalf("insert: %v", err)
	}
	refresh()
	if _, found := store.Get("key"); found {
		t.Error("cache not flushed after data change")
	}
}

func TestSSE_SendsConnected(t *testing.T) {
	router := testRouter(t, openFleet(t))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
		t.Errorf("content-type = %q, want text/event-stream", ct)
	}
	if !strings.Contains(w.Body.String(), "connected") {
		t.Errorf("body = %q, want connected event", w.Body.String())
	}
}

func TestStart_NilDB(t *testing.T) {
	err := Start(context.Background(), StartOpts{DB: nil})
	if err == nil {
		t.Fatal("expected error for nil db")
	}
	if !strings.Contains(err.Error(), "db is required") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "db is required")
	}
}

func TestEmbeddedAssets(t *testing.T) {
	for _, name := range []string{"assets/index.html", "assets/style.css", "assets/app.js"} {
		data, err := assetsFS.ReadFile(name)
		if err != nil {
			t.Fatalf("%s not embedded: %v", name, err)
		}
		if len(data) == 0 {
			t.Errorf("%s is empty", name)
		}
	}

	page, _ := assetsFS.ReadFile("assets/index.html")
	if !strings.Contains(string(page), "Fleetboard") {
		t.Error("index.html does not contain 'Fleetboard'")
	}
}
