// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"ferm/internal/authz"
	"ferm/internal/config"
	"ferm/internal/database"
	"ferm/internal/eventprocessor"
	"ferm/internal/garden"
	"ferm/internal/models"
	"ferm/internal/planting"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeSubmitter struct {
	mu    sync.Mutex
	calls []garden.PlantInput
	err   error
}

func (f *fakeSubmitter) Submit(_ context.Context, in garden.PlantInput) (*planting.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.calls = append(f.calls, in)
	return &planting.Receipt{Accepted: true, RequestID: uuid.NewString()}, nil
}

type fakeDrainer struct {
	limit   int
	timeout time.Duration
	result  eventprocessor.DrainResult
	err     error
}

func (f *fakeDrainer) Drain(_ context.Context, limit int, timeout time.Duration) (eventprocessor.DrainResult, error) {
	f.limit, f.timeout = limit, timeout
	return f.result, f.err
}

type fakeBroker struct{ status eventprocessor.Status }

func (f fakeBroker) Status(context.Context) eventprocessor.Status { return f.status }

type testEnv struct {
	server    *httptest.Server
	svc       *garden.Service
	clock     *testClock
	submitter *fakeSubmitter
	verifier  *authz.Verifier
}

type envOptions struct {
	drainer NotificationDrainer
	broker  BrokerStatus
	chi     *ChiMiddlewareConfig
}

func newTestEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()
	db, err := database.Open(context.Background(), &config.DatabaseConfig{
		Path:            filepath.Join(t.TempDir(), "api.db"),
		ConnectAttempts: 1,
		BusyTimeout:     5 * time.Second,
	})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	clock := &testClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	svc := garden.NewService(db, config.GardenConfig{Slots: 6, GrowthMinutes: 10}, garden.WithClock(clock.Now))

	verifier, err := authz.NewVerifier(testSecret)
	if err != nil {
		t.Fatal(err)
	}
	enforcer, err := authz.NewEnforcer("")
	if err != nil {
		t.Fatal(err)
	}

	submitter := &fakeSubmitter{}
	handler := NewHandler(HandlerDeps{
		Garden:       svc,
		Planter:      submitter,
		Drainer:      opts.drainer,
		DB:           db,
		Broker:       opts.broker,
		Enforcer:     enforcer,
		DrainLimit:   10,
		DrainTimeout: 2 * time.Second,
	})

	chiCfg := opts.chi
	if chiCfg == nil {
		chiCfg = DefaultChiMiddlewareConfig()
		chiCfg.RateLimitDisabled = true
	}
	srv := httptest.NewServer(NewRouter(handler, NewChiMiddleware(chiCfg), verifier, enforcer).Setup())
	t.Cleanup(srv.Close)

	return &testEnv{server: srv, svc: svc, clock: clock, submitter: submitter, verifier: verifier}
}

func (e *testEnv) token(t *testing.T, userID int64, role string) string {
	t.Helper()
	tok, err := e.verifier.Sign(authz.Claims{
		UserID: userID,
		Email:  fmt.Sprintf("user%d@example.com", userID),
		Role:   role,
	}, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

type envelope struct {
	Status   string           `json:"status"`
	Data     json.RawMessage  `json:"data"`
	Metadata models.Metadata  `json:"metadata"`
	Error    *models.APIError `json:"error"`
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("%s %s: decode envelope: %v", method, path, err)
	}
	return resp.StatusCode, env
}

func decodeData(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
}

func TestRouter_Authentication(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	player := env.token(t, 1, authz.RolePlayer)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
		code   string
	}{
		{"no token", http.MethodGet, "/api/garden/plots", "", http.StatusUnauthorized, CodeUnauthorized},
		{"bad token", http.MethodGet, "/api/garden/plots", "nope", http.StatusUnauthorized, CodeUnauthorized},
		{"player on admin route", http.MethodPost, "/api/admin/inventory/seeds", player, http.StatusForbidden, CodeForbidden},
		{"unknown route", http.MethodGet, "/nothing", "", http.StatusNotFound, CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := env.do(t, tt.method, tt.path, tt.token, nil)
			if status != tt.want {
				t.Fatalf("status = %d, want %d", status, tt.want)
			}
			if resp.Status != "error" || resp.Error == nil || resp.Error.Code != tt.code {
				t.Errorf("envelope = %+v, want error code %s", resp, tt.code)
			}
		})
	}
}

func TestListPlots(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	tests := []struct {
		name      string
		token     string
		canUproot bool
	}{
		{"player", env.token(t, 1, authz.RolePlayer), false},
		{"admin", env.token(t, 2, authz.RoleAdmin), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := env.do(t, http.MethodGet, "/api/garden/plots", tt.token, nil)
			if status != http.StatusOK {
				t.Fatalf("status = %d, body %+v", status, resp)
			}
			var got PlotsResponse
			decodeData(t, resp, &got)
			if len(got.Plots) != 6 {
				t.Errorf("len(plots) = %d, want 6", len(got.Plots))
			}
			if got.GrowthMinutes != 10 {
				t.Errorf("growthMinutes = %v, want 10", got.GrowthMinutes)
			}
			if got.CanUproot != tt.canUproot {
				t.Errorf("canUproot = %v, want %v", got.CanUproot, tt.canUproot)
			}
			if resp.Metadata.RequestID == "" {
				t.Error("metadata.requestId is empty")
			}
		})
	}
}

func TestPlant(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	player := env.token(t, 1, authz.RolePlayer)

	status, resp := env.do(t, http.MethodPost, "/api/garden/plant", player,
		models.PlantRequest{Slot: 2, InventoryID: 7})
	if status != http.StatusAccepted {
		t.Fatalf("status = %d, body %+v", status, resp)
	}
	var accepted models.PlantAccepted
	decodeData(t, resp, &accepted)
	if !accepted.Accepted || accepted.RequestID == "" {
		t.Errorf("accepted = %+v", accepted)
	}
	if len(env.submitter.calls) != 1 {
		t.Fatalf("Submit called %d times, want 1", len(env.submitter.calls))
	}
	if got := env.submitter.calls[0]; got.UserID != 1 || got.Slot != 2 || got.InventoryID != 7 {
		t.Errorf("Submit input = %+v", got)
	}
}

func TestPlant_Errors(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	player := env.token(t, 1, authz.RolePlayer)

	tests := []struct {
		name      string
		body      interface{}
		submitErr error
		want      int
		code      string
	}{
		{"empty body", nil, nil, http.StatusBadRequest, CodeValidation},
		{"zero slot", map[string]int{"slot": 0, "inventoryId": 3}, nil, http.StatusBadRequest, CodeValidation},
		{"missing item", map[string]int{"slot": 1}, nil, http.StatusBadRequest, CodeValidation},
		{"broker down", models.PlantRequest{Slot: 1, InventoryID: 3},
			fmt.Errorf("%w: broker unreachable", garden.ErrServiceUnavailable), http.StatusServiceUnavailable, CodeUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.submitter.err = tt.submitErr
			status, resp := env.do(t, http.MethodPost, "/api/garden/plant", player, tt.body)
			if status != tt.want {
				t.Fatalf("status = %d, want %d", status, tt.want)
			}
			if resp.Error == nil || resp.Error.Code != tt.code {
				t.Errorf("error = %+v, want code %s", resp.Error, tt.code)
			}
		})
	}
}

func TestGardenLifecycle(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	player := env.token(t, 1, authz.RolePlayer)
	admin := env.token(t, 2, authz.RoleAdmin)
	ctx := context.Background()

	// First contact creates the player's plots.
	if status, _ := env.do(t, http.MethodGet, "/api/garden/plots", player, nil); status != http.StatusOK {
		t.Fatalf("plots status = %d", status)
	}

	status, resp := env.do(t, http.MethodPost, "/api/admin/inventory/seeds", admin,
		models.SeedGrantRequest{UserID: 1, Type: "Carrot"})
	if status != http.StatusCreated {
		t.Fatalf("grant status = %d, body %+v", status, resp)
	}
	var seed garden.Item
	decodeData(t, resp, &seed)
	if seed.Kind != database.KindSeed || seed.CropType != "carrot" {
		t.Fatalf("seed = %+v", seed)
	}

	if _, err := env.svc.Plant(ctx, garden.PlantInput{UserID: 1, Slot: 3, InventoryID: seed.ID}); err != nil {
		t.Fatalf("Plant() error = %v", err)
	}

	status, resp = env.do(t, http.MethodPost, "/api/garden/harvest", player, models.HarvestRequest{Slot: 3})
	if status != http.StatusConflict {
		t.Fatalf("early harvest status = %d, want 409", status)
	}

	env.clock.Advance(11 * time.Minute)
	status, resp = env.do(t, http.MethodPost, "/api/garden/harvest", player, models.HarvestRequest{Slot: 3})
	if status != http.StatusOK {
		t.Fatalf("harvest status = %d, body %+v", status, resp)
	}
	var harvested garden.HarvestResult
	decodeData(t, resp, &harvested)
	if harvested.Item.Kind != database.KindRawVeg || harvested.Plot.CropType != nil || !harvested.Plot.Harvested {
		t.Fatalf("harvest = %+v", harvested)
	}

	status, resp = env.do(t, http.MethodPost, "/api/inventory/wash", player,
		models.WashRequest{InventoryID: harvested.Item.ID})
	if status != http.StatusOK {
		t.Fatalf("wash status = %d, body %+v", status, resp)
	}

	status, resp = env.do(t, http.MethodGet, "/api/inventory?kind=veg_washed", player, nil)
	if status != http.StatusOK {
		t.Fatalf("inventory status = %d", status)
	}
	var inv struct {
		Items []garden.Item `json:"items"`
	}
	decodeData(t, resp, &inv)
	if len(inv.Items) != 1 || inv.Items[0].CropType != "carrot" {
		t.Errorf("washed items = %+v", inv.Items)
	}
}

func TestUproot(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	admin := env.token(t, 2, authz.RoleAdmin)
	ctx := context.Background()

	if err := env.svc.EnsurePlayer(ctx, 1, "p@example.com"); err != nil {
		t.Fatal(err)
	}
	seed, err := env.svc.GrantSeed(ctx, 1, garden.Radish)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.svc.Plant(ctx, garden.PlantInput{UserID: 1, Slot: 1, InventoryID: seed.ID}); err != nil {
		t.Fatal(err)
	}

	status, resp := env.do(t, http.MethodPost, "/api/admin/garden/uproot", admin, models.UprootRequest{UserID: 1, Slot: 1})
	if status != http.StatusOK {
		t.Fatalf("uproot status = %d, body %+v", status, resp)
	}
	status, _ = env.do(t, http.MethodPost, "/api/admin/garden/uproot", admin, models.UprootRequest{UserID: 1, Slot: 1})
	if status != http.StatusConflict {
		t.Errorf("second uproot status = %d, want 409", status)
	}

	player := env.token(t, 1, authz.RolePlayer)
	status, _ = env.do(t, http.MethodPost, "/api/admin/garden/uproot", player, models.UprootRequest{UserID: 1, Slot: 1})
	if status != http.StatusForbidden {
		t.Errorf("player uproot status = %d, want 403", status)
	}
}

func TestGrantSeed_UnknownCrop(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	admin := env.token(t, 2, authz.RoleAdmin)

	status, resp := env.do(t, http.MethodPost, "/api/admin/inventory/seeds", admin,
		models.SeedGrantRequest{UserID: 2, Type: "durian"})
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
	if resp.Error.Details["field"] != "type" {
		t.Errorf("details = %v", resp.Error.Details)
	}
}

func TestDrainNotifications(t *testing.T) {
	t.Run("broker disabled", func(t *testing.T) {
		env := newTestEnv(t, envOptions{})
		status, resp := env.do(t, http.MethodPost, "/api/admin/maturity/drain", env.token(t, 2, authz.RoleAdmin), nil)
		if status != http.StatusServiceUnavailable || resp.Error.Code != CodeUnavailable {
			t.Errorf("status = %d, error = %+v", status, resp.Error)
		}
	})

	t.Run("defaults", func(t *testing.T) {
		drainer := &fakeDrainer{result: eventprocessor.DrainResult{Processed: 3, Applied: 2, Rejected: 1}}
		env := newTestEnv(t, envOptions{drainer: drainer})
		status, resp := env.do(t, http.MethodPost, "/api/admin/maturity/drain", env.token(t, 2, authz.RoleAdmin), nil)
		if status != http.StatusOK {
			t.Fatalf("status = %d, body %+v", status, resp)
		}
		var got models.DrainResponse
		decodeData(t, resp, &got)
		if got.Delivered != 2 || got.Processed != 3 || got.Rejected != 1 {
			t.Errorf("drain = %+v", got)
		}
		if drainer.limit != 10 || drainer.timeout != 2*time.Second {
			t.Errorf("Drain(limit=%d, timeout=%s), want defaults", drainer.limit, drainer.timeout)
		}
	})

	t.Run("overrides", func(t *testing.T) {
		drainer := &fakeDrainer{}
		env := newTestEnv(t, envOptions{drainer: drainer})
		status, _ := env.do(t, http.MethodPost, "/api/admin/maturity/drain", env.token(t, 2, authz.RoleAdmin),
			models.DrainRequest{Limit: 50, TimeoutMS: 500})
		if status != http.StatusOK {
			t.Fatalf("status = %d", status)
		}
		if drainer.limit != 50 || drainer.timeout != 500*time.Millisecond {
			t.Errorf("Drain(limit=%d, timeout=%s)", drainer.limit, drainer.timeout)
		}
	})
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name   string
		broker BrokerStatus
		want   int
		status string
	}{
		{"no broker", nil, http.StatusOK, "healthy"},
		{"broker connected", fakeBroker{eventprocessor.Status{Enabled: true, Connected: true}}, http.StatusOK, "healthy"},
		{"broker down", fakeBroker{eventprocessor.Status{Enabled: true}}, http.StatusServiceUnavailable, "degraded"},
		{"broker disabled", fakeBroker{eventprocessor.Status{}}, http.StatusOK, "healthy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, envOptions{broker: tt.broker})
			status, resp := env.do(t, http.MethodGet, "/health", "", nil)
			if status != tt.want {
				t.Fatalf("status = %d, want %d", status, tt.want)
			}
			var got models.HealthStatus
			decodeData(t, resp, &got)
			if got.Status != tt.status || got.Database != "ok" {
				t.Errorf("health = %+v", got)
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	cfg := DefaultChiMiddlewareConfig()
	cfg.RateLimitRequests = 1
	cfg.RateLimitWindow = time.Minute
	env := newTestEnv(t, envOptions{chi: cfg})
	player := env.token(t, 1, authz.RolePlayer)

	if status, _ := env.do(t, http.MethodGet, "/api/garden/plots", player, nil); status != http.StatusOK {
		t.Fatalf("first request status = %d", status)
	}
	status, resp := env.do(t, http.MethodGet, "/api/garden/plots", player, nil)
	if status != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", status)
	}
	if resp.Error == nil || resp.Error.Code != CodeRateLimited {
		t.Errorf("error = %+v", resp.Error)
	}
}

func TestDecodeRequest_TooLarge(t *testing.T) {
	body := bytes.Repeat([]byte("a"), maxBodyBytes+10)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	var v models.WashRequest
	if err := decodeRequest(req, &v, false); !garden.IsValidation(err) {
		t.Errorf("decodeRequest() error = %v, want validation", err)
	}
}
