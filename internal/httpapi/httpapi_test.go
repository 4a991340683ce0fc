package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/websoft9/portd/internal/registry"
)

func newTestServer(t *testing.T) (*Server, *registry.Registry) {
	t.Helper()
	reg, err := registry.Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { reg.Close() })
	s := New(reg, NewEventBus(), Options{CORSAllowedOrigins: []string{"*"}})
	return s, reg
}

func TestHandleHealthz(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHandleFind_ReturnsClaimedServices(t *testing.T) {
	s, reg := newTestServer(t)
	reg.Claim("app:api:main", registry.ClaimOptions{Port: 4100})

	req := httptest.NewRequest(http.MethodGet, "/services", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var result registry.FindResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if result.Count != 1 {
		t.Errorf("count = %d", result.Count)
	}
}

func TestHandleFind_InvalidPortIsBadRequest(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/services?port=notanumber", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHandleGet_NotFound(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/services/app:api:main", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHandleGet_Found(t *testing.T) {
	s, reg := newTestServer(t)
	reg.Claim("app:api:main", registry.ClaimOptions{Port: 4200})

	req := httptest.NewRequest(http.MethodGet, "/services/app:api:main", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestEventBus_BroadcastsToSubscriber(t *testing.T) {
	bus := NewEventBus()
	ch, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	bus.Notify(registry.Event{Kind: registry.EventClaim, ID: "app:api:main", Port: 4100})

	select {
	case data := <-ch:
		var e registry.Event
		if err := json.Unmarshal(data, &e); err != nil {
			t.Fatal(err)
		}
		if e.ID != "app:api:main" || e.Port != 4100 {
			t.Errorf("event = %+v", e)
		}
	default:
		t.Fatal("expected an event to be buffered for the subscriber")
	}
}
