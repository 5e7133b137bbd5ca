package healthprobe

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthAlwaysOK(t *testing.T) {
	hc := New()

	for _, ready := range []bool{false, true} {
		hc.SetReady(ready)

		req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
		w := httptest.NewRecorder()
		hc.Health()(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Health status = %d, want %d (ready=%v)", w.Code, http.StatusOK, ready)
		}

		var resp HealthResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("Failed to decode health response: %v", err)
		}
		if resp.Status != "healthy" {
			t.Errorf("Status = %s, want healthy", resp.Status)
		}
		if resp.Uptime == "" {
			t.Error("Uptime is empty")
		}
	}
}

func TestReadyFollowsState(t *testing.T) {
	hc := New()
	handler := hc.Ready()

	// Not ready until the engine flips the flag.
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	w := httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Initial ready status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}

	var resp HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode ready response: %v", err)
	}
	if resp.Status != "not_ready" {
		t.Errorf("Status = %s, want not_ready", resp.Status)
	}
	if resp.Message == "" {
		t.Error("Message is empty for not_ready state")
	}

	hc.SetReady(true)
	w = httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Ready status after SetReady(true) = %d, want %d", w.Code, http.StatusOK)
	}

	hc.SetReady(false)
	w = httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Ready status after SetReady(false) = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}
