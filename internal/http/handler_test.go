// README: Handler tests for request validation and routing.
package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"banquet/internal/config"
	httptransport "banquet/internal/http"
	"banquet/internal/modules/booking"
	"banquet/internal/modules/escalation"
	"banquet/internal/modules/negotiation"
)

// buildTestRouter wires the router with empty services. All checks exercised
// here fail validation before any service method is called.
func buildTestRouter() http.Handler {
	gin.SetMode(gin.TestMode)
	bookingSvc := booking.NewService(nil, nil, nil, nil, nil, nil, nil, nil, nil, config.BandPolicyManual)
	negotiationSvc := negotiation.NewService(nil, nil, nil, config.NegotiationConfig{})
	return httptransport.NewRouter(bookingSvc, negotiationSvc, escalation.NewPgQueue(nil))
}

func doRequest(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r := buildTestRouter()
	w := doRequest(r, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestEvaluate_InvalidJSON(t *testing.T) {
	r := buildTestRouter()
	req := httptest.NewRequest(http.MethodPost, "/api/bookings/evaluate", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestEvaluate_MissingFields(t *testing.T) {
	r := buildTestRouter()
	w := doRequest(r, http.MethodPost, "/api/bookings/evaluate", map[string]any{
		"customer_id": "cust1",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestEvaluate_BadDate(t *testing.T) {
	r := buildTestRouter()
	w := doRequest(r, http.MethodPost, "/api/bookings/evaluate", map[string]any{
		"customer_id":    "cust1",
		"address":        "1 Banquet Rd",
		"date":           "10/04/2026",
		"anchor_minutes": 1080,
		"guests":         12,
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestRespond_UnknownAction(t *testing.T) {
	r := buildTestRouter()
	w := doRequest(r, http.MethodPost, "/api/negotiations/neg1/respond", map[string]any{
		"action": "maybe",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}
