package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/rl1809/voice-inventory/internal/adapter/storage"
	"github.com/rl1809/voice-inventory/internal/core/domain"
	"github.com/rl1809/voice-inventory/internal/core/parser"
	"github.com/rl1809/voice-inventory/internal/core/service"
)

type testServer struct {
	router *gin.Engine
	svc    *service.CommandService
	store  *storage.MemoryAdapter
	ledger *service.Ledger
	wg     sync.WaitGroup
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := storage.NewMemoryAdapter()
	ledger := service.NewLedger(100, nil)
	svc := service.NewCommandService(
		parser.New(nil, nil, nil, nil),
		service.NewInventoryResolver(store, storage.NewKeyedLocker(), nil),
		service.Options{Ledger: ledger, Cache: store, History: store},
	)

	ts := &testServer{svc: svc, store: store, ledger: ledger}
	ts.router = NewRouter(NewHTTPHandler(svc, nil))
	ts.wg.Add(1)
	go func() {
		defer ts.wg.Done()
		ledger.Run(context.Background(), 0, store)
	}()
	t.Cleanup(ts.flush)
	return ts
}

// flush stops the ledger worker after it has persisted everything queued.
func (ts *testServer) flush() {
	ts.ledger.Close()
	ts.wg.Wait()
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestRequestIDIsEchoed(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
}

func TestVoiceCommandStatuses(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"add", VoiceCommandHTTPRequest{Text: "add 5 kg tomato at ₹50", Language: "en"}, http.StatusOK},
		{"incomplete", VoiceCommandHTTPRequest{Text: "Add tomato 2 kg"}, http.StatusUnprocessableEntity},
		{"unknown", VoiceCommandHTTPRequest{Text: "what is going on"}, http.StatusBadRequest},
		{"not found", VoiceCommandHTTPRequest{Text: "delete mango"}, http.StatusNotFound},
		{"missing text", VoiceCommandHTTPRequest{Language: "en"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, "/api/voice-command", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestVoiceCommandResponseShape(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/voice-command", VoiceCommandHTTPRequest{Text: "Add tomato 2 kg"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decode[service.CommandResponse](t, w)
	assert.False(t, resp.Success)
	assert.Equal(t, "incomplete", resp.Action)
	assert.Equal(t, "tomato", resp.ProductName)
	assert.Equal(t, []string{"price"}, resp.Missing)

	w = ts.do(t, http.MethodPost, "/api/voice-command", VoiceCommandHTTPRequest{Text: "Orange ₹50"})
	require.Equal(t, http.StatusOK, w.Code)
	resp = decode[service.CommandResponse](t, w)
	assert.True(t, resp.Success)
	assert.Equal(t, service.OutcomeCreated, resp.Outcome)
	require.NotNil(t, resp.Quantity)
	assert.Equal(t, 1.0, *resp.Quantity)
	assert.InDelta(t, 0.8, resp.Confidence, 1e-9)
	require.NotNil(t, resp.Item)
	assert.True(t, resp.Item.LowStock)
}

func TestVoiceCommandDuplicate(t *testing.T) {
	ts := newTestServer(t)
	body := VoiceCommandHTTPRequest{RequestID: "req-42", Text: "add 2 kg rice at ₹60"}

	w := ts.do(t, http.MethodPost, "/api/voice-command", body)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPost, "/api/voice-command", body)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(t, http.MethodGet, "/api/products/rice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2.0, decode[service.ItemView](t, w).QuantityKg)
}

func TestProductEndpoints(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/products", ProductHTTPRequest{Name: "Tomato", Quantity: 5, PricePerKg: 50})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = ts.do(t, http.MethodPost, "/api/products", ProductHTTPRequest{Name: "tomato", Quantity: 3, PricePerKg: 60})
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[service.ProductResult](t, w)
	assert.Equal(t, service.OutcomeMerged, res.Outcome)
	assert.Equal(t, 8.0, res.Item.QuantityKg)
	assert.Equal(t, 53.75, res.Item.PricePerKg)

	w = ts.do(t, http.MethodPost, "/api/products", ProductHTTPRequest{Quantity: 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	price := 40.0
	w = ts.do(t, http.MethodPut, "/api/products/tomato", ProductUpdateHTTPRequest{PricePerKg: &price})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 40.0, decode[service.ProductResult](t, w).Item.PricePerKg)

	w = ts.do(t, http.MethodPut, "/api/products/mango", ProductUpdateHTTPRequest{PricePerKg: &price})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodGet, "/api/products", nil)
	require.Equal(t, http.StatusOK, w.Code)
	inv := decode[service.Inventory](t, w)
	assert.Equal(t, 1, inv.TotalProducts)
	assert.Equal(t, []string{}, inv.LowStockAlerts)

	w = ts.do(t, http.MethodDelete, "/api/products/tomato", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/api/products/tomato", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "product not found", decode[ErrorHTTPResponse](t, w).Message)
}

func TestExportProducts(t *testing.T) {
	ts := newTestServer(t)
	for _, text := range []string{"add 5 kg tomato at ₹50", "add 1 kg onion at ₹30"} {
		w := ts.do(t, http.MethodPost, "/api/voice-command", VoiceCommandHTTPRequest{Text: text})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := ts.do(t, http.MethodGet, "/api/products/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "inventory.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(inventorySheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, exportHeaders[0], rows[0][0])
	assert.Equal(t, "onion", rows[1][0])
	assert.Equal(t, "tomato", rows[2][0])
}

func TestListTransactions(t *testing.T) {
	ts := newTestServer(t)
	for i := 1; i <= 3; i++ {
		text := fmt.Sprintf("add %d kg tomato at ₹50", i)
		w := ts.do(t, http.MethodPost, "/api/voice-command", VoiceCommandHTTPRequest{Text: text})
		require.Equal(t, http.StatusOK, w.Code)
	}
	ts.flush()

	w := ts.do(t, http.MethodGet, "/api/transactions?limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Transactions []service.TransactionView `json:"transactions"`
		Count        int                       `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, string(domain.TransactionMerge), body.Transactions[0].Type)
	assert.Equal(t, 3.0, body.Transactions[0].QuantityChange)

	w = ts.do(t, http.MethodGet, "/api/transactions?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
