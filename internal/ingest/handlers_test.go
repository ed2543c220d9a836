package ingest

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/ticktrace/ticktrace/internal/txlog"
	"github.com/ticktrace/ticktrace/internal/wallet"
)

func newTestRouter() (*gin.Engine, *Service) {
	gin.SetMode(gin.TestMode)
	svc := NewService(txlog.NewMemoryStore(), wallet.NewMemoryStore(), slog.Default())
	r := gin.New()
	api := r.Group("/api")
	NewHandler(svc).RegisterRoutes(api)
	return r, svc
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var decoded map[string]any
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("%s %s: invalid JSON response: %v", method, path, err)
		}
	}
	return w, decoded
}

func TestPostTransaction(t *testing.T) {
	r, _ := newTestRouter()

	w, resp := doJSON(t, r, "POST", "/api/transactions",
		`{"amount": 250000, "source": "0xA1B2", "dest": "0xC3D4", "tick": 12045, "procedure": "QxAddToBidOrder"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if resp["status"] != "ok" {
		t.Errorf("status field = %v", resp["status"])
	}
	tx := resp["transaction"].(map[string]any)
	if tx["riskScore"].(float64) != 60 || tx["riskLevel"] != "MEDIUM" {
		t.Errorf("transaction = %v", tx)
	}
	if tx["id"].(float64) != 1 {
		t.Errorf("id = %v", tx["id"])
	}
	if _, ok := tx["reasons"].([]any); !ok {
		t.Errorf("reasons should be an array, got %T", tx["reasons"])
	}
}

func TestPostTransactionEnvelope(t *testing.T) {
	r, _ := newTestRouter()

	w, resp := doJSON(t, r, "POST", "/api/transactions", `{"data": {"amount": 50, "source": "A", "dest": "B"}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	tx := resp["transaction"].(map[string]any)
	if tx["amount"].(float64) != 50 || tx["source"] != "A" {
		t.Errorf("transaction = %v", tx)
	}
}

func TestPostTransactionMalformedJSON(t *testing.T) {
	r, svc := newTestRouter()

	w, _ := doJSON(t, r, "POST", "/api/transactions", `{"amount": `)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}

	// A rejected request must leave no trace in the log.
	if tx, _ := svc.Latest(t.Context()); tx != nil {
		t.Errorf("rejected request was recorded: %v", tx)
	}
}

func TestListTransactionsFilters(t *testing.T) {
	r, _ := newTestRouter()

	for _, body := range []string{
		`{"amount": 100, "source": "A", "dest": "B"}`,
		`{"amount": 250000, "source": "C", "dest": "D", "procedure": "QxAddToBidOrder"}`,
		`{"amount": 300000, "source": "E", "dest": "F", "procedure": "QxAddToBidOrder"}`,
	} {
		if w, _ := doJSON(t, r, "POST", "/api/transactions", body); w.Code != http.StatusOK {
			t.Fatalf("seed failed: %d", w.Code)
		}
	}

	w, resp := doJSON(t, r, "GET", "/api/transactions?level=medium", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if resp["count"].(float64) != 2 {
		t.Errorf("medium count = %v", resp["count"])
	}

	w, resp = doJSON(t, r, "GET", "/api/transactions?limit=1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	txs := resp["transactions"].([]any)
	if len(txs) != 1 || txs[0].(map[string]any)["id"].(float64) != 3 {
		t.Errorf("limited list = %v", txs)
	}

	w, resp = doJSON(t, r, "GET", "/api/transactions?minAmount=200000&maxAmount=260000", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if resp["count"].(float64) != 1 {
		t.Errorf("amount-bounded count = %v", resp["count"])
	}

	w, _ = doJSON(t, r, "GET", "/api/transactions?level=bogus", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("bogus level status = %d, want 400", w.Code)
	}

	w, _ = doJSON(t, r, "GET", "/api/transactions?limit=x", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("bogus limit status = %d, want 400", w.Code)
	}
}

func TestLatestTransaction(t *testing.T) {
	r, _ := newTestRouter()

	w, resp := doJSON(t, r, "GET", "/api/transactions/latest", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if len(resp) != 0 {
		t.Errorf("empty log latest = %v, want {}", resp)
	}

	doJSON(t, r, "POST", "/api/transactions", `{"amount": 1, "source": "A", "dest": "B"}`)
	doJSON(t, r, "POST", "/api/transactions", `{"amount": 2, "source": "A", "dest": "B"}`)

	w, resp = doJSON(t, r, "GET", "/api/transactions/latest", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if resp["id"].(float64) != 2 {
		t.Errorf("latest id = %v", resp["id"])
	}
}

func TestSummaryEndpoint(t *testing.T) {
	r, _ := newTestRouter()

	doJSON(t, r, "POST", "/api/transactions", `{"amount": 100, "source": "A", "dest": "B"}`)
	doJSON(t, r, "POST", "/api/transactions", `{"amount": 250000, "source": "C", "dest": "D", "procedure": "QxAddToBidOrder"}`)

	w, resp := doJSON(t, r, "GET", "/api/summary", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	if resp["totalTransactions"].(float64) != 2 {
		t.Errorf("totalTransactions = %v", resp["totalTransactions"])
	}
	if resp["totalVolume"].(float64) != 250100 {
		t.Errorf("totalVolume = %v", resp["totalVolume"])
	}
	byLevel := resp["byLevel"].(map[string]any)
	for _, key := range []string{"LOW", "MEDIUM", "HIGH", "CRITICAL"} {
		if _, ok := byLevel[key]; !ok {
			t.Errorf("byLevel missing %s: %v", key, byLevel)
		}
	}
	if resp["uniqueWallets"].(float64) != 4 {
		t.Errorf("uniqueWallets = %v", resp["uniqueWallets"])
	}
}

func TestWalletEndpoint(t *testing.T) {
	r, _ := newTestRouter()

	doJSON(t, r, "POST", "/api/transactions", `{"amount": 100, "source": "A", "dest": "B"}`)

	for _, id := range []string{"A", "B"} {
		w, resp := doJSON(t, r, "GET", "/api/wallet/"+id, "")
		if w.Code != http.StatusOK {
			t.Fatalf("wallet %s status = %d", id, w.Code)
		}
		if resp["walletId"] != id {
			t.Errorf("walletId = %v", resp["walletId"])
		}
		if resp["stats"] == nil {
			t.Errorf("wallet %s stats = null", id)
		}
		if len(resp["transactions"].([]any)) != 1 {
			t.Errorf("wallet %s transactions = %v", id, resp["transactions"])
		}
	}

	w, _ := doJSON(t, r, "GET", "/api/wallet/C", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("unseen wallet status = %d, want 404", w.Code)
	}
}
