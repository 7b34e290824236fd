package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newGatewayServer(t *testing.T, tokenRequests *int, initiate http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "key" || pass != "secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		*tokenRequests++
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "test-token",
			"expires_in":   3600,
		})
	})
	if initiate != nil {
		mux.HandleFunc("/mm/api/request/1.0.0/stkpush", initiate)
	}
	mux.HandleFunc("/mm/api/request/1.0.0/status", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(GatewayPaymentStatus{
			PaymentID:      "PAY-1",
			TransactionRef: "KCB_1_abc",
			Status:         "completed",
			Amount:         5000,
		})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestKCBClientInitiate(t *testing.T) {
	var tokenRequests int
	var gotInitiate GatewayInitiateRequest

	server := newGatewayServer(t, &tokenRequests, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("authorization header = %q, want bearer token", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotInitiate); err != nil {
			t.Errorf("decode initiate request: %v", err)
		}
		json.NewEncoder(w).Encode(GatewayInitiateResponse{PaymentID: "PAY-1", Status: "accepted"})
	})

	client := NewKCBClient(server.URL, "key", "secret", "https://example.com/callback", testLogger())

	resp, err := client.Initiate(context.Background(), GatewayInitiateRequest{
		PhoneNumber:      "+254712345678",
		Amount:           5000,
		TransactionRef:   "KCB_1_abc",
		AccountReference: "DEBT-7",
	})
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	if resp.PaymentID != "PAY-1" {
		t.Errorf("payment id = %s, want PAY-1", resp.PaymentID)
	}
	if gotInitiate.AccountReference != "DEBT-7" {
		t.Errorf("account reference = %s, want DEBT-7", gotInitiate.AccountReference)
	}
	// The configured callback fills in when the request carries none.
	if gotInitiate.CallbackURL != "https://example.com/callback" {
		t.Errorf("callback url = %s, want the configured default", gotInitiate.CallbackURL)
	}
}

func TestKCBClientCachesToken(t *testing.T) {
	var tokenRequests int
	server := newGatewayServer(t, &tokenRequests, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(GatewayInitiateResponse{PaymentID: "PAY-1"})
	})

	client := NewKCBClient(server.URL, "key", "secret", "", testLogger())

	for i := 0; i < 3; i++ {
		if _, err := client.Initiate(context.Background(), GatewayInitiateRequest{
			PhoneNumber: "+254712345678", Amount: 100, TransactionRef: "ref",
		}); err != nil {
			t.Fatalf("Initiate %d: %v", i, err)
		}
	}
	if _, err := client.Query(context.Background(), "PAY-1"); err != nil {
		t.Fatalf("Query: %v", err)
	}

	if tokenRequests != 1 {
		t.Errorf("token requests = %d, want 1 (cached afterwards)", tokenRequests)
	}
}

func TestKCBClientQuery(t *testing.T) {
	var tokenRequests int
	server := newGatewayServer(t, &tokenRequests, nil)

	client := NewKCBClient(server.URL, "key", "secret", "", testLogger())

	status, err := client.Query(context.Background(), "PAY-1")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if status.Status != "completed" || status.Amount != 5000 {
		t.Errorf("status = %+v, want completed/5000", status)
	}
}

func TestKCBClientSurfacesGatewayErrors(t *testing.T) {
	var tokenRequests int
	server := newGatewayServer(t, &tokenRequests, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"insufficient funds"}`, http.StatusBadRequest)
	})

	client := NewKCBClient(server.URL, "key", "secret", "", testLogger())

	if _, err := client.Initiate(context.Background(), GatewayInitiateRequest{
		PhoneNumber: "+254712345678", Amount: 100, TransactionRef: "ref",
	}); err == nil {
		t.Error("expected an error for a rejected initiation")
	}

	bad := NewKCBClient(server.URL, "key", "wrong", "", testLogger())
	if _, err := bad.Initiate(context.Background(), GatewayInitiateRequest{
		PhoneNumber: "+254712345678", Amount: 100, TransactionRef: "ref",
	}); err == nil {
		t.Error("expected an error for bad credentials")
	}
}
