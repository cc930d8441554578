package relay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/0gfoundation/0g-points-relay/internal/errs"
)

func mockServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func writeData(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"code": 0, "data": data})
}

// ── envelope ──────────────────────────────────────────────────────────────────

func TestRemoteError(t *testing.T) {
	srv := mockServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":2001,"data":null,"error":{"message":"Failed to check the validity of parameters."}}`))
	})

	c := NewClient(srv.URL, srv.URL)
	_, err := c.LedgerNonce(context.Background(), "0xabc")
	var re *errs.RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if re.Code != 2001 {
		t.Errorf("Code: got %d want 2001", re.Code)
	}
	if re.Message != "Failed to check the validity of parameters." {
		t.Errorf("Message: got %q", re.Message)
	}
}

func TestTransportError_InvalidEnvelope(t *testing.T) {
	srv := mockServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>bad gateway</html>"))
	})

	c := NewClient(srv.URL, srv.URL)
	_, err := c.ChainID(context.Background())
	var te *errs.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

func TestTransportError_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, url)
	_, err := c.LatestTaskSequence(context.Background())
	var te *errs.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

func TestTransportError_Timeout(t *testing.T) {
	srv := mockServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(500 * time.Millisecond):
		case <-r.Context().Done():
		}
		writeData(w, map[string]any{"nonce": "1"})
	})

	c := NewClient(srv.URL, srv.URL, WithTimeout(50*time.Millisecond))
	_, err := c.LedgerNonce(context.Background(), "0xabc")
	var te *errs.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

// ── chain / nonce ─────────────────────────────────────────────────────────────

func TestChainID_Cached(t *testing.T) {
	var hits atomic.Int32
	srv := mockServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/v1/chain/side/id" {
			t.Errorf("path: got %q", r.URL.Path)
		}
		writeData(w, map[string]any{"chainId": 215115})
	})

	c := NewClient(srv.URL, srv.URL)
	for i := 0; i < 3; i++ {
		id, err := c.ChainID(context.Background())
		if err != nil {
			t.Fatalf("ChainID: %v", err)
		}
		if id.Int64() != 215115 {
			t.Errorf("ChainID: got %s", id)
		}
	}
	if hits.Load() != 1 {
		t.Errorf("chain id should be fetched once, got %d requests", hits.Load())
	}
}

func TestNonce_PathAndStringValue(t *testing.T) {
	var gotPath string
	srv := mockServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		writeData(w, map[string]any{"nonce": "42"})
	})

	c := NewClient(srv.URL, srv.URL)
	n, err := c.ShopNonce(context.Background(), "  0x64D111eA9763c93a003cef491941A011B8df5a49 ")
	if err != nil {
		t.Fatalf("ShopNonce: %v", err)
	}
	if n.Int64() != 42 {
		t.Errorf("nonce: got %s want 42", n)
	}
	if gotPath != "/v1/shop/nonce/0x64D111eA9763c93a003cef491941A011B8df5a49" {
		t.Errorf("path: got %q", gotPath)
	}
}

func TestBalanceOfAccount(t *testing.T) {
	srv := mockServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeData(w, map[string]any{
			"point": map[string]string{"balance": "1000000000000000000000", "value": "1000"},
			"token": map[string]string{"balance": "0", "value": "0"},
		})
	})

	c := NewClient(srv.URL, srv.URL)
	b, err := c.BalanceOfAccount(context.Background(), "0xabc")
	if err != nil {
		t.Fatalf("BalanceOfAccount: %v", err)
	}
	if b.Point.Balance.String() != "1000000000000000000000" {
		t.Errorf("point balance: got %s", b.Point.Balance.String())
	}
}

// ── payment ───────────────────────────────────────────────────────────────────

func TestOpenNewPayment_Body(t *testing.T) {
	var got map[string]any
	srv := mockServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v2/payment/new/open" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type: got %q", ct)
		}
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &got)
		writeData(w, map[string]any{
			"paymentId":     "0x01",
			"purchaseId":    "P0001",
			"amount":        "1000000000000000000000",
			"paymentStatus": 11,
		})
	})

	c := NewClient(srv.URL, srv.URL)
	item, err := c.OpenNewPayment(context.Background(), OpenNewPaymentRequest{
		PurchaseID: "P0001",
		Amount:     "1000000000000000000000",
		Currency:   "php",
		ShopID:     "0xshop",
		Account:    "0xacc",
		TerminalID: "POS001",
		Signature:  "0xsig",
	})
	if err != nil {
		t.Fatalf("OpenNewPayment: %v", err)
	}
	if item.PurchaseID != "P0001" || item.PaymentStatus != 11 {
		t.Errorf("item: %+v", item)
	}
	if got["amount"] != "1000000000000000000000" {
		t.Errorf("amount must cross the wire as a decimal string, got %#v", got["amount"])
	}
	if got["terminalId"] != "POS001" || got["signature"] != "0xsig" {
		t.Errorf("body: %v", got)
	}
}

func TestPaymentItem_Query(t *testing.T) {
	srv := mockServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/payment/item" {
			t.Errorf("path: got %q", r.URL.Path)
		}
		writeData(w, map[string]any{"paymentId": r.URL.Query().Get("paymentId"), "paymentStatus": 18})
	})

	c := NewClient(srv.URL, srv.URL)
	item, err := c.PaymentItem(context.Background(), "0xpay")
	if err != nil {
		t.Fatalf("PaymentItem: %v", err)
	}
	if item.PaymentID != "0xpay" {
		t.Errorf("paymentId query not sent: %q", item.PaymentID)
	}
}

// ── tasks ─────────────────────────────────────────────────────────────────────

func TestTasks_DecodeByType(t *testing.T) {
	srv := mockServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/task/list/10" {
			t.Errorf("path: got %q", r.URL.Path)
		}
		w.Write([]byte(`{"code":0,"data":[
			{"sequence":"11","type":"pay_new","code":0,"message":"Success",
			 "data":{"paymentId":"0xp1","purchaseId":"P1","amount":"5","paymentStatus":11}},
			{"sequence":12,"type":"shop_update","code":0,"message":"Success",
			 "data":{"taskId":"0xt1","shopId":"0xs1","name":"Shop","status":1,"taskStatus":3}},
			{"sequence":13,"type":"pay_cancel","code":0,"message":"Success"}
		]}`))
	})

	c := NewClient(srv.URL, srv.URL)
	tasks, err := c.Tasks(context.Background(), 10)
	if err != nil {
		t.Fatalf("Tasks: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("len: got %d want 3", len(tasks))
	}
	if tasks[0].Sequence != 11 || tasks[0].Payment == nil || tasks[0].Payment.PaymentID != "0xp1" {
		t.Errorf("task 0: %+v", tasks[0])
	}
	if tasks[0].Payment.Amount.Int64() != 5 {
		t.Errorf("amount: got %s", tasks[0].Payment.Amount.String())
	}
	if tasks[1].Shop == nil || tasks[1].Shop.TaskID != "0xt1" || tasks[1].Payment != nil {
		t.Errorf("task 1: %+v", tasks[1])
	}
	if tasks[2].Payment != nil || tasks[2].Shop != nil {
		t.Errorf("task 2 has no payload: %+v", tasks[2])
	}
}

func TestTasks_Empty(t *testing.T) {
	srv := mockServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeData(w, []any{})
	})

	c := NewClient(srv.URL, srv.URL)
	tasks, err := c.Tasks(context.Background(), 0)
	if err != nil {
		t.Fatalf("Tasks: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("expected no tasks, got %d", len(tasks))
	}
}

func TestLatestTaskSequence(t *testing.T) {
	srv := mockServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeData(w, map[string]any{"sequence": "98765"})
	})

	c := NewClient(srv.URL, srv.URL)
	seq, err := c.LatestTaskSequence(context.Background())
	if err != nil {
		t.Fatalf("LatestTaskSequence: %v", err)
	}
	if seq != 98765 {
		t.Errorf("got %d want 98765", seq)
	}
}

// ── save server / settlement ──────────────────────────────────────────────────

func TestSaveNewPurchase_UsesSaveURL(t *testing.T) {
	relay := mockServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("relay should not be called: %s", r.URL.Path)
	})
	var gotPath string
	save := mockServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		writeData(w, map[string]any{"tx": "ok"})
	})

	c := NewClient(relay.URL, save.URL)
	if err := c.SaveNewPurchase(context.Background(), SaveNewPurchaseRequest{}); err != nil {
		t.Fatalf("SaveNewPurchase: %v", err)
	}
	if gotPath != "/v2/tx/purchase/new" {
		t.Errorf("path: got %q", gotPath)
	}
}

func TestSettlementClientList_Query(t *testing.T) {
	srv := mockServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("startIndex") != "0" || q.Get("endIndex") != "2" {
			t.Errorf("query: %v", q)
		}
		writeData(w, map[string]any{"clients": []string{"0xa", "0xb"}})
	})

	c := NewClient(srv.URL, srv.URL)
	clients, err := c.SettlementClientList(context.Background(), "0xshop", 0, 2)
	if err != nil {
		t.Fatalf("SettlementClientList: %v", err)
	}
	if len(clients) != 2 {
		t.Errorf("clients: got %v", clients)
	}
}

func TestRefund_TxHash(t *testing.T) {
	srv := mockServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeData(w, map[string]any{"txHash": "0xhash"})
	})

	c := NewClient(srv.URL, srv.URL, WithRateLimit(100))
	h, err := c.Refund(context.Background(), RefundRequest{ShopID: "0xs", Amount: "1"})
	if err != nil {
		t.Fatalf("Refund: %v", err)
	}
	if h != "0xhash" {
		t.Errorf("txHash: got %q", h)
	}
}

func TestRateLimit_ContextCancelled(t *testing.T) {
	srv := mockServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeData(w, map[string]any{"enable": true})
	})

	c := NewClient(srv.URL, srv.URL, WithRateLimit(0.001))
	// first request consumes the only token
	if _, err := c.IsProvider(context.Background(), "0xa"); err != nil {
		t.Fatalf("IsProvider: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.IsProvider(ctx, "0xa")
	var te *errs.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError from limiter, got %v", err)
	}
}
