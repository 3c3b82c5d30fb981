package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/crypto-node/cryptonode/internal/bandwidth"
	"github.com/crypto-node/cryptonode/internal/config"
	"github.com/crypto-node/cryptonode/internal/ledger"
	"github.com/crypto-node/cryptonode/internal/logging"
)

func newTestServer(t *testing.T) (*Server, *ledger.MemoryStore) {
	t.Helper()
	store := ledger.NewMemory()
	monitor, err := bandwidth.NewMonitor(bandwidth.Config{
		Logger: logging.Discard(),
		Store:  store,
	})
	if err != nil {
		t.Fatalf("build monitor: %v", err)
	}
	t.Cleanup(monitor.Close)

	srv, err := New(config.Config{AppName: "test"}, store, monitor, nil, logging.Discard())
	if err != nil {
		t.Fatalf("build server: %v", err)
	}
	return srv, store
}

func postJSON(t *testing.T, app *fiber.App, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	raw, _ := io.ReadAll(resp.Body)
	var payload map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		if err := json.Unmarshal(raw, &payload); err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
	}
	return resp.StatusCode, payload
}

func TestWalletLifecycleOverHTTP(t *testing.T) {
	srv, _ := newTestServer(t)
	app := srv.App()

	status, wallet := postJSON(t, app, "/api/v1/wallets", `{"currency":"BTC"}`)
	if status != fiber.StatusCreated {
		t.Fatalf("create wallet: status %d", status)
	}
	if wallet["balance"].(float64) != 0 {
		t.Fatalf("expected zero balance, got %v", wallet["balance"])
	}
	if _, leaked := wallet["PrivateKey"]; leaked {
		t.Fatalf("private key serialized in response")
	}
	walletID := wallet["id"].(string)

	req := httptest.NewRequest(fiber.MethodGet, "/api/v1/wallets/"+walletID, nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("get wallet: status %d", resp.StatusCode)
	}

	req = httptest.NewRequest(fiber.MethodDelete, "/api/v1/wallets/"+walletID, nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("delete wallet: %v", err)
	}
	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("delete wallet: status %d", resp.StatusCode)
	}

	resp, _ = app.Test(httptest.NewRequest(fiber.MethodGet, "/api/v1/wallets/"+walletID, nil))
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", resp.StatusCode)
	}
}

func TestTransactionFlowOverHTTP(t *testing.T) {
	srv, store := newTestServer(t)
	app := srv.App()

	status, wallet := postJSON(t, app, "/api/v1/wallets", `{"currency":"ETH"}`)
	if status != fiber.StatusCreated {
		t.Fatalf("create wallet: status %d", status)
	}
	walletID := wallet["id"].(string)
	address := wallet["address"].(string)

	// Insufficient balance is rejected at creation.
	status, _ = postJSON(t, app, "/api/v1/transactions",
		fmt.Sprintf(`{"from_wallet_id":%q,"to_address":"dest","amount":1}`, walletID))
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for insufficient balance, got %d", status)
	}

	id, err := uuid.Parse(walletID)
	if err != nil {
		t.Fatalf("parse wallet id: %v", err)
	}
	ledger.SeedBalance(store, id, 10)

	status, tx := postJSON(t, app, "/api/v1/transactions",
		fmt.Sprintf(`{"from_wallet_id":%q,"to_address":"dest","amount":1}`, walletID))
	if status != fiber.StatusCreated {
		t.Fatalf("create transaction: status %d", status)
	}
	if tx["status"].(string) != "pending" {
		t.Fatalf("expected pending, got %v", tx["status"])
	}

	req := httptest.NewRequest(fiber.MethodPatch, "/api/v1/transactions/"+tx["id"].(string)+"/status",
		strings.NewReader(`{"status":"confirmed"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("confirm: status %d", resp.StatusCode)
	}

	resp, _ = app.Test(httptest.NewRequest(fiber.MethodGet, "/api/v1/addresses/"+address+"/transactions", nil))
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("history: status %d", resp.StatusCode)
	}
	raw, _ := io.ReadAll(resp.Body)
	var history map[string][]map[string]any
	if err := json.Unmarshal(raw, &history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(history["transactions"]) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(history["transactions"]))
	}
}

func TestBandwidthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	app := srv.App()

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/api/v1/bandwidth/metrics", nil))
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("metrics: status %d", resp.StatusCode)
	}

	req := httptest.NewRequest(fiber.MethodPut, "/api/v1/bandwidth/reward-rate", strings.NewReader(`{"rate":-1}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("reward-rate: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for negative rate, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest(fiber.MethodPut, "/api/v1/bandwidth/min-bandwidth", strings.NewReader(`{"bytes":0}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("min-bandwidth: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for zero threshold, got %d", resp.StatusCode)
	}

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/healthz", nil))
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("healthz: status %d", resp.StatusCode)
	}
}
