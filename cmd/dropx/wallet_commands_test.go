package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/urfave/cli/v2"
)

// runCommand executes the app with stdout captured.
func runCommand(t *testing.T, args []string) (string, error) {
	t.Helper()

	// Unset environment variables that might interfere
	os.Unsetenv("DROPX_SERVER_URL")
	os.Unsetenv("SERVER_URL")

	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	app := &cli.App{
		Commands: []*cli.Command{
			{
				Name: "wallet",
				Subcommands: []*cli.Command{
					statusCommand(),
					balanceCommand(),
					tokensCommand(),
					historyCommand(),
				},
			},
			airdropCommand(),
			sendCommand(),
			sendTokenCommand(),
			networkCommand(),
			operationsCommand(),
		},
	}

	err := app.Run(args)

	w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	buf.ReadFrom(r)
	return buf.String(), err
}

func TestBalanceCommand(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "GET" || r.URL.Path != "/api/v1/balance" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"balance": "5.00"})
	}))
	defer server.Close()

	output, err := runCommand(t, []string{"test", "wallet", "balance", "--server", server.URL})
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}

	if !bytes.Contains([]byte(output), []byte("5.00 SOL")) {
		t.Errorf("expected balance in output, got: %s", output)
	}
}

func TestBalanceCommand_Refresh(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("refresh") != "true" {
			t.Errorf("expected refresh=true, got query: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"balance": "1.23"})
	}))
	defer server.Close()

	output, err := runCommand(t, []string{"test", "wallet", "balance", "--server", server.URL, "--refresh"})
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}

	if !bytes.Contains([]byte(output), []byte("1.23")) {
		t.Errorf("expected refreshed balance in output, got: %s", output)
	}
}

func TestStatusCommand_JSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/wallet" {
			t.Errorf("unexpected path: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"account": "wallet-abc",
			"network": "devnet",
			"busy":    false,
		})
	}))
	defer server.Close()

	output, err := runCommand(t, []string{"test", "wallet", "status", "--server", server.URL, "--json"})
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal([]byte(output), &result); err != nil {
		t.Fatalf("expected JSON output, got: %s", output)
	}
	if result["account"] != "wallet-abc" {
		t.Errorf("expected account=wallet-abc, got: %v", result["account"])
	}
	if result["network"] != "devnet" {
		t.Errorf("expected network=devnet, got: %v", result["network"])
	}
}

func TestTokensCommand_EmptyJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"tokens": []interface{}{}})
	}))
	defer server.Close()

	output, err := runCommand(t, []string{"test", "wallet", "tokens", "--server", server.URL})
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}

	// Should output a JSON array by default, even for empty inventories
	var holdings []map[string]interface{}
	if err := json.Unmarshal([]byte(output), &holdings); err != nil {
		t.Fatalf("expected JSON array output, got: %s", output)
	}
	if len(holdings) != 0 {
		t.Errorf("expected 0 holdings, got: %d", len(holdings))
	}
}

func TestAirdropCommand(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/api/v1/airdrop" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}

		var req struct {
			Amount string `json:"amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.Amount != "2" {
			t.Errorf("unexpected amount: %s", req.Amount)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"kind":      "airdrop",
			"outcome":   "confirmed",
			"signature": "sig-airdrop",
			"attempts":  1,
		})
	}))
	defer server.Close()

	output, err := runCommand(t, []string{"test", "airdrop", "--server", server.URL, "2"})
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}

	if !bytes.Contains([]byte(output), []byte("✓ Airdropped 2 SOL")) {
		t.Errorf("expected success message, got: %s", output)
	}
	if !bytes.Contains([]byte(output), []byte("sig-airdrop")) {
		t.Errorf("expected signature in output, got: %s", output)
	}
}

func TestAirdropCommand_ValidationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": "please enter a valid amount (0-10)",
			"clear": "amount",
		})
	}))
	defer server.Close()

	_, err := runCommand(t, []string{"test", "airdrop", "--server", server.URL, "99"})
	if err == nil {
		t.Fatal("expected error for rejected airdrop")
	}
	if !bytes.Contains([]byte(err.Error()), []byte("please enter a valid amount")) {
		t.Errorf("expected validation message in error, got: %v", err)
	}
}

func TestSendCommand(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/transfers/sol" {
			t.Errorf("unexpected path: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}

		var req struct {
			Recipient string `json:"recipient"`
			Amount    string `json:"amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.Recipient != "recipient-xyz" || req.Amount != "1.5" {
			t.Errorf("unexpected request body: %+v", req)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"kind":      "transfer_sol",
			"outcome":   "confirmed",
			"signature": "sig-transfer",
			"attempts":  2,
		})
	}))
	defer server.Close()

	output, err := runCommand(t, []string{"test", "send", "--server", server.URL, "recipient-xyz", "1.5"})
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}

	if !bytes.Contains([]byte(output), []byte("✓ Sent 1.5 SOL to recipient-xyz")) {
		t.Errorf("expected success message, got: %s", output)
	}
}

func TestSendTokenCommand_InvalidID(t *testing.T) {
	_, err := runCommand(t, []string{"test", "send-token", "--server", "http://localhost:1", "abc", "recipient", "1"})
	if err == nil {
		t.Fatal("expected error for non-numeric token id")
	}
	if !bytes.Contains([]byte(err.Error()), []byte("invalid token id")) {
		t.Errorf("expected invalid token id error, got: %v", err)
	}
}

func TestNetworkCommand_Switch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "PUT" || r.URL.Path != "/api/v1/network" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}

		var req struct {
			Network string `json:"network"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.Network != "mainnet-beta" {
			t.Errorf("unexpected network: %s", req.Network)
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"network": req.Network})
	}))
	defer server.Close()

	output, err := runCommand(t, []string{"test", "network", "--server", server.URL, "mainnet-beta"})
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}

	if !bytes.Contains([]byte(output), []byte("✓ Switched to mainnet-beta")) {
		t.Errorf("expected switch confirmation, got: %s", output)
	}
}

func TestNetworkCommand_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "GET" {
			t.Errorf("expected GET, got: %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"network": "devnet"})
	}))
	defer server.Close()

	output, err := runCommand(t, []string{"test", "network", "--server", server.URL})
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}

	if !bytes.Contains([]byte(output), []byte("devnet")) {
		t.Errorf("expected network in output, got: %s", output)
	}
}
