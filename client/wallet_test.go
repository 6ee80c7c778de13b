package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dropxhq/dropx/service/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/api/v1/wallet", r.URL.Path)

		json.NewEncoder(w).Encode(map[string]any{
			"account": "wallet123",
			"network": "devnet",
			"busy":    false,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	status, err := client.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "wallet123", status.Account)
	assert.Equal(t, "devnet", status.Network)
	assert.False(t, status.Busy)
}

func TestBalance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/balance", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("refresh"))

		json.NewEncoder(w).Encode(map[string]string{"balance": "5.00", "network": "devnet"})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	balance, err := client.Balance(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, "5.00", balance)
}

func TestTokens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/tokens", r.URL.Path)
		assert.Empty(t, r.URL.Query().Get("refresh"))

		json.NewEncoder(w).Encode(map[string]any{
			"tokens": []wallet.TokenHolding{
				{ID: 0, Mint: "mint-a", Balance: "1.50", Name: "Test Token", Symbol: "TST"},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	tokens, err := client.Tokens(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, "mint-a", tokens[0].Mint)
	assert.Equal(t, "TST", tokens[0].Symbol)
}

func TestAirdrop_Confirmed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/api/v1/airdrop", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "2", body["amount"])

		json.NewEncoder(w).Encode(wallet.Receipt{
			Kind:      wallet.OpAirdrop,
			Outcome:   "confirmed",
			Signature: "sig",
			Attempts:  1,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	rcpt, err := client.Airdrop(context.Background(), "2")
	require.NoError(t, err)
	assert.Equal(t, "confirmed", rcpt.Outcome)
	assert.Equal(t, "sig", rcpt.Signature)
}

func TestSendSOL_ValidationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "invalid recipient address",
			"clear": "recipient",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	_, err := client.SendSOL(context.Background(), "bad", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid recipient address")
}

func TestSendSOL_TimeoutCarriesReceipt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusGatewayTimeout)
		json.NewEncoder(w).Encode(map[string]any{
			"error": "transaction confirmation timeout",
			"receipt": wallet.Receipt{
				Kind:      wallet.OpTransferSOL,
				Outcome:   "timed_out",
				Signature: "sig",
				Attempts:  5,
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	rcpt, err := client.SendSOL(context.Background(), "recipient", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "confirmation timeout")
	require.NotNil(t, rcpt)
	assert.Equal(t, "timed_out", rcpt.Outcome)
	assert.Equal(t, 5, rcpt.Attempts)
}

func TestSendToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/transfers/token", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(2), body["token_id"])
		assert.Equal(t, "recipient-addr", body["recipient"])

		json.NewEncoder(w).Encode(wallet.Receipt{
			Kind:    wallet.OpTransferToken,
			Outcome: "confirmed",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	rcpt, err := client.SendToken(context.Background(), 2, "recipient-addr", "1.5")
	require.NoError(t, err)
	assert.Equal(t, "confirmed", rcpt.Outcome)
}

func TestSwitchNetwork(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "PUT", r.Method)
		assert.Equal(t, "/api/v1/network", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "mainnet-beta", body["network"])

		json.NewEncoder(w).Encode(map[string]string{"network": "mainnet-beta"})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	require.NoError(t, client.SwitchNetwork(context.Background(), "mainnet-beta"))
}

func TestSwitchNetwork_Conflict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"error": "another operation is in flight"})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	err := client.SwitchNetwork(context.Background(), "mainnet-beta")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "another operation is in flight")
}

func TestOperations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/operations", r.URL.Path)
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		assert.Equal(t, "0", r.URL.Query().Get("offset"))

		json.NewEncoder(w).Encode(map[string]any{
			"operations": []wallet.OperationRecord{
				{Kind: "airdrop", Network: "devnet", Outcome: "confirmed"},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	ops, err := client.Operations(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, "airdrop", ops[0].Kind)
}
