package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dropxhq/dropx/service/db"
	"github.com/dropxhq/dropx/service/wallet"
)

const maxRequestBodySize = 1 << 20 // 1MB - plenty for operation requests

// handleGetWallet returns a handler that reports the console's identity.
// GET /api/v1/wallet
func handleGetWallet(console Console, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"account": console.Account(),
			"network": console.Network(),
			"busy":    console.Busy(),
		}, http.StatusOK)
	})
}

// handleGetBalance returns a handler that reports the account balance.
// GET /api/v1/balance?refresh=true
func handleGetBalance(console Console, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		balance := console.Balance()
		if wantRefresh(r) {
			balance = console.RefreshBalance(r.Context())
		}

		writeJSON(w, map[string]string{
			"balance": balance,
			"network": console.Network(),
		}, http.StatusOK)
	})
}

// handleGetTokens returns a handler that lists the account's token
// holdings.
// GET /api/v1/tokens?refresh=true
func handleGetTokens(console Console, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		holdings := console.Tokens()
		if wantRefresh(r) {
			var err error
			holdings, err = console.RefreshTokens(r.Context())
			if err != nil {
				logger.Error("failed to refresh tokens", "error", err)
				writeOperationError(w, err)
				return
			}
		}

		if holdings == nil {
			holdings = []wallet.TokenHolding{}
		}
		writeJSON(w, map[string]any{
			"tokens":  holdings,
			"network": console.Network(),
		}, http.StatusOK)
	})
}

// handleGetHistory returns a handler that lists reconstructed history.
// GET /api/v1/history?refresh=true
func handleGetHistory(console Console, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entries := console.History()
		if wantRefresh(r) {
			var err error
			entries, err = console.RefreshHistory(r.Context())
			if err != nil {
				logger.Error("failed to refresh history", "error", err)
				writeOperationError(w, err)
				return
			}
		}

		if entries == nil {
			entries = []wallet.HistoryEntry{}
		}
		writeJSON(w, map[string]any{
			"history": entries,
			"network": console.Network(),
		}, http.StatusOK)
	})
}

type airdropRequest struct {
	Amount string `json:"amount"`
}

// handleAirdrop returns a handler that requests test funds and waits for
// confirmation.
// POST /api/v1/airdrop
func handleAirdrop(console Console, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req airdropRequest
		if !decodeRequest(w, r, &req) {
			return
		}

		rcpt, err := console.RequestAirdrop(r.Context(), req.Amount)
		if err != nil {
			logger.Info("airdrop not confirmed", "amount", req.Amount, "error", err)
			writeReceiptError(w, rcpt, err)
			return
		}

		logger.Info("airdrop confirmed", "amount", req.Amount, "signature", rcpt.Signature)
		writeJSON(w, rcpt, http.StatusOK)
	})
}

type transferRequest struct {
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

// handleSendSOL returns a handler that submits a native transfer and
// waits for confirmation.
// POST /api/v1/transfers/sol
func handleSendSOL(console Console, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req transferRequest
		if !decodeRequest(w, r, &req) {
			return
		}

		rcpt, err := console.SendSOL(r.Context(), req.Recipient, req.Amount)
		if err != nil {
			logger.Info("native transfer not confirmed",
				"recipient", req.Recipient,
				"amount", req.Amount,
				"error", err,
			)
			writeReceiptError(w, rcpt, err)
			return
		}

		logger.Info("native transfer confirmed",
			"recipient", req.Recipient,
			"amount", req.Amount,
			"signature", rcpt.Signature,
		)
		writeJSON(w, rcpt, http.StatusOK)
	})
}

type tokenTransferRequest struct {
	TokenID   int    `json:"token_id"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

// handleSendToken returns a handler that submits a token transfer and
// waits for confirmation.
// POST /api/v1/transfers/token
func handleSendToken(console Console, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req tokenTransferRequest
		if !decodeRequest(w, r, &req) {
			return
		}

		rcpt, err := console.SendToken(r.Context(), req.TokenID, req.Recipient, req.Amount)
		if err != nil {
			logger.Info("token transfer not confirmed",
				"token_id", req.TokenID,
				"recipient", req.Recipient,
				"amount", req.Amount,
				"error", err,
			)
			writeReceiptError(w, rcpt, err)
			return
		}

		logger.Info("token transfer confirmed",
			"token_id", req.TokenID,
			"recipient", req.Recipient,
			"amount", req.Amount,
			"signature", rcpt.Signature,
		)
		writeJSON(w, rcpt, http.StatusOK)
	})
}

// handleGetNetwork returns a handler that reports the active network.
// GET /api/v1/network
func handleGetNetwork(console Console, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{
			"network": console.Network(),
		}, http.StatusOK)
	})
}

type switchNetworkRequest struct {
	Network string `json:"network"`
}

// handleSwitchNetwork returns a handler that activates a different
// network endpoint.
// PUT /api/v1/network
func handleSwitchNetwork(console Console, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req switchNetworkRequest
		if !decodeRequest(w, r, &req) {
			return
		}

		if err := console.SwitchNetwork(r.Context(), req.Network); err != nil {
			if errors.Is(err, wallet.ErrOperationInFlight) {
				writeError(w, err.Error(), http.StatusConflict)
				return
			}
			logger.Debug("network switch refused", "network", req.Network, "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		logger.Info("network switched", "network", req.Network)
		writeJSON(w, map[string]string{
			"network": console.Network(),
		}, http.StatusOK)
	})
}

// handleListOperations returns a handler that lists archived operations
// for the console's account on the active network.
// GET /api/v1/operations?limit={n}&offset={n}
func handleListOperations(store *db.Store, console Console, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit := parseQueryInt(r, "limit", 50)
		offset := parseQueryInt(r, "offset", 0)

		records, err := store.ListOperations(r.Context(), db.ListOperationsParams{
			Wallet:  console.Account(),
			Network: console.Network(),
			Limit:   int32(limit),
			Offset:  int32(offset),
		})
		if err != nil {
			logger.Error("failed to list operations", "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		if records == nil {
			records = []wallet.OperationRecord{}
		}
		writeJSON(w, map[string]any{
			"operations": records,
			"network":    console.Network(),
		}, http.StatusOK)
	})
}

// decodeRequest decodes a JSON request body, writing a 400 on failure.
func decodeRequest(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// wantRefresh reports whether the request asked for a fresh read instead
// of the cached view.
func wantRefresh(r *http.Request) bool {
	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
	return refresh
}

func parseQueryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

// writeReceiptError maps an operation failure to a status code. The
// receipt, when present, rides along so callers still see the terminal
// state and attempt count.
func writeReceiptError(w http.ResponseWriter, rcpt *wallet.Receipt, err error) {
	status := operationStatus(err)

	body := map[string]any{"error": err.Error()}
	var verr *wallet.ValidationError
	if errors.As(err, &verr) && verr.Clear != wallet.FieldNone {
		body["clear"] = string(verr.Clear)
	}
	if rcpt != nil && rcpt.State != wallet.StateIdle {
		body["receipt"] = rcpt
	}

	writeJSON(w, body, status)
}

// writeOperationError writes a bare error with operation status mapping.
func writeOperationError(w http.ResponseWriter, err error) {
	writeError(w, err.Error(), operationStatus(err))
}

// operationStatus maps console errors to HTTP status codes.
func operationStatus(err error) int {
	switch {
	case wallet.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, wallet.ErrAirdropUnavailable):
		return http.StatusBadRequest
	case errors.Is(err, wallet.ErrOperationInFlight):
		return http.StatusConflict
	case errors.Is(err, wallet.ErrSignerUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, wallet.ErrConfirmationTimeout):
		return http.StatusGatewayTimeout
	default:
		// On-chain failures and RPC errors both surface as upstream
		// failures.
		return http.StatusBadGateway
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
