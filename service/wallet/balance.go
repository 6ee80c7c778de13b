package wallet

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dropxhq/dropx/service/metrics"
	"github.com/dropxhq/dropx/service/solana"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// BalanceReader fetches and formats the native SOL balance of an account.
type BalanceReader struct {
	rpc     solana.RPCClient
	logger  *slog.Logger
	metrics *metrics.Metrics
	network string
}

// NewBalanceReader creates a balance reader. If m is nil, no metrics are
// recorded.
func NewBalanceReader(rpcClient solana.RPCClient, network string, m *metrics.Metrics, logger *slog.Logger) *BalanceReader {
	return &BalanceReader{
		rpc:     rpcClient,
		logger:  logger,
		metrics: m,
		network: network,
	}
}

// ReadBalance returns the account's balance formatted to two decimal
// places, or an error when the RPC read fails. Display callers that want
// the swallow-to-empty behavior use FetchBalance instead.
func (r *BalanceReader) ReadBalance(ctx context.Context, account solanago.PublicKey) (string, error) {
	start := time.Now()
	result, err := r.rpc.GetBalance(ctx, account, rpc.CommitmentConfirmed)
	duration := time.Since(start).Seconds()

	status := "success"
	if err != nil {
		status = "error"
	}
	if r.metrics != nil {
		r.metrics.RecordRPCCall("GetBalance", status, r.network, duration)
		r.metrics.RecordRead("balance", status, r.network)
	}

	if err != nil {
		return "", fmt.Errorf("failed to get balance: %w", err)
	}

	return formatSOL(result.Value, 2), nil
}

// FetchBalance returns the formatted balance for the account, or an empty
// string when no account is bound or the read fails. Failures are logged
// and signaled only through the empty display, never surfaced as errors.
func (r *BalanceReader) FetchBalance(ctx context.Context, account *solanago.PublicKey) string {
	if account == nil || account.IsZero() {
		return ""
	}

	balance, err := r.ReadBalance(ctx, *account)
	if err != nil {
		r.logger.WarnContext(ctx, "failed to fetch balance",
			"account", account.String(),
			"error", err,
		)
		return ""
	}

	return balance
}

// formatSOL converts a lamport amount to a fixed-precision SOL string.
func formatSOL(lamports uint64, decimals int) string {
	return fmt.Sprintf("%.*f", decimals, float64(lamports)/float64(solanago.LAMPORTS_PER_SOL))
}
