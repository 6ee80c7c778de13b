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

// SleepFunc suspends between polling attempts. Injecting it lets tests
// drive the polling loop without real time delays.
type SleepFunc func(ctx context.Context, d time.Duration) error

// SleepWithContext is the production SleepFunc.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// confirmationPoller drives the bounded confirmation-polling protocol for
// one submitted signature. Each attempt sleeps a fixed interval and then
// queries the signature status exactly once.
type confirmationPoller struct {
	rpc      solana.RPCClient
	sleep    SleepFunc
	interval time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
	network  string
}

// await polls until the signature confirms, fails, or the attempt budget
// is exhausted. It returns the terminal state, the attempts consumed, and
// the error matching the terminal state (nil only for StateConfirmed).
//
// A confirmed status carrying an execution error fails immediately; a
// clean confirmed status stops early without consuming the remaining
// attempts. Statuses that are not yet confirmed consume one attempt each.
func (p *confirmationPoller) await(ctx context.Context, sig solanago.Signature, kind OpKind, maxAttempts int) (State, int, error) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := p.sleep(ctx, p.interval); err != nil {
			return StateFailed, attempt, fmt.Errorf("confirmation wait interrupted: %w", err)
		}

		start := time.Now()
		result, err := p.rpc.GetSignatureStatuses(ctx, true, sig)
		duration := time.Since(start).Seconds()

		status := "success"
		if err != nil {
			status = "error"
		}
		if p.metrics != nil {
			p.metrics.RecordRPCCall("GetSignatureStatuses", status, p.network, duration)
		}

		if err != nil {
			return StateFailed, attempt, fmt.Errorf("failed to get signature status: %w", err)
		}

		if len(result.Value) == 0 || result.Value[0] == nil {
			// Signature not yet known to the cluster; consume the attempt.
			p.logger.DebugContext(ctx, "signature status unknown",
				"signature", sig.String(),
				"attempt", attempt,
				"max_attempts", maxAttempts,
			)
			continue
		}

		st := result.Value[0]
		if st.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
			st.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
			if st.Err != nil {
				p.logger.WarnContext(ctx, "transaction confirmed with execution error",
					"signature", sig.String(),
					"attempt", attempt,
					"error", st.Err,
				)
				return StateFailed, attempt, ErrTransactionFailed
			}

			p.logger.InfoContext(ctx, "transaction confirmed",
				"signature", sig.String(),
				"attempt", attempt,
				"kind", string(kind),
			)
			return StateConfirmed, attempt, nil
		}

		p.logger.DebugContext(ctx, "transaction not yet confirmed",
			"signature", sig.String(),
			"attempt", attempt,
			"status", st.ConfirmationStatus,
		)
	}

	p.logger.WarnContext(ctx, "confirmation attempts exhausted",
		"signature", sig.String(),
		"max_attempts", maxAttempts,
		"kind", string(kind),
	)
	return StateTimedOut, maxAttempts, ErrConfirmationTimeout
}
