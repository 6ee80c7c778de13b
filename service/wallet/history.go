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

// timestampLayout renders epoch seconds the way the console displays
// them. Formatting happens at fetch time; entries store the rendered
// string, not the raw epoch.
const timestampLayout = "1/2/2006, 3:04:05 PM"

// HistoryReconstructor rebuilds a human-readable transaction history from
// raw ledger records.
type HistoryReconstructor struct {
	rpc       solana.RPCClient
	directory TokenDirectory
	logger    *slog.Logger
	metrics   *metrics.Metrics
	network   string
}

// NewHistoryReconstructor creates a history reconstructor.
func NewHistoryReconstructor(rpcClient solana.RPCClient, directory TokenDirectory, network string, m *metrics.Metrics, logger *slog.Logger) *HistoryReconstructor {
	return &HistoryReconstructor{
		rpc:       rpcClient,
		directory: directory,
		logger:    logger,
		metrics:   m,
		network:   network,
	}
}

// FetchTransactions returns up to limit reclassified history entries for
// the account, newest first. Records that failed on-chain execution never
// appear. A signature-listing failure degrades to an empty history;
// failures fetching individual records propagate.
func (r *HistoryReconstructor) FetchTransactions(ctx context.Context, account solanago.PublicKey, limit int) ([]HistoryEntry, error) {
	opts := &rpc.GetSignaturesForAddressOpts{
		Limit: &limit,
	}

	start := time.Now()
	signatures, err := r.rpc.GetSignaturesForAddress(ctx, account, opts)
	duration := time.Since(start).Seconds()

	status := "success"
	if err != nil {
		status = "error"
	}
	if r.metrics != nil {
		r.metrics.RecordRPCCall("GetSignaturesForAddress", status, r.network, duration)
	}

	if err != nil {
		// Display-only listing failure degrades to an empty history.
		r.logger.WarnContext(ctx, "failed to fetch signatures",
			"account", account.String(),
			"error", err,
		)
		if r.metrics != nil {
			r.metrics.RecordRead("history", "error", r.network)
		}
		return []HistoryEntry{}, nil
	}

	if len(signatures) == 0 {
		if r.metrics != nil {
			r.metrics.RecordRead("history", "success", r.network)
		}
		return []HistoryEntry{}, nil
	}

	maxVersion := uint64(0)
	entries := make([]HistoryEntry, 0, len(signatures))
	for _, sig := range signatures {
		txnOpts := &rpc.GetTransactionOpts{
			Encoding:                       solanago.EncodingBase64,
			Commitment:                     rpc.CommitmentConfirmed,
			MaxSupportedTransactionVersion: &maxVersion,
		}

		txnStart := time.Now()
		result, err := r.rpc.GetTransaction(ctx, sig.Signature, txnOpts)
		txnDuration := time.Since(txnStart).Seconds()

		txnStatus := "success"
		if err != nil {
			txnStatus = "error"
		}
		if r.metrics != nil {
			r.metrics.RecordRPCCall("GetTransaction", txnStatus, r.network, txnDuration)
		}

		if err != nil {
			if r.metrics != nil {
				r.metrics.RecordRead("history", "error", r.network)
			}
			return nil, fmt.Errorf("failed to get transaction %s: %w", sig.Signature, err)
		}

		// Pruned or unavailable records are skipped, as are records whose
		// metadata reports an on-chain execution error.
		if result == nil || result.Meta == nil {
			continue
		}
		if result.Meta.Err != nil {
			continue
		}

		entry := HistoryEntry{
			Signature:  sig.Signature.String(),
			OccurredAt: formatBlockTime(result.BlockTime, sig.BlockTime),
		}

		tx, err := result.Transaction.GetTransaction()
		if err != nil {
			// Undecodable shape: keep an unclassified entry rather than
			// dropping the record.
			r.logger.WarnContext(ctx, "failed to decode transaction, keeping unclassified entry",
				"signature", sig.Signature.String(),
				"error", err,
			)
			entries = append(entries, entry)
			continue
		}

		r.classify(&entry, account, tx.Message.AccountKeys, result.Meta)
		entries = append(entries, entry)
	}

	if r.metrics != nil {
		r.metrics.RecordRead("history", "success", r.network)
	}

	r.logger.DebugContext(ctx, "reconstructed transaction history",
		"account", account.String(),
		"requested", limit,
		"entries", len(entries),
	)

	return entries, nil
}

// classify fills entry's type, counterparty, and amounts from the account
// keys and balance snapshots of one successful record.
//
// The fee payer (first account key) determines direction: when it is the
// viewed account the record is a Send, otherwise a Received. A record
// where neither rule applies leaves the entry unclassified.
func (r *HistoryReconstructor) classify(entry *HistoryEntry, account solanago.PublicKey, keys []solanago.PublicKey, meta *rpc.TransactionMeta) {
	if len(keys) == 0 {
		return
	}

	if keys[0].Equals(account) {
		entry.Type = EntrySend
		if len(keys) > 1 {
			entry.Counterparty = keys[1].String()
		}

		pre := meta.PreTokenBalances
		post := meta.PostTokenBalances
		if len(pre) >= 2 && len(post) >= 2 {
			// Token transfer: the second balance slot tracks the recipient's
			// token account.
			entry.Mint = pre[1].Mint.String()
			if pre[1].UiTokenAmount != nil && post[1].UiTokenAmount != nil &&
				pre[1].UiTokenAmount.UiAmount != nil && post[1].UiTokenAmount.UiAmount != nil {
				delta := *post[1].UiTokenAmount.UiAmount - *pre[1].UiTokenAmount.UiAmount
				entry.TokenAmount = fmt.Sprintf("%.2f", delta)
			}
			// Metadata misses fall back to empty strings here, unlike the
			// inventory reader's "Unknown" sentinel.
			if info, found := r.directory.Lookup(entry.Mint); found {
				entry.TokenMetadata = TokenMetadata{
					Name:   info.Name,
					Symbol: info.Symbol,
					Logo:   info.LogoURI,
				}
			}
			return
		}

		if len(meta.PreBalances) > 0 && len(meta.PostBalances) > 0 && meta.PreBalances[0] != 0 {
			// Native transfer viewed from the sender; the delta includes the fee.
			delta := float64(meta.PreBalances[0]) - float64(meta.PostBalances[0])
			entry.SolAmount = fmt.Sprintf("%.3f", delta/float64(solanago.LAMPORTS_PER_SOL))
		}
		return
	}

	// Some other account paid the fee: a transfer into this account.
	entry.Type = EntryReceived
	entry.Counterparty = keys[0].String()
	if len(meta.PreBalances) > 1 && len(meta.PostBalances) > 1 && meta.PreBalances[1] != 0 {
		delta := float64(meta.PostBalances[1]) - float64(meta.PreBalances[1])
		entry.SolAmount = fmt.Sprintf("%.3f", delta/float64(solanago.LAMPORTS_PER_SOL))
	}
}

// formatBlockTime renders a block timestamp, preferring the full record's
// time over the signature listing's.
func formatBlockTime(primary, fallback *solanago.UnixTimeSeconds) string {
	ts := primary
	if ts == nil {
		ts = fallback
	}
	if ts == nil {
		return ""
	}
	return ts.Time().Local().Format(timestampLayout)
}
