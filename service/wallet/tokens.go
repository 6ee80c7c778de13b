package wallet

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/dropxhq/dropx/service/metrics"
	"github.com/dropxhq/dropx/service/registry"
	"github.com/dropxhq/dropx/service/solana"
	bin "github.com/gagliardetto/binary"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
)

// Fallback symbol/name for mints absent from the token directory.
const unknownToken = "Unknown"

// TokenDirectory resolves display metadata for a mint address.
type TokenDirectory interface {
	Lookup(mint string) (registry.TokenInfo, bool)
}

// TokenInventoryReader enumerates the fungible token holdings of an
// account under the SPL token program.
type TokenInventoryReader struct {
	rpc       solana.RPCClient
	directory TokenDirectory
	logger    *slog.Logger
	metrics   *metrics.Metrics
	network   string
}

// NewTokenInventoryReader creates an inventory reader.
func NewTokenInventoryReader(rpcClient solana.RPCClient, directory TokenDirectory, network string, m *metrics.Metrics, logger *slog.Logger) *TokenInventoryReader {
	return &TokenInventoryReader{
		rpc:       rpcClient,
		directory: directory,
		logger:    logger,
		metrics:   m,
		network:   network,
	}
}

// FetchTokens rebuilds the full holding set for the owner. IDs are
// assigned sequentially from 0 in the order the ledger returned the
// accounts; they are only valid within this batch. Any per-token lookup
// failure aborts the whole batch. Zero balances are included; hiding them
// is a presentation concern.
func (r *TokenInventoryReader) FetchTokens(ctx context.Context, owner solanago.PublicKey) ([]TokenHolding, error) {
	programID := solanago.TokenProgramID

	start := time.Now()
	result, err := r.rpc.GetTokenAccountsByOwner(ctx, owner,
		&rpc.GetTokenAccountsConfig{ProgramId: &programID},
		&rpc.GetTokenAccountsOpts{Encoding: solanago.EncodingBase64},
	)
	duration := time.Since(start).Seconds()

	status := "success"
	if err != nil {
		status = "error"
	}
	if r.metrics != nil {
		r.metrics.RecordRPCCall("GetTokenAccountsByOwner", status, r.network, duration)
	}

	if err != nil {
		if r.metrics != nil {
			r.metrics.RecordRead("tokens", "error", r.network)
		}
		return nil, fmt.Errorf("failed to get token accounts: %w", err)
	}

	// Mint accounts repeat across token accounts; resolve each once.
	decimalsByMint := make(map[solanago.PublicKey]uint8)

	holdings := make([]TokenHolding, 0, len(result.Value))
	for i, ta := range result.Value {
		var acc token.Account
		if err := bin.NewBinDecoder(ta.Account.Data.GetBinary()).Decode(&acc); err != nil {
			if r.metrics != nil {
				r.metrics.RecordRead("tokens", "error", r.network)
			}
			return nil, fmt.Errorf("failed to decode token account %s: %w", ta.Pubkey, err)
		}

		decimals, ok := decimalsByMint[acc.Mint]
		if !ok {
			decimals, err = r.fetchMintDecimals(ctx, acc.Mint)
			if err != nil {
				if r.metrics != nil {
					r.metrics.RecordRead("tokens", "error", r.network)
				}
				return nil, err
			}
			decimalsByMint[acc.Mint] = decimals
		}

		mint := acc.Mint.String()
		balance := float64(acc.Amount) / math.Pow10(int(decimals))

		holding := TokenHolding{
			ID:      i,
			Mint:    mint,
			Balance: fmt.Sprintf("%.2f", balance),
			Name:    unknownToken,
			Symbol:  unknownToken,
		}
		if info, found := r.directory.Lookup(mint); found {
			holding.Name = info.Name
			holding.Symbol = info.Symbol
			holding.Logo = info.LogoURI
		}

		holdings = append(holdings, holding)
	}

	if r.metrics != nil {
		r.metrics.RecordRead("tokens", "success", r.network)
	}

	r.logger.DebugContext(ctx, "fetched token inventory",
		"owner", owner.String(),
		"count", len(holdings),
	)

	return holdings, nil
}

// fetchMintDecimals resolves the decimal exponent of a mint.
func (r *TokenInventoryReader) fetchMintDecimals(ctx context.Context, mint solanago.PublicKey) (uint8, error) {
	start := time.Now()
	info, err := r.rpc.GetAccountInfo(ctx, mint)
	duration := time.Since(start).Seconds()

	status := "success"
	if err != nil {
		status = "error"
	}
	if r.metrics != nil {
		r.metrics.RecordRPCCall("GetAccountInfo", status, r.network, duration)
	}

	if err != nil {
		return 0, fmt.Errorf("failed to get mint %s: %w", mint, err)
	}

	return decodeMintDecimals(info, mint)
}

// mintDecimals resolves the decimal exponent of a mint without recording
// metrics. Callers that track RPC calls wrap the GetAccountInfo themselves.
func mintDecimals(ctx context.Context, client solana.RPCClient, mint solanago.PublicKey) (uint8, error) {
	info, err := client.GetAccountInfo(ctx, mint)
	if err != nil {
		return 0, fmt.Errorf("failed to get mint %s: %w", mint, err)
	}
	return decodeMintDecimals(info, mint)
}

func decodeMintDecimals(info *rpc.GetAccountInfoResult, mint solanago.PublicKey) (uint8, error) {
	if info == nil || info.Value == nil {
		return 0, fmt.Errorf("mint %s not found", mint)
	}

	var m token.Mint
	if err := bin.NewBinDecoder(info.Value.Data.GetBinary()).Decode(&m); err != nil {
		return 0, fmt.Errorf("failed to decode mint %s: %w", mint, err)
	}

	return m.Decimals, nil
}
