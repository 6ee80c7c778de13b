package wallet

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dropxhq/dropx/service/registry"
	bin "github.com/gagliardetto/binary"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/require"
)

// mockRPCClient lets each test wire just the RPC methods it exercises.
// Unwired methods panic so an unexpected call fails loudly.
type mockRPCClient struct {
	getBalanceFunc            func(ctx context.Context, account solanago.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error)
	getTokenAccountsFunc      func(ctx context.Context, owner solanago.PublicKey, conf *rpc.GetTokenAccountsConfig, opts *rpc.GetTokenAccountsOpts) (*rpc.GetTokenAccountsResult, error)
	getAccountInfoFunc        func(ctx context.Context, account solanago.PublicKey) (*rpc.GetAccountInfoResult, error)
	getLatestBlockhashFunc    func(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	getSignatureStatusesFunc  func(ctx context.Context, searchHistory bool, signatures ...solanago.Signature) (*rpc.GetSignatureStatusesResult, error)
	getSignaturesForAddrFunc  func(ctx context.Context, account solanago.PublicKey, opts *rpc.GetSignaturesForAddressOpts) ([]*rpc.TransactionSignature, error)
	getTransactionFunc        func(ctx context.Context, signature solanago.Signature, opts *rpc.GetTransactionOpts) (*rpc.GetTransactionResult, error)
	requestAirdropFunc        func(ctx context.Context, account solanago.PublicKey, lamports uint64, commitment rpc.CommitmentType) (solanago.Signature, error)
	sendTransactionFunc       func(ctx context.Context, tx *solanago.Transaction) (solanago.Signature, error)
	balanceCalls              int
	signatureStatusCalls      int
	signaturesForAddressCalls int
	transactionCalls          int
	tokenAccountsByOwnerCalls int
}

func (m *mockRPCClient) GetBalance(ctx context.Context, account solanago.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error) {
	m.balanceCalls++
	if m.getBalanceFunc == nil {
		panic("unexpected GetBalance call")
	}
	return m.getBalanceFunc(ctx, account, commitment)
}

func (m *mockRPCClient) GetTokenAccountsByOwner(ctx context.Context, owner solanago.PublicKey, conf *rpc.GetTokenAccountsConfig, opts *rpc.GetTokenAccountsOpts) (*rpc.GetTokenAccountsResult, error) {
	m.tokenAccountsByOwnerCalls++
	if m.getTokenAccountsFunc == nil {
		panic("unexpected GetTokenAccountsByOwner call")
	}
	return m.getTokenAccountsFunc(ctx, owner, conf, opts)
}

func (m *mockRPCClient) GetAccountInfo(ctx context.Context, account solanago.PublicKey) (*rpc.GetAccountInfoResult, error) {
	if m.getAccountInfoFunc == nil {
		panic("unexpected GetAccountInfo call")
	}
	return m.getAccountInfoFunc(ctx, account)
}

func (m *mockRPCClient) GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	if m.getLatestBlockhashFunc == nil {
		panic("unexpected GetLatestBlockhash call")
	}
	return m.getLatestBlockhashFunc(ctx, commitment)
}

func (m *mockRPCClient) GetSignatureStatuses(ctx context.Context, searchHistory bool, signatures ...solanago.Signature) (*rpc.GetSignatureStatusesResult, error) {
	m.signatureStatusCalls++
	if m.getSignatureStatusesFunc == nil {
		panic("unexpected GetSignatureStatuses call")
	}
	return m.getSignatureStatusesFunc(ctx, searchHistory, signatures...)
}

func (m *mockRPCClient) GetSignaturesForAddress(ctx context.Context, account solanago.PublicKey, opts *rpc.GetSignaturesForAddressOpts) ([]*rpc.TransactionSignature, error) {
	m.signaturesForAddressCalls++
	if m.getSignaturesForAddrFunc == nil {
		panic("unexpected GetSignaturesForAddress call")
	}
	return m.getSignaturesForAddrFunc(ctx, account, opts)
}

func (m *mockRPCClient) GetTransaction(ctx context.Context, signature solanago.Signature, opts *rpc.GetTransactionOpts) (*rpc.GetTransactionResult, error) {
	m.transactionCalls++
	if m.getTransactionFunc == nil {
		panic("unexpected GetTransaction call")
	}
	return m.getTransactionFunc(ctx, signature, opts)
}

func (m *mockRPCClient) RequestAirdrop(ctx context.Context, account solanago.PublicKey, lamports uint64, commitment rpc.CommitmentType) (solanago.Signature, error) {
	if m.requestAirdropFunc == nil {
		panic("unexpected RequestAirdrop call")
	}
	return m.requestAirdropFunc(ctx, account, lamports, commitment)
}

func (m *mockRPCClient) SendTransaction(ctx context.Context, tx *solanago.Transaction) (solanago.Signature, error) {
	if m.sendTransactionFunc == nil {
		panic("unexpected SendTransaction call")
	}
	return m.sendTransactionFunc(ctx, tx)
}

// noSleep runs the polling loop without real delays.
func noSleep(ctx context.Context, d time.Duration) error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubDirectory is a fixed-map token directory.
type stubDirectory map[string]registry.TokenInfo

func (d stubDirectory) Lookup(mint string) (registry.TokenInfo, bool) {
	info, ok := d[mint]
	return info, ok
}

func newSignature(t *testing.T, fill byte) solanago.Signature {
	t.Helper()
	var sig solanago.Signature
	for i := range sig {
		sig[i] = fill
	}
	return sig
}

// encodeBase64Data builds the ["<base64>", "base64"] account-data payload
// the RPC layer returns for base64-encoded reads.
func encodeBase64Data(t *testing.T, raw []byte) *rpc.DataBytesOrJSON {
	t.Helper()
	payload := fmt.Sprintf(`[%q, "base64"]`, base64.StdEncoding.EncodeToString(raw))
	var data rpc.DataBytesOrJSON
	require.NoError(t, json.Unmarshal([]byte(payload), &data))
	return &data
}

// encodeTokenAccount serializes an SPL token account the way the chain
// stores it.
func encodeTokenAccount(t *testing.T, acc token.Account) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	require.NoError(t, acc.MarshalWithEncoder(bin.NewBinEncoder(buf)))
	return buf.Bytes()
}

// encodeMint serializes an SPL mint account.
func encodeMint(t *testing.T, m token.Mint) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	require.NoError(t, m.MarshalWithEncoder(bin.NewBinEncoder(buf)))
	return buf.Bytes()
}

// makeTransactionEnvelope wraps a transaction in the base64 envelope the
// RPC layer returns for EncodingBase64 transaction fetches.
func makeTransactionEnvelope(t *testing.T, tx *solanago.Transaction) *rpc.TransactionResultEnvelope {
	t.Helper()
	raw, err := tx.MarshalBinary()
	require.NoError(t, err)
	payload := fmt.Sprintf(`[%q, "base64"]`, base64.StdEncoding.EncodeToString(raw))
	var env rpc.TransactionResultEnvelope
	require.NoError(t, json.Unmarshal([]byte(payload), &env))
	return &env
}

// makeMessageTransaction builds a minimal signed-shaped transaction whose
// message carries the given account keys.
func makeMessageTransaction(t *testing.T, keys []solanago.PublicKey, blockhash solanago.Hash) *solanago.Transaction {
	t.Helper()
	return &solanago.Transaction{
		Signatures: []solanago.Signature{newSignature(t, 0xAA)},
		Message: solanago.Message{
			Header: solanago.MessageHeader{
				NumRequiredSignatures: 1,
			},
			AccountKeys:     keys,
			RecentBlockhash: blockhash,
		},
	}
}
