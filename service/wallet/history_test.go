package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/dropxhq/dropx/service/registry"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(f float64) *float64 { return &f }

func TestFetchTransactions_NativeSend(t *testing.T) {
	account := solanago.NewWallet().PublicKey()
	counterparty := solanago.NewWallet().PublicKey()
	sig := newSignature(t, 0x01)
	blockTime := solanago.UnixTimeSeconds(1700000000)

	tx := makeMessageTransaction(t, []solanago.PublicKey{account, counterparty, solanago.SystemProgramID}, solanago.Hash{})

	mock := &mockRPCClient{
		getSignaturesForAddrFunc: func(ctx context.Context, acc solanago.PublicKey, opts *rpc.GetSignaturesForAddressOpts) ([]*rpc.TransactionSignature, error) {
			require.NotNil(t, opts.Limit)
			assert.Equal(t, 10, *opts.Limit)
			return []*rpc.TransactionSignature{{Signature: sig}}, nil
		},
		getTransactionFunc: func(ctx context.Context, got solanago.Signature, opts *rpc.GetTransactionOpts) (*rpc.GetTransactionResult, error) {
			assert.Equal(t, sig, got)
			return &rpc.GetTransactionResult{
				BlockTime:   &blockTime,
				Transaction: makeTransactionEnvelope(t, tx),
				Meta: &rpc.TransactionMeta{
					PreBalances:  []uint64{5_000_000_000, 1_000_000_000, 1},
					PostBalances: []uint64{3_994_995_000, 2_000_000_000, 1},
				},
			}, nil
		},
	}

	reader := NewHistoryReconstructor(mock, stubDirectory{}, "devnet", nil, testLogger())
	entries, err := reader.FetchTransactions(context.Background(), account, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, EntrySend, entry.Type)
	assert.Equal(t, counterparty.String(), entry.Counterparty)
	// The sender's delta includes the fee.
	assert.Equal(t, "1.005", entry.SolAmount)
	assert.Empty(t, entry.TokenAmount)
	assert.Equal(t, sig.String(), entry.Signature)
	assert.Equal(t, blockTime.Time().Local().Format("1/2/2006, 3:04:05 PM"), entry.OccurredAt)
}

func TestFetchTransactions_Received(t *testing.T) {
	account := solanago.NewWallet().PublicKey()
	sender := solanago.NewWallet().PublicKey()
	sig := newSignature(t, 0x02)

	tx := makeMessageTransaction(t, []solanago.PublicKey{sender, account, solanago.SystemProgramID}, solanago.Hash{})

	mock := &mockRPCClient{
		getSignaturesForAddrFunc: func(ctx context.Context, acc solanago.PublicKey, opts *rpc.GetSignaturesForAddressOpts) ([]*rpc.TransactionSignature, error) {
			return []*rpc.TransactionSignature{{Signature: sig}}, nil
		},
		getTransactionFunc: func(ctx context.Context, got solanago.Signature, opts *rpc.GetTransactionOpts) (*rpc.GetTransactionResult, error) {
			return &rpc.GetTransactionResult{
				Transaction: makeTransactionEnvelope(t, tx),
				Meta: &rpc.TransactionMeta{
					PreBalances:  []uint64{5_000_000_000, 1_000_000_000, 1},
					PostBalances: []uint64{3_994_995_000, 2_000_000_000, 1},
				},
			}, nil
		},
	}

	reader := NewHistoryReconstructor(mock, stubDirectory{}, "devnet", nil, testLogger())
	entries, err := reader.FetchTransactions(context.Background(), account, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, EntryReceived, entry.Type)
	assert.Equal(t, sender.String(), entry.Counterparty)
	assert.Equal(t, "1.000", entry.SolAmount)
}

func TestFetchTransactions_TokenSend(t *testing.T) {
	account := solanago.NewWallet().PublicKey()
	counterparty := solanago.NewWallet().PublicKey()
	mint := solanago.NewWallet().PublicKey()
	sig := newSignature(t, 0x03)

	tx := makeMessageTransaction(t, []solanago.PublicKey{account, counterparty, solanago.TokenProgramID}, solanago.Hash{})

	mock := &mockRPCClient{
		getSignaturesForAddrFunc: func(ctx context.Context, acc solanago.PublicKey, opts *rpc.GetSignaturesForAddressOpts) ([]*rpc.TransactionSignature, error) {
			return []*rpc.TransactionSignature{{Signature: sig}}, nil
		},
		getTransactionFunc: func(ctx context.Context, got solanago.Signature, opts *rpc.GetTransactionOpts) (*rpc.GetTransactionResult, error) {
			return &rpc.GetTransactionResult{
				Transaction: makeTransactionEnvelope(t, tx),
				Meta: &rpc.TransactionMeta{
					PreBalances:  []uint64{5_000_000_000, 2_039_280, 1},
					PostBalances: []uint64{4_999_995_000, 2_039_280, 1},
					PreTokenBalances: []rpc.TokenBalance{
						{AccountIndex: 1, Mint: mint, UiTokenAmount: &rpc.UiTokenAmount{UiAmount: floatPtr(10.0)}},
						{AccountIndex: 2, Mint: mint, UiTokenAmount: &rpc.UiTokenAmount{UiAmount: floatPtr(1.0)}},
					},
					PostTokenBalances: []rpc.TokenBalance{
						{AccountIndex: 1, Mint: mint, UiTokenAmount: &rpc.UiTokenAmount{UiAmount: floatPtr(7.5)}},
						{AccountIndex: 2, Mint: mint, UiTokenAmount: &rpc.UiTokenAmount{UiAmount: floatPtr(3.5)}},
					},
				},
			}, nil
		},
	}

	directory := stubDirectory{
		mint.String(): registry.TokenInfo{Name: "Test Token", Symbol: "TST", LogoURI: "https://example.com/tst.png"},
	}

	reader := NewHistoryReconstructor(mock, directory, "devnet", nil, testLogger())
	entries, err := reader.FetchTransactions(context.Background(), account, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, EntrySend, entry.Type)
	assert.Equal(t, counterparty.String(), entry.Counterparty)
	assert.Equal(t, "2.50", entry.TokenAmount)
	assert.Empty(t, entry.SolAmount)
	assert.Equal(t, mint.String(), entry.Mint)
	assert.Equal(t, "Test Token", entry.TokenMetadata.Name)
	assert.Equal(t, "TST", entry.TokenMetadata.Symbol)
}

func TestFetchTransactions_TokenSendUnknownMint(t *testing.T) {
	account := solanago.NewWallet().PublicKey()
	mint := solanago.NewWallet().PublicKey()
	sig := newSignature(t, 0x04)

	tx := makeMessageTransaction(t, []solanago.PublicKey{account, solanago.NewWallet().PublicKey()}, solanago.Hash{})

	mock := &mockRPCClient{
		getSignaturesForAddrFunc: func(ctx context.Context, acc solanago.PublicKey, opts *rpc.GetSignaturesForAddressOpts) ([]*rpc.TransactionSignature, error) {
			return []*rpc.TransactionSignature{{Signature: sig}}, nil
		},
		getTransactionFunc: func(ctx context.Context, got solanago.Signature, opts *rpc.GetTransactionOpts) (*rpc.GetTransactionResult, error) {
			return &rpc.GetTransactionResult{
				Transaction: makeTransactionEnvelope(t, tx),
				Meta: &rpc.TransactionMeta{
					PreTokenBalances: []rpc.TokenBalance{
						{Mint: mint, UiTokenAmount: &rpc.UiTokenAmount{UiAmount: floatPtr(1.0)}},
						{Mint: mint, UiTokenAmount: &rpc.UiTokenAmount{UiAmount: floatPtr(0.0)}},
					},
					PostTokenBalances: []rpc.TokenBalance{
						{Mint: mint, UiTokenAmount: &rpc.UiTokenAmount{UiAmount: floatPtr(0.0)}},
						{Mint: mint, UiTokenAmount: &rpc.UiTokenAmount{UiAmount: floatPtr(1.0)}},
					},
				},
			}, nil
		},
	}

	reader := NewHistoryReconstructor(mock, stubDirectory{}, "devnet", nil, testLogger())
	entries, err := reader.FetchTransactions(context.Background(), account, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	// Unlisted mints keep empty display metadata, not an "Unknown" label.
	assert.Equal(t, "1.00", entries[0].TokenAmount)
	assert.Empty(t, entries[0].TokenMetadata.Name)
	assert.Empty(t, entries[0].TokenMetadata.Symbol)
}

func TestFetchTransactions_SkipsFailedRecords(t *testing.T) {
	account := solanago.NewWallet().PublicKey()
	sigOK := newSignature(t, 0x05)
	sigFailed := newSignature(t, 0x06)

	tx := makeMessageTransaction(t, []solanago.PublicKey{account, solanago.NewWallet().PublicKey()}, solanago.Hash{})

	mock := &mockRPCClient{
		getSignaturesForAddrFunc: func(ctx context.Context, acc solanago.PublicKey, opts *rpc.GetSignaturesForAddressOpts) ([]*rpc.TransactionSignature, error) {
			return []*rpc.TransactionSignature{{Signature: sigFailed}, {Signature: sigOK}}, nil
		},
		getTransactionFunc: func(ctx context.Context, got solanago.Signature, opts *rpc.GetTransactionOpts) (*rpc.GetTransactionResult, error) {
			if got == sigFailed {
				return &rpc.GetTransactionResult{
					Transaction: makeTransactionEnvelope(t, tx),
					Meta:        &rpc.TransactionMeta{Err: map[string]any{"InstructionError": []any{}}},
				}, nil
			}
			return &rpc.GetTransactionResult{
				Transaction: makeTransactionEnvelope(t, tx),
				Meta: &rpc.TransactionMeta{
					PreBalances:  []uint64{2_000_000_000, 0},
					PostBalances: []uint64{1_000_000_000, 1_000_000_000},
				},
			}, nil
		},
	}

	reader := NewHistoryReconstructor(mock, stubDirectory{}, "devnet", nil, testLogger())
	entries, err := reader.FetchTransactions(context.Background(), account, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, sigOK.String(), entries[0].Signature)
}

func TestFetchTransactions_ListErrorDegradesToEmpty(t *testing.T) {
	mock := &mockRPCClient{
		getSignaturesForAddrFunc: func(ctx context.Context, acc solanago.PublicKey, opts *rpc.GetSignaturesForAddressOpts) ([]*rpc.TransactionSignature, error) {
			return nil, errors.New("node unavailable")
		},
	}

	reader := NewHistoryReconstructor(mock, stubDirectory{}, "devnet", nil, testLogger())
	entries, err := reader.FetchTransactions(context.Background(), solanago.NewWallet().PublicKey(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFetchTransactions_RecordFetchErrorPropagates(t *testing.T) {
	sig := newSignature(t, 0x07)
	mock := &mockRPCClient{
		getSignaturesForAddrFunc: func(ctx context.Context, acc solanago.PublicKey, opts *rpc.GetSignaturesForAddressOpts) ([]*rpc.TransactionSignature, error) {
			return []*rpc.TransactionSignature{{Signature: sig}}, nil
		},
		getTransactionFunc: func(ctx context.Context, got solanago.Signature, opts *rpc.GetTransactionOpts) (*rpc.GetTransactionResult, error) {
			return nil, errors.New("node unavailable")
		},
	}

	reader := NewHistoryReconstructor(mock, stubDirectory{}, "devnet", nil, testLogger())
	_, err := reader.FetchTransactions(context.Background(), solanago.NewWallet().PublicKey(), 10)
	require.Error(t, err)
}

func TestClassify_ZeroPreBalanceLeavesAmountEmpty(t *testing.T) {
	account := solanago.NewWallet().PublicKey()
	other := solanago.NewWallet().PublicKey()
	reader := NewHistoryReconstructor(&mockRPCClient{}, stubDirectory{}, "devnet", nil, testLogger())

	// Sender path with a zero pre-balance in slot 0.
	var send HistoryEntry
	reader.classify(&send, account, []solanago.PublicKey{account, other}, &rpc.TransactionMeta{
		PreBalances:  []uint64{0, 1},
		PostBalances: []uint64{0, 2},
	})
	assert.Equal(t, EntrySend, send.Type)
	assert.Empty(t, send.SolAmount)

	// Receiver path with a zero pre-balance in slot 1.
	var recv HistoryEntry
	reader.classify(&recv, account, []solanago.PublicKey{other, account}, &rpc.TransactionMeta{
		PreBalances:  []uint64{5, 0},
		PostBalances: []uint64{4, 1},
	})
	assert.Equal(t, EntryReceived, recv.Type)
	assert.Empty(t, recv.SolAmount)
}
