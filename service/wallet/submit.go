package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dropxhq/dropx/service/metrics"
	"github.com/dropxhq/dropx/service/solana"
	solanago "github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
)

// Submitter builds chain operations, submits them, and drives the bounded
// confirmation-polling protocol. One Submitter serves one endpoint; it
// assumes at most one in-flight operation at a time (the console's
// single-flight guard enforces this).
type Submitter struct {
	rpc     solana.RPCClient
	signer  Signer
	policy  ConfirmPolicy
	sleep   SleepFunc
	logger  *slog.Logger
	metrics *metrics.Metrics
	network string
}

// NewSubmitter creates a submitter. If sleep is nil, SleepWithContext is
// used; tests inject a no-op sleeper to run the polling loop instantly.
func NewSubmitter(rpcClient solana.RPCClient, signer Signer, policy ConfirmPolicy, network string, sleep SleepFunc, m *metrics.Metrics, logger *slog.Logger) *Submitter {
	if sleep == nil {
		sleep = SleepWithContext
	}
	return &Submitter{
		rpc:     rpcClient,
		signer:  signer,
		policy:  policy,
		sleep:   sleep,
		logger:  logger,
		metrics: m,
		network: network,
	}
}

// Airdrop requests test-network funds for the connected account and waits
// for confirmation. The amount is validated locally before any network
// call: it must be a positive number no greater than the configured
// ceiling.
func (s *Submitter) Airdrop(ctx context.Context, amount string) (*Receipt, error) {
	rcpt := &Receipt{Kind: OpAirdrop, State: StateIdle}

	if !s.signer.Connected() {
		return rcpt, ErrSignerUnavailable
	}

	amt, verr := parsePositiveAmount(amount)
	if verr == nil && amt > s.policy.AirdropCeiling {
		verr = &ValidationError{
			Clear:  FieldAmount,
			Reason: fmt.Sprintf("please enter a valid amount (0-%g)", s.policy.AirdropCeiling),
		}
	}
	if verr != nil {
		s.rejected(rcpt.Kind, verr)
		return rcpt, verr
	}

	rcpt.State = StateBuilding
	account := s.signer.PublicKey()

	start := time.Now()
	sig, err := s.rpc.RequestAirdrop(ctx, account, lamports(amt), rpc.CommitmentConfirmed)
	s.recordRPC("RequestAirdrop", err, time.Since(start).Seconds())
	if err != nil {
		rcpt.State = StateFailed
		rcpt.Outcome = rcpt.State.String()
		return rcpt, fmt.Errorf("airdrop request failed: %w", err)
	}

	rcpt.State = StateSubmitted
	rcpt.Signature = sig.String()
	s.logger.InfoContext(ctx, "airdrop submitted",
		"account", account.String(),
		"amount", amount,
		"signature", rcpt.Signature,
	)

	return s.confirm(ctx, rcpt, sig)
}

// SendSOL transfers native coin to a recipient and waits for confirmation.
// currentBalance is the account's formatted balance as last displayed; the
// amount must be strictly less than it.
func (s *Submitter) SendSOL(ctx context.Context, recipient, amount, currentBalance string) (*Receipt, error) {
	rcpt := &Receipt{Kind: OpTransferSOL, State: StateIdle}

	if !s.signer.Connected() {
		return rcpt, ErrSignerUnavailable
	}

	amt, verr := parsePositiveAmount(amount)
	if verr != nil {
		s.rejected(rcpt.Kind, verr)
		return rcpt, verr
	}

	balance, _ := strconv.ParseFloat(currentBalance, 64)
	if amt >= balance {
		verr = &ValidationError{Clear: FieldAmount, Reason: "insufficient balance"}
		s.rejected(rcpt.Kind, verr)
		return rcpt, verr
	}

	to, verr := parseRecipient(recipient)
	if verr != nil {
		s.rejected(rcpt.Kind, verr)
		return rcpt, verr
	}

	rcpt.State = StateBuilding
	owner := s.signer.PublicKey()

	instructions := []solanago.Instruction{
		system.NewTransferInstruction(lamports(amt), owner, to).Build(),
	}

	sig, err := s.signAndSend(ctx, owner, instructions)
	if err != nil {
		if errors.Is(err, ErrSignerUnavailable) {
			return rcpt, ErrSignerUnavailable
		}
		rcpt.State = StateFailed
		rcpt.Outcome = rcpt.State.String()
		return rcpt, err
	}

	rcpt.State = StateSubmitted
	rcpt.Signature = sig.String()
	s.logger.InfoContext(ctx, "native transfer submitted",
		"from", owner.String(),
		"to", to.String(),
		"amount", amount,
		"signature", rcpt.Signature,
	)

	return s.confirm(ctx, rcpt, sig)
}

// SendToken transfers a fungible token to a recipient and waits for
// confirmation. If the recipient has no associated token account for the
// mint, a create instruction is placed before the transfer instruction.
func (s *Submitter) SendToken(ctx context.Context, holding TokenHolding, recipient, amount string) (*Receipt, error) {
	rcpt := &Receipt{Kind: OpTransferToken, State: StateIdle}

	if !s.signer.Connected() {
		return rcpt, ErrSignerUnavailable
	}

	amt, verr := parsePositiveAmount(amount)
	if verr != nil {
		s.rejected(rcpt.Kind, verr)
		return rcpt, verr
	}

	held, _ := strconv.ParseFloat(holding.Balance, 64)
	if amt > held {
		verr = &ValidationError{Clear: FieldAmount, Reason: "insufficient balance"}
		s.rejected(rcpt.Kind, verr)
		return rcpt, verr
	}

	to, verr := parseRecipient(recipient)
	if verr != nil {
		s.rejected(rcpt.Kind, verr)
		return rcpt, verr
	}

	mint, err := solanago.PublicKeyFromBase58(holding.Mint)
	if err != nil {
		verr = &ValidationError{Clear: FieldToken, Reason: "invalid token"}
		s.rejected(rcpt.Kind, verr)
		return rcpt, verr
	}

	rcpt.State = StateBuilding
	owner := s.signer.PublicKey()

	senderATA, _, err := solanago.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		rcpt.State = StateFailed
		rcpt.Outcome = rcpt.State.String()
		return rcpt, fmt.Errorf("failed to derive sender token account: %w", err)
	}
	receiverATA, _, err := solanago.FindAssociatedTokenAddress(to, mint)
	if err != nil {
		rcpt.State = StateFailed
		rcpt.Outcome = rcpt.State.String()
		return rcpt, fmt.Errorf("failed to derive recipient token account: %w", err)
	}

	decimals, err := mintDecimals(ctx, s.rpc, mint)
	if err != nil {
		rcpt.State = StateFailed
		rcpt.Outcome = rcpt.State.String()
		return rcpt, err
	}

	var instructions []solanago.Instruction

	created, err := s.receiverAccountMissing(ctx, receiverATA)
	if err != nil {
		rcpt.State = StateFailed
		rcpt.Outcome = rcpt.State.String()
		return rcpt, err
	}
	if created {
		instructions = append(instructions,
			associatedtokenaccount.NewCreateInstruction(owner, to, mint).Build(),
		)
	}

	units := uint64(math.Round(amt * math.Pow10(int(decimals))))
	instructions = append(instructions,
		token.NewTransferInstruction(units, senderATA, receiverATA, owner, nil).Build(),
	)

	sig, err := s.signAndSend(ctx, owner, instructions)
	if err != nil {
		if errors.Is(err, ErrSignerUnavailable) {
			return rcpt, ErrSignerUnavailable
		}
		rcpt.State = StateFailed
		rcpt.Outcome = rcpt.State.String()
		return rcpt, err
	}

	rcpt.State = StateSubmitted
	rcpt.Signature = sig.String()
	s.logger.InfoContext(ctx, "token transfer submitted",
		"from", owner.String(),
		"to", to.String(),
		"mint", holding.Mint,
		"amount", amount,
		"create_recipient_account", created,
		"signature", rcpt.Signature,
	)

	return s.confirm(ctx, rcpt, sig)
}

// signAndSend assembles a transaction from instructions, has the signer
// sign it, and broadcasts it.
func (s *Submitter) signAndSend(ctx context.Context, payer solanago.PublicKey, instructions []solanago.Instruction) (solanago.Signature, error) {
	start := time.Now()
	blockhash, err := s.rpc.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	s.recordRPC("GetLatestBlockhash", err, time.Since(start).Seconds())
	if err != nil {
		return solanago.Signature{}, fmt.Errorf("failed to get latest blockhash: %w", err)
	}

	tx, err := solanago.NewTransaction(
		instructions,
		blockhash.Value.Blockhash,
		solanago.TransactionPayer(payer),
	)
	if err != nil {
		return solanago.Signature{}, fmt.Errorf("failed to build transaction: %w", err)
	}

	signed, err := s.signer.SignTransaction(tx)
	if err != nil {
		if errors.Is(err, ErrSignerUnavailable) {
			return solanago.Signature{}, ErrSignerUnavailable
		}
		return solanago.Signature{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	start = time.Now()
	sig, err := s.rpc.SendTransaction(ctx, signed)
	s.recordRPC("SendTransaction", err, time.Since(start).Seconds())
	if err != nil {
		return solanago.Signature{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	return sig, nil
}

// receiverAccountMissing reports whether the recipient's associated token
// account does not exist yet.
func (s *Submitter) receiverAccountMissing(ctx context.Context, ata solanago.PublicKey) (bool, error) {
	start := time.Now()
	info, err := s.rpc.GetAccountInfo(ctx, ata)
	s.recordRPC("GetAccountInfo", err, time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return true, nil
		}
		return false, fmt.Errorf("failed to check recipient token account: %w", err)
	}
	return info == nil || info.Value == nil, nil
}

// confirm runs the polling protocol and stamps the terminal state onto
// the receipt.
func (s *Submitter) confirm(ctx context.Context, rcpt *Receipt, sig solanago.Signature) (*Receipt, error) {
	rcpt.State = StatePolling

	poller := &confirmationPoller{
		rpc:      s.rpc,
		sleep:    s.sleep,
		interval: s.policy.Interval,
		logger:   s.logger,
		metrics:  s.metrics,
		network:  s.network,
	}

	state, attempts, err := poller.await(ctx, sig, rcpt.Kind, s.policy.MaxAttempts(rcpt.Kind))
	rcpt.State = state
	rcpt.Attempts = attempts
	rcpt.Outcome = state.String()

	if s.metrics != nil {
		s.metrics.RecordConfirmationAttempts(string(rcpt.Kind), attempts)
	}

	return rcpt, err
}

// rejected records a local validation rejection.
func (s *Submitter) rejected(kind OpKind, verr *ValidationError) {
	s.logger.Debug("operation rejected before submission",
		"kind", string(kind),
		"reason", verr.Reason,
	)
	if s.metrics != nil {
		s.metrics.RecordValidationRejection(string(kind), verr.Reason)
	}
}

// recordRPC records one RPC call's outcome when metrics are configured.
func (s *Submitter) recordRPC(method string, err error, duration float64) {
	if s.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordRPCCall(method, status, s.network, duration)
}

// parsePositiveAmount parses a user-entered amount. It must be numeric
// and strictly positive.
func parsePositiveAmount(value string) (float64, *ValidationError) {
	amt, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(amt) || math.IsInf(amt, 0) || amt <= 0 {
		return 0, &ValidationError{Clear: FieldAmount, Reason: "please enter a valid amount"}
	}
	return amt, nil
}

// parseRecipient parses a recipient account identifier. Structural
// parsing and the ed25519 on-curve check are distinct failure reasons;
// only the structural failure clears the recipient field.
func parseRecipient(value string) (solanago.PublicKey, *ValidationError) {
	pk, err := solanago.PublicKeyFromBase58(strings.TrimSpace(value))
	if err != nil {
		return solanago.PublicKey{}, &ValidationError{Clear: FieldRecipient, Reason: "invalid recipient address"}
	}
	if !pk.IsOnCurve() {
		return solanago.PublicKey{}, &ValidationError{Clear: FieldNone, Reason: "recipient address is not on the ed25519 curve"}
	}
	return pk, nil
}

// lamports converts a SOL amount to the chain's smallest unit.
func lamports(sol float64) uint64 {
	return uint64(math.Round(sol * float64(solanago.LAMPORTS_PER_SOL)))
}
