package wallet

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dropxhq/dropx/service/metrics"
	"github.com/dropxhq/dropx/service/solana"
)

// Airdrops are only served by the public test network.
const airdropNetwork = "devnet"

// Recorder archives completed operations. Implementations must tolerate
// being called for every terminal outcome, including failures.
type Recorder interface {
	Record(ctx context.Context, op OperationRecord) error
}

// ConsoleConfig carries the collaborators a Console needs.
type ConsoleConfig struct {
	// Endpoints lists the selectable networks. The first entry is active
	// on startup. At least one endpoint is required.
	Endpoints []Endpoint

	Signer    Signer
	Policy    ConfirmPolicy
	Directory TokenDirectory

	// RPCFactory builds an RPC client for an endpoint URL. Defaults to
	// the real JSON-RPC client; tests inject mocks.
	RPCFactory func(url string) solana.RPCClient

	// Sleep paces the confirmation poll. Nil means real sleeping.
	Sleep SleepFunc

	// HistoryLimit bounds full history refreshes.
	HistoryLimit int

	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Notifier Notifier
	Recorder Recorder
}

// Console is the wallet's single point of coordination. It owns the
// cached view (balance, token holdings, history), enforces that at most
// one chain-mutating operation runs at a time, and rebuilds its readers
// and submitter when the active network changes.
type Console struct {
	mu   sync.Mutex
	busy bool

	endpoints []Endpoint
	active    int

	signer       Signer
	policy       ConfirmPolicy
	directory    TokenDirectory
	rpcFactory   func(url string) solana.RPCClient
	sleep        SleepFunc
	historyLimit int

	logger   *slog.Logger
	metrics  *metrics.Metrics
	notifier Notifier
	recorder Recorder

	// Rebuilt by rebuild() on construction and on network switch.
	balances  *BalanceReader
	tokens    *TokenInventoryReader
	history   *HistoryReconstructor
	submitter *Submitter

	balance  string
	holdings []TokenHolding
	entries  []HistoryEntry
}

// NewConsole builds a console over cfg. The first endpoint becomes the
// active network.
func NewConsole(cfg ConsoleConfig) (*Console, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, fmt.Errorf("at least one endpoint is required")
	}
	if cfg.Signer == nil {
		return nil, fmt.Errorf("signer is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg.RPCFactory == nil {
		cfg.RPCFactory = solana.NewRPCClient
	}
	if cfg.Notifier == nil {
		cfg.Notifier = NewLogNotifier(cfg.Logger)
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 10
	}

	c := &Console{
		endpoints:    cfg.Endpoints,
		signer:       cfg.Signer,
		policy:       cfg.Policy,
		directory:    cfg.Directory,
		rpcFactory:   cfg.RPCFactory,
		sleep:        cfg.Sleep,
		historyLimit: cfg.HistoryLimit,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
		notifier:     cfg.Notifier,
		recorder:     cfg.Recorder,
	}
	c.rebuild()
	return c, nil
}

// rebuild constructs the per-network components for the active endpoint.
// Callers must hold no locks that conflict with concurrent reads; it is
// called from NewConsole and from SwitchNetwork under c.mu.
func (c *Console) rebuild() {
	ep := c.endpoints[c.active]
	client := c.rpcFactory(ep.URL)

	c.balances = NewBalanceReader(client, ep.Label, c.metrics, c.logger)
	c.tokens = NewTokenInventoryReader(client, c.directory, ep.Label, c.metrics, c.logger)
	c.history = NewHistoryReconstructor(client, c.directory, ep.Label, c.metrics, c.logger)
	c.submitter = NewSubmitter(client, c.signer, c.policy, ep.Label, c.sleep, c.metrics, c.logger)
}

// begin claims the single operation slot. The returned release function
// must be called exactly once.
func (c *Console) begin() (func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return nil, ErrOperationInFlight
	}
	c.busy = true
	return func() {
		c.mu.Lock()
		c.busy = false
		c.mu.Unlock()
	}, nil
}

// Busy reports whether an operation is in flight.
func (c *Console) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Network returns the active network label.
func (c *Console) Network() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.endpoints[c.active].Label
}

// Account returns the connected account's address, or "" when no signer
// is connected.
func (c *Console) Account() string {
	if !c.signer.Connected() {
		return ""
	}
	return c.signer.PublicKey().String()
}

// Balance returns the cached formatted balance.
func (c *Console) Balance() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balance
}

// Tokens returns the cached token holdings.
func (c *Console) Tokens() []TokenHolding {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]TokenHolding, len(c.holdings))
	copy(out, c.holdings)
	return out
}

// History returns the cached history entries, newest first.
func (c *Console) History() []HistoryEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]HistoryEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// RefreshBalance refetches and caches the account balance. Fetch errors
// yield an empty balance rather than an error, matching the display
// semantics of a console that blanks a stale figure it cannot refresh.
func (c *Console) RefreshBalance(ctx context.Context) string {
	if !c.signer.Connected() {
		return ""
	}
	account := c.signer.PublicKey()
	balance := c.balances.FetchBalance(ctx, &account)
	c.mu.Lock()
	c.balance = balance
	c.mu.Unlock()
	return balance
}

// RefreshTokens refetches and caches the token inventory.
func (c *Console) RefreshTokens(ctx context.Context) ([]TokenHolding, error) {
	if !c.signer.Connected() {
		return nil, ErrSignerUnavailable
	}
	holdings, err := c.tokens.FetchTokens(ctx, c.signer.PublicKey())
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.holdings = holdings
	c.mu.Unlock()
	return holdings, nil
}

// RefreshHistory refetches and caches transaction history.
func (c *Console) RefreshHistory(ctx context.Context) ([]HistoryEntry, error) {
	if !c.signer.Connected() {
		return nil, ErrSignerUnavailable
	}
	entries, err := c.history.FetchTransactions(ctx, c.signer.PublicKey(), c.historyLimit)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()
	return entries, nil
}

// SwitchNetwork activates the endpoint with the given label, drops the
// cached view, and refetches it against the new network. Switching while
// an operation is in flight is refused.
func (c *Console) SwitchNetwork(ctx context.Context, label string) error {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return ErrOperationInFlight
	}
	idx := -1
	for i, ep := range c.endpoints {
		if ep.Label == label {
			idx = i
			break
		}
	}
	if idx == -1 {
		c.mu.Unlock()
		return fmt.Errorf("unknown network %q", label)
	}
	if idx == c.active {
		c.mu.Unlock()
		return nil
	}
	c.active = idx
	c.balance = ""
	c.holdings = nil
	c.entries = nil
	c.rebuild()
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "switched network", "network", label)

	if c.signer.Connected() {
		c.RefreshBalance(ctx)
		if _, err := c.RefreshTokens(ctx); err != nil {
			c.logger.WarnContext(ctx, "token refresh after network switch failed", "error", err)
		}
		if _, err := c.RefreshHistory(ctx); err != nil {
			c.logger.WarnContext(ctx, "history refresh after network switch failed", "error", err)
		}
	}
	return nil
}

// RequestAirdrop requests test funds on the active network and waits for
// confirmation. Airdrops are only available on the devnet endpoint.
func (c *Console) RequestAirdrop(ctx context.Context, amount string) (*Receipt, error) {
	release, err := c.begin()
	if err != nil {
		return nil, err
	}
	defer release()

	if c.Network() != airdropNetwork {
		return nil, ErrAirdropUnavailable
	}

	c.notify(ctx, SeverityInfo, "requesting airdrop", OpAirdrop, "")

	started := time.Now()
	rcpt, opErr := c.submitter.Airdrop(ctx, amount)
	c.settle(ctx, rcpt, started, amount, "")
	return rcpt, opErr
}

// SendSOL transfers native coin and waits for confirmation. The cached
// balance is the reference for the insufficient-funds check.
func (c *Console) SendSOL(ctx context.Context, recipient, amount string) (*Receipt, error) {
	release, err := c.begin()
	if err != nil {
		return nil, err
	}
	defer release()

	c.notify(ctx, SeverityInfo, "sending transfer", OpTransferSOL, "")

	started := time.Now()
	rcpt, opErr := c.submitter.SendSOL(ctx, recipient, amount, c.Balance())
	c.settle(ctx, rcpt, started, amount, recipient)
	return rcpt, opErr
}

// SendToken transfers the token holding identified by tokenID and waits
// for confirmation.
func (c *Console) SendToken(ctx context.Context, tokenID int, recipient, amount string) (*Receipt, error) {
	release, err := c.begin()
	if err != nil {
		return nil, err
	}
	defer release()

	holding, found := c.holdingByID(tokenID)
	if !found {
		verr := &ValidationError{Clear: FieldToken, Reason: "invalid token"}
		if c.metrics != nil {
			c.metrics.RecordValidationRejection(string(OpTransferToken), verr.Reason)
		}
		return nil, verr
	}

	c.notify(ctx, SeverityInfo, "sending token transfer", OpTransferToken, "")

	started := time.Now()
	rcpt, opErr := c.submitter.SendToken(ctx, holding, recipient, amount)
	c.settle(ctx, rcpt, started, amount, recipient)
	return rcpt, opErr
}

func (c *Console) holdingByID(id int) (TokenHolding, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, h := range c.holdings {
		if h.ID == id {
			return h, true
		}
	}
	return TokenHolding{}, false
}

// settle runs the post-operation bookkeeping: terminal notification,
// operation archival, and the cached-view refresh. Operations rejected
// before any submission attempt skip all of it.
func (c *Console) settle(ctx context.Context, rcpt *Receipt, started time.Time, amount, recipient string) {
	if rcpt == nil || rcpt.State == StateIdle {
		return
	}

	switch rcpt.State {
	case StateConfirmed:
		c.notify(ctx, SeveritySuccess, "transaction confirmed", rcpt.Kind, rcpt.Signature)
	case StateTimedOut:
		c.notify(ctx, SeverityError, "transaction not confirmed in time", rcpt.Kind, rcpt.Signature)
	case StateFailed:
		// An empty signature means the submission itself threw; a present
		// signature means the transaction landed and failed on chain.
		if rcpt.Signature == "" {
			c.notify(ctx, SeverityError, "transaction submission failed", rcpt.Kind, rcpt.Signature)
		} else {
			c.notify(ctx, SeverityError, "transaction failed", rcpt.Kind, rcpt.Signature)
		}
	}

	if c.metrics != nil {
		c.metrics.RecordOperation(string(rcpt.Kind), c.Network(), rcpt.Outcome, time.Since(started).Seconds())
	}

	if c.recorder != nil {
		record := OperationRecord{
			Kind:       string(rcpt.Kind),
			Network:    c.Network(),
			Wallet:     c.Account(),
			Signature:  rcpt.Signature,
			Outcome:    rcpt.Outcome,
			Attempts:   rcpt.Attempts,
			Amount:     amount,
			Recipient:  recipient,
			OccurredAt: time.Now().UTC(),
		}
		if err := c.recorder.Record(ctx, record); err != nil {
			c.logger.WarnContext(ctx, "failed to archive operation",
				"kind", string(rcpt.Kind),
				"signature", rcpt.Signature,
				"error", err,
			)
		}
	}

	// Whatever the outcome, the on-chain state may have moved; refresh
	// the balance, and the inventory too for token operations.
	c.RefreshBalance(ctx)
	if rcpt.Kind == OpTransferToken {
		if _, err := c.RefreshTokens(ctx); err != nil {
			c.logger.WarnContext(ctx, "token refresh after operation failed", "error", err)
		}
	}

	// A freshly confirmed airdrop or native transfer surfaces at the top
	// of the history without refetching the whole window.
	if rcpt.State == StateConfirmed && (rcpt.Kind == OpAirdrop || rcpt.Kind == OpTransferSOL) {
		c.prependLatest(ctx)
	}
}

// prependLatest fetches the single newest history entry and places it in
// front of the cached entries.
func (c *Console) prependLatest(ctx context.Context) {
	latest, err := c.history.FetchTransactions(ctx, c.signer.PublicKey(), 1)
	if err != nil {
		c.logger.WarnContext(ctx, "failed to fetch latest history entry", "error", err)
		return
	}
	if len(latest) == 0 {
		return
	}
	c.mu.Lock()
	c.entries = append(latest[:1:1], c.entries...)
	c.mu.Unlock()
}

func (c *Console) notify(ctx context.Context, severity Severity, message string, kind OpKind, signature string) {
	c.notifier.Notify(ctx, Notification{
		Severity:  severity,
		Message:   message,
		Kind:      kind,
		Signature: signature,
		EmittedAt: time.Now().UTC(),
	})
}
