package wallet

import "time"

// OpKind identifies the kind of chain operation a submission performs.
type OpKind string

const (
	OpAirdrop       OpKind = "airdrop"
	OpTransferSOL   OpKind = "transfer_sol"
	OpTransferToken OpKind = "transfer_token"
)

// State is one step of the operation lifecycle.
// Terminal states are Confirmed, Failed, and TimedOut; every terminal
// transition routes back to Idle after a balance/inventory refresh.
type State int

const (
	StateIdle State = iota
	StateBuilding
	StateSubmitted
	StatePolling
	StateConfirmed
	StateFailed
	StateTimedOut
)

// String returns the lowercase state name used in logs and records.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBuilding:
		return "building"
	case StateSubmitted:
		return "submitted"
	case StatePolling:
		return "polling"
	case StateConfirmed:
		return "confirmed"
	case StateFailed:
		return "failed"
	case StateTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state ends an operation's lifecycle.
func (s State) Terminal() bool {
	return s == StateConfirmed || s == StateFailed || s == StateTimedOut
}

// TokenHolding is one fungible token position of the active account.
// Holdings are rebuilt wholesale on every inventory refresh; ID is a
// per-batch sequence number, not a stable cross-refresh identity.
type TokenHolding struct {
	ID      int    `json:"id"`
	Mint    string `json:"mint"`
	Balance string `json:"balance"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
	Logo    string `json:"logo"`
}

// TokenMetadata is display metadata attached to a history entry.
type TokenMetadata struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Logo   string `json:"logo"`
}

// Entry types for reconstructed history.
const (
	EntrySend     = "Send"
	EntryReceived = "Received"
)

// HistoryEntry is one reclassified ledger record, as shown to the user.
// For a classified entry exactly one of SolAmount/TokenAmount is set.
// An entry with empty Type is an unclassified record; callers must
// tolerate it rather than treat it as an error.
type HistoryEntry struct {
	Type          string        `json:"type"`
	Counterparty  string        `json:"counterparty"`
	SolAmount     string        `json:"sol_amount,omitempty"`
	TokenAmount   string        `json:"token_amount,omitempty"`
	Mint          string        `json:"mint,omitempty"`
	TokenMetadata TokenMetadata `json:"token_metadata"`
	Signature     string        `json:"signature"`
	OccurredAt    string        `json:"occurred_at"`
}

// Endpoint names one of the two fixed network configurations.
type Endpoint struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// ConfirmPolicy bounds the confirmation-polling loop per operation kind.
type ConfirmPolicy struct {
	Interval            time.Duration
	AirdropMaxAttempts  int
	TransferMaxAttempts int
	TokenMaxAttempts    int
	AirdropCeiling      float64
}

// MaxAttempts returns the attempt bound for an operation kind.
func (p ConfirmPolicy) MaxAttempts(kind OpKind) int {
	switch kind {
	case OpAirdrop:
		return p.AirdropMaxAttempts
	case OpTransferSOL:
		return p.TransferMaxAttempts
	case OpTransferToken:
		return p.TokenMaxAttempts
	default:
		return 1
	}
}

// Receipt is the result of one submission, populated through the
// lifecycle. Signature is empty when the operation never reached the
// network.
type Receipt struct {
	Kind      OpKind `json:"kind"`
	State     State  `json:"-"`
	Outcome   string `json:"outcome"`
	Signature string `json:"signature,omitempty"`
	Attempts  int    `json:"attempts"`
}

// OperationRecord is the archived outcome of one operation.
type OperationRecord struct {
	Kind       string    `json:"kind"`
	Network    string    `json:"network"`
	Wallet     string    `json:"wallet"`
	Signature  string    `json:"signature,omitempty"`
	Outcome    string    `json:"outcome"`
	Attempts   int       `json:"attempts"`
	Amount     string    `json:"amount,omitempty"`
	Recipient  string    `json:"recipient,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
