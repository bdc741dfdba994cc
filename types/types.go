package types

// Chains are identified by Circle's blockchain identifiers.
// The set is closed: every registry table in config must carry an entry
// for each of these, a missing entry is a configuration bug.

type ChainID string

const (
	CHAIN_ETH_SEPOLIA ChainID = "ETH-SEPOLIA"
	CHAIN_AVAX_FUJI   ChainID = "AVAX-FUJI"
	CHAIN_MATIC_AMOY  ChainID = "MATIC-AMOY"
	CHAIN_ARB_SEPOLIA ChainID = "ARB-SEPOLIA"
	CHAIN_UNI_SEPOLIA ChainID = "UNI-SEPOLIA"
)

// Phase of a transfer run. Linear, failed is reachable from any
// non-terminal phase.
type Phase string

const (
	PhaseCreated             Phase = "created"
	PhaseApprovalSubmitted   Phase = "approval_submitted"
	PhaseApprovalConfirmed   Phase = "approval_confirmed"
	PhaseBurnSubmitted       Phase = "burn_submitted"
	PhaseBurnConfirmed       Phase = "burn_confirmed"
	PhaseMessageExtracted    Phase = "message_extracted"
	PhaseAwaitingAttestation Phase = "awaiting_attestation"
	PhaseAttestationReceived Phase = "attestation_received"
	PhaseMintSubmitted       Phase = "mint_submitted"
	PhaseMintConfirmed       Phase = "mint_confirmed"
	PhaseFailed              Phase = "failed"
)

func (p Phase) Terminal() bool {
	return p == PhaseMintConfirmed || p == PhaseFailed
}

// BurnCommitted reports whether funds may already be destroyed on the
// source chain; past this point the only way forward is completion.
func (p Phase) BurnCommitted() bool {
	switch p {
	case PhaseCreated, PhaseApprovalSubmitted, PhaseApprovalConfirmed, PhaseBurnSubmitted:
		return false
	}
	return true
}

// TransferRequest is the immutable input for one bridging run.
type TransferRequest struct {
	SourceWalletID     string  `json:"sourceWalletId"`
	DestinationAddress string  `json:"destinationAddress"`
	Amount             string  `json:"amount"`
	DestinationChain   ChainID `json:"destinationChain"`
}

// TransferRun is the durable record of one bridging operation, stored in
// Redis and mutated only by the orchestrator as phases complete.
type TransferRun struct {
	ID          string  `json:"id"`
	Phase       Phase   `json:"phase"`
	SourceChain ChainID `json:"sourceChain"`
	DestChain   ChainID `json:"destChain"`
	TsCreated   int64   `json:"tsCreated"`
	TsUpdated   int64   `json:"tsUpdated"`

	SourceWalletID string `json:"sourceWalletId"`
	DestWalletID   string `json:"destWalletId,omitempty"`
	DestAddress    string `json:"destAddress"`

	// amount in USDC smallest units (6 decimals), derived once at
	// creation and never recomputed
	AmountUnits uint64 `json:"amountUnits"`
	AmountHuman string `json:"amountHuman"`

	// Circle transaction ids and the on-chain hashes they resolved to
	ApprovalTxID   string `json:"approvalTxId,omitempty"`
	ApprovalTxHash string `json:"approvalTxHash,omitempty"`
	BurnTxID       string `json:"burnTxId,omitempty"`
	BurnTxHash     string `json:"burnTxHash,omitempty"`
	MintTxID       string `json:"mintTxId,omitempty"`
	MintTxHash     string `json:"mintTxHash,omitempty"`

	// MessageHash is the sole durable resumption key once the run has
	// entered awaiting_attestation
	MessageBytes string `json:"messageBytes,omitempty"`
	MessageHash  string `json:"messageHash,omitempty"`
	Attestation  string `json:"attestation,omitempty"`

	// failure payload; hashes recorded above are retained
	FailCause   FailCause `json:"failCause,omitempty"`
	FailedPhase Phase     `json:"failedPhase,omitempty"`
	Message     string    `json:"message,omitempty"`
}

// AppendMessage accumulates processing/error notes on the run record.
func (r *TransferRun) AppendMessage(msg string) {
	if r.Message == "" {
		r.Message = msg
	} else {
		r.Message += "; " + msg
	}
}

// AttestationRecord is the result of a single attestation poll. Ephemeral,
// recomputed on every request.
type AttestationRecord struct {
	MessageHash string `json:"messageHash"`
	Status      string `json:"status"` // "pending" or "complete"
	Attestation string `json:"attestation,omitempty"`
}

const (
	AttestationPending  = "pending"
	AttestationComplete = "complete"
)

// Wallet is the gateway's view of a custodial wallet.
type Wallet struct {
	ID         string  `json:"id"`
	Address    string  `json:"address"`
	Blockchain ChainID `json:"blockchain"`
	State      string  `json:"state,omitempty"`
}
