// Package bridge drives USDC burn-and-mint transfers across chains:
// approve on the source chain, burn through the token messenger, extract
// the bridge message from the burn receipt, wait out the attestation
// service, then mint on the destination chain. Every phase transition is
// persisted before the next wait, so a run survives process restarts and
// is resumed from its last recorded phase.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"gousdcbridge/EVMRPC"
	"gousdcbridge/amount"
	"gousdcbridge/circle"
	"gousdcbridge/config"
	"gousdcbridge/types"
)

// RunStore is the durable record store for transfer runs. SaveRun is a
// conditional write: it must fail with types.ErrPhaseConflict when the
// stored phase no longer matches prevPhase, so a cancellation racing a
// claimed executor can never be silently overwritten.
type RunStore interface {
	CreateRun(run *types.TransferRun) error
	SaveRun(run *types.TransferRun, prevPhase types.Phase) error
	GetRun(id string) (*types.TransferRun, error)
	FindRunByMessageHash(messageHash string) (*types.TransferRun, error)
	FindRunsByPhase(phase types.Phase) ([]*types.TransferRun, error)
}

// WalletGateway is the custody provider boundary.
type WalletGateway interface {
	SubmitContractCall(ctx context.Context, walletID, contractAddress, functionSignature string, args []interface{}, feeLevel string) (string, error)
	AwaitConfirmation(ctx context.Context, transactionID string) (*circle.Transaction, error)
	ListWallets(ctx context.Context) ([]types.Wallet, error)
	CreateWallet(ctx context.Context, chain types.ChainID) (*types.Wallet, error)
}

// MessageReader extracts the bridge message from a confirmed burn.
type MessageReader interface {
	ExtractMessage(ctx context.Context, chain types.ChainID, txHash string) (messageBytes, messageHash string, err error)
}

// AttestationClient performs one attestation poll.
type AttestationClient interface {
	Poll(ctx context.Context, messageHash string) (*types.AttestationRecord, error)
}

// ErrRunBusy means another executor currently holds the run's claim.
var ErrRunBusy = errors.New("transfer run is already being processed")

type Orchestrator struct {
	store    RunStore
	gateway  WalletGateway
	reader   MessageReader
	attestor AttestationClient
	logger   *zap.Logger

	// Registry resolves chain configuration; overridable in tests
	Registry func(types.ChainID) (config.ChainConfig, error)

	// cadence of attestation polling and no-progress retries
	PollInterval time.Duration

	// 0 waits for attestation indefinitely
	AttestationTimeout time.Duration

	claims sync.Map
}

func New(logger *zap.Logger, store RunStore, gateway WalletGateway, reader MessageReader, attestor AttestationClient) *Orchestrator {
	return &Orchestrator{
		store:        store,
		gateway:      gateway,
		reader:       reader,
		attestor:     attestor,
		logger:       logger.With(zap.String("component", "bridge.Orchestrator")),
		Registry:     config.ChainByID,
		PollInterval: 2 * time.Second,
	}
}

// CreateRun validates a transfer request and persists a new run in the
// created phase. Validation failures never create a run. Orchestration
// happens separately, either through Execute or the worker pool.
func (o *Orchestrator) CreateRun(ctx context.Context, req types.TransferRequest) (*types.TransferRun, error) {
	units, err := amount.ToSmallestUnit(req.Amount)
	if err != nil {
		return nil, err
	}

	if _, err := EVMRPC.EncodeDestination(req.DestinationAddress); err != nil {
		return nil, err
	}

	if _, err := o.Registry(req.DestinationChain); err != nil {
		return nil, err
	}

	// the source chain is whatever chain the wallet lives on
	wallets, err := o.gateway.ListWallets(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing wallets: %w", err)
	}
	var source *types.Wallet
	for i := range wallets {
		if wallets[i].ID == req.SourceWalletID {
			source = &wallets[i]
			break
		}
	}
	if source == nil {
		return nil, fmt.Errorf("source wallet %s not found", req.SourceWalletID)
	}

	if _, err := o.Registry(source.Blockchain); err != nil {
		return nil, err
	}

	run := &types.TransferRun{
		Phase:          types.PhaseCreated,
		SourceChain:    source.Blockchain,
		DestChain:      req.DestinationChain,
		TsCreated:      time.Now().Unix(),
		SourceWalletID: req.SourceWalletID,
		DestAddress:    req.DestinationAddress,
		AmountUnits:    units,
		AmountHuman:    req.Amount,
	}
	if err := o.store.CreateRun(run); err != nil {
		return nil, fmt.Errorf("storing transfer run: %w", err)
	}

	o.logger.Info("created transfer run",
		zap.String("runId", run.ID),
		zap.String("sourceChain", string(run.SourceChain)),
		zap.String("destChain", string(run.DestChain)),
		zap.Uint64("amountUnits", run.AmountUnits))
	return run, nil
}

// Execute drives a run until it reaches a terminal phase, claiming it so
// no other executor advances it concurrently. Safe to call on a resumed
// run in any phase. Returns ErrRunBusy when the run is already claimed;
// a cancelled context leaves the run persisted for later resumption.
func (o *Orchestrator) Execute(ctx context.Context, runID string) (*types.TransferRun, error) {
	if _, loaded := o.claims.LoadOrStore(runID, struct{}{}); loaded {
		return nil, ErrRunBusy
	}
	defer o.claims.Delete(runID)

	for {
		run, err := o.store.GetRun(runID)
		if err != nil {
			return nil, err
		}
		if run == nil {
			return nil, fmt.Errorf("transfer run %s not found", runID)
		}
		if run.Phase.Terminal() {
			return run, nil
		}

		progressed, err := o.advance(ctx, run)
		if err != nil {
			// somebody else moved the run (a cancellation); this copy is
			// stale, re-read and let the terminal check decide
			if errors.Is(err, types.ErrPhaseConflict) {
				continue
			}
			return nil, err
		}
		if progressed {
			continue
		}

		select {
		case <-ctx.Done():
			return run, ctx.Err()
		case <-time.After(o.PollInterval):
		}
	}
}

// Claimed reports whether some executor currently drives the run.
func (o *Orchestrator) Claimed(runID string) bool {
	_, ok := o.claims.Load(runID)
	return ok
}

// advance performs at most one phase transition. It returns false with a
// nil error when the run is waiting on something external (attestation
// pending, collaborator outage) and should simply be retried after the
// poll interval. Fatal conditions are persisted as the terminal failed
// phase and reported as progress, never as an error.
func (o *Orchestrator) advance(ctx context.Context, run *types.TransferRun) (bool, error) {
	switch run.Phase {
	case types.PhaseCreated:
		return o.submitApproval(ctx, run)
	case types.PhaseApprovalSubmitted:
		return o.awaitApproval(ctx, run)
	case types.PhaseApprovalConfirmed:
		return o.submitBurn(ctx, run)
	case types.PhaseBurnSubmitted:
		return o.awaitBurn(ctx, run)
	case types.PhaseBurnConfirmed:
		return o.extractMessage(ctx, run)
	case types.PhaseMessageExtracted:
		return o.enterAttestationWait(run)
	case types.PhaseAwaitingAttestation:
		return o.pollAttestation(ctx, run)
	case types.PhaseAttestationReceived:
		return o.submitMint(ctx, run)
	case types.PhaseMintSubmitted:
		return o.awaitMint(ctx, run)
	default:
		return false, fmt.Errorf("run %s in unexpected phase %s", run.ID, run.Phase)
	}
}

func (o *Orchestrator) transition(run *types.TransferRun, to types.Phase) (bool, error) {
	prev := run.Phase
	run.Phase = to
	if err := o.store.SaveRun(run, prev); err != nil {
		run.Phase = prev
		return false, fmt.Errorf("persisting transition of run %s to %s: %w", run.ID, to, err)
	}
	o.logger.Info("run advanced",
		zap.String("runId", run.ID),
		zap.String("from", string(prev)),
		zap.String("to", string(to)))
	return true, nil
}

// fail moves the run to the terminal failed phase with a structured
// cause. All hashes recorded so far stay on the record for operators.
func (o *Orchestrator) fail(run *types.TransferRun, cause types.FailCause, msg string) (bool, error) {
	prev := run.Phase
	run.FailCause = cause
	run.FailedPhase = prev
	run.AppendMessage(msg)
	run.Phase = types.PhaseFailed
	if err := o.store.SaveRun(run, prev); err != nil {
		return false, fmt.Errorf("persisting failure of run %s: %w", run.ID, err)
	}
	o.logger.Warn("run failed",
		zap.String("runId", run.ID),
		zap.String("phase", string(prev)),
		zap.String("cause", string(cause)),
		zap.String("message", msg))
	return true, nil
}

func (o *Orchestrator) submitApproval(ctx context.Context, run *types.TransferRun) (bool, error) {
	src, err := o.Registry(run.SourceChain)
	if err != nil {
		return o.fail(run, types.CauseUnsupportedChain, err.Error())
	}

	// grant the token messenger permission to move exactly this amount
	txID, err := o.gateway.SubmitContractCall(ctx, run.SourceWalletID,
		src.USDCContract,
		"approve(address,uint256)",
		[]interface{}{src.TokenMessengerContract, strconv.FormatUint(run.AmountUnits, 10)},
		circle.FeeLevelHigh)
	if err != nil {
		if errors.Is(err, types.ErrGatewayUnavailable) {
			o.logger.Warn("gateway unavailable, approval submission deferred", zap.String("runId", run.ID), zap.Error(err))
			return false, nil
		}
		return o.fail(run, types.CauseTransactionFailed, fmt.Sprintf("submitting approval: %s", err.Error()))
	}

	run.ApprovalTxID = txID
	return o.transition(run, types.PhaseApprovalSubmitted)
}

func (o *Orchestrator) awaitApproval(ctx context.Context, run *types.TransferRun) (bool, error) {
	tx, err := o.gateway.AwaitConfirmation(ctx, run.ApprovalTxID)
	if err != nil {
		var txFailed *types.TransactionFailedError
		if errors.As(err, &txFailed) {
			// nothing was locked, nothing is in flight
			return o.fail(run, types.CauseTransactionFailed, fmt.Sprintf("approval transaction %s failed", run.ApprovalTxID))
		}
		return false, err
	}

	run.ApprovalTxHash = tx.TxHash
	return o.transition(run, types.PhaseApprovalConfirmed)
}

func (o *Orchestrator) submitBurn(ctx context.Context, run *types.TransferRun) (bool, error) {
	src, err := o.Registry(run.SourceChain)
	if err != nil {
		return o.fail(run, types.CauseUnsupportedChain, err.Error())
	}
	dest, err := o.Registry(run.DestChain)
	if err != nil {
		return o.fail(run, types.CauseUnsupportedChain, err.Error())
	}

	encodedDest, err := EVMRPC.EncodeDestination(run.DestAddress)
	if err != nil {
		// validated at creation, reaching this is a programming error
		return o.fail(run, types.CauseInternal, err.Error())
	}

	txID, err := o.gateway.SubmitContractCall(ctx, run.SourceWalletID,
		src.TokenMessengerContract,
		"depositForBurn(uint256,uint32,bytes32,address)",
		[]interface{}{strconv.FormatUint(run.AmountUnits, 10), dest.DomainID, encodedDest, src.USDCContract},
		circle.FeeLevelHigh)
	if err != nil {
		if errors.Is(err, types.ErrGatewayUnavailable) {
			o.logger.Warn("gateway unavailable, burn submission deferred", zap.String("runId", run.ID), zap.Error(err))
			return false, nil
		}
		return o.fail(run, types.CauseTransactionFailed, fmt.Sprintf("submitting burn: %s", err.Error()))
	}

	run.BurnTxID = txID
	return o.transition(run, types.PhaseBurnSubmitted)
}

func (o *Orchestrator) awaitBurn(ctx context.Context, run *types.TransferRun) (bool, error) {
	tx, err := o.gateway.AwaitConfirmation(ctx, run.BurnTxID)
	if err != nil {
		var txFailed *types.TransactionFailedError
		if errors.As(err, &txFailed) {
			// the approval already confirmed, so on-chain state needs a
			// manual look; the approval hash stays on the record
			return o.fail(run, types.CauseTransactionFailed,
				fmt.Sprintf("burn transaction %s failed after approval %s confirmed", run.BurnTxID, run.ApprovalTxHash))
		}
		return false, err
	}

	run.BurnTxHash = tx.TxHash
	return o.transition(run, types.PhaseBurnConfirmed)
}

func (o *Orchestrator) extractMessage(ctx context.Context, run *types.TransferRun) (bool, error) {
	messageBytes, messageHash, err := o.reader.ExtractMessage(ctx, run.SourceChain, run.BurnTxHash)
	if err != nil {
		if errors.Is(err, types.ErrMessageEventNotFound) {
			// the burn confirmed but emitted no bridge message; retrying
			// cannot change the receipt, an operator has to step in
			return o.fail(run, types.CauseMessageNotFound,
				fmt.Sprintf("burn %s emitted no bridge message", run.BurnTxHash))
		}
		o.logger.Warn("receipt read failed, will retry", zap.String("runId", run.ID), zap.Error(err))
		return false, nil
	}

	run.MessageBytes = messageBytes
	run.MessageHash = messageHash
	return o.transition(run, types.PhaseMessageExtracted)
}

// enterAttestationWait persists the awaiting_attestation phase. From here
// on the run is recoverable from its messageHash alone.
func (o *Orchestrator) enterAttestationWait(run *types.TransferRun) (bool, error) {
	return o.transition(run, types.PhaseAwaitingAttestation)
}

func (o *Orchestrator) pollAttestation(ctx context.Context, run *types.TransferRun) (bool, error) {
	if o.AttestationTimeout > 0 {
		// TsUpdated was stamped when the run entered this phase and the
		// phase does not change while waiting
		waitingSince := time.Unix(run.TsUpdated, 0)
		if time.Since(waitingSince) > o.AttestationTimeout {
			return o.fail(run, types.CauseAttestationTimeout,
				fmt.Sprintf("no attestation for %s after %s", run.MessageHash, o.AttestationTimeout))
		}
	}

	rec, err := o.attestor.Poll(ctx, run.MessageHash)
	if err != nil {
		if errors.Is(err, types.ErrAttestationService) {
			return o.fail(run, types.CauseAttestationService, err.Error())
		}
		// network errors and 5xx are absorbed, never surfaced
		o.logger.Warn("attestation poll failed, will retry", zap.String("runId", run.ID), zap.Error(err))
		return false, nil
	}

	if rec.Status != types.AttestationComplete {
		return false, nil
	}

	run.Attestation = rec.Attestation
	return o.transition(run, types.PhaseAttestationReceived)
}

func (o *Orchestrator) submitMint(ctx context.Context, run *types.TransferRun) (bool, error) {
	dest, err := o.Registry(run.DestChain)
	if err != nil {
		return o.fail(run, types.CauseUnsupportedChain, err.Error())
	}

	if run.DestWalletID == "" {
		if progressed, err := o.resolveDestWallet(ctx, run); !progressed || err != nil {
			return progressed, err
		}
	}

	// a mint id recorded by an earlier attempt means the submission
	// already happened; do not submit twice
	if run.MintTxID == "" {
		txID, err := o.gateway.SubmitContractCall(ctx, run.DestWalletID,
			dest.MessageTransmitterContract,
			"receiveMessage(bytes,bytes)",
			[]interface{}{run.MessageBytes, run.Attestation},
			circle.FeeLevelHigh)
		if err != nil {
			if errors.Is(err, types.ErrGatewayUnavailable) {
				o.logger.Warn("gateway unavailable, mint submission deferred", zap.String("runId", run.ID), zap.Error(err))
				return false, nil
			}
			return o.fail(run, types.CauseTransactionFailed, fmt.Sprintf("submitting mint: %s", err.Error()))
		}
		run.MintTxID = txID
	}

	return o.transition(run, types.PhaseMintSubmitted)
}

// resolveDestWallet finds or provisions the custodial wallet minting on
// the destination chain. Reported as no-progress on gateway outage so
// the step is retried.
func (o *Orchestrator) resolveDestWallet(ctx context.Context, run *types.TransferRun) (bool, error) {
	wallets, err := o.gateway.ListWallets(ctx)
	if err != nil {
		o.logger.Warn("wallet listing failed, will retry", zap.String("runId", run.ID), zap.Error(err))
		return false, nil
	}
	for i := range wallets {
		if wallets[i].Blockchain == run.DestChain {
			run.DestWalletID = wallets[i].ID
			return true, nil
		}
	}

	wallet, err := o.gateway.CreateWallet(ctx, run.DestChain)
	if err != nil {
		o.logger.Warn("wallet creation failed, will retry", zap.String("runId", run.ID), zap.Error(err))
		return false, nil
	}
	run.DestWalletID = wallet.ID
	return true, nil
}

func (o *Orchestrator) awaitMint(ctx context.Context, run *types.TransferRun) (bool, error) {
	tx, err := o.gateway.AwaitConfirmation(ctx, run.MintTxID)
	if err != nil {
		var txFailed *types.TransactionFailedError
		if errors.As(err, &txFailed) {
			// messageHash and attestation stay on the record so the mint
			// can be retried without repeating the burn
			return o.fail(run, types.CauseTransactionFailed,
				fmt.Sprintf("mint transaction %s failed, message %s remains mintable", run.MintTxID, run.MessageHash))
		}
		return false, err
	}

	run.MintTxHash = tx.TxHash
	return o.transition(run, types.PhaseMintConfirmed)
}

// Cancel aborts a run that has not yet burned funds. Once the burn is
// confirmed the source balance is destroyed and only completion can
// restore value, so cancellation is refused. The conditional failure
// write races fairly with a claimed executor: whichever transition
// persists first wins, a conflict here means the run moved on and the
// cancellability check is redone against the new phase.
func (o *Orchestrator) Cancel(runID string) (*types.TransferRun, error) {
	for {
		run, err := o.store.GetRun(runID)
		if err != nil {
			return nil, err
		}
		if run == nil {
			return nil, fmt.Errorf("transfer run %s not found", runID)
		}
		if run.Phase.Terminal() {
			return nil, fmt.Errorf("transfer run %s already terminal (%s)", runID, run.Phase)
		}
		if run.Phase.BurnCommitted() {
			return nil, types.ErrRunNotCancellable
		}

		if _, err := o.fail(run, types.CauseCancelledBeforeBurn, "cancelled by request"); err != nil {
			if errors.Is(err, types.ErrPhaseConflict) {
				continue
			}
			return nil, err
		}
		return run, nil
	}
}

// AttestationStatus answers the idempotent status query by messageHash:
// one live poll against the attestation service plus the owning run, if
// the hash is known to the store. Safe at any polling cadence, it never
// mutates run state.
func (o *Orchestrator) AttestationStatus(ctx context.Context, messageHash string) (*types.AttestationRecord, *types.TransferRun, error) {
	rec, err := o.attestor.Poll(ctx, messageHash)
	if err != nil {
		return nil, nil, err
	}
	run, err := o.store.FindRunByMessageHash(messageHash)
	if err != nil {
		// the attestation answer is still valid; report it without the
		// owning run rather than failing the whole query
		o.logger.Warn("run lookup by message hash failed",
			zap.String("messageHash", messageHash),
			zap.Error(err))
		return rec, nil, nil
	}
	return rec, run, nil
}
