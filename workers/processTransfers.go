package workers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"gousdcbridge/bridge"
	"gousdcbridge/config"
	"gousdcbridge/types"
)

// WorkerShutdown signals all worker loops to exit.
var WorkerShutdown bool

// phases scanned by the pool, oldest work first so restarts resume
// in-flight runs before picking up new ones
var processablePhases = []types.Phase{
	types.PhaseAwaitingAttestation,
	types.PhaseAttestationReceived,
	types.PhaseMintSubmitted,
	types.PhaseBurnConfirmed,
	types.PhaseMessageExtracted,
	types.PhaseBurnSubmitted,
	types.PhaseApprovalConfirmed,
	types.PhaseApprovalSubmitted,
	types.PhaseCreated,
}

// Worker_processTransfers drives every non-terminal transfer run to
// completion. Runs are claimed through the orchestrator, so a run being
// executed synchronously by an API call is skipped here, and a bounded
// pool keeps many concurrent attestation waits from holding more than
// their goroutines. Because each phase is persisted before its wait,
// rescanning the phase sets after a restart resumes exactly where the
// previous process stopped.
func Worker_processTransfers(logger *zap.Logger, orch *bridge.Orchestrator, store bridge.RunStore) {
	logger = logger.With(zap.String("component", "workers.processTransfers"))

	sem := make(chan struct{}, config.Config.Bridge.MaxConcurrentRuns)

	for !WorkerShutdown {
		time.Sleep(3 * time.Second)

		for _, phase := range processablePhases {
			runs, err := store.FindRunsByPhase(phase)
			if err != nil {
				logger.Error("error scanning runs by phase",
					zap.String("phase", string(phase)),
					zap.Error(err))
				continue
			}

			for _, run := range runs {
				if orch.Claimed(run.ID) {
					continue
				}

				sem <- struct{}{}
				go func(runID string) {
					defer func() { <-sem }()

					if _, err := orch.Execute(context.Background(), runID); err != nil && err != bridge.ErrRunBusy {
						logger.Error("error executing transfer run",
							zap.String("runId", runID),
							zap.Error(err))
					}
				}(run.ID)
			}
		}
	}
}
