package workers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	application "agora/contexts/governance-core/governance-engine/application"
	"agora/contexts/governance-core/governance-engine/application/commands"
	domainerrors "agora/contexts/governance-core/governance-engine/domain/errors"
	"agora/contexts/governance-core/governance-engine/ports"
)

// ProposalSettler executes proposals whose voting window has elapsed.
// Execution is permissionless, so the worker needs no identity; manual
// execution through the API stays available and whichever trigger arrives
// second fails the executed-once guard harmlessly.
type ProposalSettler struct {
	Engine    *commands.Engine
	Proposals ports.ProposalRepository
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

// RunOnce settles a bounded batch of executable proposals, oldest first.
func (s ProposalSettler) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(s.Logger)
	limit := s.BatchSize
	if limit <= 0 {
		limit = 50
	}
	now := time.Now().UTC()
	if s.Clock != nil {
		now = s.Clock.Now().UTC()
	}

	executable, err := s.Proposals.ListExecutable(ctx, now, limit)
	if err != nil {
		logger.Error("governance settler list failed",
			"event", "governance_settler_list_failed",
			"module", "governance-core/governance-engine",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	if len(executable) == 0 {
		return nil
	}

	for _, proposal := range executable {
		result, err := s.Engine.ExecuteProposal(ctx, commands.ExecuteProposalCommand{
			ProposalID:  proposal.ID,
			TriggeredBy: "proposal-settler",
		})
		if err != nil {
			// Lost the race against a manual execute call; nothing to redo.
			if errors.Is(err, domainerrors.ErrAlreadyExecuted) {
				continue
			}
			logger.Error("governance settler execute failed",
				"event", "governance_settler_execute_failed",
				"module", "governance-core/governance-engine",
				"layer", "worker",
				"proposal_id", proposal.ID,
				"error", err.Error(),
			)
			return err
		}
		logger.Info("governance settler executed proposal",
			"event", "governance_settler_executed",
			"module", "governance-core/governance-engine",
			"layer", "worker",
			"proposal_id", proposal.ID,
			"passed", result.Passed,
			"success", result.Success,
		)
	}
	return nil
}
