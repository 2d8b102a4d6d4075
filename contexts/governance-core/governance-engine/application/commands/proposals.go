package commands

import (
	"context"
	"errors"
	"strings"

	"agora/contexts/governance-core/governance-engine/domain/entities"
	domainerrors "agora/contexts/governance-core/governance-engine/domain/errors"
)

// CreateProposalCommand submits an action for a vote. Deposit is the stake
// the proposer attaches; it is credited to the treasury and refunded at
// execution regardless of outcome.
type CreateProposalCommand struct {
	CallerID    string
	Title       string
	Description string
	Amount      uint64
	Recipient   string
	Deposit     uint64
}

// CastVoteCommand records one member's ballot on an open proposal.
type CastVoteCommand struct {
	CallerID   string
	ProposalID uint64
	Support    bool
}

// ExecuteProposalCommand settles a proposal whose window has elapsed.
// Execution is permissionless: TriggeredBy is recorded for the audit trail
// but carries no authorization weight.
type ExecuteProposalCommand struct {
	ProposalID  uint64
	TriggeredBy string
}

// ExecuteResult reports the settlement outcome. Passed is the vote verdict;
// Success additionally requires the payout to clear on financial proposals.
// Callers must inspect Success, not just the absence of an error, to know
// whether funds moved.
type ExecuteResult struct {
	Proposal         entities.Proposal
	Passed           bool
	Success          bool
	QuorumRequired   uint64
	MajorityRequired uint64
}

// CreateProposal validates membership, deposit and treasury solvency, then
// opens the voting window. The solvency check on financial proposals is
// advisory: funds are not escrowed, so concurrent proposals can each pass it
// and still not all be payable at execution.
func (e *Engine) CreateProposal(ctx context.Context, cmd CreateProposalCommand) (entities.Proposal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	logger := e.logger()
	caller := strings.TrimSpace(cmd.CallerID)

	initialized, err := e.Members.IsInitialized(ctx)
	if err != nil {
		return entities.Proposal{}, err
	}
	if !initialized {
		return entities.Proposal{}, domainerrors.ErrNotInitialized
	}
	if _, err := e.requireActiveMember(ctx, caller); err != nil {
		return entities.Proposal{}, err
	}

	title := strings.TrimSpace(cmd.Title)
	if title == "" {
		return entities.Proposal{}, domainerrors.ErrEmptyTitle
	}
	description := strings.TrimSpace(cmd.Description)
	if description == "" {
		return entities.Proposal{}, domainerrors.ErrEmptyDescription
	}
	if cmd.Deposit < e.Config.ProposalDeposit {
		return entities.Proposal{}, domainerrors.ErrInvalidDeposit
	}

	recipient := strings.TrimSpace(cmd.Recipient)
	if cmd.Amount > 0 {
		if recipient == "" {
			return entities.Proposal{}, domainerrors.ErrRecipientRequired
		}
		balance, err := e.Treasury.Balance(ctx)
		if err != nil {
			return entities.Proposal{}, err
		}
		if balance < cmd.Amount+e.Config.ProposalDeposit {
			logger.Warn("proposal solvency check failed",
				"event", "governance_proposal_solvency_failed",
				"module", moduleLabel,
				"layer", "application",
				"proposer", caller,
				"amount", cmd.Amount,
				"balance", balance,
			)
			return entities.Proposal{}, domainerrors.ErrInsufficientFunds
		}
	} else {
		recipient = ""
	}

	now := e.now()
	proposal := entities.Proposal{
		Title:       title,
		Description: description,
		Proposer:    caller,
		Amount:      cmd.Amount,
		Recipient:   recipient,
		Deposit:     cmd.Deposit,
		StartTime:   now,
		EndTime:     now.Add(e.Config.votingPeriod()),
	}
	created, err := e.Proposals.CreateProposal(ctx, proposal)
	if err != nil {
		return entities.Proposal{}, err
	}

	depositID := created.ID
	if err := e.Treasury.Credit(ctx, entities.TreasuryEntry{
		Kind:         entities.TreasuryEntryDeposit,
		Counterparty: caller,
		ProposalID:   &depositID,
		Amount:       cmd.Deposit,
		OccurredAt:   now,
	}); err != nil {
		return entities.Proposal{}, err
	}

	if err := e.appendEvent(ctx, EventProposalCreated, "proposal_id", proposalKey(created.ID), now, map[string]any{
		"proposal_id": created.ID,
		"title":       created.Title,
		"proposer":    created.Proposer,
		"amount":      created.Amount,
		"recipient":   created.Recipient,
		"deposit":     created.Deposit,
		"start_time":  created.StartTime.UTC(),
		"end_time":    created.EndTime.UTC(),
	}); err != nil {
		return entities.Proposal{}, err
	}

	logger.Info("proposal created",
		"event", "governance_proposal_created",
		"module", moduleLabel,
		"layer", "application",
		"proposal_id", created.ID,
		"proposer", created.Proposer,
		"amount", created.Amount,
		"end_time", created.EndTime.UTC().String(),
	)
	return created, nil
}

// CastVote records the caller's ballot with their current voting power. A
// member whose power changed since the proposal was created votes with the
// new value; a member removed before voting cannot vote at all.
func (e *Engine) CastVote(ctx context.Context, cmd CastVoteCommand) (entities.Ballot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	caller := strings.TrimSpace(cmd.CallerID)
	power, err := e.requireActiveMember(ctx, caller)
	if err != nil {
		return entities.Ballot{}, err
	}

	proposal, err := e.Proposals.GetProposal(ctx, cmd.ProposalID)
	if err != nil {
		return entities.Ballot{}, err
	}
	if proposal.Executed {
		return entities.Ballot{}, domainerrors.ErrAlreadyExecuted
	}
	now := e.now()
	if !proposal.VotingOpenAt(now) {
		return entities.Ballot{}, domainerrors.ErrVotingClosed
	}

	ballot := entities.Ballot{
		ProposalID: proposal.ID,
		Voter:      caller,
		Support:    cmd.Support,
		Power:      power,
		CastAt:     now,
	}
	if err := e.Proposals.RecordBallot(ctx, ballot); err != nil {
		return entities.Ballot{}, err
	}

	if err := e.appendEvent(ctx, EventVoteCast, "proposal_id", proposalKey(proposal.ID), now, map[string]any{
		"proposal_id": proposal.ID,
		"voter":       caller,
		"support":     cmd.Support,
		"power":       power,
	}); err != nil {
		return entities.Ballot{}, err
	}

	e.logger().Info("vote cast",
		"event", "governance_vote_cast",
		"module", moduleLabel,
		"layer", "application",
		"proposal_id", proposal.ID,
		"voter", caller,
		"support", cmd.Support,
		"power", power,
	)
	return ballot, nil
}

// ExecuteProposal settles a closed proposal exactly once. The executed flag
// flips first so a second call always fails with ErrAlreadyExecuted, then
// the quorum/majority verdict is computed against current total voting
// power. A passing financial proposal attempts the payout; a payout that
// cannot clear leaves the proposal executed with Success=false. The deposit
// refund to the proposer is attempted unconditionally.
func (e *Engine) ExecuteProposal(ctx context.Context, cmd ExecuteProposalCommand) (ExecuteResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	logger := e.logger()
	proposal, err := e.Proposals.GetProposal(ctx, cmd.ProposalID)
	if err != nil {
		return ExecuteResult{}, err
	}
	if proposal.Executed {
		return ExecuteResult{}, domainerrors.ErrAlreadyExecuted
	}
	now := e.now()
	if !now.After(proposal.EndTime.UTC()) {
		return ExecuteResult{}, domainerrors.ErrVotingNotEnded
	}

	if err := e.Proposals.MarkExecuted(ctx, proposal.ID, now); err != nil {
		return ExecuteResult{}, err
	}

	totalPower, err := e.Members.TotalVotingPower(ctx)
	if err != nil {
		return ExecuteResult{}, err
	}
	totalVotes := proposal.TotalVotes()
	quorumRequired := totalPower * e.Config.quorumPct() / 100
	majorityRequired := totalVotes * e.Config.majorityPct() / 100
	passed := totalVotes >= quorumRequired && proposal.VotesFor >= majorityRequired

	success := passed
	if passed && proposal.Financial() {
		transferID := proposal.ID
		err := e.Treasury.Transfer(ctx, entities.TreasuryEntry{
			Kind:         entities.TreasuryEntryTransfer,
			Counterparty: proposal.Recipient,
			ProposalID:   &transferID,
			Amount:       proposal.Amount,
			OccurredAt:   now,
		})
		switch {
		case err == nil:
		case errors.Is(err, domainerrors.ErrInsufficientFunds), errors.Is(err, domainerrors.ErrTransferRejected):
			// The governance verdict stands even when the payout cannot
			// clear; the failure surfaces through the success flag.
			success = false
			logger.Warn("proposal payout failed",
				"event", "governance_payout_failed",
				"module", moduleLabel,
				"layer", "application",
				"proposal_id", proposal.ID,
				"recipient", proposal.Recipient,
				"amount", proposal.Amount,
				"error", err.Error(),
			)
		default:
			return ExecuteResult{}, err
		}
	}

	if err := e.Proposals.SetExecutionOutcome(ctx, proposal.ID, success); err != nil {
		return ExecuteResult{}, err
	}

	refundID := proposal.ID
	refundErr := e.Treasury.Transfer(ctx, entities.TreasuryEntry{
		Kind:         entities.TreasuryEntryRefund,
		Counterparty: proposal.Proposer,
		ProposalID:   &refundID,
		Amount:       proposal.Deposit,
		OccurredAt:   now,
	})
	if refundErr != nil {
		if !errors.Is(refundErr, domainerrors.ErrInsufficientFunds) && !errors.Is(refundErr, domainerrors.ErrTransferRejected) {
			return ExecuteResult{}, refundErr
		}
		logger.Warn("deposit refund failed",
			"event", "governance_deposit_refund_failed",
			"module", moduleLabel,
			"layer", "application",
			"proposal_id", proposal.ID,
			"proposer", proposal.Proposer,
			"deposit", proposal.Deposit,
			"error", refundErr.Error(),
		)
	}

	if err := e.appendEvent(ctx, EventProposalExecuted, "proposal_id", proposalKey(proposal.ID), now, map[string]any{
		"proposal_id":       proposal.ID,
		"passed":            passed,
		"success":           success,
		"votes_for":         proposal.VotesFor,
		"votes_against":     proposal.VotesAgainst,
		"quorum_required":   quorumRequired,
		"majority_required": majorityRequired,
		"triggered_by":      strings.TrimSpace(cmd.TriggeredBy),
	}); err != nil {
		return ExecuteResult{}, err
	}

	logger.Info("proposal executed",
		"event", "governance_proposal_executed",
		"module", moduleLabel,
		"layer", "application",
		"proposal_id", proposal.ID,
		"passed", passed,
		"success", success,
		"votes_for", proposal.VotesFor,
		"votes_against", proposal.VotesAgainst,
		"quorum_required", quorumRequired,
		"majority_required", majorityRequired,
	)

	executedAt := now
	proposal.Executed = true
	proposal.ExecutedAt = &executedAt
	proposal.ExecutionSuccess = success
	return ExecuteResult{
		Proposal:         proposal,
		Passed:           passed,
		Success:          success,
		QuorumRequired:   quorumRequired,
		MajorityRequired: majorityRequired,
	}, nil
}
