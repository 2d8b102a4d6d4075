package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	application "agora/contexts/governance-core/governance-engine/application"
	domainerrors "agora/contexts/governance-core/governance-engine/domain/errors"
	"agora/contexts/governance-core/governance-engine/ports"
)

const moduleLabel = "governance-core/governance-engine"

// Engine is the single write path into the DAO: every command validates
// against current state, mutates, and appends an audit event. Commands are
// serialized behind one mutex so no two writes interleave, matching the
// totally-ordered execution model the engine assumes.
type Engine struct {
	Members   ports.MembershipRegistry
	Proposals ports.ProposalRepository
	Treasury  ports.TreasuryLedger
	Outbox    ports.OutboxWriter
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Config    Config
	Logger    *slog.Logger

	mu sync.Mutex
}

func (e *Engine) now() time.Time {
	if e.Clock != nil {
		return e.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func (e *Engine) logger() *slog.Logger {
	return application.ResolveLogger(e.Logger)
}

func (e *Engine) requireAdmin(caller string) error {
	if caller == "" || caller != e.Config.AdminID {
		e.logger().Warn("caller is not the administrator",
			"event", "governance_admin_check_failed",
			"module", moduleLabel,
			"layer", "application",
			"caller", caller,
		)
		return domainerrors.ErrNotAdministrator
	}
	return nil
}

func (e *Engine) requireActiveMember(ctx context.Context, caller string) (uint64, error) {
	member, found, err := e.Members.GetMember(ctx, caller)
	if err != nil {
		return 0, err
	}
	if !found || !member.Active {
		e.logger().Warn("caller is not an active member",
			"event", "governance_membership_check_failed",
			"module", moduleLabel,
			"layer", "application",
			"caller", caller,
		)
		return 0, domainerrors.ErrNotMember
	}
	return member.VotingPower, nil
}

func (e *Engine) appendEvent(
	ctx context.Context,
	eventType string,
	partitionKeyPath string,
	partitionKey string,
	occurredAt time.Time,
	data map[string]any,
) error {
	// Outbox is optional for pure read/test wiring, so nil is treated as no-op.
	if e.Outbox == nil {
		return nil
	}
	eventID, err := e.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	envelope, err := newGovernanceEnvelope(eventID, eventType, partitionKeyPath, partitionKey, occurredAt, data)
	if err != nil {
		return fmt.Errorf("build %s envelope: %w", eventType, err)
	}
	return e.Outbox.AppendOutbox(ctx, envelope)
}

func proposalKey(id uint64) string {
	return strconv.FormatUint(id, 10)
}
