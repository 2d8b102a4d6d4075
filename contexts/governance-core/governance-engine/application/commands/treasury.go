package commands

import (
	"context"
	"strings"

	"agora/contexts/governance-core/governance-engine/domain/entities"
)

// ReceiveDonationCommand credits an unsolicited incoming transfer. Open to
// anyone; never fails on valid state.
type ReceiveDonationCommand struct {
	From   string
	Amount uint64
}

// ReceiveDonation is the explicit entry point integrations invoke whenever
// value arrives unsolicited.
func (e *Engine) ReceiveDonation(ctx context.Context, cmd ReceiveDonationCommand) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	from := strings.TrimSpace(cmd.From)
	if err := e.Treasury.Credit(ctx, entities.TreasuryEntry{
		Kind:         entities.TreasuryEntryDonation,
		Counterparty: from,
		Amount:       cmd.Amount,
		OccurredAt:   now,
	}); err != nil {
		return err
	}

	if err := e.appendEvent(ctx, EventFundsReceived, "counterparty", from, now, map[string]any{
		"from":   from,
		"amount": cmd.Amount,
	}); err != nil {
		return err
	}

	e.logger().Info("donation received",
		"event", "governance_donation_received",
		"module", moduleLabel,
		"layer", "application",
		"from", from,
		"amount", cmd.Amount,
	)
	return nil
}
