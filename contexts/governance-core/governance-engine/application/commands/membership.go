package commands

import (
	"context"
	"strings"

	"agora/contexts/governance-core/governance-engine/domain/entities"
	domainerrors "agora/contexts/governance-core/governance-engine/domain/errors"
)

// MemberInput is one (address, power) pair for genesis initialization.
type MemberInput struct {
	Address     string
	VotingPower uint64
}

// InitializeDAOCommand seeds the member set. Administrator-only, once.
type InitializeDAOCommand struct {
	CallerID string
	Members  []MemberInput
}

// AddMemberCommand activates a new member. Administrator-only.
type AddMemberCommand struct {
	CallerID    string
	Address     string
	VotingPower uint64
}

// RemoveMemberCommand soft-deletes an active member. Administrator-only.
type RemoveMemberCommand struct {
	CallerID string
	Address  string
}

// InitializeDAO validates the full member list before touching state, so a
// single invalid entry leaves the registry untouched. Emits one member_added
// event per entry.
func (e *Engine) InitializeDAO(ctx context.Context, cmd InitializeDAOCommand) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	logger := e.logger()
	if err := e.requireAdmin(strings.TrimSpace(cmd.CallerID)); err != nil {
		return err
	}

	initialized, err := e.Members.IsInitialized(ctx)
	if err != nil {
		return err
	}
	if initialized {
		return domainerrors.ErrAlreadyInitialized
	}
	if len(cmd.Members) == 0 {
		return domainerrors.ErrEmptyMemberList
	}

	now := e.now()
	seen := make(map[string]struct{}, len(cmd.Members))
	entries := make([]entities.Member, 0, len(cmd.Members))
	for _, input := range cmd.Members {
		address := strings.TrimSpace(input.Address)
		if address == "" {
			return domainerrors.ErrInvalidMemberAddress
		}
		if _, dup := seen[address]; dup {
			return domainerrors.ErrDuplicateMember
		}
		if input.VotingPower == 0 {
			return domainerrors.ErrInvalidVotingPower
		}
		if _, found, err := e.Members.GetMember(ctx, address); err != nil {
			return err
		} else if found {
			return domainerrors.ErrDuplicateMember
		}
		seen[address] = struct{}{}
		entries = append(entries, entities.Member{
			Address:     address,
			VotingPower: input.VotingPower,
			JoinedAt:    now,
			Active:      true,
		})
	}

	for _, member := range entries {
		if err := e.Members.AddMember(ctx, member); err != nil {
			return err
		}
		if err := e.appendEvent(ctx, EventMemberAdded, "member_address", member.Address, now, map[string]any{
			"member_address": member.Address,
			"voting_power":   member.VotingPower,
			"joined_at":      member.JoinedAt.Format("2006-01-02T15:04:05Z07:00"),
		}); err != nil {
			return err
		}
	}
	if err := e.Members.MarkInitialized(ctx); err != nil {
		return err
	}

	totalPower, err := e.Members.TotalVotingPower(ctx)
	if err != nil {
		return err
	}
	logger.Info("dao initialized",
		"event", "governance_dao_initialized",
		"module", moduleLabel,
		"layer", "application",
		"member_count", len(entries),
		"total_voting_power", totalPower,
	)
	return nil
}

// AddMember activates a new member with the given power.
func (e *Engine) AddMember(ctx context.Context, cmd AddMemberCommand) (entities.Member, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireAdmin(strings.TrimSpace(cmd.CallerID)); err != nil {
		return entities.Member{}, err
	}
	address := strings.TrimSpace(cmd.Address)
	if address == "" {
		return entities.Member{}, domainerrors.ErrInvalidMemberAddress
	}
	if cmd.VotingPower == 0 {
		return entities.Member{}, domainerrors.ErrInvalidVotingPower
	}

	now := e.now()
	member := entities.Member{
		Address:     address,
		VotingPower: cmd.VotingPower,
		JoinedAt:    now,
		Active:      true,
	}
	if err := e.Members.AddMember(ctx, member); err != nil {
		return entities.Member{}, err
	}
	if err := e.appendEvent(ctx, EventMemberAdded, "member_address", address, now, map[string]any{
		"member_address": address,
		"voting_power":   cmd.VotingPower,
	}); err != nil {
		return entities.Member{}, err
	}

	e.logger().Info("member added",
		"event", "governance_member_added",
		"module", moduleLabel,
		"layer", "application",
		"member_address", address,
		"voting_power", cmd.VotingPower,
	)
	return member, nil
}

// RemoveMember soft-deletes an active member. The active index slot is
// reused by the last element, so iteration order shifts.
func (e *Engine) RemoveMember(ctx context.Context, cmd RemoveMemberCommand) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireAdmin(strings.TrimSpace(cmd.CallerID)); err != nil {
		return err
	}
	address := strings.TrimSpace(cmd.Address)

	now := e.now()
	removed, err := e.Members.DeactivateMember(ctx, address)
	if err != nil {
		return err
	}
	if err := e.appendEvent(ctx, EventMemberRemoved, "member_address", address, now, map[string]any{
		"member_address": address,
		"voting_power":   removed.VotingPower,
	}); err != nil {
		return err
	}

	e.logger().Info("member removed",
		"event", "governance_member_removed",
		"module", moduleLabel,
		"layer", "application",
		"member_address", address,
		"voting_power", removed.VotingPower,
	)
	return nil
}
