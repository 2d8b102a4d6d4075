package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"agora/contexts/governance-core/governance-engine/domain/entities"
	domainerrors "agora/contexts/governance-core/governance-engine/domain/errors"
)

func addMember(t *testing.T, store *Store, address string, power uint64) {
	t.Helper()
	err := store.AddMember(context.Background(), entities.Member{
		Address:     address,
		VotingPower: power,
		JoinedAt:    time.Now().UTC(),
		Active:      true,
	})
	if err != nil {
		t.Fatalf("add member %s failed: %v", address, err)
	}
}

func TestDeactivateMemberSwapsWithLast(t *testing.T) {
	store := NewStore()
	addMember(t, store, "alice", 60)
	addMember(t, store, "bob", 25)
	addMember(t, store, "carol", 15)

	removed, err := store.DeactivateMember(context.Background(), "alice")
	if err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	if removed.Active || removed.VotingPower != 60 {
		t.Fatalf("unexpected removed record: %+v", removed)
	}

	members, err := store.ListActiveMembers(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 active members, got %d", len(members))
	}
	// The last member fills the freed slot, so carol now precedes bob.
	if members[0].Address != "carol" || members[1].Address != "bob" {
		t.Fatalf("unexpected slot order: %s, %s", members[0].Address, members[1].Address)
	}

	total, err := store.TotalVotingPower(context.Background())
	if err != nil {
		t.Fatalf("total power failed: %v", err)
	}
	if total != 40 {
		t.Fatalf("expected total power 40, got %d", total)
	}
}

func TestDeactivateMemberErrors(t *testing.T) {
	store := NewStore()
	addMember(t, store, "alice", 60)

	if _, err := store.DeactivateMember(context.Background(), "ghost"); !errors.Is(err, domainerrors.ErrMemberNotFound) {
		t.Fatalf("expected ErrMemberNotFound, got %v", err)
	}
	if _, err := store.DeactivateMember(context.Background(), "alice"); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	if _, err := store.DeactivateMember(context.Background(), "alice"); !errors.Is(err, domainerrors.ErrMemberInactive) {
		t.Fatalf("expected ErrMemberInactive, got %v", err)
	}
}

func TestAddMemberRejectsActiveDuplicate(t *testing.T) {
	store := NewStore()
	addMember(t, store, "alice", 60)

	err := store.AddMember(context.Background(), entities.Member{Address: "alice", VotingPower: 10})
	if !errors.Is(err, domainerrors.ErrMemberExists) {
		t.Fatalf("expected ErrMemberExists, got %v", err)
	}

	// A deactivated address may rejoin with fresh power.
	if _, err := store.DeactivateMember(context.Background(), "alice"); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	addMember(t, store, "alice", 10)
	total, _ := store.TotalVotingPower(context.Background())
	if total != 10 {
		t.Fatalf("expected total power 10 after rejoin, got %d", total)
	}
}

func TestRecordBallotOnce(t *testing.T) {
	store := NewStore()
	created, err := store.CreateProposal(context.Background(), entities.Proposal{Title: "t", Description: "d"})
	if err != nil {
		t.Fatalf("create proposal failed: %v", err)
	}

	ballot := entities.Ballot{ProposalID: created.ID, Voter: "alice", Support: true, Power: 7}
	if err := store.RecordBallot(context.Background(), ballot); err != nil {
		t.Fatalf("record ballot failed: %v", err)
	}
	if err := store.RecordBallot(context.Background(), ballot); !errors.Is(err, domainerrors.ErrAlreadyVoted) {
		t.Fatalf("expected ErrAlreadyVoted, got %v", err)
	}

	stored, err := store.GetProposal(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get proposal failed: %v", err)
	}
	if stored.VotesFor != 7 || stored.VotesAgainst != 0 {
		t.Fatalf("unexpected tallies: for=%d against=%d", stored.VotesFor, stored.VotesAgainst)
	}
}

func TestMarkExecutedOnce(t *testing.T) {
	store := NewStore()
	created, err := store.CreateProposal(context.Background(), entities.Proposal{Title: "t", Description: "d"})
	if err != nil {
		t.Fatalf("create proposal failed: %v", err)
	}

	now := time.Now().UTC()
	if err := store.MarkExecuted(context.Background(), created.ID, now); err != nil {
		t.Fatalf("mark executed failed: %v", err)
	}
	if err := store.MarkExecuted(context.Background(), created.ID, now); !errors.Is(err, domainerrors.ErrAlreadyExecuted) {
		t.Fatalf("expected ErrAlreadyExecuted, got %v", err)
	}
}

func TestTransferInsufficientFundsLeavesStateUnchanged(t *testing.T) {
	store := NewStore()
	if err := store.Credit(context.Background(), entities.TreasuryEntry{Kind: entities.TreasuryEntryDonation, Amount: 5}); err != nil {
		t.Fatalf("credit failed: %v", err)
	}

	err := store.Transfer(context.Background(), entities.TreasuryEntry{Kind: entities.TreasuryEntryTransfer, Counterparty: "vendor", Amount: 6})
	if !errors.Is(err, domainerrors.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	balance, _ := store.Balance(context.Background())
	if balance != 5 {
		t.Fatalf("expected balance 5, got %d", balance)
	}
	entries, _ := store.ListEntries(context.Background(), 0)
	if len(entries) != 1 {
		t.Fatalf("failed transfer must not be journaled, got %d entries", len(entries))
	}
}
