package workers

import (
	"context"
	"testing"
	"time"

	"agora/contexts/governance-core/governance-engine/adapters/memory"
	"agora/contexts/governance-core/governance-engine/application/commands"
	"agora/contexts/governance-core/governance-engine/ports"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

type capturingPublisher struct {
	topics []string
	events []ports.EventEnvelope
}

func (p *capturingPublisher) Publish(_ context.Context, topic string, event ports.EventEnvelope) error {
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
	return nil
}

func buildGovernance(t *testing.T) (*commands.Engine, *memory.Store, *fakeClock) {
	t.Helper()
	store := memory.NewStore()
	clock := &fakeClock{now: time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)}
	engine := &commands.Engine{
		Members:   store,
		Proposals: store,
		Treasury:  store,
		Outbox:    store,
		Clock:     clock,
		IDGen:     store,
		Config:    commands.DefaultConfig("admin"),
	}
	if err := engine.InitializeDAO(context.Background(), commands.InitializeDAOCommand{
		CallerID: "admin",
		Members: []commands.MemberInput{
			{Address: "alice", VotingPower: 60},
			{Address: "bob", VotingPower: 40},
		},
	}); err != nil {
		t.Fatalf("initialize dao failed: %v", err)
	}
	return engine, store, clock
}

func TestProposalSettlerExecutesElapsedProposals(t *testing.T) {
	engine, store, clock := buildGovernance(t)

	if _, err := engine.CreateProposal(context.Background(), commands.CreateProposalCommand{
		CallerID:    "alice",
		Title:       "Adopt charter",
		Description: "Policy change",
		Deposit:     1,
	}); err != nil {
		t.Fatalf("create proposal failed: %v", err)
	}
	if _, err := engine.CastVote(context.Background(), commands.CastVoteCommand{CallerID: "alice", ProposalID: 0, Support: true}); err != nil {
		t.Fatalf("alice vote failed: %v", err)
	}
	if _, err := engine.CastVote(context.Background(), commands.CastVoteCommand{CallerID: "bob", ProposalID: 0, Support: true}); err != nil {
		t.Fatalf("bob vote failed: %v", err)
	}

	settler := ProposalSettler{
		Engine:    engine,
		Proposals: store,
		Clock:     clock,
	}

	// Window still open: nothing to settle.
	if err := settler.RunOnce(context.Background()); err != nil {
		t.Fatalf("settler run failed: %v", err)
	}
	proposal, err := store.GetProposal(context.Background(), 0)
	if err != nil {
		t.Fatalf("get proposal failed: %v", err)
	}
	if proposal.Executed {
		t.Fatalf("proposal must not settle before the window elapses")
	}

	clock.now = clock.now.Add(7*24*time.Hour + time.Second)
	if err := settler.RunOnce(context.Background()); err != nil {
		t.Fatalf("settler run failed: %v", err)
	}
	proposal, err = store.GetProposal(context.Background(), 0)
	if err != nil {
		t.Fatalf("get proposal failed: %v", err)
	}
	if !proposal.Executed || !proposal.ExecutionSuccess {
		t.Fatalf("expected settled successful proposal, got executed=%v success=%v", proposal.Executed, proposal.ExecutionSuccess)
	}

	// A second cycle sees nothing executable.
	if err := settler.RunOnce(context.Background()); err != nil {
		t.Fatalf("idle settler run failed: %v", err)
	}
}

func TestOutboxRelayPublishesPendingRows(t *testing.T) {
	engine, store, _ := buildGovernance(t)

	if err := engine.ReceiveDonation(context.Background(), commands.ReceiveDonationCommand{From: "patron", Amount: 20}); err != nil {
		t.Fatalf("donation failed: %v", err)
	}

	publisher := &capturingPublisher{}
	relay := OutboxRelay{
		Outbox:    store,
		Publisher: publisher,
	}
	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("relay run failed: %v", err)
	}

	// Two genesis member_added events plus the funds_received event.
	if len(publisher.events) != 3 {
		t.Fatalf("expected 3 published events, got %d", len(publisher.events))
	}
	var donationSeen bool
	for _, topic := range publisher.topics {
		if topic == commands.EventFundsReceived {
			donationSeen = true
		}
	}
	if !donationSeen {
		t.Fatalf("expected %s topic among %v", commands.EventFundsReceived, publisher.topics)
	}

	// Published rows drop out of the pending set.
	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("second relay run failed: %v", err)
	}
	if len(publisher.events) != 3 {
		t.Fatalf("expected no republish, got %d events", len(publisher.events))
	}

	pending, err := store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected empty pending outbox, got %d rows", len(pending))
	}
}
