package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"agora/contexts/governance-core/governance-engine/domain/entities"
	domainerrors "agora/contexts/governance-core/governance-engine/domain/errors"
	"agora/contexts/governance-core/governance-engine/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

type ballotKey struct {
	proposalID uint64
	voter      string
}

// Store is the in-memory implementation of every engine port. It is the
// default wiring for tests and local runs.
type Store struct {
	mu sync.RWMutex

	initialized bool
	members     map[string]entities.Member
	activeIndex []string       // dense list of active addresses
	activeSlots map[string]int // address -> index slot

	totalPower uint64

	proposals map[uint64]entities.Proposal
	nextID    uint64
	ballots   map[ballotKey]entities.Ballot

	balance         uint64
	entries         []entities.TreasuryEntry
	rejectTransfers map[string]struct{}

	outbox map[string]outboxRecord
}

func NewStore() *Store {
	return &Store{
		members:         make(map[string]entities.Member),
		activeSlots:     make(map[string]int),
		proposals:       make(map[uint64]entities.Proposal),
		ballots:         make(map[ballotKey]entities.Ballot),
		rejectTransfers: make(map[string]struct{}),
		outbox:          make(map[string]outboxRecord),
	}
}

// RejectTransfersTo simulates an external recipient that declines receipt.
// Test hook only.
func (s *Store) RejectTransfersTo(address string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectTransfers[strings.TrimSpace(address)] = struct{}{}
}

// --- MembershipRegistry ---

func (s *Store) IsInitialized(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized, nil
}

func (s *Store) MarkInitialized(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = true
	return nil
}

func (s *Store) AddMember(_ context.Context, member entities.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	address := strings.TrimSpace(member.Address)
	if existing, ok := s.members[address]; ok && existing.Active {
		return domainerrors.ErrMemberExists
	}
	member.Address = address
	member.Active = true
	s.members[address] = member
	s.activeSlots[address] = len(s.activeIndex)
	s.activeIndex = append(s.activeIndex, address)
	s.totalPower += member.VotingPower
	return nil
}

func (s *Store) DeactivateMember(_ context.Context, address string) (entities.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	address = strings.TrimSpace(address)
	member, ok := s.members[address]
	if !ok {
		return entities.Member{}, domainerrors.ErrMemberNotFound
	}
	if !member.Active {
		return entities.Member{}, domainerrors.ErrMemberInactive
	}

	// Swap-with-last removal: the freed slot is overwritten by the last
	// element and the index shrinks. Iteration order is not preserved.
	slot := s.activeSlots[address]
	last := len(s.activeIndex) - 1
	moved := s.activeIndex[last]
	s.activeIndex[slot] = moved
	s.activeSlots[moved] = slot
	s.activeIndex = s.activeIndex[:last]
	delete(s.activeSlots, address)

	member.Active = false
	s.members[address] = member
	s.totalPower -= member.VotingPower
	return member, nil
}

func (s *Store) GetMember(_ context.Context, address string) (entities.Member, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	member, ok := s.members[strings.TrimSpace(address)]
	return member, ok, nil
}

func (s *Store) ListActiveMembers(_ context.Context) ([]entities.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Member, 0, len(s.activeIndex))
	for _, address := range s.activeIndex {
		items = append(items, s.members[address])
	}
	return items, nil
}

func (s *Store) TotalVotingPower(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalPower, nil
}

// --- ProposalRepository ---

func (s *Store) CreateProposal(_ context.Context, proposal entities.Proposal) (entities.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	proposal.ID = s.nextID
	s.nextID++
	s.proposals[proposal.ID] = proposal
	return proposal, nil
}

func (s *Store) GetProposal(_ context.Context, id uint64) (entities.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	proposal, ok := s.proposals[id]
	if !ok {
		return entities.Proposal{}, domainerrors.ErrProposalNotFound
	}
	return proposal, nil
}

func (s *Store) ListProposals(_ context.Context) ([]entities.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Proposal, 0, len(s.proposals))
	for _, proposal := range s.proposals {
		items = append(items, proposal)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].ID < items[j].ID
	})
	return items, nil
}

func (s *Store) CountProposals(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextID, nil
}

func (s *Store) RecordBallot(_ context.Context, ballot entities.Ballot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	proposal, ok := s.proposals[ballot.ProposalID]
	if !ok {
		return domainerrors.ErrProposalNotFound
	}
	key := ballotKey{proposalID: ballot.ProposalID, voter: strings.TrimSpace(ballot.Voter)}
	if _, voted := s.ballots[key]; voted {
		return domainerrors.ErrAlreadyVoted
	}

	s.ballots[key] = ballot
	if ballot.Support {
		proposal.VotesFor += ballot.Power
	} else {
		proposal.VotesAgainst += ballot.Power
	}
	s.proposals[ballot.ProposalID] = proposal
	return nil
}

func (s *Store) GetBallot(_ context.Context, proposalID uint64, voter string) (entities.Ballot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ballot, ok := s.ballots[ballotKey{proposalID: proposalID, voter: strings.TrimSpace(voter)}]
	return ballot, ok, nil
}

func (s *Store) MarkExecuted(_ context.Context, id uint64, executedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	proposal, ok := s.proposals[id]
	if !ok {
		return domainerrors.ErrProposalNotFound
	}
	if proposal.Executed {
		return domainerrors.ErrAlreadyExecuted
	}
	instant := executedAt.UTC()
	proposal.Executed = true
	proposal.ExecutedAt = &instant
	s.proposals[id] = proposal
	return nil
}

func (s *Store) SetExecutionOutcome(_ context.Context, id uint64, success bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	proposal, ok := s.proposals[id]
	if !ok {
		return domainerrors.ErrProposalNotFound
	}
	proposal.ExecutionSuccess = success
	s.proposals[id] = proposal
	return nil
}

func (s *Store) ListExecutable(_ context.Context, now time.Time, limit int) ([]entities.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	items := make([]entities.Proposal, 0)
	for _, proposal := range s.proposals {
		if proposal.Executed {
			continue
		}
		if !now.UTC().After(proposal.EndTime.UTC()) {
			continue
		}
		items = append(items, proposal)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].ID < items[j].ID
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// --- TreasuryLedger ---

func (s *Store) Balance(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balance, nil
}

func (s *Store) Credit(_ context.Context, entry entities.TreasuryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry = normalizeEntry(entry)
	s.balance += entry.Amount
	s.entries = append(s.entries, entry)
	return nil
}

func (s *Store) Transfer(_ context.Context, entry entities.TreasuryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry = normalizeEntry(entry)
	if s.balance < entry.Amount {
		return domainerrors.ErrInsufficientFunds
	}
	if _, rejected := s.rejectTransfers[entry.Counterparty]; rejected {
		return domainerrors.ErrTransferRejected
	}
	s.balance -= entry.Amount
	s.entries = append(s.entries, entry)
	return nil
}

func (s *Store) ListEntries(_ context.Context, limit int) ([]entities.TreasuryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.entries) {
		limit = len(s.entries)
	}
	items := make([]entities.TreasuryEntry, limit)
	copy(items, s.entries[len(s.entries)-limit:])
	return items, nil
}

func normalizeEntry(entry entities.TreasuryEntry) entities.TreasuryEntry {
	if strings.TrimSpace(entry.EntryID) == "" {
		entry.EntryID = uuid.NewString()
	}
	entry.Counterparty = strings.TrimSpace(entry.Counterparty)
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now().UTC()
	}
	return entry
}

// --- Outbox ---

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	if existing, ok := s.outbox[outboxID]; ok {
		if !bytes.Equal(existing.message.Payload, payload) {
			return domainerrors.ErrConflict
		}
		return nil
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	s.outbox[outboxID] = outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    strings.TrimSpace(envelope.EventType),
			PartitionKey: strings.TrimSpace(envelope.PartitionKey),
			Payload:      payload,
			CreatedAt:    createdAt,
		},
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0, len(s.outbox))
	for _, row := range s.outbox {
		if row.published {
			continue
		}
		items = append(items, row.message)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrConflict
	}
	row.published = true
	s.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

// --- Clock / IDGenerator ---

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
