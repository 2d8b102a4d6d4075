package postgresadapter

import (
	"strings"
	"time"

	"agora/contexts/governance-core/governance-engine/domain/entities"
)

// daoStateModel is the singleton row holding DAO-wide aggregates. Keeping the
// counters in one row lets every invariant update ride a single row lock.
type daoStateModel struct {
	ID               int    `gorm:"column:id;primaryKey"`
	Initialized      bool   `gorm:"column:initialized;not null;default:false"`
	TotalVotingPower uint64 `gorm:"column:total_voting_power;not null;default:0"`
	ProposalCount    uint64 `gorm:"column:proposal_count;not null;default:0"`
	TreasuryBalance  uint64 `gorm:"column:treasury_balance;not null;default:0"`
}

func (daoStateModel) TableName() string { return "dao_state" }

type memberModel struct {
	Address     string    `gorm:"column:address;primaryKey;size:128"`
	VotingPower uint64    `gorm:"column:voting_power;not null"`
	JoinedAt    time.Time `gorm:"column:joined_at;not null"`
	Active      bool      `gorm:"column:active;not null;index"`
	ActiveSlot  *int      `gorm:"column:active_slot;uniqueIndex:ux_members_active_slot"`
}

func (memberModel) TableName() string { return "members" }

func (m memberModel) toEntity() entities.Member {
	return entities.Member{
		Address:     m.Address,
		VotingPower: m.VotingPower,
		JoinedAt:    m.JoinedAt.UTC(),
		Active:      m.Active,
	}
}

type proposalModel struct {
	ID               uint64     `gorm:"column:id;primaryKey;autoIncrement:false"`
	Title            string     `gorm:"column:title;not null"`
	Description      string     `gorm:"column:description;not null"`
	Proposer         string     `gorm:"column:proposer;size:128;not null;index"`
	Amount           uint64     `gorm:"column:amount;not null"`
	Recipient        string     `gorm:"column:recipient;size:128;not null;default:''"`
	Deposit          uint64     `gorm:"column:deposit;not null"`
	VotesFor         uint64     `gorm:"column:votes_for;not null;default:0"`
	VotesAgainst     uint64     `gorm:"column:votes_against;not null;default:0"`
	StartTime        time.Time  `gorm:"column:start_time;not null"`
	EndTime          time.Time  `gorm:"column:end_time;not null;index"`
	Executed         bool       `gorm:"column:executed;not null;default:false;index"`
	ExecutedAt       *time.Time `gorm:"column:executed_at"`
	ExecutionSuccess bool       `gorm:"column:execution_success;not null;default:false"`
}

func (proposalModel) TableName() string { return "proposals" }

func proposalModelFromEntity(p entities.Proposal) proposalModel {
	row := proposalModel{
		ID:               p.ID,
		Title:            strings.TrimSpace(p.Title),
		Description:      strings.TrimSpace(p.Description),
		Proposer:         strings.TrimSpace(p.Proposer),
		Amount:           p.Amount,
		Recipient:        strings.TrimSpace(p.Recipient),
		Deposit:          p.Deposit,
		VotesFor:         p.VotesFor,
		VotesAgainst:     p.VotesAgainst,
		StartTime:        p.StartTime.UTC(),
		EndTime:          p.EndTime.UTC(),
		Executed:         p.Executed,
		ExecutionSuccess: p.ExecutionSuccess,
	}
	if p.ExecutedAt != nil {
		instant := p.ExecutedAt.UTC()
		row.ExecutedAt = &instant
	}
	return row
}

func (m proposalModel) toEntity() entities.Proposal {
	p := entities.Proposal{
		ID:               m.ID,
		Title:            m.Title,
		Description:      m.Description,
		Proposer:         m.Proposer,
		Amount:           m.Amount,
		Recipient:        m.Recipient,
		Deposit:          m.Deposit,
		VotesFor:         m.VotesFor,
		VotesAgainst:     m.VotesAgainst,
		StartTime:        m.StartTime.UTC(),
		EndTime:          m.EndTime.UTC(),
		Executed:         m.Executed,
		ExecutionSuccess: m.ExecutionSuccess,
	}
	if m.ExecutedAt != nil {
		instant := m.ExecutedAt.UTC()
		p.ExecutedAt = &instant
	}
	return p
}

type ballotModel struct {
	ProposalID uint64    `gorm:"column:proposal_id;primaryKey;autoIncrement:false"`
	Voter      string    `gorm:"column:voter;primaryKey;size:128"`
	Support    bool      `gorm:"column:support;not null"`
	Power      uint64    `gorm:"column:power;not null"`
	CastAt     time.Time `gorm:"column:cast_at;not null"`
}

func (ballotModel) TableName() string { return "ballots" }

func (m ballotModel) toEntity() entities.Ballot {
	return entities.Ballot{
		ProposalID: m.ProposalID,
		Voter:      m.Voter,
		Support:    m.Support,
		Power:      m.Power,
		CastAt:     m.CastAt.UTC(),
	}
}

type treasuryEntryModel struct {
	EntryID      string    `gorm:"column:entry_id;primaryKey;size:64"`
	Kind         string    `gorm:"column:kind;size:32;not null;index"`
	Counterparty string    `gorm:"column:counterparty;size:128;not null"`
	ProposalID   *uint64   `gorm:"column:proposal_id;index"`
	Amount       uint64    `gorm:"column:amount;not null"`
	OccurredAt   time.Time `gorm:"column:occurred_at;not null;index"`
}

func (treasuryEntryModel) TableName() string { return "treasury_entries" }

func treasuryEntryModelFromEntity(e entities.TreasuryEntry) *treasuryEntryModel {
	return &treasuryEntryModel{
		EntryID:      strings.TrimSpace(e.EntryID),
		Kind:         string(e.Kind),
		Counterparty: strings.TrimSpace(e.Counterparty),
		ProposalID:   e.ProposalID,
		Amount:       e.Amount,
		OccurredAt:   e.OccurredAt.UTC(),
	}
}

func (m treasuryEntryModel) toEntity() entities.TreasuryEntry {
	return entities.TreasuryEntry{
		EntryID:      m.EntryID,
		Kind:         entities.TreasuryEntryKind(m.Kind),
		Counterparty: m.Counterparty,
		ProposalID:   m.ProposalID,
		Amount:       m.Amount,
		OccurredAt:   m.OccurredAt.UTC(),
	}
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey;size:64"`
	EventType    string     `gorm:"column:event_type;size:128;not null"`
	PartitionKey string     `gorm:"column:partition_key;size:128;not null"`
	Payload      []byte     `gorm:"column:payload;type:jsonb;not null"`
	Status       string     `gorm:"column:status;size:16;not null;index"`
	CreatedAt    time.Time  `gorm:"column:created_at;not null;index"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string { return "governance_outbox" }
