package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"agora/contexts/governance-core/governance-engine/domain/entities"
	domainerrors "agora/contexts/governance-core/governance-engine/domain/errors"
	"agora/contexts/governance-core/governance-engine/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"

	// Single logical DAO per deployment; the state row is a singleton.
	daoStateRowID = 1
)

// Repository is the postgres implementation of every engine port. Multi-row
// mutations that must be jointly atomic run inside one gorm transaction.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// AutoMigrate creates the governance schema. Intended for local/dev wiring;
// production deployments run migrations out of band.
func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(
		&daoStateModel{},
		&memberModel{},
		&proposalModel{},
		&ballotModel{},
		&treasuryEntryModel{},
		&outboxModel{},
	)
}

// --- MembershipRegistry ---

func (r *Repository) IsInitialized(ctx context.Context) (bool, error) {
	state, err := r.loadState(ctx, r.db)
	if err != nil {
		return false, err
	}
	return state.Initialized, nil
}

func (r *Repository) MarkInitialized(ctx context.Context) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		state, err := r.loadStateForUpdate(ctx, tx)
		if err != nil {
			return err
		}
		state.Initialized = true
		return tx.Save(&state).Error
	})
}

func (r *Repository) AddMember(ctx context.Context, member entities.Member) error {
	address := strings.TrimSpace(member.Address)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing memberModel
		err := tx.Where("address = ?", address).First(&existing).Error
		switch {
		case err == nil:
			if existing.Active {
				return domainerrors.ErrMemberExists
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return err
		}

		var activeCount int64
		if err := tx.Model(&memberModel{}).Where("active = ?", true).Count(&activeCount).Error; err != nil {
			return err
		}
		slot := int(activeCount)
		row := memberModel{
			Address:     address,
			VotingPower: member.VotingPower,
			JoinedAt:    member.JoinedAt.UTC(),
			Active:      true,
			ActiveSlot:  &slot,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "address"}},
			DoUpdates: clause.Assignments(map[string]any{
				"voting_power": row.VotingPower,
				"joined_at":    row.JoinedAt,
				"active":       true,
				"active_slot":  slot,
			}),
		}).Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrMemberExists
			}
			return err
		}

		state, err := r.loadStateForUpdate(ctx, tx)
		if err != nil {
			return err
		}
		state.TotalVotingPower += member.VotingPower
		return tx.Save(&state).Error
	})
	if err != nil {
		return r.wrapError("governance_repo_add_member_failed", err, "member_address", address)
	}
	return nil
}

func (r *Repository) DeactivateMember(ctx context.Context, address string) (entities.Member, error) {
	address = strings.TrimSpace(address)
	var removed entities.Member
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row memberModel
		if err := tx.Where("address = ?", address).First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrMemberNotFound
			}
			return err
		}
		if !row.Active || row.ActiveSlot == nil {
			return domainerrors.ErrMemberInactive
		}
		freedSlot := *row.ActiveSlot

		// Swap-with-last: the highest slot moves into the freed slot so the
		// index stays dense. Order is not preserved, matching the in-memory
		// registry exactly. The freed slot is released before the move so the
		// unique index on active_slot is never violated mid-transaction.
		var last memberModel
		if err := tx.Where("active = ?", true).Order("active_slot DESC").First(&last).Error; err != nil {
			return err
		}
		if err := tx.Model(&memberModel{}).Where("address = ?", row.Address).Updates(map[string]any{
			"active":      false,
			"active_slot": nil,
		}).Error; err != nil {
			return err
		}
		if last.Address != row.Address {
			if err := tx.Model(&memberModel{}).
				Where("address = ?", last.Address).
				Update("active_slot", freedSlot).Error; err != nil {
				return err
			}
		}

		state, err := r.loadStateForUpdate(ctx, tx)
		if err != nil {
			return err
		}
		state.TotalVotingPower -= row.VotingPower
		if err := tx.Save(&state).Error; err != nil {
			return err
		}

		removed = row.toEntity()
		removed.Active = false
		return nil
	})
	if err != nil {
		return entities.Member{}, r.wrapError("governance_repo_deactivate_member_failed", err, "member_address", address)
	}
	return removed, nil
}

func (r *Repository) GetMember(ctx context.Context, address string) (entities.Member, bool, error) {
	var row memberModel
	err := r.db.WithContext(ctx).
		Where("address = ?", strings.TrimSpace(address)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Member{}, false, nil
		}
		return entities.Member{}, false, r.wrapError("governance_repo_get_member_failed", err, "member_address", address)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) ListActiveMembers(ctx context.Context) ([]entities.Member, error) {
	var rows []memberModel
	if err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("active_slot ASC").
		Find(&rows).Error; err != nil {
		return nil, r.wrapError("governance_repo_list_active_members_failed", err)
	}
	items := make([]entities.Member, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) TotalVotingPower(ctx context.Context) (uint64, error) {
	state, err := r.loadState(ctx, r.db)
	if err != nil {
		return 0, err
	}
	return state.TotalVotingPower, nil
}

// --- ProposalRepository ---

func (r *Repository) CreateProposal(ctx context.Context, proposal entities.Proposal) (entities.Proposal, error) {
	var created entities.Proposal
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		state, err := r.loadStateForUpdate(ctx, tx)
		if err != nil {
			return err
		}
		proposal.ID = state.ProposalCount
		row := proposalModelFromEntity(proposal)
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrConflict
			}
			return err
		}
		state.ProposalCount++
		if err := tx.Save(&state).Error; err != nil {
			return err
		}
		created = row.toEntity()
		return nil
	})
	if err != nil {
		return entities.Proposal{}, r.wrapError("governance_repo_create_proposal_failed", err,
			"proposer", strings.TrimSpace(proposal.Proposer),
		)
	}
	return created, nil
}

func (r *Repository) GetProposal(ctx context.Context, id uint64) (entities.Proposal, error) {
	var row proposalModel
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Proposal{}, domainerrors.ErrProposalNotFound
		}
		return entities.Proposal{}, r.wrapError("governance_repo_get_proposal_failed", err, "proposal_id", id)
	}
	return row.toEntity(), nil
}

func (r *Repository) ListProposals(ctx context.Context) ([]entities.Proposal, error) {
	var rows []proposalModel
	if err := r.db.WithContext(ctx).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.wrapError("governance_repo_list_proposals_failed", err)
	}
	items := make([]entities.Proposal, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) CountProposals(ctx context.Context) (uint64, error) {
	state, err := r.loadState(ctx, r.db)
	if err != nil {
		return 0, err
	}
	return state.ProposalCount, nil
}

func (r *Repository) RecordBallot(ctx context.Context, ballot entities.Ballot) error {
	voter := strings.TrimSpace(ballot.Voter)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := ballotModel{
			ProposalID: ballot.ProposalID,
			Voter:      voter,
			Support:    ballot.Support,
			Power:      ballot.Power,
			CastAt:     ballot.CastAt.UTC(),
		}
		create := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "proposal_id"}, {Name: "voter"}},
			DoNothing: true,
		}).Create(&row)
		if create.Error != nil {
			if isUniqueViolation(create.Error) {
				return domainerrors.ErrAlreadyVoted
			}
			return create.Error
		}
		if create.RowsAffected == 0 {
			return domainerrors.ErrAlreadyVoted
		}

		column := "votes_against"
		if ballot.Support {
			column = "votes_for"
		}
		update := tx.Model(&proposalModel{}).
			Where("id = ?", ballot.ProposalID).
			Update(column, gorm.Expr(column+" + ?", ballot.Power))
		if update.Error != nil {
			return update.Error
		}
		if update.RowsAffected == 0 {
			return domainerrors.ErrProposalNotFound
		}
		return nil
	})
	if err != nil {
		return r.wrapError("governance_repo_record_ballot_failed", err,
			"proposal_id", ballot.ProposalID,
			"voter", voter,
		)
	}
	return nil
}

func (r *Repository) GetBallot(ctx context.Context, proposalID uint64, voter string) (entities.Ballot, bool, error) {
	var row ballotModel
	err := r.db.WithContext(ctx).
		Where("proposal_id = ?", proposalID).
		Where("voter = ?", strings.TrimSpace(voter)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Ballot{}, false, nil
		}
		return entities.Ballot{}, false, r.wrapError("governance_repo_get_ballot_failed", err,
			"proposal_id", proposalID,
			"voter", strings.TrimSpace(voter),
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) MarkExecuted(ctx context.Context, id uint64, executedAt time.Time) error {
	update := r.db.WithContext(ctx).Model(&proposalModel{}).
		Where("id = ?", id).
		Where("executed = ?", false).
		Updates(map[string]any{
			"executed":    true,
			"executed_at": executedAt.UTC(),
		})
	if update.Error != nil {
		return r.wrapError("governance_repo_mark_executed_failed", update.Error, "proposal_id", id)
	}
	if update.RowsAffected == 0 {
		if _, err := r.GetProposal(ctx, id); err != nil {
			return err
		}
		return domainerrors.ErrAlreadyExecuted
	}
	return nil
}

func (r *Repository) SetExecutionOutcome(ctx context.Context, id uint64, success bool) error {
	update := r.db.WithContext(ctx).Model(&proposalModel{}).
		Where("id = ?", id).
		Where("executed = ?", true).
		Update("execution_success", success)
	if update.Error != nil {
		return r.wrapError("governance_repo_set_execution_outcome_failed", update.Error, "proposal_id", id)
	}
	if update.RowsAffected == 0 {
		return domainerrors.ErrProposalNotFound
	}
	return nil
}

func (r *Repository) ListExecutable(ctx context.Context, now time.Time, limit int) ([]entities.Proposal, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []proposalModel
	if err := r.db.WithContext(ctx).
		Where("executed = ?", false).
		Where("end_time < ?", now.UTC()).
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.wrapError("governance_repo_list_executable_failed", err)
	}
	items := make([]entities.Proposal, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

// --- TreasuryLedger ---

func (r *Repository) Balance(ctx context.Context) (uint64, error) {
	state, err := r.loadState(ctx, r.db)
	if err != nil {
		return 0, err
	}
	return state.TreasuryBalance, nil
}

func (r *Repository) Credit(ctx context.Context, entry entities.TreasuryEntry) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		state, err := r.loadStateForUpdate(ctx, tx)
		if err != nil {
			return err
		}
		if err := tx.Create(treasuryEntryModelFromEntity(entry)).Error; err != nil {
			return err
		}
		state.TreasuryBalance += entry.Amount
		return tx.Save(&state).Error
	})
	if err != nil {
		return r.wrapError("governance_repo_treasury_credit_failed", err,
			"kind", string(entry.Kind),
			"amount", entry.Amount,
		)
	}
	return nil
}

func (r *Repository) Transfer(ctx context.Context, entry entities.TreasuryEntry) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		state, err := r.loadStateForUpdate(ctx, tx)
		if err != nil {
			return err
		}
		if state.TreasuryBalance < entry.Amount {
			return domainerrors.ErrInsufficientFunds
		}
		if err := tx.Create(treasuryEntryModelFromEntity(entry)).Error; err != nil {
			return err
		}
		state.TreasuryBalance -= entry.Amount
		return tx.Save(&state).Error
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrInsufficientFunds) {
			return err
		}
		return r.wrapError("governance_repo_treasury_transfer_failed", err,
			"kind", string(entry.Kind),
			"counterparty", strings.TrimSpace(entry.Counterparty),
			"amount", entry.Amount,
		)
	}
	return nil
}

func (r *Repository) ListEntries(ctx context.Context, limit int) ([]entities.TreasuryEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []treasuryEntryModel
	if err := r.db.WithContext(ctx).
		Order("occurred_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.wrapError("governance_repo_list_treasury_entries_failed", err)
	}
	items := make([]entities.TreasuryEntry, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

// --- Outbox ---

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	raw, err := json.Marshal(envelope)
	if err != nil {
		return r.wrapError("governance_repo_encode_outbox_failed", err, "event_id", envelope.EventID)
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	row := outboxModel{
		OutboxID:     outboxID,
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      raw,
		Status:       outboxStatusPending,
		CreatedAt:    createdAt,
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.wrapError("governance_repo_append_outbox_failed", create.Error, "outbox_id", outboxID)
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.wrapError("governance_repo_list_pending_outbox_failed", err)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      row.Payload,
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	instant := publishedAt.UTC()
	update := r.db.WithContext(ctx).Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": &instant,
		})
	if update.Error != nil {
		return r.wrapError("governance_repo_mark_outbox_published_failed", update.Error, "outbox_id", outboxID)
	}
	if update.RowsAffected == 0 {
		return domainerrors.ErrConflict
	}
	return nil
}

// --- helpers ---

func (r *Repository) loadState(ctx context.Context, tx *gorm.DB) (daoStateModel, error) {
	var state daoStateModel
	err := tx.WithContext(ctx).Where("id = ?", daoStateRowID).First(&state).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return daoStateModel{ID: daoStateRowID}, nil
		}
		return daoStateModel{}, r.wrapError("governance_repo_load_state_failed", err)
	}
	return state, nil
}

func (r *Repository) loadStateForUpdate(ctx context.Context, tx *gorm.DB) (daoStateModel, error) {
	state := daoStateModel{ID: daoStateRowID}
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", daoStateRowID).
		FirstOrCreate(&state).Error
	if err != nil {
		return daoStateModel{}, r.wrapError("governance_repo_lock_state_failed", err)
	}
	return state, nil
}

func (r *Repository) wrapError(event string, err error, attrs ...any) error {
	if isDomainError(err) {
		return err
	}
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "governance-core/governance-engine",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("governance repository operation failed", fields...)
	return err
}

func isDomainError(err error) bool {
	for _, sentinel := range []error{
		domainerrors.ErrMemberExists,
		domainerrors.ErrMemberNotFound,
		domainerrors.ErrMemberInactive,
		domainerrors.ErrProposalNotFound,
		domainerrors.ErrAlreadyVoted,
		domainerrors.ErrAlreadyExecuted,
		domainerrors.ErrInsufficientFunds,
		domainerrors.ErrConflict,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// SystemClock satisfies ports.Clock with wall time.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// UUIDGenerator satisfies ports.IDGenerator with random UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
