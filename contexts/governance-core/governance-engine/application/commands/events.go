package commands

import (
	"encoding/json"
	"time"

	"agora/contexts/governance-core/governance-engine/ports"
)

const (
	EventMemberAdded      = "dao.member_added"
	EventMemberRemoved    = "dao.member_removed"
	EventProposalCreated  = "dao.proposal_created"
	EventVoteCast         = "dao.vote_cast"
	EventProposalExecuted = "dao.proposal_executed"
	EventFundsReceived    = "dao.funds_received"
)

func newGovernanceEnvelope(
	eventID string,
	eventType string,
	partitionKeyPath string,
	partitionKey string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	// Proposal-scoped events are partitioned by proposal id so consumers see
	// one proposal's transitions in order.
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "governance-engine",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: partitionKeyPath,
		PartitionKey:     partitionKey,
		Data:             payload,
	}, nil
}
