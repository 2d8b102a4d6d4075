package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName  string
	HTTPPort     string
	PostgresDSN  string
	KafkaBrokers []string

	GovernanceAdminID         string
	GovernanceVotingPeriod    time.Duration
	GovernanceQuorumPct       uint64
	GovernanceMajorityPct     uint64
	GovernanceProposalDeposit uint64

	EnableOutboxRelay     bool
	EnableProposalSettler bool
}

func Load() (Config, error) {
	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "agora"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	var brokers []string
	for _, value := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			brokers = append(brokers, value)
		}
	}
	if len(brokers) == 0 {
		brokers = []string{"localhost:9092"}
	}

	adminID := strings.TrimSpace(os.Getenv("GOVERNANCE_ADMIN_ID"))
	if adminID == "" {
		adminID = "admin"
	}

	return Config{
		ServiceName:  service,
		HTTPPort:     port,
		PostgresDSN:  os.Getenv("POSTGRES_DSN"),
		KafkaBrokers: brokers,

		GovernanceAdminID:         adminID,
		GovernanceVotingPeriod:    time.Duration(envUint("GOVERNANCE_VOTING_PERIOD_HOURS", 7*24)) * time.Hour,
		GovernanceQuorumPct:       envUint("GOVERNANCE_QUORUM_PCT", 51),
		GovernanceMajorityPct:     envUint("GOVERNANCE_MAJORITY_PCT", 60),
		GovernanceProposalDeposit: envUint("GOVERNANCE_PROPOSAL_DEPOSIT", 1),

		EnableOutboxRelay:     envBool("ENABLE_OUTBOX_RELAY", true),
		EnableProposalSettler: envBool("ENABLE_PROPOSAL_SETTLER", true),
	}, nil
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envUint(name string, fallback uint64) uint64 {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return value
}
