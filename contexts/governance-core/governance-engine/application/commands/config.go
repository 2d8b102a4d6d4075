package commands

import "time"

// Config carries the governance parameters fixed at engine construction.
// The administrator identity and initialization flag live here instead of
// ambient process state; one Engine instance is the single source of truth
// for one logical DAO.
type Config struct {
	AdminID         string
	VotingPeriod    time.Duration
	QuorumPct       uint64
	MajorityPct     uint64
	ProposalDeposit uint64
}

// DefaultConfig returns the genesis parameters: a 7 day voting window, 51%
// quorum over total voting power, 60% majority over cast votes, and a 1 unit
// refundable proposal deposit.
func DefaultConfig(adminID string) Config {
	return Config{
		AdminID:         adminID,
		VotingPeriod:    7 * 24 * time.Hour,
		QuorumPct:       51,
		MajorityPct:     60,
		ProposalDeposit: 1,
	}
}

func (c Config) votingPeriod() time.Duration {
	if c.VotingPeriod <= 0 {
		return 7 * 24 * time.Hour
	}
	return c.VotingPeriod
}

func (c Config) quorumPct() uint64 {
	if c.QuorumPct == 0 {
		return 51
	}
	return c.QuorumPct
}

func (c Config) majorityPct() uint64 {
	if c.MajorityPct == 0 {
		return 60
	}
	return c.MajorityPct
}
