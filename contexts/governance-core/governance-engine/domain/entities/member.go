package entities

import "time"

// Member is a governance principal with administratively assigned voting
// power. Removal is a soft delete: the record survives with Active=false and
// the address leaves the active iteration index.
type Member struct {
	Address     string
	VotingPower uint64
	JoinedAt    time.Time
	Active      bool
}
