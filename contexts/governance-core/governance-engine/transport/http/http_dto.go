package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type MemberInput struct {
	Address     string `json:"address"`
	VotingPower uint64 `json:"voting_power"`
}

type InitializeDAORequest struct {
	Members []MemberInput `json:"members"`
}

type AddMemberRequest struct {
	Address     string `json:"address"`
	VotingPower uint64 `json:"voting_power"`
}

type MemberResponse struct {
	Address     string `json:"address"`
	VotingPower uint64 `json:"voting_power"`
	JoinedAt    string `json:"joined_at"`
	Active      bool   `json:"active"`
}

type MembersResponse struct {
	Items []MemberResponse `json:"items"`
}

type CreateProposalRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Amount      uint64 `json:"amount,omitempty"`
	Recipient   string `json:"recipient,omitempty"`
	Deposit     uint64 `json:"deposit"`
}

type ProposalResponse struct {
	ProposalID       uint64 `json:"proposal_id"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	Proposer         string `json:"proposer"`
	Amount           uint64 `json:"amount"`
	Recipient        string `json:"recipient,omitempty"`
	Deposit          uint64 `json:"deposit"`
	VotesFor         uint64 `json:"votes_for"`
	VotesAgainst     uint64 `json:"votes_against"`
	StartTime        string `json:"start_time"`
	EndTime          string `json:"end_time"`
	Status           string `json:"status"`
	Executed         bool   `json:"executed"`
	ExecutedAt       string `json:"executed_at,omitempty"`
	ExecutionSuccess bool   `json:"execution_success"`
}

type ProposalsResponse struct {
	Items []ProposalResponse `json:"items"`
}

type CastVoteRequest struct {
	Support bool `json:"support"`
}

type BallotResponse struct {
	ProposalID uint64 `json:"proposal_id"`
	Voter      string `json:"voter"`
	Support    bool   `json:"support"`
	Power      uint64 `json:"power"`
	CastAt     string `json:"cast_at"`
}

type ExecuteProposalResponse struct {
	Proposal         ProposalResponse `json:"proposal"`
	Passed           bool             `json:"passed"`
	Success          bool             `json:"success"`
	QuorumRequired   uint64           `json:"quorum_required"`
	MajorityRequired uint64           `json:"majority_required"`
}

type DonationRequest struct {
	From   string `json:"from"`
	Amount uint64 `json:"amount"`
}

type TreasuryEntryResponse struct {
	EntryID      string  `json:"entry_id"`
	Kind         string  `json:"kind"`
	Counterparty string  `json:"counterparty"`
	ProposalID   *uint64 `json:"proposal_id,omitempty"`
	Amount       uint64  `json:"amount"`
	OccurredAt   string  `json:"occurred_at"`
}

type TreasuryEntriesResponse struct {
	Balance uint64                  `json:"balance"`
	Items   []TreasuryEntryResponse `json:"items"`
}

type StatsResponse struct {
	Initialized      bool   `json:"initialized"`
	MemberCount      int    `json:"member_count"`
	TotalVotingPower uint64 `json:"total_voting_power"`
	ProposalCount    uint64 `json:"proposal_count"`
	TreasuryBalance  uint64 `json:"treasury_balance"`
}
