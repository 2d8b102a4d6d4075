package errors

import "errors"

// Authorization.
var (
	ErrNotAdministrator = errors.New("caller is not the administrator")
	ErrNotMember        = errors.New("caller is not an active member")
)

// Lifecycle state.
var (
	ErrNotInitialized     = errors.New("dao is not initialized")
	ErrAlreadyInitialized = errors.New("dao is already initialized")
	ErrVotingClosed       = errors.New("voting window is closed")
	ErrVotingNotEnded     = errors.New("voting window has not ended")
	ErrAlreadyVoted       = errors.New("member has already voted on this proposal")
	ErrAlreadyExecuted    = errors.New("proposal is already executed")
)

// Validation.
var (
	ErrEmptyMemberList      = errors.New("initial member list is empty")
	ErrInvalidMemberAddress = errors.New("member address is empty")
	ErrDuplicateMember      = errors.New("duplicate member address")
	ErrInvalidVotingPower   = errors.New("voting power must be greater than zero")
	ErrEmptyTitle           = errors.New("proposal title is empty")
	ErrEmptyDescription     = errors.New("proposal description is empty")
	ErrRecipientRequired    = errors.New("financial proposal requires a recipient")
	ErrInvalidDeposit       = errors.New("deposit is below the required proposal deposit")
)

// Not found / membership state.
var (
	ErrProposalNotFound = errors.New("proposal not found")
	ErrMemberNotFound   = errors.New("member not found")
	ErrMemberExists     = errors.New("member is already active")
	ErrMemberInactive   = errors.New("member is inactive")
	ErrBallotNotFound   = errors.New("ballot not found")
)

// ErrConflict flags a concurrent write the storage layer refused.
var ErrConflict = errors.New("state conflict")

// Treasury.
var (
	ErrInsufficientFunds = errors.New("treasury has insufficient funds")
	ErrTransferRejected  = errors.New("recipient rejected the transfer")
)
