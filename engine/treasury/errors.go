package treasury

import (
	"errors"
)

var (
	// ErrAlreadyInitialized is returned when bootstrapping an instance
	// that already has a signer set.
	ErrAlreadyInitialized = errors.New("treasury already initialized")

	// ErrInvalidThreshold is returned when the threshold is zero or
	// exceeds the signer count.
	ErrInvalidThreshold = errors.New("threshold must be between 1 and the signer count")

	// ErrDuplicateSigner is returned when the signer list repeats an
	// account.
	ErrDuplicateSigner = errors.New("duplicate signer in signer set")

	// ErrNotASigner is returned when the acting account is not in the
	// signer set.
	ErrNotASigner = errors.New("account is not a signer")

	// ErrZeroAmount is returned when a proposal carries no value.
	ErrZeroAmount = errors.New("proposal amount must be positive")

	// ErrAlreadyApproved is returned when a signer approves the same
	// proposal twice. The repeated approval never increases the count.
	ErrAlreadyApproved = errors.New("signer already approved proposal")

	// ErrProposalNotPending is returned when approving or rejecting a
	// proposal that has already reached a terminal status.
	ErrProposalNotPending = errors.New("proposal is not pending")

	// ErrQuorumNotMet is returned when executing a proposal with fewer
	// distinct approvals than the threshold.
	ErrQuorumNotMet = errors.New("approval quorum not met")

	// ErrAlreadyExecuted is returned when re-executing an executed
	// proposal. Funds move exactly once.
	ErrAlreadyExecuted = errors.New("proposal already executed")

	// ErrNotAuthor is returned when an account other than the proposal
	// author tries to reject it.
	ErrNotAuthor = errors.New("only the proposal author may reject it")
)
