package escrow

import (
	"errors"
)

var (
	// ErrAlreadyInitialized is returned when creating a campaign on an
	// instance that already has one.
	ErrAlreadyInitialized = errors.New("campaign already created")

	// ErrZeroAmount is returned when a goal, milestone or donation
	// carries no value.
	ErrZeroAmount = errors.New("amount must be positive")

	// ErrDeadlineNotFuture is returned when the campaign deadline is not
	// strictly in the future relative to ledger time.
	ErrDeadlineNotFuture = errors.New("deadline must be in the future")

	// ErrCampaignClosed is returned when donating or adding milestones
	// after the deadline passed or the campaign left the open state.
	ErrCampaignClosed = errors.New("campaign is closed")

	// ErrNotCreator is returned when an account other than the campaign
	// creator attempts a creator-only transition.
	ErrNotCreator = errors.New("only the campaign creator is authorized")

	// ErrMilestoneOverflow is returned when the sum of all milestone
	// amounts would exceed the campaign goal.
	ErrMilestoneOverflow = errors.New("milestone amounts exceed campaign goal")

	// ErrMilestoneAlreadyCompleted is returned when completing a
	// milestone twice.
	ErrMilestoneAlreadyCompleted = errors.New("milestone already completed")

	// ErrMilestoneNotCompleted is returned when releasing funds for a
	// milestone that has not been attested complete.
	ErrMilestoneNotCompleted = errors.New("milestone not completed")

	// ErrAlreadyReleased is returned when releasing the same milestone
	// twice. Funds move exactly once per milestone.
	ErrAlreadyReleased = errors.New("milestone funds already released")

	// ErrInsufficientFunds is returned when a release would push the
	// cumulative released amount beyond what was raised.
	ErrInsufficientFunds = errors.New("release exceeds raised funds")

	// ErrCampaignNotSucceeded is returned when releasing milestone funds
	// from a campaign that has not succeeded. Escrowed funds only move to
	// the beneficiary once the deadline passed with the goal reached; a
	// failed campaign's escrow is reserved for donor refunds.
	ErrCampaignNotSucceeded = errors.New("campaign has not succeeded")

	// ErrCampaignNotFailed is returned when claiming a refund from a
	// campaign that has not failed.
	ErrCampaignNotFailed = errors.New("campaign has not failed")

	// ErrNoDonation is returned when the refund claimant never donated.
	ErrNoDonation = errors.New("no donation recorded for account")

	// ErrAlreadyRefunded is returned on a second refund claim by the
	// same donor.
	ErrAlreadyRefunded = errors.New("donor already refunded")

	// ErrCampaignStillOpen is returned when finalizing before the
	// deadline.
	ErrCampaignStillOpen = errors.New("campaign deadline has not passed")

	// ErrAlreadyFinalized is returned when finalizing or cancelling a
	// campaign that already reached a terminal status.
	ErrAlreadyFinalized = errors.New("campaign already finalized")
)
