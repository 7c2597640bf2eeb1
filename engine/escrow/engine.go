// Package escrow implements the milestone-gated fundraising state
// machine: donations accumulate in the campaign's vault account until
// the deadline; a reached goal lets completed milestones release funds
// to the beneficiary, a missed goal entitles every donor to exactly one
// refund of their recorded contribution.
package escrow

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v2"
	"github.com/rs/zerolog"

	"github.com/commonfund/commonfund/ledger"
	"github.com/commonfund/commonfund/model/fund"
	"github.com/commonfund/commonfund/module"
	"github.com/commonfund/commonfund/module/metrics"
	"github.com/commonfund/commonfund/storage"
	"github.com/commonfund/commonfund/storage/badger/operation"
)

// Engine is the escrow state machine. Ledger time comes from the
// injected clock, so deadline semantics are deterministic under test.
type Engine struct {
	log     zerolog.Logger
	metrics module.EngineMetrics
	db      *badger.DB
	clock   ledger.Clock
}

func New(log zerolog.Logger, collector module.EngineMetrics, db *badger.DB, clock ledger.Clock) *Engine {
	e := &Engine{
		log:     log.With().Str("engine", metrics.EngineEscrow).Logger(),
		metrics: collector,
		db:      db,
		clock:   clock,
	}
	return e
}

// Account returns the vault account holding the escrowed funds of a
// campaign instance.
func Account(instanceID uint64) fund.Account {
	var account fund.Account
	copy(account[:], "escrow/")
	for i := 0; i < 8; i++ {
		account[fund.AccountLen-1-i] = byte(instanceID >> (8 * i))
	}
	return account
}

// CreateCampaign creates the campaign for an escrow instance. The goal
// must be positive and the deadline strictly in the future.
func (e *Engine) CreateCampaign(instanceID uint64, creator fund.Account, beneficiary fund.Account, goal fund.Amount, deadline uint64) error {

	if goal == 0 {
		e.metrics.TransitionRejected(metrics.EngineEscrow, "create_campaign")
		return ErrZeroAmount
	}
	if deadline <= e.clock.Now() {
		e.metrics.TransitionRejected(metrics.EngineEscrow, "create_campaign")
		return ErrDeadlineNotFuture
	}

	campaign := fund.Campaign{
		Creator:     creator,
		Beneficiary: beneficiary,
		Goal:        goal,
		Deadline:    deadline,
		Status:      fund.CampaignOpen,
	}

	err := e.db.Update(operation.InsertCampaign(instanceID, &campaign))
	if err != nil {
		e.metrics.TransitionRejected(metrics.EngineEscrow, "create_campaign")
		if errors.Is(err, storage.ErrAlreadyExists) {
			return ErrAlreadyInitialized
		}
		return fmt.Errorf("could not insert campaign: %w", err)
	}

	e.metrics.TransitionApplied(metrics.EngineEscrow, "create_campaign")
	e.log.Info().
		Uint64("instance", instanceID).
		Uint64("goal", uint64(goal)).
		Uint64("deadline", deadline).
		Msg("campaign created")

	return nil
}

// Donate records a contribution and moves the donated funds from the
// donor into the campaign's vault account. Donations are only accepted
// while the campaign is open and before the deadline. An anonymous
// donation keeps the donor's account out of the public donation log;
// the amount and timestamp stay public, and the donor's cumulative
// total is still tracked under their account for refund entitlement.
func (e *Engine) Donate(instanceID uint64, donor fund.Account, amount fund.Amount, anonymous bool) error {

	if amount == 0 {
		e.metrics.TransitionRejected(metrics.EngineEscrow, "donate")
		return ErrZeroAmount
	}

	now := e.clock.Now()
	err := e.db.Update(func(tx *badger.Txn) error {

		var campaign fund.Campaign
		err := operation.RetrieveCampaign(instanceID, &campaign)(tx)
		if err != nil {
			return fmt.Errorf("could not retrieve campaign: %w", err)
		}
		if campaign.StatusAt(now) != fund.CampaignOpen {
			return ErrCampaignClosed
		}

		// escrow the funds before touching any record
		batch := ledger.NewBatch()
		err = batch.Add(ledger.Transfer{
			From:   donor,
			To:     Account(instanceID),
			Amount: amount,
			Note:   "campaign donation",
		})
		if err != nil {
			return err
		}
		err = batch.Apply()(tx)
		if err != nil {
			return fmt.Errorf("could not escrow donation: %w", err)
		}

		donation := fund.Donation{
			Donor:     donor,
			Amount:    amount,
			Timestamp: now,
		}
		if anonymous {
			donation.Donor = fund.EmptyAccount
		}
		err = operation.InsertDonation(instanceID, campaign.DonationCount, &donation)(tx)
		if err != nil {
			return fmt.Errorf("could not insert donation: %w", err)
		}

		var total fund.DonorTotal
		err = operation.RetrieveDonorTotal(instanceID, donor, &total)(tx)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("could not retrieve donor total: %w", err)
		}
		total.Total, err = fund.SafeAdd(total.Total, amount)
		if err != nil {
			return err
		}
		err = operation.UpsertDonorTotal(instanceID, donor, &total)(tx)
		if err != nil {
			return fmt.Errorf("could not update donor total: %w", err)
		}

		campaign.Raised, err = fund.SafeAdd(campaign.Raised, amount)
		if err != nil {
			return err
		}
		campaign.DonationCount++
		err = operation.UpdateCampaign(instanceID, &campaign)(tx)
		if err != nil {
			return fmt.Errorf("could not update campaign: %w", err)
		}

		return nil
	})
	if err != nil {
		e.metrics.TransitionRejected(metrics.EngineEscrow, "donate")
		return err
	}

	e.metrics.TransitionApplied(metrics.EngineEscrow, "donate")
	e.log.Info().
		Uint64("instance", instanceID).
		Uint64("amount", uint64(amount)).
		Bool("anonymous", anonymous).
		Msg("donation recorded")

	return nil
}

// AddMilestone appends a milestone to an open campaign and returns its
// index. The sum of all milestone amounts can never exceed the goal.
// Only the campaign creator may add milestones.
func (e *Engine) AddMilestone(instanceID uint64, creator fund.Account, description string, amount fund.Amount) (uint64, error) {

	if amount == 0 {
		e.metrics.TransitionRejected(metrics.EngineEscrow, "add_milestone")
		return 0, ErrZeroAmount
	}

	now := e.clock.Now()
	var index uint64
	err := e.db.Update(func(tx *badger.Txn) error {

		var campaign fund.Campaign
		err := operation.RetrieveCampaign(instanceID, &campaign)(tx)
		if err != nil {
			return fmt.Errorf("could not retrieve campaign: %w", err)
		}
		if campaign.Creator != creator {
			return ErrNotCreator
		}
		if campaign.StatusAt(now) != fund.CampaignOpen {
			return ErrCampaignClosed
		}

		total, err := fund.SafeAdd(campaign.MilestoneTotal, amount)
		if err != nil {
			return err
		}
		if total > campaign.Goal {
			return ErrMilestoneOverflow
		}

		index = campaign.MilestoneCount
		milestone := fund.Milestone{
			Index:       index,
			Description: description,
			Amount:      amount,
		}
		err = operation.InsertMilestone(instanceID, &milestone)(tx)
		if err != nil {
			return fmt.Errorf("could not insert milestone: %w", err)
		}

		campaign.MilestoneCount++
		campaign.MilestoneTotal = total
		err = operation.UpdateCampaign(instanceID, &campaign)(tx)
		if err != nil {
			return fmt.Errorf("could not update campaign: %w", err)
		}

		return nil
	})
	if err != nil {
		e.metrics.TransitionRejected(metrics.EngineEscrow, "add_milestone")
		return 0, err
	}

	e.metrics.TransitionApplied(metrics.EngineEscrow, "add_milestone")
	e.log.Info().
		Uint64("instance", instanceID).
		Uint64("milestone", index).
		Uint64("amount", uint64(amount)).
		Msg("milestone added")

	return index, nil
}

// CompleteMilestone attests that a milestone has been achieved. It is
// a separate step from release, so completion can be verified before
// any funds move. Only the campaign creator may attest.
func (e *Engine) CompleteMilestone(instanceID uint64, creator fund.Account, index uint64) error {

	err := e.db.Update(func(tx *badger.Txn) error {

		var campaign fund.Campaign
		err := operation.RetrieveCampaign(instanceID, &campaign)(tx)
		if err != nil {
			return fmt.Errorf("could not retrieve campaign: %w", err)
		}
		if campaign.Creator != creator {
			return ErrNotCreator
		}

		var milestone fund.Milestone
		err = operation.RetrieveMilestone(instanceID, index, &milestone)(tx)
		if err != nil {
			return fmt.Errorf("could not retrieve milestone: %w", err)
		}
		if milestone.Completed {
			return ErrMilestoneAlreadyCompleted
		}

		milestone.Completed = true
		err = operation.UpdateMilestone(instanceID, &milestone)(tx)
		if err != nil {
			return fmt.Errorf("could not update milestone: %w", err)
		}

		return nil
	})
	if err != nil {
		e.metrics.TransitionRejected(metrics.EngineEscrow, "complete_milestone")
		return err
	}

	e.metrics.TransitionApplied(metrics.EngineEscrow, "complete_milestone")
	e.log.Info().
		Uint64("instance", instanceID).
		Uint64("milestone", index).
		Msg("milestone completed")

	return nil
}

// ReleaseFunds pays a completed milestone's amount from the campaign's
// vault account to the beneficiary. Release is only possible once the
// campaign succeeded, so the escrow of a failed campaign stays intact
// for donor refunds. The cumulative released amount can never exceed
// what was raised; a released milestone can never release again.
func (e *Engine) ReleaseFunds(instanceID uint64, index uint64) (*ledger.Transfer, error) {

	now := e.clock.Now()
	var transfer ledger.Transfer
	err := e.db.Update(func(tx *badger.Txn) error {

		var campaign fund.Campaign
		err := operation.RetrieveCampaign(instanceID, &campaign)(tx)
		if err != nil {
			return fmt.Errorf("could not retrieve campaign: %w", err)
		}
		if campaign.StatusAt(now) != fund.CampaignSucceeded {
			return ErrCampaignNotSucceeded
		}

		var milestone fund.Milestone
		err = operation.RetrieveMilestone(instanceID, index, &milestone)(tx)
		if err != nil {
			return fmt.Errorf("could not retrieve milestone: %w", err)
		}
		if !milestone.Completed {
			return ErrMilestoneNotCompleted
		}
		if milestone.Released {
			return ErrAlreadyReleased
		}

		released, err := fund.SafeAdd(campaign.Released, milestone.Amount)
		if err != nil {
			return err
		}
		if released > campaign.Raised {
			return ErrInsufficientFunds
		}

		transfer = ledger.Transfer{
			From:   Account(instanceID),
			To:     campaign.Beneficiary,
			Amount: milestone.Amount,
			Note:   milestone.Description,
		}
		batch := ledger.NewBatch()
		err = batch.Add(transfer)
		if err != nil {
			return err
		}
		err = batch.Apply()(tx)
		if err != nil {
			return fmt.Errorf("could not release funds: %w", err)
		}

		milestone.Released = true
		err = operation.UpdateMilestone(instanceID, &milestone)(tx)
		if err != nil {
			return fmt.Errorf("could not update milestone: %w", err)
		}

		campaign.Released = released
		err = operation.UpdateCampaign(instanceID, &campaign)(tx)
		if err != nil {
			return fmt.Errorf("could not update campaign: %w", err)
		}

		return nil
	})
	if err != nil {
		e.metrics.TransitionRejected(metrics.EngineEscrow, "release_funds")
		return nil, err
	}

	e.metrics.TransitionApplied(metrics.EngineEscrow, "release_funds")
	e.metrics.TransferEmitted(metrics.EngineEscrow, "release_funds", 1)
	e.log.Info().
		Uint64("instance", instanceID).
		Uint64("milestone", index).
		Uint64("amount", uint64(transfer.Amount)).
		Msg("milestone funds released")

	return &transfer, nil
}

// Finalize persists the terminal campaign status once the deadline has
// passed: Succeeded if the goal was reached, Failed otherwise. The
// status is also derived lazily by every transition, so no operation
// depends on Finalize having been called.
func (e *Engine) Finalize(instanceID uint64) error {

	now := e.clock.Now()
	err := e.db.Update(func(tx *badger.Txn) error {

		var campaign fund.Campaign
		err := operation.RetrieveCampaign(instanceID, &campaign)(tx)
		if err != nil {
			return fmt.Errorf("could not retrieve campaign: %w", err)
		}
		if campaign.Status != fund.CampaignOpen {
			return ErrAlreadyFinalized
		}
		if now < campaign.Deadline {
			return ErrCampaignStillOpen
		}

		campaign.Status = campaign.StatusAt(now)
		err = operation.UpdateCampaign(instanceID, &campaign)(tx)
		if err != nil {
			return fmt.Errorf("could not update campaign: %w", err)
		}

		return nil
	})
	if err != nil {
		e.metrics.TransitionRejected(metrics.EngineEscrow, "finalize")
		return err
	}

	e.metrics.TransitionApplied(metrics.EngineEscrow, "finalize")
	e.log.Info().Uint64("instance", instanceID).Msg("campaign finalized")

	return nil
}

// Cancel aborts an open campaign. Only the creator may cancel; the
// campaign moves to Failed, which stops donations and enables refunds.
func (e *Engine) Cancel(instanceID uint64, creator fund.Account) error {

	now := e.clock.Now()
	err := e.db.Update(func(tx *badger.Txn) error {

		var campaign fund.Campaign
		err := operation.RetrieveCampaign(instanceID, &campaign)(tx)
		if err != nil {
			return fmt.Errorf("could not retrieve campaign: %w", err)
		}
		if campaign.Creator != creator {
			return ErrNotCreator
		}
		if campaign.StatusAt(now) != fund.CampaignOpen {
			return ErrAlreadyFinalized
		}

		campaign.Status = fund.CampaignFailed
		err = operation.UpdateCampaign(instanceID, &campaign)(tx)
		if err != nil {
			return fmt.Errorf("could not update campaign: %w", err)
		}

		return nil
	})
	if err != nil {
		e.metrics.TransitionRejected(metrics.EngineEscrow, "cancel")
		return err
	}

	e.metrics.TransitionApplied(metrics.EngineEscrow, "cancel")
	e.log.Info().Uint64("instance", instanceID).Msg("campaign cancelled")

	return nil
}

// Refund pays a donor of a failed campaign back exactly their recorded
// total contribution, exactly once.
func (e *Engine) Refund(instanceID uint64, donor fund.Account) (*ledger.Transfer, error) {

	now := e.clock.Now()
	var transfer ledger.Transfer
	err := e.db.Update(func(tx *badger.Txn) error {

		var campaign fund.Campaign
		err := operation.RetrieveCampaign(instanceID, &campaign)(tx)
		if err != nil {
			return fmt.Errorf("could not retrieve campaign: %w", err)
		}
		if campaign.StatusAt(now) != fund.CampaignFailed {
			return ErrCampaignNotFailed
		}

		var total fund.DonorTotal
		err = operation.RetrieveDonorTotal(instanceID, donor, &total)(tx)
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNoDonation
		}
		if err != nil {
			return fmt.Errorf("could not retrieve donor total: %w", err)
		}
		if total.Refunded {
			return ErrAlreadyRefunded
		}

		transfer = ledger.Transfer{
			From:   Account(instanceID),
			To:     donor,
			Amount: total.Total,
			Note:   "campaign refund",
		}
		batch := ledger.NewBatch()
		err = batch.Add(transfer)
		if err != nil {
			return err
		}
		err = batch.Apply()(tx)
		if err != nil {
			return fmt.Errorf("could not refund donor: %w", err)
		}

		total.Refunded = true
		err = operation.UpsertDonorTotal(instanceID, donor, &total)(tx)
		if err != nil {
			return fmt.Errorf("could not update donor total: %w", err)
		}

		return nil
	})
	if err != nil {
		e.metrics.TransitionRejected(metrics.EngineEscrow, "refund")
		return nil, err
	}

	e.metrics.TransitionApplied(metrics.EngineEscrow, "refund")
	e.metrics.TransferEmitted(metrics.EngineEscrow, "refund", 1)
	e.log.Info().
		Uint64("instance", instanceID).
		Str("donor", donor.String()).
		Uint64("amount", uint64(transfer.Amount)).
		Msg("donor refunded")

	return &transfer, nil
}

// Campaign returns the campaign record with its status resolved against
// the current ledger time.
func (e *Engine) Campaign(instanceID uint64) (*fund.Campaign, error) {
	var campaign fund.Campaign
	err := e.db.View(operation.RetrieveCampaign(instanceID, &campaign))
	if err != nil {
		return nil, fmt.Errorf("could not retrieve campaign: %w", err)
	}
	campaign.Status = campaign.StatusAt(e.clock.Now())
	return &campaign, nil
}

// Milestone returns a milestone record by index.
func (e *Engine) Milestone(instanceID uint64, index uint64) (*fund.Milestone, error) {
	var milestone fund.Milestone
	err := e.db.View(operation.RetrieveMilestone(instanceID, index, &milestone))
	if err != nil {
		return nil, fmt.Errorf("could not retrieve milestone: %w", err)
	}
	return &milestone, nil
}

// DonorTotal returns a donor's cumulative contribution record.
func (e *Engine) DonorTotal(instanceID uint64, donor fund.Account) (*fund.DonorTotal, error) {
	var total fund.DonorTotal
	err := e.db.View(operation.RetrieveDonorTotal(instanceID, donor, &total))
	if err != nil {
		return nil, fmt.Errorf("could not retrieve donor total: %w", err)
	}
	return &total, nil
}
