package escrow_test

import (
	"testing"

	"github.com/dgraph-io/badger/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commonfund/commonfund/engine/escrow"
	"github.com/commonfund/commonfund/ledger"
	"github.com/commonfund/commonfund/model/fund"
	"github.com/commonfund/commonfund/module/metrics"
	"github.com/commonfund/commonfund/utils/unittest"
)

func withEngine(t *testing.T, f func(*badger.DB, *escrow.Engine, *unittest.FakeClock)) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		clock := &unittest.FakeClock{Time: 1000}
		engine := escrow.New(unittest.Logger(), metrics.NewNoopCollector(), db, clock)
		f(db, engine, clock)
	})
}

func TestCreateCampaign(t *testing.T) {
	withEngine(t, func(db *badger.DB, engine *escrow.Engine, clock *unittest.FakeClock) {
		creator := unittest.AccountFixture()
		beneficiary := unittest.AccountFixture()

		t.Run("valid campaign", func(t *testing.T) {
			err := engine.CreateCampaign(1, creator, beneficiary, 1000, 2000)
			require.NoError(t, err)

			campaign, err := engine.Campaign(1)
			require.NoError(t, err)
			assert.Equal(t, fund.CampaignOpen, campaign.Status)
			assert.Equal(t, fund.Amount(1000), campaign.Goal)
		})

		t.Run("repeated creation", func(t *testing.T) {
			err := engine.CreateCampaign(1, creator, beneficiary, 1000, 2000)
			assert.ErrorIs(t, err, escrow.ErrAlreadyInitialized)
		})

		t.Run("zero goal", func(t *testing.T) {
			err := engine.CreateCampaign(2, creator, beneficiary, 0, 2000)
			assert.ErrorIs(t, err, escrow.ErrZeroAmount)
		})

		t.Run("deadline in the past", func(t *testing.T) {
			err := engine.CreateCampaign(2, creator, beneficiary, 1000, 500)
			assert.ErrorIs(t, err, escrow.ErrDeadlineNotFuture)
		})
	})
}

func TestDonate(t *testing.T) {
	withEngine(t, func(db *badger.DB, engine *escrow.Engine, clock *unittest.FakeClock) {
		creator := unittest.AccountFixture()
		beneficiary := unittest.AccountFixture()
		require.NoError(t, engine.CreateCampaign(1, creator, beneficiary, 1000, 2000))

		donor := unittest.AccountFixture()
		unittest.FundAccount(t, db, donor, 500)

		t.Run("escrows the funds", func(t *testing.T) {
			err := engine.Donate(1, donor, 300, false)
			require.NoError(t, err)

			campaign, err := engine.Campaign(1)
			require.NoError(t, err)
			assert.Equal(t, fund.Amount(300), campaign.Raised)
			assert.Equal(t, uint64(1), campaign.DonationCount)

			vault, err := ledger.BalanceOf(db, escrow.Account(1))
			require.NoError(t, err)
			assert.Equal(t, fund.Amount(300), vault)

			total, err := engine.DonorTotal(1, donor)
			require.NoError(t, err)
			assert.Equal(t, fund.Amount(300), total.Total)
			assert.False(t, total.Refunded)
		})

		t.Run("anonymous donation still entitles the donor", func(t *testing.T) {
			err := engine.Donate(1, donor, 100, true)
			require.NoError(t, err)

			total, err := engine.DonorTotal(1, donor)
			require.NoError(t, err)
			assert.Equal(t, fund.Amount(400), total.Total)
		})

		t.Run("zero amount", func(t *testing.T) {
			err := engine.Donate(1, donor, 0, false)
			assert.ErrorIs(t, err, escrow.ErrZeroAmount)
		})

		t.Run("uncovered donation", func(t *testing.T) {
			err := engine.Donate(1, donor, 10000, false)
			assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

			// the rejected donation left no trace
			campaign, err := engine.Campaign(1)
			require.NoError(t, err)
			assert.Equal(t, fund.Amount(400), campaign.Raised)
			assert.Equal(t, uint64(2), campaign.DonationCount)
		})

		t.Run("past the deadline", func(t *testing.T) {
			clock.Advance(1500)
			err := engine.Donate(1, donor, 10, false)
			assert.ErrorIs(t, err, escrow.ErrCampaignClosed)
		})
	})
}

func TestMilestoneRelease(t *testing.T) {
	withEngine(t, func(db *badger.DB, engine *escrow.Engine, clock *unittest.FakeClock) {
		creator := unittest.AccountFixture()
		beneficiary := unittest.AccountFixture()
		require.NoError(t, engine.CreateCampaign(1, creator, beneficiary, 1000, 2000))

		index, err := engine.AddMilestone(1, creator, "prototype", 600)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), index)

		t.Run("only the creator adds milestones", func(t *testing.T) {
			_, err := engine.AddMilestone(1, unittest.AccountFixture(), "rogue", 100)
			assert.ErrorIs(t, err, escrow.ErrNotCreator)
		})

		t.Run("milestones cannot exceed the goal", func(t *testing.T) {
			_, err := engine.AddMilestone(1, creator, "stretch", 500)
			assert.ErrorIs(t, err, escrow.ErrMilestoneOverflow)
		})

		donor := unittest.AccountFixture()
		unittest.FundAccount(t, db, donor, 1000)
		require.NoError(t, engine.Donate(1, donor, 1000, false))

		t.Run("no release while open", func(t *testing.T) {
			_, err := engine.ReleaseFunds(1, index)
			assert.ErrorIs(t, err, escrow.ErrCampaignNotSucceeded)
		})

		// deadline passes with the goal reached: the campaign succeeded
		clock.Advance(1500)

		t.Run("release requires completion", func(t *testing.T) {
			_, err := engine.ReleaseFunds(1, index)
			assert.ErrorIs(t, err, escrow.ErrMilestoneNotCompleted)
		})

		t.Run("only the creator attests", func(t *testing.T) {
			err := engine.CompleteMilestone(1, unittest.AccountFixture(), index)
			assert.ErrorIs(t, err, escrow.ErrNotCreator)
		})

		t.Run("complete and release", func(t *testing.T) {
			require.NoError(t, engine.CompleteMilestone(1, creator, index))

			transfer, err := engine.ReleaseFunds(1, index)
			require.NoError(t, err)
			assert.Equal(t, beneficiary, transfer.To)
			assert.Equal(t, fund.Amount(600), transfer.Amount)

			balance, err := ledger.BalanceOf(db, beneficiary)
			require.NoError(t, err)
			assert.Equal(t, fund.Amount(600), balance)

			campaign, err := engine.Campaign(1)
			require.NoError(t, err)
			assert.Equal(t, fund.Amount(600), campaign.Released)

			milestone, err := engine.Milestone(1, index)
			require.NoError(t, err)
			assert.True(t, milestone.Completed)
			assert.True(t, milestone.Released)
		})

		t.Run("repeated completion", func(t *testing.T) {
			err := engine.CompleteMilestone(1, creator, index)
			assert.ErrorIs(t, err, escrow.ErrMilestoneAlreadyCompleted)
		})

		t.Run("repeated release", func(t *testing.T) {
			_, err := engine.ReleaseFunds(1, index)
			assert.ErrorIs(t, err, escrow.ErrAlreadyReleased)
		})
	})
}

func TestNoReleaseFromFailedCampaign(t *testing.T) {
	withEngine(t, func(db *badger.DB, engine *escrow.Engine, clock *unittest.FakeClock) {
		creator := unittest.AccountFixture()
		beneficiary := unittest.AccountFixture()
		require.NoError(t, engine.CreateCampaign(1, creator, beneficiary, 1000, 2000))

		index, err := engine.AddMilestone(1, creator, "prototype", 300)
		require.NoError(t, err)
		require.NoError(t, engine.CompleteMilestone(1, creator, index))

		donor := unittest.AccountFixture()
		unittest.FundAccount(t, db, donor, 400)
		require.NoError(t, engine.Donate(1, donor, 400, false))

		// deadline passes with 400 of 1000 raised: the campaign failed
		clock.Advance(1500)

		t.Run("completed milestone cannot drain the escrow", func(t *testing.T) {
			_, err := engine.ReleaseFunds(1, index)
			assert.ErrorIs(t, err, escrow.ErrCampaignNotSucceeded)

			vault, err := ledger.BalanceOf(db, escrow.Account(1))
			require.NoError(t, err)
			assert.Equal(t, fund.Amount(400), vault)
		})

		t.Run("the full escrow remains for the refund", func(t *testing.T) {
			transfer, err := engine.Refund(1, donor)
			require.NoError(t, err)
			assert.Equal(t, fund.Amount(400), transfer.Amount)

			balance, err := ledger.BalanceOf(db, donor)
			require.NoError(t, err)
			assert.Equal(t, fund.Amount(400), balance)
		})
	})
}

func TestRefund(t *testing.T) {
	withEngine(t, func(db *badger.DB, engine *escrow.Engine, clock *unittest.FakeClock) {
		creator := unittest.AccountFixture()
		beneficiary := unittest.AccountFixture()
		require.NoError(t, engine.CreateCampaign(1, creator, beneficiary, 1000, 2000))

		donor := unittest.AccountFixture()
		unittest.FundAccount(t, db, donor, 100)
		require.NoError(t, engine.Donate(1, donor, 100, false))

		t.Run("no refund while open", func(t *testing.T) {
			_, err := engine.Refund(1, donor)
			assert.ErrorIs(t, err, escrow.ErrCampaignNotFailed)
		})

		// deadline passes with 100 of 1000 raised: the campaign failed
		clock.Advance(1500)

		t.Run("status derives failed after the deadline", func(t *testing.T) {
			campaign, err := engine.Campaign(1)
			require.NoError(t, err)
			assert.Equal(t, fund.CampaignFailed, campaign.Status)
		})

		t.Run("refund pays back the recorded total", func(t *testing.T) {
			transfer, err := engine.Refund(1, donor)
			require.NoError(t, err)
			assert.Equal(t, donor, transfer.To)
			assert.Equal(t, fund.Amount(100), transfer.Amount)

			balance, err := ledger.BalanceOf(db, donor)
			require.NoError(t, err)
			assert.Equal(t, fund.Amount(100), balance)
		})

		t.Run("refund is exactly once", func(t *testing.T) {
			_, err := engine.Refund(1, donor)
			assert.ErrorIs(t, err, escrow.ErrAlreadyRefunded)
		})

		t.Run("non-donor has no entitlement", func(t *testing.T) {
			_, err := engine.Refund(1, unittest.AccountFixture())
			assert.ErrorIs(t, err, escrow.ErrNoDonation)
		})
	})
}

func TestFinalize(t *testing.T) {
	withEngine(t, func(db *badger.DB, engine *escrow.Engine, clock *unittest.FakeClock) {
		creator := unittest.AccountFixture()
		beneficiary := unittest.AccountFixture()
		require.NoError(t, engine.CreateCampaign(1, creator, beneficiary, 1000, 2000))

		donor := unittest.AccountFixture()
		unittest.FundAccount(t, db, donor, 1000)
		require.NoError(t, engine.Donate(1, donor, 1000, false))

		t.Run("before the deadline", func(t *testing.T) {
			err := engine.Finalize(1)
			assert.ErrorIs(t, err, escrow.ErrCampaignStillOpen)
		})

		t.Run("after the deadline", func(t *testing.T) {
			clock.Advance(1500)
			err := engine.Finalize(1)
			require.NoError(t, err)

			campaign, err := engine.Campaign(1)
			require.NoError(t, err)
			assert.Equal(t, fund.CampaignSucceeded, campaign.Status)
		})

		t.Run("finalize is terminal", func(t *testing.T) {
			err := engine.Finalize(1)
			assert.ErrorIs(t, err, escrow.ErrAlreadyFinalized)
		})

		t.Run("no refunds from a succeeded campaign", func(t *testing.T) {
			_, err := engine.Refund(1, donor)
			assert.ErrorIs(t, err, escrow.ErrCampaignNotFailed)
		})
	})
}

func TestCancel(t *testing.T) {
	withEngine(t, func(db *badger.DB, engine *escrow.Engine, clock *unittest.FakeClock) {
		creator := unittest.AccountFixture()
		beneficiary := unittest.AccountFixture()
		require.NoError(t, engine.CreateCampaign(1, creator, beneficiary, 1000, 2000))

		donor := unittest.AccountFixture()
		unittest.FundAccount(t, db, donor, 100)
		require.NoError(t, engine.Donate(1, donor, 100, false))

		t.Run("only the creator cancels", func(t *testing.T) {
			err := engine.Cancel(1, unittest.AccountFixture())
			assert.ErrorIs(t, err, escrow.ErrNotCreator)
		})

		t.Run("cancel fails the campaign", func(t *testing.T) {
			err := engine.Cancel(1, creator)
			require.NoError(t, err)

			campaign, err := engine.Campaign(1)
			require.NoError(t, err)
			assert.Equal(t, fund.CampaignFailed, campaign.Status)
		})

		t.Run("cancelled campaign refuses donations", func(t *testing.T) {
			err := engine.Donate(1, donor, 10, false)
			assert.ErrorIs(t, err, escrow.ErrCampaignClosed)
		})

		t.Run("cancelled campaign refunds donors", func(t *testing.T) {
			transfer, err := engine.Refund(1, donor)
			require.NoError(t, err)
			assert.Equal(t, fund.Amount(100), transfer.Amount)
		})
	})
}
