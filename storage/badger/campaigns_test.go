package badger_test

import (
	"testing"

	"github.com/dgraph-io/badger/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commonfund/commonfund/engine/escrow"
	"github.com/commonfund/commonfund/model/fund"
	"github.com/commonfund/commonfund/module/metrics"
	storagebadger "github.com/commonfund/commonfund/storage/badger"
	"github.com/commonfund/commonfund/utils/unittest"
)

func TestCampaignsDonationCache(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		log := unittest.Logger()
		collector := metrics.NewNoopCollector()
		clock := &unittest.FakeClock{Time: 1000}

		engine := escrow.New(log, collector, db, clock)
		store := storagebadger.NewCampaigns(collector, db)

		creator := unittest.AccountFixture()
		require.NoError(t, engine.CreateCampaign(1, creator, unittest.AccountFixture(), 1000, 2000))

		donor := unittest.AccountFixture()
		unittest.FundAccount(t, db, donor, 300)
		require.NoError(t, engine.Donate(1, donor, 200, false))
		require.NoError(t, engine.Donate(1, donor, 100, true))

		t.Run("donation by sequence", func(t *testing.T) {
			donation, err := store.Donation(1, 0)
			require.NoError(t, err)
			assert.Equal(t, donor, donation.Donor)
			assert.Equal(t, fund.Amount(200), donation.Amount)

			// second read is served from the cache
			again, err := store.Donation(1, 0)
			require.NoError(t, err)
			assert.Equal(t, donation, again)
		})

		t.Run("anonymous donation is unlinked", func(t *testing.T) {
			donation, err := store.Donation(1, 1)
			require.NoError(t, err)
			assert.True(t, donation.Donor.IsEmpty())
			assert.Equal(t, fund.Amount(100), donation.Amount)
		})

		t.Run("donation log in order", func(t *testing.T) {
			donations, err := store.Donations(1)
			require.NoError(t, err)
			require.Len(t, donations, 2)
			assert.Equal(t, fund.Amount(200), donations[0].Amount)
			assert.Equal(t, fund.Amount(100), donations[1].Amount)
		})

		t.Run("campaign and donor total", func(t *testing.T) {
			campaign, err := store.ByInstance(1)
			require.NoError(t, err)
			assert.Equal(t, fund.Amount(300), campaign.Raised)

			total, err := store.DonorTotal(1, donor)
			require.NoError(t, err)
			assert.Equal(t, fund.Amount(300), total.Total)
		})
	})
}
