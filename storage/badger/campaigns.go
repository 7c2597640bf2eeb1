package badger

import (
	"fmt"

	"github.com/dgraph-io/badger/v2"

	"github.com/commonfund/commonfund/model/fund"
	"github.com/commonfund/commonfund/module"
	"github.com/commonfund/commonfund/module/metrics"
	"github.com/commonfund/commonfund/storage/badger/operation"
)

type donationKey struct {
	instanceID uint64
	seq        uint64
}

// Campaigns provides read access to escrow campaign records. Donation
// records are immutable once written, so they are served through a
// read-through LRU cache; the mutable campaign and milestone records
// always hit the database.
type Campaigns struct {
	db        *badger.DB
	donations *Cache
}

func NewCampaigns(collector module.CacheMetrics, db *badger.DB) *Campaigns {

	retrieve := func(key interface{}) (interface{}, error) {
		k := key.(donationKey)
		var donation fund.Donation
		err := db.View(operation.RetrieveDonation(k.instanceID, k.seq, &donation))
		return &donation, err
	}

	c := &Campaigns{
		db: db,
		donations: newCache(collector,
			withLimit(4096),
			withResource(metrics.ResourceDonation),
			withRetrieve(retrieve),
		),
	}

	return c
}

// ByInstance returns the campaign record of an escrow instance.
func (c *Campaigns) ByInstance(instanceID uint64) (*fund.Campaign, error) {
	var campaign fund.Campaign
	err := c.db.View(operation.RetrieveCampaign(instanceID, &campaign))
	if err != nil {
		return nil, fmt.Errorf("could not retrieve campaign: %w", err)
	}
	return &campaign, nil
}

// Milestone returns a milestone record by index.
func (c *Campaigns) Milestone(instanceID uint64, index uint64) (*fund.Milestone, error) {
	var milestone fund.Milestone
	err := c.db.View(operation.RetrieveMilestone(instanceID, index, &milestone))
	if err != nil {
		return nil, fmt.Errorf("could not retrieve milestone: %w", err)
	}
	return &milestone, nil
}

// Donation returns a donation record by sequence number.
func (c *Campaigns) Donation(instanceID uint64, seq uint64) (*fund.Donation, error) {
	donation, err := c.donations.Get(donationKey{instanceID: instanceID, seq: seq})
	if err != nil {
		return nil, fmt.Errorf("could not retrieve donation: %w", err)
	}
	return donation.(*fund.Donation), nil
}

// Donations returns the donation log of a campaign in sequence order.
func (c *Campaigns) Donations(instanceID uint64) ([]fund.Donation, error) {
	var donations []fund.Donation
	err := c.db.View(operation.LookupDonations(instanceID, &donations))
	if err != nil {
		return nil, fmt.Errorf("could not look up donations: %w", err)
	}
	return donations, nil
}

// DonorTotal returns a donor's cumulative contribution record.
func (c *Campaigns) DonorTotal(instanceID uint64, donor fund.Account) (*fund.DonorTotal, error) {
	var total fund.DonorTotal
	err := c.db.View(operation.RetrieveDonorTotal(instanceID, donor, &total))
	if err != nil {
		return nil, fmt.Errorf("could not retrieve donor total: %w", err)
	}
	return &total, nil
}
