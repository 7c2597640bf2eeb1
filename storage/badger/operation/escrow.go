package operation

import (
	"github.com/dgraph-io/badger/v2"

	"github.com/commonfund/commonfund/model/fund"
)

// InsertCampaign creates the campaign record for the given escrow
// instance. It fails with storage.ErrAlreadyExists if the instance was
// already created.
func InsertCampaign(instanceID uint64, campaign *fund.Campaign) func(*badger.Txn) error {
	return insert(makePrefix(codeCampaign, instanceID), campaign)
}

// RetrieveCampaign retrieves the campaign record of an escrow instance.
func RetrieveCampaign(instanceID uint64, campaign *fund.Campaign) func(*badger.Txn) error {
	return retrieve(makePrefix(codeCampaign, instanceID), campaign)
}

// UpdateCampaign overwrites the campaign record of an existing escrow
// instance.
func UpdateCampaign(instanceID uint64, campaign *fund.Campaign) func(*badger.Txn) error {
	return update(makePrefix(codeCampaign, instanceID), campaign)
}

// InsertMilestone creates a milestone record under its index.
func InsertMilestone(instanceID uint64, milestone *fund.Milestone) func(*badger.Txn) error {
	return insert(makePrefix(codeMilestone, instanceID, milestone.Index), milestone)
}

// RetrieveMilestone retrieves a milestone record by index.
func RetrieveMilestone(instanceID uint64, index uint64, milestone *fund.Milestone) func(*badger.Txn) error {
	return retrieve(makePrefix(codeMilestone, instanceID, index), milestone)
}

// UpdateMilestone overwrites an existing milestone record.
func UpdateMilestone(instanceID uint64, milestone *fund.Milestone) func(*badger.Txn) error {
	return update(makePrefix(codeMilestone, instanceID, milestone.Index), milestone)
}

// InsertDonation appends a donation record at the given sequence number
// of the campaign's append-only donation log. The sequence number, not
// the donor account, addresses the record, which is what lets anonymous
// donations stay in the public log without linking an identity.
func InsertDonation(instanceID uint64, seq uint64, donation *fund.Donation) func(*badger.Txn) error {
	return insert(makePrefix(codeDonation, instanceID, seq), donation)
}

// RetrieveDonation retrieves a donation record by sequence number.
func RetrieveDonation(instanceID uint64, seq uint64, donation *fund.Donation) func(*badger.Txn) error {
	return retrieve(makePrefix(codeDonation, instanceID, seq), donation)
}

// LookupDonations collects all donation records of a campaign in
// sequence order.
func LookupDonations(instanceID uint64, donations *[]fund.Donation) func(*badger.Txn) error {
	return traverse(makePrefix(codeDonation, instanceID), func() (checkFunc, createFunc, handleFunc) {
		check := func([]byte) bool {
			return true
		}
		var donation fund.Donation
		create := func() interface{} {
			return &donation
		}
		handle := func() error {
			*donations = append(*donations, donation)
			return nil
		}
		return check, create, handle
	})
}

// UpsertDonorTotal writes the cumulative contribution record of a
// donor. Donor totals are keyed by the real account even for anonymous
// donations, so refund entitlements survive anonymization.
func UpsertDonorTotal(instanceID uint64, donor fund.Account, total *fund.DonorTotal) func(*badger.Txn) error {
	return upsert(makePrefix(codeDonorTotal, instanceID, donor), total)
}

// RetrieveDonorTotal retrieves the cumulative contribution record of a
// donor.
func RetrieveDonorTotal(instanceID uint64, donor fund.Account, total *fund.DonorTotal) func(*badger.Txn) error {
	return retrieve(makePrefix(codeDonorTotal, instanceID, donor), total)
}
