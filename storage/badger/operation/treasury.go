package operation

import (
	"github.com/dgraph-io/badger/v2"

	"github.com/commonfund/commonfund/model/fund"
)

// InsertTreasury creates the treasury record for the given instance.
// It fails with storage.ErrAlreadyExists on re-initialization.
func InsertTreasury(instanceID uint64, treasury *fund.Treasury) func(*badger.Txn) error {
	return insert(makePrefix(codeTreasury, instanceID), treasury)
}

// RetrieveTreasury retrieves the treasury record of an instance.
func RetrieveTreasury(instanceID uint64, treasury *fund.Treasury) func(*badger.Txn) error {
	return retrieve(makePrefix(codeTreasury, instanceID), treasury)
}

// UpdateTreasury overwrites the treasury record of an existing
// instance. Only the proposal counter ever changes; the signer set and
// threshold are immutable after bootstrap.
func UpdateTreasury(instanceID uint64, treasury *fund.Treasury) func(*badger.Txn) error {
	return update(makePrefix(codeTreasury, instanceID), treasury)
}

// InsertProposal creates a proposal record under its monotonic id.
func InsertProposal(instanceID uint64, proposal *fund.Proposal) func(*badger.Txn) error {
	return insert(makePrefix(codeProposal, instanceID, proposal.ID), proposal)
}

// RetrieveProposal retrieves a proposal record by id.
func RetrieveProposal(instanceID uint64, proposalID uint64, proposal *fund.Proposal) func(*badger.Txn) error {
	return retrieve(makePrefix(codeProposal, instanceID, proposalID), proposal)
}

// UpdateProposal overwrites an existing proposal record.
func UpdateProposal(instanceID uint64, proposal *fund.Proposal) func(*badger.Txn) error {
	return update(makePrefix(codeProposal, instanceID, proposal.ID), proposal)
}

// LookupProposals collects all proposal records of a treasury instance
// in id order.
func LookupProposals(instanceID uint64, proposals *[]fund.Proposal) func(*badger.Txn) error {
	return traverse(makePrefix(codeProposal, instanceID), func() (checkFunc, createFunc, handleFunc) {
		check := func([]byte) bool {
			return true
		}
		var proposal fund.Proposal
		create := func() interface{} {
			return &proposal
		}
		handle := func() error {
			*proposals = append(*proposals, proposal)
			return nil
		}
		return check, create, handle
	})
}

// InsertApproval records that a signer has approved a proposal. The
// marker is keyed by (instance, proposal, signer), so a repeated
// approval by the same signer fails with storage.ErrAlreadyExists and
// can never double-count.
func InsertApproval(instanceID uint64, proposalID uint64, signer fund.Account) func(*badger.Txn) error {
	return insert(makePrefix(codeApproval, instanceID, proposalID, signer), true)
}

// CheckApproval checks whether a signer has already approved the given
// proposal.
func CheckApproval(instanceID uint64, proposalID uint64, signer fund.Account, approved *bool) func(*badger.Txn) error {
	return exists(makePrefix(codeApproval, instanceID, proposalID, signer), approved)
}
