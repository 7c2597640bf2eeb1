package badger

import (
	"fmt"

	"github.com/dgraph-io/badger/v2"

	"github.com/commonfund/commonfund/model/fund"
	"github.com/commonfund/commonfund/storage/badger/operation"
)

// Proposals provides read access to treasury records and spending
// proposals.
type Proposals struct {
	db *badger.DB
}

func NewProposals(db *badger.DB) *Proposals {
	return &Proposals{db: db}
}

// Treasury returns the treasury record of an instance.
func (p *Proposals) Treasury(instanceID uint64) (*fund.Treasury, error) {
	var treasury fund.Treasury
	err := p.db.View(operation.RetrieveTreasury(instanceID, &treasury))
	if err != nil {
		return nil, fmt.Errorf("could not retrieve treasury: %w", err)
	}
	return &treasury, nil
}

// ByID returns a proposal record by id.
func (p *Proposals) ByID(instanceID uint64, proposalID uint64) (*fund.Proposal, error) {
	var proposal fund.Proposal
	err := p.db.View(operation.RetrieveProposal(instanceID, proposalID, &proposal))
	if err != nil {
		return nil, fmt.Errorf("could not retrieve proposal: %w", err)
	}
	return &proposal, nil
}

// ByInstance returns all proposals of a treasury instance in id order.
func (p *Proposals) ByInstance(instanceID uint64) ([]fund.Proposal, error) {
	var proposals []fund.Proposal
	err := p.db.View(operation.LookupProposals(instanceID, &proposals))
	if err != nil {
		return nil, fmt.Errorf("could not look up proposals: %w", err)
	}
	return proposals, nil
}
