// Package badger implements read stores over the persistent engine
// records. Writes happen exclusively through engine state transitions,
// which compose the low-level operations into atomic badger
// transactions; the stores here only serve the read-only indexing
// surface and internal lookups.
package badger

import (
	"fmt"

	"github.com/dgraph-io/badger/v2"

	"github.com/commonfund/commonfund/model/fund"
	"github.com/commonfund/commonfund/storage/badger/operation"
)

// Groups provides read access to settlement group records.
type Groups struct {
	db *badger.DB
}

func NewGroups(db *badger.DB) *Groups {
	return &Groups{db: db}
}

// ByInstance returns the group record of a settlement instance.
func (g *Groups) ByInstance(instanceID uint64) (*fund.Group, error) {
	var group fund.Group
	err := g.db.View(operation.RetrieveGroup(instanceID, &group))
	if err != nil {
		return nil, fmt.Errorf("could not retrieve group: %w", err)
	}
	return &group, nil
}

// Balance returns the signed net balance of a group member.
func (g *Groups) Balance(instanceID uint64, member fund.Account) (int64, error) {
	var balance int64
	err := g.db.View(operation.RetrieveGroupBalance(instanceID, member, &balance))
	if err != nil {
		return 0, fmt.Errorf("could not retrieve balance: %w", err)
	}
	return balance, nil
}

// Expense returns a single expense record by its log index.
func (g *Groups) Expense(instanceID uint64, index uint64) (*fund.Expense, error) {
	var expense fund.Expense
	err := g.db.View(operation.RetrieveExpense(instanceID, index, &expense))
	if err != nil {
		return nil, fmt.Errorf("could not retrieve expense: %w", err)
	}
	return &expense, nil
}

// Expenses returns the append-only expense log of a settlement
// instance in log order.
func (g *Groups) Expenses(instanceID uint64) ([]fund.Expense, error) {
	var expenses []fund.Expense
	err := g.db.View(operation.LookupExpenses(instanceID, &expenses))
	if err != nil {
		return nil, fmt.Errorf("could not look up expenses: %w", err)
	}
	return expenses, nil
}
