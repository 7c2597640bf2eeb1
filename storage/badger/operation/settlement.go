package operation

import (
	"github.com/dgraph-io/badger/v2"

	"github.com/commonfund/commonfund/model/fund"
)

// InsertGroup creates the group record for the given settlement
// instance. It fails with storage.ErrAlreadyExists if the instance was
// already created.
func InsertGroup(instanceID uint64, group *fund.Group) func(*badger.Txn) error {
	return insert(makePrefix(codeGroup, instanceID), group)
}

// RetrieveGroup retrieves the group record of a settlement instance.
func RetrieveGroup(instanceID uint64, group *fund.Group) func(*badger.Txn) error {
	return retrieve(makePrefix(codeGroup, instanceID), group)
}

// UpdateGroup overwrites the group record of an existing settlement
// instance.
func UpdateGroup(instanceID uint64, group *fund.Group) func(*badger.Txn) error {
	return update(makePrefix(codeGroup, instanceID), group)
}

// InsertGroupBalance initializes the net balance slot of a group
// member. Balance slots exist exactly for the members fixed at group
// creation, so a missing slot doubles as a non-membership signal.
func InsertGroupBalance(instanceID uint64, member fund.Account, balance int64) func(*badger.Txn) error {
	return insert(makePrefix(codeGroupBalance, instanceID, member), balance)
}

// RetrieveGroupBalance retrieves the signed net balance of a group
// member.
func RetrieveGroupBalance(instanceID uint64, member fund.Account, balance *int64) func(*badger.Txn) error {
	return retrieve(makePrefix(codeGroupBalance, instanceID, member), balance)
}

// UpdateGroupBalance replaces the signed net balance of a group member.
func UpdateGroupBalance(instanceID uint64, member fund.Account, balance int64) func(*badger.Txn) error {
	return update(makePrefix(codeGroupBalance, instanceID, member), balance)
}

// InsertExpense appends an expense record at the given index of the
// group's append-only expense log.
func InsertExpense(instanceID uint64, index uint64, expense *fund.Expense) func(*badger.Txn) error {
	return insert(makePrefix(codeExpense, instanceID, index), expense)
}

// RetrieveExpense retrieves a single expense record by index.
func RetrieveExpense(instanceID uint64, index uint64, expense *fund.Expense) func(*badger.Txn) error {
	return retrieve(makePrefix(codeExpense, instanceID, index), expense)
}

// RemoveExpense deletes an expense record. Settlement is the only
// terminal transition allowed to clear the expense log.
func RemoveExpense(instanceID uint64, index uint64) func(*badger.Txn) error {
	return remove(makePrefix(codeExpense, instanceID, index))
}

// LookupExpenses collects all expense records of a settlement instance
// in log order.
func LookupExpenses(instanceID uint64, expenses *[]fund.Expense) func(*badger.Txn) error {
	return traverse(makePrefix(codeExpense, instanceID), func() (checkFunc, createFunc, handleFunc) {
		check := func([]byte) bool {
			return true
		}
		var expense fund.Expense
		create := func() interface{} {
			return &expense
		}
		handle := func() error {
			*expenses = append(*expenses, expense)
			return nil
		}
		return check, create, handle
	})
}
