package operation

import (
	"github.com/dgraph-io/badger/v2"

	"github.com/commonfund/commonfund/model/fund"
)

// RetrieveVaultBalance reads the vault balance slot of an account. A
// missing slot is returned as a zero balance; accounts come into
// existence on their first credit.
func RetrieveVaultBalance(account fund.Account, balance *fund.Amount) func(*badger.Txn) error {
	return func(tx *badger.Txn) error {
		var value uint64
		err := retrieveCounter(makePrefix(codeVaultBalance, account), &value)(tx)
		if err != nil {
			return err
		}
		*balance = fund.Amount(value)
		return nil
	}
}

// UpsertVaultBalance writes the vault balance slot of an account.
func UpsertVaultBalance(account fund.Account, balance fund.Amount) func(*badger.Txn) error {
	return upsert(makePrefix(codeVaultBalance, account), uint64(balance))
}
