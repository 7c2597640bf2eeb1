package unittest

import (
	"crypto/rand"
	"testing"

	"github.com/dgraph-io/badger/v2"
	"github.com/stretchr/testify/require"

	"github.com/commonfund/commonfund/ledger"
	"github.com/commonfund/commonfund/model/fund"
)

// AccountFixture returns a random account identifier.
func AccountFixture() fund.Account {
	var account fund.Account
	_, _ = rand.Read(account[:])
	return account
}

// AccountsFixture returns n distinct random account identifiers.
func AccountsFixture(n int) []fund.Account {
	accounts := make([]fund.Account, 0, n)
	for i := 0; i < n; i++ {
		accounts = append(accounts, AccountFixture())
	}
	return accounts
}

// FundAccount seeds the vault balance of an account.
func FundAccount(t testing.TB, db *badger.DB, account fund.Account, amount fund.Amount) {
	err := db.Update(ledger.Credit(account, amount))
	require.NoError(t, err)
}

// FakeClock is a manually advanced ledger clock.
type FakeClock struct {
	Time uint64
}

func (c *FakeClock) Now() uint64 {
	return c.Time
}

// Advance moves the fake clock forward.
func (c *FakeClock) Advance(delta uint64) {
	c.Time += delta
}
