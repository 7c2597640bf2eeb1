package settlement_test

import (
	"testing"

	"github.com/dgraph-io/badger/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commonfund/commonfund/engine/settlement"
	"github.com/commonfund/commonfund/ledger"
	"github.com/commonfund/commonfund/model/fund"
	"github.com/commonfund/commonfund/module/metrics"
	"github.com/commonfund/commonfund/utils/unittest"
)

func withEngine(t *testing.T, f func(*badger.DB, *settlement.Engine)) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		engine := settlement.New(unittest.Logger(), metrics.NewNoopCollector(), db)
		f(db, engine)
	})
}

func TestCreateGroup(t *testing.T) {
	withEngine(t, func(db *badger.DB, engine *settlement.Engine) {
		members := unittest.AccountsFixture(3)

		t.Run("valid group", func(t *testing.T) {
			err := engine.CreateGroup(1, members[0], members)
			require.NoError(t, err)

			group, err := engine.Info(1)
			require.NoError(t, err)
			assert.Equal(t, members[0], group.Creator)
			assert.Equal(t, members, group.Members)
			assert.False(t, group.Settled)

			for _, member := range members {
				balance, err := engine.Balance(1, member)
				require.NoError(t, err)
				assert.Zero(t, balance)
			}
		})

		t.Run("empty member set", func(t *testing.T) {
			err := engine.CreateGroup(2, members[0], nil)
			assert.ErrorIs(t, err, settlement.ErrInvalidGroupSize)
		})

		t.Run("too many members", func(t *testing.T) {
			err := engine.CreateGroup(2, members[0], unittest.AccountsFixture(fund.MaxGroupMembers+1))
			assert.ErrorIs(t, err, settlement.ErrInvalidGroupSize)
		})

		t.Run("duplicate member", func(t *testing.T) {
			err := engine.CreateGroup(2, members[0], []fund.Account{members[0], members[1], members[0]})
			assert.ErrorIs(t, err, settlement.ErrDuplicateMember)
		})
	})
}

func TestAddExpense(t *testing.T) {
	withEngine(t, func(db *badger.DB, engine *settlement.Engine) {
		members := unittest.AccountsFixture(3)
		require.NoError(t, engine.CreateGroup(1, members[0], members))

		t.Run("splits evenly", func(t *testing.T) {
			err := engine.AddExpense(1, members[0], 90, "dinner")
			require.NoError(t, err)

			balance, err := engine.Balance(1, members[0])
			require.NoError(t, err)
			assert.Equal(t, int64(60), balance)
			for _, member := range members[1:] {
				balance, err := engine.Balance(1, member)
				require.NoError(t, err)
				assert.Equal(t, int64(-30), balance)
			}

			group, err := engine.Info(1)
			require.NoError(t, err)
			assert.Equal(t, uint64(1), group.ExpenseCount)
			assert.Equal(t, fund.Amount(90), group.TotalPool)
		})

		t.Run("remainder stays with payer", func(t *testing.T) {
			// 100 / 3 = 33 each; payer is credited 66, others debited 33,
			// so the sum of balances stays exactly zero
			err := engine.AddExpense(1, members[1], 100, "groceries")
			require.NoError(t, err)

			var sum int64
			for _, member := range members {
				balance, err := engine.Balance(1, member)
				require.NoError(t, err)
				sum += balance
			}
			assert.Zero(t, sum)

			balance, err := engine.Balance(1, members[1])
			require.NoError(t, err)
			assert.Equal(t, int64(-30+66), balance)
		})

		t.Run("zero amount", func(t *testing.T) {
			err := engine.AddExpense(1, members[0], 0, "nothing")
			assert.ErrorIs(t, err, settlement.ErrZeroAmount)
		})

		t.Run("non-member payer", func(t *testing.T) {
			err := engine.AddExpense(1, unittest.AccountFixture(), 10, "gatecrash")
			assert.ErrorIs(t, err, settlement.ErrNotAMember)
		})

		t.Run("amount beyond signed range", func(t *testing.T) {
			err := engine.AddExpense(1, members[0], fund.Amount(1)<<63, "too much")
			assert.ErrorIs(t, err, fund.ErrOverflow)
		})

		t.Run("unknown group", func(t *testing.T) {
			err := engine.AddExpense(404, members[0], 10, "void")
			assert.Error(t, err)
		})
	})
}

func TestSettleAll(t *testing.T) {
	withEngine(t, func(db *badger.DB, engine *settlement.Engine) {
		members := unittest.AccountsFixture(3)
		require.NoError(t, engine.CreateGroup(1, members[0], members))
		require.NoError(t, engine.AddExpense(1, members[0], 90, "dinner"))

		// debtors pay out of their vault accounts
		unittest.FundAccount(t, db, members[1], 30)
		unittest.FundAccount(t, db, members[2], 30)

		legs, err := engine.SettleAll(1)
		require.NoError(t, err)
		require.Len(t, legs, 2)
		for _, leg := range legs {
			assert.Equal(t, members[0], leg.To)
			assert.Equal(t, fund.Amount(30), leg.Amount)
		}

		// creditor received both legs, debtors are drained
		balance, err := ledger.BalanceOf(db, members[0])
		require.NoError(t, err)
		assert.Equal(t, fund.Amount(60), balance)
		for _, member := range members[1:] {
			balance, err := ledger.BalanceOf(db, member)
			require.NoError(t, err)
			assert.Zero(t, balance)
		}

		// group is terminal with zeroed balances and an empty expense log
		group, err := engine.Info(1)
		require.NoError(t, err)
		assert.True(t, group.Settled)
		for _, member := range members {
			balance, err := engine.Balance(1, member)
			require.NoError(t, err)
			assert.Zero(t, balance)
		}

		t.Run("settled group rejects expenses", func(t *testing.T) {
			err := engine.AddExpense(1, members[0], 10, "late")
			assert.ErrorIs(t, err, settlement.ErrGroupAlreadySettled)
		})

		t.Run("settled group rejects second settlement", func(t *testing.T) {
			_, err := engine.SettleAll(1)
			assert.ErrorIs(t, err, settlement.ErrGroupAlreadySettled)
		})
	})
}

func TestSettleAllInsufficientFunds(t *testing.T) {
	withEngine(t, func(db *badger.DB, engine *settlement.Engine) {
		members := unittest.AccountsFixture(3)
		require.NoError(t, engine.CreateGroup(1, members[0], members))
		require.NoError(t, engine.AddExpense(1, members[0], 90, "dinner"))

		// only one debtor can cover their debt
		unittest.FundAccount(t, db, members[1], 30)

		_, err := engine.SettleAll(1)
		assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

		// the failed settlement left every record untouched
		group, err := engine.Info(1)
		require.NoError(t, err)
		assert.False(t, group.Settled)
		assert.Equal(t, uint64(1), group.ExpenseCount)

		balance, err := engine.Balance(1, members[0])
		require.NoError(t, err)
		assert.Equal(t, int64(60), balance)

		vault, err := ledger.BalanceOf(db, members[1])
		require.NoError(t, err)
		assert.Equal(t, fund.Amount(30), vault)
	})
}

func TestSettleAllWithoutExpenses(t *testing.T) {
	withEngine(t, func(db *badger.DB, engine *settlement.Engine) {
		members := unittest.AccountsFixture(2)
		require.NoError(t, engine.CreateGroup(1, members[0], members))

		legs, err := engine.SettleAll(1)
		require.NoError(t, err)
		assert.Empty(t, legs)

		group, err := engine.Info(1)
		require.NoError(t, err)
		assert.True(t, group.Settled)
	})
}
