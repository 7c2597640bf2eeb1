package treasury_test

import (
	"testing"

	"github.com/dgraph-io/badger/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commonfund/commonfund/engine/treasury"
	"github.com/commonfund/commonfund/ledger"
	"github.com/commonfund/commonfund/model/fund"
	"github.com/commonfund/commonfund/module/metrics"
	"github.com/commonfund/commonfund/utils/unittest"
)

func withEngine(t *testing.T, f func(*badger.DB, *treasury.Engine)) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		engine := treasury.New(unittest.Logger(), metrics.NewNoopCollector(), db)
		f(db, engine)
	})
}

func TestBootstrap(t *testing.T) {
	withEngine(t, func(db *badger.DB, engine *treasury.Engine) {
		signers := unittest.AccountsFixture(3)

		t.Run("valid signer set", func(t *testing.T) {
			err := engine.Bootstrap(1, signers, 2)
			require.NoError(t, err)

			info, balance, err := engine.Info(1)
			require.NoError(t, err)
			assert.Equal(t, signers, info.Signers)
			assert.Equal(t, uint64(2), info.Threshold)
			assert.Zero(t, balance)
		})

		t.Run("repeated bootstrap", func(t *testing.T) {
			err := engine.Bootstrap(1, signers, 2)
			assert.ErrorIs(t, err, treasury.ErrAlreadyInitialized)
		})

		t.Run("zero threshold", func(t *testing.T) {
			err := engine.Bootstrap(2, signers, 0)
			assert.ErrorIs(t, err, treasury.ErrInvalidThreshold)
		})

		t.Run("threshold above signer count", func(t *testing.T) {
			err := engine.Bootstrap(2, signers, 4)
			assert.ErrorIs(t, err, treasury.ErrInvalidThreshold)
		})

		t.Run("duplicate signer", func(t *testing.T) {
			err := engine.Bootstrap(2, []fund.Account{signers[0], signers[0]}, 1)
			assert.ErrorIs(t, err, treasury.ErrDuplicateSigner)
		})
	})
}

func TestDeposit(t *testing.T) {
	withEngine(t, func(db *badger.DB, engine *treasury.Engine) {
		signers := unittest.AccountsFixture(3)
		require.NoError(t, engine.Bootstrap(1, signers, 2))

		depositor := unittest.AccountFixture()
		unittest.FundAccount(t, db, depositor, 500)

		err := engine.Deposit(1, depositor, 200)
		require.NoError(t, err)

		_, balance, err := engine.Info(1)
		require.NoError(t, err)
		assert.Equal(t, fund.Amount(200), balance)

		remaining, err := ledger.BalanceOf(db, depositor)
		require.NoError(t, err)
		assert.Equal(t, fund.Amount(300), remaining)

		t.Run("zero amount", func(t *testing.T) {
			err := engine.Deposit(1, depositor, 0)
			assert.ErrorIs(t, err, treasury.ErrZeroAmount)
		})

		t.Run("uncovered deposit", func(t *testing.T) {
			err := engine.Deposit(1, depositor, 10000)
			assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
		})
	})
}

func TestProposalLifecycle(t *testing.T) {
	withEngine(t, func(db *badger.DB, engine *treasury.Engine) {
		signers := unittest.AccountsFixture(3)
		recipient := unittest.AccountFixture()
		require.NoError(t, engine.Bootstrap(1, signers, 2))

		depositor := unittest.AccountFixture()
		unittest.FundAccount(t, db, depositor, 1000)
		require.NoError(t, engine.Deposit(1, depositor, 1000))

		proposalID, err := engine.CreateProposal(1, signers[0], recipient, 100, "server hosting")
		require.NoError(t, err)
		assert.Equal(t, uint64(1), proposalID)

		t.Run("ids are monotonic", func(t *testing.T) {
			next, err := engine.CreateProposal(1, signers[1], recipient, 50, "domain renewal")
			require.NoError(t, err)
			assert.Equal(t, uint64(2), next)
		})

		t.Run("non-signer cannot propose", func(t *testing.T) {
			_, err := engine.CreateProposal(1, unittest.AccountFixture(), recipient, 10, "nope")
			assert.ErrorIs(t, err, treasury.ErrNotASigner)
		})

		t.Run("execute before quorum", func(t *testing.T) {
			require.NoError(t, engine.Approve(1, proposalID, signers[0]))
			_, err := engine.Execute(1, proposalID)
			assert.ErrorIs(t, err, treasury.ErrQuorumNotMet)
		})

		t.Run("duplicate approval does not count", func(t *testing.T) {
			err := engine.Approve(1, proposalID, signers[0])
			assert.ErrorIs(t, err, treasury.ErrAlreadyApproved)

			proposal, err := engine.Proposal(1, proposalID)
			require.NoError(t, err)
			assert.Equal(t, uint64(1), proposal.Approvals)
		})

		t.Run("non-signer cannot approve", func(t *testing.T) {
			err := engine.Approve(1, proposalID, unittest.AccountFixture())
			assert.ErrorIs(t, err, treasury.ErrNotASigner)
		})

		t.Run("execute at quorum", func(t *testing.T) {
			require.NoError(t, engine.Approve(1, proposalID, signers[1]))

			transfer, err := engine.Execute(1, proposalID)
			require.NoError(t, err)
			assert.Equal(t, treasury.Account(1), transfer.From)
			assert.Equal(t, recipient, transfer.To)
			assert.Equal(t, fund.Amount(100), transfer.Amount)

			balance, err := ledger.BalanceOf(db, recipient)
			require.NoError(t, err)
			assert.Equal(t, fund.Amount(100), balance)

			_, vault, err := engine.Info(1)
			require.NoError(t, err)
			assert.Equal(t, fund.Amount(900), vault)

			proposal, err := engine.Proposal(1, proposalID)
			require.NoError(t, err)
			assert.Equal(t, fund.ProposalExecuted, proposal.Status)
		})

		t.Run("execute twice", func(t *testing.T) {
			_, err := engine.Execute(1, proposalID)
			assert.ErrorIs(t, err, treasury.ErrAlreadyExecuted)
		})

		t.Run("approve executed proposal", func(t *testing.T) {
			err := engine.Approve(1, proposalID, signers[2])
			assert.ErrorIs(t, err, treasury.ErrAlreadyExecuted)
		})
	})
}

func TestExecuteInsufficientFunds(t *testing.T) {
	withEngine(t, func(db *badger.DB, engine *treasury.Engine) {
		signers := unittest.AccountsFixture(3)
		recipient := unittest.AccountFixture()
		require.NoError(t, engine.Bootstrap(1, signers, 2))

		proposalID, err := engine.CreateProposal(1, signers[0], recipient, 100, "unfunded")
		require.NoError(t, err)
		require.NoError(t, engine.Approve(1, proposalID, signers[0]))
		require.NoError(t, engine.Approve(1, proposalID, signers[1]))

		_, err = engine.Execute(1, proposalID)
		assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

		// the proposal stays pending with its approvals intact
		proposal, err := engine.Proposal(1, proposalID)
		require.NoError(t, err)
		assert.Equal(t, fund.ProposalPending, proposal.Status)
		assert.Equal(t, uint64(2), proposal.Approvals)

		// funding the vault makes the retry succeed
		depositor := unittest.AccountFixture()
		unittest.FundAccount(t, db, depositor, 100)
		require.NoError(t, engine.Deposit(1, depositor, 100))

		_, err = engine.Execute(1, proposalID)
		require.NoError(t, err)
	})
}

func TestReject(t *testing.T) {
	withEngine(t, func(db *badger.DB, engine *treasury.Engine) {
		signers := unittest.AccountsFixture(3)
		recipient := unittest.AccountFixture()
		require.NoError(t, engine.Bootstrap(1, signers, 2))

		proposalID, err := engine.CreateProposal(1, signers[0], recipient, 100, "reconsidered")
		require.NoError(t, err)

		t.Run("only the author may reject", func(t *testing.T) {
			err := engine.Reject(1, proposalID, signers[1])
			assert.ErrorIs(t, err, treasury.ErrNotAuthor)
		})

		t.Run("author rejects", func(t *testing.T) {
			err := engine.Reject(1, proposalID, signers[0])
			require.NoError(t, err)

			proposal, err := engine.Proposal(1, proposalID)
			require.NoError(t, err)
			assert.Equal(t, fund.ProposalRejected, proposal.Status)
		})

		t.Run("rejected proposal is terminal", func(t *testing.T) {
			err := engine.Approve(1, proposalID, signers[1])
			assert.ErrorIs(t, err, treasury.ErrProposalNotPending)
			_, err = engine.Execute(1, proposalID)
			assert.ErrorIs(t, err, treasury.ErrProposalNotPending)
			err = engine.Reject(1, proposalID, signers[0])
			assert.ErrorIs(t, err, treasury.ErrProposalNotPending)
		})
	})
}

func TestInstancesAreIsolated(t *testing.T) {
	withEngine(t, func(db *badger.DB, engine *treasury.Engine) {
		require.NoError(t, engine.Bootstrap(1, unittest.AccountsFixture(2), 1))
		require.NoError(t, engine.Bootstrap(2, unittest.AccountsFixture(3), 3))

		assert.NotEqual(t, treasury.Account(1), treasury.Account(2))

		depositor := unittest.AccountFixture()
		unittest.FundAccount(t, db, depositor, 100)
		require.NoError(t, engine.Deposit(1, depositor, 100))

		_, balance, err := engine.Info(2)
		require.NoError(t, err)
		assert.Zero(t, balance)
	})
}
