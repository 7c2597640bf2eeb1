// Package ledger adapts the host ledger's fund-movement primitives:
// per-account vault balances, atomic multi-leg transfer batches, ledger
// time and the non-transferable asset capability. Engines never move
// money except through a Batch, and a Batch either commits every leg or
// none.
package ledger

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v2"

	"github.com/commonfund/commonfund/model/fund"
	"github.com/commonfund/commonfund/storage/badger/operation"
)

// MaxBatchLegs is the maximum number of legs in one atomic batch. It is
// a hard constant tied to the host ledger's group-transaction limit.
const MaxBatchLegs = 16

var (
	// ErrInsufficientFunds is returned when a leg would debit an account
	// below zero. The whole batch is discarded, never partially applied.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrBatchTooLarge is returned when a batch would exceed
	// MaxBatchLegs.
	ErrBatchTooLarge = fmt.Errorf("transfer batch exceeds %d legs", MaxBatchLegs)

	// ErrZeroAmount is returned when a leg carries no value.
	ErrZeroAmount = errors.New("transfer amount must be positive")
)

// Transfer is a single outbound fund-movement instruction: debit From,
// credit To. The note travels with the leg for audit purposes only.
type Transfer struct {
	From   fund.Account
	To     fund.Account
	Amount fund.Amount
	Note   string
}

// Batch accumulates transfer legs and applies them as one indivisible
// unit. Legs are validated as they are added; the aggregate is
// validated against vault balances when the batch is applied inside a
// storage transaction, so a failing leg aborts the enclosing
// transaction and no leg persists.
type Batch struct {
	legs []Transfer
}

// NewBatch returns an empty transfer batch.
func NewBatch() *Batch {
	return &Batch{}
}

// Add appends a leg to the batch. It fails with ErrZeroAmount for
// valueless legs and ErrBatchTooLarge once the host ledger's group
// limit is reached.
func (b *Batch) Add(transfer Transfer) error {
	if transfer.Amount == 0 {
		return ErrZeroAmount
	}
	if len(b.legs) >= MaxBatchLegs {
		return ErrBatchTooLarge
	}
	b.legs = append(b.legs, transfer)
	return nil
}

// Len returns the number of accumulated legs.
func (b *Batch) Len() int {
	return len(b.legs)
}

// Legs returns a copy of the accumulated legs.
func (b *Batch) Legs() []Transfer {
	legs := make([]Transfer, len(b.legs))
	copy(legs, b.legs)
	return legs
}

// Apply returns a storage operation that settles every leg of the batch
// against the vault balances. Debits are checked for sufficient funds
// and credits for overflow; the first violation aborts the operation,
// which aborts the enclosing badger transaction, leaving all balances
// untouched.
func (b *Batch) Apply() func(*badger.Txn) error {
	return func(tx *badger.Txn) error {
		for i, leg := range b.legs {

			var from fund.Amount
			err := operation.RetrieveVaultBalance(leg.From, &from)(tx)
			if err != nil {
				return fmt.Errorf("could not read balance of %v: %w", leg.From, err)
			}
			debited, err := fund.SafeSub(from, leg.Amount)
			if err != nil {
				return fmt.Errorf("leg %d debits %d from %v holding %d: %w",
					i, leg.Amount, leg.From, from, ErrInsufficientFunds)
			}
			err = operation.UpsertVaultBalance(leg.From, debited)(tx)
			if err != nil {
				return fmt.Errorf("could not debit %v: %w", leg.From, err)
			}

			var to fund.Amount
			err = operation.RetrieveVaultBalance(leg.To, &to)(tx)
			if err != nil {
				return fmt.Errorf("could not read balance of %v: %w", leg.To, err)
			}
			credited, err := fund.SafeAdd(to, leg.Amount)
			if err != nil {
				return fmt.Errorf("leg %d credits %d to %v holding %d: %w", i, leg.Amount, leg.To, to, err)
			}
			err = operation.UpsertVaultBalance(leg.To, credited)(tx)
			if err != nil {
				return fmt.Errorf("could not credit %v: %w", leg.To, err)
			}
		}
		return nil
	}
}

// Credit mints the given amount into an account's vault balance. The
// host ledger funds accounts out of band; this operation exists so
// deposits and test fixtures can seed balances through the same code
// path the batch uses.
func Credit(account fund.Account, amount fund.Amount) func(*badger.Txn) error {
	return func(tx *badger.Txn) error {
		var balance fund.Amount
		err := operation.RetrieveVaultBalance(account, &balance)(tx)
		if err != nil {
			return fmt.Errorf("could not read balance of %v: %w", account, err)
		}
		credited, err := fund.SafeAdd(balance, amount)
		if err != nil {
			return err
		}
		return operation.UpsertVaultBalance(account, credited)(tx)
	}
}

// BalanceOf reads the current vault balance of an account.
func BalanceOf(db *badger.DB, account fund.Account) (fund.Amount, error) {
	var balance fund.Amount
	err := db.View(operation.RetrieveVaultBalance(account, &balance))
	if err != nil {
		return 0, fmt.Errorf("could not read vault balance: %w", err)
	}
	return balance, nil
}

// BalanceReader provides read access to vault account balances.
type BalanceReader interface {
	BalanceOf(account fund.Account) (fund.Amount, error)
}

// Balances is the database-backed BalanceReader.
type Balances struct {
	db *badger.DB
}

func NewBalances(db *badger.DB) *Balances {
	return &Balances{db: db}
}

func (b *Balances) BalanceOf(account fund.Account) (fund.Amount, error) {
	return BalanceOf(b.db, account)
}
