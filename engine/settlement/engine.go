// Package settlement implements the group expense settlement state
// machine: a fixed group of members logs shared expenses against
// per-member net balances and settles all debts in a single atomic
// transfer batch.
package settlement

import (
	"fmt"
	"math"

	"github.com/dgraph-io/badger/v2"
	"github.com/rs/zerolog"

	"github.com/commonfund/commonfund/ledger"
	"github.com/commonfund/commonfund/model/fund"
	"github.com/commonfund/commonfund/module"
	"github.com/commonfund/commonfund/module/metrics"
	"github.com/commonfund/commonfund/storage/badger/operation"
)

// Engine is the settlement state machine. Every operation is a single
// synchronous transition applied in one storage transaction; it either
// commits fully or leaves state untouched.
type Engine struct {
	log     zerolog.Logger
	metrics module.EngineMetrics
	db      *badger.DB
}

func New(log zerolog.Logger, collector module.EngineMetrics, db *badger.DB) *Engine {
	e := &Engine{
		log:     log.With().Str("engine", metrics.EngineSettlement).Logger(),
		metrics: collector,
		db:      db,
	}
	return e
}

// CreateGroup creates the group for a settlement instance with a fixed
// member set of 1 to 16 distinct accounts and all balances zero.
func (e *Engine) CreateGroup(instanceID uint64, creator fund.Account, members []fund.Account) error {

	if len(members) == 0 || len(members) > fund.MaxGroupMembers {
		e.metrics.TransitionRejected(metrics.EngineSettlement, "create_group")
		return ErrInvalidGroupSize
	}
	seen := make(map[fund.Account]struct{}, len(members))
	for _, member := range members {
		if _, ok := seen[member]; ok {
			e.metrics.TransitionRejected(metrics.EngineSettlement, "create_group")
			return ErrDuplicateMember
		}
		seen[member] = struct{}{}
	}

	group := fund.Group{
		Creator: creator,
		Members: members,
	}

	err := e.db.Update(func(tx *badger.Txn) error {
		err := operation.InsertGroup(instanceID, &group)(tx)
		if err != nil {
			return fmt.Errorf("could not insert group: %w", err)
		}
		for _, member := range members {
			err = operation.InsertGroupBalance(instanceID, member, 0)(tx)
			if err != nil {
				return fmt.Errorf("could not initialize balance of %v: %w", member, err)
			}
		}
		return nil
	})
	if err != nil {
		e.metrics.TransitionRejected(metrics.EngineSettlement, "create_group")
		return err
	}

	e.metrics.TransitionApplied(metrics.EngineSettlement, "create_group")
	e.log.Info().
		Uint64("instance", instanceID).
		Int("members", len(members)).
		Msg("group created")

	return nil
}

// AddExpense logs an expense paid by a group member. The amount is
// split evenly across all members: every other member's balance is
// debited by their share and the payer is credited by the amount minus
// their own share. The remainder of the integer division belongs to the
// payer's share, which keeps the sum of all balances at exactly zero.
func (e *Engine) AddExpense(instanceID uint64, payer fund.Account, amount fund.Amount, description string) error {

	if amount == 0 {
		e.metrics.TransitionRejected(metrics.EngineSettlement, "add_expense")
		return ErrZeroAmount
	}
	if amount > math.MaxInt64 {
		e.metrics.TransitionRejected(metrics.EngineSettlement, "add_expense")
		return fund.ErrOverflow
	}

	err := e.db.Update(func(tx *badger.Txn) error {

		var group fund.Group
		err := operation.RetrieveGroup(instanceID, &group)(tx)
		if err != nil {
			return fmt.Errorf("could not retrieve group: %w", err)
		}
		if group.Settled {
			return ErrGroupAlreadySettled
		}
		if !group.IsMember(payer) {
			return ErrNotAMember
		}

		memberCount := fund.Amount(len(group.Members))
		share := amount / memberCount

		for _, member := range group.Members {

			var delta int64
			if member == payer {
				// the payer fronted the full amount; their own share
				// absorbs the division remainder
				delta = int64(share) * int64(memberCount-1)
			} else {
				delta = -int64(share)
			}

			var balance int64
			err = operation.RetrieveGroupBalance(instanceID, member, &balance)(tx)
			if err != nil {
				return fmt.Errorf("could not retrieve balance of %v: %w", member, err)
			}
			balance, err = fund.AddSigned(balance, delta)
			if err != nil {
				return err
			}
			err = operation.UpdateGroupBalance(instanceID, member, balance)(tx)
			if err != nil {
				return fmt.Errorf("could not update balance of %v: %w", member, err)
			}
		}

		expense := fund.Expense{
			Payer:       payer,
			Amount:      amount,
			Description: description,
		}
		err = operation.InsertExpense(instanceID, group.ExpenseCount, &expense)(tx)
		if err != nil {
			return fmt.Errorf("could not insert expense: %w", err)
		}

		group.ExpenseCount++
		group.TotalPool, err = fund.SafeAdd(group.TotalPool, amount)
		if err != nil {
			return err
		}
		err = operation.UpdateGroup(instanceID, &group)(tx)
		if err != nil {
			return fmt.Errorf("could not update group: %w", err)
		}

		return nil
	})
	if err != nil {
		e.metrics.TransitionRejected(metrics.EngineSettlement, "add_expense")
		return err
	}

	e.metrics.TransitionApplied(metrics.EngineSettlement, "add_expense")
	e.log.Info().
		Uint64("instance", instanceID).
		Str("payer", payer.String()).
		Uint64("amount", uint64(amount)).
		Msg("expense added")

	return nil
}

// Balance returns the signed net balance of a group member: positive
// means the member is owed money, negative means they owe.
func (e *Engine) Balance(instanceID uint64, member fund.Account) (int64, error) {

	var balance int64
	err := e.db.View(func(tx *badger.Txn) error {

		var group fund.Group
		err := operation.RetrieveGroup(instanceID, &group)(tx)
		if err != nil {
			return fmt.Errorf("could not retrieve group: %w", err)
		}
		if !group.IsMember(member) {
			return ErrNotAMember
		}

		return operation.RetrieveGroupBalance(instanceID, member, &balance)(tx)
	})
	if err != nil {
		return 0, err
	}

	return balance, nil
}

// Info returns the group record of a settlement instance.
func (e *Engine) Info(instanceID uint64) (*fund.Group, error) {
	var group fund.Group
	err := e.db.View(operation.RetrieveGroup(instanceID, &group))
	if err != nil {
		return nil, fmt.Errorf("could not retrieve group: %w", err)
	}
	return &group, nil
}

// SettleAll computes the transfers that net all member balances to zero
// and executes them as one all-or-nothing batch against the vault.
// On success every balance is reset to zero, the expense log is cleared
// and the group is marked settled; this is the terminal transition. If
// any leg cannot be covered the whole transaction aborts and state is
// byte-for-byte unchanged.
func (e *Engine) SettleAll(instanceID uint64) ([]ledger.Transfer, error) {

	var legs []ledger.Transfer
	err := e.db.Update(func(tx *badger.Txn) error {

		var group fund.Group
		err := operation.RetrieveGroup(instanceID, &group)(tx)
		if err != nil {
			return fmt.Errorf("could not retrieve group: %w", err)
		}
		if group.Settled {
			return ErrGroupAlreadySettled
		}

		type position struct {
			member fund.Account
			amount fund.Amount
		}
		var debtors []position
		var creditors []position
		for _, member := range group.Members {
			var balance int64
			err = operation.RetrieveGroupBalance(instanceID, member, &balance)(tx)
			if err != nil {
				return fmt.Errorf("could not retrieve balance of %v: %w", member, err)
			}
			switch {
			case balance < 0:
				debtors = append(debtors, position{member: member, amount: fund.Amount(-balance)})
			case balance > 0:
				creditors = append(creditors, position{member: member, amount: fund.Amount(balance)})
			}
		}

		// balances sum to zero, so pairing debtors against creditors
		// greedily consumes both lists completely
		batch := ledger.NewBatch()
		for len(debtors) > 0 && len(creditors) > 0 {
			debtor := &debtors[0]
			creditor := &creditors[0]

			amount := debtor.amount
			if creditor.amount < amount {
				amount = creditor.amount
			}

			err = batch.Add(ledger.Transfer{
				From:   debtor.member,
				To:     creditor.member,
				Amount: amount,
				Note:   "expense settlement",
			})
			if err != nil {
				return fmt.Errorf("could not add settlement leg: %w", err)
			}

			debtor.amount -= amount
			creditor.amount -= amount
			if debtor.amount == 0 {
				debtors = debtors[1:]
			}
			if creditor.amount == 0 {
				creditors = creditors[1:]
			}
		}

		err = batch.Apply()(tx)
		if err != nil {
			return fmt.Errorf("could not apply settlement batch: %w", err)
		}

		for _, member := range group.Members {
			err = operation.UpdateGroupBalance(instanceID, member, 0)(tx)
			if err != nil {
				return fmt.Errorf("could not zero balance of %v: %w", member, err)
			}
		}

		// settlement clears the expense log
		for index := uint64(0); index < group.ExpenseCount; index++ {
			err = operation.RemoveExpense(instanceID, index)(tx)
			if err != nil {
				return fmt.Errorf("could not remove expense %d: %w", index, err)
			}
		}

		group.Settled = true
		err = operation.UpdateGroup(instanceID, &group)(tx)
		if err != nil {
			return fmt.Errorf("could not update group: %w", err)
		}

		legs = batch.Legs()
		return nil
	})
	if err != nil {
		e.metrics.TransitionRejected(metrics.EngineSettlement, "settle_all")
		return nil, err
	}

	e.metrics.TransitionApplied(metrics.EngineSettlement, "settle_all")
	e.metrics.TransferEmitted(metrics.EngineSettlement, "settle_all", len(legs))
	e.log.Info().
		Uint64("instance", instanceID).
		Int("legs", len(legs)).
		Msg("group settled")

	return legs, nil
}
