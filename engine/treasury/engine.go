// Package treasury implements the M-of-N spending approval state
// machine: a fixed signer set gates proposals behind a quorum of
// distinct approvals before the treasury account releases funds.
package treasury

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v2"
	"github.com/rs/zerolog"

	"github.com/commonfund/commonfund/ledger"
	"github.com/commonfund/commonfund/model/fund"
	"github.com/commonfund/commonfund/module"
	"github.com/commonfund/commonfund/module/metrics"
	"github.com/commonfund/commonfund/storage"
	"github.com/commonfund/commonfund/storage/badger/operation"
)

// Engine is the treasury state machine. The treasury instance holds its
// funds in a dedicated vault account; spending only ever leaves it
// through Execute.
type Engine struct {
	log     zerolog.Logger
	metrics module.EngineMetrics
	db      *badger.DB
}

func New(log zerolog.Logger, collector module.EngineMetrics, db *badger.DB) *Engine {
	e := &Engine{
		log:     log.With().Str("engine", metrics.EngineTreasury).Logger(),
		metrics: collector,
		db:      db,
	}
	return e
}

// Account returns the vault account holding the funds of a treasury
// instance.
func Account(instanceID uint64) fund.Account {
	var account fund.Account
	copy(account[:], "treasury/")
	for i := 0; i < 8; i++ {
		account[fund.AccountLen-1-i] = byte(instanceID >> (8 * i))
	}
	return account
}

// Bootstrap establishes the signer set and threshold of a treasury
// instance. Both are immutable afterwards; a retry fails with
// ErrAlreadyInitialized.
func (e *Engine) Bootstrap(instanceID uint64, signers []fund.Account, threshold uint64) error {

	if threshold == 0 || threshold > uint64(len(signers)) {
		e.metrics.TransitionRejected(metrics.EngineTreasury, "bootstrap")
		return ErrInvalidThreshold
	}
	seen := make(map[fund.Account]struct{}, len(signers))
	for _, signer := range signers {
		if _, ok := seen[signer]; ok {
			e.metrics.TransitionRejected(metrics.EngineTreasury, "bootstrap")
			return ErrDuplicateSigner
		}
		seen[signer] = struct{}{}
	}

	treasury := fund.Treasury{
		Signers:   signers,
		Threshold: threshold,
	}

	err := e.db.Update(operation.InsertTreasury(instanceID, &treasury))
	if err != nil {
		e.metrics.TransitionRejected(metrics.EngineTreasury, "bootstrap")
		if errors.Is(err, storage.ErrAlreadyExists) {
			return ErrAlreadyInitialized
		}
		return fmt.Errorf("could not insert treasury: %w", err)
	}

	e.metrics.TransitionApplied(metrics.EngineTreasury, "bootstrap")
	e.log.Info().
		Uint64("instance", instanceID).
		Int("signers", len(signers)).
		Uint64("threshold", threshold).
		Msg("treasury bootstrapped")

	return nil
}

// Deposit moves funds from the depositor into the treasury's vault
// account. Anyone may fund the treasury.
func (e *Engine) Deposit(instanceID uint64, from fund.Account, amount fund.Amount) error {

	if amount == 0 {
		e.metrics.TransitionRejected(metrics.EngineTreasury, "deposit")
		return ErrZeroAmount
	}

	err := e.db.Update(func(tx *badger.Txn) error {

		var treasury fund.Treasury
		err := operation.RetrieveTreasury(instanceID, &treasury)(tx)
		if err != nil {
			return fmt.Errorf("could not retrieve treasury: %w", err)
		}

		batch := ledger.NewBatch()
		err = batch.Add(ledger.Transfer{
			From:   from,
			To:     Account(instanceID),
			Amount: amount,
			Note:   "treasury deposit",
		})
		if err != nil {
			return err
		}
		return batch.Apply()(tx)
	})
	if err != nil {
		e.metrics.TransitionRejected(metrics.EngineTreasury, "deposit")
		return err
	}

	e.metrics.TransitionApplied(metrics.EngineTreasury, "deposit")
	return nil
}

// CreateProposal creates a spending proposal and returns its id.
// Proposal ids are monotonic and start at 1. Only signers may propose;
// no funds move.
func (e *Engine) CreateProposal(instanceID uint64, author fund.Account, recipient fund.Account, amount fund.Amount, description string) (uint64, error) {

	if amount == 0 {
		e.metrics.TransitionRejected(metrics.EngineTreasury, "create_proposal")
		return 0, ErrZeroAmount
	}

	var proposalID uint64
	err := e.db.Update(func(tx *badger.Txn) error {

		var treasury fund.Treasury
		err := operation.RetrieveTreasury(instanceID, &treasury)(tx)
		if err != nil {
			return fmt.Errorf("could not retrieve treasury: %w", err)
		}
		if !treasury.IsSigner(author) {
			return ErrNotASigner
		}

		treasury.ProposalCount++
		proposalID = treasury.ProposalCount

		proposal := fund.Proposal{
			ID:          proposalID,
			Author:      author,
			Recipient:   recipient,
			Amount:      amount,
			Description: description,
			Status:      fund.ProposalPending,
		}
		err = operation.InsertProposal(instanceID, &proposal)(tx)
		if err != nil {
			return fmt.Errorf("could not insert proposal: %w", err)
		}

		err = operation.UpdateTreasury(instanceID, &treasury)(tx)
		if err != nil {
			return fmt.Errorf("could not update treasury: %w", err)
		}

		return nil
	})
	if err != nil {
		e.metrics.TransitionRejected(metrics.EngineTreasury, "create_proposal")
		return 0, err
	}

	e.metrics.TransitionApplied(metrics.EngineTreasury, "create_proposal")
	e.log.Info().
		Uint64("instance", instanceID).
		Uint64("proposal", proposalID).
		Uint64("amount", uint64(amount)).
		Msg("proposal created")

	return proposalID, nil
}

// Approve records a signer's approval of a pending proposal. Distinct
// signers only: a repeated approval fails with ErrAlreadyApproved and
// never double-counts.
func (e *Engine) Approve(instanceID uint64, proposalID uint64, signer fund.Account) error {

	err := e.db.Update(func(tx *badger.Txn) error {

		var treasury fund.Treasury
		err := operation.RetrieveTreasury(instanceID, &treasury)(tx)
		if err != nil {
			return fmt.Errorf("could not retrieve treasury: %w", err)
		}
		if !treasury.IsSigner(signer) {
			return ErrNotASigner
		}

		var proposal fund.Proposal
		err = operation.RetrieveProposal(instanceID, proposalID, &proposal)(tx)
		if err != nil {
			return fmt.Errorf("could not retrieve proposal: %w", err)
		}
		if proposal.Status == fund.ProposalExecuted {
			return ErrAlreadyExecuted
		}
		if proposal.Status != fund.ProposalPending {
			return ErrProposalNotPending
		}

		err = operation.InsertApproval(instanceID, proposalID, signer)(tx)
		if errors.Is(err, storage.ErrAlreadyExists) {
			return ErrAlreadyApproved
		}
		if err != nil {
			return fmt.Errorf("could not insert approval: %w", err)
		}

		proposal.Approvals++
		err = operation.UpdateProposal(instanceID, &proposal)(tx)
		if err != nil {
			return fmt.Errorf("could not update proposal: %w", err)
		}

		return nil
	})
	if err != nil {
		e.metrics.TransitionRejected(metrics.EngineTreasury, "approve")
		return err
	}

	e.metrics.TransitionApplied(metrics.EngineTreasury, "approve")
	e.log.Info().
		Uint64("instance", instanceID).
		Uint64("proposal", proposalID).
		Str("signer", signer.String()).
		Msg("proposal approved")

	return nil
}

// Execute releases the proposed funds to the recipient once the quorum
// is met. The transfer and the executed flag commit in the same storage
// transaction, so a failed transfer leaves the proposal pending with
// its approvals intact and the call safely retryable.
func (e *Engine) Execute(instanceID uint64, proposalID uint64) (*ledger.Transfer, error) {

	var transfer ledger.Transfer
	err := e.db.Update(func(tx *badger.Txn) error {

		var treasury fund.Treasury
		err := operation.RetrieveTreasury(instanceID, &treasury)(tx)
		if err != nil {
			return fmt.Errorf("could not retrieve treasury: %w", err)
		}

		var proposal fund.Proposal
		err = operation.RetrieveProposal(instanceID, proposalID, &proposal)(tx)
		if err != nil {
			return fmt.Errorf("could not retrieve proposal: %w", err)
		}
		if proposal.Status == fund.ProposalExecuted {
			return ErrAlreadyExecuted
		}
		if proposal.Status != fund.ProposalPending {
			return ErrProposalNotPending
		}
		if proposal.Approvals < treasury.Threshold {
			return ErrQuorumNotMet
		}

		transfer = ledger.Transfer{
			From:   Account(instanceID),
			To:     proposal.Recipient,
			Amount: proposal.Amount,
			Note:   proposal.Description,
		}
		batch := ledger.NewBatch()
		err = batch.Add(transfer)
		if err != nil {
			return err
		}
		err = batch.Apply()(tx)
		if err != nil {
			return fmt.Errorf("could not apply transfer: %w", err)
		}

		proposal.Status = fund.ProposalExecuted
		err = operation.UpdateProposal(instanceID, &proposal)(tx)
		if err != nil {
			return fmt.Errorf("could not update proposal: %w", err)
		}

		return nil
	})
	if err != nil {
		e.metrics.TransitionRejected(metrics.EngineTreasury, "execute")
		return nil, err
	}

	e.metrics.TransitionApplied(metrics.EngineTreasury, "execute")
	e.metrics.TransferEmitted(metrics.EngineTreasury, "execute", 1)
	e.log.Info().
		Uint64("instance", instanceID).
		Uint64("proposal", proposalID).
		Uint64("amount", uint64(transfer.Amount)).
		Msg("proposal executed")

	return &transfer, nil
}

// Reject withdraws a pending proposal. Only the proposal author may
// reject; the transition is terminal and no funds move.
func (e *Engine) Reject(instanceID uint64, proposalID uint64, author fund.Account) error {

	err := e.db.Update(func(tx *badger.Txn) error {

		var proposal fund.Proposal
		err := operation.RetrieveProposal(instanceID, proposalID, &proposal)(tx)
		if err != nil {
			return fmt.Errorf("could not retrieve proposal: %w", err)
		}
		if proposal.Author != author {
			return ErrNotAuthor
		}
		if proposal.Status != fund.ProposalPending {
			return ErrProposalNotPending
		}

		proposal.Status = fund.ProposalRejected
		err = operation.UpdateProposal(instanceID, &proposal)(tx)
		if err != nil {
			return fmt.Errorf("could not update proposal: %w", err)
		}

		return nil
	})
	if err != nil {
		e.metrics.TransitionRejected(metrics.EngineTreasury, "reject")
		return err
	}

	e.metrics.TransitionApplied(metrics.EngineTreasury, "reject")
	e.log.Info().
		Uint64("instance", instanceID).
		Uint64("proposal", proposalID).
		Msg("proposal rejected")

	return nil
}

// Proposal returns a proposal record by id.
func (e *Engine) Proposal(instanceID uint64, proposalID uint64) (*fund.Proposal, error) {
	var proposal fund.Proposal
	err := e.db.View(operation.RetrieveProposal(instanceID, proposalID, &proposal))
	if err != nil {
		return nil, fmt.Errorf("could not retrieve proposal: %w", err)
	}
	return &proposal, nil
}

// Info returns the treasury record and the available balance of its
// vault account.
func (e *Engine) Info(instanceID uint64) (*fund.Treasury, fund.Amount, error) {
	var treasury fund.Treasury
	var balance fund.Amount
	err := e.db.View(func(tx *badger.Txn) error {
		err := operation.RetrieveTreasury(instanceID, &treasury)(tx)
		if err != nil {
			return fmt.Errorf("could not retrieve treasury: %w", err)
		}
		return operation.RetrieveVaultBalance(Account(instanceID), &balance)(tx)
	})
	if err != nil {
		return nil, 0, err
	}
	return &treasury, balance, nil
}
