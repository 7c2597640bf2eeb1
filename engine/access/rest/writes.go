package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/commonfund/commonfund/engine/escrow"
	"github.com/commonfund/commonfund/engine/settlement"
	"github.com/commonfund/commonfund/engine/treasury"
	"github.com/commonfund/commonfund/ledger"
	"github.com/commonfund/commonfund/model/fund"
	"github.com/commonfund/commonfund/storage"
)

// CreateGroupRequest is the JSON body of the group creation operation.
type CreateGroupRequest struct {
	Creator string   `json:"creator"`
	Members []string `json:"members"`
}

// AddExpenseRequest is the JSON body of the expense logging operation.
type AddExpenseRequest struct {
	Payer       string `json:"payer"`
	Amount      uint64 `json:"amount"`
	Description string `json:"description"`
}

// Settlement is the JSON result of the settle operation.
type Settlement struct {
	Legs []TransferLeg `json:"legs"`
}

// TransferLeg is the JSON view of one executed transfer leg.
type TransferLeg struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
	Note   string `json:"note,omitempty"`
}

// BootstrapTreasuryRequest is the JSON body of the treasury bootstrap
// operation.
type BootstrapTreasuryRequest struct {
	Signers   []string `json:"signers"`
	Threshold uint64   `json:"threshold"`
}

// DepositRequest is the JSON body of the treasury deposit operation.
type DepositRequest struct {
	From   string `json:"from"`
	Amount uint64 `json:"amount"`
}

// CreateProposalRequest is the JSON body of the proposal creation
// operation.
type CreateProposalRequest struct {
	Author      string `json:"author"`
	Recipient   string `json:"recipient"`
	Amount      uint64 `json:"amount"`
	Description string `json:"description"`
}

// CreatedProposal is the JSON result of the proposal creation
// operation.
type CreatedProposal struct {
	ID uint64 `json:"id"`
}

// ApproveRequest is the JSON body of the proposal approval operation.
type ApproveRequest struct {
	Signer string `json:"signer"`
}

// RejectRequest is the JSON body of the proposal rejection operation.
type RejectRequest struct {
	Author string `json:"author"`
}

// CreateCampaignRequest is the JSON body of the campaign creation
// operation.
type CreateCampaignRequest struct {
	Creator     string `json:"creator"`
	Beneficiary string `json:"beneficiary"`
	Goal        uint64 `json:"goal"`
	Deadline    uint64 `json:"deadline"`
}

// DonateRequest is the JSON body of the donation operation.
type DonateRequest struct {
	Donor     string `json:"donor"`
	Amount    uint64 `json:"amount"`
	Anonymous bool   `json:"anonymous"`
}

// AddMilestoneRequest is the JSON body of the milestone creation
// operation.
type AddMilestoneRequest struct {
	Creator     string `json:"creator"`
	Description string `json:"description"`
	Amount      uint64 `json:"amount"`
}

// CreatedMilestone is the JSON result of the milestone creation
// operation.
type CreatedMilestone struct {
	Index uint64 `json:"index"`
}

// CreatorRequest is the JSON body of operations restricted to the
// campaign creator.
type CreatorRequest struct {
	Creator string `json:"creator"`
}

// RefundRequest is the JSON body of the refund operation.
type RefundRequest struct {
	Donor string `json:"donor"`
}

func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	log := h.before(w, r)

	instanceID, ok := h.instanceID(w, r, log)
	if !ok {
		return
	}
	var req CreateGroupRequest
	if !h.decode(w, r, &req, log) {
		return
	}
	creator, err := fund.HexToAccount(req.Creator)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "invalid creator account", log)
		return
	}
	members := make([]fund.Account, 0, len(req.Members))
	for _, raw := range req.Members {
		member, err := fund.HexToAccount(raw)
		if err != nil {
			h.errorResponse(w, http.StatusBadRequest, "invalid member account", log)
			return
		}
		members = append(members, member)
	}

	err = h.settlement.CreateGroup(instanceID, creator, members)
	if err != nil {
		h.transitionError(w, err, log)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) AddExpense(w http.ResponseWriter, r *http.Request) {
	log := h.before(w, r)

	instanceID, ok := h.instanceID(w, r, log)
	if !ok {
		return
	}
	var req AddExpenseRequest
	if !h.decode(w, r, &req, log) {
		return
	}
	payer, err := fund.HexToAccount(req.Payer)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "invalid payer account", log)
		return
	}

	err = h.settlement.AddExpense(instanceID, payer, fund.Amount(req.Amount), req.Description)
	if err != nil {
		h.transitionError(w, err, log)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) SettleGroup(w http.ResponseWriter, r *http.Request) {
	log := h.before(w, r)

	instanceID, ok := h.instanceID(w, r, log)
	if !ok {
		return
	}

	legs, err := h.settlement.SettleAll(instanceID)
	if err != nil {
		h.transitionError(w, err, log)
		return
	}

	h.jsonResponse(w, toSettlement(legs), log)
}

func (h *Handler) BootstrapTreasury(w http.ResponseWriter, r *http.Request) {
	log := h.before(w, r)

	instanceID, ok := h.instanceID(w, r, log)
	if !ok {
		return
	}
	var req BootstrapTreasuryRequest
	if !h.decode(w, r, &req, log) {
		return
	}
	signers := make([]fund.Account, 0, len(req.Signers))
	for _, raw := range req.Signers {
		signer, err := fund.HexToAccount(raw)
		if err != nil {
			h.errorResponse(w, http.StatusBadRequest, "invalid signer account", log)
			return
		}
		signers = append(signers, signer)
	}

	err := h.treasuries.Bootstrap(instanceID, signers, req.Threshold)
	if err != nil {
		h.transitionError(w, err, log)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) DepositTreasury(w http.ResponseWriter, r *http.Request) {
	log := h.before(w, r)

	instanceID, ok := h.instanceID(w, r, log)
	if !ok {
		return
	}
	var req DepositRequest
	if !h.decode(w, r, &req, log) {
		return
	}
	from, err := fund.HexToAccount(req.From)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "invalid depositor account", log)
		return
	}

	err = h.treasuries.Deposit(instanceID, from, fund.Amount(req.Amount))
	if err != nil {
		h.transitionError(w, err, log)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) CreateProposal(w http.ResponseWriter, r *http.Request) {
	log := h.before(w, r)

	instanceID, ok := h.instanceID(w, r, log)
	if !ok {
		return
	}
	var req CreateProposalRequest
	if !h.decode(w, r, &req, log) {
		return
	}
	author, err := fund.HexToAccount(req.Author)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "invalid author account", log)
		return
	}
	recipient, err := fund.HexToAccount(req.Recipient)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "invalid recipient account", log)
		return
	}

	proposalID, err := h.treasuries.CreateProposal(instanceID, author, recipient, fund.Amount(req.Amount), req.Description)
	if err != nil {
		h.transitionError(w, err, log)
		return
	}

	h.jsonResponse(w, &CreatedProposal{ID: proposalID}, log)
}

func (h *Handler) ApproveProposal(w http.ResponseWriter, r *http.Request) {
	log := h.before(w, r)

	instanceID, proposalID, ok := h.proposalID(w, r, log)
	if !ok {
		return
	}
	var req ApproveRequest
	if !h.decode(w, r, &req, log) {
		return
	}
	signer, err := fund.HexToAccount(req.Signer)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "invalid signer account", log)
		return
	}

	err = h.treasuries.Approve(instanceID, proposalID, signer)
	if err != nil {
		h.transitionError(w, err, log)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) ExecuteProposal(w http.ResponseWriter, r *http.Request) {
	log := h.before(w, r)

	instanceID, proposalID, ok := h.proposalID(w, r, log)
	if !ok {
		return
	}

	transfer, err := h.treasuries.Execute(instanceID, proposalID)
	if err != nil {
		h.transitionError(w, err, log)
		return
	}

	h.jsonResponse(w, toTransferLeg(*transfer), log)
}

func (h *Handler) RejectProposal(w http.ResponseWriter, r *http.Request) {
	log := h.before(w, r)

	instanceID, proposalID, ok := h.proposalID(w, r, log)
	if !ok {
		return
	}
	var req RejectRequest
	if !h.decode(w, r, &req, log) {
		return
	}
	author, err := fund.HexToAccount(req.Author)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "invalid author account", log)
		return
	}

	err = h.treasuries.Reject(instanceID, proposalID, author)
	if err != nil {
		h.transitionError(w, err, log)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	log := h.before(w, r)

	instanceID, ok := h.instanceID(w, r, log)
	if !ok {
		return
	}
	var req CreateCampaignRequest
	if !h.decode(w, r, &req, log) {
		return
	}
	creator, err := fund.HexToAccount(req.Creator)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "invalid creator account", log)
		return
	}
	beneficiary, err := fund.HexToAccount(req.Beneficiary)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "invalid beneficiary account", log)
		return
	}

	err = h.escrows.CreateCampaign(instanceID, creator, beneficiary, fund.Amount(req.Goal), req.Deadline)
	if err != nil {
		h.transitionError(w, err, log)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) Donate(w http.ResponseWriter, r *http.Request) {
	log := h.before(w, r)

	instanceID, ok := h.instanceID(w, r, log)
	if !ok {
		return
	}
	var req DonateRequest
	if !h.decode(w, r, &req, log) {
		return
	}
	donor, err := fund.HexToAccount(req.Donor)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "invalid donor account", log)
		return
	}

	err = h.escrows.Donate(instanceID, donor, fund.Amount(req.Amount), req.Anonymous)
	if err != nil {
		h.transitionError(w, err, log)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) AddMilestone(w http.ResponseWriter, r *http.Request) {
	log := h.before(w, r)

	instanceID, ok := h.instanceID(w, r, log)
	if !ok {
		return
	}
	var req AddMilestoneRequest
	if !h.decode(w, r, &req, log) {
		return
	}
	creator, err := fund.HexToAccount(req.Creator)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "invalid creator account", log)
		return
	}

	index, err := h.escrows.AddMilestone(instanceID, creator, req.Description, fund.Amount(req.Amount))
	if err != nil {
		h.transitionError(w, err, log)
		return
	}

	h.jsonResponse(w, &CreatedMilestone{Index: index}, log)
}

func (h *Handler) CompleteMilestone(w http.ResponseWriter, r *http.Request) {
	log := h.before(w, r)

	instanceID, index, ok := h.milestoneIndex(w, r, log)
	if !ok {
		return
	}
	var req CreatorRequest
	if !h.decode(w, r, &req, log) {
		return
	}
	creator, err := fund.HexToAccount(req.Creator)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "invalid creator account", log)
		return
	}

	err = h.escrows.CompleteMilestone(instanceID, creator, index)
	if err != nil {
		h.transitionError(w, err, log)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) ReleaseMilestone(w http.ResponseWriter, r *http.Request) {
	log := h.before(w, r)

	instanceID, index, ok := h.milestoneIndex(w, r, log)
	if !ok {
		return
	}

	transfer, err := h.escrows.ReleaseFunds(instanceID, index)
	if err != nil {
		h.transitionError(w, err, log)
		return
	}

	h.jsonResponse(w, toTransferLeg(*transfer), log)
}

func (h *Handler) FinalizeCampaign(w http.ResponseWriter, r *http.Request) {
	log := h.before(w, r)

	instanceID, ok := h.instanceID(w, r, log)
	if !ok {
		return
	}

	err := h.escrows.Finalize(instanceID)
	if err != nil {
		h.transitionError(w, err, log)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) CancelCampaign(w http.ResponseWriter, r *http.Request) {
	log := h.before(w, r)

	instanceID, ok := h.instanceID(w, r, log)
	if !ok {
		return
	}
	var req CreatorRequest
	if !h.decode(w, r, &req, log) {
		return
	}
	creator, err := fund.HexToAccount(req.Creator)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "invalid creator account", log)
		return
	}

	err = h.escrows.Cancel(instanceID, creator)
	if err != nil {
		h.transitionError(w, err, log)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) RefundDonor(w http.ResponseWriter, r *http.Request) {
	log := h.before(w, r)

	instanceID, ok := h.instanceID(w, r, log)
	if !ok {
		return
	}
	var req RefundRequest
	if !h.decode(w, r, &req, log) {
		return
	}
	donor, err := fund.HexToAccount(req.Donor)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "invalid donor account", log)
		return
	}

	transfer, err := h.escrows.Refund(instanceID, donor)
	if err != nil {
		h.transitionError(w, err, log)
		return
	}

	h.jsonResponse(w, toTransferLeg(*transfer), log)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, into interface{}, log zerolog.Logger) bool {
	err := json.NewDecoder(r.Body).Decode(into)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "invalid request body", log)
		return false
	}
	return true
}

func (h *Handler) proposalID(w http.ResponseWriter, r *http.Request, log zerolog.Logger) (uint64, uint64, bool) {
	instanceID, ok := h.instanceID(w, r, log)
	if !ok {
		return 0, 0, false
	}
	proposalID, err := strconv.ParseUint(mux.Vars(r)["proposal"], 10, 64)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "invalid proposal id", log)
		return 0, 0, false
	}
	return instanceID, proposalID, true
}

func (h *Handler) milestoneIndex(w http.ResponseWriter, r *http.Request, log zerolog.Logger) (uint64, uint64, bool) {
	instanceID, ok := h.instanceID(w, r, log)
	if !ok {
		return 0, 0, false
	}
	index, err := strconv.ParseUint(mux.Vars(r)["index"], 10, 64)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "invalid milestone index", log)
		return 0, 0, false
	}
	return instanceID, index, true
}

// transitionError maps an engine error to its HTTP status: missing
// records are 404, rejected transitions are 409 and anything else is an
// internal failure.
func (h *Handler) transitionError(w http.ResponseWriter, err error, log zerolog.Logger) {
	if errors.Is(err, storage.ErrNotFound) {
		h.errorResponse(w, http.StatusNotFound, "record not found", log)
		return
	}
	for _, rejection := range rejections {
		if errors.Is(err, rejection) {
			h.errorResponse(w, http.StatusConflict, err.Error(), log)
			return
		}
	}
	log.Error().Err(err).Msg("state transition failed")
	h.errorResponse(w, http.StatusInternalServerError, "state transition failed", log)
}

// rejections are the engine errors that indicate a request conflicting
// with current state, as opposed to an internal failure.
var rejections = []error{
	fund.ErrOverflow,
	ledger.ErrInsufficientFunds,
	ledger.ErrZeroAmount,
	ledger.ErrBatchTooLarge,
	settlement.ErrInvalidGroupSize,
	settlement.ErrDuplicateMember,
	settlement.ErrNotAMember,
	settlement.ErrZeroAmount,
	settlement.ErrGroupAlreadySettled,
	treasury.ErrAlreadyInitialized,
	treasury.ErrInvalidThreshold,
	treasury.ErrDuplicateSigner,
	treasury.ErrNotASigner,
	treasury.ErrZeroAmount,
	treasury.ErrAlreadyApproved,
	treasury.ErrProposalNotPending,
	treasury.ErrQuorumNotMet,
	treasury.ErrAlreadyExecuted,
	treasury.ErrNotAuthor,
	escrow.ErrAlreadyInitialized,
	escrow.ErrZeroAmount,
	escrow.ErrDeadlineNotFuture,
	escrow.ErrCampaignClosed,
	escrow.ErrNotCreator,
	escrow.ErrMilestoneOverflow,
	escrow.ErrMilestoneAlreadyCompleted,
	escrow.ErrMilestoneNotCompleted,
	escrow.ErrAlreadyReleased,
	escrow.ErrInsufficientFunds,
	escrow.ErrCampaignNotSucceeded,
	escrow.ErrCampaignNotFailed,
	escrow.ErrNoDonation,
	escrow.ErrAlreadyRefunded,
	escrow.ErrCampaignStillOpen,
	escrow.ErrAlreadyFinalized,
}

func toSettlement(legs []ledger.Transfer) *Settlement {
	out := &Settlement{Legs: make([]TransferLeg, 0, len(legs))}
	for _, leg := range legs {
		out.Legs = append(out.Legs, toTransferLeg(leg))
	}
	return out
}

func toTransferLeg(leg ledger.Transfer) TransferLeg {
	return TransferLeg{
		From:   leg.From.String(),
		To:     leg.To.String(),
		Amount: uint64(leg.Amount),
		Note:   leg.Note,
	}
}
