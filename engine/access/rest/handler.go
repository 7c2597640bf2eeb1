// Package rest exposes the read-only HTTP API over the ledger records:
// settlement groups and balances, treasuries and their proposals,
// campaigns with their milestones and donation log. All writes go
// through the engines; this surface only serves state.
package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"

	"github.com/commonfund/commonfund/engine/escrow"
	"github.com/commonfund/commonfund/engine/settlement"
	"github.com/commonfund/commonfund/engine/treasury"
	"github.com/commonfund/commonfund/ledger"
	"github.com/commonfund/commonfund/model/fund"
	"github.com/commonfund/commonfund/storage"
	storagebadger "github.com/commonfund/commonfund/storage/badger"
)

// Handler implements the REST API. Reads go through the stores; writes
// are forwarded to the engines, which apply them as atomic state
// transitions.
type Handler struct {
	log        zerolog.Logger
	settlement *settlement.Engine
	treasuries *treasury.Engine
	escrows    *escrow.Engine
	groups     *storagebadger.Groups
	proposals  *storagebadger.Proposals
	campaigns  *storagebadger.Campaigns
	balances   ledger.BalanceReader
	clock      ledger.Clock
	requests   atomic.Uint64
}

func NewHandler(
	log zerolog.Logger,
	settlementEngine *settlement.Engine,
	treasuryEngine *treasury.Engine,
	escrowEngine *escrow.Engine,
	groups *storagebadger.Groups,
	proposals *storagebadger.Proposals,
	campaigns *storagebadger.Campaigns,
	balances ledger.BalanceReader,
	clock ledger.Clock,
) *Handler {
	h := &Handler{
		log:        log.With().Str("component", "rest_api").Logger(),
		settlement: settlementEngine,
		treasuries: treasuryEngine,
		escrows:    escrowEngine,
		groups:     groups,
		proposals:  proposals,
		campaigns:  campaigns,
		balances:   balances,
		clock:      clock,
	}
	return h
}

// Requests returns the number of requests served so far.
func (h *Handler) Requests() uint64 {
	return h.requests.Load()
}

func (h *Handler) GetGroup(w http.ResponseWriter, r *http.Request) {
	log := h.before(w, r)

	instanceID, ok := h.instanceID(w, r, log)
	if !ok {
		return
	}

	group, err := h.groups.ByInstance(instanceID)
	if err != nil {
		h.lookupError(w, err, fmt.Sprintf("group %d", instanceID), log)
		return
	}

	h.jsonResponse(w, toGroup(group), log)
}

func (h *Handler) GetGroupBalance(w http.ResponseWriter, r *http.Request) {
	log := h.before(w, r)

	instanceID, ok := h.instanceID(w, r, log)
	if !ok {
		return
	}
	member, err := fund.HexToAccount(mux.Vars(r)["member"])
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "invalid member account", log)
		return
	}

	balance, err := h.groups.Balance(instanceID, member)
	if err != nil {
		h.lookupError(w, err, fmt.Sprintf("balance of %v in group %d", member, instanceID), log)
		return
	}

	h.jsonResponse(w, &MemberBalance{Member: member.String(), Balance: balance}, log)
}

func (h *Handler) GetGroupExpenses(w http.ResponseWriter, r *http.Request) {
	log := h.before(w, r)

	instanceID, ok := h.instanceID(w, r, log)
	if !ok {
		return
	}

	// the group lookup distinguishes an unknown instance from an
	// instance with an empty log
	_, err := h.groups.ByInstance(instanceID)
	if err != nil {
		h.lookupError(w, err, fmt.Sprintf("group %d", instanceID), log)
		return
	}

	expenses, err := h.groups.Expenses(instanceID)
	if err != nil {
		h.lookupError(w, err, fmt.Sprintf("expenses of group %d", instanceID), log)
		return
	}

	out := make([]Expense, 0, len(expenses))
	for _, expense := range expenses {
		out = append(out, Expense{
			Payer:       expense.Payer.String(),
			Amount:      uint64(expense.Amount),
			Description: expense.Description,
		})
	}
	h.jsonResponse(w, out, log)
}

func (h *Handler) GetGroupExpense(w http.ResponseWriter, r *http.Request) {
	log := h.before(w, r)

	instanceID, ok := h.instanceID(w, r, log)
	if !ok {
		return
	}
	index, err := strconv.ParseUint(mux.Vars(r)["index"], 10, 64)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "invalid expense index", log)
		return
	}

	expense, err := h.groups.Expense(instanceID, index)
	if err != nil {
		h.lookupError(w, err, fmt.Sprintf("expense %d of group %d", index, instanceID), log)
		return
	}

	h.jsonResponse(w, &Expense{
		Payer:       expense.Payer.String(),
		Amount:      uint64(expense.Amount),
		Description: expense.Description,
	}, log)
}

func (h *Handler) GetTreasury(w http.ResponseWriter, r *http.Request) {
	log := h.before(w, r)

	instanceID, ok := h.instanceID(w, r, log)
	if !ok {
		return
	}

	record, err := h.proposals.Treasury(instanceID)
	if err != nil {
		h.lookupError(w, err, fmt.Sprintf("treasury %d", instanceID), log)
		return
	}
	balance, err := h.balances.BalanceOf(treasury.Account(instanceID))
	if err != nil {
		h.lookupError(w, err, fmt.Sprintf("vault of treasury %d", instanceID), log)
		return
	}

	h.jsonResponse(w, toTreasury(record, balance), log)
}

func (h *Handler) GetProposal(w http.ResponseWriter, r *http.Request) {
	log := h.before(w, r)

	instanceID, ok := h.instanceID(w, r, log)
	if !ok {
		return
	}
	proposalID, err := strconv.ParseUint(mux.Vars(r)["proposal"], 10, 64)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "invalid proposal id", log)
		return
	}

	proposal, err := h.proposals.ByID(instanceID, proposalID)
	if err != nil {
		h.lookupError(w, err, fmt.Sprintf("proposal %d of treasury %d", proposalID, instanceID), log)
		return
	}

	h.jsonResponse(w, toProposal(proposal), log)
}

func (h *Handler) GetProposals(w http.ResponseWriter, r *http.Request) {
	log := h.before(w, r)

	instanceID, ok := h.instanceID(w, r, log)
	if !ok {
		return
	}

	_, err := h.proposals.Treasury(instanceID)
	if err != nil {
		h.lookupError(w, err, fmt.Sprintf("treasury %d", instanceID), log)
		return
	}

	proposals, err := h.proposals.ByInstance(instanceID)
	if err != nil {
		h.lookupError(w, err, fmt.Sprintf("proposals of treasury %d", instanceID), log)
		return
	}

	out := make([]*Proposal, 0, len(proposals))
	for i := range proposals {
		out = append(out, toProposal(&proposals[i]))
	}
	h.jsonResponse(w, out, log)
}

func (h *Handler) GetCampaign(w http.ResponseWriter, r *http.Request) {
	log := h.before(w, r)

	instanceID, ok := h.instanceID(w, r, log)
	if !ok {
		return
	}

	campaign, err := h.campaigns.ByInstance(instanceID)
	if err != nil {
		h.lookupError(w, err, fmt.Sprintf("campaign %d", instanceID), log)
		return
	}
	campaign.Status = campaign.StatusAt(h.clock.Now())

	h.jsonResponse(w, toCampaign(campaign), log)
}

func (h *Handler) GetMilestone(w http.ResponseWriter, r *http.Request) {
	log := h.before(w, r)

	instanceID, ok := h.instanceID(w, r, log)
	if !ok {
		return
	}
	index, err := strconv.ParseUint(mux.Vars(r)["index"], 10, 64)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "invalid milestone index", log)
		return
	}

	milestone, err := h.campaigns.Milestone(instanceID, index)
	if err != nil {
		h.lookupError(w, err, fmt.Sprintf("milestone %d of campaign %d", index, instanceID), log)
		return
	}

	h.jsonResponse(w, toMilestone(milestone), log)
}

func (h *Handler) GetDonations(w http.ResponseWriter, r *http.Request) {
	log := h.before(w, r)

	instanceID, ok := h.instanceID(w, r, log)
	if !ok {
		return
	}

	_, err := h.campaigns.ByInstance(instanceID)
	if err != nil {
		h.lookupError(w, err, fmt.Sprintf("campaign %d", instanceID), log)
		return
	}

	donations, err := h.campaigns.Donations(instanceID)
	if err != nil {
		h.lookupError(w, err, fmt.Sprintf("donations of campaign %d", instanceID), log)
		return
	}

	out := make([]Donation, 0, len(donations))
	for _, donation := range donations {
		out = append(out, toDonation(donation))
	}
	h.jsonResponse(w, out, log)
}

func (h *Handler) before(w http.ResponseWriter, r *http.Request) zerolog.Logger {
	h.requests.Inc()
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	return h.log.With().Str("request_url", r.URL.String()).Logger()
}

func (h *Handler) instanceID(w http.ResponseWriter, r *http.Request, log zerolog.Logger) (uint64, bool) {
	instanceID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "invalid instance id", log)
		return 0, false
	}
	return instanceID, true
}

func (h *Handler) lookupError(w http.ResponseWriter, err error, what string, log zerolog.Logger) {
	if errors.Is(err, storage.ErrNotFound) {
		h.errorResponse(w, http.StatusNotFound, fmt.Sprintf("%s not found", what), log)
		return
	}
	log.Error().Err(err).Msgf("failed to look up %s", what)
	h.errorResponse(w, http.StatusInternalServerError, fmt.Sprintf("failed to look up %s", what), log)
}

func (h *Handler) jsonResponse(w http.ResponseWriter, payload interface{}, log zerolog.Logger) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode response")
		h.errorResponse(w, http.StatusInternalServerError, "error generating response", log)
		return
	}
	_, err = w.Write(encoded)
	if err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}

func (h *Handler) errorResponse(w http.ResponseWriter, code int, message string, log zerolog.Logger) {
	w.WriteHeader(code)
	encoded, err := json.Marshal(ModelError{Code: int32(code), Message: message})
	if err != nil {
		log.Error().Str("response_message", message).Msg("failed to encode error message")
		return
	}
	_, err = w.Write(encoded)
	if err != nil {
		log.Error().Err(err).Msg("failed to send error response")
	}
}
