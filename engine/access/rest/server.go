package rest

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// Route binds one API operation to its method, path and handler.
type Route struct {
	Name        string
	Method      string
	Pattern     string
	HandlerFunc http.HandlerFunc
}

// NewServer returns an HTTP server serving the REST API under /v1.
func NewServer(handler *Handler, listenAddress string, logger zerolog.Logger) *http.Server {

	router := mux.NewRouter().StrictSlash(true)
	v1 := router.PathPrefix("/v1").Subrouter()
	v1.Use(LoggingMiddleware(logger))

	for _, route := range apiRoutes(handler) {
		v1.
			Methods(route.Method).
			Path(route.Pattern).
			Name(route.Name).
			Handler(route.HandlerFunc)
	}

	return &http.Server{
		Addr:         listenAddress,
		Handler:      router,
		WriteTimeout: time.Second * 15,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
	}
}

func apiRoutes(handler *Handler) []Route {
	return []Route{
		{
			Name:        "GroupsIdPost",
			Method:      http.MethodPost,
			Pattern:     "/groups/{id}",
			HandlerFunc: handler.CreateGroup,
		},
		{
			Name:        "GroupsIdExpensesPost",
			Method:      http.MethodPost,
			Pattern:     "/groups/{id}/expenses",
			HandlerFunc: handler.AddExpense,
		},
		{
			Name:        "GroupsIdSettlePost",
			Method:      http.MethodPost,
			Pattern:     "/groups/{id}/settle",
			HandlerFunc: handler.SettleGroup,
		},
		{
			Name:        "TreasuriesIdPost",
			Method:      http.MethodPost,
			Pattern:     "/treasuries/{id}",
			HandlerFunc: handler.BootstrapTreasury,
		},
		{
			Name:        "TreasuriesIdDepositsPost",
			Method:      http.MethodPost,
			Pattern:     "/treasuries/{id}/deposits",
			HandlerFunc: handler.DepositTreasury,
		},
		{
			Name:        "TreasuriesIdProposalsPost",
			Method:      http.MethodPost,
			Pattern:     "/treasuries/{id}/proposals",
			HandlerFunc: handler.CreateProposal,
		},
		{
			Name:        "TreasuriesIdProposalsProposalApprovalsPost",
			Method:      http.MethodPost,
			Pattern:     "/treasuries/{id}/proposals/{proposal}/approvals",
			HandlerFunc: handler.ApproveProposal,
		},
		{
			Name:        "TreasuriesIdProposalsProposalExecutePost",
			Method:      http.MethodPost,
			Pattern:     "/treasuries/{id}/proposals/{proposal}/execute",
			HandlerFunc: handler.ExecuteProposal,
		},
		{
			Name:        "TreasuriesIdProposalsProposalRejectPost",
			Method:      http.MethodPost,
			Pattern:     "/treasuries/{id}/proposals/{proposal}/reject",
			HandlerFunc: handler.RejectProposal,
		},
		{
			Name:        "CampaignsIdPost",
			Method:      http.MethodPost,
			Pattern:     "/campaigns/{id}",
			HandlerFunc: handler.CreateCampaign,
		},
		{
			Name:        "CampaignsIdDonationsPost",
			Method:      http.MethodPost,
			Pattern:     "/campaigns/{id}/donations",
			HandlerFunc: handler.Donate,
		},
		{
			Name:        "CampaignsIdMilestonesPost",
			Method:      http.MethodPost,
			Pattern:     "/campaigns/{id}/milestones",
			HandlerFunc: handler.AddMilestone,
		},
		{
			Name:        "CampaignsIdMilestonesIndexCompletePost",
			Method:      http.MethodPost,
			Pattern:     "/campaigns/{id}/milestones/{index}/complete",
			HandlerFunc: handler.CompleteMilestone,
		},
		{
			Name:        "CampaignsIdMilestonesIndexReleasePost",
			Method:      http.MethodPost,
			Pattern:     "/campaigns/{id}/milestones/{index}/release",
			HandlerFunc: handler.ReleaseMilestone,
		},
		{
			Name:        "CampaignsIdFinalizePost",
			Method:      http.MethodPost,
			Pattern:     "/campaigns/{id}/finalize",
			HandlerFunc: handler.FinalizeCampaign,
		},
		{
			Name:        "CampaignsIdCancelPost",
			Method:      http.MethodPost,
			Pattern:     "/campaigns/{id}/cancel",
			HandlerFunc: handler.CancelCampaign,
		},
		{
			Name:        "CampaignsIdRefundsPost",
			Method:      http.MethodPost,
			Pattern:     "/campaigns/{id}/refunds",
			HandlerFunc: handler.RefundDonor,
		},
		{
			Name:        "GroupsIdGet",
			Method:      http.MethodGet,
			Pattern:     "/groups/{id}",
			HandlerFunc: handler.GetGroup,
		},
		{
			Name:        "GroupsIdBalancesMemberGet",
			Method:      http.MethodGet,
			Pattern:     "/groups/{id}/balances/{member}",
			HandlerFunc: handler.GetGroupBalance,
		},
		{
			Name:        "GroupsIdExpensesGet",
			Method:      http.MethodGet,
			Pattern:     "/groups/{id}/expenses",
			HandlerFunc: handler.GetGroupExpenses,
		},
		{
			Name:        "GroupsIdExpensesIndexGet",
			Method:      http.MethodGet,
			Pattern:     "/groups/{id}/expenses/{index}",
			HandlerFunc: handler.GetGroupExpense,
		},
		{
			Name:        "TreasuriesIdGet",
			Method:      http.MethodGet,
			Pattern:     "/treasuries/{id}",
			HandlerFunc: handler.GetTreasury,
		},
		{
			Name:        "TreasuriesIdProposalsGet",
			Method:      http.MethodGet,
			Pattern:     "/treasuries/{id}/proposals",
			HandlerFunc: handler.GetProposals,
		},
		{
			Name:        "TreasuriesIdProposalsProposalGet",
			Method:      http.MethodGet,
			Pattern:     "/treasuries/{id}/proposals/{proposal}",
			HandlerFunc: handler.GetProposal,
		},
		{
			Name:        "CampaignsIdGet",
			Method:      http.MethodGet,
			Pattern:     "/campaigns/{id}",
			HandlerFunc: handler.GetCampaign,
		},
		{
			Name:        "CampaignsIdMilestonesIndexGet",
			Method:      http.MethodGet,
			Pattern:     "/campaigns/{id}/milestones/{index}",
			HandlerFunc: handler.GetMilestone,
		},
		{
			Name:        "CampaignsIdDonationsGet",
			Method:      http.MethodGet,
			Pattern:     "/campaigns/{id}/donations",
			HandlerFunc: handler.GetDonations,
		},
	}
}
