package rest

import (
	"github.com/commonfund/commonfund/model/fund"
)

// ModelError is the JSON body of every non-2xx response.
type ModelError struct {
	Code    int32  `json:"code"`
	Message string `json:"message"`
}

// Group is the JSON view of a settlement group.
type Group struct {
	Creator      string   `json:"creator"`
	Members      []string `json:"members"`
	Settled      bool     `json:"settled"`
	ExpenseCount uint64   `json:"expense_count"`
	TotalPool    uint64   `json:"total_pool"`
}

// Expense is the JSON view of one entry of the expense log.
type Expense struct {
	Payer       string `json:"payer"`
	Amount      uint64 `json:"amount"`
	Description string `json:"description"`
}

// MemberBalance is the JSON view of a member's signed net balance.
type MemberBalance struct {
	Member  string `json:"member"`
	Balance int64  `json:"balance"`
}

// Treasury is the JSON view of a treasury instance, including the
// available balance of its vault account.
type Treasury struct {
	Signers       []string `json:"signers"`
	Threshold     uint64   `json:"threshold"`
	ProposalCount uint64   `json:"proposal_count"`
	Balance       uint64   `json:"balance"`
}

// Proposal is the JSON view of a spending proposal.
type Proposal struct {
	ID          uint64 `json:"id"`
	Author      string `json:"author"`
	Recipient   string `json:"recipient"`
	Amount      uint64 `json:"amount"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Approvals   uint64 `json:"approvals"`
}

// Campaign is the JSON view of an escrow campaign.
type Campaign struct {
	Creator        string `json:"creator"`
	Beneficiary    string `json:"beneficiary"`
	Goal           uint64 `json:"goal"`
	Deadline       uint64 `json:"deadline"`
	Raised         uint64 `json:"raised"`
	Released       uint64 `json:"released"`
	Status         string `json:"status"`
	MilestoneCount uint64 `json:"milestone_count"`
	DonationCount  uint64 `json:"donation_count"`
}

// Milestone is the JSON view of a campaign milestone.
type Milestone struct {
	Index       uint64 `json:"index"`
	Description string `json:"description"`
	Amount      uint64 `json:"amount"`
	Completed   bool   `json:"completed"`
	Released    bool   `json:"released"`
}

// Donation is the JSON view of one entry of the public donation log.
// Anonymous donations carry an empty donor field.
type Donation struct {
	Donor     string `json:"donor,omitempty"`
	Amount    uint64 `json:"amount"`
	Timestamp uint64 `json:"timestamp"`
}

func toGroup(group *fund.Group) *Group {
	members := make([]string, 0, len(group.Members))
	for _, member := range group.Members {
		members = append(members, member.String())
	}
	return &Group{
		Creator:      group.Creator.String(),
		Members:      members,
		Settled:      group.Settled,
		ExpenseCount: group.ExpenseCount,
		TotalPool:    uint64(group.TotalPool),
	}
}

func toTreasury(treasury *fund.Treasury, balance fund.Amount) *Treasury {
	signers := make([]string, 0, len(treasury.Signers))
	for _, signer := range treasury.Signers {
		signers = append(signers, signer.String())
	}
	return &Treasury{
		Signers:       signers,
		Threshold:     treasury.Threshold,
		ProposalCount: treasury.ProposalCount,
		Balance:       uint64(balance),
	}
}

func toProposal(proposal *fund.Proposal) *Proposal {
	return &Proposal{
		ID:          proposal.ID,
		Author:      proposal.Author.String(),
		Recipient:   proposal.Recipient.String(),
		Amount:      uint64(proposal.Amount),
		Description: proposal.Description,
		Status:      proposal.Status.String(),
		Approvals:   proposal.Approvals,
	}
}

func toCampaign(campaign *fund.Campaign) *Campaign {
	return &Campaign{
		Creator:        campaign.Creator.String(),
		Beneficiary:    campaign.Beneficiary.String(),
		Goal:           uint64(campaign.Goal),
		Deadline:       campaign.Deadline,
		Raised:         uint64(campaign.Raised),
		Released:       uint64(campaign.Released),
		Status:         campaign.Status.String(),
		MilestoneCount: campaign.MilestoneCount,
		DonationCount:  campaign.DonationCount,
	}
}

func toMilestone(milestone *fund.Milestone) *Milestone {
	return &Milestone{
		Index:       milestone.Index,
		Description: milestone.Description,
		Amount:      uint64(milestone.Amount),
		Completed:   milestone.Completed,
		Released:    milestone.Released,
	}
}

func toDonation(donation fund.Donation) Donation {
	out := Donation{
		Amount:    uint64(donation.Amount),
		Timestamp: donation.Timestamp,
	}
	if !donation.Donor.IsEmpty() {
		out.Donor = donation.Donor.String()
	}
	return out
}
