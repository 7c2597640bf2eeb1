package fund

// CampaignStatus captures the lifecycle of an escrow campaign.
type CampaignStatus uint8

const (
	// CampaignOpen means the campaign accepts donations and milestones.
	CampaignOpen CampaignStatus = iota
	// CampaignSucceeded means the deadline passed with the goal reached;
	// completed milestones may release funds. Terminal for donations.
	CampaignSucceeded
	// CampaignFailed means the deadline passed short of the goal, or the
	// creator cancelled; only refunds are allowed. Terminal.
	CampaignFailed
)

func (s CampaignStatus) String() string {
	switch s {
	case CampaignOpen:
		return "open"
	case CampaignSucceeded:
		return "succeeded"
	case CampaignFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Campaign is the persistent record of an escrow campaign instance.
// Raised accumulates monotonically before the deadline; Released is the
// cumulative amount paid out through milestones and never exceeds
// Raised.
type Campaign struct {
	Creator        Account
	Beneficiary    Account
	Goal           Amount
	Deadline       uint64
	Raised         Amount
	Released       Amount
	Status         CampaignStatus
	MilestoneCount uint64
	MilestoneTotal Amount
	DonationCount  uint64
}

// StatusAt derives the effective campaign status at the given ledger
// time. A persisted Open status implicitly resolves once the deadline
// passes, so no transition depends on an explicit finalize call.
func (c *Campaign) StatusAt(now uint64) CampaignStatus {
	if c.Status != CampaignOpen {
		return c.Status
	}
	if now < c.Deadline {
		return CampaignOpen
	}
	if c.Raised >= c.Goal {
		return CampaignSucceeded
	}
	return CampaignFailed
}

// Milestone is an amount-bounded sub-goal of a campaign. Completion is
// an attestation step separate from release, so fund movement can be
// independently verified before it happens.
type Milestone struct {
	Index       uint64
	Description string
	Amount      Amount
	Completed   bool
	Released    bool
}

// Donation is an immutable record of a single contribution. For
// anonymous donations the Donor field holds EmptyAccount; the amount
// and timestamp stay public so totals remain auditable.
type Donation struct {
	Donor     Account
	Amount    Amount
	Timestamp uint64
}

// DonorTotal tracks a donor's cumulative contribution to a campaign and
// whether it has been refunded. Refunds are exactly-once per donor.
type DonorTotal struct {
	Total    Amount
	Refunded bool
}
