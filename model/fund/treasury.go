package fund

// ProposalStatus captures the lifecycle of a treasury spending proposal.
type ProposalStatus uint8

const (
	// ProposalPending means the proposal is collecting approvals.
	ProposalPending ProposalStatus = iota
	// ProposalExecuted means quorum was reached and funds have moved
	// exactly once. Terminal.
	ProposalExecuted
	// ProposalRejected means the proposal author withdrew it before
	// execution. Terminal, no funds moved.
	ProposalRejected
)

func (s ProposalStatus) String() string {
	switch s {
	case ProposalPending:
		return "pending"
	case ProposalExecuted:
		return "executed"
	case ProposalRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Treasury is the persistent record of a multi-signer treasury
// instance. The signer set and threshold are immutable after bootstrap.
type Treasury struct {
	Signers       []Account
	Threshold     uint64
	ProposalCount uint64
}

// IsSigner returns true if the given account is in the signer set.
func (t *Treasury) IsSigner(account Account) bool {
	for _, signer := range t.Signers {
		if signer == account {
			return true
		}
	}
	return false
}

// Proposal is a spending proposal gated on an M-of-N quorum. Approvals
// counts distinct signers only; the per-signer approval markers live in
// their own storage records.
type Proposal struct {
	ID          uint64
	Author      Account
	Recipient   Account
	Amount      Amount
	Description string
	Status      ProposalStatus
	Approvals   uint64
}
