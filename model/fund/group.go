package fund

// MaxGroupMembers is the maximum number of members in a settlement
// group. It matches the host ledger's atomic transaction group limit,
// which caps the number of settlement legs that can commit together.
const MaxGroupMembers = 16

// Group is the persistent record of a settlement group. The member set
// is fixed at creation; Settled is a write-once terminal flag.
type Group struct {
	Creator      Account
	Members      []Account
	Settled      bool
	ExpenseCount uint64
	TotalPool    Amount
}

// IsMember returns true if the given account belongs to the group.
func (g *Group) IsMember(account Account) bool {
	for _, member := range g.Members {
		if member == account {
			return true
		}
	}
	return false
}

// Expense is a single shared expense logged against a group. Expenses
// are append-only and survive until the group settles.
type Expense struct {
	Payer       Account
	Amount      Amount
	Description string
}
