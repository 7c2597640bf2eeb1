package settlement

import (
	"errors"
)

var (
	// ErrInvalidGroupSize is returned when a group is created with no
	// members or more members than the atomic batch limit allows.
	ErrInvalidGroupSize = errors.New("group size must be between 1 and 16 members")

	// ErrDuplicateMember is returned when the member list repeats an
	// account.
	ErrDuplicateMember = errors.New("duplicate member in group")

	// ErrNotAMember is returned when the acting account is not part of
	// the group.
	ErrNotAMember = errors.New("account is not a group member")

	// ErrZeroAmount is returned when an expense carries no value.
	ErrZeroAmount = errors.New("expense amount must be positive")

	// ErrGroupAlreadySettled is returned for any mutating operation
	// after the terminal settlement transition.
	ErrGroupAlreadySettled = errors.New("group already settled")
)
