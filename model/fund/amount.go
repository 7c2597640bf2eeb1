package fund

import (
	"errors"
	"math"
)

// Amount is a quantity of value in the smallest indivisible unit of the
// host ledger. All arithmetic on amounts must detect overflow and reject
// rather than wrap.
type Amount uint64

// ErrOverflow is returned when an amount operation would exceed the
// representable range.
var ErrOverflow = errors.New("amount arithmetic overflow")

// SafeAdd returns a+b, or ErrOverflow if the sum would wrap.
func SafeAdd(a, b Amount) (Amount, error) {
	if a > math.MaxUint64-b {
		return 0, ErrOverflow
	}
	return a + b, nil
}

// SafeSub returns a-b, or ErrOverflow if b exceeds a.
func SafeSub(a, b Amount) (Amount, error) {
	if b > a {
		return 0, ErrOverflow
	}
	return a - b, nil
}

// SafeMul returns a*b, or ErrOverflow if the product would wrap.
func SafeMul(a, b Amount) (Amount, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	if a > math.MaxUint64/b {
		return 0, ErrOverflow
	}
	return a * b, nil
}

// AddSigned applies a signed delta to a signed balance, rejecting
// overflow. Net balances are signed: positive means the participant is
// owed money, negative means they owe.
func AddSigned(balance int64, delta int64) (int64, error) {
	sum := balance + delta
	if (delta > 0 && sum < balance) || (delta < 0 && sum > balance) {
		return 0, ErrOverflow
	}
	return sum, nil
}
