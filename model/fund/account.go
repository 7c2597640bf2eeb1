package fund

import (
	"encoding/hex"
	"fmt"
)

// AccountLen is the fixed byte length of an account identifier.
const AccountLen = 32

// Account is an opaque fixed-length participant identifier. The engines
// never interpret it beyond equality and use as a storage key; how an
// account is provisioned or signed for belongs to the wallet layer.
type Account [AccountLen]byte

// EmptyAccount is the zero value account. It marks anonymized donor
// records and is never a valid participant.
var EmptyAccount = Account{}

// HexToAccount parses an account from its hex representation.
func HexToAccount(s string) (Account, error) {
	var account Account
	raw, err := hex.DecodeString(s)
	if err != nil {
		return EmptyAccount, fmt.Errorf("could not decode account hex: %w", err)
	}
	if len(raw) != AccountLen {
		return EmptyAccount, fmt.Errorf("invalid account length (got: %d, expected: %d)", len(raw), AccountLen)
	}
	copy(account[:], raw)
	return account, nil
}

func (a Account) String() string {
	return hex.EncodeToString(a[:])
}

// IsEmpty returns true if the account is the zero value.
func (a Account) IsEmpty() bool {
	return a == EmptyAccount
}

// MarshalText allows accounts to be used directly in JSON responses.
func (a Account) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Account) UnmarshalText(text []byte) error {
	account, err := HexToAccount(string(text))
	if err != nil {
		return err
	}
	*a = account
	return nil
}
