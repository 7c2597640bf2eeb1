package operation

import (
	"encoding/binary"
	"fmt"

	"github.com/commonfund/commonfund/model/fund"
)

const (

	// vault balances (per-account fund slots)
	codeVaultBalance = 1

	// settlement engine records
	codeGroup        = 10
	codeGroupBalance = 11
	codeExpense      = 12

	// treasury engine records
	codeTreasury = 20
	codeProposal = 21
	codeApproval = 22

	// escrow engine records
	codeCampaign   = 30
	codeMilestone  = 31
	codeDonation   = 32
	codeDonorTotal = 33
)

// makePrefix builds a storage key from a one-byte record-type code and
// a sequence of key segments. Numeric segments are encoded big-endian
// so that lexicographic iteration follows numeric order.
func makePrefix(code byte, keys ...interface{}) []byte {
	prefix := make([]byte, 1)
	prefix[0] = code
	for _, key := range keys {
		prefix = append(prefix, b(key)...)
	}
	return prefix
}

func b(v interface{}) []byte {
	switch i := v.(type) {
	case uint8:
		return []byte{i}
	case uint64:
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, i)
		return key
	case fund.Amount:
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, uint64(i))
		return key
	case fund.Account:
		return i[:]
	case []byte:
		return i
	case string:
		return []byte(i)
	default:
		panic(fmt.Sprintf("unsupported type to convert (%T)", v))
	}
}
