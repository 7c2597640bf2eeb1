package ledger

import (
	"github.com/commonfund/commonfund/model/fund"
)

// NonTransferableAssets is the host ledger's freeze-based asset
// capability, consumed opaquely by the ticketing feature: an asset is
// minted with transfer permanently disabled for everyone except the
// issuer, and the issuer may reclaim it. The engines contain no
// decision logic for it; the interface only pins down the contract the
// host ledger provides.
type NonTransferableAssets interface {
	// Mint issues a non-transferable asset to the holder and returns its
	// asset id. The holder can never transfer it onward.
	Mint(issuer fund.Account, holder fund.Account, note string) (uint64, error)

	// Revoke claws the asset back to the issuer. Only the issuer is
	// authorized.
	Revoke(issuer fund.Account, assetID uint64) error
}
