package stakevault

import "github.com/solbootcamp/vaultkit/pkg/sealevel"

// IsStaked and NotStaked are not returned by any instruction. Their codes
// are part of the program's error surface and stay reserved.
var (
	ErrIsStaked      = sealevel.NewCustomError(6000, "IsStaked", "Tokens are already staked")
	ErrNotStaked     = sealevel.NewCustomError(6001, "NotStaked", "Tokens are not staked")
	ErrNoToken       = sealevel.NewCustomError(6002, "NoToken", "No tokens to stake or unstake")
	ErrInvalidStaker = sealevel.NewCustomError(6003, "InvalidStaker", "Stake info belongs to another staker")
	ErrInvalidMint   = sealevel.NewCustomError(6004, "InvalidMint", "Stake info belongs to another mint")
)
