package stakevault

import (
	"github.com/gagliardetto/solana-go"
	"github.com/solbootcamp/vaultkit/pkg/sealevel"
	solanapda "github.com/solbootcamp/vaultkit/pkg/solana"
)

var (
	RewardVaultSeed = []byte("reward")
	StakeInfoSeed   = []byte("stake_info")
)

func rewardVaultSeeds(mint solana.PublicKey) [][]byte {
	return [][]byte{RewardVaultSeed, mint[:]}
}

func stakeInfoSeeds(staker solana.PublicKey, mint solana.PublicKey) [][]byte {
	return [][]byte{StakeInfoSeed, staker[:], mint[:]}
}

// FindRewardVault derives the token account that pays rewards for mint. The
// vault is its own token authority.
func FindRewardVault(mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solanapda.FindProgramAddress(rewardVaultSeeds(mint), ProgramID)
}

func FindStakeInfo(staker solana.PublicKey, mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solanapda.FindProgramAddress(stakeInfoSeeds(staker, mint), ProgramID)
}

// FindStakeVault derives the associated token account holding a staker's
// principal. Its authority is the StakeInfo record.
func FindStakeVault(staker solana.PublicKey, mint solana.PublicKey) (solana.PublicKey, error) {
	stakeInfo, _, err := FindStakeInfo(staker, mint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	vault, _, err := sealevel.FindAssociatedTokenAddress(stakeInfo, mint)
	return vault, err
}
