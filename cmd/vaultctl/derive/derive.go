package derive

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/solbootcamp/vaultkit/pkg/programs/amm"
	"github.com/solbootcamp/vaultkit/pkg/programs/stakevault"
	"github.com/spf13/cobra"
)

var Cmd = cobra.Command{
	Use:   "derive",
	Short: "Print program derived addresses",
}

var (
	mintFlag   string
	stakerFlag string
	ammFlag    string
	mintAFlag  string
	mintBFlag  string
)

// finder derives an address and its bump from parsed flags.
type finder func() (solana.PublicKey, uint8, error)

func newCmd(use string, short string, find finder) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			addr, bump, err := find()
			if err != nil {
				return err
			}
			fmt.Fprintf(c.OutOrStdout(), "%s %d\n", addr, bump)
			return nil
		},
	}
}

func parseKey(name string, value string) (solana.PublicKey, error) {
	key, err := solana.PublicKeyFromBase58(value)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("--%s: %w", name, err)
	}
	return key, nil
}

func vaultFinder(find func(mint solana.PublicKey) (solana.PublicKey, uint8, error)) finder {
	return func() (solana.PublicKey, uint8, error) {
		mint, err := parseKey("mint", mintFlag)
		if err != nil {
			return solana.PublicKey{}, 0, err
		}
		return find(mint)
	}
}

func stakerFinder() (solana.PublicKey, uint8, error) {
	staker, err := parseKey("staker", stakerFlag)
	if err != nil {
		return solana.PublicKey{}, 0, err
	}
	mint, err := parseKey("mint", mintFlag)
	if err != nil {
		return solana.PublicKey{}, 0, err
	}
	return stakevault.FindStakeInfo(staker, mint)
}

func poolFinder(find func(amm, mintA, mintB solana.PublicKey) (solana.PublicKey, uint8, error)) finder {
	return func() (solana.PublicKey, uint8, error) {
		ammKey, err := parseKey("amm", ammFlag)
		if err != nil {
			return solana.PublicKey{}, 0, err
		}
		mintA, err := parseKey("mint-a", mintAFlag)
		if err != nil {
			return solana.PublicKey{}, 0, err
		}
		mintB, err := parseKey("mint-b", mintBFlag)
		if err != nil {
			return solana.PublicKey{}, 0, err
		}
		return find(ammKey, mintA, mintB)
	}
}

func init() {
	rewardVault := newCmd("reward-vault", "Reward vault of a staking mint", vaultFinder(stakevault.FindRewardVault))
	rewardVault.Flags().StringVar(&mintFlag, "mint", "", "Staking mint")

	stakeInfo := newCmd("stake-info", "Stake record of a staker", stakerFinder)
	stakeInfo.Flags().StringVar(&stakerFlag, "staker", "", "Staker wallet")
	stakeInfo.Flags().StringVar(&mintFlag, "mint", "", "Staking mint")

	pool := newCmd("pool", "Pool record", poolFinder(amm.FindPool))
	authority := newCmd("pool-authority", "Owner of a pool's reserves", poolFinder(amm.FindPoolAuthority))
	lpMint := newCmd("lp-mint", "Liquidity mint of a pool", poolFinder(amm.FindLiquidityMint))
	for _, c := range []*cobra.Command{pool, authority, lpMint} {
		c.Flags().StringVar(&ammFlag, "amm", "", "Amm identity")
		c.Flags().StringVar(&mintAFlag, "mint-a", "", "First pool mint")
		c.Flags().StringVar(&mintBFlag, "mint-b", "", "Second pool mint")
	}

	for _, c := range []*cobra.Command{rewardVault, stakeInfo} {
		_ = c.MarkFlagRequired("mint")
	}
	_ = stakeInfo.MarkFlagRequired("staker")
	for _, c := range []*cobra.Command{pool, authority, lpMint} {
		_ = c.MarkFlagRequired("amm")
		_ = c.MarkFlagRequired("mint-a")
		_ = c.MarkFlagRequired("mint-b")
	}

	Cmd.AddCommand(rewardVault, stakeInfo, pool, authority, lpMint)
}
