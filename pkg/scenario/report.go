package scenario

import (
	"github.com/solbootcamp/vaultkit/pkg/programs/stakevault"
	"github.com/solbootcamp/vaultkit/pkg/sealevel"
)

// Balance is the token amount an actor holds of a mint, outside of any
// stake.
type Balance struct {
	Actor  string
	Mint   string
	Amount uint64
}

// Stake is an open staking position.
type Stake struct {
	Actor   string
	Mint    string
	Amount  uint64
	StakeAt uint64
	Vault   uint64
}

type PoolState struct {
	Name      string
	ReserveA  uint64
	ReserveB  uint64
	LpSupply  uint64
	Liquidity map[string]uint64
}

type Report struct {
	Balances     []Balance
	Stakes       []Stake
	RewardVaults map[string]uint64
	Pools        []PoolState
}

func (r *Runner) tokenBalance(owner string, mint string) (uint64, error) {
	ata, _, err := sealevel.FindAssociatedTokenAddress(r.actors[owner].PublicKey(), r.mints[mint])
	if err != nil {
		return 0, err
	}
	return sealevel.TokenBalance(r.slotCtx.Accounts, ata)
}

func (r *Runner) stake(actor string, mint string) (*Stake, error) {
	staker := r.actors[actor].PublicKey()
	key, _, err := stakevault.FindStakeInfo(staker, r.mints[mint])
	if err != nil {
		return nil, err
	}
	acct, err := r.slotCtx.GetAccount(key)
	if err != nil || acct == nil || acct.Owner != stakevault.ProgramID {
		return nil, err
	}
	info, err := stakevault.UnmarshalStakeInfo(acct.Data)
	if err != nil {
		return nil, err
	}

	vault, err := stakevault.FindStakeVault(staker, r.mints[mint])
	if err != nil {
		return nil, err
	}
	vaultBalance, err := sealevel.TokenBalance(r.slotCtx.Accounts, vault)
	if err != nil {
		return nil, err
	}
	return &Stake{Actor: actor, Mint: mint, Amount: info.Amount, StakeAt: info.StakeAt, Vault: vaultBalance}, nil
}

// Report reads back the balances of every declared actor, mint and pool.
func (r *Runner) Report() (*Report, error) {
	report := &Report{RewardVaults: make(map[string]uint64)}

	for _, mint := range r.scenario.Mints {
		for _, actor := range r.scenario.Actors {
			amount, err := r.tokenBalance(actor.Name, mint.Name)
			if err != nil {
				return nil, err
			}
			report.Balances = append(report.Balances, Balance{Actor: actor.Name, Mint: mint.Name, Amount: amount})

			stake, err := r.stake(actor.Name, mint.Name)
			if err != nil {
				return nil, err
			}
			if stake != nil {
				report.Stakes = append(report.Stakes, *stake)
			}
		}

		rewardVault, _, err := stakevault.FindRewardVault(r.mints[mint.Name])
		if err != nil {
			return nil, err
		}
		acct, err := r.slotCtx.GetAccount(rewardVault)
		if err != nil {
			return nil, err
		}
		if acct != nil {
			report.RewardVaults[mint.Name], err = sealevel.TokenBalance(r.slotCtx.Accounts, rewardVault)
			if err != nil {
				return nil, err
			}
		}
	}

	for _, pool := range r.scenario.Pools {
		addrs := r.pools[pool.Name]
		state := PoolState{Name: pool.Name, Liquidity: make(map[string]uint64)}

		var err error
		state.ReserveA, err = sealevel.TokenBalance(r.slotCtx.Accounts, addrs.ReserveA)
		if err != nil {
			return nil, err
		}
		state.ReserveB, err = sealevel.TokenBalance(r.slotCtx.Accounts, addrs.ReserveB)
		if err != nil {
			return nil, err
		}
		state.LpSupply, err = sealevel.TokenSupply(r.slotCtx.Accounts, addrs.LiquidityMint)
		if err != nil {
			return nil, err
		}
		for _, actor := range r.scenario.Actors {
			ata, _, err := sealevel.FindAssociatedTokenAddress(r.actors[actor.Name].PublicKey(), addrs.LiquidityMint)
			if err != nil {
				return nil, err
			}
			amount, err := sealevel.TokenBalance(r.slotCtx.Accounts, ata)
			if err != nil {
				return nil, err
			}
			if amount > 0 {
				state.Liquidity[actor.Name] = amount
			}
		}
		report.Pools = append(report.Pools, state)
	}

	return report, nil
}
