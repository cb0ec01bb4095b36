package amm

import (
	"github.com/gagliardetto/solana-go"
	"github.com/solbootcamp/vaultkit/pkg/accounts"
	"github.com/solbootcamp/vaultkit/pkg/safemath"
	"github.com/solbootcamp/vaultkit/pkg/sealevel"
)

// LiquidityHolder is an LP token balance seeded at genesis.
type LiquidityHolder struct {
	Owner  solana.PublicKey
	Amount uint64
}

// PoolGenesis describes a pool created outside of any transaction. Pools
// cannot be created or funded by instruction.
type PoolGenesis struct {
	Amm      solana.PublicKey
	MintA    solana.PublicKey
	MintB    solana.PublicKey
	ReserveA uint64
	ReserveB uint64
	Holders  []LiquidityHolder
}

// NewPoolAccounts builds the pool record, its LP mint, both reserve accounts
// and an LP token account per holder. LP supply is the sum of the holders.
// The mints themselves must already exist.
func NewPoolAccounts(g PoolGenesis, rent sealevel.SysvarRent) ([]accounts.Account, error) {
	if g.MintA == g.MintB {
		return nil, sealevel.InstrErrInvalidArgument
	}

	addrs, err := FindPoolAddresses(g.Amm, g.MintA, g.MintB)
	if err != nil {
		return nil, err
	}

	pool := Pool{Amm: g.Amm, MintA: g.MintA, MintB: g.MintB}
	accts := []accounts.Account{
		{Key: addrs.Pool, Lamports: rent.MinimumBalance(PoolLen), Data: pool.Marshal(), Owner: ProgramID},
		sealevel.NewTokenAccount(addrs.ReserveA, g.MintA, addrs.Authority, g.ReserveA, rent),
		sealevel.NewTokenAccount(addrs.ReserveB, g.MintB, addrs.Authority, g.ReserveB, rent),
	}

	var supply uint64
	for _, holder := range g.Holders {
		supply, err = safemath.CheckedAddU64(supply, holder.Amount)
		if err != nil {
			return nil, err
		}
		lpAcct, err := sealevel.NewAssociatedTokenAccount(holder.Owner, addrs.LiquidityMint, holder.Amount, rent)
		if err != nil {
			return nil, err
		}
		accts = append(accts, lpAcct)
	}

	authority := addrs.Authority
	accts = append(accts, sealevel.NewMintAccount(addrs.LiquidityMint, &authority, supply, 6, rent))
	return accts, nil
}
