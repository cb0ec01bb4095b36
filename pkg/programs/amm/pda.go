package amm

import (
	"github.com/gagliardetto/solana-go"
	"github.com/solbootcamp/vaultkit/pkg/sealevel"
	solanapda "github.com/solbootcamp/vaultkit/pkg/solana"
)

var (
	AuthoritySeed     = []byte("authority")
	LiquidityMintSeed = []byte("mint_liquidity")
)

func poolSeeds(amm solana.PublicKey, mintA solana.PublicKey, mintB solana.PublicKey) [][]byte {
	return [][]byte{amm[:], mintA[:], mintB[:]}
}

func poolAuthoritySeeds(amm solana.PublicKey, mintA solana.PublicKey, mintB solana.PublicKey) [][]byte {
	return append(poolSeeds(amm, mintA, mintB), AuthoritySeed)
}

func liquidityMintSeeds(amm solana.PublicKey, mintA solana.PublicKey, mintB solana.PublicKey) [][]byte {
	return append(poolSeeds(amm, mintA, mintB), LiquidityMintSeed)
}

func FindPool(amm solana.PublicKey, mintA solana.PublicKey, mintB solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solanapda.FindProgramAddress(poolSeeds(amm, mintA, mintB), ProgramID)
}

// FindPoolAuthority derives the owner of both reserve accounts.
func FindPoolAuthority(amm solana.PublicKey, mintA solana.PublicKey, mintB solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solanapda.FindProgramAddress(poolAuthoritySeeds(amm, mintA, mintB), ProgramID)
}

func FindLiquidityMint(amm solana.PublicKey, mintA solana.PublicKey, mintB solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solanapda.FindProgramAddress(liquidityMintSeeds(amm, mintA, mintB), ProgramID)
}

// PoolAddresses is every derived account of one pool.
type PoolAddresses struct {
	Pool          solana.PublicKey
	Authority     solana.PublicKey
	LiquidityMint solana.PublicKey
	ReserveA      solana.PublicKey
	ReserveB      solana.PublicKey
}

func FindPoolAddresses(amm solana.PublicKey, mintA solana.PublicKey, mintB solana.PublicKey) (*PoolAddresses, error) {
	var addrs PoolAddresses
	var err error

	addrs.Pool, _, err = FindPool(amm, mintA, mintB)
	if err != nil {
		return nil, err
	}
	addrs.Authority, _, err = FindPoolAuthority(amm, mintA, mintB)
	if err != nil {
		return nil, err
	}
	addrs.LiquidityMint, _, err = FindLiquidityMint(amm, mintA, mintB)
	if err != nil {
		return nil, err
	}
	addrs.ReserveA, _, err = sealevel.FindAssociatedTokenAddress(addrs.Authority, mintA)
	if err != nil {
		return nil, err
	}
	addrs.ReserveB, _, err = sealevel.FindAssociatedTokenAddress(addrs.Authority, mintB)
	if err != nil {
		return nil, err
	}
	return &addrs, nil
}
