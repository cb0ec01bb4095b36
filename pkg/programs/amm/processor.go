package amm

import (
	"errors"

	"github.com/solbootcamp/vaultkit/pkg/sealevel"
	solanapda "github.com/solbootcamp/vaultkit/pkg/solana"
	"k8s.io/klog/v2"
)

// account positions in the withdraw_liquidity instruction
const (
	withdrawPool = iota
	withdrawPoolAuthority
	withdrawMintA
	withdrawMintB
	withdrawLiquidityMint
	withdrawReserveA
	withdrawReserveB
	withdrawDepositorA
	withdrawDepositorB
	withdrawDepositorLiquidity
	withdrawDepositor
	withdrawSystemProgram
	withdrawTokenProgram
	withdrawAssociatedTokenProgram
	withdrawNumAccounts
)

func processWithdrawLiquidity(execCtx *sealevel.ExecutionCtx, amount uint64) error {
	accts, err := sealevel.InstructionAccountInfos(execCtx, withdrawNumAccounts)
	if err != nil {
		return err
	}
	poolAcct, authority := accts[withdrawPool], accts[withdrawPoolAuthority]
	mintA, mintB, liquidityMint := accts[withdrawMintA], accts[withdrawMintB], accts[withdrawLiquidityMint]
	reserveA, reserveB := accts[withdrawReserveA], accts[withdrawReserveB]
	depositorA, depositorB, depositorLiquidity := accts[withdrawDepositorA], accts[withdrawDepositorB], accts[withdrawDepositorLiquidity]
	depositor := accts[withdrawDepositor]

	err = depositor.CheckSigner()
	if err != nil {
		return err
	}
	for _, info := range []*sealevel.AccountInfo{poolAcct, liquidityMint, reserveA, reserveB, depositorA, depositorB, depositorLiquidity, depositor} {
		err = info.CheckWritable()
		if err != nil {
			return err
		}
	}

	data, err := poolAcct.ProgramData(ProgramID, PoolDiscriminator)
	if err != nil {
		return err
	}
	pool, err := UnmarshalPool(data)
	if err != nil {
		return err
	}
	_, err = poolAcct.CheckSeeds(poolSeeds(pool.Amm, pool.MintA, pool.MintB), ProgramID)
	if err != nil {
		return err
	}
	if pool.MintA != mintA.Key || pool.MintB != mintB.Key {
		klog.Errorf("pool %s trades %s/%s, not %s/%s", poolAcct.Key, pool.MintA, pool.MintB, mintA.Key, mintB.Key)
		return sealevel.ErrConstraintHasOne
	}

	authorityBump, err := authority.CheckSeeds(poolAuthoritySeeds(pool.Amm, mintA.Key, mintB.Key), ProgramID)
	if err != nil {
		return err
	}
	_, err = mintA.Mint()
	if err != nil {
		return err
	}
	_, err = mintB.Mint()
	if err != nil {
		return err
	}
	_, err = liquidityMint.CheckSeeds(liquidityMintSeeds(pool.Amm, mintA.Key, mintB.Key), ProgramID)
	if err != nil {
		return err
	}
	lpMint, err := liquidityMint.Mint()
	if err != nil {
		return err
	}

	reserveAState, err := reserveA.AssociatedTokenAccount(mintA.Key, authority.Key)
	if err != nil {
		return err
	}
	reserveBState, err := reserveB.AssociatedTokenAccount(mintB.Key, authority.Key)
	if err != nil {
		return err
	}
	_, err = depositorA.AssociatedTokenAccount(mintA.Key, depositor.Key)
	if err != nil {
		return err
	}
	_, err = depositorB.AssociatedTokenAccount(mintB.Key, depositor.Key)
	if err != nil {
		return err
	}
	_, err = depositorLiquidity.AssociatedTokenAccount(liquidityMint.Key, depositor.Key)
	if err != nil {
		return err
	}

	err = accts[withdrawSystemProgram].CheckProgram(sealevel.SystemProgramAddr)
	if err != nil {
		return err
	}
	err = accts[withdrawTokenProgram].CheckProgram(sealevel.TokenProgramAddr)
	if err != nil {
		return err
	}
	err = accts[withdrawAssociatedTokenProgram].CheckProgram(sealevel.AssociatedTokenProgramAddr)
	if err != nil {
		return err
	}

	amountA, amountB, err := CalculateWithdrawAmounts(amount, reserveAState.Amount, reserveBState.Amount, lpMint.Supply)
	if errors.Is(err, ErrZeroLiquidity) || errors.Is(err, ErrEmptyPool) {
		klog.Errorf("withdraw of %d from pool %s: %s", amount, poolAcct.Key, err)
		return sealevel.InstrErrInvalidArgument
	} else if err != nil {
		return sealevel.InstrErrArithmeticOverflow
	}

	execCtx.ProgramLog("Withdrawing %d liquidity => %d / %d", amount, amountA, amountB)

	capability := sealevel.Capability{
		Seeds:     solanapda.SeedsWithBump(poolAuthoritySeeds(pool.Amm, mintA.Key, mintB.Key), authorityBump),
		Principal: authority.Key,
	}

	err = sealevel.TokenTransferSigned(execCtx, reserveA.Key, depositorA.Key, authority.Key, amountA, capability)
	if err != nil {
		return err
	}
	err = sealevel.TokenTransferSigned(execCtx, reserveB.Key, depositorB.Key, authority.Key, amountB, capability)
	if err != nil {
		return err
	}

	return sealevel.TokenBurn(execCtx, liquidityMint.Key, depositorLiquidity.Key, depositor.Key, amount)
}
