// Package amm implements the withdraw path of a constant-product pool. A
// liquidity provider burns LP tokens and receives the same fraction of both
// reserves, rounded down.
package amm

import (
	"github.com/gagliardetto/solana-go"
	"github.com/solbootcamp/vaultkit/pkg/sealevel"
)

const ProgramIDStr = "6fvjkeHjVAJRJQstuaKnubPjgz17DuEehe5TmhnZmtvX"

var ProgramID = solana.MustPublicKeyFromBase58(ProgramIDStr)

const computeUnits = 6000

var withdrawLiquidityDiscriminator = sealevel.InstructionDiscriminator("withdraw_liquidity")

func init() {
	sealevel.RegisterNativeProgram(ProgramID, Execute)
}

// Execute is the program entrypoint.
func Execute(execCtx *sealevel.ExecutionCtx) error {
	err := execCtx.ComputeMeter.Consume(computeUnits)
	if err != nil {
		return sealevel.InstrErrComputationalBudgetExceeded
	}

	instrCtx, err := execCtx.TransactionContext.CurrentInstructionCtx()
	if err != nil {
		return err
	}

	data := instrCtx.Data
	if len(data) < sealevel.DiscriminatorLen {
		return sealevel.ErrInstructionDiscriminatorAbsent
	}

	var disc [sealevel.DiscriminatorLen]byte
	copy(disc[:], data)

	switch disc {
	case withdrawLiquidityDiscriminator:
		amount, err := decodeAmount(data[sealevel.DiscriminatorLen:])
		if err != nil {
			return err
		}
		execCtx.ProgramLog("Instruction: WithdrawLiquidity")
		return processWithdrawLiquidity(execCtx, amount)

	default:
		return sealevel.ErrInstructionFallbackNotFound
	}
}
