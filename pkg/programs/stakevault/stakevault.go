// Package stakevault implements a single-sided staking program. Stakers
// deposit a token into a vault controlled by their StakeInfo record and, on
// withdrawal, are paid 1% of the withdrawn principal per slot elapsed from a
// per-mint reward vault.
//
// Staking again while a stake is active moves stake_at to the current slot
// for the whole combined balance. Reward accrued on the earlier principal is
// forfeited. A partial unstake restarts the clock for the remainder the same
// way.
package stakevault

import (
	"github.com/gagliardetto/solana-go"
	"github.com/solbootcamp/vaultkit/pkg/sealevel"
)

const ProgramIDStr = "5ZH5NAc5AeWpYW5MgxDgsHSPjzBYmN6qbn1dSwTYBj6X"

var ProgramID = solana.MustPublicKeyFromBase58(ProgramIDStr)

const computeUnits = 5000

var (
	initializeDiscriminator = sealevel.InstructionDiscriminator("initialize")
	stakeDiscriminator      = sealevel.InstructionDiscriminator("stake")
	unstakeDiscriminator    = sealevel.InstructionDiscriminator("unstake")
)

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
	case initializeDiscriminator:
		execCtx.ProgramLog("Instruction: Initialize")
		return processInitialize(execCtx)

	case stakeDiscriminator:
		amount, err := decodeAmount(data[sealevel.DiscriminatorLen:])
		if err != nil {
			return err
		}
		execCtx.ProgramLog("Instruction: Stake")
		return processStake(execCtx, amount)

	case unstakeDiscriminator:
		amount, err := decodeAmount(data[sealevel.DiscriminatorLen:])
		if err != nil {
			return err
		}
		execCtx.ProgramLog("Instruction: Unstake")
		return processUnstake(execCtx, amount)

	default:
		return sealevel.ErrInstructionFallbackNotFound
	}
}
