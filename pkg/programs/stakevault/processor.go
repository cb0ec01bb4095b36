package stakevault

import (
	"github.com/solbootcamp/vaultkit/pkg/safemath"
	"github.com/solbootcamp/vaultkit/pkg/sealevel"
	solanapda "github.com/solbootcamp/vaultkit/pkg/solana"
	"k8s.io/klog/v2"
)

// account positions in the initialize instruction
const (
	initializeAdmin = iota
	initializeMint
	initializeRewardVault
	initializeSystemProgram
	initializeTokenProgram
	initializeNumAccounts
)

// account positions in the stake instruction
const (
	stakeStaker = iota
	stakeMint
	stakeStakeInfo
	stakeVault
	stakeStakerToken
	stakeSystemProgram
	stakeTokenProgram
	stakeAssociatedTokenProgram
	stakeNumAccounts
)

// account positions in the unstake instruction
const (
	unstakeStaker = iota
	unstakeMint
	unstakeStakeInfo
	unstakeVault
	unstakeRewardVault
	unstakeStakerToken
	unstakeSystemProgram
	unstakeTokenProgram
	unstakeAssociatedTokenProgram
	unstakeNumAccounts
)

func checkSignerPayer(info *sealevel.AccountInfo) error {
	err := info.CheckSigner()
	if err != nil {
		return err
	}
	return info.CheckWritable()
}

func checkWritable(infos ...*sealevel.AccountInfo) error {
	for _, info := range infos {
		err := info.CheckWritable()
		if err != nil {
			return err
		}
	}
	return nil
}

func processInitialize(execCtx *sealevel.ExecutionCtx) error {
	accts, err := sealevel.InstructionAccountInfos(execCtx, initializeNumAccounts)
	if err != nil {
		return err
	}
	admin, mint, rewardVault := accts[initializeAdmin], accts[initializeMint], accts[initializeRewardVault]

	err = checkSignerPayer(admin)
	if err != nil {
		return err
	}
	_, err = mint.Mint()
	if err != nil {
		return err
	}
	err = rewardVault.CheckWritable()
	if err != nil {
		return err
	}
	bump, err := rewardVault.CheckSeeds(rewardVaultSeeds(mint.Key), ProgramID)
	if err != nil {
		return err
	}
	err = accts[initializeSystemProgram].CheckProgram(sealevel.SystemProgramAddr)
	if err != nil {
		return err
	}
	err = accts[initializeTokenProgram].CheckProgram(sealevel.TokenProgramAddr)
	if err != nil {
		return err
	}

	if !rewardVault.IsUninitialized() {
		// already created; it must still be the vault it was created as
		_, err = rewardVault.TokenAccount(mint.Key, rewardVault.Key)
		return err
	}

	capability := sealevel.Capability{
		Seeds:     solanapda.SeedsWithBump(rewardVaultSeeds(mint.Key), bump),
		Principal: rewardVault.Key,
	}
	err = sealevel.CreateProgramAccount(execCtx, admin.Key, rewardVault.Key, sealevel.TokenAccountLen, sealevel.TokenProgramAddr, capability)
	if err != nil {
		return err
	}

	return execCtx.NativeInvoke(sealevel.NewTokenInitializeAccount3Instruction(rewardVault.Key, mint.Key, rewardVault.Key), nil)
}

func processStake(execCtx *sealevel.ExecutionCtx, amount uint64) error {
	accts, err := sealevel.InstructionAccountInfos(execCtx, stakeNumAccounts)
	if err != nil {
		return err
	}
	staker, mint := accts[stakeStaker], accts[stakeMint]
	stakeInfoAcct, vault, stakerToken := accts[stakeStakeInfo], accts[stakeVault], accts[stakeStakerToken]

	err = checkSignerPayer(staker)
	if err != nil {
		return err
	}
	_, err = mint.Mint()
	if err != nil {
		return err
	}
	err = checkWritable(stakeInfoAcct, vault, stakerToken)
	if err != nil {
		return err
	}
	bump, err := stakeInfoAcct.CheckSeeds(stakeInfoSeeds(staker.Key, mint.Key), ProgramID)
	if err != nil {
		return err
	}
	err = vault.CheckAssociatedAddress(mint.Key, stakeInfoAcct.Key)
	if err != nil {
		return err
	}
	_, err = stakerToken.AssociatedTokenAccount(mint.Key, staker.Key)
	if err != nil {
		return err
	}
	err = accts[stakeSystemProgram].CheckProgram(sealevel.SystemProgramAddr)
	if err != nil {
		return err
	}
	err = accts[stakeTokenProgram].CheckProgram(sealevel.TokenProgramAddr)
	if err != nil {
		return err
	}
	err = accts[stakeAssociatedTokenProgram].CheckProgram(sealevel.AssociatedTokenProgramAddr)
	if err != nil {
		return err
	}

	if amount == 0 {
		return ErrNoToken
	}

	stakeInfo := new(StakeInfo)
	if stakeInfoAcct.IsUninitialized() {
		capability := sealevel.Capability{
			Seeds:     solanapda.SeedsWithBump(stakeInfoSeeds(staker.Key, mint.Key), bump),
			Principal: stakeInfoAcct.Key,
		}
		err = sealevel.CreateProgramAccount(execCtx, staker.Key, stakeInfoAcct.Key, StakeInfoLen, ProgramID, capability)
		if err != nil {
			return err
		}
	} else {
		data, err := stakeInfoAcct.ProgramData(ProgramID, StakeInfoDiscriminator)
		if err != nil {
			return err
		}
		stakeInfo, err = UnmarshalStakeInfo(data)
		if err != nil {
			return err
		}
	}

	if vault.IsUninitialized() {
		ix, err := sealevel.NewCreateAssociatedTokenAccountInstruction(staker.Key, stakeInfoAcct.Key, mint.Key, true)
		if err != nil {
			return err
		}
		err = execCtx.NativeInvoke(ix, nil)
		if err != nil {
			return err
		}
	} else {
		_, err = vault.TokenAccount(mint.Key, stakeInfoAcct.Key)
		if err != nil {
			return err
		}
	}

	clock, err := sealevel.ReadClockSysvar(execCtx.Accounts)
	if err != nil {
		return err
	}

	stakeInfo.Staker = staker.Key
	stakeInfo.Mint = mint.Key
	stakeInfo.StakeAt = clock.Slot
	stakeInfo.IsStaked = true
	stakeInfo.Amount, err = safemath.CheckedAddU64(stakeInfo.Amount, amount)
	if err != nil {
		return sealevel.InstrErrArithmeticOverflow
	}

	err = sealevel.TokenTransfer(execCtx, stakerToken.Key, vault.Key, staker.Key, amount)
	if err != nil {
		return err
	}

	return sealevel.StoreProgramData(execCtx, stakeStakeInfo, stakeInfo.Marshal())
}

func processUnstake(execCtx *sealevel.ExecutionCtx, amount uint64) error {
	accts, err := sealevel.InstructionAccountInfos(execCtx, unstakeNumAccounts)
	if err != nil {
		return err
	}
	staker, mint := accts[unstakeStaker], accts[unstakeMint]
	stakeInfoAcct, vault, rewardVault, stakerToken := accts[unstakeStakeInfo], accts[unstakeVault], accts[unstakeRewardVault], accts[unstakeStakerToken]

	err = checkSignerPayer(staker)
	if err != nil {
		return err
	}
	_, err = mint.Mint()
	if err != nil {
		return err
	}
	err = checkWritable(stakeInfoAcct, vault, rewardVault, stakerToken)
	if err != nil {
		return err
	}

	stakeInfoBump, err := stakeInfoAcct.CheckSeeds(stakeInfoSeeds(staker.Key, mint.Key), ProgramID)
	if err != nil {
		return err
	}
	data, err := stakeInfoAcct.ProgramData(ProgramID, StakeInfoDiscriminator)
	if err != nil {
		return err
	}
	stakeInfo, err := UnmarshalStakeInfo(data)
	if err != nil {
		return err
	}
	if stakeInfo.Staker != staker.Key {
		klog.Errorf("stake info %s belongs to %s, not %s", stakeInfoAcct.Key, stakeInfo.Staker, staker.Key)
		return ErrInvalidStaker
	}
	if stakeInfo.Mint != mint.Key {
		klog.Errorf("stake info %s holds mint %s, not %s", stakeInfoAcct.Key, stakeInfo.Mint, mint.Key)
		return ErrInvalidMint
	}

	_, err = vault.TokenAccount(mint.Key, stakeInfoAcct.Key)
	if err != nil {
		return err
	}
	rewardVaultBump, err := rewardVault.CheckSeeds(rewardVaultSeeds(mint.Key), ProgramID)
	if err != nil {
		return err
	}
	_, err = rewardVault.TokenAccount(mint.Key, rewardVault.Key)
	if err != nil {
		return err
	}
	_, err = stakerToken.AssociatedTokenAccount(mint.Key, staker.Key)
	if err != nil {
		return err
	}
	err = accts[unstakeSystemProgram].CheckProgram(sealevel.SystemProgramAddr)
	if err != nil {
		return err
	}
	err = accts[unstakeTokenProgram].CheckProgram(sealevel.TokenProgramAddr)
	if err != nil {
		return err
	}
	err = accts[unstakeAssociatedTokenProgram].CheckProgram(sealevel.AssociatedTokenProgramAddr)
	if err != nil {
		return err
	}

	if amount == 0 || amount > stakeInfo.Amount {
		return ErrNoToken
	}

	clock, err := sealevel.ReadClockSysvar(execCtx.Accounts)
	if err != nil {
		return err
	}
	elapsed, err := safemath.CheckedSubU64(clock.Slot, stakeInfo.StakeAt)
	if err != nil {
		return sealevel.InstrErrArithmeticOverflow
	}
	reward, err := CalculateReward(amount, elapsed)
	if err != nil {
		return sealevel.InstrErrArithmeticOverflow
	}

	execCtx.ProgramLog("Unstaking %d tokens after %d slots => reward: %d", amount, elapsed, reward)

	rewardCapability := sealevel.Capability{
		Seeds:     solanapda.SeedsWithBump(rewardVaultSeeds(mint.Key), rewardVaultBump),
		Principal: rewardVault.Key,
	}
	err = sealevel.TokenTransferSigned(execCtx, rewardVault.Key, stakerToken.Key, rewardVault.Key, reward, rewardCapability)
	if err != nil {
		return err
	}

	stakeInfoCapability := sealevel.Capability{
		Seeds:     solanapda.SeedsWithBump(stakeInfoSeeds(staker.Key, mint.Key), stakeInfoBump),
		Principal: stakeInfoAcct.Key,
	}
	err = sealevel.TokenTransferSigned(execCtx, vault.Key, stakerToken.Key, stakeInfoAcct.Key, amount, stakeInfoCapability)
	if err != nil {
		return err
	}

	if amount == stakeInfo.Amount {
		execCtx.ProgramLog("Unstaked full balance, closing stake info")
		return sealevel.CloseProgramAccount(execCtx, unstakeStakeInfo, unstakeStaker)
	}

	stakeInfo.Amount -= amount
	stakeInfo.StakeAt = clock.Slot
	return sealevel.StoreProgramData(execCtx, unstakeStakeInfo, stakeInfo.Marshal())
}
