package stakevault

import (
	"bytes"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/solbootcamp/vaultkit/pkg/sealevel"
)

func encodeAmountInstr(disc [sealevel.DiscriminatorLen]byte, amount uint64) []byte {
	buf := new(bytes.Buffer)
	encoder := bin.NewBinEncoder(buf)
	_ = encoder.WriteBytes(disc[:], false)
	_ = encoder.WriteUint64(amount, bin.LE)
	return buf.Bytes()
}

func decodeAmount(data []byte) (uint64, error) {
	amount, err := bin.NewBinDecoder(data).ReadUint64(bin.LE)
	if err != nil {
		return 0, sealevel.ErrInstructionDidNotDeserialize
	}
	return amount, nil
}

// NewInitializeInstruction creates the reward vault of mint, paid by admin.
func NewInitializeInstruction(admin solana.PublicKey, mint solana.PublicKey) (solana.Instruction, error) {
	rewardVault, _, err := FindRewardVault(mint)
	if err != nil {
		return nil, err
	}

	metas := solana.AccountMetaSlice{
		solana.Meta(admin).WRITE().SIGNER(),
		solana.Meta(mint),
		solana.Meta(rewardVault).WRITE(),
		solana.Meta(sealevel.SystemProgramAddr),
		solana.Meta(sealevel.TokenProgramAddr),
	}
	return solana.NewInstruction(ProgramID, metas, initializeDiscriminator[:]), nil
}

// stakeAccounts is the account list shared by stake and unstake, which
// differ only in the reward vault that unstake also needs.
func stakeAccounts(staker solana.PublicKey, mint solana.PublicKey, withRewardVault bool) (solana.AccountMetaSlice, error) {
	stakeInfo, _, err := FindStakeInfo(staker, mint)
	if err != nil {
		return nil, err
	}
	vault, _, err := sealevel.FindAssociatedTokenAddress(stakeInfo, mint)
	if err != nil {
		return nil, err
	}
	stakerToken, _, err := sealevel.FindAssociatedTokenAddress(staker, mint)
	if err != nil {
		return nil, err
	}

	metas := solana.AccountMetaSlice{
		solana.Meta(staker).WRITE().SIGNER(),
		solana.Meta(mint),
		solana.Meta(stakeInfo).WRITE(),
		solana.Meta(vault).WRITE(),
	}
	if withRewardVault {
		rewardVault, _, err := FindRewardVault(mint)
		if err != nil {
			return nil, err
		}
		metas = append(metas, solana.Meta(rewardVault).WRITE())
	}
	metas = append(metas,
		solana.Meta(stakerToken).WRITE(),
		solana.Meta(sealevel.SystemProgramAddr),
		solana.Meta(sealevel.TokenProgramAddr),
		solana.Meta(sealevel.AssociatedTokenProgramAddr),
	)
	return metas, nil
}

// NewStakeInstruction deposits amount of mint from the staker's associated
// token account.
func NewStakeInstruction(staker solana.PublicKey, mint solana.PublicKey, amount uint64) (solana.Instruction, error) {
	metas, err := stakeAccounts(staker, mint, false)
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(ProgramID, metas, encodeAmountInstr(stakeDiscriminator, amount)), nil
}

// NewUnstakeInstruction withdraws amount of principal plus reward to the
// staker's associated token account.
func NewUnstakeInstruction(staker solana.PublicKey, mint solana.PublicKey, amount uint64) (solana.Instruction, error) {
	metas, err := stakeAccounts(staker, mint, true)
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(ProgramID, metas, encodeAmountInstr(unstakeDiscriminator, amount)), nil
}
