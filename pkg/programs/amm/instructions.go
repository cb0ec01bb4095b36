package amm

import (
	"bytes"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/solbootcamp/vaultkit/pkg/sealevel"
)

func decodeAmount(data []byte) (uint64, error) {
	amount, err := bin.NewBinDecoder(data).ReadUint64(bin.LE)
	if err != nil {
		return 0, sealevel.ErrInstructionDidNotDeserialize
	}
	return amount, nil
}

// NewWithdrawLiquidityInstruction burns amount LP tokens of the (amm, mintA,
// mintB) pool from the depositor's associated token account and pays both
// reserves to the depositor's associated token accounts.
func NewWithdrawLiquidityInstruction(depositor solana.PublicKey, amm solana.PublicKey, mintA solana.PublicKey, mintB solana.PublicKey, amount uint64) (solana.Instruction, error) {
	addrs, err := FindPoolAddresses(amm, mintA, mintB)
	if err != nil {
		return nil, err
	}

	depositorA, _, err := sealevel.FindAssociatedTokenAddress(depositor, mintA)
	if err != nil {
		return nil, err
	}
	depositorB, _, err := sealevel.FindAssociatedTokenAddress(depositor, mintB)
	if err != nil {
		return nil, err
	}
	depositorLiquidity, _, err := sealevel.FindAssociatedTokenAddress(depositor, addrs.LiquidityMint)
	if err != nil {
		return nil, err
	}

	metas := solana.AccountMetaSlice{
		solana.Meta(addrs.Pool).WRITE(),
		solana.Meta(addrs.Authority),
		solana.Meta(mintA),
		solana.Meta(mintB),
		solana.Meta(addrs.LiquidityMint).WRITE(),
		solana.Meta(addrs.ReserveA).WRITE(),
		solana.Meta(addrs.ReserveB).WRITE(),
		solana.Meta(depositorA).WRITE(),
		solana.Meta(depositorB).WRITE(),
		solana.Meta(depositorLiquidity).WRITE(),
		solana.Meta(depositor).WRITE().SIGNER(),
		solana.Meta(sealevel.SystemProgramAddr),
		solana.Meta(sealevel.TokenProgramAddr),
		solana.Meta(sealevel.AssociatedTokenProgramAddr),
	}

	buf := new(bytes.Buffer)
	encoder := bin.NewBinEncoder(buf)
	_ = encoder.WriteBytes(withdrawLiquidityDiscriminator[:], false)
	_ = encoder.WriteUint64(amount, bin.LE)

	return solana.NewInstruction(ProgramID, metas, buf.Bytes()), nil
}
