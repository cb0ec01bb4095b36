package stakevault

import (
	"bytes"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/solbootcamp/vaultkit/pkg/sealevel"
)

const StakeInfoLen = 8 + // discriminator
	32 + // staker
	32 + // mint
	8 + // stake_at
	1 + // is_staked
	8 // amount

var StakeInfoDiscriminator = sealevel.AccountDiscriminator("StakeInfo")

// StakeInfo records one staker's position in one mint. IsStaked is written
// on every stake and never read.
type StakeInfo struct {
	Staker   solana.PublicKey
	Mint     solana.PublicKey
	StakeAt  uint64
	IsStaked bool
	Amount   uint64
}

func (info *StakeInfo) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	disc, err := decoder.ReadNBytes(sealevel.DiscriminatorLen)
	if err != nil {
		return fmt.Errorf("failed to read discriminator when decoding StakeInfo: %w", err)
	}
	if !bytes.Equal(disc, StakeInfoDiscriminator[:]) {
		return sealevel.ErrAccountDiscriminatorMismatch
	}

	err = decoder.Decode(&info.Staker)
	if err != nil {
		return fmt.Errorf("failed to read Staker when decoding StakeInfo: %w", err)
	}

	err = decoder.Decode(&info.Mint)
	if err != nil {
		return fmt.Errorf("failed to read Mint when decoding StakeInfo: %w", err)
	}

	info.StakeAt, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read StakeAt when decoding StakeInfo: %w", err)
	}

	info.IsStaked, err = decoder.ReadBool()
	if err != nil {
		return fmt.Errorf("failed to read IsStaked when decoding StakeInfo: %w", err)
	}

	info.Amount, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read Amount when decoding StakeInfo: %w", err)
	}

	return nil
}

func (info *StakeInfo) MarshalWithEncoder(encoder *bin.Encoder) error {
	_ = encoder.WriteBytes(StakeInfoDiscriminator[:], false)
	_ = encoder.WriteBytes(info.Staker[:], false)
	_ = encoder.WriteBytes(info.Mint[:], false)
	_ = encoder.WriteUint64(info.StakeAt, bin.LE)
	_ = encoder.WriteBool(info.IsStaked)
	return encoder.WriteUint64(info.Amount, bin.LE)
}

func (info *StakeInfo) Marshal() []byte {
	buf := new(bytes.Buffer)
	err := info.MarshalWithEncoder(bin.NewBinEncoder(buf))
	if err != nil {
		panic("shouldn't fail")
	}
	return buf.Bytes()
}

func UnmarshalStakeInfo(data []byte) (*StakeInfo, error) {
	if len(data) < StakeInfoLen {
		return nil, sealevel.ErrAccountDidNotDeserialize
	}
	info := new(StakeInfo)
	err := info.UnmarshalWithDecoder(bin.NewBinDecoder(data))
	if errors.Is(err, sealevel.ErrAccountDiscriminatorMismatch) {
		return nil, err
	} else if err != nil {
		return nil, sealevel.ErrAccountDidNotDeserialize
	}
	return info, nil
}
