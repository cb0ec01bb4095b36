package amm

import (
	"bytes"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/solbootcamp/vaultkit/pkg/sealevel"
)

const PoolLen = 8 + // discriminator
	32 + // amm
	32 + // mint_a
	32 // mint_b

var PoolDiscriminator = sealevel.AccountDiscriminator("Pool")

type Pool struct {
	Amm   solana.PublicKey
	MintA solana.PublicKey
	MintB solana.PublicKey
}

func (pool *Pool) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	disc, err := decoder.ReadNBytes(sealevel.DiscriminatorLen)
	if err != nil {
		return fmt.Errorf("failed to read discriminator when decoding Pool: %w", err)
	}
	if !bytes.Equal(disc, PoolDiscriminator[:]) {
		return sealevel.ErrAccountDiscriminatorMismatch
	}

	err = decoder.Decode(&pool.Amm)
	if err != nil {
		return fmt.Errorf("failed to read Amm when decoding Pool: %w", err)
	}

	err = decoder.Decode(&pool.MintA)
	if err != nil {
		return fmt.Errorf("failed to read MintA when decoding Pool: %w", err)
	}

	err = decoder.Decode(&pool.MintB)
	if err != nil {
		return fmt.Errorf("failed to read MintB when decoding Pool: %w", err)
	}

	return nil
}

func (pool *Pool) MarshalWithEncoder(encoder *bin.Encoder) error {
	_ = encoder.WriteBytes(PoolDiscriminator[:], false)
	_ = encoder.WriteBytes(pool.Amm[:], false)
	_ = encoder.WriteBytes(pool.MintA[:], false)
	return encoder.WriteBytes(pool.MintB[:], false)
}

func (pool *Pool) Marshal() []byte {
	buf := new(bytes.Buffer)
	err := pool.MarshalWithEncoder(bin.NewBinEncoder(buf))
	if err != nil {
		panic("shouldn't fail")
	}
	return buf.Bytes()
}

func UnmarshalPool(data []byte) (*Pool, error) {
	if len(data) < PoolLen {
		return nil, sealevel.ErrAccountDidNotDeserialize
	}
	pool := new(Pool)
	err := pool.UnmarshalWithDecoder(bin.NewBinDecoder(data))
	if errors.Is(err, sealevel.ErrAccountDiscriminatorMismatch) {
		return nil, err
	} else if err != nil {
		return nil, sealevel.ErrAccountDidNotDeserialize
	}
	return pool, nil
}
