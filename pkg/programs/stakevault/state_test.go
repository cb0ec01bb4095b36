package stakevault

import (
	"math"
	"testing"

	"github.com/solbootcamp/vaultkit/pkg/replay"
	"github.com/solbootcamp/vaultkit/pkg/sealevel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStakeInfo_Layout(t *testing.T) {
	info := StakeInfo{
		Staker:   replay.KeypairFromName("staker").PublicKey(),
		Mint:     replay.KeypairFromName("mint").PublicKey(),
		StakeAt:  0x0102030405060708,
		IsStaked: true,
		Amount:   math.MaxUint64,
	}

	data := info.Marshal()
	require.Len(t, data, StakeInfoLen)
	assert.Equal(t, 89, StakeInfoLen)

	assert.Equal(t, StakeInfoDiscriminator[:], data[:8])
	assert.Equal(t, info.Staker[:], data[8:40])
	assert.Equal(t, info.Mint[:], data[40:72])
	assert.Equal(t, []byte{8, 7, 6, 5, 4, 3, 2, 1}, data[72:80])
	assert.Equal(t, byte(1), data[80])

	decoded, err := UnmarshalStakeInfo(data)
	require.NoError(t, err)
	assert.Equal(t, info, *decoded)
}

func TestUnmarshalStakeInfo_Errors(t *testing.T) {
	data := (&StakeInfo{}).Marshal()

	_, err := UnmarshalStakeInfo(data[:StakeInfoLen-1])
	assert.ErrorIs(t, err, sealevel.ErrAccountDidNotDeserialize)

	data[0] ^= 0xff
	_, err = UnmarshalStakeInfo(data)
	assert.ErrorIs(t, err, sealevel.ErrAccountDiscriminatorMismatch)
}

func TestDiscriminators(t *testing.T) {
	assert.NotEqual(t, initializeDiscriminator, stakeDiscriminator)
	assert.NotEqual(t, stakeDiscriminator, unstakeDiscriminator)
	assert.Equal(t, sealevel.InstructionDiscriminator("stake"), stakeDiscriminator)
}
