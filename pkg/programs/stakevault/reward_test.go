package stakevault

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateReward(t *testing.T) {
	tests := []struct {
		amount  uint64
		elapsed uint64
		reward  uint64
	}{
		{amount: 500, elapsed: 100, reward: 500},
		{amount: 400, elapsed: 100, reward: 400},
		{amount: 200, elapsed: 1, reward: 2},
		{amount: 99, elapsed: 1, reward: 0},
		{amount: 150, elapsed: 3, reward: 4},
		{amount: 0, elapsed: 1_000_000, reward: 0},
		{amount: 1_000_000, elapsed: 0, reward: 0},
		{amount: math.MaxUint64, elapsed: 1, reward: math.MaxUint64 / 100},
	}

	for _, tc := range tests {
		reward, err := CalculateReward(tc.amount, tc.elapsed)
		require.NoError(t, err)
		assert.Equal(t, tc.reward, reward, "amount %d elapsed %d", tc.amount, tc.elapsed)
	}
}

func TestCalculateReward_Overflow(t *testing.T) {
	_, err := CalculateReward(math.MaxUint64, 2)
	assert.Error(t, err)

	_, err = CalculateReward(1<<32, 1<<32)
	assert.Error(t, err)
}

func TestCalculateReward_Monotone(t *testing.T) {
	var prev uint64
	for elapsed := uint64(0); elapsed < 500; elapsed++ {
		reward, err := CalculateReward(777, elapsed)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, reward, prev)
		prev = reward
	}

	prev = 0
	for amount := uint64(0); amount < 500; amount++ {
		reward, err := CalculateReward(amount, 13)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, reward, prev)
		prev = reward
	}
}
