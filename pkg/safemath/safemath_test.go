package safemath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafemath_CheckedAdd(t *testing.T) {
	sum, err := CheckedAddU64(1, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), sum)

	_, err = CheckedAddU64(math.MaxUint64, 1)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestSafemath_CheckedSub(t *testing.T) {
	diff, err := CheckedSubU64(10, 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), diff)

	_, err = CheckedSubU64(4, 10)
	assert.ErrorIs(t, err, ErrUnderflow)
}

func TestSafemath_CheckedMul(t *testing.T) {
	product, err := CheckedMulU64(1<<32, 1<<31)
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<63), product)

	_, err = CheckedMulU64(1<<32, 1<<32)
	assert.ErrorIs(t, err, ErrOverflow)

	product, err = CheckedMulU64(math.MaxUint64, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), product)
}

func TestSafemath_CheckedDiv(t *testing.T) {
	q, err := CheckedDivU64(799, 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), q)

	_, err = CheckedDivU64(1, 0)
	assert.ErrorIs(t, err, ErrDivisionByZero)
}

func TestSafemath_Saturating(t *testing.T) {
	assert.Equal(t, uint64(0), SaturatingSubU64(1, 2))
	assert.Equal(t, uint64(1), SaturatingSubU64(3, 2))
	assert.Equal(t, uint64(math.MaxUint64), SaturatingAddU64(math.MaxUint64, 5))
}
