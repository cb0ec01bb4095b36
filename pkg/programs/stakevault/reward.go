package stakevault

import "github.com/solbootcamp/vaultkit/pkg/safemath"

// RewardRateDenominator turns amount*slots into 1% per slot.
const RewardRateDenominator = 100

// CalculateReward returns floor(amount * elapsedSlots / 100). The product
// must fit in 64 bits.
func CalculateReward(amount uint64, elapsedSlots uint64) (uint64, error) {
	product, err := safemath.CheckedMulU64(amount, elapsedSlots)
	if err != nil {
		return 0, err
	}
	return product / RewardRateDenominator, nil
}
