package cu

import (
	"errors"

	"github.com/solbootcamp/vaultkit/pkg/safemath"
)

var ErrComputeExceeded = errors.New("Compute exceeded")

// DefaultComputeBudget is the per-transaction budget when none is requested.
const DefaultComputeBudget = 200000

type ComputeMeter struct {
	computeMeter    uint64
	startingBalance uint64
	exceeded        bool
}

func NewComputeMeter(budget uint64) ComputeMeter {
	return ComputeMeter{computeMeter: budget, startingBalance: budget}
}

func NewComputeMeterDefault() ComputeMeter {
	return NewComputeMeter(DefaultComputeBudget)
}

// Consume charges cost against the meter. Once the meter is exhausted it stays
// at zero and every later call fails.
func (cm *ComputeMeter) Consume(cost uint64) error {
	if cm.computeMeter < cost {
		cm.exceeded = true
	}
	cm.computeMeter = safemath.SaturatingSubU64(cm.computeMeter, cost)

	if cm.exceeded {
		return ErrComputeExceeded
	}
	return nil
}

func (cm *ComputeMeter) Used() uint64 {
	return cm.startingBalance - cm.computeMeter
}

func (cm *ComputeMeter) Exceeded() bool {
	return cm.exceeded
}

func (cm *ComputeMeter) Remaining() uint64 {
	return cm.computeMeter
}
