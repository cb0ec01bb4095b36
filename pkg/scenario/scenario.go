// Package scenario replays a scripted sequence of vault and pool operations
// against an account store. Scenarios are written in YAML and name every
// actor, mint and pool; keys are derived from those names so a scenario
// always produces the same addresses.
package scenario

import (
	"errors"
	"fmt"
	"os"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

const defaultActorLamports = 10_000_000_000

type Op string

const (
	OpInitialize        Op = "initialize"
	OpStake             Op = "stake"
	OpUnstake           Op = "unstake"
	OpWithdrawLiquidity Op = "withdraw_liquidity"
	// OpFundRewards mints new tokens into the reward vault of a mint. The
	// vault must already be initialized.
	OpFundRewards Op = "fund_rewards"
)

var ErrInvalidScenario = errors.New("invalid scenario")

type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	// Leader receives the unburned share of every block's fees.
	Leader string  `yaml:"leader,omitempty"`
	Rent   *Rent   `yaml:"rent,omitempty"`
	Actors []Actor `yaml:"actors"`
	Mints  []Mint  `yaml:"mints"`
	Pools  []Pool  `yaml:"pools,omitempty"`
	Steps  []Step  `yaml:"steps"`
}

type Rent struct {
	LamportsPerByteYear uint64  `yaml:"lamports_per_byte_year"`
	ExemptionThreshold  float64 `yaml:"exemption_threshold"`
	BurnPercent         uint8   `yaml:"burn_percent"`
}

type Actor struct {
	Name string `yaml:"name"`
	// Lamports defaults to 10 SOL.
	Lamports uint64 `yaml:"lamports,omitempty"`
}

type Mint struct {
	Name      string `yaml:"name"`
	Decimals  uint8  `yaml:"decimals"`
	Authority string `yaml:"authority,omitempty"`
	// Balances seeds the associated token account of each named actor. Every
	// actor gets an associated token account for every mint, empty unless
	// listed here.
	Balances map[string]uint64 `yaml:"balances,omitempty"`
}

type Pool struct {
	Name     string `yaml:"name"`
	MintA    string `yaml:"mint_a"`
	MintB    string `yaml:"mint_b"`
	ReserveA uint64 `yaml:"reserve_a"`
	ReserveB uint64 `yaml:"reserve_b"`
	// Liquidity is the LP token balance of each named actor. The LP supply
	// is their sum.
	Liquidity map[string]uint64 `yaml:"liquidity,omitempty"`
}

type Step struct {
	Description string `yaml:"description,omitempty"`
	// Slot of the block the step runs in. Zero means one past the previous
	// step.
	Slot   uint64 `yaml:"slot,omitempty"`
	Op     Op     `yaml:"op"`
	Actor  string `yaml:"actor,omitempty"`
	Mint   string `yaml:"mint,omitempty"`
	Pool   string `yaml:"pool,omitempty"`
	Amount uint64 `yaml:"amount,omitempty"`
	Expect Expect `yaml:"expect,omitempty"`
}

type Expect struct {
	// Error is a substring of the expected transaction error. Empty means
	// the step must succeed.
	Error string `yaml:"error,omitempty"`
}

func Unmarshal(data []byte) (*Scenario, error) {
	s := new(Scenario)
	err := yaml.Unmarshal(data, s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}
	err = s.Validate()
	if err != nil {
		return nil, err
	}
	return s, nil
}

func LoadFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Unmarshal(data)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidScenario, fmt.Sprintf(format, args...))
}

// Validate checks that every name a scenario refers to is declared exactly
// once and that every step carries the fields its op needs.
func (s *Scenario) Validate() error {
	actorNames := lo.Map(s.Actors, func(a Actor, _ int) string { return a.Name })
	mintNames := lo.Map(s.Mints, func(m Mint, _ int) string { return m.Name })
	poolNames := lo.Map(s.Pools, func(p Pool, _ int) string { return p.Name })

	allNames := append(append(append([]string{}, actorNames...), mintNames...), poolNames...)
	if dups := lo.FindDuplicates(allNames); len(dups) > 0 {
		return invalid("names declared more than once: %v", dups)
	}
	if lo.Contains(allNames, "") {
		return invalid("empty name")
	}

	actors := lo.Associate(actorNames, func(name string) (string, bool) { return name, true })
	mints := lo.Associate(mintNames, func(name string) (string, bool) { return name, true })
	pools := lo.Associate(poolNames, func(name string) (string, bool) { return name, true })

	if s.Leader != "" && !actors[s.Leader] {
		return invalid("leader %q is not an actor", s.Leader)
	}

	for _, mint := range s.Mints {
		if mint.Authority != "" && !actors[mint.Authority] {
			return invalid("mint %s: authority %q is not an actor", mint.Name, mint.Authority)
		}
		for holder := range mint.Balances {
			if !actors[holder] {
				return invalid("mint %s: holder %q is not an actor", mint.Name, holder)
			}
		}
	}

	for _, pool := range s.Pools {
		if !mints[pool.MintA] || !mints[pool.MintB] {
			return invalid("pool %s: unknown mint", pool.Name)
		}
		if pool.MintA == pool.MintB {
			return invalid("pool %s: mint_a and mint_b are both %s", pool.Name, pool.MintA)
		}
		for holder := range pool.Liquidity {
			if !actors[holder] {
				return invalid("pool %s: holder %q is not an actor", pool.Name, holder)
			}
		}
	}

	var prevSlot uint64
	for idx, step := range s.Steps {
		if step.Slot != 0 && step.Slot < prevSlot {
			return invalid("step %d: slot %d is before slot %d", idx, step.Slot, prevSlot)
		}
		prevSlot = step.slotAfter(prevSlot)

		switch step.Op {
		case OpInitialize, OpStake, OpUnstake:
			if !actors[step.Actor] {
				return invalid("step %d: %s needs an actor, got %q", idx, step.Op, step.Actor)
			}
			if !mints[step.Mint] {
				return invalid("step %d: %s needs a mint, got %q", idx, step.Op, step.Mint)
			}
		case OpWithdrawLiquidity:
			if !actors[step.Actor] {
				return invalid("step %d: %s needs an actor, got %q", idx, step.Op, step.Actor)
			}
			if !pools[step.Pool] {
				return invalid("step %d: %s needs a pool, got %q", idx, step.Op, step.Pool)
			}
		case OpFundRewards:
			if !mints[step.Mint] {
				return invalid("step %d: %s needs a mint, got %q", idx, step.Op, step.Mint)
			}
			if step.Actor == "" && s.mint(step.Mint).Authority == "" {
				return invalid("step %d: %s of mint %s needs an actor or a mint authority", idx, step.Op, step.Mint)
			}
			if step.Actor != "" && !actors[step.Actor] {
				return invalid("step %d: %s actor %q is not an actor", idx, step.Op, step.Actor)
			}
		default:
			return invalid("step %d: unknown op %q", idx, step.Op)
		}
	}

	return nil
}

func (step *Step) slotAfter(prev uint64) uint64 {
	if step.Slot == 0 {
		return prev + 1
	}
	return step.Slot
}
