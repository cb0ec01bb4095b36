package scenario

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/samber/lo"
	"github.com/solbootcamp/vaultkit/pkg/accounts"
	"github.com/solbootcamp/vaultkit/pkg/programs/amm"
	"github.com/solbootcamp/vaultkit/pkg/programs/stakevault"
	"github.com/solbootcamp/vaultkit/pkg/replay"
	"github.com/solbootcamp/vaultkit/pkg/safemath"
	"github.com/solbootcamp/vaultkit/pkg/sealevel"
	"k8s.io/klog/v2"
)

var ErrExpectationFailed = errors.New("step did not meet expectation")

// StepResult is the outcome of one step.
type StepResult struct {
	Index    int
	Step     Step
	Slot     uint64
	Tx       *replay.TransactionResult
	BankHash [32]byte
	// Mismatch is set when the step's outcome differs from Expect.
	Mismatch error
}

func (r *StepResult) Err() error {
	if r.Tx == nil {
		return nil
	}
	return r.Tx.Err
}

type Runner struct {
	scenario       *Scenario
	slotCtx        *replay.SlotCtx
	rent           sealevel.SysvarRent
	leader         solana.PublicKey
	actors         map[string]solana.PrivateKey
	mints          map[string]solana.PublicKey
	pools          map[string]*amm.PoolAddresses
	slot           uint64
	parentBankHash [32]byte
}

func ActorKey(name string) solana.PrivateKey {
	return replay.KeypairFromName(name)
}

func MintKey(name string) solana.PublicKey {
	return replay.KeypairFromName("mint/" + name).PublicKey()
}

// AmmKey is the amm identity a named pool is derived under.
func AmmKey(pool string) solana.PublicKey {
	return replay.KeypairFromName("amm/" + pool).PublicKey()
}

// NewRunner prepares s to run against accts. Metrics may be nil.
func NewRunner(s *Scenario, accts accounts.Accounts, metrics *replay.Metrics) (*Runner, error) {
	err := s.Validate()
	if err != nil {
		return nil, err
	}

	r := &Runner{
		scenario: s,
		slotCtx:  replay.NewSlotCtx(accts, 0),
		rent:     sealevel.DefaultRent(),
		actors:   make(map[string]solana.PrivateKey),
		mints:    make(map[string]solana.PublicKey),
		pools:    make(map[string]*amm.PoolAddresses),
	}
	r.slotCtx.Metrics = metrics

	if s.Rent != nil {
		r.rent = sealevel.SysvarRent{
			LamportsPerUint8Year: s.Rent.LamportsPerByteYear,
			ExemptionThreshold:   s.Rent.ExemptionThreshold,
			BurnPercent:          s.Rent.BurnPercent,
		}
	}
	for _, actor := range s.Actors {
		r.actors[actor.Name] = ActorKey(actor.Name)
	}
	for _, mint := range s.Mints {
		r.mints[mint.Name] = MintKey(mint.Name)
	}
	for _, pool := range s.Pools {
		r.pools[pool.Name], err = amm.FindPoolAddresses(AmmKey(pool.Name), r.mints[pool.MintA], r.mints[pool.MintB])
		if err != nil {
			return nil, fmt.Errorf("deriving pool %s: %w", pool.Name, err)
		}
	}
	if s.Leader != "" {
		r.leader = r.actors[s.Leader].PublicKey()
	}
	return r, nil
}

func (r *Runner) Accounts() accounts.Accounts {
	return r.slotCtx.Accounts
}

// sortedHolders returns the entries of balances in name order so genesis
// output does not depend on map iteration.
func sortedHolders(balances map[string]uint64) []string {
	names := lo.Keys(balances)
	slices.Sort(names)
	return names
}

// Genesis writes the sysvars, actor wallets, mints and pools of the
// scenario. Every actor gets an associated token account for every mint.
func (r *Runner) Genesis() error {
	err := sealevel.WriteGenesisSysvars(r.slotCtx.Accounts, r.rent)
	if err != nil {
		return err
	}

	var accts []accounts.Account
	for _, actor := range r.scenario.Actors {
		lamports := actor.Lamports
		if lamports == 0 {
			lamports = defaultActorLamports
		}
		accts = append(accts, sealevel.NewSystemAccount(r.actors[actor.Name].PublicKey(), lamports))
	}

	supplies := make(map[string]uint64)
	for _, mint := range r.scenario.Mints {
		for _, actor := range r.scenario.Actors {
			amount := mint.Balances[actor.Name]
			ata, err := sealevel.NewAssociatedTokenAccount(r.actors[actor.Name].PublicKey(), r.mints[mint.Name], amount, r.rent)
			if err != nil {
				return err
			}
			accts = append(accts, ata)

			supplies[mint.Name], err = safemath.CheckedAddU64(supplies[mint.Name], amount)
			if err != nil {
				return fmt.Errorf("mint %s supply: %w", mint.Name, err)
			}
		}
	}

	for _, pool := range r.scenario.Pools {
		holders := lo.Map(sortedHolders(pool.Liquidity), func(name string, _ int) amm.LiquidityHolder {
			return amm.LiquidityHolder{Owner: r.actors[name].PublicKey(), Amount: pool.Liquidity[name]}
		})
		poolAccts, err := amm.NewPoolAccounts(amm.PoolGenesis{
			Amm:      AmmKey(pool.Name),
			MintA:    r.mints[pool.MintA],
			MintB:    r.mints[pool.MintB],
			ReserveA: pool.ReserveA,
			ReserveB: pool.ReserveB,
			Holders:  holders,
		}, r.rent)
		if err != nil {
			return fmt.Errorf("pool %s: %w", pool.Name, err)
		}
		accts = append(accts, poolAccts...)

		supplies[pool.MintA], err = safemath.CheckedAddU64(supplies[pool.MintA], pool.ReserveA)
		if err != nil {
			return fmt.Errorf("mint %s supply: %w", pool.MintA, err)
		}
		supplies[pool.MintB], err = safemath.CheckedAddU64(supplies[pool.MintB], pool.ReserveB)
		if err != nil {
			return fmt.Errorf("mint %s supply: %w", pool.MintB, err)
		}
	}

	for _, mint := range r.scenario.Mints {
		var authority *solana.PublicKey
		if mint.Authority != "" {
			key := r.actors[mint.Authority].PublicKey()
			authority = &key
		}
		accts = append(accts, sealevel.NewMintAccount(r.mints[mint.Name], authority, supplies[mint.Name], mint.Decimals, r.rent))
	}

	ptrs := make([]*accounts.Account, len(accts))
	for idx := range accts {
		ptrs[idx] = &accts[idx]
	}
	klog.Infof("scenario %s: writing %d genesis accounts", r.scenario.Name, len(ptrs))
	return r.slotCtx.Accounts.StoreAccounts(ptrs)
}

func (r *Runner) instruction(step *Step) (solana.Instruction, error) {
	switch step.Op {
	case OpInitialize:
		return stakevault.NewInitializeInstruction(r.actors[step.Actor].PublicKey(), r.mints[step.Mint])
	case OpStake:
		return stakevault.NewStakeInstruction(r.actors[step.Actor].PublicKey(), r.mints[step.Mint], step.Amount)
	case OpUnstake:
		return stakevault.NewUnstakeInstruction(r.actors[step.Actor].PublicKey(), r.mints[step.Mint], step.Amount)
	case OpWithdrawLiquidity:
		pool := r.scenario.pool(step.Pool)
		return amm.NewWithdrawLiquidityInstruction(r.actors[step.Actor].PublicKey(), AmmKey(pool.Name), r.mints[pool.MintA], r.mints[pool.MintB], step.Amount)
	case OpFundRewards:
		rewardVault, _, err := stakevault.FindRewardVault(r.mints[step.Mint])
		if err != nil {
			return nil, err
		}
		ix := sealevel.NewTokenMintToInstruction(r.mints[step.Mint], rewardVault, r.signer(step).PublicKey(), step.Amount)
		return ix.ToSolana(), nil
	default:
		return nil, fmt.Errorf("op %s has no instruction", step.Op)
	}
}

func (s *Scenario) pool(name string) *Pool {
	pool, _ := lo.Find(s.Pools, func(p Pool) bool { return p.Name == name })
	return &pool
}

func (s *Scenario) mint(name string) *Mint {
	mint, _ := lo.Find(s.Mints, func(m Mint) bool { return m.Name == name })
	return &mint
}

// signer is the actor a step's transaction is signed and paid by. A
// fund_rewards step without an actor is signed by the mint authority.
func (r *Runner) signer(step *Step) solana.PrivateKey {
	if step.Op == OpFundRewards && step.Actor == "" {
		return r.actors[r.scenario.mint(step.Mint).Authority]
	}
	return r.actors[step.Actor]
}

func (r *Runner) blockhash(idx int) [32]byte {
	return sha256.Sum256([]byte(fmt.Sprintf("%s/%d", r.scenario.Name, idx)))
}

func (expect Expect) check(err error) error {
	switch {
	case expect.Error == "" && err != nil:
		return fmt.Errorf("%w: unexpected error: %w", ErrExpectationFailed, err)
	case expect.Error != "" && err == nil:
		return fmt.Errorf("%w: expected error containing %q, step succeeded", ErrExpectationFailed, expect.Error)
	case expect.Error != "" && !strings.Contains(err.Error(), expect.Error):
		return fmt.Errorf("%w: expected error containing %q, got %w", ErrExpectationFailed, expect.Error, err)
	}
	return nil
}

func (r *Runner) runStep(idx int, step *Step) (*StepResult, error) {
	r.slot = step.slotAfter(r.slot)
	result := &StepResult{Index: idx, Step: *step, Slot: r.slot}

	ix, err := r.instruction(step)
	if err != nil {
		return nil, err
	}
	blockhash := r.blockhash(idx)
	tx, err := replay.NewSignedTransaction([]solana.Instruction{ix}, solana.Hash(blockhash), r.signer(step))
	if err != nil {
		return nil, err
	}

	block := &replay.Block{
		Slot:           r.slot,
		Leader:         r.leader,
		ParentBankHash: r.parentBankHash,
		Blockhash:      blockhash,
		Transactions:   []*solana.Transaction{tx},
	}
	blockResult, err := replay.ProcessBlock(r.slotCtx, block)
	if err != nil {
		return nil, fmt.Errorf("slot %d: %w", r.slot, err)
	}
	r.parentBankHash = blockResult.BankHash

	result.Tx = blockResult.Transactions[0]
	result.BankHash = blockResult.BankHash
	result.Mismatch = step.Expect.check(result.Tx.Err)
	return result, nil
}

// Run executes every step in order. A step whose outcome differs from its
// expectation does not stop the run; the mismatches are joined into the
// returned error. Any other error aborts the run.
func (r *Runner) Run(ctx context.Context) ([]*StepResult, error) {
	var results []*StepResult
	var mismatches []error

	for idx := range r.scenario.Steps {
		err := ctx.Err()
		if err != nil {
			return results, err
		}

		step := &r.scenario.Steps[idx]
		result, err := r.runStep(idx, step)
		if err != nil {
			return results, fmt.Errorf("step %d (%s): %w", idx, step.Op, err)
		}
		results = append(results, result)

		if result.Mismatch != nil {
			klog.Warningf("step %d (%s %s): %s", idx, step.Op, step.Actor, result.Mismatch)
			mismatches = append(mismatches, fmt.Errorf("step %d (%s): %w", idx, step.Op, result.Mismatch))
		} else {
			klog.V(2).Infof("step %d (%s %s) ok at slot %d", idx, step.Op, step.Actor, result.Slot)
		}
	}

	return results, errors.Join(mismatches...)
}
