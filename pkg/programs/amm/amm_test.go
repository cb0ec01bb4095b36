package amm

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/solbootcamp/vaultkit/pkg/accounts"
	"github.com/solbootcamp/vaultkit/pkg/replay"
	"github.com/solbootcamp/vaultkit/pkg/sealevel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type poolEnv struct {
	t         *testing.T
	slotCtx   *replay.SlotCtx
	rent      sealevel.SysvarRent
	amm       solana.PublicKey
	mintA     solana.PublicKey
	mintB     solana.PublicKey
	depositor solana.PrivateKey
	addrs     *PoolAddresses
	slot      uint64
}

// newPoolEnv seeds a pool holding reserveA/reserveB with depositorLP of
// its LP supply held by the depositor and otherLP by someone else.
func newPoolEnv(t *testing.T, reserveA uint64, reserveB uint64, depositorLP uint64, otherLP uint64) *poolEnv {
	store := accounts.NewMemAccounts()
	rent := sealevel.DefaultRent()
	require.NoError(t, sealevel.WriteGenesisSysvars(store, rent))

	env := &poolEnv{
		t:         t,
		slotCtx:   replay.NewSlotCtx(store, 0),
		rent:      rent,
		amm:       replay.KeypairFromName("amm").PublicKey(),
		mintA:     replay.KeypairFromName("mint-a").PublicKey(),
		mintB:     replay.KeypairFromName("mint-b").PublicKey(),
		depositor: replay.KeypairFromName("depositor"),
	}

	var err error
	env.addrs, err = FindPoolAddresses(env.amm, env.mintA, env.mintB)
	require.NoError(t, err)

	poolAccts, err := NewPoolAccounts(PoolGenesis{
		Amm:      env.amm,
		MintA:    env.mintA,
		MintB:    env.mintB,
		ReserveA: reserveA,
		ReserveB: reserveB,
		Holders: []LiquidityHolder{
			{Owner: env.depositor.PublicKey(), Amount: depositorLP},
			{Owner: replay.KeypairFromName("other-lp").PublicKey(), Amount: otherLP},
		},
	}, rent)
	require.NoError(t, err)

	depositorA, err := sealevel.NewAssociatedTokenAccount(env.depositor.PublicKey(), env.mintA, 0, rent)
	require.NoError(t, err)
	depositorB, err := sealevel.NewAssociatedTokenAccount(env.depositor.PublicKey(), env.mintB, 0, rent)
	require.NoError(t, err)

	env.store(poolAccts...)
	env.store(
		sealevel.NewMintAccount(env.mintA, nil, reserveA, 6, rent),
		sealevel.NewMintAccount(env.mintB, nil, reserveB, 6, rent),
		sealevel.NewSystemAccount(env.depositor.PublicKey(), 10_000_000_000),
		depositorA,
		depositorB,
	)
	return env
}

func (env *poolEnv) store(accts ...accounts.Account) {
	ptrs := make([]*accounts.Account, len(accts))
	for idx := range accts {
		ptrs[idx] = &accts[idx]
	}
	require.NoError(env.t, env.slotCtx.Accounts.StoreAccounts(ptrs))
}

func (env *poolEnv) withdrawIx(amount uint64) solana.Instruction {
	ix, err := NewWithdrawLiquidityInstruction(env.depositor.PublicKey(), env.amm, env.mintA, env.mintB, amount)
	require.NoError(env.t, err)
	return ix
}

func (env *poolEnv) run(ix solana.Instruction) *replay.TransactionResult {
	env.slot++
	tx, err := replay.NewSignedTransaction([]solana.Instruction{ix}, solana.Hash{byte(env.slot)}, env.depositor)
	require.NoError(env.t, err)

	result, err := replay.ProcessBlock(env.slotCtx, &replay.Block{Slot: env.slot, Transactions: []*solana.Transaction{tx}})
	require.NoError(env.t, err)
	return result.Transactions[0]
}

func (env *poolEnv) balance(key solana.PublicKey) uint64 {
	balance, err := sealevel.TokenBalance(env.slotCtx.Accounts, key)
	require.NoError(env.t, err)
	return balance
}

func (env *poolEnv) depositorBalance(mint solana.PublicKey) uint64 {
	ata, _, err := sealevel.FindAssociatedTokenAddress(env.depositor.PublicKey(), mint)
	require.NoError(env.t, err)
	return env.balance(ata)
}

func (env *poolEnv) supply() uint64 {
	supply, err := sealevel.TokenSupply(env.slotCtx.Accounts, env.addrs.LiquidityMint)
	require.NoError(env.t, err)
	return supply
}

type poolState struct {
	reserveA, reserveB, supply     uint64
	depositorA, depositorB, lpHeld uint64
}

func (env *poolEnv) state() poolState {
	return poolState{
		reserveA:   env.balance(env.addrs.ReserveA),
		reserveB:   env.balance(env.addrs.ReserveB),
		supply:     env.supply(),
		depositorA: env.depositorBalance(env.mintA),
		depositorB: env.depositorBalance(env.mintB),
		lpHeld:     env.depositorBalance(env.addrs.LiquidityMint),
	}
}

func withAccount(t *testing.T, ix solana.Instruction, idx int, key solana.PublicKey) solana.Instruction {
	data, err := ix.Data()
	require.NoError(t, err)

	metas := make(solana.AccountMetaSlice, len(ix.Accounts()))
	for i, meta := range ix.Accounts() {
		clone := *meta
		metas[i] = &clone
	}
	metas[idx].PublicKey = key
	return solana.NewInstruction(ix.ProgramID(), metas, data)
}

func TestWithdrawLiquidity(t *testing.T) {
	env := newPoolEnv(t, 1_000_000, 4_000_000, 500_000, 1_500_000)
	require.Equal(t, uint64(2_000_000), env.supply())

	result := env.run(env.withdrawIx(500_000))
	require.NoError(t, result.Err)
	assert.Contains(t, result.Logs, "Program log: Withdrawing 500000 liquidity => 250000 / 1000000")

	assert.Equal(t, poolState{
		reserveA:   750_000,
		reserveB:   3_000_000,
		supply:     1_500_000,
		depositorA: 250_000,
		depositorB: 1_000_000,
		lpHeld:     0,
	}, env.state())
}

func TestWithdrawLiquidity_EmptyPool(t *testing.T) {
	env := newPoolEnv(t, 1_000, 1_000, 0, 0)
	before := env.state()

	result := env.run(env.withdrawIx(1))
	assert.ErrorIs(t, result.Err, sealevel.InstrErrInvalidArgument)
	assert.Equal(t, before, env.state())
}

func TestWithdrawLiquidity_ZeroAmount(t *testing.T) {
	env := newPoolEnv(t, 1_000, 1_000, 10, 10)
	before := env.state()

	result := env.run(env.withdrawIx(0))
	assert.ErrorIs(t, result.Err, sealevel.InstrErrInvalidArgument)
	assert.Equal(t, before, env.state())
}

func TestWithdrawLiquidity_MoreThanHeldRollsBack(t *testing.T) {
	env := newPoolEnv(t, 1_000_000, 1_000_000, 100, 900)
	before := env.state()

	// the reserve transfers succeed before the burn fails
	result := env.run(env.withdrawIx(200))
	assert.ErrorIs(t, result.Err, sealevel.TokenErrInsufficientFunds)
	assert.Equal(t, before, env.state())
}

func TestWithdrawLiquidity_RoundsDown(t *testing.T) {
	env := newPoolEnv(t, 10, 7, 1, 2)

	result := env.run(env.withdrawIx(1))
	require.NoError(t, result.Err)

	state := env.state()
	assert.Equal(t, uint64(3), state.depositorA)
	assert.Equal(t, uint64(2), state.depositorB)
	assert.Equal(t, uint64(7), state.reserveA)
	assert.Equal(t, uint64(5), state.reserveB)
	assert.Equal(t, uint64(2), state.supply)
}

func TestWithdrawLiquidity_ProportionalShare(t *testing.T) {
	env := newPoolEnv(t, 987_654_321, 123_456_789, 3_000_000, 7_777_777)

	for _, amount := range []uint64{1, 999, 250_000, 1_000_001, 1_748_999} {
		before := env.state()

		result := env.run(env.withdrawIx(amount))
		require.NoError(t, result.Err)
		after := env.state()

		outA := after.depositorA - before.depositorA
		outB := after.depositorB - before.depositorB
		assert.Equal(t, before.reserveA-amount*before.reserveA/before.supply, after.reserveA)
		assert.Equal(t, before.reserveB-amount*before.reserveB/before.supply, after.reserveB)
		assert.Equal(t, before.supply-amount, after.supply)
		assert.Equal(t, before.lpHeld-amount, after.lpHeld)

		assert.LessOrEqual(t, outA*before.supply, amount*before.reserveA)
		assert.LessOrEqual(t, outB*before.supply, amount*before.reserveB)
	}
}

func TestWithdrawLiquidity_HasOneMints(t *testing.T) {
	env := newPoolEnv(t, 1_000, 1_000, 10, 10)
	otherMint := replay.KeypairFromName("mint-c").PublicKey()
	env.store(sealevel.NewMintAccount(otherMint, nil, 0, 6, env.rent))
	before := env.state()

	result := env.run(withAccount(t, env.withdrawIx(5), withdrawMintB, otherMint))
	assert.ErrorIs(t, result.Err, sealevel.ErrConstraintHasOne)
	assert.Equal(t, before, env.state())
}

func TestWithdrawLiquidity_SeedBinding(t *testing.T) {
	env := newPoolEnv(t, 1_000, 1_000, 10, 10)
	before := env.state()

	depositorA, _, err := sealevel.FindAssociatedTokenAddress(env.depositor.PublicKey(), env.mintA)
	require.NoError(t, err)
	otherAuthority, _, err := FindPoolAuthority(replay.KeypairFromName("other-amm").PublicKey(), env.mintA, env.mintB)
	require.NoError(t, err)
	otherLiquidityMint, _, err := FindLiquidityMint(replay.KeypairFromName("other-amm").PublicKey(), env.mintA, env.mintB)
	require.NoError(t, err)

	tests := []struct {
		name string
		idx  int
		key  solana.PublicKey
		err  error
	}{
		{name: "foreign authority", idx: withdrawPoolAuthority, key: otherAuthority, err: sealevel.ErrConstraintSeeds},
		{name: "foreign liquidity mint", idx: withdrawLiquidityMint, key: otherLiquidityMint, err: sealevel.ErrConstraintSeeds},
		{name: "reserve not held by authority", idx: withdrawReserveA, key: depositorA, err: sealevel.ErrConstraintTokenOwner},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := env.run(withAccount(t, env.withdrawIx(5), tc.idx, tc.key))
			assert.ErrorIs(t, result.Err, tc.err)
			assert.Equal(t, before, env.state())
		})
	}
}

func TestNewPoolAccounts_SameMint(t *testing.T) {
	mint := replay.KeypairFromName("mint-a").PublicKey()
	_, err := NewPoolAccounts(PoolGenesis{Amm: mint, MintA: mint, MintB: mint}, sealevel.DefaultRent())
	assert.ErrorIs(t, err, sealevel.InstrErrInvalidArgument)
}
