package stakevault

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/solbootcamp/vaultkit/pkg/accounts"
	"github.com/solbootcamp/vaultkit/pkg/replay"
	"github.com/solbootcamp/vaultkit/pkg/sealevel"
	"github.com/stretchr/testify/require"
)

const solLamports = 1_000_000_000

type vaultEnv struct {
	t       *testing.T
	slotCtx *replay.SlotCtx
	rent    sealevel.SysvarRent
	admin   solana.PrivateKey
	mint    solana.PublicKey
	slot    uint64
}

func newVaultEnv(t *testing.T) *vaultEnv {
	store := accounts.NewMemAccounts()
	rent := sealevel.DefaultRent()
	require.NoError(t, sealevel.WriteGenesisSysvars(store, rent))

	env := &vaultEnv{
		t:       t,
		slotCtx: replay.NewSlotCtx(store, 0),
		rent:    rent,
		admin:   replay.KeypairFromName("admin"),
		mint:    replay.KeypairFromName("mint").PublicKey(),
	}
	authority := env.admin.PublicKey()
	env.store(sealevel.NewMintAccount(env.mint, &authority, 1_000_000_000, 6, rent))
	env.store(sealevel.NewSystemAccount(env.admin.PublicKey(), 10*solLamports))
	return env
}

func (env *vaultEnv) store(accts ...accounts.Account) {
	ptrs := make([]*accounts.Account, len(accts))
	for idx := range accts {
		ptrs[idx] = &accts[idx]
	}
	require.NoError(env.t, env.slotCtx.Accounts.StoreAccounts(ptrs))
}

func (env *vaultEnv) account(key solana.PublicKey) *accounts.Account {
	acct, err := env.slotCtx.GetAccount(key)
	require.NoError(env.t, err)
	return acct
}

// newStaker creates a funded wallet holding tokens in its associated token
// account.
func (env *vaultEnv) newStaker(name string, tokens uint64) solana.PrivateKey {
	staker := replay.KeypairFromName(name)
	ata, err := sealevel.NewAssociatedTokenAccount(staker.PublicKey(), env.mint, tokens, env.rent)
	require.NoError(env.t, err)
	env.store(sealevel.NewSystemAccount(staker.PublicKey(), 10*solLamports), ata)
	return staker
}

// fundRewardVault seeds the reward vault with amount tokens. Tests call it
// right after initialize, while the vault is still empty.
func (env *vaultEnv) fundRewardVault(amount uint64) {
	rewardVault, _, err := FindRewardVault(env.mint)
	require.NoError(env.t, err)
	env.store(sealevel.NewTokenAccount(rewardVault, env.mint, rewardVault, amount, env.rent))
}

func (env *vaultEnv) mustIx(ix solana.Instruction, err error) solana.Instruction {
	require.NoError(env.t, err)
	return ix
}

// run executes ix signed by signer in a block at slot.
func (env *vaultEnv) run(slot uint64, signer solana.PrivateKey, ix solana.Instruction) *replay.TransactionResult {
	tx, err := replay.NewSignedTransaction([]solana.Instruction{ix}, solana.Hash{byte(slot)}, signer)
	require.NoError(env.t, err)

	result, err := replay.ProcessBlock(env.slotCtx, &replay.Block{Slot: slot, Transactions: []*solana.Transaction{tx}})
	require.NoError(env.t, err)
	env.slot = slot
	return result.Transactions[0]
}

func (env *vaultEnv) initialize() {
	result := env.run(0, env.admin, env.mustIx(NewInitializeInstruction(env.admin.PublicKey(), env.mint)))
	require.NoError(env.t, result.Err)
}

func (env *vaultEnv) stake(slot uint64, staker solana.PrivateKey, amount uint64) *replay.TransactionResult {
	return env.run(slot, staker, env.mustIx(NewStakeInstruction(staker.PublicKey(), env.mint, amount)))
}

func (env *vaultEnv) unstake(slot uint64, staker solana.PrivateKey, amount uint64) *replay.TransactionResult {
	return env.run(slot, staker, env.mustIx(NewUnstakeInstruction(staker.PublicKey(), env.mint, amount)))
}

func (env *vaultEnv) tokenBalance(key solana.PublicKey) uint64 {
	balance, err := sealevel.TokenBalance(env.slotCtx.Accounts, key)
	require.NoError(env.t, err)
	return balance
}

func (env *vaultEnv) stakerBalance(staker solana.PrivateKey) uint64 {
	ata, _, err := sealevel.FindAssociatedTokenAddress(staker.PublicKey(), env.mint)
	require.NoError(env.t, err)
	return env.tokenBalance(ata)
}

func (env *vaultEnv) vaultBalance(staker solana.PrivateKey) uint64 {
	vault, err := FindStakeVault(staker.PublicKey(), env.mint)
	require.NoError(env.t, err)
	return env.tokenBalance(vault)
}

func (env *vaultEnv) rewardBalance() uint64 {
	rewardVault, _, err := FindRewardVault(env.mint)
	require.NoError(env.t, err)
	return env.tokenBalance(rewardVault)
}

// stakeInfo returns the staker's record, or nil once it is closed.
func (env *vaultEnv) stakeInfo(staker solana.PrivateKey) *StakeInfo {
	key, _, err := FindStakeInfo(staker.PublicKey(), env.mint)
	require.NoError(env.t, err)
	acct := env.account(key)
	if acct == nil {
		return nil
	}
	require.Equal(env.t, ProgramID, acct.Owner)
	info, err := UnmarshalStakeInfo(acct.Data)
	require.NoError(env.t, err)
	return info
}

// withAccount returns ix with the account at idx replaced by key, keeping its
// privileges.
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
