package sealevel

import (
	"github.com/gagliardetto/solana-go"
	"github.com/solbootcamp/vaultkit/pkg/accounts"
)

// Helpers for seeding account state outside of a transaction, as genesis and
// tests do.

func NewNativeProgramAccount(programId solana.PublicKey) accounts.Account {
	return accounts.Account{Key: programId, Lamports: 1, Owner: NativeLoaderAddr, Executable: true}
}

func NewSystemAccount(key solana.PublicKey, lamports uint64) accounts.Account {
	return accounts.Account{Key: key, Lamports: lamports, Owner: SystemProgramAddr}
}

func NewMintAccount(key solana.PublicKey, mintAuthority *solana.PublicKey, supply uint64, decimals byte, rent SysvarRent) accounts.Account {
	mint := TokenMint{MintAuthority: mintAuthority, Supply: supply, Decimals: decimals, IsInitialized: true}
	return accounts.Account{Key: key, Lamports: rent.MinimumBalance(TokenMintLen), Data: mint.Marshal(), Owner: TokenProgramAddr}
}

func NewTokenAccount(key solana.PublicKey, mint solana.PublicKey, owner solana.PublicKey, amount uint64, rent SysvarRent) accounts.Account {
	tokenAcct := TokenAccount{Mint: mint, Owner: owner, Amount: amount, State: TokenAccountStateInitialized}
	return accounts.Account{Key: key, Lamports: rent.MinimumBalance(TokenAccountLen), Data: tokenAcct.Marshal(), Owner: TokenProgramAddr}
}

// NewAssociatedTokenAccount seeds the canonical token account of (wallet, mint).
func NewAssociatedTokenAccount(wallet solana.PublicKey, mint solana.PublicKey, amount uint64, rent SysvarRent) (accounts.Account, error) {
	ata, _, err := FindAssociatedTokenAddress(wallet, mint)
	if err != nil {
		return accounts.Account{}, err
	}
	return NewTokenAccount(ata, mint, wallet, amount, rent), nil
}

// WriteGenesisSysvars stores the clock at slot zero and the given rent.
func WriteGenesisSysvars(accts accounts.Accounts, rent SysvarRent) error {
	err := WriteRentSysvar(accts, rent)
	if err != nil {
		return err
	}
	return WriteClockSysvar(accts, SysvarClock{LeaderScheduleEpoch: 1})
}

// TokenBalance reads the amount held by a token account in accts.
func TokenBalance(accts accounts.Accounts, key solana.PublicKey) (uint64, error) {
	acct, err := accts.GetAccount((*[32]byte)(&key))
	if err != nil {
		return 0, err
	}
	if acct == nil {
		return 0, nil
	}
	tokenAcct, err := UnmarshalTokenAccount(acct.Data)
	if err != nil {
		return 0, err
	}
	return tokenAcct.Amount, nil
}

// TokenSupply reads the supply of a mint in accts.
func TokenSupply(accts accounts.Accounts, key solana.PublicKey) (uint64, error) {
	acct, err := accts.GetAccount((*[32]byte)(&key))
	if err != nil {
		return 0, err
	}
	if acct == nil {
		return 0, InstrErrUninitializedAccount
	}
	mint, err := UnmarshalTokenMint(acct.Data)
	if err != nil {
		return 0, err
	}
	return mint.Supply, nil
}
