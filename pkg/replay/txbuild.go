package replay

import (
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// KeypairFromName derives a deterministic keypair from name. Scenario actors
// and tests use it so that addresses are stable between runs.
func KeypairFromName(name string) solana.PrivateKey {
	seed := sha256.Sum256([]byte(name))
	return solana.PrivateKey(ed25519.NewKeyFromSeed(seed[:]))
}

// NewSignedTransaction builds a legacy transaction paid by payer and signs it
// with payer and signers.
func NewSignedTransaction(instrs []solana.Instruction, blockhash solana.Hash, payer solana.PrivateKey, signers ...solana.PrivateKey) (*solana.Transaction, error) {
	tx, err := solana.NewTransaction(instrs, blockhash, solana.TransactionPayer(payer.PublicKey()))
	if err != nil {
		return nil, err
	}

	keys := append([]solana.PrivateKey{payer}, signers...)
	_, err = tx.Sign(func(pubkey solana.PublicKey) *solana.PrivateKey {
		for idx := range keys {
			if keys[idx].PublicKey() == pubkey {
				return &keys[idx]
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}
	return tx, nil
}
