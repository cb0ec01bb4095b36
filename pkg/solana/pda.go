package solana

import (
	"crypto/sha256"
	"errors"

	"filippo.io/edwards25519"
	solanago "github.com/gagliardetto/solana-go"
)

const MaxSeeds = 16
const MaxSeedLen = 32
const PublicKeyLength = 32
const PdaMarker = "ProgramDerivedAddress"

var (
	ErrSeedLength          = errors.New("Max seeds (16) exceeded")
	ErrAddressLength       = errors.New("Wrong key length; addresses are 32 bytes long")
	ErrOnCurveInvalidSeeds = errors.New("Invalid seeds - generated address must be off-curve")
	ErrNoViableBumpSeed    = errors.New("Unable to find a viable program address bump seed")
)

func CreateProgramAddressBytes(seeds [][]byte, programID []byte) ([]byte, error) {
	if len(seeds) > MaxSeeds {
		return nil, ErrSeedLength
	}

	if len(programID) != PublicKeyLength {
		return nil, ErrAddressLength
	}

	hasher := sha256.New()
	for _, seed := range seeds {
		if len(seed) > MaxSeedLen {
			return nil, ErrSeedLength
		}
		hasher.Write(seed)
	}

	hasher.Write(programID)
	hasher.Write([]byte(PdaMarker))
	hash := hasher.Sum(nil)

	if IsOnCurve(hash) {
		return nil, ErrOnCurveInvalidSeeds
	}

	return hash, nil
}

func CreateProgramAddress(seeds [][]byte, programID solanago.PublicKey) (solanago.PublicKey, error) {
	addr, err := CreateProgramAddressBytes(seeds, programID[:])
	if err != nil {
		return solanago.PublicKey{}, err
	}
	return solanago.PublicKeyFromBytes(addr), nil
}

// FindProgramAddress returns the canonical derived address for seeds: the one
// produced by the highest bump in [255, 1] that lands off the curve.
func FindProgramAddress(seeds [][]byte, programID solanago.PublicKey) (solanago.PublicKey, uint8, error) {
	if len(seeds) >= MaxSeeds {
		return solanago.PublicKey{}, 0, ErrSeedLength
	}

	for bump := uint8(255); bump > 0; bump-- {
		addr, err := CreateProgramAddress(SeedsWithBump(seeds, bump), programID)
		if err == nil {
			return addr, bump, nil
		}
		if err != ErrOnCurveInvalidSeeds {
			return solanago.PublicKey{}, 0, err
		}
	}

	return solanago.PublicKey{}, 0, ErrNoViableBumpSeed
}

// SeedsWithBump copies seeds and appends the single-byte bump.
func SeedsWithBump(seeds [][]byte, bump uint8) [][]byte {
	out := make([][]byte, 0, len(seeds)+1)
	for _, seed := range seeds {
		s := make([]byte, len(seed))
		copy(s, seed)
		out = append(out, s)
	}
	return append(out, []byte{bump})
}

// IsOnCurve checks if 'b' is on the ed25519 curve
func IsOnCurve(b []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(b)
	onCurve := err == nil
	return onCurve
}
