package util

import (
	"crypto/sha256"
	"encoding/binary"
	"slices"
	"sort"

	"github.com/gagliardetto/solana-go"
	"github.com/solbootcamp/vaultkit/pkg/accounts"
	"github.com/zeebo/blake3"
)

func PubkeyCmp(a solana.PublicKey, b solana.PublicKey) bool {
	for i := uint64(0); i < 4; i++ {
		a1 := binary.BigEndian.Uint64(a[8*i:])
		b1 := binary.BigEndian.Uint64(b[8*i:])
		if a1 != b1 {
			return a1 < b1
		}
	}
	return false
}

// DedupePubkeys sorts pubkeys in place and returns them without duplicates.
func DedupePubkeys(pubkeys []solana.PublicKey) []solana.PublicKey {
	sort.SliceStable(pubkeys, func(i, j int) bool {
		return PubkeyCmp(pubkeys[i], pubkeys[j])
	})

	return slices.Compact(pubkeys)
}

func CalculateAcctHash(acct accounts.Account) []byte {
	// closed accounts hash to zeroes
	if acct.Lamports == 0 {
		return make([]byte, 32)
	}

	hasher := blake3.New()

	var lamportBytes [8]byte
	binary.LittleEndian.PutUint64(lamportBytes[:], acct.Lamports)
	_, _ = hasher.Write(lamportBytes[:])

	var rentEpochBytes [8]byte
	binary.LittleEndian.PutUint64(rentEpochBytes[:], acct.RentEpoch)
	_, _ = hasher.Write(rentEpochBytes[:])

	_, _ = hasher.Write(acct.Data)

	if acct.Executable {
		_, _ = hasher.Write([]byte{1})
	} else {
		_, _ = hasher.Write([]byte{0})
	}

	_, _ = hasher.Write(acct.Owner[:])
	_, _ = hasher.Write(acct.Key[:])

	return hasher.Sum(nil)
}

const merkleFanout = 16

func divCeil(x uint64, y uint64) uint64 {
	result := x / y
	if (x % y) != 0 {
		result++
	}
	return result
}

func computeMerkleRoot(hashes [][]byte) []byte {
	if len(hashes) == 0 {
		return nil
	}

	total := uint64(len(hashes))
	chunks := divCeil(total, merkleFanout)
	results := make([][]byte, chunks)

	for i := uint64(0); i < chunks; i++ {
		startIdx := i * merkleFanout
		endIdx := min(startIdx+merkleFanout, total)

		hasher := sha256.New()
		for _, h := range hashes[startIdx:endIdx] {
			hasher.Write(h)
		}
		results[i] = hasher.Sum(nil)
	}

	if len(results) == 1 {
		return results[0]
	}
	return computeMerkleRoot(results)
}

// CalculateDeltaHash is the merkle root (fanout 16) of the hashes of accts
// ordered by key. The order of accts does not matter. No accounts hash to
// zeroes.
func CalculateDeltaHash(accts []*accounts.Account) [32]byte {
	sorted := make([]*accounts.Account, len(accts))
	copy(sorted, accts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return PubkeyCmp(sorted[i].Key, sorted[j].Key)
	})

	hashes := make([][]byte, len(sorted))
	for idx, acct := range sorted {
		hashes[idx] = CalculateAcctHash(*acct)
	}

	var out [32]byte
	copy(out[:], computeMerkleRoot(hashes))
	return out
}
