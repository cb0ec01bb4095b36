package replay

import (
	"crypto/sha256"
	"encoding/binary"
)

// calculateBankHash chains a slot onto its parent:
// sha256(parent ‖ accounts delta ‖ signature count ‖ blockhash).
func calculateBankHash(acctsDeltaHash []byte, parentBankHash [32]byte, numSigs uint64, blockHash [32]byte) []byte {
	hasher := sha256.New()
	hasher.Write(parentBankHash[:])
	hasher.Write(acctsDeltaHash[:])

	var numSigsBytes [8]byte
	binary.LittleEndian.PutUint64(numSigsBytes[:], numSigs)

	hasher.Write(numSigsBytes[:])
	hasher.Write(blockHash[:])

	return hasher.Sum(nil)
}
