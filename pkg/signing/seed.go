package signing

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// DerivePrivateKey derives the private key at index from a 64-hex-char
// wallet seed: blake2b-256 over the seed bytes followed by the index as
// a big-endian uint32. Matches the derivation used by the reference node
// wallet, so seeds are portable.
func DerivePrivateKey(seed string, index uint32) (string, error) {
	raw, err := hex.DecodeString(seed)
	if err != nil || len(raw) != 32 {
		return "", fmt.Errorf("seed must be 64 hex characters")
	}
	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	h.Write(raw)
	var indexBytes [4]byte
	binary.BigEndian.PutUint32(indexBytes[:], index)
	h.Write(indexBytes[:])
	return strings.ToUpper(hex.EncodeToString(h.Sum(nil))), nil
}
