package core

import (
	"encoding/hex"
	"math/big"
	"strings"
)

// BlockHash is a 32-byte block identifier, rendered as 64 uppercase hex
// characters on the wire.
type BlockHash [32]byte

// ZeroHash marks the previous field of an account's first block and the
// link field of a change block.
var ZeroHash = BlockHash{}

func ParseBlockHash(s string) (BlockHash, error) {
	var h BlockHash
	raw, err := hex.DecodeString(s)
	if err != nil {
		return h, NewError(KindBlockNotFound, "invalid block hash %q: %v", s, err)
	}
	if len(raw) != 32 {
		return h, NewError(KindBlockNotFound, "invalid block hash length: %q", s)
	}
	copy(h[:], raw)
	return h, nil
}

func MustParseBlockHash(s string) BlockHash {
	h, err := ParseBlockHash(s)
	if err != nil {
		panic(err)
	}
	return h
}

func (h BlockHash) Hex() string {
	return strings.ToUpper(hex.EncodeToString(h[:]))
}

func (h BlockHash) String() string {
	return h.Hex()
}

func (h BlockHash) IsZero() bool {
	return h == ZeroHash
}

func (h BlockHash) MarshalText() ([]byte, error) {
	return []byte(h.Hex()), nil
}

func (h *BlockHash) UnmarshalText(data []byte) error {
	parsed, err := ParseBlockHash(string(data))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// BlockSubtype labels the intent of a state block for the node's
// subtype-checked process call.
type BlockSubtype string

const (
	SubtypeSend    BlockSubtype = "send"
	SubtypeReceive BlockSubtype = "receive"
)

// BlockTemplate holds the unsigned fields of a candidate state block.
// Balance is the account balance AFTER the operation. For sends, Link is
// the destination public key; for receives, the hash of the block being
// claimed.
type BlockTemplate struct {
	Account        Address
	Previous       BlockHash
	Representative Address
	Balance        *big.Int
	Link           string
	Subtype        BlockSubtype
}

// SignedBlock is a fully prepared state block: template fields plus the
// signature and attached proof of work, ready for submission. Hash is the
// block's own hash as computed by the signer.
type SignedBlock struct {
	Hash           BlockHash
	Account        Address
	Previous       BlockHash
	Representative Address
	Balance        *big.Int
	Link           string
	Signature      string
	Work           string
	Subtype        BlockSubtype
}
