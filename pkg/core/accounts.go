package core

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Address is a Nano account: the 32-byte ed25519 public key behind the
// textual nano_... representation.
type Address [32]byte

const (
	addressPrefix       = "nano_"
	legacyAddressPrefix = "xrb_"
	encodedKeyLen       = 52
	encodedChecksumLen  = 8
)

// Base32 alphabet used by the account encoding. Not RFC 4648: the
// characters 0, 2, l and v are excluded.
const addressAlphabet = "13456789abcdefghijkmnopqrstuwxyz"

var addressAlphabetRev = func() [256]int8 {
	var rev [256]int8
	for i := range rev {
		rev[i] = -1
	}
	for i := 0; i < len(addressAlphabet); i++ {
		rev[addressAlphabet[i]] = int8(i)
	}
	return rev
}()

// ParseAddress decodes and validates a nano_ (or legacy xrb_) account
// identifier, verifying length, alphabet and the blake2b-40 checksum.
func ParseAddress(s string) (Address, error) {
	var a Address
	body := ""
	switch {
	case strings.HasPrefix(s, addressPrefix):
		body = s[len(addressPrefix):]
	case strings.HasPrefix(s, legacyAddressPrefix):
		body = s[len(legacyAddressPrefix):]
	default:
		return a, NewError(KindInvalidAccount, "invalid account prefix: %q", s)
	}
	if len(body) != encodedKeyLen+encodedChecksumLen {
		return a, NewError(KindInvalidAccount, "invalid account length: %q", s)
	}
	keyPart, sumPart := body[:encodedKeyLen], body[encodedKeyLen:]

	// The first character encodes the 4 padding bits on top of the
	// 256-bit key, so it can only be 1 or 3.
	if keyPart[0] != '1' && keyPart[0] != '3' {
		return a, NewError(KindInvalidAccount, "invalid account encoding: %q", s)
	}
	key, err := decodeAddressBase32(keyPart)
	if err != nil {
		return a, NewError(KindInvalidAccount, "invalid account %q: %v", s, err)
	}
	keyBytes := key.Bytes()
	if len(keyBytes) > 32 {
		return a, NewError(KindInvalidAccount, "invalid account encoding: %q", s)
	}
	copy(a[32-len(keyBytes):], keyBytes)

	sum, err := decodeAddressBase32(sumPart)
	if err != nil {
		return a, NewError(KindInvalidAccount, "invalid account %q: %v", s, err)
	}
	var sumBytes [5]byte
	raw := sum.Bytes()
	copy(sumBytes[5-len(raw):], raw)
	if sumBytes != a.checksum() {
		return a, NewError(KindInvalidAccount, "account checksum mismatch: %q", s)
	}
	return a, nil
}

// MustParseAddress is ParseAddress for known-good literals; it panics on
// failure. Used in tests and defaults.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AddressFromPublicKey builds an Address from a raw 32-byte public key.
func AddressFromPublicKey(pub []byte) (Address, error) {
	var a Address
	if len(pub) != 32 {
		return a, NewError(KindInvalidAccount, "public key must be 32 bytes, got %d", len(pub))
	}
	copy(a[:], pub)
	return a, nil
}

// AddressFromPublicKeyHex parses the 64-hex-char public key form used in
// block link fields.
func AddressFromPublicKeyHex(s string) (Address, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Address{}, NewError(KindInvalidAccount, "invalid public key hex: %v", err)
	}
	return AddressFromPublicKey(raw)
}

func (a Address) String() string {
	key := new(big.Int).SetBytes(a[:])
	sumBytes := a.checksum()
	sum := new(big.Int).SetBytes(sumBytes[:])
	return addressPrefix + encodeAddressBase32(key, encodedKeyLen) + encodeAddressBase32(sum, encodedChecksumLen)
}

// PublicKeyHex returns the uppercase hex form used by the node RPC for
// link fields.
func (a Address) PublicKeyHex() string {
	return strings.ToUpper(hex.EncodeToString(a[:]))
}

func (a Address) IsZero() bool {
	return a == Address{}
}

// checksum is the 5-byte blake2b digest of the public key, byte-reversed
// per the account encoding.
func (a Address) checksum() [5]byte {
	h, err := blake2b.New(5, nil)
	if err != nil {
		panic(err) // blake2b.New only fails on bad key/size
	}
	h.Write(a[:])
	var sum [5]byte
	copy(sum[:], h.Sum(nil))
	sum[0], sum[4] = sum[4], sum[0]
	sum[1], sum[3] = sum[3], sum[1]
	return sum
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(data []byte) error {
	parsed, err := ParseAddress(string(data))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func encodeAddressBase32(v *big.Int, length int) string {
	x := new(big.Int).Set(v)
	mask := big.NewInt(31)
	digit := new(big.Int)
	out := make([]byte, length)
	for i := length - 1; i >= 0; i-- {
		digit.And(x, mask)
		out[i] = addressAlphabet[digit.Int64()]
		x.Rsh(x, 5)
	}
	return string(out)
}

func decodeAddressBase32(s string) (*big.Int, error) {
	v := new(big.Int)
	for i := 0; i < len(s); i++ {
		d := addressAlphabetRev[s[i]]
		if d < 0 {
			return nil, fmt.Errorf("character %q not in account alphabet", s[i])
		}
		v.Lsh(v, 5)
		v.Or(v, big.NewInt(int64(d)))
	}
	return v, nil
}
