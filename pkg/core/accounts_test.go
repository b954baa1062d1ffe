package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	genesisAccount   = "nano_3t6k35gi95xu6tergt6p69ck76ogmitsa8mnijtpxm9fkcm736xtoncuohr3"
	genesisPublicKey = "E89208DD038FBB269987689621D52292AE9C35941A7484756ECCED92A65093BA"
	burnAccount      = "nano_1111111111111111111111111111111111111111111111111111hifc8npp"
)

func TestParseAddressKnownAccounts(t *testing.T) {
	genesis, err := ParseAddress(genesisAccount)
	require.NoError(t, err)
	assert.Equal(t, genesisPublicKey, genesis.PublicKeyHex())
	assert.Equal(t, genesisAccount, genesis.String())

	burn, err := ParseAddress(burnAccount)
	require.NoError(t, err)
	assert.True(t, burn.IsZero())
	assert.Equal(t, burnAccount, burn.String())
}

func TestParseAddressLegacyPrefix(t *testing.T) {
	legacy, err := ParseAddress("xrb_" + genesisAccount[len("nano_"):])
	require.NoError(t, err)
	assert.Equal(t, genesisPublicKey, legacy.PublicKeyHex())
	// Rendering always uses the modern prefix.
	assert.Equal(t, genesisAccount, legacy.String())
}

func TestParseAddressRejects(t *testing.T) {
	cases := map[string]string{
		"wrong prefix":      "banano_3t6k35gi95xu6tergt6p69ck76ogmitsa8mnijtpxm9fkcm736xtoncuohr3",
		"no prefix":         genesisAccount[len("nano_"):],
		"too short":         genesisAccount[:len(genesisAccount)-1],
		"bad checksum":      genesisAccount[:len(genesisAccount)-1] + "4",
		"bad alphabet char": "nano_0t6k35gi95xu6tergt6p69ck76ogmitsa8mnijtpxm9fkcm736xtoncuohr3",
		"bad first char":    "nano_4t6k35gi95xu6tergt6p69ck76ogmitsa8mnijtpxm9fkcm736xtoncuohr3",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseAddress(input)
			require.Error(t, err)
			var werr *Error
			require.ErrorAs(t, err, &werr)
			assert.Equal(t, KindInvalidAccount, werr.Kind)
		})
	}
}

func TestAddressRoundTrip(t *testing.T) {
	for i := 0; i < 64; i++ {
		var a Address
		for j := range a {
			a[j] = byte(i*37 + j*11)
		}
		parsed, err := ParseAddress(a.String())
		require.NoError(t, err)
		assert.Equal(t, a, parsed)
	}
}

func TestAddressTextMarshalling(t *testing.T) {
	a := MustParseAddress(genesisAccount)
	text, err := a.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, genesisAccount, string(text))

	var decoded Address
	require.NoError(t, decoded.UnmarshalText(text))
	assert.Equal(t, a, decoded)
}

func TestAddressFromPublicKeyHex(t *testing.T) {
	a, err := AddressFromPublicKeyHex(genesisPublicKey)
	require.NoError(t, err)
	assert.Equal(t, genesisAccount, a.String())

	_, err = AddressFromPublicKeyHex("E892")
	require.Error(t, err)
}
