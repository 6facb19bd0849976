package checksum

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckDigit(t *testing.T) {
	// V12345678: 1*4 + 1*3 + 2*2 + 3*7 + 4*6 + 5*5 + 6*4 + 7*3 + 8*2 = 142,
	// 142 % 11 = 10, 11 - 10 = 1.
	digit, ok := CheckDigit("V12345678")
	require.True(t, ok)
	assert.Equal(t, 1, digit)

	t.Run("remainder zero maps to zero", func(t *testing.T) {
		// Find a body whose weighted sum is divisible by 11; J00000000 sums to
		// 3*4 = 12, so walk the last digit until sum%11 == 0: J00000005 ->
		// 12 + 5*2 = 22.
		digit, ok := CheckDigit("J00000005")
		require.True(t, ok)
		assert.Equal(t, 0, digit)
	})

	t.Run("malformed prefixes", func(t *testing.T) {
		for _, prefix := range []string{"", "V1234567", "V123456789", "X12345678", "V1234567a"} {
			_, ok := CheckDigit(prefix)
			assert.False(t, ok, "prefix %q", prefix)
		}
	})
}

func TestValidRIF(t *testing.T) {
	valid := []string{
		"V123456781",
		"v-12345678-1",
		"J000000050",
		"J 00000005 0",
	}
	for _, rif := range valid {
		assert.True(t, ValidRIF(rif), "rif %q", rif)
	}

	invalid := []string{
		"",
		"V12345678",   // missing check digit
		"V123456780",  // wrong check digit
		"V123456789",  // wrong check digit
		"X123456781",  // unknown type letter
		"V12345678a",  // non-numeric check digit
		"V1234567811", // too long
		"1234567890",  // no type letter
		"VV23456781",  // letter in body
	}
	for _, rif := range invalid {
		assert.False(t, ValidRIF(rif), "rif %q", rif)
	}

	t.Run("every wrong check digit rejected", func(t *testing.T) {
		digit, ok := CheckDigit("V12345678")
		require.True(t, ok)
		for d := 0; d <= 9; d++ {
			rif := fmt.Sprintf("V12345678%d", d)
			assert.Equal(t, d == digit, ValidRIF(rif), "rif %q", rif)
		}
	})
}

func TestValidCedula(t *testing.T) {
	assert.True(t, ValidCedula("123456"))
	assert.True(t, ValidCedula("1234567890"))
	assert.True(t, ValidCedula(" 12345678 "))

	assert.False(t, ValidCedula("12345"))
	assert.False(t, ValidCedula("12345678901"))
	assert.False(t, ValidCedula("12a456"))
	assert.False(t, ValidCedula(""))
}

func TestValidDocumentType(t *testing.T) {
	assert.True(t, ValidDocumentType("V"))
	assert.True(t, ValidDocumentType("E"))
	assert.False(t, ValidDocumentType("J"))
	assert.False(t, ValidDocumentType("v"))
	assert.False(t, ValidDocumentType(""))
}
