package phone_test

import (
	"testing"

	"github.com/Houeta/crm-dispatch-bot/internal/phone"
	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "380631234567", phone.Clean("+38 (063) 123-45-67"))
	assert.Equal(t, "", phone.Clean("call me maybe"))
	assert.Equal(t, "0631234567", phone.Clean("063 123 45 67"))
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"national trunk form", "0631234567", "+380631234567"},
		{"already canonical", "+380631234567", "+380631234567"},
		{"country code without plus", "380631234567", "+380631234567"},
		{"formatted with noise", "+38 (063) 123-45-67", "+380631234567"},
		{"bare subscriber number", "631234567", "+380631234567"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, phone.Normalize(tc.input))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{"0631234567", "+380631234567", "garbage 123", ""}
	for _, input := range inputs {
		once := phone.Normalize(input)
		assert.Equal(t, once, phone.Normalize(once), "input %q", input)
	}
}

func TestEqual(t *testing.T) {
	t.Parallel()

	assert.True(t, phone.Equal("0631234567", "+38 (063) 123-45-67"))
	assert.False(t, phone.Equal("0631234567", "0631234568"))
}
