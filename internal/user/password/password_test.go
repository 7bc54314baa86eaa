package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashVerifyRoundTrip(t *testing.T) {
	encoded, err := Hash("correct horse 1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$"))

	assert.True(t, Verify("correct horse 1", encoded))
	assert.False(t, Verify("correct horse 2", encoded))
}

func TestHashIsSalted(t *testing.T) {
	a, err := Hash("correct horse 1")
	require.NoError(t, err)
	b, err := Hash("correct horse 1")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVerifyRejectsMalformed(t *testing.T) {
	assert.False(t, Verify("x", ""))
	assert.False(t, Verify("x", "$bcrypt$whatever"))
	assert.False(t, Verify("x", "$argon2id$v=19$m=65536,t=1$short"))
}

func TestIsStrong(t *testing.T) {
	tests := []struct {
		password string
		want     bool
	}{
		{"", false},
		{"short1", false},
		{"onlyletters", false},
		{"12345678", false},
		{"letters42", true},
		{"P4ssword with space", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsStrong(tt.password), tt.password)
	}
}
