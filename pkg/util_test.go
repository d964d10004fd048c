package pkg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBytesToString(t *testing.T) {
	assert.Equal(t, "vbt", BytesToString([]byte("vbt")))
	assert.Equal(t, "", BytesToString(nil))
}

func TestGenerateInviteCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		code, err := GenerateInviteCode()
		require.NoError(t, err)
		assert.Len(t, code, 8)
		assert.False(t, seen[code], "invite codes should not repeat")
		seen[code] = true
	}
}
