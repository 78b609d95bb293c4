package pkg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("s3cr3t-w0rd")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.NotEqual(t, "s3cr3t-w0rd", hash)

	assert.True(t, CheckPasswordHash("s3cr3t-w0rd", hash))
	assert.False(t, CheckPasswordHash("wrong-word", hash))
	assert.False(t, CheckPasswordHash("s3cr3t-w0rd", "not-a-hash"))
}
