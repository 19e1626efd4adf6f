package sid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntToBase62(t *testing.T) {
	assert.Equal(t, "0", IntToBase62(0))
	assert.Equal(t, "z", IntToBase62(35))
	assert.Equal(t, "Z", IntToBase62(61))
	assert.Equal(t, "10", IntToBase62(62))
}

func TestSid_GenString(t *testing.T) {
	s := NewSid()
	a, err := s.GenString()
	require.NoError(t, err)
	b, err := s.GenString()
	require.NoError(t, err)
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
