package splitter

import (
	"testing"

	"github.com/poiesic/splitembed/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuneLength(t *testing.T) {
	assert.Equal(t, 0, RuneLength(""))
	assert.Equal(t, 5, RuneLength("hello"))
	assert.Equal(t, 3, RuneLength("日本語"))
	assert.Equal(t, 2, RuneLength("é!"))
}

func TestLengthFor(t *testing.T) {
	tests := []struct {
		name    string
		unit    string
		wantErr bool
	}{
		{name: "default", unit: ""},
		{name: "chars", unit: "chars"},
		{name: "case insensitive", unit: "CHARS"},
		{name: "unknown", unit: "bytes", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn, err := LengthFor(tt.unit, "")
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, core.ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 3, fn("日本語"))
		})
	}
}

func TestNewTokenLength_UnknownEncoding(t *testing.T) {
	_, err := NewTokenLength("not_an_encoding")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidConfig)

	_, err = LengthFor(UnitTokens, "not_an_encoding")
	require.Error(t, err)
}

func TestKnownEncoding(t *testing.T) {
	assert.True(t, KnownEncoding(DefaultEncoding))
	assert.True(t, KnownEncoding("o200k_base"))
	assert.False(t, KnownEncoding("not_an_encoding"))
	assert.False(t, KnownEncoding(""))
}
