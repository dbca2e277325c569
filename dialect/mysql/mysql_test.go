package mysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteIdentifier(t *testing.T) {
	d := New()
	tests := []struct {
		name, input, expected string
	}{
		{"simple", "users", "`users`"},
		{"with_backtick", "user`table", "`user``table`"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, d.QuoteIdentifier(tt.input))
		})
	}
}

func TestPlaceholderIgnoresIndex(t *testing.T) {
	d := New()
	require.Equal(t, "?", d.Placeholder(1))
	require.Equal(t, "?", d.Placeholder(99))
}

func TestCapabilities(t *testing.T) {
	d := New()
	assert.False(t, d.SupportsTransactionalDDL())
	assert.False(t, d.SupportsReturning())
}
