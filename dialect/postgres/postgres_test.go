package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchpad-hq/lpcore/schema"
)

func TestQuoteIdentifier(t *testing.T) {
	d := New()
	tests := []struct {
		name, input, expected string
	}{
		{"simple", "users", `"users"`},
		{"with_quote", `user"table`, `"user""table"`},
		{"multiple_quotes", `a"b"c`, `"a""b""c"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, d.QuoteIdentifier(tt.input))
		})
	}
}

func TestPlaceholder(t *testing.T) {
	d := New()
	require.Equal(t, "$1", d.Placeholder(1))
	require.Equal(t, "$3", d.Placeholder(3))
}

func TestMapTypeUnknown(t *testing.T) {
	d := New()
	_, err := d.MapType(schema.ColumnType("nonsense"))
	require.Error(t, err)
}

func TestMapTypeKnown(t *testing.T) {
	d := New()
	native, err := d.MapType(schema.TypeJSON)
	require.NoError(t, err)
	assert.Equal(t, "jsonb", native)
}

func TestCapabilities(t *testing.T) {
	d := New()
	assert.True(t, d.SupportsTransactionalDDL())
	assert.True(t, d.SupportsReturning())
}
