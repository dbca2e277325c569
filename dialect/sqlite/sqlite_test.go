package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuoteIdentifier(t *testing.T) {
	d := New()
	assert.Equal(t, `"users"`, d.QuoteIdentifier("users"))
	assert.Equal(t, `"a""b"`, d.QuoteIdentifier(`a"b`))
}

func TestCapabilities(t *testing.T) {
	d := New()
	assert.True(t, d.SupportsTransactionalDDL())
	assert.True(t, d.SupportsReturning())
}
