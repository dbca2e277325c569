package module_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchpad-hq/lpcore/module"
)

func TestParseManifest_ValidDocument(t *testing.T) {
	doc := `
name = "billing"
display_name = "Billing"
description = "Invoices and payments"
version = "2.1.0"
dependencies = ["accounts"]
migration_prefix = "billing"
`
	def, err := module.ParseManifest(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "billing", def.Name)
	assert.Equal(t, "Billing", def.DisplayName)
	assert.Equal(t, []string{"accounts"}, def.Dependencies)
	assert.Equal(t, "billing", def.MigrationPrefix)
}

func TestParseManifest_RejectsMissingMigrationPrefix(t *testing.T) {
	doc := `
name = "billing"
version = "1.0.0"
`
	_, err := module.ParseManifest(strings.NewReader(doc))
	assert.Error(t, err)
}

func TestParseManifest_RejectsMalformedTOML(t *testing.T) {
	_, err := module.ParseManifest(strings.NewReader("not = [valid"))
	assert.Error(t, err)
}
