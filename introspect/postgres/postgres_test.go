package postgres_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/launchpad-hq/lpcore/introspect/postgres"
	"github.com/launchpad-hq/lpcore/schema"
)

func TestNormalizeType(t *testing.T) {
	cases := map[string]schema.ColumnType{
		"uuid":                        schema.TypeUUID,
		"character varying(255)":      schema.TypeString,
		"text":                        schema.TypeText,
		"integer":                     schema.TypeInteger,
		"bigint":                      schema.TypeBigInt,
		"numeric(10,2)":               schema.TypeDecimal,
		"boolean":                     schema.TypeBoolean,
		"timestamp with time zone":    schema.TypeDateTime,
		"timestamp without time zone": schema.TypeDateTime,
		"date":                        schema.TypeDate,
		"jsonb":                       schema.TypeJSON,
		"bytea":                       schema.TypeBinary,
		"some_custom_domain_type":     schema.TypeText,
	}
	for native, want := range cases {
		assert.Equal(t, want, postgres.NormalizeType(native), native)
	}
}
