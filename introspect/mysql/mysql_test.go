package mysql_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/launchpad-hq/lpcore/introspect/mysql"
	"github.com/launchpad-hq/lpcore/schema"
)

func TestNormalizeType(t *testing.T) {
	cases := map[string]schema.ColumnType{
		"tinyint(1)":    schema.TypeBoolean,
		"varchar(255)":  schema.TypeString,
		"text":          schema.TypeText,
		"int(11)":       schema.TypeInteger,
		"bigint(20)":    schema.TypeBigInt,
		"decimal(10,2)": schema.TypeDecimal,
		"datetime":      schema.TypeDateTime,
		"timestamp":     schema.TypeDateTime,
		"date":          schema.TypeDate,
		"json":          schema.TypeJSON,
		"blob":          schema.TypeBinary,
		"enum('a','b')": schema.TypeText,
	}
	for native, want := range cases {
		assert.Equal(t, want, mysql.NormalizeType(native), native)
	}
}
