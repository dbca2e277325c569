package branch

import "github.com/launchpad-hq/lpcore/schema"

// piiColumnNames is the closed set of column names that trigger masking
// when copyData and piiMasking are both on.
var piiColumnNames = map[string]bool{
	"email": true, "phone": true, "address": true, "ssn": true,
	"social_security": true, "credit_card": true, "password": true,
	"secret": true, "token": true, "first_name": true, "last_name": true,
	"full_name": true, "name": true, "dob": true, "date_of_birth": true,
	"ip_address": true, "ip": true, "location": true, "latitude": true,
	"longitude": true,
}

var textualTypes = map[schema.ColumnType]bool{
	schema.TypeString: true, schema.TypeText: true,
}

// maskExpression returns the SQL expression to select column through when
// copying PII-masked data, or "" when the column passes through unmasked
// (not a PII-pattern name, or not a textual type).
func maskExpression(quote func(string) string, column string, colType schema.ColumnType) string {
	if !piiColumnNames[column] || !textualTypes[colType] {
		return ""
	}
	q := quote(column)
	if column == "email" {
		return "'masked_' || substr(md5(" + q + "::text), 1, 8) || '@example.com'"
	}
	return "'masked_' || substr(md5(" + q + "::text), 1, 8)"
}
