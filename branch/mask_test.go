package branch

import (
	"strings"
	"testing"

	"github.com/launchpad-hq/lpcore/schema"
)

func quoteIdent(s string) string { return `"` + s + `"` }

func TestMaskExpression_EmailGetsDomainTemplate(t *testing.T) {
	expr := maskExpression(quoteIdent, "email", schema.TypeString)
	if !strings.Contains(expr, "@example.com") {
		t.Fatalf("expected email masking template, got %q", expr)
	}
}

func TestMaskExpression_OtherPIIColumnGetsGenericTemplate(t *testing.T) {
	expr := maskExpression(quoteIdent, "ssn", schema.TypeString)
	if expr == "" || strings.Contains(expr, "@example.com") {
		t.Fatalf("expected generic masking template, got %q", expr)
	}
}

func TestMaskExpression_NonPIIColumnPassesThrough(t *testing.T) {
	expr := maskExpression(quoteIdent, "widget_count", schema.TypeInteger)
	if expr != "" {
		t.Fatalf("expected passthrough (empty expression), got %q", expr)
	}
}

func TestMaskExpression_NonTextualPIINameDoesNotMask(t *testing.T) {
	expr := maskExpression(quoteIdent, "latitude", schema.TypeFloat)
	if expr != "" {
		t.Fatalf("expected passthrough for non-textual PII column, got %q", expr)
	}
}
