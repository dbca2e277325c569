package seed

import (
	"fmt"
	"os"
	"strings"

	"github.com/pingcap/tidb/pkg/parser"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"
)

// ParseSQLStatements splits a multi-statement SQL fixture body into its
// individual statement texts using the MySQL-dialect parser, rather than
// a naive semicolon split that would break on string/identifier literals
// containing one.
func ParseSQLStatements(sql string) ([]string, error) {
	p := parser.New()
	stmtNodes, _, err := p.Parse(sql, "", "")
	if err != nil {
		return nil, fmt.Errorf("seed: parsing SQL fixture: %w", err)
	}

	statements := make([]string, 0, len(stmtNodes))
	for _, stmt := range stmtNodes {
		text := strings.TrimSpace(stmt.Text())
		if text == "" {
			continue
		}
		statements = append(statements, text)
	}
	return statements, nil
}

// FromSQLFile reads path and builds a Seed named name, populating table,
// with statements parsed via ParseSQLStatements.
func FromSQLFile(name, table, path string, dependsOn ...string) (*Seed, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seed: reading fixture %q: %w", path, err)
	}
	statements, err := ParseSQLStatements(string(raw))
	if err != nil {
		return nil, err
	}
	return &Seed{Name: name, Table: table, DependsOn: dependsOn, Statements: statements}, nil
}
