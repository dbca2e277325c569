// Package seed runs ordered, dependency-resolved data population against
// a live database, tracking which named seeds have already applied so a
// re-run is a no-op.
package seed

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Seed is one named unit of data population: an ordered list of SQL
// statements plus the names of seeds that must run before it.
type Seed struct {
	Name       string
	Table      string // informational; the table this seed primarily populates
	DependsOn  []string
	Statements []string
}

// Checksum is the sha256 of the seed's statements, joined, used to detect
// a changed seed body under an unchanged name.
func (s Seed) Checksum() string {
	sum := sha256.Sum256([]byte(strings.Join(s.Statements, ";")))
	return hex.EncodeToString(sum[:])
}
