package migrate

import (
	"fmt"
	"regexp"

	"github.com/launchpad-hq/lpcore/errs"
)

var templateKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateTemplateKey is the path-safety seam: any caller-supplied
// template key is checked against a closed character set before it is
// used to build a filesystem path. An empty key is valid (it means "no
// template scoping").
func ValidateTemplateKey(key string) error {
	if key == "" {
		return nil
	}
	if !templateKeyPattern.MatchString(key) {
		return fmt.Errorf("%w: %q", errs.ErrInvalidTemplateKey, key)
	}
	return nil
}
