package driver

import (
	"errors"
	"fmt"

	"github.com/launchpad-hq/lpcore/errs"
)

var errDraining = errors.New("driver: rejecting new work, pool is draining")

func errDrainTimeout() error {
	return fmt.Errorf("%w: active queries remained after timeout", errs.ErrDrainTimeout)
}
