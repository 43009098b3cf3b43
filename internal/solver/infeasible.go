package solver

import (
	"fmt"
	"strings"
)

// Infeasibility reports that a solver could not satisfy its hard
// constraints. Blocking names the offending constraint subset; soft
// objectives are always dropped before this is returned.
type Infeasibility struct {
	Phase    string
	Blocking []string
}

func (e *Infeasibility) Error() string {
	if len(e.Blocking) == 0 {
		return fmt.Sprintf("%s: infeasible", e.Phase)
	}
	return fmt.Sprintf("%s: infeasible; blocking constraints: %s",
		e.Phase, strings.Join(e.Blocking, "; "))
}
