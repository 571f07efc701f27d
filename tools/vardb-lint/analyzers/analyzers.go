// Package analyzers collects the static checks run by vardb-lint.
package analyzers

import (
	"golang.org/x/tools/go/analysis"

	"github.com/ersonp/variantdb-core/tools/vardb-lint/analyzers/loopcall"
	"github.com/ersonp/variantdb-core/tools/vardb-lint/analyzers/wallclock"
)

// All returns all analyzers to run.
func All() []*analysis.Analyzer {
	return []*analysis.Analyzer{
		loopcall.Analyzer,
		wallclock.Analyzer,
	}
}
