// vardb-lint runs the project's custom analyzers.
package main

import (
	"golang.org/x/tools/go/analysis/multichecker"

	"github.com/ersonp/variantdb-core/tools/vardb-lint/analyzers"
)

func main() {
	multichecker.Main(analyzers.All()...)
}
