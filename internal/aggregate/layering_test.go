package aggregate

import (
	"testing"

	"deskcore/testutil"
)

func TestAggregateImportsNoInternalPackages(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.InternalImportForbidden, "aggregations depend on domain types only")
}
