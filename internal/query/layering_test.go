package query

import (
	"testing"

	"deskcore/testutil"
)

func TestQueryStaysBelowService(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".",
		testutil.PrefixForbidden("deskcore/internal/core", "deskcore/internal/infra", "deskcore/internal/persistence"),
		"query runs over plain record slices")
}
