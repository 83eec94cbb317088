package memory

import (
	"testing"

	"deskcore/testutil"
)

func TestBlobDriverIsStandalone(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".",
		testutil.PrefixForbidden("deskcore/internal/core", "deskcore/internal/config", "deskcore/pkg/domain"),
		"blob drivers only know the blob contract")
}
