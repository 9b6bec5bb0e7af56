package testutil

import (
	"os"
	"strings"
	"testing"
)

// RefuseProduction fails the test when the environment points at a
// production deployment. NewTestDB calls it before opening anything.
func RefuseProduction(t *testing.T) {
	t.Helper()

	if env := os.Getenv("GO_ENV"); env == "production" {
		t.Fatalf("SAFETY CHECK FAILED: tests must not run with GO_ENV=%q", env)
	}
	if url := os.Getenv("DATABASE_URL"); url != "" && !strings.Contains(url, "test") {
		t.Logf("DATABASE_URL is set but ignored; tests use in-memory SQLite")
	}
}
