package config

import (
	"fmt"
	"os"
	"testing"
)

// TestMain pins GO_ENV=test so Load never picks up .env.production
func TestMain(m *testing.M) {
	if os.Getenv("GO_ENV") == "production" {
		fmt.Fprintln(os.Stderr, "refusing to run config tests with GO_ENV=production; use GO_ENV=test go test ./...")
		os.Exit(1)
	}
	if err := os.Setenv("GO_ENV", "test"); err != nil {
		fmt.Fprintln(os.Stderr, "failed to set GO_ENV:", err)
		os.Exit(1)
	}
	os.Exit(m.Run())
}
