// Package testutil holds helpers shared by package tests.
package testutil

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// Update rewrites golden files instead of comparing against them:
//
//	go test ./internal/report -update
var Update = flag.Bool(
	"update",
	false,
	"update golden files",
)

func goldenPath(name string) string {
	return filepath.Join("testdata", name+".golden")
}

// CompareWithGolden checks actual against testdata/<name>.golden.
func CompareWithGolden(t *testing.T, name string, actual []byte) {
	t.Helper()

	if *Update {
		require.NoError(t, os.MkdirAll("testdata", 0755))
		require.NoError(t, os.WriteFile(goldenPath(name), actual, 0644))
		return
	}

	expected, err := os.ReadFile(goldenPath(name))
	require.NoError(t, err, "missing golden file, run with -update")
	require.Equal(t, string(expected), string(actual), "golden mismatch for %s", name)
}
