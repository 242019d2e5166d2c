package migrate

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingVersionsFreshDatabase(t *testing.T) {
	pending := pendingVersions(map[string]bool{})

	require.NotEmpty(t, pending, "the embedded migration set is never empty")
	assert.Contains(t, pending, "0001_init")
	assert.True(t, sort.StringsAreSorted(pending), "migrations apply in lexical order")
}

func TestPendingVersionsSkipsApplied(t *testing.T) {
	applied := make(map[string]bool)
	for _, version := range pendingVersions(nil) {
		applied[version] = true
	}

	assert.Empty(t, pendingVersions(applied), "a fully migrated ledger leaves nothing pending")
}
