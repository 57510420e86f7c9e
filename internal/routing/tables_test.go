package routing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTables(t *testing.T) {
	tables := DefaultTables()
	require.NoError(t, tables.Validate())

	t.Run("known code", func(t *testing.T) {
		queue, known := tables.QueueForLibraryCode("1030011")
		assert.True(t, known)
		assert.Equal(t, "ub-humsam-biblioteket", queue)
	})

	t.Run("deliberate no-op entry is distinct from unknown", func(t *testing.T) {
		queue, known := tables.QueueForLibraryCode("1030104")
		assert.True(t, known)
		assert.Empty(t, queue)

		_, known = tables.QueueForLibraryCode("9999999")
		assert.False(t, known)
	})

	t.Run("every pattern destination is in the destination set", func(t *testing.T) {
		destinations := tables.Destinations()
		for _, entry := range tables.Patterns {
			assert.Contains(t, destinations, entry.Queue)
		}
	})
}

func TestLoadTables(t *testing.T) {
	t.Run("empty path yields defaults", func(t *testing.T) {
		tables, err := LoadTables("")
		require.NoError(t, err)
		assert.Equal(t, DefaultTables(), tables)
	})

	t.Run("yaml override", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "routing.yml")
		raw := `
patterns:
  - pattern: Juridisk bibliotek
    queue: ub-ujur
library_codes:
  "1030000": ub-ujur
  "1030104": ""
pickup_points:
  - pattern: Law Library (Domus Juridica)
    queue: ub-ujur
`
		require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

		tables, err := LoadTables(path)
		require.NoError(t, err)
		require.Len(t, tables.Patterns, 1)
		assert.Equal(t, "ub-ujur", tables.Patterns[0].Queue)

		queue, known := tables.QueueForLibraryCode("1030104")
		assert.True(t, known)
		assert.Empty(t, queue)
	})

	t.Run("pattern without queue is rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "routing.yml")
		require.NoError(t, os.WriteFile(path, []byte("patterns:\n  - pattern: x\n"), 0o644))

		_, err := LoadTables(path)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadTables(filepath.Join(t.TempDir(), "nope.yml"))
		assert.Error(t, err)
	})
}
