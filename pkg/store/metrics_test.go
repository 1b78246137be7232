package store_test

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/imag/pkg/store"
)

func Test_Metrics_Count_Operations_By_Result(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	s := openTestStore(t, store.Config{Registerer: reg})

	held, err := s.Create(id("notes/a"))
	require.NoError(t, err)

	other, err := s.Create(id("notes/b"))
	require.NoError(t, err)
	require.NoError(t, other.Release())

	_, err = s.Get(id("notes/a"))
	require.ErrorIs(t, err, store.ErrLocked)

	_, err = s.Create(id("notes/b"))
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	err = s.Delete(id("notes/missing"))
	require.ErrorIs(t, err, store.ErrNotFound)

	const want = `
# HELP imag_store_entry_writes_total Total number of entry files written
# TYPE imag_store_entry_writes_total counter
imag_store_entry_writes_total 1
# HELP imag_store_locked_entries Number of entries currently checked out by a handle
# TYPE imag_store_locked_entries gauge
imag_store_locked_entries 1
# HELP imag_store_operations_total Total number of store operations by operation and result
# TYPE imag_store_operations_total counter
imag_store_operations_total{op="create",result="already_exists"} 1
imag_store_operations_total{op="create",result="ok"} 2
imag_store_operations_total{op="delete",result="not_found"} 1
imag_store_operations_total{op="get",result="locked"} 1
imag_store_operations_total{op="release",result="ok"} 1
`

	err = testutil.GatherAndCompare(reg, strings.NewReader(want))
	require.NoError(t, err)

	require.NoError(t, held.Release())
}

func Test_Open_Fails_When_Metrics_Already_Registered(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	first := openTestStore(t, store.Config{Registerer: reg})

	_, err := store.Open(store.Config{Root: t.TempDir(), Registerer: reg})
	require.Error(t, err)

	// Closing the first store frees the metric names.
	require.NoError(t, first.Close())

	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	openTestStore(t, store.Config{Registerer: reg})
}
