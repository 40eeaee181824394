package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) (*Journal, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j, path
}

func TestJournal_AppendAndRows(t *testing.T) {
	ctx := context.Background()
	j, _ := openTemp(t)

	_, err := j.LatestRun(ctx)
	require.True(t, errors.Is(err, ErrNoRuns))

	require.NoError(t, j.Append(ctx, "run-1", "https://j/a", map[string]string{"Paper title": "A"}))
	require.NoError(t, j.Append(ctx, "run-2", "https://j/x", map[string]string{"Paper title": "X"}))
	require.NoError(t, j.Append(ctx, "run-2", "https://j/y", map[string]string{"Paper title": "Y", "Image 1 caption": "Fig"}))

	latest, err := j.LatestRun(ctx)
	require.NoError(t, err)
	require.Equal(t, "run-2", latest)

	rows, err := j.Rows(ctx, latest)
	require.NoError(t, err)
	want := []map[string]string{
		{"Paper title": "X"},
		{"Paper title": "Y", "Image 1 caption": "Fig"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestJournal_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	j, path := openTemp(t)
	require.NoError(t, j.Append(ctx, "run-1", "https://j/a", map[string]string{"Paper DOI": "10.1/a"}))
	require.NoError(t, j.Close())

	reopened, err := Open(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	rows, err := reopened.Rows(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "10.1/a", rows[0]["Paper DOI"])
}
