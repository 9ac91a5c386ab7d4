package configwatch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunDebouncesBurstsIntoOneChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("initial"), 0o644))

	w, err := New(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte("updated"), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-w.Changed:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a debounced change notification")
	}

	select {
	case <-w.Changed:
		t.Fatal("expected exactly one coalesced change notification")
	case <-time.After(DebounceWindow + 100*time.Millisecond):
	}
}
