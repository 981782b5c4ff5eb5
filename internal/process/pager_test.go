package process

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenLink(t *testing.T) {
	requireUnix(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "link.txt")
	bin := filepath.Join(dir, "bin")
	require.NoError(t, os.MkdirAll(bin, 0o755))
	script := "#!/bin/sh\necho \"$1\" > \"" + out + "\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(bin, DefaultPagerExecutable), []byte(script), 0o755))

	m := NewManager(fakeDetector{}, nil)
	msg, err := m.OpenLink(dir, "", "goon2.goonhub.com:26200")
	require.NoError(t, err)
	assert.Equal(t, "Started BYOND pager for goon2.goonhub.com:26200", msg)
	assert.False(t, m.HasHandle(), "pager launches are not tracked")

	require.Eventually(t, func() bool {
		b, err := os.ReadFile(out)
		return err == nil && strings.TrimSpace(string(b)) == "byond://goon2.goonhub.com:26200"
	}, 5*time.Second, 20*time.Millisecond)
}

func TestOpenLinkNotFound(t *testing.T) {
	m := NewManager(fakeDetector{}, nil)
	_, err := m.OpenLink(t.TempDir(), "", "a:1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Contains(t, err.Error(), "byond.exe")
}
