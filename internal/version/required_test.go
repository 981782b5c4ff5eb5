package version

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const buildConf = "# pinned runtime\nexport BYOND_MAJOR_VERSION=516\nexport BYOND_MINOR_VERSION=1663\n"

func TestParseBuildConfig(t *testing.T) {
	v, err := ParseBuildConfig(buildConf)
	require.NoError(t, err)
	assert.Equal(t, Version{516, 1663}, v)

	_, err = ParseBuildConfig("BYOND_MAJOR_VERSION=516\n")
	assert.True(t, errors.Is(err, ErrParse))
}

func TestFetchRequired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = fmt.Fprint(w, buildConf)
	}))
	defer srv.Close()

	v, err := FetchRequired(context.Background(), srv.Client(), srv.URL+"/buildByond.conf")
	require.NoError(t, err)
	assert.Equal(t, "516.1663", v.String())

	_, err = FetchRequired(context.Background(), srv.Client(), srv.URL+"/missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestCheck(t *testing.T) {
	requireUnix(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, buildConf)
	}))
	defer srv.Close()

	st, err := Check(context.Background(), Prober{}, srv.Client(), srv.URL, t.TempDir())
	require.NoError(t, err)
	assert.False(t, st.Installed)
	assert.False(t, st.Current)
	assert.NotEmpty(t, st.ProbeErr)

	dir := t.TempDir()
	writeProbe(t, dir, `echo "BYOND 5.0 Public (Version 516.1663) on Linux"`)
	st, err = Check(context.Background(), Prober{}, srv.Client(), srv.URL, dir)
	require.NoError(t, err)
	assert.True(t, st.Installed)
	assert.True(t, st.Current)

	writeProbe(t, dir, `echo "BYOND 5.0 Public (Version 515.1647) on Linux"`)
	st, err = Check(context.Background(), Prober{}, srv.Client(), srv.URL, dir)
	require.NoError(t, err)
	assert.True(t, st.Installed)
	assert.False(t, st.Current)
	assert.Equal(t, uint32(515), st.Have.Major)
}
