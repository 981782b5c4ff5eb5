package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL + "/api/"
	return New(cfg)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "http://127.0.0.1:8765/api", cfg.BaseURL)
	assert.NotZero(t, cfg.Timeout)

	c := New(Config{})
	assert.Equal(t, defaultBaseURL, c.baseURL)
	assert.NotNil(t, c.logger)
}

func TestIsReachable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/status", r.URL.Path)
		writeJSON(w, http.StatusOK, Status{})
	})
	assert.True(t, c.IsReachable(context.Background()))

	down := New(Config{BaseURL: "http://127.0.0.1:1/api"})
	assert.False(t, down.IsReachable(context.Background()))
}

func TestTokenIsSentAsBearer(t *testing.T) {
	var (
		mu  sync.Mutex
		got []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		got = append(got, r.Header.Get("Authorization"))
		mu.Unlock()
		if r.Header.Get("Authorization") != "Bearer s3cret" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication_failed"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"running": true})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL + "/api", Token: "s3cret"})
	assert.True(t, c.IsReachable(context.Background()))
	running, err := c.IsRunning(context.Background())
	require.NoError(t, err)
	assert.True(t, running)
	mu.Lock()
	assert.Equal(t, []string{"Bearer s3cret", "Bearer s3cret"}, got)
	mu.Unlock()

	anon := New(Config{BaseURL: srv.URL + "/api"})
	assert.False(t, anon.IsReachable(context.Background()))
	err = anon.Ping(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Code)
}

func TestProbeVersionPassesInstallDir(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/version", r.URL.Path)
		assert.Equal(t, "/opt/byond dir", r.URL.Query().Get("install_dir"))
		writeJSON(w, http.StatusOK, Version{Major: 516, Minor: 1667, Version: "516.1667"})
	})
	v, err := c.ProbeVersion(context.Background(), "/opt/byond dir")
	require.NoError(t, err)
	assert.Equal(t, uint32(516), v.Major)
	assert.Equal(t, uint32(1667), v.Minor)
}

func TestCheckVersion(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/version/check", r.URL.Path)
		assert.Empty(t, r.URL.RawQuery)
		writeJSON(w, http.StatusOK, VersionStatus{
			Installed: true,
			Have:      &Version{Major: 515, Minor: 1},
			Want:      &Version{Major: 516, Minor: 1667},
		})
	})
	st, err := c.CheckVersion(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, st.Installed)
	assert.False(t, st.Current)
	require.NotNil(t, st.Want)
	assert.Equal(t, uint32(516), st.Want.Major)
}

func TestDownloadAndAcquireSendVersion(t *testing.T) {
	var paths []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body Version
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, uint32(516), body.Major)
		assert.Equal(t, uint32(1667), body.Minor)
		switch r.URL.Path {
		case "/api/download":
			writeJSON(w, http.StatusOK, DownloadOutcome{Success: true, InstallerPath: "/tmp/x.exe", Source: "primary"})
		default:
			writeJSON(w, http.StatusOK, InstallOutcome{Success: true, Message: "ok"})
		}
	})

	dl, err := c.Download(context.Background(), 516, 1667)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.exe", dl.InstallerPath)
	assert.Equal(t, "primary", dl.Source)

	out, err := c.AcquireAndInstall(context.Background(), 516, 1667)
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, []string{"/api/download", "/api/acquire"}, paths)
}

func TestInstall(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "/tmp/x.exe", body["installer_path"])
		writeJSON(w, http.StatusOK, InstallOutcome{Success: true, Message: "installed"})
	})
	out, err := c.Install(context.Background(), "/tmp/x.exe")
	require.NoError(t, err)
	assert.Equal(t, "installed", out.Message)
}

func TestLaunch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/launch", r.URL.Path)
		var body LaunchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "play.example.org:1337", body.Address)
		writeJSON(w, http.StatusOK, map[string]string{"message": "Started DreamSeeker for " + body.Address})
	})
	msg, err := c.Launch(context.Background(), LaunchRequest{Address: "play.example.org:1337"})
	require.NoError(t, err)
	assert.Equal(t, "Started DreamSeeker for play.example.org:1337", msg)
}

func TestRunning(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"running": r.URL.Path == "/api/running/any"})
	})
	own, err := c.IsRunning(context.Background())
	require.NoError(t, err)
	assert.False(t, own)

	anywhere, err := c.IsRunningAnywhere(context.Background())
	require.NoError(t, err)
	assert.True(t, anywhere)
}

func TestStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, Status{
			InstallDir:   "/opt/byond",
			LaunchMethod: "direct",
			Runtime:      RuntimeStatus{Name: "dreamseeker.exe", Running: true, PID: 42, DetectedBy: "handle"},
			Presence:     "connected",
		})
	})
	st, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, st.Runtime.PID)
	assert.True(t, st.Runtime.Running)
	assert.Equal(t, "connected", st.Presence)
}

func TestPresence(t *testing.T) {
	var methods []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/presence", r.URL.Path)
		methods = append(methods, r.Method)
		if r.Method == http.MethodPost {
			var body PresenceRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "in_game", body.Activity)
			assert.Equal(t, "a:1", body.Server)
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	require.NoError(t, c.SetPresence(context.Background(), PresenceRequest{Activity: "in_game", Server: "a:1"}))
	require.NoError(t, c.ClearPresence(context.Background()))
	assert.Equal(t, []string{http.MethodPost, http.MethodDelete}, methods)
}

func TestErrorResponses(t *testing.T) {
	t.Run("json error body", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "presence unavailable"})
		})
		err := c.SetPresence(context.Background(), PresenceRequest{State: "x"})
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusServiceUnavailable, apiErr.Code)
		assert.Equal(t, "presence unavailable", apiErr.Message)
		assert.Contains(t, err.Error(), "503")
	})

	t.Run("plain body", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		})
		_, err := c.Status(context.Background())
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusInternalServerError, apiErr.Code)
		assert.Equal(t, http.StatusText(http.StatusInternalServerError), apiErr.Message)
	})

	t.Run("bad json", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("{"))
		})
		_, err := c.IsRunning(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode response")
	})

	t.Run("unreachable", func(t *testing.T) {
		c := New(Config{BaseURL: "http://127.0.0.1:1/api"})
		_, err := c.Launch(context.Background(), LaunchRequest{Address: "a:1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "do request")
	})
}
