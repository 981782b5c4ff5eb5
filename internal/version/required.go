package version

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"time"
)

// DefaultRequiredURL points at the build config the game servers pin their
// runtime version in.
const DefaultRequiredURL = "https://raw.githubusercontent.com/goonstation/goonstation/refs/heads/master/buildByond.conf"

var (
	majorRe = regexp.MustCompile(`BYOND_MAJOR_VERSION=(\d+)`)
	minorRe = regexp.MustCompile(`BYOND_MINOR_VERSION=(\d+)`)
)

// ParseBuildConfig extracts BYOND_MAJOR_VERSION / BYOND_MINOR_VERSION from a
// shell-style build config.
func ParseBuildConfig(text string) (Version, error) {
	mj := majorRe.FindStringSubmatch(text)
	mn := minorRe.FindStringSubmatch(text)
	if mj == nil || mn == nil {
		return Version{}, fmt.Errorf("%w: build config lacks BYOND_MAJOR_VERSION/BYOND_MINOR_VERSION", ErrParse)
	}
	major, err := strconv.ParseUint(mj[1], 10, 32)
	if err != nil {
		return Version{}, fmt.Errorf("%w: major version: %v", ErrParse, err)
	}
	minor, err := strconv.ParseUint(mn[1], 10, 32)
	if err != nil {
		return Version{}, fmt.Errorf("%w: minor version: %v", ErrParse, err)
	}
	return Version{Major: uint32(major), Minor: uint32(minor)}, nil
}

// FetchRequired downloads the build config at url and parses the pinned version.
// A nil client uses a client with a 10s timeout.
func FetchRequired(ctx context.Context, client *http.Client, url string) (Version, error) {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if url == "" {
		url = DefaultRequiredURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Version{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return Version{}, fmt.Errorf("failed to fetch build config: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Version{}, fmt.Errorf("failed to fetch build config: HTTP status %s", resp.Status)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Version{}, fmt.Errorf("failed to read build config: %w", err)
	}
	return ParseBuildConfig(string(b))
}

// Status reports whether the installed runtime matches the required one.
type Status struct {
	Installed bool     `json:"installed"`
	Current   bool     `json:"current"`
	Have      *Version `json:"have,omitempty"`
	Want      *Version `json:"want,omitempty"`
	ProbeErr  string   `json:"probe_error,omitempty"`
}

// Check compares the installed runtime against the required version. A failed
// probe means "not installed" rather than an error; only a failure to learn the
// required version is returned.
func Check(ctx context.Context, p Prober, client *http.Client, url, installDir string) (Status, error) {
	want, err := FetchRequired(ctx, client, url)
	if err != nil {
		return Status{}, err
	}
	st := Status{Want: &want}
	have, err := p.Probe(installDir)
	if err != nil {
		st.ProbeErr = err.Error()
		return st, nil
	}
	st.Installed = true
	st.Have = &have
	st.Current = have.Compare(want) == 0
	return st, nil
}
