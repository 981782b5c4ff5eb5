package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrParse is returned when executable or build-config output does not carry
// a recognizable version.
var ErrParse = errors.New("version parse failed")

const (
	productMarker = "BYOND"
	versionMarker = "Version "
)

// Version is a runtime build identifier. It is only produced by parsing and
// is treated as immutable.
type Version struct {
	Major uint32 `json:"major"`
	Minor uint32 `json:"minor"`
}

func (v Version) String() string { return fmt.Sprintf("%d.%d", v.Major, v.Minor) }

// Compare orders versions by major then minor. It returns -1, 0 or 1.
func (v Version) Compare(o Version) int {
	switch {
	case v.Major < o.Major:
		return -1
	case v.Major > o.Major:
		return 1
	case v.Minor < o.Minor:
		return -1
	case v.Minor > o.Minor:
		return 1
	}
	return 0
}

// Parse scans the output of `dd -version` for a line such as
//
//	BYOND 5.0 Public (Version 516.1663) on Microsoft Windows
//
// and extracts the numeral pair between "Version " and the closing parenthesis.
func Parse(output string) (Version, error) {
	for _, line := range strings.Split(strings.ReplaceAll(output, "\r\n", "\n"), "\n") {
		if !strings.Contains(line, productMarker) || !strings.Contains(line, versionMarker) {
			continue
		}
		start := strings.Index(line, versionMarker) + len(versionMarker)
		end := strings.Index(line[start:], ")")
		if end < 0 {
			continue
		}
		return parsePair(line[start : start+end])
	}
	return Version{}, fmt.Errorf("%w: could not find %s version in output", ErrParse, productMarker)
}

func parsePair(s string) (Version, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 2 {
		return Version{}, fmt.Errorf("%w: invalid version format %q", ErrParse, s)
	}
	major, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return Version{}, fmt.Errorf("%w: failed to parse major version: %v", ErrParse, err)
	}
	minor, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return Version{}, fmt.Errorf("%w: failed to parse minor version: %v", ErrParse, err)
	}
	return Version{Major: uint32(major), Minor: uint32(minor)}, nil
}
