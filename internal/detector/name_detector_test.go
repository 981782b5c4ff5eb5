package detector

import (
	"os"
	"testing"

	gopsproc "github.com/shirou/gopsutil/v4/process"
)

func TestMatches(t *testing.T) {
	cases := []struct {
		have, want string
		ok         bool
	}{
		{"dreamseeker.exe", "dreamseeker.exe", true},
		{"DreamSeeker.EXE", "dreamseeker.exe", true},
		{"dreamseeker", "dreamseeker.exe", true},
		{"dreamseeker.exe", "DreamSeeker", true},
		{"dreamdaemon.exe", "dreamseeker.exe", false},
		{"dreamseeker2.exe", "dreamseeker.exe", false},
		{".exe", ".exe", true},
		{"anything", "", false},
	}
	for _, tc := range cases {
		if got := matches(tc.have, tc.want); got != tc.ok {
			t.Errorf("matches(%q, %q) = %v, want %v", tc.have, tc.want, got, tc.ok)
		}
	}
}

func TestProcessNameDetectorFindsSelf(t *testing.T) {
	self, err := gopsproc.NewProcess(int32(os.Getpid()))
	if err != nil {
		t.Skipf("process table unavailable: %v", err)
	}
	name, err := self.Name()
	if err != nil || name == "" {
		t.Skipf("own process name unavailable: %v", err)
	}

	d := ProcessNameDetector{Name: name}
	alive, err := d.Alive()
	if err != nil {
		t.Fatalf("Alive: %v", err)
	}
	if !alive {
		t.Fatalf("expected to find own process %q", name)
	}
	if d.Describe() != "name:"+name {
		t.Fatalf("Describe mismatch: %q", d.Describe())
	}
}

func TestProcessNameDetectorMissing(t *testing.T) {
	d := ProcessNameDetector{Name: "__definitely_not_running__.exe"}
	alive, err := d.Alive()
	if err != nil {
		t.Fatalf("Alive: %v", err)
	}
	if alive {
		t.Fatal("unexpected match")
	}
}

func TestDetectorInterface(t *testing.T) {
	var _ Detector = ProcessNameDetector{}
}
