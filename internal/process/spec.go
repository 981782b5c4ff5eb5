package process

import "path/filepath"

const DefaultExecutable = "dreamseeker.exe"

// Spec describes one runtime launch.
type Spec struct {
	InstallDir string `json:"install_dir"`
	Executable string `json:"executable"` // relative to InstallDir/bin, default DefaultExecutable
	Address    string `json:"address"`    // host:port handed to the runtime as its only argument
}

// ExecutablePath returns the interactive launcher path inside InstallDir.
func (s Spec) ExecutablePath() string {
	exe := s.Executable
	if exe == "" {
		exe = DefaultExecutable
	}
	return filepath.Join(s.InstallDir, "bin", exe)
}
