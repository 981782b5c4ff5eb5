package client

import "time"

// Version is a runtime version as reported by the API.
type Version struct {
	Major   uint32 `json:"major"`
	Minor   uint32 `json:"minor"`
	Version string `json:"version,omitempty"`
}

// VersionStatus compares the installed runtime with the required one.
type VersionStatus struct {
	Installed bool     `json:"installed"`
	Current   bool     `json:"current"`
	Have      *Version `json:"have,omitempty"`
	Want      *Version `json:"want,omitempty"`
	ProbeErr  string   `json:"probe_error,omitempty"`
}

// DownloadOutcome is the result of fetching an installer.
type DownloadOutcome struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	InstallerPath string `json:"installer_path"`
	Source        string `json:"source"`
}

// InstallOutcome is the result of running an installer.
type InstallOutcome struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// LaunchRequest starts the runtime for Address. InstallDir is optional.
type LaunchRequest struct {
	Address    string `json:"address"`
	InstallDir string `json:"install_dir,omitempty"`
}

// PresenceRequest sets a raw State/Details pair or a named Activity
// ("launcher" or "in_game" with Server).
type PresenceRequest struct {
	State    string `json:"state,omitempty"`
	Details  string `json:"details,omitempty"`
	Activity string `json:"activity,omitempty"`
	Server   string `json:"server,omitempty"`
}

// RuntimeStatus is the tracked runtime session.
type RuntimeStatus struct {
	Name       string    `json:"name"`
	Running    bool      `json:"running"`
	PID        int       `json:"pid"`
	Address    string    `json:"address"`
	StartedAt  time.Time `json:"started_at"`
	StoppedAt  time.Time `json:"stopped_at"`
	ExitErr    string    `json:"exit_error,omitempty"`
	DetectedBy string    `json:"detected_by"`
}

// Status is the combined launcher status.
type Status struct {
	InstallDir   string        `json:"install_dir"`
	LaunchMethod string        `json:"launch_method"`
	Runtime      RuntimeStatus `json:"runtime"`
	Presence     string        `json:"presence"`
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}
