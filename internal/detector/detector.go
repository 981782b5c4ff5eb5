// Package detector answers "is the runtime running" without a process
// handle, for runtimes the launcher did not start itself.
package detector

// Detector reports whether a runtime process exists. Implementations must be
// safe for concurrent use; an error means the answer is unknown.
type Detector interface {
	Alive() (bool, error)
	// Describe names the detection method, e.g. "name:dreamseeker.exe".
	Describe() string
}
