package main

import "time"

// APIFlags point a command at a running launcher. An empty Token is read
// from the token file serve writes.
type APIFlags struct {
	URL     string
	Token   string
	Timeout time.Duration
}

type ProbeFlags struct {
	InstallDir string
}

type CheckFlags struct {
	InstallDir string
}

// VersionFlags select an installer version; zero for both means the
// version the servers currently require.
type VersionFlags struct {
	Major uint32
	Minor uint32
}

type InstallFlags struct {
	InstallerPath string
}

type LaunchFlags struct {
	Address    string
	InstallDir string
	API        APIFlags
}

type RunningFlags struct {
	Anywhere bool
	API      APIFlags
}

type StatusFlags struct {
	API APIFlags
}

type PresenceFlags struct {
	State    string
	Details  string
	Activity string
	Server   string
	API      APIFlags
}
