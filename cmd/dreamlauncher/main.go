package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GlobalFlags holds persistent flags shared by every command
type GlobalFlags struct {
	ConfigPath string
}

// buildRoot creates the root command with all subcommands attached
func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	root := createRootCommand(globalFlags)

	root.AddCommand(
		createProbeCommand(globalFlags),
		createCheckCommand(globalFlags),
		createDownloadCommand(globalFlags),
		createInstallCommand(globalFlags),
		createAcquireCommand(globalFlags),
		createLaunchCommand(globalFlags),
		createRunningCommand(globalFlags),
		createStatusCommand(globalFlags),
		createPresenceCommand(globalFlags),
		createServeCommand(globalFlags),
	)
	return root
}

func newCommand(cmd *cobra.Command, g *GlobalFlags) command {
	return command{configPath: g.ConfigPath, out: cmd.OutOrStdout()}
}

// createRootCommand creates the root command with minimal persistent flags
func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "dreamlauncher",
		Short: "BYOND runtime launcher",
		Long: `Dreamlauncher checks, installs and launches the BYOND DreamSeeker runtime
and mirrors what you are playing to Discord.

Examples:
  dreamlauncher check                          # Compare installed and required version
  dreamlauncher acquire                        # Download and install the required version
  dreamlauncher serve                          # Start the local launcher API
  dreamlauncher launch --address=play.example.org:1337`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file (optional)")
	return root
}

func addAPIFlags(cmd *cobra.Command, f *APIFlags) {
	cmd.Flags().StringVar(&f.URL, "api-url", "", "launcher API URL (default from [server] config, e.g. http://127.0.0.1:8765/api)")
	cmd.Flags().StringVar(&f.Token, "api-token", "", "API bearer token (default read from the [server] token_file)")
	cmd.Flags().DurationVar(&f.Timeout, "api-timeout", 10*time.Second, "request timeout")
}

func addVersionFlags(cmd *cobra.Command, f *VersionFlags) {
	cmd.Flags().Uint32Var(&f.Major, "major", 0, "runtime major version (default: required version)")
	cmd.Flags().Uint32Var(&f.Minor, "minor", 0, "runtime minor version (default: required version)")
}

func mustRequire(cmd *cobra.Command, names ...string) {
	for _, n := range names {
		if err := cmd.MarkFlagRequired(n); err != nil {
			panic(err) // This should never happen during setup
		}
	}
}

func createProbeCommand(g *GlobalFlags) *cobra.Command {
	f := &ProbeFlags{}
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Print the installed runtime version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return newCommand(cmd, g).Probe(*f)
		},
	}
	cmd.Flags().StringVar(&f.InstallDir, "install-dir", "", "runtime install directory")
	return cmd
}

func createCheckCommand(g *GlobalFlags) *cobra.Command {
	f := &CheckFlags{}
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Compare the installed runtime with the required version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return newCommand(cmd, g).Check(cmd.Context(), *f)
		},
	}
	cmd.Flags().StringVar(&f.InstallDir, "install-dir", "", "runtime install directory")
	return cmd
}

func createDownloadCommand(g *GlobalFlags) *cobra.Command {
	f := &VersionFlags{}
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download the runtime installer",
		Long: `Download the installer for a runtime version, trying the primary mirror
and then the secondary one.

Examples:
  dreamlauncher download
  dreamlauncher download --major=516 --minor=1663`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return newCommand(cmd, g).Download(cmd.Context(), *f)
		},
	}
	addVersionFlags(cmd, f)
	return cmd
}

func createInstallCommand(g *GlobalFlags) *cobra.Command {
	f := &InstallFlags{}
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Run a downloaded installer and verify the install",
		RunE: func(cmd *cobra.Command, args []string) error {
			return newCommand(cmd, g).Install(*f)
		},
	}
	cmd.Flags().StringVar(&f.InstallerPath, "installer", "", "installer path (required)")
	mustRequire(cmd, "installer")
	return cmd
}

func createAcquireCommand(g *GlobalFlags) *cobra.Command {
	f := &VersionFlags{}
	cmd := &cobra.Command{
		Use:   "acquire",
		Short: "Download and install a runtime version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return newCommand(cmd, g).Acquire(cmd.Context(), *f)
		},
	}
	addVersionFlags(cmd, f)
	return cmd
}

func createLaunchCommand(g *GlobalFlags) *cobra.Command {
	f := &LaunchFlags{}
	cmd := &cobra.Command{
		Use:   "launch",
		Short: "Launch the runtime connected to a server",
		Long: `Ask the running launcher to start DreamSeeker for a server address.
The launcher keeps the process handle, so 'dreamlauncher serve' must be running.

Examples:
  dreamlauncher launch --address=play.example.org:1337
  dreamlauncher launch --address=127.0.0.1:4000 --install-dir="C:/BYOND"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return newCommand(cmd, g).Launch(cmd.Context(), *f)
		},
	}
	cmd.Flags().StringVar(&f.Address, "address", "", "server address host:port (required)")
	cmd.Flags().StringVar(&f.InstallDir, "install-dir", "", "runtime install directory")
	addAPIFlags(cmd, &f.API)
	mustRequire(cmd, "address")
	return cmd
}

func createRunningCommand(g *GlobalFlags) *cobra.Command {
	f := &RunningFlags{}
	cmd := &cobra.Command{
		Use:   "running",
		Short: "Report whether the runtime is running",
		Long: `Report whether the runtime started by the launcher is still alive.
With --anywhere, any DreamSeeker process on this machine counts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return newCommand(cmd, g).Running(cmd.Context(), *f)
		},
	}
	cmd.Flags().BoolVar(&f.Anywhere, "anywhere", false, "search the process table instead of the tracked handle")
	addAPIFlags(cmd, &f.API)
	return cmd
}

func createStatusCommand(g *GlobalFlags) *cobra.Command {
	f := &StatusFlags{}
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show launcher status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return newCommand(cmd, g).Status(cmd.Context(), *f)
		},
	}
	addAPIFlags(cmd, &f.API)
	return cmd
}

func createPresenceCommand(g *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presence",
		Short: "Discord presence commands",
		Long: `Update or clear the Discord presence of the running launcher.

Examples:
  dreamlauncher presence set --activity=launcher
  dreamlauncher presence set --activity=in_game --server=play.example.org:1337
  dreamlauncher presence set --state="AFK" --details="Back soon"
  dreamlauncher presence clear`,
	}

	setFlags := &PresenceFlags{}
	set := &cobra.Command{
		Use:   "set",
		Short: "Publish a presence update",
		RunE: func(cmd *cobra.Command, args []string) error {
			return newCommand(cmd, g).PresenceSet(cmd.Context(), *setFlags)
		},
	}
	set.Flags().StringVar(&setFlags.State, "state", "", "presence state line")
	set.Flags().StringVar(&setFlags.Details, "details", "", "presence details line (with --state)")
	set.Flags().StringVar(&setFlags.Activity, "activity", "", "named activity: launcher or in_game")
	set.Flags().StringVar(&setFlags.Server, "server", "", "server shown for the in_game activity")
	set.MarkFlagsMutuallyExclusive("activity", "state")
	set.MarkFlagsMutuallyExclusive("activity", "details")
	addAPIFlags(set, &setFlags.API)

	clearFlags := &PresenceFlags{}
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Close the presence connection",
		RunE: func(cmd *cobra.Command, args []string) error {
			return newCommand(cmd, g).PresenceClear(cmd.Context(), *clearFlags)
		},
	}
	addAPIFlags(clearCmd, &clearFlags.API)

	cmd.AddCommand(set, clearCmd)
	return cmd
}

func createServeCommand(g *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve [config.toml]",
		Short: "Start the launcher API",
		Long: `Start the local launcher API, the liveness watch that drives presence,
and the metrics endpoint when [metrics] is enabled. Stops on SIGINT or SIGTERM.

Examples:
  dreamlauncher serve
  dreamlauncher serve config.toml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := g.ConfigPath
			if len(args) > 0 {
				configPath = args[0]
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, configPath, cmd.OutOrStdout())
		},
	}
}
