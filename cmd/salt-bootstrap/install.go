package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/s0undt3ch/salt-bootstrap/internal/config"
	"github.com/s0undt3ch/salt-bootstrap/internal/distro"
	"github.com/s0undt3ch/salt-bootstrap/internal/installer"
)

var installCmd = &cobra.Command{
	Use:   "install [INSTALL_TYPE] [SALT_VERSION]",
	Short: "Install salt on this system",
	Long: `Install salt using the system packages (INSTALL_TYPE "pkg", the default)
or from a git checkout into a virtualenv (INSTALL_TYPE "git").
SALT_VERSION defaults to "latest".`,
	Args: cobra.MaximumNArgs(2),
	RunE: runInstall,
}

func init() {
	f := installCmd.Flags()
	f.String("repo", "", "git repository used by git installs (default "+config.UpstreamRepo+")")
	f.String("ref", "", "branch, tag or commit to check out (default v<SALT_VERSION>)")
	f.String("virtualenv", "", "bootstrap salt into this virtualenv; installs all requirements from PyPI")
	f.String("virtualenv-python", "", "python binary used to create the virtualenv (default: first python3 on PATH)")
	f.Duration("timeout", 0, "timeout for each command run during the install (default 5m)")
	f.Bool("json", false, "print the result as JSON")
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	cfg, s := app.cfg, app.session
	flags := cmd.Flags()
	jsonOut, _ := flags.GetBool("json")

	installType, saltVersion := distro.InstallPkg, "latest"
	if len(args) > 0 {
		installType = args[0]
	}
	if len(args) > 1 {
		saltVersion = args[1]
	}
	if installType != distro.InstallPkg && installType != distro.InstallGit {
		return fmt.Errorf("unknown install type %q (want %s or %s)", installType, distro.InstallPkg, distro.InstallGit)
	}

	for flag, field := range map[string]*string{
		"repo":              &cfg.Repo,
		"ref":               &cfg.Ref,
		"virtualenv":        &cfg.Virtualenv,
		"virtualenv-python": &cfg.VirtualenvPython,
	} {
		if flags.Changed(flag) {
			*field, _ = flags.GetString(flag)
		}
	}
	if flags.Changed("timeout") {
		cfg.CommandTimeout.Duration, _ = flags.GetDuration("timeout")
	}

	slog.Warn("Buckle Up!")
	slog.Info(s.Bold("Temporary Directory Path") + ": " + cfg.TempDirOrDefault())
	slog.Info(s.Bold("Bootstrap log file path") + ": " + s.LogPath())

	in := &installer.Installer{
		Deps: distro.Deps{
			Runner: &distro.CommandRunner{
				Timeout:      cfg.CommandTimeoutOrDefault(),
				PollInterval: cfg.PollIntervalOrDefault(),
				Stdout:       s.Stdout,
				Stderr:       s.Stderr,
				TempDir:      cfg.TempDirOrDefault(),
			},
		},
	}
	report, err := in.Install(cmd.Context(), installer.Options{
		InstallType:      installType,
		SaltVersion:      saltVersion,
		TempDir:          cfg.TempDirOrDefault(),
		Repo:             cfg.RepoOrDefault(),
		Ref:              cfg.Ref,
		Virtualenv:       cfg.Virtualenv,
		VirtualenvPython: cfg.VirtualenvPython,
	})
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(report)
	}
	fmt.Fprintf(s.Stdout, "Salt %s installed on %s (%s install)\n",
		s.Bold(report.SaltVersion), s.Bold(report.Distribution.String()), report.InstallType)
	if report.Virtualenv != "" {
		fmt.Fprintf(s.Stdout, "Virtualenv: %s\n", report.Virtualenv)
	}
	return nil
}
