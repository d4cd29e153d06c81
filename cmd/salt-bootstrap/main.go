package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/s0undt3ch/salt-bootstrap/internal/config"
	"github.com/s0undt3ch/salt-bootstrap/internal/output"
)

var rootCmd = &cobra.Command{
	Use:               "salt-bootstrap",
	Short:             "Bootstrap Salt on the running operating system",
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if app.session != nil {
			app.session.Close()
		}
	},
}

// app holds what setup configured for the running command.
var app struct {
	cfg     *config.Config
	session *output.Session
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", config.DefaultPath(), "path to the config file")
	pf.String("tempdir", "", "temp directory used by salt-bootstrap (default $TMPDIR/salt-bootstrap)")
	pf.StringP("log-level", "l", "", "log level: debug, info, warning, error or critical (default info)")
	pf.String("log-file", "", "path to the bootstrap log file (default $TMPDIR/salt-bootstrap.log)")
	pf.BoolP("force-color", "c", false, "force colored output")
	pf.BoolP("no-color", "C", false, "disable colored output")
	rootCmd.MarkFlagsMutuallyExclusive("force-color", "no-color")
}

func main() {
	output.Hold()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil && app.session == nil {
		// Logging never got configured.
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(exitCode(err, app.cfg))
}

// setup loads the config file, applies flag overrides and configures the
// console and log file.
func setup(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()

	path, _ := flags.GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	for flag, field := range map[string]*string{
		"tempdir":   &cfg.TempDir,
		"log-level": &cfg.LogLevel,
		"log-file":  &cfg.LogFile,
	} {
		if flags.Changed(flag) {
			*field, _ = flags.GetString(flag)
		}
	}
	if force, _ := flags.GetBool("force-color"); force {
		cfg.Color = string(output.ColorAlways)
	}
	if never, _ := flags.GetBool("no-color"); never {
		cfg.Color = string(output.ColorNever)
	}

	level, err := output.ParseLevel(cfg.LogLevelOrDefault())
	if err != nil {
		return err
	}
	color, err := output.ParseColorMode(cfg.ColorOrDefault())
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.TempDirOrDefault(), 0o755); err != nil {
		return fmt.Errorf("creating temp dir: %w", err)
	}

	session, err := output.Setup(output.Config{
		Level:   level,
		Color:   color,
		LogFile: cfg.LogFileOrDefault(),
	})
	if err != nil {
		return err
	}

	app.cfg = cfg
	app.session = session
	return nil
}
