package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/s0undt3ch/salt-bootstrap/internal/subprocess"
)

type runSummary struct {
	RunID    string   `json:"run_id"`
	Args     []string `json:"args"`
	ExitCode int      `json:"exit_code"`
	Duration string   `json:"duration"`
	Stdout   string   `json:"stdout"`
	Stderr   string   `json:"stderr"`
}

var runCmd = &cobra.Command{
	Use:   "run [flags] -- COMMAND [ARGS...]",
	Short: "Run a command, mirroring and capturing its output",
	Long: `Run a single command the way salt-bootstrap runs installer steps: output is
shown live, copied to the log file and captured, and the command is killed
if it outlives --timeout.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.Duration("timeout", 0, "kill the command after this long (0 disables)")
	f.Bool("check", false, "fail when the command exits non-zero")
	f.String("dir", "", "working directory for the command")
	f.StringArray("env", nil, "set an environment variable, KEY=VALUE (repeatable)")
	f.String("input", "", "file whose contents are written to the command's stdin (- for our stdin)")
	f.Bool("json", false, "print a JSON summary including the captured output")
	// Everything after COMMAND belongs to it.
	f.SetInterspersed(false)
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, s := app.cfg, app.session
	flags := cmd.Flags()
	timeout, _ := flags.GetDuration("timeout")
	check, _ := flags.GetBool("check")
	dir, _ := flags.GetString("dir")
	envPairs, _ := flags.GetStringArray("env")
	inputPath, _ := flags.GetString("input")
	jsonOut, _ := flags.GetBool("json")

	c := subprocess.Command{Args: args, Dir: dir}

	if len(envPairs) > 0 {
		c.Env = make(map[string]string, len(envPairs))
		for _, kv := range envPairs {
			k, v, ok := strings.Cut(kv, "=")
			if !ok || k == "" {
				return fmt.Errorf("invalid --env %q: want KEY=VALUE", kv)
			}
			c.Env[k] = v
		}
	}

	if inputPath != "" {
		input, err := readInput(inputPath)
		if err != nil {
			return err
		}
		c.Input = input
	}

	// With --json stdout carries only the summary.
	stdout := s.Stdout
	if jsonOut {
		stdout = s.Stderr
	}

	res, err := subprocess.Run(cmd.Context(), c, subprocess.Options{
		Timeout:      timeout,
		Check:        check,
		PollInterval: cfg.PollIntervalOrDefault(),
		Stdout:       stdout,
		Stderr:       s.Stderr,
		TempDir:      cfg.TempDirOrDefault(),
	})
	if err != nil {
		return err
	}

	if res.ExitCode != 0 {
		slog.Warn("command exited non-zero", "cmd", c.String(), "exit_code", res.ExitCode)
	}
	if jsonOut {
		return printJSON(runSummary{
			RunID:    res.RunID,
			Args:     res.Args,
			ExitCode: res.ExitCode,
			Duration: res.Duration.Round(time.Millisecond).String(),
			Stdout:   res.Stdout,
			Stderr:   res.Stderr,
		})
	}
	return nil
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	return data, nil
}
