package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/s0undt3ch/salt-bootstrap/internal/distro"
	"github.com/s0undt3ch/salt-bootstrap/internal/osinfo"
)

type detectResult struct {
	Distribution osinfo.Distribution `json:"distribution"`
	InstallTypes []string            `json:"install_types"`
}

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Show the detected distribution and the install types it supports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOut, _ := cmd.Flags().GetBool("json")
		s := app.session

		d, err := osinfo.Detect()
		if err != nil {
			return err
		}
		res := detectResult{Distribution: d, InstallTypes: []string{}}
		for _, t := range []string{distro.InstallPkg, distro.InstallGit} {
			if _, err := distro.Lookup(d, t, distro.Deps{}); err == nil {
				res.InstallTypes = append(res.InstallTypes, t)
			}
		}

		if jsonOut {
			return printJSON(res)
		}

		fmt.Fprintf(s.Stdout, "          - Distribution: %s\n", s.Bold(d.Name))
		fmt.Fprintf(s.Stdout, "  - Distribution Version: %s\n", s.Bold(d.Version))
		fmt.Fprintf(s.Stdout, " - Distribution Codename: %s\n", s.Bold(d.Codename))
		if len(res.InstallTypes) == 0 {
			fmt.Fprintln(s.Stdout, "\nThis distribution is not supported. Supported:")
			for _, slug := range distro.Supported() {
				fmt.Fprintf(s.Stdout, "  %s\n", slug)
			}
			return nil
		}
		fmt.Fprintf(s.Stdout, "\nSupported install types: %v\n", res.InstallTypes)
		return nil
	},
}

func init() {
	detectCmd.Flags().Bool("json", false, "output as JSON")
	rootCmd.AddCommand(detectCmd)
}
