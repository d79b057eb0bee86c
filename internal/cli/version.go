package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrz1836/shipyard/internal/tui"
)

// versionOutput is the JSON shape of the version command.
type versionOutput struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// AddVersionCommand adds the version command to the root command.
func AddVersionCommand(rootCmd *cobra.Command, flags *GlobalFlags, info BuildInfo) {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if flags.Output == OutputJSON {
				return tui.NewOutput(cmd.OutOrStdout(), OutputJSON).JSON(versionOutput{
					Version: info.Version,
					Commit:  info.Commit,
					Date:    info.Date,
				})
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "shipyard %s\n", formatVersion(info))
			return err
		},
	})
}
