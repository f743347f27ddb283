/*
Copyright © 2022 Morgan Gangwere <morgan.gangwere@gmail.com>
*/
package cmd

import "github.com/spf13/cobra"

// gendocsCmd is a hidden command that regenerates the CLI's markdown
// reference under ./docs/gccocf.
var gendocsCmd = &cobra.Command{
	Use:    "gendocs",
	Short:  "Regenerate the command reference markdown",
	Hidden: true,
	Run: func(cmd *cobra.Command, args []string) {
		GenDocs()
	},
}

func init() {
	rootCmd.AddCommand(gendocsCmd)
}
