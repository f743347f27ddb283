/*
Copyright © 2022 Morgan Gangwere <morgan.gangwere@gmail.com>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gcomneno/onion-compressor-framework/internal/errs"
	"github.com/gcomneno/onion-compressor-framework/internal/verify"
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify <archive>...",
	Short: "Verify a GCA1 archive's structural and content integrity",
	Long: `Verify checks a GCA1 archive against its own trailer and
index. Light mode (the default) validates the trailer, the index
body's declared hash, and required-resource presence. Full mode adds a
streaming per-blob hash recomputation.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		full, _ := cmd.Flags().GetBool("full")
		required, _ := cmd.Flags().GetStringSlice("require-resource")

		var worst error
		for _, path := range args {
			var rep *verify.Report
			var err error
			if full {
				rep, err = verify.FullArchive(path, required)
			} else {
				rep, err = verify.LightArchive(path, required)
			}
			if err != nil {
				return err
			}
			if rep.OK {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: OK (%s)\n", path, rep.Mode)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: FAILED (%s)\n", path, rep.Mode)
			for _, e := range rep.Errors {
				fmt.Fprintln(cmd.OutOrStdout(), "  -", e)
			}
			if worst == nil || errs.Severity(rep.MostSevere) > errs.Severity(worst) {
				worst = rep.MostSevere
			}
		}
		if worst != nil {
			return worst
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().Bool("full", false, "Run full verify (recompute every blob's hash)")
	verifyCmd.Flags().StringSlice("require-resource", nil, "Fail if a named resource is missing (repeatable)")
}
