/*
Copyright © 2022 Morgan Gangwere <morgan.gangwere@gmail.com>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/gcomneno/onion-compressor-framework/internal/container"
	"github.com/gcomneno/onion-compressor-framework/internal/errs"
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect <file>...",
	Short: "Investigate the structure of a container file",
	Long: `Investigate and print a v6 container's header fields: layer,
codec, flags and meta length, without decoding the payload. Files
that are not v6 containers (including legacy v1-v5 files) are
reported as such and skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, filename := range args {
			fmt.Fprintln(cmd.OutOrStdout(), filename)
			buf, err := os.ReadFile(filename)
			if err != nil {
				return errs.NewUsageError("inspect: failed to read "+filename, err)
			}
			hdr, err := container.Decode(buf)
			if err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), "  (not a v6 container:", err, ")")
				continue
			}
			explainHeader(cmd, *hdr)
		}
		return nil
	},
}

func explainHeader(cmd *cobra.Command, hdr container.Header) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "  layer: %s (%d)\n", hdr.Layer.Name(), hdr.Layer)
	fmt.Fprintf(out, "  codec: %d\n", hdr.Codec)
	fmt.Fprintf(out, "  flags: 0x%02x\n", hdr.Flags)
	fmt.Fprintf(out, "  meta length: %d\n", len(hdr.Meta))
	fmt.Fprintf(out, "  payload length: %d\n", len(hdr.Payload))

	verbose, _ := cmd.Flags().GetBool("verbose")
	if verbose {
		spew.Dump(hdr)
	}
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
