/*
Copyright © 2022 Morgan Gangwere <morgan.gangwere@gmail.com>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gcomneno/onion-compressor-framework/internal/decode"
	"github.com/gcomneno/onion-compressor-framework/internal/errs"
)

// decompressCmd represents the decompress command
var decompressCmd = &cobra.Command{
	Use:   "decompress <infile> <outfile>",
	Short: "Reconstruct the original bytes from any supported container version",
	Long: `Decompress reads a v1-v6 container, resolves its layer and
codec(s), and writes the reconstructed plaintext.

example:

gccocf decompress out.gcc back.txt`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		buf, err := os.ReadFile(args[0])
		if err != nil {
			return errs.NewUsageError("decompress: failed to read input", err)
		}
		info, err := decode.Decode(buf)
		if err != nil {
			return err
		}
		if err := os.WriteFile(args[1], info.Data, 0o644); err != nil {
			return errs.NewUsageError("decompress: failed to write output", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (layer=%s codec=%s, %d bytes)\n", args[0], args[1], info.Layer, info.Codec, len(info.Data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(decompressCmd)
}
