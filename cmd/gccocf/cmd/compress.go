/*
Copyright © 2022 Morgan Gangwere <morgan.gangwere@gmail.com>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gcomneno/onion-compressor-framework/internal/errs"
	"github.com/gcomneno/onion-compressor-framework/internal/pipeline"
)

// compressCmd represents the compress command
var compressCmd = &cobra.Command{
	Use:   "compress <infile> <outfile>",
	Short: "Compress a file into a v6 container",
	Long: `Compress runs a pipeline spec against a file and writes the
resulting v6 container.

The pipeline can be given either as a JSON spec file (--spec) or built
up from flags (--layer, --codec, --stream-codec NAME=codec, --mbn).

example:

gccocf compress --layer bytes --codec zlib in.txt out.gcc
gccocf compress --spec pipeline.json in.txt out.gcc`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		specPath, _ := cmd.Flags().GetString("spec")
		layerName, _ := cmd.Flags().GetString("layer")
		codecName, _ := cmd.Flags().GetString("codec")
		streamCodecs, _ := cmd.Flags().GetStringToString("stream-codec")
		mbnFlagSet := cmd.Flags().Changed("mbn")
		mbnVal, _ := cmd.Flags().GetBool("mbn")

		var spec *pipeline.Spec
		if specPath != "" {
			raw, err := os.ReadFile(specPath)
			if err != nil {
				return errs.NewUsageError("compress: failed to read spec file", err)
			}
			spec, err = pipeline.Parse(raw)
			if err != nil {
				return err
			}
		} else {
			if layerName == "" {
				return errs.NewUsageError("compress: either --spec or --layer is required", nil)
			}
			spec = &pipeline.Spec{SpecName: pipeline.SpecSchema, Layer: layerName, Codec: codecName, StreamCodecs: streamCodecs}
			if mbnFlagSet {
				spec.MBN = &mbnVal
			}
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return errs.NewUsageError("compress: failed to read input", err)
		}
		out, err := pipeline.Compress(data, spec)
		if err != nil {
			return err
		}
		if err := os.WriteFile(args[1], out, 0o644); err != nil {
			return errs.NewUsageError("compress: failed to write output", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (%d -> %d bytes)\n", args[0], args[1], len(data), len(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(compressCmd)
	compressCmd.Flags().String("spec", "", "Path to a pipeline spec JSON file")
	compressCmd.Flags().String("layer", "", "Layer id (e.g. bytes, vc0, split_text_nums)")
	compressCmd.Flags().String("codec", "", "Default codec for unnamed streams (default zlib)")
	compressCmd.Flags().StringToString("stream-codec", nil, "Per-stream codec override, NAME=codec (repeatable)")
	compressCmd.Flags().Bool("mbn", false, "Force MBN framing on/off (absent = auto)")
}
