/*
Copyright © 2022 Morgan Gangwere <morgan.gangwere@gmail.com>
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gcomneno/onion-compressor-framework/internal/dirpack"
	"github.com/gcomneno/onion-compressor-framework/internal/errs"
)

// dirCmd groups the directory packer's subcommands.
var dirCmd = &cobra.Command{
	Use:   "dir",
	Short: "Pack and unpack whole directory trees",
	Long: `dir implements the directory packer: classic bucketed
mode (one GCA1 archive per bucket, autopicked plans) and the
single-container text-only and mixed modes.`,
}

var dirPackCmd = &cobra.Command{
	Use:   "pack <root> <outdir>",
	Short: "Pack a directory tree",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, _ := cmd.Flags().GetString("mode")
		root, outDir := args[0], args[1]

		switch mode {
		case "classic":
			specPath, _ := cmd.Flags().GetString("spec")
			if specPath == "" {
				return errs.NewUsageError("dir pack: --spec is required for classic mode", nil)
			}
			raw, err := os.ReadFile(specPath)
			if err != nil {
				return errs.NewUsageError("dir pack: failed to read spec", err)
			}
			spec, err := dirpack.ParseDirSpec(raw)
			if err != nil {
				return err
			}
			topDBPath, _ := cmd.Flags().GetString("topdb")
			if topDBPath == "" {
				topDBPath = filepath.Join(outDir, "top_db.json")
			}
			res, err := dirpack.PackClassic(root, outDir, spec, topDBPath, nil, logger(cmd))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "packed %d bucket(s) -> %s\n", len(res.BucketPaths), res.ManifestPath)
			return nil

		case "text":
			res, err := dirpack.PackSingleTextOnly(root)
			if err != nil {
				return err
			}
			return writeBundle(outDir, "bundle", res)

		case "mixed":
			res, err := dirpack.PackSingleMixed(root)
			if err != nil {
				return err
			}
			if res.Text != nil {
				if err := writeBundle(outDir, "text_bundle", res.Text); err != nil {
					return err
				}
			}
			if res.Bin != nil {
				if err := writeBundle(outDir, "bin_bundle", res.Bin); err != nil {
					return err
				}
			}
			return nil

		default:
			return errs.NewUsageError("dir pack: unknown --mode \""+mode+"\" (want classic, text, or mixed)", nil)
		}
	},
}

func writeBundle(outDir, name string, res *dirpack.SingleTextResult) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return errs.NewUsageError("dir pack: mkdir output", err)
	}
	if err := os.WriteFile(filepath.Join(outDir, name+".gcc"), res.Bundle, 0o644); err != nil {
		return errs.NewUsageError("dir pack: write bundle", err)
	}
	idxRaw, err := json.MarshalIndent(res.Index, "", "  ")
	if err != nil {
		return errs.NewUsageError("dir pack: marshal bundle index", err)
	}
	if err := os.WriteFile(filepath.Join(outDir, name+"_index.json"), idxRaw, 0o644); err != nil {
		return errs.NewUsageError("dir pack: write bundle index", err)
	}
	return nil
}

var dirUnpackCmd = &cobra.Command{
	Use:   "unpack <indir> <outroot>",
	Short: "Unpack a directory tree previously packed with dir pack",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, _ := cmd.Flags().GetString("mode")
		inDir, outRoot := args[0], args[1]

		switch mode {
		case "classic":
			summaryPath := filepath.Join(inDir, "bucket_summary.json")
			summaries, err := dirpack.ReadBucketSummary(summaryPath)
			if err != nil {
				return err
			}
			manifestPath := filepath.Join(inDir, "manifest.jsonl")
			return dirpack.UnpackClassic(manifestPath, inDir, dirpack.PlanByBucket(summaries), outRoot)

		case "text":
			return unpackBundleTo(inDir, "bundle", outRoot)

		case "mixed":
			for _, name := range []string{"text_bundle", "bin_bundle"} {
				if _, err := os.Stat(filepath.Join(inDir, name+".gcc")); os.IsNotExist(err) {
					continue
				}
				if err := unpackBundleTo(inDir, name, outRoot); err != nil {
					return err
				}
			}
			return nil

		default:
			return errs.NewUsageError("dir unpack: unknown --mode \""+mode+"\" (want classic, text, or mixed)", nil)
		}
	},
}

func unpackBundleTo(inDir, name, outRoot string) error {
	bundlePath := filepath.Join(inDir, name+".gcc")
	idxPath := filepath.Join(inDir, name+"_index.json")
	bundle, err := os.ReadFile(bundlePath)
	if err != nil {
		return err
	}
	idxRaw, err := os.ReadFile(idxPath)
	if err != nil {
		return errs.NewUsageError("dir unpack: read "+idxPath, err)
	}
	var idx dirpack.BundleIndex
	if err := json.Unmarshal(idxRaw, &idx); err != nil {
		return errs.NewUsageError("dir unpack: invalid bundle index JSON", err)
	}
	files, err := dirpack.UnpackSingleTextOnly(bundle, idx)
	if err != nil {
		return err
	}
	for rel, data := range files {
		outPath := filepath.Join(outRoot, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return errs.NewUsageError("dir unpack: mkdir "+filepath.Dir(outPath), err)
		}
		if err := os.WriteFile(outPath, data, 0o644); err != nil {
			return errs.NewUsageError("dir unpack: write "+outPath, err)
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(dirCmd)
	dirCmd.AddCommand(dirPackCmd)
	dirCmd.AddCommand(dirUnpackCmd)

	dirPackCmd.Flags().String("mode", "classic", "Pack mode: classic, text, or mixed")
	dirPackCmd.Flags().String("spec", "", "Path to a dir pipeline spec JSON file (classic mode)")
	dirPackCmd.Flags().String("topdb", "", "Path to the TOP db cache file (default <outdir>/top_db.json)")

	dirUnpackCmd.Flags().String("mode", "classic", "Unpack mode: classic, text, or mixed")
}
