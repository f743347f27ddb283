/*
Copyright © 2022 Morgan Gangwere <morgan.gangwere@gmail.com>
*/
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	"github.com/gcomneno/onion-compressor-framework/internal/errs"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gccocf",
	Short: "gccocf is a lossless compression container and directory packer",
	Long: `gccocf implements the v6 compression container, the MBN
multi-stream bundle, the semantic layer registry, the GCA1 bucket
archive, and a directory packer that autopicks a compression plan per
bucket of similar files.
`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately, translating a typed core error into the taxonomy's
// stable exit code. It only needs to happen once to rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		code := errs.ExitCodeOf(err)
		if code == errs.ExitOK {
			code = errs.ExitGeneric
		}
		os.Exit(code)
	}
}

func GenDocs() {
	if err := os.MkdirAll("./docs/gccocf", 0775); err != nil {
		fmt.Println("failed to make dir:", err)
		return
	}
	if err := doc.GenMarkdownTree(rootCmd, "./docs/gccocf"); err != nil {
		fmt.Println("failed to make docs:", err)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Write detailed information to the terminal")
}

func logger(cmd *cobra.Command) *slog.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}
