package cli

import (
	"runtime"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/vigil/internal/adapters/driving/mcp"
	"github.com/custodia-labs/vigil/internal/chunker"
)

var versionVerbose bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run:   runVersion,
}

func init() {
	versionCmd.Flags().BoolVar(&versionVerbose, "build", false, "also print build and runtime details")
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, _ []string) {
	cmd.Printf("vigil version %s\n", version)
	if !versionVerbose {
		return
	}
	exts := chunker.SupportedExtensions()
	slices.Sort(exts)
	cmd.Printf("  go:         %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	cmd.Printf("  mcp server: %s\n", mcp.Version)
	cmd.Printf("  extensions: %s\n", strings.Join(exts, " "))
}
