package internal

import (
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/goplus/ccbuild/internal/build"
	"github.com/goplus/ccbuild/internal/env"
	"github.com/goplus/ccbuild/internal/manifest"
	"github.com/goplus/ccbuild/internal/target"
	"github.com/goplus/ccbuild/internal/toolchain"
	"github.com/gookit/color"
	"github.com/spf13/cobra"
)

var (
	buildOutDir      string
	buildJobs        int
	buildContentHash bool
)

// runner is replaced in tests.
var runner toolchain.Runner = toolchain.ExecRunner{}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build every declared library and print link directives",
	Long: `Build reads the target from the environment set by the invoking build tool,
compiles out-of-date sources, refreshes archives and prints one link
directive per library followed by the search path.`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVarP(&buildOutDir, "out-dir", "o", "", "Output directory (default $OUT_DIR)")
	buildCmd.Flags().IntVarP(&buildJobs, "jobs", "j", runtime.NumCPU(), "Concurrent compilations per library")
	buildCmd.Flags().BoolVar(&buildContentHash, "content-hash", false, "Decide staleness by content instead of modification time")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	in, err := env.Load(lookupEnv)
	if err != nil {
		return err
	}
	if buildOutDir != "" {
		in.OutDir = buildOutDir
	}
	outDir, err := in.RequireOutDir()
	if err != nil {
		return err
	}
	m, err := manifest.Load(in.RootDir, manifestName)
	if err != nil {
		return fmt.Errorf("failed to load manifest: %w", err)
	}
	tgt := target.New(in)

	b, err := build.NewBuilder(build.Options{
		Target:      tgt,
		Manifest:    m,
		RootDir:     in.RootDir,
		OutDir:      outDir,
		OptLevel:    in.OptLevel,
		WasmFeature: in.WasmFeature,
		Tools:       toolchain.Resolve(in, tgt),
		Runner:      runner,
		Jobs:        buildJobs,
		ContentHash: buildContentHash,
		Stdout:      cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}
	res, err := b.Build(cmd.Context())
	if err != nil {
		return err
	}
	printSummary(cmd, res, outDir)
	return nil
}

func printSummary(cmd *cobra.Command, res *build.Result, outDir string) {
	w := cmd.ErrOrStderr()
	if res.Skipped {
		fmt.Fprintln(w, color.Warn.Sprint("native build skipped"))
		return
	}
	for _, lr := range res.Libraries {
		state := color.Gray.Sprint("up to date")
		if lr.Rebuilt {
			state = color.Success.Sprintf("rebuilt (%d compiled)", lr.Compiled)
		}
		rel, err := filepath.Rel(outDir, lr.Archive)
		if err != nil {
			rel = lr.Archive
		}
		fmt.Fprintf(w, "%-12s %-24s %s\n", lr.Name, rel, state)
	}
}
