package internal

import (
	"fmt"

	"github.com/goplus/ccbuild/internal/env"
	"github.com/goplus/ccbuild/internal/flags"
	"github.com/goplus/ccbuild/internal/manifest"
	"github.com/goplus/ccbuild/internal/target"
	"github.com/goplus/ccbuild/internal/toolchain"
	"github.com/goplus/ccbuild/internal/unit"
	"github.com/spf13/cobra"
)

var flagsLink bool

var flagsCmd = &cobra.Command{
	Use:   "flags <file>",
	Short: "Print the compiler flags selected for a source file",
	Long: `Flags prints, one per line, the flags the build would pass when compiling
file for the target in the environment. With --link it prints the archive
link flags instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runFlags,
}

func init() {
	flagsCmd.Flags().BoolVar(&flagsLink, "link", false, "Print link flags")
	rootCmd.AddCommand(flagsCmd)
}

func runFlags(cmd *cobra.Command, args []string) error {
	in, err := env.Load(lookupEnv)
	if err != nil {
		return err
	}
	tgt := target.New(in)

	// The manifest is optional here; it only customizes link flags and the
	// nostdlibinc define.
	var m manifest.Manifest
	if loaded, err := manifest.Load(in.RootDir, manifestName); err == nil {
		m = *loaded
	}

	var list []string
	if flagsLink {
		list = flags.Link(tgt, m.LinkFlags)
	} else {
		var cc toolchain.Compiler
		if flags.WantsNoStdlibInc(tgt) {
			cc = toolchain.Detect(cmd.Context(), runner, toolchain.Resolve(in, tgt).CC, tgt)
		}
		list, err = flags.Compile(flags.Options{
			Target:            tgt,
			Kind:              unit.KindOf(args[0]),
			Path:              args[0],
			WarningsAreErrors: tgt.IsSourceCheckout,
			OptLevel:          in.OptLevel,
			Compiler:          cc,
			NoStdlibIncDefine: m.NoStdlibIncDefine,
		})
		if err != nil {
			return err
		}
	}
	w := cmd.OutOrStdout()
	for _, f := range list {
		fmt.Fprintln(w, f)
	}
	return nil
}
