package internal

import (
	"os"

	"github.com/goplus/ccbuild/internal/env"
	"github.com/qiniu/x/log"
	"github.com/spf13/cobra"
)

var (
	verbose      bool
	manifestName string
)

// lookupEnv is replaced in tests.
var lookupEnv env.LookupFunc = os.LookupEnv

var rootCmd = &cobra.Command{
	Use:   "ccbuild",
	Short: "ccbuild compiles C and assembly sources into static libraries",
	Long: `ccbuild compiles the C and assembly sources declared in ccbuild.yaml into
static libraries for the target described by the invoking build tool, and
prints link directives for it on stdout.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			log.SetOutputLevel(log.Ldebug)
		} else {
			log.SetOutputLevel(log.Linfo)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&manifestName, "manifest", "ccbuild.yaml", "Build definition, relative to the project root")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		log.Fatal(err)
	}
}
