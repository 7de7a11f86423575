package internal

import (
	"errors"
	"fmt"
	"os"

	"github.com/goplus/ccbuild/internal/audit"
	"github.com/goplus/ccbuild/internal/env"
	"github.com/goplus/ccbuild/internal/manifest"
	"github.com/gookit/color"
	"github.com/spf13/cobra"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Check that every source and header on disk is declared",
	Long: `Audit walks the manifest's audit roots and reports every header missing from
includes and every C, assembly or generator source missing from all
libraries.`,
	Args: cobra.NoArgs,
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	m, err := manifest.Load(root, manifestName)
	if err != nil {
		return fmt.Errorf("failed to load manifest: %w", err)
	}
	err = audit.Run(os.DirFS(root), m)
	var ue *audit.UntrackedError
	if errors.As(err, &ue) {
		w := cmd.ErrOrStderr()
		for _, p := range ue.Paths {
			fmt.Fprintln(w, color.Danger.Sprintf("untracked: %s", p))
		}
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), color.Success.Sprint("all files tracked"))
	return nil
}

// projectRoot is the build tool's manifest directory, or the working
// directory when run by hand.
func projectRoot() (string, error) {
	if dir, ok := lookupEnv(env.KeyManifestDir); ok && dir != "" {
		return dir, nil
	}
	return os.Getwd()
}
