package library

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goplus/ccbuild/internal/toolchain"
	"github.com/qiniu/x/log"
)

// Archiver writes a static library from object files.
type Archiver interface {
	Archive(ctx context.Context, out string, objs, linkFlags []string) error
}

// ToolArchiver archives with ar, or lib.exe on MSVC. The archive is written
// to a temporary file beside out and renamed over it once the tool succeeds,
// so a failed run leaves the previous archive in place and members of
// removed sources do not linger.
//
// Neither ar nor lib.exe consumes driver-level link flags; they are logged
// and left for the final link performed by the consumer of the directives.
type ToolArchiver struct {
	Path   string
	MSVC   bool
	Runner toolchain.Runner
}

func (a ToolArchiver) Archive(ctx context.Context, out string, objs, linkFlags []string) error {
	tmp := tempName(out)
	if err := os.Remove(tmp); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	log.Debugf("archive %s, link flags %v", out, linkFlags)
	if err := a.Runner.Run(ctx, a.Command(tmp, objs)); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, out)
}

// tempName keeps the archive's extension; lib.exe infers the output kind
// from it.
func tempName(out string) string {
	return filepath.Join(filepath.Dir(out), ".tmp-"+filepath.Base(out))
}

// Command returns the archiver invocation for out.
func (a ToolArchiver) Command(out string, objs []string) toolchain.Command {
	var args []string
	if a.MSVC {
		args = append(args, "/nologo", "/OUT:"+out)
	} else {
		args = append(args, "crs", out)
	}
	args = append(args, objs...)
	return toolchain.Command{Path: a.Path, Args: args}
}
