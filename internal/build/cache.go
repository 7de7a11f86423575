package build

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goplus/ccbuild/internal/staleness"
)

// Output directory layout:
//
//	outDir/
//	  .ccbuild.lock         # held for the duration of a run
//	  .ccbuild-cache.json   # content-hash record, only with ContentHash
//	  <src dir>/*.o|*.obj   # one object per unit, mirroring the source tree
//	  lib<name>.a | <name>.lib
const (
	lockFile  = ".ccbuild.lock"
	cacheFile = ".ccbuild-cache.json"
)

// loadCache reads the hash record from outDir. A missing file yields
// (nil, nil); a corrupt one is an error so that it is never silently
// trusted.
func loadCache(outDir string) (*staleness.Record, error) {
	data, err := os.ReadFile(filepath.Join(outDir, cacheFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var rec staleness.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// saveCache writes the hash record to outDir.
func saveCache(outDir string, rec *staleness.Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outDir, cacheFile), data, 0o644)
}
