// Package staleness decides whether a derived file must be regenerated.
//
// The default rule compares modification times: a target is stale when it
// is missing, when its source is at least as new as it, or when the floor
// (the newest include or build-definition file) is at least as new as it.
// Equal times count as stale so that coarse filesystem clocks never hide a
// rebuild.
package staleness

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
)

// NeedsRebuild applies the modification time rule to one source/target pair.
func NeedsRebuild(source, target string, floor time.Time) (bool, error) {
	ti, err := os.Stat(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return true, nil
		}
		return false, err
	}
	si, err := os.Stat(source)
	if err != nil {
		return false, fmt.Errorf("stat source: %w", err)
	}
	tm := ti.ModTime()
	return !si.ModTime().Before(tm) || !floor.Before(tm), nil
}

// Floor returns the newest modification time among paths. Every path must
// exist; a tracked file that vanished is a manifest bug.
func Floor(paths ...string) (time.Time, error) {
	var floor time.Time
	for _, p := range paths {
		fi, err := os.Stat(p)
		if err != nil {
			return time.Time{}, fmt.Errorf("tracked file: %w", err)
		}
		if mt := fi.ModTime(); mt.After(floor) {
			floor = mt
		}
	}
	return floor, nil
}

// Checker decides staleness for the compile and archive steps.
type Checker interface {
	// NeedsRebuild reports whether dst must be regenerated from src.
	NeedsRebuild(src, dst string) (bool, error)
	// Outdated reports whether dst is missing or predates the floor,
	// regardless of its inputs.
	Outdated(dst string) (bool, error)
	// Done records that dst was regenerated from srcs.
	Done(dst string, srcs ...string) error
}

// MTime is the modification time Checker.
type MTime struct {
	Floor time.Time
}

func (m MTime) NeedsRebuild(src, dst string) (bool, error) {
	return NeedsRebuild(src, dst, m.Floor)
}

func (m MTime) Outdated(dst string) (bool, error) {
	fi, err := os.Stat(dst)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return true, nil
		}
		return false, err
	}
	return !m.Floor.Before(fi.ModTime()), nil
}

func (MTime) Done(string, ...string) error { return nil }
