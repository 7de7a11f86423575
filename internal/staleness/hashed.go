package staleness

import (
	"encoding/hex"
	"errors"
	"io"
	"io/fs"
	"os"
	"sync"

	"lukechampine.com/blake3"
)

// Record is the persisted state of a Hashed checker: one digest per input
// of each output, and the floor digest they were produced under.
type Record struct {
	Floor   string                       `json:"floor"`
	Outputs map[string]map[string]string `json:"outputs"`
}

// Hashed decides staleness by content. An output is stale when it is
// missing, when the floor digest changed since it was produced, or when any
// of its inputs hashes differently from the recorded digest. Touching a file
// without changing it therefore does not force a rebuild; editing any
// floor file still invalidates every output.
type Hashed struct {
	mu     sync.Mutex
	floor  string
	rec    Record
	digest map[string]string // per-run memo keyed by path
}

// NewHashed creates a Hashed checker from a previous record (nil for a
// fresh output directory) and the files that make up the floor.
func NewHashed(prev *Record, floorFiles ...string) (*Hashed, error) {
	h := &Hashed{digest: make(map[string]string)}
	fd := blake3.New(32, nil)
	for _, p := range floorFiles {
		d, err := h.hash(p)
		if err != nil {
			return nil, err
		}
		io.WriteString(fd, p+"\x00"+d+"\n")
	}
	h.floor = hex.EncodeToString(fd.Sum(nil))
	if prev != nil && prev.Floor == h.floor {
		h.rec = *prev
	}
	h.rec.Floor = h.floor
	if h.rec.Outputs == nil {
		h.rec.Outputs = make(map[string]map[string]string)
	}
	return h, nil
}

func (h *Hashed) NeedsRebuild(src, dst string) (bool, error) {
	if _, err := os.Stat(dst); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return true, nil
		}
		return false, err
	}
	d, err := h.hash(src)
	if err != nil {
		return false, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	inputs, ok := h.rec.Outputs[dst]
	if !ok {
		return true, nil
	}
	return inputs[src] != d, nil
}

// Outdated reports whether dst is missing or has no record under the
// current floor digest.
func (h *Hashed) Outdated(dst string) (bool, error) {
	if _, err := os.Stat(dst); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return true, nil
		}
		return false, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.rec.Outputs[dst]
	return !ok, nil
}

func (h *Hashed) Done(dst string, srcs ...string) error {
	inputs := make(map[string]string, len(srcs))
	for _, src := range srcs {
		h.forget(src)
		d, err := h.hash(src)
		if err != nil {
			return err
		}
		inputs[src] = d
	}
	h.forget(dst)
	h.mu.Lock()
	h.rec.Outputs[dst] = inputs
	h.mu.Unlock()
	return nil
}

// Record returns a snapshot suitable for persisting.
func (h *Hashed) Record() *Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := &Record{Floor: h.rec.Floor, Outputs: make(map[string]map[string]string, len(h.rec.Outputs))}
	for k, v := range h.rec.Outputs {
		out.Outputs[k] = v
	}
	return out
}

func (h *Hashed) forget(path string) {
	h.mu.Lock()
	delete(h.digest, path)
	h.mu.Unlock()
}

func (h *Hashed) hash(path string) (string, error) {
	h.mu.Lock()
	if d, ok := h.digest[path]; ok {
		h.mu.Unlock()
		return d, nil
	}
	h.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	hasher := blake3.New(32, nil)
	if _, err := io.Copy(hasher, f); err != nil {
		return "", err
	}
	d := hex.EncodeToString(hasher.Sum(nil))

	h.mu.Lock()
	h.digest[path] = d
	h.mu.Unlock()
	return d, nil
}
