package memory

import (
	"compress/gzip"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fleetfeast/pogicity/internal/storage"
	"github.com/fleetfeast/pogicity/pkg/core"
	"github.com/pierrec/lz4/v4"
	"lukechampine.com/blake3"
)

// ErrDigestMismatch is returned when a save file's payload does not match
// its recorded digest.
var ErrDigestMismatch = errors.New("save file digest mismatch")

const filePrefix = "world_"

// SaveFile is the on-disk envelope. Digest is the hex blake3 hash of the
// raw Snapshot bytes.
type SaveFile struct {
	Version  int             `json:"version"`
	Digest   string          `json:"digest"`
	Snapshot json.RawMessage `json:"snapshot"`
}

type codec struct {
	ext       string
	newWriter func(io.Writer) io.WriteCloser
	newReader func(io.Reader) (io.Reader, error)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

var codecs = map[string]codec{
	"none": {
		ext:       ".json",
		newWriter: func(w io.Writer) io.WriteCloser { return nopWriteCloser{w} },
		newReader: func(r io.Reader) (io.Reader, error) { return r, nil },
	},
	"gzip": {
		ext:       ".json.gz",
		newWriter: func(w io.Writer) io.WriteCloser { return gzip.NewWriter(w) },
		newReader: func(r io.Reader) (io.Reader, error) { return gzip.NewReader(r) },
	},
	"lz4": {
		ext:       ".json.lz4",
		newWriter: func(w io.Writer) io.WriteCloser { return lz4.NewWriter(w) },
		newReader: func(r io.Reader) (io.Reader, error) { return lz4.NewReader(r), nil },
	},
}

func codecFor(name string) (codec, error) {
	if name == "" {
		name = "none"
	}
	c, ok := codecs[name]
	if !ok {
		return codec{}, fmt.Errorf("unknown compression %q", name)
	}
	return c, nil
}

func codecForPath(path string) (codec, error) {
	// longest extension first so ".json.gz" is not taken for ".json"
	for _, name := range []string{"gzip", "lz4", "none"} {
		if strings.HasSuffix(path, codecs[name].ext) {
			return codecs[name], nil
		}
	}
	return codec{}, fmt.Errorf("unrecognised save file %s", filepath.Base(path))
}

// Digest returns the hex blake3 hash of data.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func fileName(s *core.WorldSnapshot, ext string) string {
	t := s.SavedAt.UTC()
	return fmt.Sprintf("%s%s_%03d_%06d%s", filePrefix, t.Format("20060102_150405"), t.Nanosecond()/1e6, s.ID, ext)
}

// export writes s to OutputDir and returns the file path.
func (b *Backend) export(s *core.WorldSnapshot) (string, error) {
	c, err := codecFor(b.cfg.Compression)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	outputPath := filepath.Join(b.cfg.OutputDir, fileName(s, c.ext))
	if err := WriteFile(outputPath, s, b.cfg.Compression); err != nil {
		return "", err
	}
	return outputPath, nil
}

// WriteFile encodes s into a digest envelope at path. compression is
// "none", "gzip" or "lz4" and should match the file extension.
func WriteFile(path string, s *core.WorldSnapshot, compression string) error {
	c, err := codecFor(compression)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	w := c.newWriter(f)
	if err := json.NewEncoder(w).Encode(SaveFile{Version: 1, Digest: Digest(payload), Snapshot: payload}); err != nil {
		w.Close()
		return fmt.Errorf("failed to write save file: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish save file: %w", err)
	}
	return f.Sync()
}

// ReadFile decodes and verifies a save file written by WriteFile.
func ReadFile(path string) (core.WorldSnapshot, error) {
	var snap core.WorldSnapshot

	c, err := codecForPath(path)
	if err != nil {
		return snap, err
	}
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	r, err := c.newReader(f)
	if err != nil {
		return snap, fmt.Errorf("failed to open %s: %w", filepath.Base(path), err)
	}

	var env SaveFile
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return snap, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	if got := Digest(env.Snapshot); got != env.Digest {
		return snap, fmt.Errorf("%s: %w", filepath.Base(path), ErrDigestMismatch)
	}
	if err := json.Unmarshal(env.Snapshot, &snap); err != nil {
		return snap, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return snap, nil
}

// ReadLatest returns the newest save file in dir. Names sort chronologically.
func ReadLatest(dir string) (core.WorldSnapshot, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return core.WorldSnapshot{}, storage.ErrNoSnapshot
	}
	if err != nil {
		return core.WorldSnapshot{}, err
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), filePrefix) {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return core.WorldSnapshot{}, storage.ErrNoSnapshot
	}
	sort.Strings(names)
	return ReadFile(filepath.Join(dir, names[len(names)-1]))
}
