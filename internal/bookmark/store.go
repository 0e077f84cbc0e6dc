// Package bookmark remembers where playback of a recording stopped so it can
// be resumed later.
package bookmark

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/ttyplay/internal/ttyrec"
)

// Bookmark is a saved playback position.
type Bookmark struct {
	Paths         []string  `json:"paths"`
	ElapsedMicros int64     `json:"elapsed_us"`
	Segment       int       `json:"segment"`
	Landmark      int       `json:"landmark"`
	Speed         float64   `json:"speed,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Elapsed returns the saved position on the global timeline.
func (b Bookmark) Elapsed() ttyrec.Timeval {
	return ttyrec.FromMicros(b.ElapsedMicros)
}

// Store keeps one bookmark per recording set under a directory.
type Store struct {
	dir string
	log pslog.Logger
}

// NewStore opens a bookmark store in dir, creating it if needed.
func NewStore(dir string, logger pslog.Logger) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("bookmark directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	if logger != nil {
		logger = logger.With("bookmark_dir", dir)
	}
	return &Store{dir: dir, log: logger}, nil
}

// Key identifies a recording set by its absolute file paths, in order.
func Key(paths []string) (string, error) {
	h := sha256.New()
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return "", fmt.Errorf("bookmark key %s: %w", p, err)
		}
		h.Write([]byte(abs))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:32], nil
}

// Load returns the bookmark for paths, if one was saved.
func (s *Store) Load(paths []string) (Bookmark, bool, error) {
	path, err := s.pathFor(paths)
	if err != nil {
		return Bookmark{}, false, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.debug("bookmark load miss", "path", path)
			return Bookmark{}, false, nil
		}
		s.warn("bookmark load failed", "path", path, "err", err)
		return Bookmark{}, false, err
	}
	var b Bookmark
	if err := json.Unmarshal(data, &b); err != nil {
		s.warn("bookmark load failed", "path", path, "err", err)
		return Bookmark{}, false, err
	}
	s.debug("bookmark load ok", "path", path, "elapsed", b.Elapsed().String())
	return b, true, nil
}

// Save stores b for its recording set, replacing any earlier bookmark.
func (s *Store) Save(b Bookmark) error {
	path, err := s.pathFor(b.Paths)
	if err != nil {
		return err
	}
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = time.Now().UTC()
	}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		s.warn("bookmark save failed", "path", path, "err", err)
		return err
	}
	if err := writeAtomic(path, data); err != nil {
		s.warn("bookmark save failed", "path", path, "err", err)
		return err
	}
	if s.log != nil {
		s.log.Trace("bookmark save ok", "path", path, "elapsed", b.Elapsed().String())
	}
	return nil
}

// Delete forgets the bookmark for paths. A missing bookmark is not an error.
func (s *Store) Delete(paths []string) error {
	path, err := s.pathFor(paths)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *Store) pathFor(paths []string) (string, error) {
	if len(paths) == 0 {
		return "", errors.New("bookmark needs at least one recording path")
	}
	key, err := Key(paths)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, key+".json"), nil
}

func (s *Store) debug(msg string, kv ...any) {
	if s.log != nil {
		s.log.Debug(msg, kv...)
	}
}

func (s *Store) warn(msg string, kv ...any) {
	if s.log != nil {
		s.log.Warn(msg, kv...)
	}
}

// writeAtomic replaces path with data via a synced temp file and rename.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "bookmark-*.json")
	if err != nil {
		return err
	}
	cleanup := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return nil
}
