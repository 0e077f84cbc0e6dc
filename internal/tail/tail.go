// Package tail follows a ttyrec file that is still being written.
package tail

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"pkt.systems/pslog"
	"pkt.systems/ttyplay/internal/seek"
	"pkt.systems/ttyplay/internal/ttyrec"
)

// Options configures a Follower.
type Options struct {
	MaxPayload int
	Logger     pslog.Logger
}

// Follower reads complete records from a growing file. A missing or partially
// written record reads as io.EOF and is retried from its header next time.
type Follower struct {
	path   string
	file   *os.File
	rd     *ttyrec.Reader
	logger pslog.Logger

	watcher *fsnotify.Watcher
	wake    chan struct{}
	closeCh chan struct{}
	wg      sync.WaitGroup
	once    sync.Once

	prev    ttyrec.Timeval
	started bool
}

// Open starts following path. Change notification is best effort; callers
// still poll.
func Open(ctx context.Context, path string, opts Options) (*Follower, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = pslog.Ctx(ctx)
	}
	fl := &Follower{
		path:    path,
		file:    f,
		rd:      ttyrec.NewReaderSize(f, opts.MaxPayload),
		logger:  logger.With("file", path),
		wake:    make(chan struct{}, 1),
		closeCh: make(chan struct{}),
	}
	w, err := fsnotify.NewWatcher()
	if err == nil {
		err = w.Add(path)
		if err != nil {
			_ = w.Close()
		}
	}
	if err != nil {
		fl.logger.Warn("tail watch unavailable, polling only", "err", err)
		return fl, nil
	}
	fl.watcher = w
	fl.wg.Add(1)
	go fl.watch()
	return fl, nil
}

func (f *Follower) watch() {
	defer f.wg.Done()
	for {
		select {
		case <-f.closeCh:
			return
		case ev, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				select {
				case f.wake <- struct{}{}:
				default:
				}
			}
		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			f.logger.Warn("tail watch error", "err", err)
		}
	}
}

// Wake fires after the file has been written to.
func (f *Follower) Wake() <-chan struct{} {
	return f.wake
}

// Next returns the next complete record, or io.EOF when none is available yet.
func (f *Follower) Next() (seek.Step, error) {
	off := f.rd.Offset()
	rec, err := f.rd.Next()
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, ttyrec.ErrTruncated) {
			if rerr := f.rewind(off); rerr != nil {
				return seek.Step{}, rerr
			}
			return seek.Step{}, io.EOF
		}
		return seek.Step{}, fmt.Errorf("tail %s: %w", f.path, err)
	}
	step := seek.Step{Record: rec, Fresh: !f.started}
	if f.started {
		step.Delta = ttyrec.Delta(f.prev, rec.Time)
	}
	f.prev = rec.Time
	f.started = true
	return step, nil
}

// Skip consumes every complete record already in the file without output and
// returns how many it skipped.
func (f *Follower) Skip() (int, error) {
	n := 0
	for {
		_, err := f.Next()
		if errors.Is(err, io.EOF) {
			f.logger.Debug("tail caught up", "skipped", n, "offset", f.rd.Offset())
			return n, nil
		}
		if err != nil {
			return n, err
		}
		n++
	}
}

// Close stops watching and closes the file.
func (f *Follower) Close() error {
	var err error
	f.once.Do(func() {
		close(f.closeCh)
		if f.watcher != nil {
			_ = f.watcher.Close()
		}
		f.wg.Wait()
		err = f.file.Close()
	})
	return err
}

func (f *Follower) rewind(off int64) error {
	if _, err := f.file.Seek(off, io.SeekStart); err != nil {
		return fmt.Errorf("tail %s: seek to %d: %w", f.path, off, err)
	}
	f.rd.Reset(f.file, off)
	return nil
}
