// Package source loads the serialized signal buffer and file metadata from
// disk and keeps them current while the files change.
package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/recera/patchview/pkg/signal"
)

// DefaultDebounce is how long the watcher waits for writes to settle
const DefaultDebounce = 100 * time.Millisecond

// ErrNoPath is returned when a loader has no file to read
var ErrNoPath = errors.New("no buffer path configured")

// Provider supplies the data read by each refresh
type Provider interface {
	Data() (buffer, metadata []byte)
}

// Static is a Provider over fixed bytes
type Static struct {
	Buffer   []byte
	Metadata []byte
}

// Data implements Provider
func (s Static) Data() ([]byte, []byte) {
	return s.Buffer, s.Metadata
}

// Snapshot is one consistent pair of files
type Snapshot struct {
	Buffer   []byte
	Metadata []byte
	Version  uint64
	Loaded   time.Time
}

// Config configures a Loader
type Config struct {
	BufferPath   string
	MetadataPath string
	Debounce     time.Duration
	Logger       *zap.Logger
}

// Loader reads the data files and swaps in new snapshots atomically. Readers
// never see a buffer from one load paired with metadata from another.
type Loader struct {
	cfg  Config
	log  *zap.Logger
	snap atomic.Pointer[Snapshot]

	mu       sync.Mutex
	version  uint64
	onReload []func(Snapshot)
}

// NewLoader creates a loader. Nothing is read until Load or Watch.
func NewLoader(cfg Config) *Loader {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	l := &Loader{cfg: cfg, log: cfg.Logger.Named("source")}
	l.snap.Store(&Snapshot{})
	return l
}

// OnReload registers fn to run after every successful load
func (l *Loader) OnReload(fn func(Snapshot)) {
	l.mu.Lock()
	l.onReload = append(l.onReload, fn)
	l.mu.Unlock()
}

// Snapshot returns the current data
func (l *Loader) Snapshot() Snapshot {
	return *l.snap.Load()
}

// Data implements Provider
func (l *Loader) Data() ([]byte, []byte) {
	s := l.snap.Load()
	return s.Buffer, s.Metadata
}

// Load reads both files. A file that fails validation leaves the previous
// snapshot in place.
func (l *Loader) Load() error {
	if l.cfg.BufferPath == "" {
		return ErrNoPath
	}

	buffer, err := os.ReadFile(l.cfg.BufferPath)
	if err != nil {
		return fmt.Errorf("failed to read signal buffer: %w", err)
	}
	if !gjson.ValidBytes(buffer) {
		return fmt.Errorf("signal buffer %s: %w", l.cfg.BufferPath, signal.ErrMalformed)
	}

	var metadata []byte
	if l.cfg.MetadataPath != "" {
		metadata, err = os.ReadFile(l.cfg.MetadataPath)
		if err != nil {
			return fmt.Errorf("failed to read file metadata: %w", err)
		}
		if _, err := signal.ParseMetadata(metadata); err != nil {
			return fmt.Errorf("file metadata %s: %w", l.cfg.MetadataPath, err)
		}
	}

	l.mu.Lock()
	l.version++
	snap := Snapshot{
		Buffer:   buffer,
		Metadata: metadata,
		Version:  l.version,
		Loaded:   time.Now(),
	}
	l.snap.Store(&snap)
	hooks := append([]func(Snapshot){}, l.onReload...)
	l.mu.Unlock()

	l.log.Info("[Source] Loaded",
		zap.String("buffer", l.cfg.BufferPath),
		zap.Int("bytes", len(buffer)),
		zap.Uint64("version", snap.Version))

	for _, fn := range hooks {
		fn(snap)
	}
	return nil
}

// Watch reloads whenever either file changes, until ctx is done. The
// containing directories are watched so editors that replace files by rename
// are picked up.
func (l *Loader) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	files := map[string]bool{}
	for _, p := range []string{l.cfg.BufferPath, l.cfg.MetadataPath} {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		files[abs] = true
	}
	if len(files) == 0 {
		return ErrNoPath
	}

	dirs := map[string]bool{}
	for f := range files {
		dir := filepath.Dir(f)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}

	debounce := time.NewTimer(0)
	<-debounce.C // drain initial timer
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !files[abs] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			debounce.Reset(l.cfg.Debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.log.Warn("[Source] Watcher error", zap.Error(err))

		case <-debounce.C:
			if err := l.Load(); err != nil {
				l.log.Warn("[Source] Reload failed, keeping previous data", zap.Error(err))
			}
		}
	}
}
