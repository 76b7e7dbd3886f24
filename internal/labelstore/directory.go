package labelstore

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofrs/flock"

	"github.com/arclayer/layerstore/internal/ids"
	"github.com/arclayer/layerstore/internal/storelog"
)

// lockRetryDelay is how often a blocked CAS write re-probes the file
// lock while waiting for a concurrent writer to finish.
const lockRetryDelay = 10 * time.Millisecond

// DefaultLockTimeout bounds how long a label operation will wait to
// acquire the file lock before giving up.
const DefaultLockTimeout = 30 * time.Second

// Directory is a label store backed by one file per label under dir,
// each protected by OS advisory locking (gofrs/flock): shared for
// reads, exclusive for the CAS write.
type Directory struct {
	dir         string
	lockTimeout time.Duration
	logger      *slog.Logger
}

// NewDirectory opens (and creates, if necessary) a directory-backed
// label store rooted at dir. Logging is discarded until SetLogger is
// called.
func NewDirectory(dir string) (*Directory, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("labelstore: creating directory %s: %w", dir, err)
	}
	return &Directory{dir: dir, lockTimeout: DefaultLockTimeout, logger: storelog.Discard()}, nil
}

// SetLockTimeout overrides the default lock-acquisition timeout.
func (d *Directory) SetLockTimeout(timeout time.Duration) {
	if timeout > 0 {
		d.lockTimeout = timeout
	}
}

// SetLogger directs this store's debug logging (CAS attempt/result) at
// logger instead of discarding it.
func (d *Directory) SetLogger(logger *slog.Logger) {
	if logger != nil {
		d.logger = logger
	}
}

func (d *Directory) path(name string) string {
	return filepath.Join(d.dir, name+".label")
}

func (d *Directory) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, d.lockTimeout)
}

func (d *Directory) CreateLabel(ctx context.Context, name string) (Label, error) {
	path := d.path(name)
	if _, err := os.Stat(path); err == nil {
		return Label{}, ErrAlreadyExists
	} else if !os.IsNotExist(err) {
		return Label{}, fmt.Errorf("labelstore: stat %s: %w", path, err)
	}

	lock := flock.New(path)
	lctx, cancel := d.withTimeout(ctx)
	defer cancel()
	locked, err := lock.TryLockContext(lctx, lockRetryDelay)
	if err != nil {
		return Label{}, fmt.Errorf("labelstore: locking %s: %w", path, err)
	}
	if !locked {
		return Label{}, fmt.Errorf("labelstore: timed out locking %s", path)
	}
	defer lock.Unlock()

	// Taking the lock creates an empty file at path, so only a file with
	// content means a concurrent creator got there first.
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		return Label{}, ErrAlreadyExists
	} else if err != nil && !os.IsNotExist(err) {
		return Label{}, fmt.Errorf("labelstore: stat %s: %w", path, err)
	}

	l := Label{Name: name}
	if err := writeLabelFile(path, l); err != nil {
		return Label{}, err
	}
	return l, nil
}

func (d *Directory) GetLabel(ctx context.Context, name string) (Label, error) {
	path := d.path(name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Label{}, ErrNotFound
	}
	lock := flock.New(path)
	lctx, cancel := d.withTimeout(ctx)
	defer cancel()
	locked, err := lock.TryRLockContext(lctx, lockRetryDelay)
	if err != nil {
		return Label{}, fmt.Errorf("labelstore: locking %s: %w", path, err)
	}
	if !locked {
		return Label{}, fmt.Errorf("labelstore: timed out locking %s", path)
	}
	defer lock.Unlock()

	return readLabelFile(path, name)
}

func (d *Directory) SetLabel(ctx context.Context, current Label, newLayer ids.Name) (Label, bool, error) {
	path := d.path(current.Name)
	d.logger.Debug("label cas attempt", "label", current.Name, "from_version", current.Version, "new_layer", newLayer.String())

	// Fast path: most CAS attempts in practice find the label
	// uncontended, so probe for the exclusive lock without blocking
	// before paying for flock's poll-based TryLockContext loop.
	acquired, unlock, err := tryLockExclusiveFast(path)
	if err != nil {
		return Label{}, false, fmt.Errorf("labelstore: locking %s: %w", path, err)
	}
	if acquired {
		defer unlock()
		return d.casLabel(path, current, newLayer)
	}

	lock := flock.New(path)
	lctx, cancel := d.withTimeout(ctx)
	defer cancel()
	locked, err := lock.TryLockContext(lctx, lockRetryDelay)
	if err != nil {
		return Label{}, false, fmt.Errorf("labelstore: locking %s: %w", path, err)
	}
	if !locked {
		return Label{}, false, fmt.Errorf("labelstore: timed out locking %s", path)
	}
	defer lock.Unlock()

	return d.casLabel(path, current, newLayer)
}

// casLabel performs the compare-and-swap itself; the caller must
// already hold the exclusive lock on path.
func (d *Directory) casLabel(path string, current Label, newLayer ids.Name) (Label, bool, error) {
	stored, err := readLabelFile(path, current.Name)
	if err != nil {
		return Label{}, false, err
	}
	if stored.Version != current.Version {
		d.logger.Debug("label cas conflict", "label", current.Name, "expected_version", current.Version, "stored_version", stored.Version)
		return stored, false, nil
	}
	updated := Label{Name: current.Name, Layer: newLayer, Version: stored.Version + 1}
	if err := writeLabelFile(path, updated); err != nil {
		return Label{}, false, err
	}
	d.logger.Debug("label cas succeeded", "label", current.Name, "new_version", updated.Version, "layer", newLayer.String())
	return updated, true, nil
}

func (d *Directory) DeleteLabel(ctx context.Context, name string) error {
	path := d.path(name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return ErrNotFound
	}

	lock := flock.New(path)
	lctx, cancel := d.withTimeout(ctx)
	defer cancel()
	locked, err := lock.TryLockContext(lctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("labelstore: locking %s: %w", path, err)
	}
	if !locked {
		return fmt.Errorf("labelstore: timed out locking %s", path)
	}
	defer lock.Unlock()

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("labelstore: removing %s: %w", path, err)
	}
	return nil
}

// readLabelFile parses the two-line label format: the version on the
// first line, the layer's 40-hex name (or an empty line, for no
// layer) on the second.
func readLabelFile(path, name string) (Label, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Label{}, ErrNotFound
		}
		return Label{}, fmt.Errorf("labelstore: opening %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return Label{}, fmt.Errorf("labelstore: %s: missing version line: %w", path, ErrInvalidFormat)
	}
	version, err := strconv.ParseUint(scanner.Text(), 10, 64)
	if err != nil {
		return Label{}, fmt.Errorf("labelstore: %s: invalid version: %w", path, ErrInvalidFormat)
	}

	var layer ids.Name
	if scanner.Scan() {
		if line := scanner.Text(); line != "" {
			layer, err = ids.Parse(line)
			if err != nil {
				return Label{}, fmt.Errorf("labelstore: %s: malformed layer name: %w", path, ErrInvalidFormat)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return Label{}, fmt.Errorf("labelstore: reading %s: %w", path, err)
	}
	return Label{Name: name, Layer: layer, Version: version}, nil
}

// writeLabelFile writes l atomically: to a temp file in the same
// directory, then renamed over the target, so a reader never observes
// a half-written file even without the lock.
func writeLabelFile(path string, l Label) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".label-*")
	if err != nil {
		return fmt.Errorf("labelstore: creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	layerLine := ""
	if !l.Layer.Zero() {
		layerLine = l.Layer.String()
	}
	content := strconv.FormatUint(l.Version, 10) + "\n" + layerLine + "\n"
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("labelstore: writing %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("labelstore: closing %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("labelstore: renaming %s to %s: %w", tmpPath, path, err)
	}
	return nil
}
