package repository

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// partialSuffix marks a download Chrome has not finished writing
const partialSuffix = ".crdownload"

// ErrDownloadTimeout is returned when a file does not land in time
var ErrDownloadTimeout = errors.New("download timed out")

// Downloads provides operations on the scratch directory portal exports land in
type Downloads struct {
	dir string
	log *logrus.Logger
}

// NewDownloads initializes a scratch store rooted at dir
func NewDownloads(dir string, log *logrus.Logger) *Downloads {
	return &Downloads{dir: dir, log: log}
}

// Dir returns the absolute scratch directory, as the browser needs it
func (d *Downloads) Dir() string {
	abs, err := filepath.Abs(d.dir)
	if err != nil {
		return d.dir
	}
	return abs
}

// Ensure creates the scratch directory if needed
func (d *Downloads) Ensure() error {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return errors.Wrapf(err, "create downloads dir %s", d.dir)
	}
	return nil
}

// Path returns where a file named name lands
func (d *Downloads) Path(name string) string {
	return filepath.Join(d.Dir(), name)
}

// Ready reports whether name is fully downloaded
func (d *Downloads) Ready(name string) bool {
	p := d.Path(name)
	if _, err := os.Stat(p); err != nil {
		return false
	}
	if _, err := os.Stat(p + partialSuffix); err == nil {
		return false
	}
	return true
}

// WaitFor polls until name is fully downloaded, timeout elapses or ctx ends
func (d *Downloads) WaitFor(ctx context.Context, name string, timeout, poll time.Duration) (string, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		if d.Ready(name) {
			return d.Path(name), nil
		}
		select {
		case <-ctx.Done():
			return "", errors.Wrapf(ctx.Err(), "waiting for %s", name)
		case <-deadline.C:
			return "", errors.Wrapf(ErrDownloadTimeout, "%s after %s", name, timeout)
		case <-ticker.C:
		}
	}
}

// Purge deletes everything in the scratch directory and returns how many
// entries were removed. Failures are logged, not returned
func (d *Downloads) Purge() int {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			d.log.Errorf("Could not list %s: %v", d.dir, err)
		}
		return 0
	}

	removed := 0
	for _, e := range entries {
		p := filepath.Join(d.dir, e.Name())
		if err := os.RemoveAll(p); err != nil {
			d.log.Errorf("Could not delete %s: %v", p, err)
			continue
		}
		removed++
		d.log.WithField("status", "success").Infof("Deleted: %s", p)
	}
	return removed
}
