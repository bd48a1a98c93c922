package monitor

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/hamed0406/sitemonitor/internal/domain"
)

// acquire takes the advisory cycle lock without blocking. An empty path disables locking.
func acquire(path string) (*flock.Flock, error) {
	if path == "" {
		return nil, nil
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: lock dir %s: %v", domain.ErrPersistence, dir, err)
		}
	}
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("%w: lock %s: %v", domain.ErrPersistence, path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrCycleLocked, path)
	}
	return fl, nil
}
