package emit

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// File is a generated file ready to be written.
type File struct {
	Path string
	Src  []byte
}

// WriteAll writes files on a pool of workers and returns how many changed on disk. Files whose
// content is already up to date are left untouched, so watchers do not see them change. Every
// failure is reported; the other files are still written.
func WriteAll(files []File, workers int, log *zap.Logger) (int, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if workers < 1 {
		workers = 1
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		errs    []error
		written atomic.Int64
	)
	pool, err := ants.NewPoolWithFunc(workers, func(arg any) {
		defer wg.Done()
		f := arg.(File)
		changed, err := writeFile(f)
		if err != nil {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
			return
		}
		if changed {
			written.Add(1)
			log.Debug("file written", zap.String("path", f.Path), zap.Int("bytes", len(f.Src)))
		}
	})
	if err != nil {
		return 0, fmt.Errorf("emit: worker pool: %w", err)
	}
	defer pool.Release()

	for _, f := range files {
		wg.Add(1)
		if err := pool.Invoke(f); err != nil {
			wg.Done()
			mu.Lock()
			errs = append(errs, fmt.Errorf("emit: %s: %w", f.Path, err))
			mu.Unlock()
		}
	}
	wg.Wait()
	return int(written.Load()), errors.Join(errs...)
}

func writeFile(f File) (bool, error) {
	if old, err := os.ReadFile(f.Path); err == nil && bytes.Equal(old, f.Src) {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return false, fmt.Errorf("emit: mkdir %s: %w", filepath.Dir(f.Path), err)
	}
	if err := os.WriteFile(f.Path, f.Src, 0o644); err != nil {
		return false, fmt.Errorf("emit: write %s: %w", f.Path, err)
	}
	return true, nil
}
