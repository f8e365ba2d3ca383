// Package artifact stores the surfaces of generated modules between passes.
//
// An artifact is all a later pass knows about a module generated earlier: it is imported as
// a black box and its wiring is never resolved again.
package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
	lru "github.com/hashicorp/golang-lru/v2"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/sghaida/modwire/internal/model"
)

// Suffix of artifact files.
const Suffix = ".modwire.json"

var (
	// ErrIncompatible is returned for artifacts written by an incompatible generator.
	ErrIncompatible = errors.New("artifact: incompatible format")

	json = jsoniter.ConfigCompatibleWithStandardLibrary

	// accepted is the range of artifact formats this generator reads.
	accepted = mustConstraint("^" + model.SurfaceFormat)
)

func mustConstraint(s string) *semver.Constraints {
	c, err := semver.NewConstraint(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Store reads and writes artifacts in a directory. Surfaces read back are cached.
type Store struct {
	dir   string
	cache *lru.Cache[string, *model.Surface]
	log   *zap.Logger
}

// NewStore returns a store rooted at dir keeping up to size surfaces in memory.
func NewStore(dir string, size int, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	cache, err := lru.New[string, *model.Surface](size)
	if err != nil {
		return nil, fmt.Errorf("artifact: cache: %w", err)
	}
	return &Store{dir: dir, cache: cache, log: log.Named("artifact")}, nil
}

// Path returns the artifact file of a module.
func (s *Store) Path(module string) string {
	return filepath.Join(s.dir, module+Suffix)
}

// Write persists a surface, stamping the current format.
func (s *Store) Write(surface *model.Surface) error {
	if surface.Format == "" {
		surface.Format = model.SurfaceFormat
	}
	raw, err := json.MarshalIndent(surface, "", "  ")
	if err != nil {
		return fmt.Errorf("artifact: encode %s: %w", surface.Module, err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("artifact: mkdir %s: %w", s.dir, err)
	}
	p := s.Path(surface.Module)
	if err := os.WriteFile(p, append(raw, '\n'), 0o644); err != nil {
		return fmt.Errorf("artifact: write %s: %w", p, err)
	}
	s.cache.Add(surface.Module, surface)
	s.log.Debug("artifact written", zap.String("module", surface.Module), zap.String("path", p))
	return nil
}

// Surface returns the surface of a module generated by an earlier pass. ok is false when no
// artifact exists.
func (s *Store) Surface(module string) (*model.Surface, bool, error) {
	if sf, ok := s.cache.Get(module); ok {
		return sf, true, nil
	}
	p := s.Path(module)
	raw, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("artifact: read %s: %w", p, err)
	}
	sf, err := Decode(raw)
	if err != nil {
		return nil, false, fmt.Errorf("artifact: %s: %w", p, err)
	}
	if sf.Module != module {
		return nil, false, fmt.Errorf("artifact: %s holds module %s", p, sf.Module)
	}
	s.cache.Add(module, sf)
	return sf, true, nil
}

// Decode parses an artifact and checks its format version.
func Decode(raw []byte) (*model.Surface, error) {
	var sf model.Surface
	if err := json.Unmarshal(raw, &sf); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	v, err := semver.NewVersion(sf.Format)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrIncompatible, sf.Format)
	}
	if !accepted.Check(v) {
		return nil, fmt.Errorf("%w: %s, want %s", ErrIncompatible, v, accepted)
	}
	return &sf, nil
}
