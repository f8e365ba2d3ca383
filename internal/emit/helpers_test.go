package emit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type pkgHarness struct {
	t   *testing.T
	dir string
}

func newPkg(t *testing.T) *pkgHarness {
	t.Helper()
	return &pkgHarness{t: t, dir: t.TempDir()}
}

func (p *pkgHarness) write(rel, content string) string {
	p.t.Helper()
	path := filepath.Join(p.dir, rel)
	require.NoError(p.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(p.t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (p *pkgHarness) path(rel string) string {
	return filepath.Join(p.dir, rel)
}

func (p *pkgHarness) read(rel string) string {
	p.t.Helper()
	b, err := os.ReadFile(p.path(rel))
	require.NoError(p.t, err)
	return string(b)
}

// squash collapses whitespace runs so assertions do not depend on gofmt alignment.
func squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func assertContainsInOrder(t *testing.T, s string, parts ...string) {
	t.Helper()
	pos := 0
	for _, p := range parts {
		i := strings.Index(s[pos:], p)
		if i < 0 {
			t.Fatalf("expected to find %q after pos=%d in:\n%s", p, pos, s)
		}
		pos += i + len(p)
	}
}
