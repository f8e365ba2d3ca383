package emit

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindModule(t *testing.T) {
	t.Parallel()

	t.Run("finds_nearest_go_mod", func(t *testing.T) {
		t.Parallel()
		p := newPkg(t)
		p.write("go.mod", "module example.com/root\n\ngo 1.22\n")
		p.write("a/b/c/x.txt", "x")

		modRoot, modPath, err := FindModule(p.path("a/b/c"))
		require.NoError(t, err)
		assert.Equal(t, p.dir, modRoot)
		assert.Equal(t, "example.com/root", modPath)
	})

	t.Run("quoted_module_path", func(t *testing.T) {
		t.Parallel()
		p := newPkg(t)
		p.write("go.mod", "module \"example.com/quoted\"\n")

		_, modPath, err := FindModule(p.dir)
		require.NoError(t, err)
		assert.Equal(t, "example.com/quoted", modPath)
	})

	t.Run("empty_module_directive", func(t *testing.T) {
		t.Parallel()
		p := newPkg(t)
		p.write("go.mod", "module \"\"\n\ngo 1.22\n")

		_, _, err := FindModule(p.dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty module path")
	})

	t.Run("missing_module_directive", func(t *testing.T) {
		t.Parallel()
		p := newPkg(t)
		p.write("go.mod", "go 1.22\n")

		_, _, err := FindModule(p.dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing module directive")
	})
}

func TestImportPathForDir(t *testing.T) {
	t.Parallel()

	p := newPkg(t)
	p.write("go.mod", "module example.com/proj\n")
	p.write("internal/app/app.module.json", "{}")

	got, err := ImportPathForDir(p.path("internal/app"))
	require.NoError(t, err)
	assert.Equal(t, "example.com/proj/internal/app", got)

	got, err = ImportPathForDir(p.dir)
	require.NoError(t, err)
	assert.Equal(t, "example.com/proj", got)
}

func TestModuleImportPathForDir(t *testing.T) {
	t.Parallel()

	root := filepath.FromSlash("/repo")
	tests := []struct {
		name    string
		dir     string
		want    string
		wantErr string
	}{
		{name: "root_dir_is_module_path", dir: root, want: "example.com/repo"},
		{name: "subdir_appends_rel_path", dir: filepath.Join(root, "pkg", "thing"), want: "example.com/repo/pkg/thing"},
		{name: "outside_module_errors", dir: filepath.FromSlash("/other/place"), wantErr: "directory is outside module root"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := moduleImportPathForDir(root, "example.com/repo", tt.dir)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScanPackageImports(t *testing.T) {
	t.Parallel()

	p := newPkg(t)
	p.write("a.go", `package p

import (
	config "example.com/proj/config"
	"fmt"
	_ "embed"
)
`)
	p.write("a_test.go", "package p\nimport \"example.com/should/not/appear\"\n")
	p.write("app_modwire.go", "package p\nimport \"example.com/should/not/appear2\"\n")
	p.write("broken.go", "package p\nimport (\n")
	p.write("b.go", `package p

import (
	config "example.com/proj/config"
	"strings"
)
`)

	got := ScanPackageImports(p.dir, "_modwire.go")
	assert.Equal(t, []GoImport{
		{Name: "config", Path: "example.com/proj/config"},
		{Path: "fmt"},
		{Path: "strings"},
	}, got)

	assert.Nil(t, ScanPackageImports(p.path("missing"), ""))
}

func TestReadImportsFromExistingOut(t *testing.T) {
	t.Parallel()

	p := newPkg(t)
	out := p.write("app_modwire.go", `package app

import (
	di "example.com/runtime"
	"example.com/proj/lib"
)
`)
	assert.Equal(t, []GoImport{
		{Name: "di", Path: "example.com/runtime"},
		{Path: "example.com/proj/lib"},
	}, ReadImportsFromExistingOut(out))
	assert.Nil(t, ReadImportsFromExistingOut(""))
	assert.Nil(t, ReadImportsFromExistingOut(p.path("missing.go")))
}

func TestFindImportByAliasOrSuffix(t *testing.T) {
	t.Parallel()

	imports := []GoImport{
		{Name: "cfg", Path: "example.com/proj/config"},
		{Path: "example.com/proj/store"},
		{Path: "net/http"},
	}
	tests := []struct {
		name   string
		alias  string
		suffix string
		want   GoImport
		found  bool
	}{
		{name: "alias", alias: "cfg", want: imports[0], found: true},
		{name: "suffix", suffix: "store", want: imports[1], found: true},
		{name: "exact_path", suffix: "net/http", want: imports[2], found: true},
		{name: "suffix_skips_aliased", suffix: "config"},
		{name: "no_partial_segment", suffix: "tore"},
		{name: "empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := findImportByAliasOrSuffix(imports, tt.alias, tt.suffix)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestImporter_Typ(t *testing.T) {
	t.Parallel()

	im := newImporter("app")
	im.provide("lib", "example.com/proj/lib")
	im.provide("v1", "example.com/proj/api/v1beta")
	im.known = append(im.known, GoImport{Name: "cfg", Path: "example.com/proj/config"})

	tests := []struct {
		in   string
		want string
	}{
		{in: "*app.Svc", want: "*Svc"},
		{in: "map[string]app.Handler", want: "map[string]Handler"},
		{in: " *lib.Client ", want: "*lib.Client"},
		{in: "func(context.Context) error", want: "func(context.Context) error"},
		{in: "cfg.Config", want: "cfg.Config"},
		{in: "[]v1.Item", want: "[]v1.Item"},
		{in: "string", want: "string"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, im.typ(tt.in), tt.in)
	}

	assert.Equal(t, []GoImport{
		{Path: "context"},
		{Name: "v1", Path: "example.com/proj/api/v1beta"},
		{Name: "cfg", Path: "example.com/proj/config"},
		{Path: "example.com/proj/lib"},
	}, im.imports())
}

func TestDedupeAndSortImports(t *testing.T) {
	t.Parallel()

	got := dedupeAndSortImports([]GoImport{
		{Path: "z"},
		{Name: "b", Path: "x"},
		{Path: "z"},
		{Name: "a", Path: "x"},
	})
	assert.Equal(t, []GoImport{{Name: "a", Path: "x"}, {Name: "b", Path: "x"}, {Path: "z"}}, got)
}
