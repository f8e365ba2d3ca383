package emit

import (
	"go/parser"
	"go/token"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// GoImport is one import of a generated file.
type GoImport struct {
	Name string // optional alias, e.g. "config"
	Path string // import path or stdlib package, e.g. "context"
}

// ScanPackageImports reads imports from all non-generated .go files in pkgDir
// (excluding *_test.go and files ending in suffix) and returns them as GoImport entries.
// It preserves aliases from source files (e.g. `config "..."`).
func ScanPackageImports(pkgDir, suffix string) []GoImport {
	entries, err := os.ReadDir(pkgDir)
	if err != nil {
		return nil
	}

	var out []GoImport
	fset := token.NewFileSet()

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		// avoid feeding generated outputs back into inference
		if suffix != "" && strings.HasSuffix(name, suffix) {
			continue
		}

		out = append(out, parseImports(fset, filepath.Join(pkgDir, name))...)
	}

	return dedupeAndSortImports(out)
}

// ReadImportsFromExistingOut returns the imports of a previously generated file, nil when
// there is none.
func ReadImportsFromExistingOut(outPath string) []GoImport {
	if strings.TrimSpace(outPath) == "" {
		return nil
	}
	return parseImports(token.NewFileSet(), outPath)
}

func parseImports(fset *token.FileSet, file string) []GoImport {
	src, err := os.ReadFile(file)
	if err != nil {
		return nil
	}
	f, err := parser.ParseFile(fset, file, src, parser.ImportsOnly)
	if err != nil {
		return nil
	}

	out := make([]GoImport, 0, len(f.Imports))
	for _, imp := range f.Imports {
		p := strings.Trim(imp.Path.Value, `"`)
		name := ""
		if imp.Name != nil {
			name = imp.Name.Name
		}
		if name == "_" || name == "." {
			continue
		}
		out = append(out, GoImport{Name: name, Path: p})
	}
	return out
}

// findImportByAliasOrSuffix picks an import from scanned imports.
// Prefer alias match first, then suffix match.
func findImportByAliasOrSuffix(imports []GoImport, preferAlias, preferSuffix string) (GoImport, bool) {
	if preferAlias != "" {
		for _, gi := range imports {
			if gi.Name == preferAlias {
				return gi, true
			}
		}
	}
	if preferSuffix != "" {
		for _, gi := range imports {
			if gi.Name == "" && (gi.Path == preferSuffix || strings.HasSuffix(gi.Path, "/"+preferSuffix)) {
				return gi, true
			}
		}
	}
	return GoImport{}, false
}

func dedupeAndSortImports(imps []GoImport) []GoImport {
	type key struct {
		path string
		name string
	}
	seen := map[key]bool{}
	out := make([]GoImport, 0, len(imps))
	for _, gi := range imps {
		k := key{path: gi.Path, name: gi.Name}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, gi)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path == out[j].Path {
			return out[i].Name < out[j].Name
		}
		return out[i].Path < out[j].Path
	})
	return out
}

var qualifierRe = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)\.([A-Za-z_])`)

// importer rewrites type strings for the generated package and records the imports their
// package qualifiers need.
type importer struct {
	pkg   string
	known []GoImport
	used  map[string]GoImport
}

func newImporter(pkg string) *importer {
	return &importer{pkg: pkg, used: map[string]GoImport{}}
}

// provide registers an import path a qualifier may refer to. Component packages are
// provided before scanned imports so they win.
func (im *importer) provide(qualifier, importPath string) {
	if importPath == "" {
		return
	}
	gi := GoImport{Path: importPath}
	if path.Base(importPath) != qualifier {
		gi.Name = qualifier
	}
	im.known = append(im.known, gi)
}

func (im *importer) use(gi GoImport) {
	q := gi.Name
	if q == "" {
		q = path.Base(gi.Path)
	}
	if _, ok := im.used[q]; !ok {
		im.used[q] = gi
	}
}

// typ rewrites a declared type for use in the generated package: the package's own
// qualifier is dropped, other qualifiers are resolved to imports.
func (im *importer) typ(t string) string {
	t = strings.TrimSpace(t)
	return qualifierRe.ReplaceAllStringFunc(t, func(m string) string {
		sub := qualifierRe.FindStringSubmatch(m)
		q, rest := sub[1], sub[2]
		if q == im.pkg {
			return rest
		}
		im.qualify(q)
		return m
	})
}

// qualify records the import a qualifier refers to. Unknown qualifiers are assumed to be
// standard library packages.
func (im *importer) qualify(q string) {
	if gi, ok := findImportByAliasOrSuffix(im.known, q, q); ok {
		if gi.Name == "" && path.Base(gi.Path) != q {
			gi.Name = q
		}
		im.use(gi)
		return
	}
	im.use(GoImport{Path: q})
}

// imports returns the recorded imports, sorted.
func (im *importer) imports() []GoImport {
	out := make([]GoImport, 0, len(im.used))
	for _, gi := range im.used {
		out = append(out, gi)
	}
	return dedupeAndSortImports(out)
}
