package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/sghaida/modwire/internal/artifact"
	"github.com/sghaida/modwire/internal/compose"
	"github.com/sghaida/modwire/internal/config"
	"github.com/sghaida/modwire/internal/diag"
	"github.com/sghaida/modwire/internal/emit"
	"github.com/sghaida/modwire/internal/extract"
	"github.com/sghaida/modwire/internal/metrics"
	"github.com/sghaida/modwire/internal/model"
)

type generator struct {
	cfg     config.Config
	log     *zap.Logger
	metrics *metrics.Metrics
	store   *artifact.Store
	runtime string
	check   bool
	out     io.Writer
}

type summary struct {
	Generated int
	Faulty    int
	Errors    int
	Warnings  int
	Written   int
}

// pass runs one round per root, in configuration order, and fails what is left pending.
// Modules generated in the pass are written next to their declaration, with their artifact.
func (g *generator) pass() (summary, error) {
	var sum summary

	perRoot := make([][]*extract.Declaration, 0, len(g.cfg.Roots))
	declared := map[string]bool{}
	for _, root := range g.cfg.Roots {
		decls, errs := discover(root, g.log)
		for _, err := range errs {
			fmt.Fprintf(g.out, "error: %v\n", err)
			sum.Errors++
		}
		for _, d := range decls {
			g.fillImportPath(d)
			declared[d.Module] = true
		}
		perRoot = append(perRoot, decls)
	}

	engine := compose.NewEngine(g.log,
		compose.WithArtifacts(undeclared{src: g.store, declared: declared}),
		compose.WithMetrics(g.metrics))

	var (
		reports []*compose.Report
		files   []emit.File
		errs    []error
		entries []*compose.Entry
	)
	for i, decls := range perRoot {
		rep, err := engine.Round(decls)
		reports = append(reports, rep)
		if err != nil {
			// composition stops at the first stalled round
			g.log.Error("round made no progress", zap.String("root", g.cfg.Roots[i]), zap.Error(err))
			errs = append(errs, err)
			break
		}
	}
	reports = append(reports, engine.Finish())
	state := engine.State()
	g.log.Debug("composition finished", zap.Int("rounds", state.Round()), zap.Int("roots", len(perRoot)))

	for _, rep := range reports {
		for _, d := range rep.Diagnostics() {
			fmt.Fprintln(g.out, d.String())
			switch d.Severity {
			case diag.SeverityError:
				sum.Errors++
			default:
				sum.Warnings++
			}
		}
		sum.Faulty += len(rep.Faulty)
		for _, en := range rep.Generated {
			if en.Binary || en.Plan == nil {
				continue
			}
			sum.Generated++
			entries = append(entries, en)
		}
	}

	for _, en := range entries {
		out := outPath(en.Decl.Path, g.cfg.Suffix)
		src, err := emit.Source(en.Plan, emit.Options{
			Runtime: g.runtime,
			Dir:     filepath.Dir(en.Decl.Path),
			Out:     out,
			Suffix:  g.cfg.Suffix,
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		files = append(files, emit.File{Path: out, Src: src})
	}

	if !g.check {
		n, err := emit.WriteAll(files, g.cfg.Workers, g.log)
		if err != nil {
			errs = append(errs, err)
		}
		sum.Written = n
		g.metrics.Files.Add(float64(n))

		for _, en := range entries {
			if err := g.store.Write(en.Surface); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if len(errs) > 0 {
		return sum, errors.Join(errs...)
	}
	if sum.Errors > 0 {
		return sum, fmt.Errorf("%w: %d error(s)", ErrDiagnostics, sum.Errors)
	}
	return sum, nil
}

func (g *generator) fillImportPath(d *extract.Declaration) {
	if d.ImportPath != "" {
		return
	}
	ip, err := emit.ImportPathForDir(filepath.Dir(d.Path))
	if err != nil {
		g.log.Warn("import path unknown", zap.String("file", d.Path), zap.Error(err))
		return
	}
	d.ImportPath = ip
}

// undeclared hides the artifacts of modules declared in the pass: their declaration is
// the newer truth even when it only comes in a later round.
type undeclared struct {
	src      compose.SurfaceSource
	declared map[string]bool
}

func (u undeclared) Surface(module string) (*model.Surface, bool, error) {
	if u.declared[module] {
		return nil, false, nil
	}
	return u.src.Surface(module)
}

// discover loads the declarations under root, in lexical order. Hidden directories, vendor
// and testdata below the root are skipped.
func discover(root string, log *zap.Logger) ([]*extract.Declaration, []error) {
	var (
		decls []*extract.Declaration
		errs  []error
	)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			errs = append(errs, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && skipDir(d.Name()) {
				return fs.SkipDir
			}
			return nil
		}
		if !extract.IsDeclaration(path) {
			return nil
		}
		decl, err := extract.Load(path)
		if err != nil {
			errs = append(errs, err)
			return nil
		}
		log.Debug("declaration found", zap.String("file", path), zap.String("module", decl.Module))
		decls = append(decls, decl)
		return nil
	})
	if err != nil {
		errs = append(errs, err)
	}
	return decls, errs
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || name == "vendor" || name == "testdata"
}

// outPath names the generated file of a declaration: app.module.json gives app<suffix>.
func outPath(decl, suffix string) string {
	base := filepath.Base(decl)
	for _, s := range extract.Suffixes {
		if strings.HasSuffix(base, s) {
			base = strings.TrimSuffix(base, s)
			break
		}
	}
	return filepath.Join(filepath.Dir(decl), base+suffix)
}
