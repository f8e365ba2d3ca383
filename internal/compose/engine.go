// Package compose drives module resolution across rounds.
//
// Each round receives the declarations discovered in a pass and settles every module it can:
// a module is generated once all its component modules are generated, in this round, in an
// earlier one, or as artifacts of a previous pass. Modules whose components are not available
// stay pending for the next round; Finish fails whatever is still pending at the end.
package compose

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sghaida/modwire/internal/diag"
	"github.com/sghaida/modwire/internal/extract"
	"github.com/sghaida/modwire/internal/metrics"
	"github.com/sghaida/modwire/internal/model"
)

// ErrNoProgress is returned by a round that had pending work and no new input, yet settled
// no module. Running it again would loop forever.
var ErrNoProgress = errors.New("compose: round made no progress")

// SurfaceSource provides the surfaces of modules generated by a previous pass.
type SurfaceSource interface {
	Surface(module string) (*model.Surface, bool, error)
}

// Engine is the module composition engine.
type Engine struct {
	log       *zap.Logger
	state     *RoundState
	artifacts SurfaceSource
	metrics   *metrics.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithArtifacts sets where the surfaces of previous passes are read from.
func WithArtifacts(src SurfaceSource) Option { return func(e *Engine) { e.artifacts = src } }

// WithMetrics sets the counters updated by the engine.
func WithMetrics(m *metrics.Metrics) Option { return func(e *Engine) { e.metrics = m } }

// NewEngine returns an engine with an empty ledger.
func NewEngine(log *zap.Logger, opts ...Option) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{log: log.Named("compose"), state: NewRoundState()}
	for _, o := range opts {
		o(e)
	}
	return e
}

// State returns the ledger.
func (e *Engine) State() *RoundState { return e.state }

// Report summarizes a round.
type Report struct {
	ID        string
	Round     int
	Generated []*Entry
	Faulty    []*Entry
	Pending   []string
}

// Diagnostics returns the diagnostics of the modules settled in the round, ordered by module.
func (r *Report) Diagnostics() []diag.Diagnostic {
	var out []diag.Diagnostic
	for _, e := range r.settled() {
		out = append(out, e.Diagnostics...)
	}
	return out
}

func (r *Report) settled() []*Entry {
	out := make([]*Entry, 0, len(r.Generated)+len(r.Faulty))
	i, j := 0, 0
	for i < len(r.Generated) || j < len(r.Faulty) {
		if j >= len(r.Faulty) || (i < len(r.Generated) && r.Generated[i].Name < r.Faulty[j].Name) {
			out = append(out, r.Generated[i])
			i++
		} else {
			out = append(out, r.Faulty[j])
			j++
		}
	}
	return out
}

// Round runs one round over the declarations of a pass.
func (e *Engine) Round(decls []*extract.Declaration) (*Report, error) {
	start := time.Now()
	e.state.round++
	r := &round{Engine: e, id: uuid.NewString(), n: e.state.round}
	log := e.log.With(zap.String("round", r.id), zap.Int("n", r.n))

	added := 0
	for _, d := range decls {
		var c diag.Collector
		m := extract.Extract(d, &c)
		if prev, ok := e.state.Entry(m.Name); ok {
			log.Warn("module declared more than once, keeping the first declaration",
				zap.String("module", m.Name), zap.String("file", d.Path), zap.Stringer("state", prev.State))
			continue
		}
		e.state.put(&Entry{
			Name:        m.Name,
			State:       Pending,
			Decl:        d,
			Module:      m,
			Diagnostics: c.Diagnostics(),
			invalid:     c.HasErrors(),
		})
		added++
	}

	pending := e.state.Pending()
	for _, name := range pending {
		r.generate(name)
	}

	rep := r.report()
	if e.metrics != nil {
		e.metrics.Rounds.Inc()
		e.metrics.Duration.Observe(time.Since(start).Seconds())
	}
	log.Info("round complete",
		zap.Int("generated", len(rep.Generated)),
		zap.Int("faulty", len(rep.Faulty)),
		zap.Int("pending", len(rep.Pending)),
		zap.Duration("took", time.Since(start)))

	if len(pending) > 0 && added == 0 && len(rep.Generated)+len(rep.Faulty) == 0 {
		return rep, fmt.Errorf("%w: pending %s", ErrNoProgress, strings.Join(rep.Pending, ", "))
	}
	return rep, nil
}

// Finish fails every module still pending: one that imports a module nobody declared reports
// it as not found, one that waits on such a module reports a faulty component.
func (e *Engine) Finish() *Report {
	r := &round{Engine: e, id: uuid.NewString(), n: e.state.round}
	for _, name := range e.state.Pending() {
		r.fail(name)
	}
	rep := r.report()
	e.log.Info("finished", zap.String("round", r.id), zap.Int("faulty", len(rep.Faulty)))
	return rep
}

type round struct {
	*Engine
	id   string
	n    int
	path []string
	// done lists the modules settled by this round.
	done []*Entry
}

func (r *round) report() *Report {
	rep := &Report{ID: r.id, Round: r.n, Pending: r.state.Pending()}
	sort.Slice(r.done, func(i, j int) bool { return r.done[i].Name < r.done[j].Name })
	for _, en := range r.done {
		if en.State == Generated {
			rep.Generated = append(rep.Generated, en)
		} else {
			rep.Faulty = append(rep.Faulty, en)
		}
	}
	return rep
}

func (r *round) settle(en *Entry, s State) {
	en.State = s
	en.Round = r.n
	r.done = append(r.done, en)
	if r.metrics != nil {
		r.metrics.Modules.WithLabelValues(s.String()).Inc()
		for _, d := range en.Diagnostics {
			r.metrics.Diagnostics.WithLabelValues(d.Severity.String()).Inc()
		}
	}
	fields := []zap.Field{zap.String("round", r.id), zap.String("module", en.Name), zap.Int("diagnostics", len(en.Diagnostics))}
	if s == Faulty {
		r.log.Warn("module faulty", fields...)
	} else {
		r.log.Debug("module generated", fields...)
	}
}

func (r *round) fault(en *Entry, msg string) {
	en.Diagnostics = append(en.Diagnostics, diag.Diagnostic{Severity: diag.SeverityError, Message: msg, Location: en.location()})
	r.settle(en, Faulty)
}

// generate settles a module and, first, the component modules it imports.
func (r *round) generate(name string) {
	en, ok := r.state.Entry(name)
	if !ok || en.State != Pending {
		return
	}
	en.State = InProgress
	r.path = append(r.path, name)
	defer func() { r.path = r.path[:len(r.path)-1] }()

	for _, imp := range en.Module.Imports {
		comp, ok := r.state.Entry(imp.Module)
		if !ok {
			var err error
			comp, err = r.load(imp.Module)
			if err != nil {
				r.fault(en, err.Error())
				return
			}
			if comp == nil {
				en.State = Pending
				return
			}
		}
		switch comp.State {
		case InProgress:
			r.importCycle(imp.Module)
			return
		case Pending:
			r.generate(imp.Module)
		}
		if en.State == Faulty {
			return
		}
		switch comp.State {
		case Faulty:
			r.fault(en, diag.FaultyComponent(en.Name, imp.Module))
			return
		case Pending:
			en.State = Pending
			return
		}
	}
	r.resolve(en)
}

// load reads the surface of a module generated by a previous pass into the ledger.
func (r *round) load(name string) (*Entry, error) {
	if r.artifacts == nil {
		return nil, nil
	}
	sf, ok, err := r.artifacts.Surface(name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	en := &Entry{
		Name:    name,
		State:   Generated,
		Binary:  true,
		Module:  &model.ModuleDescriptor{Name: name, Package: sf.Package, Types: sf.Types, Origin: model.OriginBinary},
		Surface: sf,
		Round:   r.n,
	}
	r.state.put(en)
	r.log.Debug("component read from artifact", zap.String("round", r.id), zap.String("module", name))
	return en, nil
}

// importCycle fails every module on the import path from target back to the current module.
func (r *round) importCycle(target string) {
	start := 0
	for i, n := range r.path {
		if n == target {
			start = i
			break
		}
	}
	members := r.path[start:]
	for i, n := range members {
		cyc := make([]string, 0, len(members)+1)
		cyc = append(cyc, members[i:]...)
		cyc = append(cyc, members[:i]...)
		cyc = append(cyc, n)
		if en, ok := r.state.Entry(n); ok && !en.Settled() {
			r.fault(en, diag.ImportCycle(n, cyc))
		}
	}
}

func (r *round) resolve(en *Entry) {
	comps := make([]*model.Component, 0, len(en.Module.Imports))
	for _, imp := range en.Module.Imports {
		c, _ := r.state.Entry(imp.Module)
		comps = append(comps, &model.Component{Import: imp, Surface: c.Surface, Binary: c.Binary})
	}

	var c diag.Collector
	if en.invalid {
		Check(en.Module, comps, &c)
		en.Diagnostics = append(en.Diagnostics, c.Diagnostics()...)
		r.settle(en, Faulty)
		return
	}

	p, sf := Resolve(en.Module, comps, &c)
	en.Diagnostics = append(en.Diagnostics, c.Diagnostics()...)
	if p == nil {
		r.settle(en, Faulty)
		return
	}

	d := en.Decl
	p.ImportPath = d.ImportPath
	p.TypeName = d.TypeName
	if p.TypeName == "" {
		p.TypeName = TypeName(en.Name)
	}
	p.Source = d.Raw
	sf.ImportPath = p.ImportPath
	sf.TypeName = p.TypeName
	en.Plan = p
	en.Surface = sf
	r.settle(en, Generated)
}

// fail settles a module left pending when no more rounds will run.
func (r *round) fail(name string) {
	en, ok := r.state.Entry(name)
	if !ok || en.State != Pending {
		return
	}
	en.State = InProgress
	r.path = append(r.path, name)
	r.failImports(en)
	r.path = r.path[:len(r.path)-1]
	if en.Settled() {
		return
	}
	en.State = Pending
	r.generate(name)
}

func (r *round) failImports(en *Entry) {
	for _, imp := range en.Module.Imports {
		comp, ok := r.state.Entry(imp.Module)
		if !ok {
			r.fault(en, diag.ComponentNotFound(imp.Module))
			return
		}
		switch comp.State {
		case InProgress:
			r.importCycle(imp.Module)
			return
		case Pending:
			r.fail(imp.Module)
		}
		if en.Settled() {
			return
		}
		if comp.State == Faulty {
			r.fault(en, diag.FaultyComponent(en.Name, imp.Module))
			return
		}
	}
}

// TypeName derives the generated type name from the last segment of a module name.
func TypeName(module string) string {
	if i := strings.LastIndexByte(module, '.'); i >= 0 {
		module = module[i+1:]
	}
	if module == "" {
		return "Module"
	}
	rs := []rune(module)
	rs[0] = unicode.ToUpper(rs[0])
	return string(rs)
}
