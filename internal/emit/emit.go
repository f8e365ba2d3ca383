// Package emit renders the Go source of generated modules from their plans.
//
// A generated module is a struct embedding *di.Module, with one holder field per bean and
// per component module, a sockets struct the importer fills in, and a New<Type> constructor
// registering every holder. Rendering is purely mechanical: every decision was taken by the
// resolver and is carried by the plan.
package emit

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"go/format"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/sghaida/modwire/internal/model"
	"github.com/sghaida/modwire/internal/plan"
	"github.com/sghaida/modwire/internal/schedule"
)

// DefaultRuntime is the import path of the runtime library generated code links against.
const DefaultRuntime = "github.com/sghaida/modwire/di"

// ErrFormat is returned when the rendered source is not valid Go.
var ErrFormat = errors.New("emit: generated source does not format")

// Options control how a plan is rendered.
type Options struct {
	// Runtime is the import path of the di package; DefaultRuntime when empty.
	Runtime string
	// Dir is the package directory, scanned for the imports type qualifiers refer to.
	Dir string
	// Out is the path of the generated file. The imports of a previous output are reused.
	Out string
	// Suffix of generated files, excluded from the package scan.
	Suffix string
}

// Source renders the file of a module. When the rendered text does not format, it is
// returned together with an error wrapping ErrFormat.
func Source(p *plan.Module, opts Options) ([]byte, error) {
	v := newView(p, opts)

	var buf bytes.Buffer
	if err := moduleTpl.Execute(&buf, v); err != nil {
		return nil, fmt.Errorf("emit: %s: %w", p.Name, err)
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return buf.Bytes(), fmt.Errorf("%w: %s: %v", ErrFormat, p.Name, err)
	}
	return src, nil
}

// Getter is the accessor method of a public bean in a generated module.
func Getter(bean string) string {
	g := exportName(identifier(bean))
	if reserved[g] {
		g += "Bean"
	}
	return g
}

// SocketField is the field of a socket in the sockets struct of a generated module.
func SocketField(socket string) string { return exportName(identifier(socket)) }

// reserved are the names a generated module gets from the embedded *di.Module.
var reserved = map[string]bool{
	"Module": true, "Name": true, "Options": true, "Start": true, "Stop": true,
	"IsActive": true, "Bean": true, "Stack": true,
}

type view struct {
	Source     string
	Hash       string
	Module     string
	Package    string
	TypeName   string
	Order      string
	Imports    []GoImport
	Sockets    []socketView
	Required   []socketView
	Beans      []*beanView
	Nested     []nestedView
	Components []*componentView
}

type socketView struct {
	Name     string
	Field    string
	Type     string
	Required bool
}

type beanView struct {
	Name        string
	Field       string
	Getter      string
	Holder      string
	HolderType  string
	Type        string
	Public      bool
	Overridable bool
	Create      []string
	Init        []string
	Destroy     []string
}

type nestedView struct {
	Func   string
	Type   string
	Parent string
	Method string
}

type componentView struct {
	Name   string
	Field  string
	Type   string
	Create []string
}

type gen struct {
	p      *plan.Module
	im     *importer
	nested map[string]string
	comps  map[string]*componentView
}

func newView(p *plan.Module, opts Options) *view {
	g := &gen{
		p:      p,
		im:     newImporter(p.Package),
		nested: map[string]string{},
		comps:  map[string]*componentView{},
	}
	runtime := opts.Runtime
	if runtime == "" {
		runtime = DefaultRuntime
	}
	rt := GoImport{Path: runtime}
	if path.Base(runtime) != "di" {
		rt.Name = "di"
	}
	g.im.use(rt)

	for _, c := range p.Components {
		if c.Surface.Package != p.Package {
			g.im.provide(c.Surface.Package, c.Surface.ImportPath)
		}
	}
	if opts.Dir != "" {
		g.im.known = append(g.im.known, ScanPackageImports(opts.Dir, opts.Suffix)...)
	}
	g.im.known = append(g.im.known, ReadImportsFromExistingOut(opts.Out)...)

	v := &view{
		Source:   filepath.Base(p.File),
		Hash:     sha256Hex(p.Source),
		Module:   p.Name,
		Package:  p.Package,
		TypeName: p.TypeName,
		Order:    strings.Join(p.Order, ", "),
	}

	for _, s := range p.Sockets {
		sv := socketView{Name: s.Name, Field: SocketField(s.Name), Type: g.socketType(s), Required: !s.Optional}
		v.Sockets = append(v.Sockets, sv)
		if sv.Required {
			v.Required = append(v.Required, sv)
		}
	}

	// names first: create functions may refer to beans declared later
	for _, b := range p.Beans {
		for _, n := range b.Nested {
			g.nested[n.Desc.Name] = "nested" + exportName(identifier(n.Desc.Name))
		}
	}
	used := map[string]int{}
	for _, c := range p.Components {
		field := identifier(lastSegment(c.Name)) + "Module"
		if k := used[field]; k > 0 {
			used[field] = k + 1
			field += strconv.Itoa(k)
		} else {
			used[field] = 1
		}
		cv := &componentView{Name: schedule.ComponentPrefix + c.Name, Field: field}
		g.comps[c.Name] = cv
	}

	for _, b := range p.Beans {
		v.Beans = append(v.Beans, g.bean(b))
		for _, n := range b.Nested {
			v.Nested = append(v.Nested, nestedView{
				Func:   g.nested[n.Desc.Name],
				Type:   g.im.typ(n.Desc.Type),
				Parent: beanField(b.Desc.Name),
				Method: n.Desc.Method,
			})
		}
	}
	for _, c := range p.Components {
		v.Components = append(v.Components, g.component(c))
	}

	v.Imports = g.im.imports()
	return v
}

func (g *gen) socketType(s *model.SocketDescriptor) string {
	t := g.im.typ(s.Type)
	if s.Multi.IsMulti() {
		return "[]" + t
	}
	return t
}

func (g *gen) bean(b *plan.Bean) *beanView {
	d := b.Desc
	t := g.im.typ(d.Type)
	bv := &beanView{
		Name:        d.Name,
		Field:       beanField(d.Name),
		Getter:      Getter(d.Name),
		Type:        t,
		Public:      d.Visibility == model.Public,
		Overridable: d.Overridable,
		Init:        lifecycle(d.Init),
		Destroy:     lifecycle(d.Destroy),
	}
	switch d.Scope {
	case model.ScopePrototype:
		bv.Holder = "NewPrototype"
		bv.HolderType = "*di.Prototype[" + strings.TrimPrefix(t, "*") + "]"
	default:
		bv.Holder = "NewSingleton"
		bv.HolderType = "*di.Singleton[" + t + "]"
	}

	w := &writer{}
	args := make([]string, 0, len(b.Required))
	for _, a := range b.Required {
		args = append(args, g.arg(w, a))
	}
	call := g.im.typ(d.Constructor) + "(" + strings.Join(args, ", ") + ")"
	if d.Kind == model.KindWrapperBean {
		call += ".Get()"
	}
	w.line("bean = " + call)
	for _, a := range b.Optional {
		if len(a.Refs) == 0 || a.Socket.Setter == nil {
			continue
		}
		w.line("bean." + a.Socket.Setter.Name + "(" + g.arg(w, a) + ")")
	}
	w.line("return bean, nil")
	bv.Create = w.lines
	return bv
}

func (g *gen) component(c *plan.Component) *componentView {
	cv := g.comps[c.Name]
	typeName := c.Surface.TypeName
	if typeName == "" {
		typeName = exportName(identifier(lastSegment(c.Name)))
	}
	qual := ""
	if c.Surface.Package != g.p.Package {
		qual = c.Surface.Package + "."
		g.im.qualify(c.Surface.Package)
	}
	cv.Type = "*" + qual + typeName

	w := &writer{}
	fields := make([]string, 0, len(c.Sockets))
	for _, a := range c.Sockets {
		if len(a.Refs) == 0 {
			continue
		}
		fields = append(fields, SocketField(a.Socket.Name)+": "+g.arg(w, a))
	}
	w.line("return " + qual + "New" + typeName + "(" + qual + typeName + "Sockets{" + strings.Join(fields, ", ") + "}, m.Options()...)")
	cv.Create = w.lines
	return cv
}

// arg returns the expression satisfying a socket, emitting the fetches it needs into w.
// Multi module sockets are spliced into a multi socket in place, so the resolution order
// is kept.
func (g *gen) arg(w *writer, a plan.Arg) string {
	if !a.Socket.Multi.IsMulti() {
		if len(a.Refs) == 0 {
			return "*new(" + g.im.typ(a.Socket.Type) + ")"
		}
		return g.ref(w, a.Refs[0])
	}
	if len(a.Refs) == 0 {
		return "nil"
	}
	slice := "[]" + g.im.typ(a.Socket.Type)
	expr := ""
	var elems []string
	flush := func() {
		if len(elems) == 0 {
			return
		}
		if expr == "" {
			expr = slice + "{" + strings.Join(elems, ", ") + "}"
		} else {
			expr = "append(" + expr + ", " + strings.Join(elems, ", ") + ")"
		}
		elems = nil
	}
	for _, r := range a.Refs {
		if !r.Multi {
			elems = append(elems, g.ref(w, r))
			continue
		}
		flush()
		if expr == "" {
			expr = slice + "(nil)"
		}
		expr = "append(" + expr + ", " + g.ref(w, r) + "...)"
	}
	flush()
	return expr
}

func (g *gen) ref(w *writer, r plan.Ref) string {
	switch r.Kind {
	case plan.RefSocket:
		return "m.sockets." + SocketField(r.Name)
	case plan.RefComponent:
		c := w.tmp("c")
		w.fetch(c, "m."+g.comps[r.Component].Field+".Get()")
		v := w.tmp("a")
		w.fetch(v, c+"."+Getter(r.Name)+"()")
		return v
	default:
		v := w.tmp("a")
		if fn, ok := g.nested[r.Name]; ok {
			w.fetch(v, "m."+fn+"()")
		} else {
			w.fetch(v, "m."+beanField(r.Name)+".Get()")
		}
		return v
	}
}

// writer accumulates the statements of a create function.
type writer struct {
	lines []string
	n     int
}

func (w *writer) line(s string) { w.lines = append(w.lines, s) }

func (w *writer) tmp(prefix string) string {
	v := prefix + strconv.Itoa(w.n)
	w.n++
	return v
}

func (w *writer) fetch(v, call string) {
	w.line(v + ", err := " + call)
	w.line("if err != nil {")
	w.line("return bean, err")
	w.line("}")
}

// lifecycle chains init or destroy methods, stopping at the first error.
func lifecycle(methods []string) []string {
	var out []string
	for i, m := range methods {
		if i == len(methods)-1 {
			out = append(out, "return bean."+m+"()")
			break
		}
		out = append(out, "if err := bean."+m+"(); err != nil {", "return err", "}")
	}
	return out
}

func beanField(name string) string { return identifier(name) + "Bean" }

// identifier turns a bean name, possibly dotted for nested beans, into a Go identifier.
func identifier(name string) string {
	parts := strings.Split(name, ".")
	for i := 1; i < len(parts); i++ {
		parts[i] = exportName(parts[i])
	}
	return strings.Join(parts, "")
}

func lastSegment(module string) string {
	if i := strings.LastIndexByte(module, '.'); i >= 0 {
		return module[i+1:]
	}
	return module
}

func exportName(s string) string {
	if s == "" {
		return s
	}
	rs := []rune(s)
	rs[0] = unicode.ToUpper(rs[0])
	return string(rs)
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
