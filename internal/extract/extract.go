package extract

import (
	"strings"
	"unicode"

	"github.com/sghaida/modwire/internal/diag"
	"github.com/sghaida/modwire/internal/model"
)

// Extract builds the module descriptor of a declaration. Problems are reported to c; beans
// that cannot be instantiated are left out of the descriptor so the rest of the module can
// still be checked in the same pass.
func Extract(decl *Declaration, c *diag.Collector) *model.ModuleDescriptor {
	m := &model.ModuleDescriptor{
		Name:    strings.TrimSpace(decl.Module),
		Package: decl.Package,
		File:    decl.Path,
		Types:   decl.Types,
		Origin:  model.OriginSource,
	}
	modLoc := diag.Location{File: decl.Path, Module: m.Name}
	if !model.ValidModuleName(m.Name) {
		c.Error(modLoc, diag.InvalidModuleName(m.Name))
	}

	for _, imp := range decl.Imports {
		m.Imports = append(m.Imports, model.ModuleImport{
			Module:   strings.TrimSpace(imp.Module),
			Includes: imp.Includes,
			Excludes: imp.Excludes,
		})
	}

	for i := range decl.Sockets {
		if s := extractModuleSocket(m, &decl.Sockets[i], c); s != nil {
			m.Sockets = append(m.Sockets, s)
		} else {
			reject(m, decl.Sockets[i].Name)
		}
	}

	for i := range decl.Beans {
		if b := extractBean(m, &decl.Beans[i], c); b != nil {
			m.Beans = append(m.Beans, b)
		} else {
			reject(m, decl.Beans[i].Name)
		}
	}

	for _, w := range decl.Wires {
		m.Wires = append(m.Wires, model.Wire{Beans: w.Beans, Into: strings.TrimSpace(w.Into)})
	}
	return m
}

// reject keeps the name of a dropped declaration so a later one reusing it still collides.
func reject(m *model.ModuleDescriptor, name string) {
	if model.ValidBeanName(name) {
		m.Rejected = append(m.Rejected, name)
	}
}

func extractModuleSocket(m *model.ModuleDescriptor, sd *SocketDecl, c *diag.Collector) *model.SocketDescriptor {
	loc := diag.Location{File: m.File, Module: m.Name, Bean: sd.Name}
	if !model.ValidBeanName(sd.Name) {
		c.Error(loc, diag.InvalidBeanName(sd.Name))
	}
	multi, err := model.ParseMulti(sd.Multi)
	if err != nil {
		c.Error(loc, err.Error())
		return nil
	}
	if !validSupplier(sd.Methods, sd.Type) {
		c.Error(loc, diag.InvalidSocketBean(sd.Type))
		return nil
	}
	return &model.SocketDescriptor{
		Name:      sd.Name,
		Type:      sd.Type,
		Multi:     multi,
		Optional:  sd.Optional,
		Selectors: sd.Selectors,
	}
}

// validSupplier checks the functional shape of a socket bean: a single method taking at
// most one argument and returning the socket type.
func validSupplier(methods []MethodDecl, typ string) bool {
	if len(methods) == 0 {
		return true
	}
	if len(methods) != 1 {
		return false
	}
	md := methods[0]
	return len(md.Params) <= 1 && len(md.Returns) == 1 && sameType(md.Returns[0], typ)
}

func extractBean(m *model.ModuleDescriptor, bd *BeanDecl, c *diag.Collector) *model.BeanDescriptor {
	loc := diag.Location{File: m.File, Module: m.Name, Bean: bd.Name}
	qname := model.QualifiedName(m.Name, bd.Name)
	ok := true

	if !model.ValidBeanName(bd.Name) {
		c.Error(loc, diag.InvalidBeanName(bd.Name))
		ok = false
	}
	if bd.Interface {
		c.Error(loc, diag.AbstractBean(bd.Type))
		ok = false
	} else if !exportedType(bd.Type) {
		c.Error(loc, diag.UnexportedBean(bd.Type))
		ok = false
	}
	scope, err := model.ParseScope(bd.Scope)
	if err != nil {
		c.Error(loc, err.Error())
		ok = false
	}
	visibility, err := model.ParseVisibility(bd.Visibility)
	if err != nil {
		c.Error(loc, err.Error())
		ok = false
	}
	if provided := providedType(bd); scope == model.ScopePrototype && provided != "" && !strings.HasPrefix(provided, "*") {
		c.Error(loc, diag.PrototypeNotPointer(provided))
		ok = false
	}
	if bd.Wrapper && strings.TrimSpace(bd.Provides) == "" {
		c.Error(loc, "A wrapper bean must declare the type it provides: "+bd.Type)
		ok = false
	}

	ctor, cok := selectConstructor(qname, bd.Constructors, loc, c)
	if !cok || !ok {
		return nil
	}

	b := &model.BeanDescriptor{
		Kind:        model.KindModuleBean,
		Module:      m.Name,
		Name:        bd.Name,
		Type:        bd.Type,
		Provides:    bd.Provides,
		Scope:       scope,
		Visibility:  visibility,
		Constructor: ctor.Name,
		Init:        bd.Init,
		Destroy:     bd.Destroy,
		Tags:        bd.Tags,
		Overridable: bd.Overridable,
	}
	if bd.Wrapper {
		b.Kind = model.KindWrapperBean
		b.WrapperType = bd.Type
		b.Type = bd.Provides
		b.Provides = ""
	}

	for _, p := range ctor.Params {
		s, sok := paramSocket(p, loc, c)
		if sok {
			b.Required = append(b.Required, s)
		}
	}
	for _, o := range bd.Optional {
		if o.Params != nil && *o.Params != 1 {
			c.Warning(diag.Location{File: m.File, Module: m.Name, Bean: bd.Name, Socket: o.Name}, diag.InvalidSetter)
			continue
		}
		s, sok := paramSocket(o.ParamDecl, loc, c)
		if !sok {
			continue
		}
		s.Optional = true
		s.Setter = &model.Setter{Name: o.Setter, Params: 1}
		b.Optional = append(b.Optional, s)
	}
	for _, n := range bd.Nested {
		if !model.ValidBeanName(n.Name) {
			c.Error(loc, diag.InvalidBeanName(n.Name))
			continue
		}
		b.Nested = append(b.Nested, &model.BeanDescriptor{
			Kind:       model.KindNestedBean,
			Module:     m.Name,
			Name:       bd.Name + "." + n.Name,
			Type:       n.Type,
			Scope:      model.ScopePrototype,
			Visibility: visibility,
			Parent:     bd.Name,
			Method:     n.Method,
		})
	}
	return b
}

func providedType(bd *BeanDecl) string {
	if bd.Wrapper {
		return strings.TrimSpace(bd.Provides)
	}
	return strings.TrimSpace(bd.Type)
}

// selectConstructor applies the injection constructor rules: a single enabled constructor
// is used as is, several require exactly one to be marked for injection.
func selectConstructor(qname string, ctors []ConstructorDecl, loc diag.Location, c *diag.Collector) (ConstructorDecl, bool) {
	enabled := make([]ConstructorDecl, 0, len(ctors))
	for _, ct := range ctors {
		if !ct.Disabled && exportedIdent(ct.Name) {
			enabled = append(enabled, ct)
		}
	}
	switch len(enabled) {
	case 0:
		c.Error(loc, diag.NoConstructor(qname))
		return ConstructorDecl{}, false
	case 1:
		return enabled[0], true
	}
	var marked []ConstructorDecl
	for _, ct := range enabled {
		if ct.Inject {
			marked = append(marked, ct)
		}
	}
	switch len(marked) {
	case 0:
		c.Error(loc, diag.NoInjectConstructor(qname))
		return ConstructorDecl{}, false
	case 1:
		return marked[0], true
	default:
		c.Error(loc, diag.MultipleInjectConstructors(qname))
		return ConstructorDecl{}, false
	}
}

func paramSocket(p ParamDecl, loc diag.Location, c *diag.Collector) (*model.SocketDescriptor, bool) {
	multi, err := model.ParseMulti(p.Multi)
	if err != nil {
		loc.Socket = p.Name
		c.Error(loc, err.Error())
		return nil, false
	}
	return &model.SocketDescriptor{
		Name:      p.Name,
		Type:      p.Type,
		Multi:     multi,
		Selectors: p.Selectors,
	}, true
}

// exportedType reports whether the named type of a Go type string is exported:
// "*app.Service" and "app.Service[T]" are, "*app.service" and "int" are not.
func exportedType(t string) bool {
	t = strings.TrimLeft(strings.TrimSpace(t), "*")
	if i := strings.IndexByte(t, '['); i >= 0 {
		t = t[:i]
	}
	if i := strings.LastIndexByte(t, '.'); i >= 0 {
		t = t[i+1:]
	}
	return exportedIdent(t)
}

func exportedIdent(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}

func sameType(a, b string) bool {
	return strings.Join(strings.Fields(a), "") == strings.Join(strings.Fields(b), "")
}
