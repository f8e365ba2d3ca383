// Package model holds the descriptors the resolver works on: modules, beans, sockets and the
// public surface a generated module exposes to the modules that import it.
package model

import (
	"fmt"
	"regexp"
	"strings"
)

// Scope of a bean. A bean has exactly one scope.
type Scope int

const (
	ScopeSingleton Scope = iota
	ScopePrototype
)

func (s Scope) String() string {
	if s == ScopePrototype {
		return "prototype"
	}
	return "singleton"
}

// ParseScope accepts "", "singleton" and "prototype".
func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "singleton":
		return ScopeSingleton, nil
	case "prototype":
		return ScopePrototype, nil
	default:
		return ScopeSingleton, fmt.Errorf("model: invalid scope %q", s)
	}
}

// Visibility of a bean outside its module.
type Visibility int

const (
	Public Visibility = iota
	Private
)

func (v Visibility) String() string {
	if v == Private {
		return "private"
	}
	return "public"
}

// ParseVisibility accepts "", "public" and "private".
func ParseVisibility(s string) (Visibility, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "public":
		return Public, nil
	case "private":
		return Private, nil
	default:
		return Public, fmt.Errorf("model: invalid visibility %q", s)
	}
}

// Multi is the cardinality of a socket: MultiNone for single sockets, otherwise the container
// shape the resolved beans are delivered in.
type Multi int

const (
	MultiNone Multi = iota
	MultiArray
	MultiList
	MultiSet
	MultiCollection
)

var multiNames = [...]string{"", "array", "list", "set", "collection"}

func (m Multi) String() string {
	if int(m) < len(multiNames) {
		return multiNames[m]
	}
	return "unknown"
}

// IsMulti reports whether the socket accepts several beans.
func (m Multi) IsMulti() bool { return m != MultiNone }

// ParseMulti accepts "", "none", "array", "list", "set" and "collection".
func ParseMulti(s string) (Multi, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "none" {
		return MultiNone, nil
	}
	for i, n := range multiNames {
		if n == s {
			return Multi(i), nil
		}
	}
	return MultiNone, fmt.Errorf("model: invalid multi %q", s)
}

func (m Multi) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Multi) UnmarshalText(b []byte) error {
	v, err := ParseMulti(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Origin tells whether a module was declared in source this pass or reconstructed from the
// artifact of a previous pass.
type Origin int

const (
	OriginSource Origin = iota
	OriginBinary
)

// BeanKind discriminates bean descriptors. Consumers switch on it exhaustively.
type BeanKind int

const (
	KindModuleBean BeanKind = iota
	KindWrapperBean
	KindNestedBean
	KindSocketBean
	KindComponentBean
)

func (k BeanKind) String() string {
	switch k {
	case KindModuleBean:
		return "module bean"
	case KindWrapperBean:
		return "wrapper bean"
	case KindNestedBean:
		return "nested bean"
	case KindSocketBean:
		return "socket bean"
	case KindComponentBean:
		return "component bean"
	default:
		return "unknown bean"
	}
}

// Selector narrows the candidates of a socket. Every non-empty field must match.
type Selector struct {
	Bean   string `json:"bean,omitempty" yaml:"bean,omitempty"`
	Module string `json:"module,omitempty" yaml:"module,omitempty"`
	Tag    string `json:"tag,omitempty" yaml:"tag,omitempty"`
}

// Matches reports whether the bean identified by module, name and tags passes the selector.
// Bean may be given as a local name or as a qualified name.
func (s Selector) Matches(module, name string, tags []string) bool {
	if s.Bean != "" && s.Bean != name && s.Bean != QualifiedName(module, name) {
		return false
	}
	if s.Module != "" && s.Module != module {
		return false
	}
	if s.Tag != "" {
		found := false
		for _, t := range tags {
			if t == s.Tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Setter describes the method an optional socket is injected through.
type Setter struct {
	Name   string
	Params int
}

// Method is one method of a socket bean's functional shape.
type Method struct {
	Name    string
	Params  []string
	Returns []string
}

// SocketDescriptor is an injection point: a requirement of a bean, or a socket a module
// exposes to the module that imports it.
type SocketDescriptor struct {
	Name      string
	Type      string
	Multi     Multi
	Optional  bool
	Selectors []Selector
	// WiredTo lists, for module sockets, the beans of the module the socket is injected into.
	WiredTo []string
	Setter  *Setter
}

// BeanDescriptor describes a bean. Kind tells which of the optional fields apply.
type BeanDescriptor struct {
	Kind        BeanKind
	Module      string
	Name        string
	Type        string
	Provides    string
	WrapperType string
	Scope       Scope
	Visibility  Visibility
	Constructor string
	Init        []string
	Destroy     []string
	Required    []*SocketDescriptor
	Optional    []*SocketDescriptor
	Nested      []*BeanDescriptor
	Tags        []string
	Overridable bool
	// Parent is the owning bean of a nested bean.
	Parent string
	// Method is the accessor a nested bean is obtained through.
	Method string
	// SocketDeps lists, for component beans, the sockets of their module they depend on.
	SocketDeps []string
}

// QualifiedName returns module:name.
func (b *BeanDescriptor) QualifiedName() string { return QualifiedName(b.Module, b.Name) }

// ProvidedType is the type other beans may request.
func (b *BeanDescriptor) ProvidedType() string {
	if b.Provides != "" {
		return b.Provides
	}
	return b.Type
}

// ModuleImport composes a component module into the importing module.
type ModuleImport struct {
	Module   string
	Includes []string
	Excludes []string
}

// Visible applies the include and exclude filters to a component bean name.
func (i ModuleImport) Visible(bean string) bool {
	if len(i.Includes) > 0 && !contains(i.Includes, bean) {
		return false
	}
	return !contains(i.Excludes, bean)
}

// Wire pins a socket to named beans. Into is "bean:socket" (or "module:bean:socket") for a
// bean socket and "component:socket" for a socket of a component module. Beans are local
// names, or component:bean for component beans.
type Wire struct {
	Beans []string
	Into  string
}

// TypeDecl declares the types a type is assignable to.
type TypeDecl struct {
	Name         string   `json:"name" yaml:"name"`
	AssignableTo []string `json:"assignableTo,omitempty" yaml:"assignableTo,omitempty"`
}

// ModuleDescriptor is a module with its beans, sockets, imports and wires.
type ModuleDescriptor struct {
	Name    string
	Package string
	File    string
	Beans   []*BeanDescriptor
	Sockets []*SocketDescriptor
	Imports []ModuleImport
	Wires   []Wire
	Types   []TypeDecl
	Origin  Origin
	// Rejected holds the valid names of beans and sockets dropped during extraction. They
	// still take part in name collision checks.
	Rejected []string
}

// Bean returns the bean with the given local name, nil if absent.
func (m *ModuleDescriptor) Bean(name string) *BeanDescriptor {
	for _, b := range m.Beans {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// Socket returns the module socket with the given name, nil if absent.
func (m *ModuleDescriptor) Socket(name string) *SocketDescriptor {
	for _, s := range m.Sockets {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// ImportNames returns the names of the component modules in import order.
func (m *ModuleDescriptor) ImportNames() []string {
	out := make([]string, 0, len(m.Imports))
	for _, i := range m.Imports {
		out = append(out, i.Module)
	}
	return out
}

// QualifiedName joins name parts with ':'.
func QualifiedName(parts ...string) string { return strings.Join(parts, ":") }

var (
	moduleNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)
	beanNameRe   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// ValidModuleName reports whether name is a dotted qualified name.
func ValidModuleName(name string) bool { return moduleNameRe.MatchString(name) }

// ValidBeanName reports whether name is a plain identifier.
func ValidBeanName(name string) bool { return beanNameRe.MatchString(name) }

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
