// Package plan is the resolved wiring of a module, in the shape the emitter consumes.
package plan

import (
	"github.com/sghaida/modwire/internal/graph"
	"github.com/sghaida/modwire/internal/model"
	"github.com/sghaida/modwire/internal/resolve"
)

// RefKind tells where a resolved reference points.
type RefKind int

const (
	// RefLocal is a bean or nested bean of the module.
	RefLocal RefKind = iota
	// RefSocket is a module socket.
	RefSocket
	// RefComponent is a public bean of a component module.
	RefComponent
)

// Ref is a resolved reference to a supplier.
type Ref struct {
	Kind RefKind
	// Name is the local name of the bean or socket, or the bean name inside the component.
	Name string
	// Component is the component module name for RefComponent.
	Component string
	// Multi marks a RefSocket to a multi module socket: a collection, spliced into the
	// collection it satisfies.
	Multi bool
}

// Arg is a socket with the references that satisfy it, in resolution order.
type Arg struct {
	Socket *model.SocketDescriptor
	Refs   []Ref
}

// Bean is a bean with its resolved constructor arguments and setters.
type Bean struct {
	Desc     *model.BeanDescriptor
	Required []Arg
	Optional []Arg
	// Nested lists the nested beans obtained from this bean.
	Nested []*Bean
}

// Deps returns every reference the bean depends on, required first.
func (b *Bean) Deps() []Ref {
	var out []Ref
	for _, a := range b.Required {
		out = append(out, a.Refs...)
	}
	for _, a := range b.Optional {
		out = append(out, a.Refs...)
	}
	return out
}

// Component is an imported module with the wiring of its sockets.
type Component struct {
	Name    string
	Surface *model.Surface
	Sockets []Arg
}

// Module is the plan of one module.
type Module struct {
	Name       string
	Package    string
	ImportPath string
	TypeName   string
	// File is the declaration the module was read from.
	File string
	// Source is the raw declaration, hashed into the generated file header.
	Source []byte

	Sockets    []*model.SocketDescriptor
	Beans      []*Bean
	Components []*Component
	// Order is the static creation order: singleton beans and components, dependencies first.
	Order []string
}

// Bean returns the plan of a bean by local name, nested beans included.
func (m *Module) Bean(name string) *Bean {
	for _, b := range m.Beans {
		if b.Desc.Name == name {
			return b
		}
		for _, n := range b.Nested {
			if n.Desc.Name == name {
				return n
			}
		}
	}
	return nil
}

// Component returns the plan of a component by module name.
func (m *Module) Component(name string) *Component {
	for _, c := range m.Components {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Build assembles the plan of a resolved graph.
func Build(g *graph.Graph, res *resolve.Result) *Module {
	m := g.Module
	p := &Module{
		Name:    m.Name,
		Package: m.Package,
		File:    m.File,
		Sockets: m.Sockets,
	}

	args := map[*graph.Node][]Arg{}
	for _, w := range res.Wires {
		a := Arg{Socket: w.Stub.Socket}
		for _, n := range w.Beans {
			a.Refs = append(a.Refs, refTo(n))
		}
		args[w.Stub.Owner] = append(args[w.Stub.Owner], a)
	}

	var parent *Bean
	for _, n := range g.Beans() {
		b := &Bean{Desc: n.Bean}
		for _, a := range args[n] {
			if a.Socket.Optional && a.Socket.Setter != nil {
				b.Optional = append(b.Optional, a)
			} else {
				b.Required = append(b.Required, a)
			}
		}
		if n.Kind == graph.NodeNested {
			if parent != nil {
				parent.Nested = append(parent.Nested, b)
			}
			continue
		}
		parent = b
		p.Beans = append(p.Beans, b)
	}

	for _, comp := range g.Components {
		pc := &Component{Name: comp.Import.Module, Surface: comp.Surface}
		for _, ss := range comp.Surface.Sockets {
			if n := g.Node(model.QualifiedName(pc.Name, ss.Name)); n != nil {
				pc.Sockets = append(pc.Sockets, args[n]...)
			}
		}
		p.Components = append(p.Components, pc)
	}
	return p
}

func refTo(n *graph.Node) Ref {
	switch n.Kind {
	case graph.NodeSocket:
		return Ref{Kind: RefSocket, Name: n.Name, Multi: n.Socket.Multi.IsMulti()}
	case graph.NodeComponentBean:
		return Ref{Kind: RefComponent, Name: n.Name, Component: n.Module}
	default:
		return Ref{Kind: RefLocal, Name: n.Name}
	}
}
