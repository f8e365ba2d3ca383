// Package graph builds the bean graph of a module: one node per bean, nested bean, module
// socket, component bean and component socket, and one unresolved stub per injection point.
//
// No matching happens here. Build only records what each stub needs (type, cardinality,
// selectors) and reports name collisions, so the resolver can work on a complete picture.
package graph

import (
	"strings"

	"github.com/sghaida/modwire/internal/diag"
	"github.com/sghaida/modwire/internal/model"
)

// NodeKind discriminates graph nodes.
type NodeKind int

const (
	// NodeBean is a module or wrapper bean of the module being resolved.
	NodeBean NodeKind = iota
	// NodeNested is a bean obtained through an accessor of its parent bean.
	NodeNested
	// NodeSocket is a module socket: a value supplied by the importer.
	NodeSocket
	// NodeComponentBean is a public bean of an imported component module.
	NodeComponentBean
	// NodeComponentSocket is a socket of an imported component module.
	NodeComponentSocket
)

func (k NodeKind) String() string {
	switch k {
	case NodeBean:
		return "bean"
	case NodeNested:
		return "nested"
	case NodeSocket:
		return "socket"
	case NodeComponentBean:
		return "component bean"
	case NodeComponentSocket:
		return "component socket"
	default:
		return "unknown"
	}
}

// Node is a vertex of the bean graph.
type Node struct {
	// ID is the qualified name of the node: module:bean for local nodes, component:bean and
	// component:socket for component nodes.
	ID     string
	Kind   NodeKind
	Module string
	Name   string
	Type   string
	Tags   []string

	// Bean is set for NodeBean and NodeNested.
	Bean *model.BeanDescriptor
	// Socket is set for NodeSocket.
	Socket *model.SocketDescriptor
	// Component is set for component nodes.
	Component *model.Component
	// SurfaceBean and SurfaceSocket are set for component nodes of the matching kind.
	SurfaceBean   model.SurfaceBean
	SurfaceSocket model.SurfaceSocket
}

// IsBean reports whether the node can supply a socket.
func (n *Node) IsBean() bool { return n.Kind != NodeComponentSocket }

// Binary reports whether the node belongs to a component read back from a previous pass.
func (n *Node) Binary() bool { return n.Component != nil && n.Component.Binary }

// Stub is an unresolved injection point: a socket of a local bean or of a component module.
type Stub struct {
	// Module is the module being resolved.
	Module string
	Owner  *Node
	Socket *model.SocketDescriptor
}

// QualifiedName is the name used in diagnostics: module:bean:socket, or
// module:component:socket for component sockets.
func (s *Stub) QualifiedName() string {
	if s.Owner.Kind == NodeComponentSocket {
		return model.QualifiedName(s.Module, s.Owner.Module, s.Owner.Name)
	}
	return model.QualifiedName(s.Module, s.Owner.Name, s.Socket.Name)
}

// WireTarget is the into value of an explicit wire targeting the stub.
func (s *Stub) WireTarget() string {
	if s.Owner.Kind == NodeComponentSocket {
		return model.QualifiedName(s.Owner.Module, s.Owner.Name)
	}
	return model.QualifiedName(s.Owner.Name, s.Socket.Name)
}

// EdgeKind discriminates dependency edges.
type EdgeKind int

const (
	// EdgeWire carries a resolved socket from a consumer to a supplier.
	EdgeWire EdgeKind = iota
	// EdgeNested links a nested bean to the bean it is obtained from.
	EdgeNested
	// EdgeComponent links a component bean to a component socket it depends on.
	EdgeComponent
)

// Edge is a directed dependency from a consumer to what it needs.
type Edge struct {
	From   *Node
	To     *Node
	Socket string
	Kind   EdgeKind
	// Binary marks hops whose supplier or consumer belongs to a component read back from a
	// previous pass.
	Binary bool
}

// Label is the hop label used when rendering a cycle.
func (e Edge) Label() string {
	if e.Kind == EdgeNested {
		return "nested"
	}
	return e.Socket
}

// Graph is the bean graph of one module.
type Graph struct {
	Module     *model.ModuleDescriptor
	Components []*model.Component

	// Nodes holds every node: module sockets, then local beans with their nested beans
	// following them, then component beans and sockets in import order.
	Nodes []*Node
	// Stubs holds local bean sockets in bean order (required before optional), then component
	// sockets in import order.
	Stubs []*Stub
	// Edges holds the structural edges known before resolution.
	Edges []Edge

	byID     map[string]*Node
	external []*Node
	local    []*Node
	exported map[string][]*Node
}

// Node returns the node with the given qualified name.
func (g *Graph) Node(id string) *Node { return g.byID[id] }

// Local returns the node of a bean, nested bean or module socket of the module by local name.
func (g *Graph) Local(name string) *Node { return g.byID[model.QualifiedName(g.Module.Name, name)] }

// External returns the module sockets in declaration order.
func (g *Graph) External() []*Node { return g.external }

// Beans returns local beans and nested beans in declaration order.
func (g *Graph) Beans() []*Node { return g.local }

// ComponentBeans returns the visible public beans of a component module in surface order.
func (g *Graph) ComponentBeans(module string) []*Node { return g.exported[module] }

// Component returns the imported component with the given module name.
func (g *Graph) Component(module string) *model.Component {
	for _, c := range g.Components {
		if c.Import.Module == module {
			return c
		}
	}
	return nil
}

// Build creates the graph of m composed with its components. Name collisions are reported
// to c and the colliding declarations after the first are left out of the graph.
func Build(m *model.ModuleDescriptor, components []*model.Component, c *diag.Collector) *Graph {
	g := &Graph{
		Module:     m,
		Components: components,
		byID:       map[string]*Node{},
		exported:   map[string][]*Node{},
	}
	b := builder{g: g, c: c, seen: map[string]int{}}

	for _, s := range m.Sockets {
		n := &Node{
			ID:     model.QualifiedName(m.Name, s.Name),
			Kind:   NodeSocket,
			Module: m.Name,
			Name:   s.Name,
			Type:   s.Type,
			Socket: s,
		}
		if b.add(n) {
			g.external = append(g.external, n)
		}
	}

	for _, bd := range m.Beans {
		b.checkModuleConflict(bd)
		n := &Node{
			ID:     bd.QualifiedName(),
			Kind:   NodeBean,
			Module: m.Name,
			Name:   bd.Name,
			Type:   bd.ProvidedType(),
			Tags:   bd.Tags,
			Bean:   bd,
		}
		if !b.add(n) {
			continue
		}
		g.local = append(g.local, n)
		b.checkSocketNames(bd)
		for _, s := range bd.Required {
			g.Stubs = append(g.Stubs, &Stub{Module: m.Name, Owner: n, Socket: s})
		}
		for _, s := range bd.Optional {
			if hasSocket(bd.Required, s.Name) {
				continue
			}
			g.Stubs = append(g.Stubs, &Stub{Module: m.Name, Owner: n, Socket: s})
		}
		for _, nb := range bd.Nested {
			nn := &Node{
				ID:     nb.QualifiedName(),
				Kind:   NodeNested,
				Module: m.Name,
				Name:   nb.Name,
				Type:   nb.ProvidedType(),
				Tags:   nb.Tags,
				Bean:   nb,
			}
			if !b.add(nn) {
				continue
			}
			g.local = append(g.local, nn)
			g.Edges = append(g.Edges, Edge{From: nn, To: n, Kind: EdgeNested})
		}
	}

	for _, name := range m.Rejected {
		b.claim(m.Name, name)
	}

	for _, comp := range components {
		b.addComponent(comp)
	}
	return g
}

type builder struct {
	g *Graph
	c *diag.Collector
	// seen counts declarations per local name; a collision is reported on the second one only.
	seen map[string]int
}

func (b *builder) add(n *Node) bool {
	if n.Kind == NodeComponentBean || n.Kind == NodeComponentSocket {
		if _, dup := b.g.byID[n.ID]; dup {
			return false
		}
		b.g.byID[n.ID] = n
		b.g.Nodes = append(b.g.Nodes, n)
		return true
	}
	if !b.claim(n.Module, n.Name) {
		return false
	}
	b.g.byID[n.ID] = n
	b.g.Nodes = append(b.g.Nodes, n)
	return true
}

// claim records a local name and reports whether it was still free.
func (b *builder) claim(module, name string) bool {
	b.seen[name]++
	if b.seen[name] == 1 {
		return true
	}
	if b.seen[name] == 2 {
		b.c.Error(diag.Location{File: b.g.Module.File, Module: module, Bean: name}, diag.DuplicateBean(name, module))
	}
	return false
}

// checkModuleConflict reports a bean named after its own module or after an imported
// component module, whose accessor would clash in the generated module.
func (b *builder) checkModuleConflict(bd *model.BeanDescriptor) {
	m := b.g.Module
	loc := diag.Location{File: m.File, Module: m.Name, Bean: bd.Name}
	if bd.Name == m.Name {
		b.c.Error(loc, diag.BeanConflictsWithModule(m.Name))
		return
	}
	for _, imp := range m.Imports {
		if bd.Name == lastSegment(imp.Module) {
			b.c.Error(loc, diag.BeanConflictsWithModule(imp.Module))
			return
		}
	}
}

func (b *builder) checkSocketNames(bd *model.BeanDescriptor) {
	for _, o := range bd.Optional {
		if !hasSocket(bd.Required, o.Name) {
			continue
		}
		q := model.QualifiedName(bd.Module, bd.Name, o.Name)
		loc := diag.Location{File: b.g.Module.File, Module: bd.Module, Bean: bd.Name, Socket: o.Name}
		b.c.Error(loc, diag.RequiredConflictsWithOptional(q))
		b.c.Error(loc, diag.OptionalConflictsWithRequired(q))
	}
}

func (b *builder) addComponent(comp *model.Component) {
	g := b.g
	s := comp.Surface
	name := comp.Import.Module
	sockets := map[string]*Node{}
	for _, ss := range s.Sockets {
		n := &Node{
			ID:            model.QualifiedName(name, ss.Name),
			Kind:          NodeComponentSocket,
			Module:        name,
			Name:          ss.Name,
			Type:          ss.Type,
			Component:     comp,
			SurfaceSocket: ss,
		}
		if !b.add(n) {
			continue
		}
		sockets[ss.Name] = n
		g.Stubs = append(g.Stubs, &Stub{Module: g.Module.Name, Owner: n, Socket: &model.SocketDescriptor{
			Name:      ss.Name,
			Type:      ss.Type,
			Multi:     ss.Multi,
			Optional:  ss.Optional,
			Selectors: ss.Selectors,
			WiredTo:   ss.WiredTo,
		}})
	}
	for _, sb := range s.Beans {
		if !comp.Import.Visible(sb.Name) {
			continue
		}
		n := &Node{
			ID:          model.QualifiedName(name, sb.Name),
			Kind:        NodeComponentBean,
			Module:      name,
			Name:        sb.Name,
			Type:        sb.Type,
			Tags:        sb.Tags,
			Component:   comp,
			SurfaceBean: sb,
		}
		if !b.add(n) {
			continue
		}
		g.exported[name] = append(g.exported[name], n)
		for _, dep := range sb.Sockets {
			if sn, ok := sockets[dep]; ok {
				g.Edges = append(g.Edges, Edge{From: n, To: sn, Socket: dep, Kind: EdgeComponent, Binary: comp.Binary})
			}
		}
	}
}

func hasSocket(list []*model.SocketDescriptor, name string) bool {
	for _, s := range list {
		if s.Name == name {
			return true
		}
	}
	return false
}

func lastSegment(module string) string {
	if i := strings.LastIndexByte(module, '.'); i >= 0 {
		return module[i+1:]
	}
	return module
}
