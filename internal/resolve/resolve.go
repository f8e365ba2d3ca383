// Package resolve matches every stub of a bean graph to the beans that supply it.
//
// Candidates come from three sources, always considered in the same order: the module's own
// sockets (values supplied by the importer), the module's beans in declaration order, and the
// visible public beans of component modules in import order. A candidate qualifies when its
// provided type is assignable to the socket type and it passes the socket's selectors.
// Explicit wires bypass matching.
package resolve

import (
	"strings"

	"github.com/sghaida/modwire/internal/diag"
	"github.com/sghaida/modwire/internal/graph"
	"github.com/sghaida/modwire/internal/model"
)

// Wire is the resolution of one stub. Single sockets hold zero or one bean, multi sockets
// an ordered list.
type Wire struct {
	Stub     *graph.Stub
	Beans    []*graph.Node
	Explicit bool
}

// Resolved reports whether at least one bean was matched.
func (w *Wire) Resolved() bool { return len(w.Beans) > 0 }

// Result is the resolution of a whole graph.
type Result struct {
	// Wires follows the order of the graph stubs.
	Wires []*Wire

	byStub map[*graph.Stub]*Wire
}

// Wire returns the resolution of a stub.
func (r *Result) Wire(s *graph.Stub) *Wire { return r.byStub[s] }

// Edges returns one wire edge per resolved consumer and supplier pair, in stub order.
func (r *Result) Edges() []graph.Edge {
	var out []graph.Edge
	for _, w := range r.Wires {
		for _, b := range w.Beans {
			out = append(out, graph.Edge{
				From:   w.Stub.Owner,
				To:     b,
				Socket: w.Stub.Socket.Name,
				Kind:   graph.EdgeWire,
				Binary: b.Binary() || w.Stub.Owner.Binary(),
			})
		}
	}
	return out
}

// Consumers returns the owners of the stubs resolved to node n, in stub order.
func (r *Result) Consumers(n *graph.Node) []*graph.Node {
	var out []*graph.Node
	for _, w := range r.Wires {
		for _, b := range w.Beans {
			if b == n {
				out = append(out, w.Stub.Owner)
				break
			}
		}
	}
	return out
}

// Resolve resolves every stub of g. Problems are reported to c; module socket WiredTo lists
// are filled from the resolution.
func Resolve(g *graph.Graph, ts model.TypeSystem, c *diag.Collector) *Result {
	r := &resolver{g: g, ts: ts, c: c}
	res := &Result{byStub: map[*graph.Stub]*Wire{}}

	pinned := r.explicitWires()
	for _, s := range g.Stubs {
		w, ok := pinned[s]
		if !ok {
			w = r.match(s)
		}
		res.Wires = append(res.Wires, w)
		res.byStub[s] = w
	}

	for _, n := range g.External() {
		consumers := res.Consumers(n)
		if len(consumers) == 0 {
			c.Warning(diag.Location{File: g.Module.File, Module: g.Module.Name, Bean: n.Name}, diag.UnwiredSocketBean)
			n.Socket.WiredTo = nil
			continue
		}
		wired := make([]string, 0, len(consumers))
		for _, o := range consumers {
			name := o.Name
			if o.Kind == graph.NodeComponentSocket {
				name = model.QualifiedName(o.Module, o.Name)
			}
			if !contains(wired, name) {
				wired = append(wired, name)
			}
		}
		n.Socket.WiredTo = wired
	}
	return res
}

type resolver struct {
	g  *graph.Graph
	ts model.TypeSystem
	c  *diag.Collector
}

func (r *resolver) loc(s *graph.Stub) diag.Location {
	if s.Owner.Kind == graph.NodeComponentSocket {
		return diag.Location{File: r.g.Module.File, Module: r.g.Module.Name, Bean: s.Owner.Module, Socket: s.Owner.Name}
	}
	return diag.Location{File: r.g.Module.File, Module: r.g.Module.Name, Bean: s.Owner.Name, Socket: s.Socket.Name}
}

// candidates enumerates the beans that may supply s, in precedence order.
func (r *resolver) candidates(s *graph.Stub) []*graph.Node {
	var out []*graph.Node
	accept := func(n *graph.Node) {
		if n == s.Owner || !r.supplies(n, s.Socket) || !selected(s.Socket.Selectors, n) {
			return
		}
		out = append(out, n)
	}
	for _, n := range r.g.External() {
		accept(n)
	}
	for _, n := range r.g.Beans() {
		accept(n)
	}
	for _, comp := range r.g.Components {
		// a component socket is never satisfied by its own module
		if s.Owner.Kind == graph.NodeComponentSocket && s.Owner.Module == comp.Import.Module {
			continue
		}
		for _, n := range r.g.ComponentBeans(comp.Import.Module) {
			accept(n)
		}
	}
	return out
}

// supplies reports whether n can be injected into sock. A multi module socket holds a
// collection of its type: it only feeds multi sockets, whose elements it is spliced into.
func (r *resolver) supplies(n *graph.Node, sock *model.SocketDescriptor) bool {
	if n.Kind == graph.NodeSocket && n.Socket.Multi.IsMulti() && !sock.Multi.IsMulti() {
		return false
	}
	return r.ts.Assignable(n.Type, sock.Type)
}

func selected(selectors []model.Selector, n *graph.Node) bool {
	for _, sel := range selectors {
		if !sel.Matches(n.Module, n.Name, n.Tags) {
			return false
		}
	}
	return true
}

func (r *resolver) match(s *graph.Stub) *Wire {
	w := &Wire{Stub: s}
	cands := r.candidates(s)
	sock := s.Socket

	if sock.Multi.IsMulti() {
		w.Beans = cands
		if len(cands) == 0 && !sock.Optional {
			r.c.Error(r.loc(s), diag.NoBeanFound(s.QualifiedName(), sock.Type, s.Module))
		}
		return w
	}

	switch len(cands) {
	case 0:
		if !sock.Optional {
			r.c.Error(r.loc(s), diag.NoBeanFound(s.QualifiedName(), sock.Type, s.Module))
		}
	case 1:
		w.Beans = cands
	default:
		list := make([]diag.Candidate, 0, len(cands))
		for _, n := range cands {
			list = append(list, diag.Candidate{Name: n.ID, Type: n.Type})
		}
		r.c.Error(r.loc(s), diag.MultipleBeansMatching(s.QualifiedName(), s.Module, s.WireTarget(), list))
	}
	return w
}

// explicitWires validates the module wires and returns the stubs they pin. A wire with an
// error still pins its stub, so the stub is not reported a second time as missing or
// conflicting.
func (r *resolver) explicitWires() map[*graph.Stub]*Wire {
	m := r.g.Module
	out := map[*graph.Stub]*Wire{}
	for _, wd := range m.Wires {
		loc := diag.Location{File: m.File, Module: m.Name}
		s := r.target(wd.Into)
		if s == nil {
			r.c.Error(loc, diag.UnknownSocket(wd.Into, m.Name))
			continue
		}
		loc = r.loc(s)
		if _, dup := out[s]; dup {
			r.c.Error(loc, diag.SocketWiredTwice(s.QualifiedName()))
			continue
		}
		w := &Wire{Stub: s, Explicit: true}
		out[s] = w
		if !s.Socket.Multi.IsMulti() && len(wd.Beans) > 1 {
			r.c.Error(loc, diag.SingleSocketMultipleBeans(s.QualifiedName()))
			continue
		}
		for _, ref := range wd.Beans {
			n := r.lookup(ref)
			if n == nil || n == s.Owner {
				r.c.Error(loc, diag.UnknownBean(ref, m.Name))
				continue
			}
			if !r.supplies(n, s.Socket) {
				r.c.Error(loc, diag.NotWirable(n.ID, s.QualifiedName(), s.Socket.Type))
				continue
			}
			w.Beans = append(w.Beans, n)
		}
	}
	return out
}

// target finds the stub named by an into value: bean:socket, module:bean:socket or
// component:socket.
func (r *resolver) target(into string) *graph.Stub {
	parts := strings.Split(into, ":")
	switch len(parts) {
	case 2:
	case 3:
		if parts[0] != r.g.Module.Name {
			return nil
		}
		parts = parts[1:]
	default:
		return nil
	}
	owner, socket := parts[0], parts[1]
	for _, s := range r.g.Stubs {
		switch s.Owner.Kind {
		case graph.NodeComponentSocket:
			if s.Owner.Module == owner && s.Owner.Name == socket {
				return s
			}
		default:
			if s.Owner.Name == owner && s.Socket.Name == socket {
				return s
			}
		}
	}
	return nil
}

// lookup finds a bean by reference: a local name, module:name for the module itself, or
// component:name for a visible component bean.
func (r *resolver) lookup(ref string) *graph.Node {
	if !strings.Contains(ref, ":") {
		return r.g.Local(ref)
	}
	n := r.g.Node(ref)
	if n == nil || !n.IsBean() {
		return nil
	}
	return n
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
