package compose

import (
	"github.com/sghaida/modwire/internal/cycle"
	"github.com/sghaida/modwire/internal/diag"
	"github.com/sghaida/modwire/internal/graph"
	"github.com/sghaida/modwire/internal/model"
	"github.com/sghaida/modwire/internal/plan"
	"github.com/sghaida/modwire/internal/resolve"
	"github.com/sghaida/modwire/internal/schedule"
)

// Resolve runs the whole pipeline over one module and its components: graph, socket
// resolution, cycle detection, plan and creation order. It returns nil when c holds errors.
// Resolve has no side effect besides c and the WiredTo lists of m's sockets, so a round can
// call it for any module whose components are settled.
func Resolve(m *model.ModuleDescriptor, comps []*model.Component, c *diag.Collector) (*plan.Module, *model.Surface) {
	g := graph.Build(m, comps, c)
	ts := TypeSystem(m, comps)
	res := resolve.Resolve(g, ts, c)
	cycle.Report(g, cycle.Detect(g, res), c)
	if c.HasErrors() {
		return nil, nil
	}

	p := plan.Build(g, res)
	p.Order = schedule.Order(p)
	return p, surfaceOf(g, res, comps)
}

// Check reports the structural problems of a module that cannot be resolved.
func Check(m *model.ModuleDescriptor, comps []*model.Component, c *diag.Collector) {
	graph.Build(m, comps, c)
}

// TypeSystem merges the type declarations of a module and of its components.
func TypeSystem(m *model.ModuleDescriptor, comps []*model.Component) *model.Hierarchy {
	h := model.NewHierarchy(m.Types)
	for _, comp := range comps {
		h.Add(comp.Surface.Types)
	}
	return h
}

// surfaceOf computes what an importer sees of the module: its public beans with the module
// sockets each depends on, its sockets, and the types needed to match them.
func surfaceOf(g *graph.Graph, res *resolve.Result, comps []*model.Component) *model.Surface {
	m := g.Module
	sf := &model.Surface{
		Format:  model.SurfaceFormat,
		Module:  m.Name,
		Package: m.Package,
		Beans:   []model.SurfaceBean{},
		Sockets: []model.SurfaceSocket{},
	}

	out := map[*graph.Node][]*graph.Node{}
	for _, e := range g.Edges {
		out[e.From] = append(out[e.From], e.To)
	}
	for _, e := range res.Edges() {
		out[e.From] = append(out[e.From], e.To)
	}

	for _, n := range g.Beans() {
		if n.Kind != graph.NodeBean || n.Bean.Visibility != model.Public {
			continue
		}
		sf.Beans = append(sf.Beans, model.SurfaceBean{
			Name:    n.Name,
			Type:    n.Type,
			Tags:    n.Tags,
			Sockets: socketDeps(g, out, n),
		})
	}
	for _, n := range g.External() {
		s := n.Socket
		sf.Sockets = append(sf.Sockets, model.SurfaceSocket{
			Name:      s.Name,
			Type:      s.Type,
			Multi:     s.Multi,
			Optional:  s.Optional,
			Selectors: s.Selectors,
			WiredTo:   s.WiredTo,
		})
	}

	sf.Types = append(sf.Types, m.Types...)
	for _, comp := range comps {
		sf.Types = append(sf.Types, comp.Surface.Types...)
	}
	return sf
}

// socketDeps lists, in socket declaration order, the module sockets reachable from n.
func socketDeps(g *graph.Graph, out map[*graph.Node][]*graph.Node, n *graph.Node) []string {
	seen := map[*graph.Node]bool{n: true}
	stack := []*graph.Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range out[cur] {
			if !seen[next] {
				seen[next] = true
				stack = append(stack, next)
			}
		}
	}
	var deps []string
	for _, s := range g.External() {
		if seen[s] {
			deps = append(deps, s.Name)
		}
	}
	return deps
}
