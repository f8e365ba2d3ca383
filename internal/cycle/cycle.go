// Package cycle finds dependency cycles in a resolved bean graph and renders them.
package cycle

import (
	"sort"
	"strings"

	"github.com/sghaida/modwire/internal/diag"
	"github.com/sghaida/modwire/internal/graph"
	"github.com/sghaida/modwire/internal/resolve"
)

// Cycle is a closed path: Edges[i].To is Edges[i+1].From and the last edge returns to the
// first node.
type Cycle struct {
	Edges []graph.Edge
}

// Nodes returns the nodes of the cycle in path order.
func (c Cycle) Nodes() []*graph.Node {
	out := make([]*graph.Node, 0, len(c.Edges))
	for _, e := range c.Edges {
		out = append(out, e.From)
	}
	return out
}

// Rotate returns the same cycle starting at the edge leaving n.
func (c Cycle) Rotate(n *graph.Node) Cycle {
	for i, e := range c.Edges {
		if e.From == n {
			edges := make([]graph.Edge, 0, len(c.Edges))
			edges = append(edges, c.Edges[i:]...)
			edges = append(edges, c.Edges[:i]...)
			return Cycle{Edges: edges}
		}
	}
	return c
}

func (c Cycle) key() string {
	ks := make([]string, 0, len(c.Edges))
	for _, e := range c.Edges {
		ks = append(ks, e.From.ID+">"+e.To.ID+">"+e.Socket)
	}
	sort.Strings(ks)
	return strings.Join(ks, "|")
}

// Detect walks the structural and resolved edges of g depth first, in node order, and
// returns every distinct cycle closed by a back edge.
func Detect(g *graph.Graph, res *resolve.Result) []Cycle {
	out := map[*graph.Node][]graph.Edge{}
	for _, e := range g.Edges {
		out[e.From] = append(out[e.From], e)
	}
	if res != nil {
		for _, e := range res.Edges() {
			out[e.From] = append(out[e.From], e)
		}
	}

	d := detector{
		out:     out,
		onStack: map[*graph.Node]int{},
		visited: map[*graph.Node]bool{},
		seen:    map[string]bool{},
	}
	for _, n := range g.Nodes {
		if !d.visited[n] {
			d.visit(n)
		}
	}
	return d.cycles
}

type detector struct {
	out     map[*graph.Node][]graph.Edge
	path    []graph.Edge
	onStack map[*graph.Node]int
	visited map[*graph.Node]bool
	seen    map[string]bool
	cycles  []Cycle
}

func (d *detector) visit(n *graph.Node) {
	d.visited[n] = true
	d.onStack[n] = len(d.path)
	for _, e := range d.out[n] {
		if start, ok := d.onStack[e.To]; ok {
			edges := make([]graph.Edge, 0, len(d.path)-start+1)
			edges = append(edges, d.path[start:]...)
			edges = append(edges, e)
			c := Cycle{Edges: edges}
			if k := c.key(); !d.seen[k] {
				d.seen[k] = true
				d.cycles = append(d.cycles, c)
			}
			continue
		}
		if d.visited[e.To] {
			continue
		}
		d.path = append(d.path, e)
		d.visit(e.To)
		d.path = d.path[:len(d.path)-1]
	}
	delete(d.onStack, n)
}

// Report emits one error per bean of each cycle, each rendering the cycle rotated to start
// at that bean. Component sockets are hops, not participants.
func Report(g *graph.Graph, cycles []Cycle, c *diag.Collector) {
	m := g.Module
	for _, cy := range cycles {
		for _, n := range cy.Nodes() {
			if !n.IsBean() {
				continue
			}
			loc := diag.Location{File: m.File, Module: m.Name, Bean: n.Name}
			if n.Kind == graph.NodeComponentBean {
				loc.Bean = n.ID
			}
			c.Error(loc, diag.CycleHeader(n.ID, m.Name)+"\n"+Render(cy.Rotate(n)))
		}
	}
}

const (
	indent = "  "
	gap    = "       "
)

// Render draws the cycle as a box-drawing diagram:
//
//	┌───────┐
//	│       ↓
//	│       app:a
//	│       │
//	│       │ (b)
//	│       ↓
//	│       app:b
//	│       │
//	│       │ (a)
//	└───────┘
//
// Nested hops and hops through a component of a previous pass are drawn dashed.
func Render(cy Cycle) string {
	var sb strings.Builder
	line := func(s string) {
		sb.WriteString(indent)
		sb.WriteString(s)
		sb.WriteByte('\n')
	}
	line("┌───────┐")
	line("│" + gap + "↓")
	for i, e := range cy.Edges {
		bar := "│"
		if e.Binary || e.Kind == graph.EdgeNested {
			bar = "┆"
		}
		line("│" + gap + e.From.ID)
		line("│" + gap + bar)
		line("│" + gap + bar + " (" + e.Label() + ")")
		if i < len(cy.Edges)-1 {
			line("│" + gap + "↓")
		}
	}
	sb.WriteString(indent)
	sb.WriteString("└───────┘")
	return sb.String()
}
