// Package schedule computes the static creation order of a module.
//
// The generated module does not sort anything at runtime: starting it creates its beans in
// declaration order and every constructor pulls its dependencies on first use, so the
// effective order is depth first, first use. Order predicts that sequence for singletons and
// components, and Reverse gives the matching destruction order.
package schedule

import (
	"github.com/sghaida/modwire/internal/model"
	"github.com/sghaida/modwire/internal/plan"
)

// ComponentPrefix marks component entries in an order, to keep them apart from bean names.
const ComponentPrefix = "module:"

// Order returns the creation order of p: singleton bean names and component entries
// (ComponentPrefix + module name), dependencies first. Prototype and nested beans are walked
// through but not listed since they are created per request.
func Order(p *plan.Module) []string {
	s := scheduler{p: p, done: map[string]bool{}}
	for _, b := range p.Beans {
		s.bean(b)
	}
	for _, c := range p.Components {
		s.component(c)
	}
	return s.order
}

// Reverse returns the order reversed, leaving the input untouched.
func Reverse(order []string) []string {
	out := make([]string, len(order))
	for i, v := range order {
		out[len(order)-1-i] = v
	}
	return out
}

type scheduler struct {
	p     *plan.Module
	done  map[string]bool
	order []string
}

func (s *scheduler) bean(b *plan.Bean) {
	key := "bean:" + b.Desc.Name
	if s.done[key] {
		return
	}
	s.done[key] = true
	if b.Desc.Kind == model.KindNestedBean {
		if parent := s.p.Bean(b.Desc.Parent); parent != nil {
			s.bean(parent)
		}
	}
	for _, r := range b.Deps() {
		s.ref(r)
	}
	if b.Desc.Kind != model.KindNestedBean && b.Desc.Scope == model.ScopeSingleton {
		s.order = append(s.order, b.Desc.Name)
	}
}

func (s *scheduler) ref(r plan.Ref) {
	switch r.Kind {
	case plan.RefLocal:
		if b := s.p.Bean(r.Name); b != nil {
			s.bean(b)
		}
	case plan.RefComponent:
		if c := s.p.Component(r.Component); c != nil {
			s.component(c)
		}
	case plan.RefSocket:
	}
}

func (s *scheduler) component(c *plan.Component) {
	key := ComponentPrefix + c.Name
	if s.done[key] {
		return
	}
	s.done[key] = true
	for _, a := range c.Sockets {
		for _, r := range a.Refs {
			s.ref(r)
		}
	}
	s.order = append(s.order, key)
}
