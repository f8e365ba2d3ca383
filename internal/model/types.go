package model

import "strings"

// TypeSystem answers assignability questions between Go type strings.
type TypeSystem interface {
	Assignable(from, to string) bool
}

// Hierarchy is a TypeSystem built from declared assignability. A type is assignable to
// itself, to any and interface{}, and transitively to everything it is declared assignable to.
type Hierarchy struct {
	supers map[string][]string
}

// NewHierarchy builds a hierarchy from type declarations.
func NewHierarchy(decls ...[]TypeDecl) *Hierarchy {
	h := &Hierarchy{supers: map[string][]string{}}
	for _, d := range decls {
		h.Add(d)
	}
	return h
}

// Add merges declarations into the hierarchy. Duplicate edges are ignored.
func (h *Hierarchy) Add(decls []TypeDecl) {
	for _, d := range decls {
		name := normalizeType(d.Name)
		for _, s := range d.AssignableTo {
			s = normalizeType(s)
			if s == "" || contains(h.supers[name], s) {
				continue
			}
			h.supers[name] = append(h.supers[name], s)
		}
	}
}

func (h *Hierarchy) Assignable(from, to string) bool {
	from, to = normalizeType(from), normalizeType(to)
	if from == "" || to == "" {
		return false
	}
	if from == to || to == "any" || to == "interface{}" {
		return true
	}
	seen := map[string]bool{from: true}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, s := range h.supers[cur] {
			if s == to {
				return true
			}
			if !seen[s] {
				seen[s] = true
				queue = append(queue, s)
			}
		}
	}
	return false
}

func normalizeType(t string) string { return strings.Join(strings.Fields(t), "") }
