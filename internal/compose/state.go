package compose

import (
	"github.com/tidwall/btree"

	"github.com/sghaida/modwire/internal/diag"
	"github.com/sghaida/modwire/internal/extract"
	"github.com/sghaida/modwire/internal/model"
	"github.com/sghaida/modwire/internal/plan"
)

// State of a module in the ledger.
type State int

const (
	// Pending modules wait for a component module that is not available yet.
	Pending State = iota
	// InProgress modules are being generated in the current round.
	InProgress
	// Generated modules are resolved; their surface can be imported.
	Generated
	// Faulty modules have error diagnostics and are never generated.
	Faulty
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case InProgress:
		return "in progress"
	case Generated:
		return "generated"
	case Faulty:
		return "faulty"
	default:
		return "unknown"
	}
}

// Entry is the ledger record of a module.
type Entry struct {
	Name  string
	State State
	// Decl is nil for modules read back from an artifact.
	Decl   *extract.Declaration
	Module *model.ModuleDescriptor
	// Binary marks modules read back from an artifact of a previous pass.
	Binary bool

	// Plan and Surface are set once the module is generated.
	Plan    *plan.Module
	Surface *model.Surface

	// Diagnostics are the diagnostics of the module in emission order.
	Diagnostics []diag.Diagnostic
	// Round is the round the module settled in, zero while pending.
	Round int

	// invalid is set when extraction reported errors.
	invalid bool
}

// Settled reports whether the module reached a final state.
func (e *Entry) Settled() bool { return e.State == Generated || e.State == Faulty }

func (e *Entry) location() diag.Location {
	loc := diag.Location{Module: e.Name}
	if e.Decl != nil {
		loc.File = e.Decl.Path
	}
	return loc
}

// RoundState is the module ledger carried from one round to the next, ordered by module name.
type RoundState struct {
	ledger btree.Map[string, *Entry]
	round  int
}

// NewRoundState returns an empty ledger.
func NewRoundState() *RoundState { return &RoundState{} }

// Round returns the number of rounds run so far.
func (s *RoundState) Round() int { return s.round }

// Entry returns the record of a module.
func (s *RoundState) Entry(name string) (*Entry, bool) { return s.ledger.Get(name) }

func (s *RoundState) put(e *Entry) { s.ledger.Set(e.Name, e) }

// Pending returns the names of the modules still pending, ordered by name.
func (s *RoundState) Pending() []string {
	var out []string
	s.ledger.Scan(func(name string, e *Entry) bool {
		if e.State == Pending {
			out = append(out, name)
		}
		return true
	})
	return out
}
