// Package diag collects the diagnostics produced while resolving modules.
//
// Diagnostics are data, not errors: a module with error diagnostics is faulty and is not
// generated, but resolution of sibling modules continues. Collection is never fail-fast so a
// single pass surfaces every structural problem of a module at once.
package diag

import "strings"

// Severity of a diagnostic.
type Severity int

const (
	// SeverityError aborts generation of the owning module.
	SeverityError Severity = iota
	// SeverityWarning is informational.
	SeverityWarning
	// SeverityMandatoryWarning is informational but always shown.
	SeverityMandatoryWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityMandatoryWarning:
		return "mandatory warning"
	default:
		return "unknown"
	}
}

// Location identifies the declaration element a diagnostic is attached to.
// Empty fields are omitted when rendered.
type Location struct {
	File   string
	Module string
	Bean   string
	Socket string
}

func (l Location) String() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{l.Module, l.Bean, l.Socket} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	q := strings.Join(parts, ":")
	switch {
	case l.File != "" && q != "":
		return l.File + ": " + q
	case l.File != "":
		return l.File
	default:
		return q
	}
}

// Diagnostic is a single message attached to a location.
type Diagnostic struct {
	Severity Severity
	Message  string
	Location Location
}

func (d Diagnostic) String() string {
	loc := d.Location.String()
	if loc == "" {
		return d.Severity.String() + ": " + d.Message
	}
	return loc + ": " + d.Severity.String() + ": " + d.Message
}

// Collector accumulates diagnostics in emission order. The zero value is ready to use.
type Collector struct {
	diags []Diagnostic
}

// Report appends a diagnostic.
func (c *Collector) Report(sev Severity, loc Location, msg string) {
	c.diags = append(c.diags, Diagnostic{Severity: sev, Message: msg, Location: loc})
}

func (c *Collector) Error(loc Location, msg string) { c.Report(SeverityError, loc, msg) }

func (c *Collector) Warning(loc Location, msg string) { c.Report(SeverityWarning, loc, msg) }

func (c *Collector) MandatoryWarning(loc Location, msg string) {
	c.Report(SeverityMandatoryWarning, loc, msg)
}

// Diagnostics returns a copy of the collected diagnostics.
func (c *Collector) Diagnostics() []Diagnostic {
	out := make([]Diagnostic, len(c.diags))
	copy(out, c.diags)
	return out
}

// Len returns the number of collected diagnostics.
func (c *Collector) Len() int { return len(c.diags) }

// HasErrors reports whether at least one error was collected.
func (c *Collector) HasErrors() bool { return c.Count(SeverityError) > 0 }

// Count returns the number of diagnostics with the given severity.
func (c *Collector) Count(sev Severity) int {
	n := 0
	for _, d := range c.diags {
		if d.Severity == sev {
			n++
		}
	}
	return n
}

// Messages returns the messages of the given severity in emission order.
func (c *Collector) Messages(sev Severity) []string {
	var out []string
	for _, d := range c.diags {
		if d.Severity == sev {
			out = append(out, d.Message)
		}
	}
	return out
}
