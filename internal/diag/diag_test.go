package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_CountsAndOrder(t *testing.T) {
	t.Parallel()

	var c Collector
	c.Error(Location{Module: "app"}, "first")
	c.Warning(Location{Module: "app", Bean: "a"}, "second")
	c.Error(Location{}, "third")
	c.MandatoryWarning(Location{}, "fourth")

	require.Equal(t, 4, c.Len())
	assert.True(t, c.HasErrors())
	assert.Equal(t, 2, c.Count(SeverityError))
	assert.Equal(t, []string{"first", "third"}, c.Messages(SeverityError))
	assert.Equal(t, []string{"second"}, c.Messages(SeverityWarning))

	got := c.Diagnostics()
	got[0].Message = "mutated"
	assert.Equal(t, "first", c.Diagnostics()[0].Message, "Diagnostics must return a copy")
}

func TestDiagnostic_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		d    Diagnostic
		want string
	}{
		{
			name: "full_location",
			d:    Diagnostic{Severity: SeverityError, Message: "boom", Location: Location{File: "a.module.json", Module: "app", Bean: "b", Socket: "s"}},
			want: "a.module.json: app:b:s: error: boom",
		},
		{
			name: "file_only",
			d:    Diagnostic{Severity: SeverityWarning, Message: "hm", Location: Location{File: "a.module.json"}},
			want: "a.module.json: warning: hm",
		},
		{
			name: "no_location",
			d:    Diagnostic{Severity: SeverityMandatoryWarning, Message: "x"},
			want: "mandatory warning: x",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.d.String())
		})
	}
}

func TestMessages_Verbatim(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		"No bean was found matching required socket app:a:b of type *app.B, consider defining a bean or a socket bean matching the socket in module app",
		NoBeanFound("app:a:b", "*app.B", "app"))
	assert.Equal(t, "Multiple beans with name beanA exist in module app", DuplicateBean("beanA", "app"))
	assert.Equal(t, "Bean is conflicting with module: app", BeanConflictsWithModule("app"))

	msg := MultipleBeansMatching("app:a:b", "app", "a:b", []Candidate{
		{Name: "app:b1", Type: "*app.B1"},
		{Name: "app:b2", Type: "*app.B2"},
	})
	assert.Equal(t, "Multiple beans matching socket app:a:b were found\n"+
		"  - app:b1 of type *app.B1\n"+
		"  - app:b2 of type *app.B2\n"+
		"\n  Consider specifying an explicit wiring in module app (eg. wires: [{beans: [app:b1], into: a:b}])", msg)
}
