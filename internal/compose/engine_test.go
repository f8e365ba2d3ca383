package compose

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sghaida/modwire/internal/diag"
	"github.com/sghaida/modwire/internal/extract"
	"github.com/sghaida/modwire/internal/metrics"
	"github.com/sghaida/modwire/internal/model"
)

func libDecl() *extract.Declaration {
	return &extract.Declaration{
		Module:  "io.lib",
		Package: "lib",
		Path:    "lib/lib.module.json",
		Sockets: []extract.SocketDecl{{Name: "dsn", Type: "string"}},
		Beans: []extract.BeanDecl{
			{
				Name: "client", Type: "*lib.Client",
				Constructors: []extract.ConstructorDecl{{Name: "NewClient", Params: []extract.ParamDecl{{Name: "cache", Type: "*lib.Cache"}}}},
			},
			{
				Name: "cache", Type: "*lib.Cache", Visibility: "private",
				Constructors: []extract.ConstructorDecl{{Name: "NewCache", Params: []extract.ParamDecl{{Name: "dsn", Type: "string"}}}},
			},
		},
	}
}

func appDecl() *extract.Declaration {
	return &extract.Declaration{
		Module:  "io.app",
		Package: "app",
		Path:    "app/app.module.json",
		Imports: []extract.ImportDecl{{Module: "io.lib"}},
		Sockets: []extract.SocketDecl{{Name: "dsn", Type: "string"}},
		Beans: []extract.BeanDecl{{
			Name: "svc", Type: "*app.Svc",
			Constructors: []extract.ConstructorDecl{{Name: "NewSvc", Params: []extract.ParamDecl{{Name: "client", Type: "*lib.Client"}}}},
		}},
	}
}

func names(entries []*Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name)
	}
	return out
}

func TestRound_GeneratesComponentsFirst(t *testing.T) {
	t.Parallel()

	m := metrics.New("test")
	e := NewEngine(zap.NewNop(), WithMetrics(m))
	rep, err := e.Round([]*extract.Declaration{appDecl(), libDecl()})
	require.NoError(t, err)
	require.Empty(t, rep.Faulty, "%v", rep.Diagnostics())
	assert.Equal(t, []string{"io.app", "io.lib"}, names(rep.Generated))
	assert.Empty(t, rep.Pending)
	assert.NotEmpty(t, rep.ID)
	assert.Equal(t, 1, rep.Round)

	lib, ok := e.State().Entry("io.lib")
	require.True(t, ok)
	assert.Equal(t, Generated, lib.State)
	require.Len(t, lib.Surface.Beans, 1, "private beans are not part of the surface")
	assert.Equal(t, model.SurfaceBean{Name: "client", Type: "*lib.Client", Sockets: []string{"dsn"}}, lib.Surface.Beans[0])
	assert.Equal(t, []string{"cache"}, lib.Surface.Sockets[0].WiredTo)
	assert.Equal(t, "Lib", lib.Surface.TypeName)

	app, _ := e.State().Entry("io.app")
	require.NotNil(t, app.Plan)
	assert.Equal(t, []string{"module:io.lib", "svc"}, app.Plan.Order)
	assert.Equal(t, "App", app.Plan.TypeName)
	require.Len(t, app.Plan.Components, 1)
	assert.Equal(t, []string{"io.lib:dsn"}, app.Surface.Sockets[0].WiredTo)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Rounds))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Modules.WithLabelValues("generated")))
}

func TestRound_FaultyComponentPropagates(t *testing.T) {
	t.Parallel()

	lib := libDecl()
	lib.Sockets = nil
	e := NewEngine(nil)
	rep, err := e.Round([]*extract.Declaration{appDecl(), lib})
	require.NoError(t, err)
	assert.Equal(t, []string{"io.app", "io.lib"}, names(rep.Faulty))

	app, _ := e.State().Entry("io.app")
	require.Len(t, app.Diagnostics, 1)
	assert.Equal(t, "Module io.app can't be generated because component module io.lib is faulty", app.Diagnostics[0].Message)

	libEntry, _ := e.State().Entry("io.lib")
	assert.Equal(t, []string{
		"No bean was found matching required socket io.lib:cache:dsn of type string, consider defining a bean or a socket bean matching the socket in module io.lib",
	}, messages(libEntry.Diagnostics, diag.SeverityError))
}

func messages(ds []diag.Diagnostic, sev diag.Severity) []string {
	var out []string
	for _, d := range ds {
		if d.Severity == sev {
			out = append(out, d.Message)
		}
	}
	return out
}

func TestRound_ImportCycle(t *testing.T) {
	t.Parallel()

	a := &extract.Declaration{Module: "a", Package: "a", Imports: []extract.ImportDecl{{Module: "b"}}}
	b := &extract.Declaration{Module: "b", Package: "b", Imports: []extract.ImportDecl{{Module: "a"}}}
	c := &extract.Declaration{Module: "c", Package: "c", Imports: []extract.ImportDecl{{Module: "a"}}}

	e := NewEngine(nil)
	rep, err := e.Round([]*extract.Declaration{c, b, a})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, names(rep.Faulty))

	got := map[string][]string{}
	for _, en := range rep.Faulty {
		got[en.Name] = messages(en.Diagnostics, diag.SeverityError)
	}
	assert.Equal(t, map[string][]string{
		"a": {"Module a is part of an import cycle: a -> b -> a"},
		"b": {"Module b is part of an import cycle: b -> a -> b"},
		"c": {"Module c can't be generated because component module a is faulty"},
	}, got)
}

func TestRound_WaitsForLaterRound(t *testing.T) {
	t.Parallel()

	e := NewEngine(nil)
	rep, err := e.Round([]*extract.Declaration{appDecl()})
	require.NoError(t, err)
	assert.Equal(t, []string{"io.app"}, rep.Pending)
	assert.Empty(t, rep.Generated)

	_, err = e.Round(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoProgress))

	rep, err = e.Round([]*extract.Declaration{libDecl()})
	require.NoError(t, err)
	assert.Equal(t, []string{"io.app", "io.lib"}, names(rep.Generated))
	assert.Equal(t, 3, e.State().Round())
}

func TestRound_IgnoresRedeclaredModule(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.WarnLevel)
	e := NewEngine(zap.New(core))
	_, err := e.Round([]*extract.Declaration{libDecl()})
	require.NoError(t, err)

	other := libDecl()
	other.Beans = nil
	rep, err := e.Round([]*extract.Declaration{other})
	require.NoError(t, err)
	assert.Empty(t, rep.Generated)
	assert.Equal(t, 1, logs.FilterMessageSnippet("declared more than once").Len())

	lib, _ := e.State().Entry("io.lib")
	assert.Len(t, lib.Module.Beans, 2)
}

func TestFinish_FailsPending(t *testing.T) {
	t.Parallel()

	top := &extract.Declaration{Module: "io.top", Package: "top", Imports: []extract.ImportDecl{{Module: "io.app"}}}
	e := NewEngine(nil)
	_, err := e.Round([]*extract.Declaration{top, appDecl()})
	require.NoError(t, err)

	rep := e.Finish()
	assert.Equal(t, []string{"io.app", "io.top"}, names(rep.Faulty))
	assert.Empty(t, rep.Pending)
	assert.Equal(t, []string{
		"Component module io.lib could not be found",
		"Module io.top can't be generated because component module io.app is faulty",
	}, messages(rep.Diagnostics(), diag.SeverityError))
}

type surfaces map[string]*model.Surface

func (s surfaces) Surface(module string) (*model.Surface, bool, error) {
	sf, ok := s[module]
	return sf, ok, nil
}

func TestRound_BinaryComponent(t *testing.T) {
	t.Parallel()

	// generate lib once to obtain its surface, as a previous pass would have
	first := NewEngine(nil)
	_, err := first.Round([]*extract.Declaration{libDecl()})
	require.NoError(t, err)
	lib, _ := first.State().Entry("io.lib")

	e := NewEngine(nil, WithArtifacts(surfaces{"io.lib": lib.Surface}))
	rep, err := e.Round([]*extract.Declaration{appDecl()})
	require.NoError(t, err)
	assert.Equal(t, []string{"io.app"}, names(rep.Generated), "artifact modules are not reported as generated")

	en, ok := e.State().Entry("io.lib")
	require.True(t, ok)
	assert.True(t, en.Binary)
	assert.Equal(t, model.OriginBinary, en.Module.Origin)
}

type brokenSource struct{}

func (brokenSource) Surface(string) (*model.Surface, bool, error) {
	return nil, false, errors.New("artifact: io.lib: incompatible format")
}

func TestRound_UnreadableArtifact(t *testing.T) {
	t.Parallel()

	e := NewEngine(nil, WithArtifacts(brokenSource{}))
	rep, err := e.Round([]*extract.Declaration{appDecl()})
	require.NoError(t, err)
	require.Len(t, rep.Faulty, 1)
	assert.Equal(t, []string{"artifact: io.lib: incompatible format"}, messages(rep.Faulty[0].Diagnostics, diag.SeverityError))
}

func TestRound_InvalidDeclarationStillChecksCollisions(t *testing.T) {
	t.Parallel()

	d := libDecl()
	d.Beans = append(d.Beans,
		extract.BeanDecl{Name: "bad", Type: "*lib.bad", Constructors: []extract.ConstructorDecl{{Name: "NewBad"}}},
		extract.BeanDecl{Name: "client", Type: "*lib.Client", Constructors: []extract.ConstructorDecl{{Name: "NewClient"}}},
	)
	e := NewEngine(nil)
	rep, err := e.Round([]*extract.Declaration{d})
	require.NoError(t, err)
	require.Len(t, rep.Faulty, 1)
	assert.Equal(t, []string{
		"A bean type must be exported: *lib.bad",
		"Multiple beans with name client exist in module io.lib",
	}, messages(rep.Faulty[0].Diagnostics, diag.SeverityError))
}

func TestRound_Idempotent(t *testing.T) {
	t.Parallel()

	run := func() (*Report, *Entry) {
		e := NewEngine(nil)
		rep, err := e.Round([]*extract.Declaration{appDecl(), libDecl()})
		require.NoError(t, err)
		app, _ := e.State().Entry("io.app")
		return rep, app
	}
	r1, a1 := run()
	r2, a2 := run()
	assert.Equal(t, r1.Diagnostics(), r2.Diagnostics())
	assert.Equal(t, a1.Plan, a2.Plan)
	assert.Equal(t, a1.Surface, a2.Surface)
}

func TestTypeName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "App", TypeName("io.example.app"))
	assert.Equal(t, "Lib", TypeName("lib"))
	assert.Equal(t, "Module", TypeName(""))
}
