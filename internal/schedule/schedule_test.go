package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sghaida/modwire/internal/diag"
	"github.com/sghaida/modwire/internal/graph"
	"github.com/sghaida/modwire/internal/model"
	"github.com/sghaida/modwire/internal/plan"
	"github.com/sghaida/modwire/internal/resolve"
)

func bean(name, typ string, deps ...string) *model.BeanDescriptor {
	b := &model.BeanDescriptor{Kind: model.KindModuleBean, Module: "app", Name: name, Type: typ, Constructor: "New"}
	for i := 0; i+1 < len(deps); i += 2 {
		b.Required = append(b.Required, &model.SocketDescriptor{Name: deps[i], Type: deps[i+1]})
	}
	return b
}

func planOf(t *testing.T, m *model.ModuleDescriptor, comps ...*model.Component) *plan.Module {
	t.Helper()
	var c diag.Collector
	g := graph.Build(m, comps, &c)
	res := resolve.Resolve(g, model.NewHierarchy(), &c)
	require.False(t, c.HasErrors(), "%v", c.Diagnostics())
	return plan.Build(g, res)
}

func TestOrder_DependenciesFirst(t *testing.T) {
	t.Parallel()

	p := planOf(t, &model.ModuleDescriptor{Name: "app", Beans: []*model.BeanDescriptor{
		bean("web", "*app.Web", "svc", "*app.Svc"),
		bean("svc", "*app.Svc", "store", "*app.Store"),
		bean("store", "*app.Store"),
		bean("jobs", "*app.Jobs", "store", "*app.Store"),
	}})

	order := Order(p)
	assert.Equal(t, []string{"store", "svc", "web", "jobs"}, order)
	assert.Equal(t, []string{"jobs", "web", "svc", "store"}, Reverse(order))
	assert.Equal(t, []string{"store", "svc", "web", "jobs"}, order, "Reverse must not alter its input")
}

func TestOrder_PrototypesWalkedNotListed(t *testing.T) {
	t.Parallel()

	proto := bean("req", "*app.Req", "store", "*app.Store")
	proto.Scope = model.ScopePrototype
	parent := bean("pool", "*app.Pool")
	parent.Nested = []*model.BeanDescriptor{{
		Kind: model.KindNestedBean, Module: "app", Name: "pool.conn", Type: "*app.Conn", Parent: "pool", Scope: model.ScopePrototype,
	}}

	p := planOf(t, &model.ModuleDescriptor{Name: "app", Beans: []*model.BeanDescriptor{
		bean("web", "*app.Web", "req", "*app.Req", "conn", "*app.Conn"),
		proto,
		bean("store", "*app.Store"),
		parent,
	}})
	assert.Equal(t, []string{"store", "pool", "web"}, Order(p))
}

func TestOrder_Components(t *testing.T) {
	t.Parallel()

	comp := &model.Component{
		Import: model.ModuleImport{Module: "io.lib"},
		Surface: &model.Surface{
			Module:  "io.lib",
			Beans:   []model.SurfaceBean{{Name: "client", Type: "*lib.Client", Sockets: []string{"cfg"}}},
			Sockets: []model.SurfaceSocket{{Name: "cfg", Type: "*app.Cfg"}},
		},
	}
	other := &model.Component{
		Import:  model.ModuleImport{Module: "io.idle"},
		Surface: &model.Surface{Module: "io.idle"},
	}
	p := planOf(t, &model.ModuleDescriptor{
		Name: "app",
		Beans: []*model.BeanDescriptor{
			bean("svc", "*app.Svc", "client", "*lib.Client"),
			bean("cfg", "*app.Cfg"),
		},
		Imports: []model.ModuleImport{{Module: "io.lib"}, {Module: "io.idle"}},
	}, comp, other)

	assert.Equal(t, []string{"cfg", "module:io.lib", "svc", "module:io.idle"}, Order(p))
}
