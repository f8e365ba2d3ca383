package di_test

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sghaida/modwire/di"
)

type store struct{ dsn string }

type service struct{ store *store }

type conn struct{ id int }

// recorder collects destroyed bean names in order.
type recorder struct {
	mu   sync.Mutex
	seen []string
}

func (r *recorder) add(name string) {
	r.mu.Lock()
	r.seen = append(r.seen, name)
	r.mu.Unlock()
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.seen...)
}

// shop is what a generated module looks like: beans registered in declaration order, each
// create function pulling its dependencies.
type shop struct {
	*di.Module
	web   *di.Singleton[*service]
	jobs  *di.Singleton[*service]
	store *di.Singleton[*store]
}

func newShop(rec *recorder, opts ...di.Option) *shop {
	m := &shop{Module: di.NewModule("shop", opts...)}
	m.web = di.NewSingleton(m.Module, di.BeanConfig[*service]{
		Name: "web",
		Create: func() (*service, error) {
			s, err := m.store.Get()
			if err != nil {
				return nil, err
			}
			return &service{store: s}, nil
		},
		Destroy: func(*service) error { rec.add("web"); return nil },
	})
	m.jobs = di.NewSingleton(m.Module, di.BeanConfig[*service]{
		Name:    "jobs",
		Create:  func() (*service, error) { return &service{}, nil },
		Destroy: func(*service) error { rec.add("jobs"); return nil },
	})
	m.store = di.NewSingleton(m.Module, di.BeanConfig[*store]{
		Name:     "store",
		Create:   func() (*store, error) { return &store{dsn: "mem"}, nil },
		Destroy:  func(*store) error { rec.add("store"); return nil },
		Override: di.Override[*store](m.Module, "store"),
	})
	return m
}

func TestModule_CreationOrderIsDepthFirstFirstUse(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	m := newShop(rec)
	require.NoError(t, m.Start())
	assert.True(t, m.IsActive())
	assert.Equal(t, []string{"store", "web", "jobs"}, m.Stack())

	m.Stop()
	assert.False(t, m.IsActive())
	assert.Equal(t, []string{"jobs", "web", "store"}, rec.names())
	assert.Empty(t, m.Stack())
}

func TestModule_StartStopIdempotent(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	m := newShop(rec)
	m.Stop()
	assert.Empty(t, rec.names(), "stopping an inactive module does nothing")

	require.NoError(t, m.Start())
	require.NoError(t, m.Start())
	assert.Len(t, m.Stack(), 3)
	first, _ := m.Bean("store")

	m.Stop()
	m.Stop()
	assert.Len(t, rec.names(), 3)

	require.NoError(t, m.Start())
	second, _ := m.Bean("store")
	assert.NotSame(t, first, second, "a restarted module builds fresh instances")
}

func TestModule_SingletonIdentity(t *testing.T) {
	t.Parallel()

	m := newShop(&recorder{})
	require.NoError(t, m.Start())

	a, err := m.web.Get()
	require.NoError(t, err)
	b, err := m.web.Get()
	require.NoError(t, err)
	assert.Same(t, a, b)

	raw, ok := m.Bean("web")
	require.True(t, ok)
	assert.Same(t, a, raw)

	_, ok = m.Bean("nope")
	assert.False(t, ok)
}

func TestModule_PrototypeDistinct(t *testing.T) {
	t.Parallel()

	m := di.NewModule("pool")
	next := 0
	p := di.NewPrototype(m, di.BeanConfig[*conn]{
		Name:   "conn",
		Create: func() (*conn, error) { next++; return &conn{id: next}, nil },
	})
	require.NoError(t, m.Start())
	assert.Empty(t, m.Stack(), "prototypes are not created on start")

	a, err := p.Get()
	require.NoError(t, err)
	b, err := p.Get()
	require.NoError(t, err)
	assert.NotSame(t, a, b)
	assert.Equal(t, []string{"conn"}, m.Stack(), "a prototype is recorded once")
}

func TestModule_PrototypeDestroyedOnStop(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	m := di.NewModule("pool")
	p := di.NewPrototype(m, di.BeanConfig[*conn]{
		Name:    "conn",
		Create:  func() (*conn, error) { return &conn{}, nil },
		Destroy: func(*conn) error { rec.add("conn"); return nil },
	})
	require.NoError(t, m.Start())

	held := make([]*conn, 0, 3)
	for i := 0; i < 3; i++ {
		c, err := p.Get()
		require.NoError(t, err)
		held = append(held, c)
	}
	assert.Empty(t, rec.names())

	m.Stop()
	assert.Equal(t, []string{"conn", "conn", "conn"}, rec.names())
	runtime.KeepAlive(held)

	require.NoError(t, m.Start())
	m.Stop()
	assert.Len(t, rec.names(), 3, "instances are destroyed once")
}

func TestModule_DestroyFailureIsLogged(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.ErrorLevel)
	rec := &recorder{}
	m := di.NewModule("m", di.WithLogger(zap.New(core)))
	a := di.NewSingleton(m, di.BeanConfig[*store]{
		Name:    "a",
		Create:  func() (*store, error) { return &store{}, nil },
		Destroy: func(*store) error { rec.add("a"); return nil },
	})
	di.NewSingleton(m, di.BeanConfig[*store]{
		Name:    "b",
		Create:  func() (*store, error) { return &store{}, nil },
		Destroy: func(*store) error { return errors.New("close: broken pipe") },
	})
	di.NewSingleton(m, di.BeanConfig[*store]{
		Name:    "c",
		Create:  func() (*store, error) { _, err := a.Get(); return &store{}, err },
		Destroy: func(*store) error { panic("boom") },
	})
	require.NoError(t, m.Start())
	m.Stop()

	assert.Equal(t, []string{"a"}, rec.names(), "shutdown continues after failures")
	require.Equal(t, 2, logs.Len())
	entries := logs.All()
	assert.Equal(t, "bean destroy panicked", entries[0].Message)
	assert.Equal(t, "c", entries[0].ContextMap()["bean"])
	assert.Equal(t, "bean destroy failed", entries[1].Message)
	assert.Equal(t, "b", entries[1].ContextMap()["bean"])
}

func TestModule_StartFailureTearsDown(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	m := di.NewModule("m")
	di.NewSingleton(m, di.BeanConfig[*store]{
		Name:    "ok",
		Create:  func() (*store, error) { return &store{}, nil },
		Destroy: func(*store) error { rec.add("ok"); return nil },
	})
	di.NewSingleton(m, di.BeanConfig[*store]{
		Name:   "bad",
		Create: func() (*store, error) { return nil, errors.New("dial: refused") },
	})

	err := m.Start()
	require.Error(t, err)
	var ce *di.CreationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "bad", ce.Bean)
	assert.Equal(t, `di: bean "m:bad" creation failed: dial: refused`, err.Error())
	assert.False(t, m.IsActive())
	assert.Equal(t, []string{"ok"}, rec.names())
	assert.Empty(t, m.Stack())
}

func TestModule_InitFailure(t *testing.T) {
	t.Parallel()

	m := di.NewModule("m")
	b := di.NewSingleton(m, di.BeanConfig[*store]{
		Name:   "s",
		Create: func() (*store, error) { return &store{}, nil },
		Init:   func(*store) error { return errors.New("migrate failed") },
	})
	_, err := b.Get()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrate failed")

	_, err = di.NewSingleton(m, di.BeanConfig[*store]{Name: "empty"}).Get()
	assert.True(t, errors.Is(err, di.ErrNilCreate))
}

func TestModule_Override(t *testing.T) {
	t.Parallel()

	fixed := &store{dsn: "fixture"}
	rec := &recorder{}
	m := newShop(rec, di.WithRegistry(di.NewMapRegistry().Provide("shop:store", fixed)))
	require.NoError(t, m.Start())

	web, err := m.web.Get()
	require.NoError(t, err)
	assert.Same(t, fixed, web.store)
	assert.Equal(t, []string{"store", "web", "jobs"}, m.Stack(), "an override is still recorded")

	m.Stop()
	assert.Equal(t, []string{"jobs", "web"}, rec.names(), "an override is never destroyed")
}

func TestModule_OverrideWrongType(t *testing.T) {
	t.Parallel()

	m := newShop(&recorder{}, di.WithRegistry(di.NewMapRegistry().Provide("shop:store", "oops")))
	err := m.Start()
	require.Error(t, err)

	var wt *di.WrongTypeOverrideError
	require.True(t, errors.As(err, &wt))
	assert.Equal(t, "shop:store", wt.Key)
	assert.Equal(t, "string", wt.GotType)
}

func TestModule_ConcurrentStart(t *testing.T) {
	t.Parallel()

	var created atomic.Int32
	m := di.NewModule("m")
	di.NewSingleton(m, di.BeanConfig[*store]{
		Name:   "s",
		Create: func() (*store, error) { created.Add(1); return &store{}, nil },
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, m.Start())
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), created.Load())
	assert.Equal(t, []string{"s"}, m.Stack())
}

func TestModule_ConcurrentGet(t *testing.T) {
	t.Parallel()

	var created atomic.Int32
	m := di.NewModule("m")
	s := di.NewSingleton(m, di.BeanConfig[*store]{
		Name:   "s",
		Create: func() (*store, error) { created.Add(1); return &store{}, nil },
	})

	got := make([]*store, 16)
	var wg sync.WaitGroup
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i], _ = s.Get()
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(1), created.Load())
	for _, g := range got {
		assert.Same(t, got[0], g)
	}
}

func TestModule_GetDuringStop(t *testing.T) {
	t.Parallel()

	var destroyed atomic.Int32
	m := di.NewModule("m")
	s := di.NewSingleton(m, di.BeanConfig[*store]{
		Name:    "s",
		Create:  func() (*store, error) { return &store{dsn: "x"}, nil },
		Destroy: func(*store) error { destroyed.Add(1); return nil },
	})
	require.NoError(t, m.Start())

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				v, err := s.Get()
				if !assert.NoError(t, err) || !assert.NotNil(t, v) {
					return
				}
				assert.Equal(t, "x", v.dsn)
			}
		}()
	}
	m.Stop()
	close(stop)
	wg.Wait()

	assert.False(t, m.IsActive())
	assert.GreaterOrEqual(t, destroyed.Load(), int32(1))
}

func TestModule_DuplicateBeanPanics(t *testing.T) {
	t.Parallel()

	m := di.NewModule("m")
	cfg := di.BeanConfig[*store]{Name: "s", Create: func() (*store, error) { return &store{}, nil }}
	di.NewSingleton(m, cfg)
	assert.PanicsWithError(t, `di: bean "s" registered twice in module "m"`, func() {
		di.NewSingleton(m, cfg)
	})
}

func TestModule_ComponentModuleAsBean(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	app := di.NewModule("app")
	lib := di.NewSingleton(app, di.BeanConfig[*shop]{
		Name:    "module:shop",
		Create:  func() (*shop, error) { return newShop(rec, app.Options()...), nil },
		Init:    func(s *shop) error { return s.Start() },
		Destroy: func(s *shop) error { s.Stop(); return nil },
	})
	require.NoError(t, app.Start())

	s, err := lib.Get()
	require.NoError(t, err)
	assert.True(t, s.IsActive())

	app.Stop()
	assert.False(t, s.IsActive())
	assert.Equal(t, []string{"jobs", "web", "store"}, rec.names())
}

func TestRequireSockets(t *testing.T) {
	t.Parallel()

	var nilStore *store
	tests := []struct {
		name    string
		sockets []di.Socket
		want    string
	}{
		{name: "all_set", sockets: []di.Socket{{Name: "db", Value: &store{}}, {Name: "dsn", Value: ""}}},
		{name: "untyped_nil", sockets: []di.Socket{{Name: "db"}}, want: `di: module "app" is missing required socket "db"`},
		{
			name:    "typed_nil_and_nil_slice",
			sockets: []di.Socket{{Name: "db", Value: nilStore}, {Name: "ok", Value: 1}, {Name: "hooks", Value: []string{}}, {Name: "tags", Value: []string(nil)}},
			want:    `di: module "app" is missing required sockets "db", "tags"`,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := di.RequireSockets("app", tt.sockets...)
			if tt.want == "" {
				require.NoError(t, err)
				return
			}
			var ms *di.MissingSocketsError
			require.True(t, errors.As(err, &ms))
			assert.Equal(t, tt.want, err.Error())
		})
	}
}
