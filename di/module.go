package di

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// holder is the lifecycle side of a bean, independent of its type.
type holder interface {
	beanName() string
	singleton() bool
	value() (any, error)
	destroy()
}

// Option configures a Module.
type Option func(*Module)

// WithLogger sets the logger destroy failures and lifecycle events are reported to.
func WithLogger(log *zap.Logger) Option {
	return func(m *Module) {
		if log != nil {
			m.log = log
		}
	}
}

// WithRegistry sets the registry overrides are looked up in.
func WithRegistry(reg Registry) Option { return func(m *Module) { m.reg = reg } }

// Module is the runtime base of a generated module. It owns the bean holders registered by
// the generated code, records the order beans are actually created in and destroys them in
// reverse order on Stop.
type Module struct {
	name string
	log  *zap.Logger
	reg  Registry

	// mu serializes Start and Stop.
	mu      sync.Mutex
	active  atomic.Bool
	holders []holder
	named   map[string]holder

	stackMu sync.Mutex
	stack   []holder
}

// NewModule returns an inactive module.
func NewModule(name string, opts ...Option) *Module {
	m := &Module{name: name, log: zap.NewNop(), named: map[string]holder{}}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Name returns the module name.
func (m *Module) Name() string { return m.name }

// Options returns the options the module was built with, to be passed on to component
// modules.
func (m *Module) Options() []Option {
	return []Option{WithLogger(m.log), WithRegistry(m.reg)}
}

func (m *Module) register(h holder) {
	if _, dup := m.named[h.beanName()]; dup {
		panic(fmt.Errorf("di: bean %q registered twice in module %q", h.beanName(), m.name))
	}
	m.holders = append(m.holders, h)
	m.named[h.beanName()] = h
}

func (m *Module) push(h holder) {
	m.stackMu.Lock()
	m.stack = append(m.stack, h)
	m.stackMu.Unlock()
}

// Start creates the singleton beans in registration order. Each bean pulls its
// dependencies when created, so the creation order is depth-first by first use. Start on an
// active module is a no-op. When a bean fails, the beans created so far are destroyed.
func (m *Module) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active.Load() {
		return nil
	}
	for _, h := range m.holders {
		if !h.singleton() {
			continue
		}
		if _, err := h.value(); err != nil {
			m.log.Error("module start failed", zap.String("module", m.name), zap.Error(err))
			m.teardown()
			return err
		}
	}
	m.active.Store(true)
	m.log.Debug("module started", zap.String("module", m.name), zap.Strings("stack", m.Stack()))
	return nil
}

// Stop destroys every created bean in reverse creation order. A destroy failure is logged
// and the remaining beans are still destroyed.
func (m *Module) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active.Load() {
		return
	}
	m.teardown()
	m.active.Store(false)
	m.log.Debug("module stopped", zap.String("module", m.name))
}

func (m *Module) teardown() {
	m.stackMu.Lock()
	stack := m.stack
	m.stack = nil
	m.stackMu.Unlock()

	for i := len(stack) - 1; i >= 0; i-- {
		stack[i].destroy()
	}
}

// IsActive reports whether the module is started.
func (m *Module) IsActive() bool { return m.active.Load() }

// Bean returns an instance of the named bean. Component modules are registered as beans
// named module:<name>.
func (m *Module) Bean(name string) (any, bool) {
	h, ok := m.named[name]
	if !ok {
		return nil, false
	}
	v, err := h.value()
	if err != nil {
		m.log.Error("bean unavailable", zap.String("module", m.name), zap.String("bean", name), zap.Error(err))
		return nil, false
	}
	return v, true
}

// Stack returns the names of the beans created so far, in creation order.
func (m *Module) Stack() []string {
	m.stackMu.Lock()
	defer m.stackMu.Unlock()
	out := make([]string, len(m.stack))
	for i, h := range m.stack {
		out[i] = h.beanName()
	}
	return out
}

// destroy runs fn, logging its error or panic.
func (m *Module) destroy(bean string, fn func() error) {
	defer func() {
		if rec := recover(); rec != nil {
			m.log.Error("bean destroy panicked", zap.String("module", m.name), zap.String("bean", bean), zap.Any("panic", rec))
		}
	}()
	if err := fn(); err != nil {
		m.log.Error("bean destroy failed", zap.String("module", m.name), zap.String("bean", bean), zap.Error(err))
	}
}

func (m *Module) creationError(bean string, err error) error {
	return &CreationError{Module: m.name, Bean: bean, Err: err}
}
