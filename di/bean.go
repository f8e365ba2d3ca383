package di

import (
	"sync"
	"sync/atomic"
)

// BeanConfig describes how a bean instance is obtained and released.
type BeanConfig[T any] struct {
	// Name is the bean name, unique in the module.
	Name string
	// Create builds an instance with its required dependencies.
	Create func() (T, error)
	// Init runs on a created instance before it is handed out.
	Init func(T) error
	// Destroy releases an instance. Errors are logged, never returned.
	Destroy func(T) error
	// Override, when it reports a value, replaces the whole create/init/destroy pipeline.
	Override func() (T, bool, error)
}

// build returns a new instance and whether it came from an override.
func (c *BeanConfig[T]) build(m *Module) (T, bool, error) {
	var zero T
	if c.Override != nil {
		v, ok, err := c.Override()
		if err != nil {
			return zero, false, m.creationError(c.Name, err)
		}
		if ok {
			return v, true, nil
		}
	}
	if c.Create == nil {
		return zero, false, m.creationError(c.Name, ErrNilCreate)
	}
	v, err := c.Create()
	if err != nil {
		return zero, false, m.creationError(c.Name, err)
	}
	if c.Init != nil {
		if err := c.Init(v); err != nil {
			return zero, false, m.creationError(c.Name, err)
		}
	}
	return v, false, nil
}

// Singleton holds the single instance of a bean. Creation and destruction are
// double-checked under a per-bean mutex so concurrent callers never build or release the
// instance twice. The instance is published atomically and never mutated, so the lock-free
// path of Get stays safe while the module stops.
type Singleton[T any] struct {
	mod *Module
	cfg BeanConfig[T]

	mu   sync.Mutex
	inst atomic.Pointer[instance[T]]
}

type instance[T any] struct {
	val        T
	overridden bool
}

// NewSingleton registers a singleton bean in m.
func NewSingleton[T any](m *Module, cfg BeanConfig[T]) *Singleton[T] {
	b := &Singleton[T]{mod: m, cfg: cfg}
	m.register(b)
	return b
}

// Get returns the instance, creating it on first use.
func (b *Singleton[T]) Get() (T, error) {
	if in := b.inst.Load(); in != nil {
		return in.val, nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if in := b.inst.Load(); in != nil {
		return in.val, nil
	}

	v, overridden, err := b.cfg.build(b.mod)
	if err != nil {
		return v, err
	}
	b.inst.Store(&instance[T]{val: v, overridden: overridden})
	b.mod.push(b)
	return v, nil
}

func (b *Singleton[T]) beanName() string { return b.cfg.Name }
func (b *Singleton[T]) singleton() bool { return true }
func (b *Singleton[T]) value() (any, error) { return b.Get() }

func (b *Singleton[T]) destroy() {
	if b.inst.Load() == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	in := b.inst.Swap(nil)
	if in == nil {
		return
	}
	if !in.overridden && b.cfg.Destroy != nil {
		b.mod.destroy(b.cfg.Name, func() error { return b.cfg.Destroy(in.val) })
	}
}

// Prototype builds a new instance of a bean on every Get. Instances with a destroy step are
// tracked weakly: the ones still reachable when the module stops are destroyed, the ones
// their holders dropped are left to the garbage collector.
type Prototype[E any] struct {
	mod *Module
	cfg BeanConfig[*E]

	mu     sync.Mutex
	pushed bool
	arena  arena[E]
}

// NewPrototype registers a prototype bean in m.
func NewPrototype[E any](m *Module, cfg BeanConfig[*E]) *Prototype[E] {
	b := &Prototype[E]{mod: m, cfg: cfg}
	m.register(b)
	return b
}

// Get returns a new instance.
func (b *Prototype[E]) Get() (*E, error) {
	v, overridden, err := b.cfg.build(b.mod)
	if err != nil {
		return nil, err
	}
	if !overridden && b.cfg.Destroy != nil {
		b.arena.track(v)
	}
	b.mu.Lock()
	if !b.pushed {
		b.pushed = true
		b.mod.push(b)
	}
	b.mu.Unlock()
	return v, nil
}

func (b *Prototype[E]) beanName() string { return b.cfg.Name }
func (b *Prototype[E]) singleton() bool { return false }
func (b *Prototype[E]) value() (any, error) { return b.Get() }

func (b *Prototype[E]) destroy() {
	for _, v := range b.arena.drain() {
		b.mod.destroy(b.cfg.Name, func() error { return b.cfg.Destroy(v) })
	}
	b.mu.Lock()
	b.pushed = false
	b.mu.Unlock()
}
