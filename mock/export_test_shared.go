package mock

import (
	"fmt"
	"reflect"
	"sync"

	export "github.com/centraunit/goallin_export"
)

// Capability contracts used across the test suites.
type Greeter interface {
	Greet() string
}

type Runner interface {
	Run() error
}

// GreeterService implements Greeter and Runner and carries optional
// lifecycle hooks the exporter resolves by name.
type GreeterService struct {
	mu          sync.Mutex
	started     int
	stopped     int
	Name        string
	Description string
}

func (g *GreeterService) Greet() string {
	return "hello from " + g.Name
}

func (g *GreeterService) Run() error {
	return nil
}

func (g *GreeterService) Start() {
	g.mu.Lock()
	g.started++
	g.mu.Unlock()
}

func (g *GreeterService) Stop() {
	g.mu.Lock()
	g.stopped++
	g.mu.Unlock()
}

func (g *GreeterService) Started() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.started
}

func (g *GreeterService) Stopped() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stopped
}

// Refresh is a bean-managed update hook.
func (g *GreeterService) Refresh(properties map[string]interface{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if name, ok := properties["Name"].(string); ok {
		g.Name = name
	}
}

// BrokenHookService has hooks that always fail, one by error and one by
// panic, but remains a perfectly usable Greeter.
type BrokenHookService struct {
	GreeterService
}

func (b *BrokenHookService) Start() error {
	return fmt.Errorf("simulated activation failure")
}

func (b *BrokenHookService) Stop() {
	panic("simulated deactivation panic")
}

// BaseComponent is embedded to give hierarchy detection an ancestor chain.
type BaseComponent struct {
	ID string
}

// AuditedGreeter embeds BaseComponent and implements Greeter.
type AuditedGreeter struct {
	BaseComponent
	GreeterService
}

// ProviderService is a factory-of-factories: an exported object that is
// itself a deferred provider. Acquire substitutes the inner service as the
// published instance.
type ProviderService struct {
	Inner interface{}

	mu           sync.Mutex
	acquires     int
	releases     int
	lastReleased interface{}
}

func (p *ProviderService) Acquire(ctx *export.ConsumerContext) (interface{}, error) {
	p.mu.Lock()
	p.acquires++
	p.mu.Unlock()
	return p.Inner, nil
}

func (p *ProviderService) Release(ctx *export.ConsumerContext, instance interface{}) {
	p.mu.Lock()
	p.releases++
	p.lastReleased = instance
	p.mu.Unlock()
}

func (p *ProviderService) Acquires() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.acquires
}

func (p *ProviderService) Releases() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.releases
}

func (p *ProviderService) LastReleased() interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastReleased
}

// binding is one named target inside the FakeContainer.
type binding struct {
	build     func() interface{}
	typ       reflect.Type
	scope     export.Scope
	opaque    bool
	instances map[string]interface{}
}

// FakeContainer is a minimal Container backing the exporter tests. It
// supports singleton, prototype and consumer scopes, opaque bindings whose
// type cannot be reported, and counts resolutions per target so tests can
// assert that construction really is deferred.
type FakeContainer struct {
	mu          sync.Mutex
	bindings    map[string]*binding
	resolutions map[string]int
	destroyed   map[string]map[string]int

	// ScopesUnknown makes ScopeOf answer unknown for every name,
	// simulating a container that cannot be queried for scopes.
	ScopesUnknown bool
}

func NewFakeContainer() *FakeContainer {
	return &FakeContainer{
		bindings:    make(map[string]*binding),
		resolutions: make(map[string]int),
		destroyed:   make(map[string]map[string]int),
	}
}

func (c *FakeContainer) BindSingleton(name string, instance interface{}) {
	c.bind(name, &binding{
		build: func() interface{} { return instance },
		typ:   reflect.TypeOf(instance),
		scope: export.ScopeSingleton,
	})
}

func (c *FakeContainer) BindPrototype(name string, build func() interface{}) {
	c.bind(name, &binding{
		build: build,
		typ:   reflect.TypeOf(build()),
		scope: export.ScopePrototype,
	})
}

func (c *FakeContainer) BindConsumer(name string, build func() interface{}) {
	c.bind(name, &binding{
		build:     build,
		typ:       reflect.TypeOf(build()),
		scope:     export.ScopeConsumer,
		instances: make(map[string]interface{}),
	})
}

// BindOpaque registers a target whose declared type cannot be reported.
func (c *FakeContainer) BindOpaque(name string, build func() interface{}) {
	c.bind(name, &binding{
		build:  build,
		scope:  export.ScopeSingleton,
		opaque: true,
	})
}

func (c *FakeContainer) bind(name string, b *binding) {
	c.mu.Lock()
	c.bindings[name] = b
	c.mu.Unlock()
}

func (c *FakeContainer) Resolve(name string, ctx *export.ConsumerContext) (interface{}, error) {
	c.mu.Lock()
	b, ok := c.bindings[name]
	if !ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("no binding for %q", name)
	}
	c.resolutions[name]++

	if b.scope != export.ScopeConsumer {
		c.mu.Unlock()
		return b.build(), nil
	}

	consumer := ctx.ConsumerID()
	if instance, ok := b.instances[consumer]; ok {
		c.mu.Unlock()
		return instance, nil
	}

	instance := b.build()
	b.instances[consumer] = instance
	c.mu.Unlock()

	// Hand the per-scope teardown back to the acquisition in flight.
	export.OfferDestructionCallback(ctx, func() {
		c.mu.Lock()
		delete(b.instances, consumer)
		if c.destroyed[name] == nil {
			c.destroyed[name] = make(map[string]int)
		}
		c.destroyed[name][consumer]++
		c.mu.Unlock()
	})
	return instance, nil
}

func (c *FakeContainer) TypeOf(name string) reflect.Type {
	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.bindings[name]; ok && !b.opaque {
		return b.typ
	}
	return nil
}

func (c *FakeContainer) ScopeOf(name string) (export.Scope, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ScopesUnknown {
		return "", false
	}
	if b, ok := c.bindings[name]; ok {
		return b.scope, true
	}
	return "", false
}

// Resolutions reports how many times a target has been resolved.
func (c *FakeContainer) Resolutions(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolutions[name]
}

// Destroyed reports whether the consumer's scoped instance of a target has
// been torn down.
func (c *FakeContainer) Destroyed(name, consumer string) bool {
	return c.DestroyCount(name, consumer) > 0
}

// DestroyCount reports how many times the consumer's scoped instance has
// been torn down. Anything above one means a destruction callback fired more
// than once.
func (c *FakeContainer) DestroyCount(name, consumer string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.destroyed[name][consumer]
}

// FailingRegistry rejects every registration with a fixed error.
type FailingRegistry struct {
	Err error
}

func (r *FailingRegistry) Register(contracts []string, factory export.ServiceFactory, properties map[string]interface{}) (*export.Registration, error) {
	return nil, r.Err
}

func (r *FailingRegistry) Unregister(reg *export.Registration) error {
	return r.Err
}
