package export

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/sirupsen/logrus"
)

// lazyFactory defers target construction until the first consumer request.
// A direct target is served as-is; a named target is resolved through the
// container on every Acquire. If the resolved object is itself a
// ServiceFactory, the real instance comes from delegating to it, and the
// provider is remembered so Release unwinds symmetrically.
type lazyFactory struct {
	target     interface{}
	targetName string
	container  Container

	activationMethod   string
	deactivationMethod string

	// instances, when set, tracks every acquired instance for managed
	// property updates.
	instances *ManagedInstanceRegistry

	// providers remembers the unwrapped provider per consumer; a prototype
	// target may hand each consumer a distinct one.
	mu        sync.Mutex
	providers map[string]ServiceFactory
}

func newLazyFactory(cfg *ExportConfig, container Container, instances *ManagedInstanceRegistry) *lazyFactory {
	return &lazyFactory{
		target:             cfg.Target,
		targetName:         cfg.TargetName,
		container:          container,
		activationMethod:   cfg.ActivationMethod,
		deactivationMethod: cfg.DeactivationMethod,
		instances:          instances,
		providers:          make(map[string]ServiceFactory),
	}
}

func (f *lazyFactory) Acquire(ctx *ConsumerContext) (interface{}, error) {
	instance := f.target
	if instance == nil {
		resolved, err := f.container.Resolve(f.targetName, ctx)
		if err != nil {
			return nil, &ResolutionError{Name: f.targetName, Err: err}
		}
		instance = resolved
	}

	// The target may itself be a deferred provider. Delegate and remember
	// it for this consumer so Release can delegate symmetrically.
	if provider, ok := instance.(ServiceFactory); ok {
		f.mu.Lock()
		f.providers[ctx.ConsumerID()] = provider
		f.mu.Unlock()

		inner, err := provider.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		instance = inner
	}

	invokeHook(instance, f.activationMethod, "activation")

	if f.instances != nil {
		f.instances.Register(instance)
	}
	return instance, nil
}

func (f *lazyFactory) Release(ctx *ConsumerContext, instance interface{}) {
	invokeHook(instance, f.deactivationMethod, "deactivation")

	if f.instances != nil {
		f.instances.UnregisterInstance(instance)
	}

	f.mu.Lock()
	provider := f.providers[ctx.ConsumerID()]
	delete(f.providers, ctx.ConsumerID())
	f.mu.Unlock()
	if provider != nil {
		provider.Release(ctx, instance)
	}
}

// invokeHook resolves a zero-argument method by name against the runtime
// type of instance and invokes it. Hook failures are logged and swallowed: a
// broken hook must never make an already-registered capability unusable.
// A blank name skips the step entirely.
func invokeHook(instance interface{}, name, phase string) {
	if name == "" || instance == nil {
		return
	}

	typeName := reflect.TypeOf(instance).String()
	defer func() {
		if r := recover(); r != nil {
			hookErr := &HookError{Phase: phase, Hook: name, Type: typeName, Err: fmt.Errorf("panic: %v", r)}
			log.WithFields(logrus.Fields{"phase": phase, "hook": name, "type": typeName}).Error(hookErr.Error())
		}
	}()

	method := reflect.ValueOf(instance).MethodByName(name)
	if !method.IsValid() {
		log.WithFields(logrus.Fields{"phase": phase, "hook": name, "type": typeName}).
			Warn("hook method not found on runtime type, skipping")
		return
	}
	if method.Type().NumIn() != 0 {
		log.WithFields(logrus.Fields{"phase": phase, "hook": name, "type": typeName}).
			Warn("hook method takes arguments, skipping")
		return
	}

	for _, out := range method.Call(nil) {
		if err, ok := out.Interface().(error); ok && err != nil {
			hookErr := &HookError{Phase: phase, Hook: name, Type: typeName, Err: err}
			log.WithFields(logrus.Fields{"phase": phase, "hook": name, "type": typeName}).Error(hookErr.Error())
		}
	}
}
