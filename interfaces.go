// Package export publishes application-managed objects into a dynamic service
// registry as lazily-activated, capability-addressed services.
package export

import "reflect"

// Scope defines the lifetime of a container-managed target.
type Scope string

// Scopes reported by a Container.
const (
	// ScopeSingleton shares a single instance across the application.
	ScopeSingleton Scope = "singleton"
	// ScopePrototype creates a new instance on each resolution.
	ScopePrototype Scope = "prototype"
	// ScopeConsumer maintains one instance per requesting consumer.
	ScopeConsumer Scope = "consumer"
)

// AutoExport is a bitmask controlling which capability contracts are inferred
// from a target's runtime type.
type AutoExport int

// Auto-export detection modes.
const (
	// AutoExportDisabled turns detection off; explicit contracts still publish.
	AutoExportDisabled AutoExport = 0
	// AutoExportInterfaces detects every known contract the type implements.
	AutoExportInterfaces AutoExport = 1
	// AutoExportHierarchy detects the concrete type and its embedded chain.
	AutoExportHierarchy AutoExport = 2
	// AutoExportAll combines interface and hierarchy detection.
	AutoExportAll AutoExport = AutoExportInterfaces | AutoExportHierarchy
)

func (m AutoExport) enabled(mode AutoExport) bool {
	if mode == AutoExportDisabled {
		return m == AutoExportDisabled
	}
	return m&mode == mode
}

// ServiceFactory defers construction of a published service until a consumer
// first requests it. The registry calls Acquire once per consumer request and
// Release when the consumer lets the instance go. Acquire and Release must be
// safe to run in parallel for independent consumers.
type ServiceFactory interface {
	// Acquire resolves the service instance for the requesting consumer.
	Acquire(ctx *ConsumerContext) (interface{}, error)

	// Release gives the instance back. Implementations must tolerate an
	// instance that differs from the one Acquire returned (providers may
	// substitute themselves).
	Release(ctx *ConsumerContext, instance interface{})
}

// Registry is the component that advertises capabilities and pulls instances
// through a ServiceFactory on consumer demand.
type Registry interface {
	// Register publishes a factory under the given contract names.
	Register(contracts []string, factory ServiceFactory, properties map[string]interface{}) (*Registration, error)

	// Unregister withdraws a prior registration. Returns
	// AlreadyUnregisteredError if the handle is no longer registered.
	Unregister(reg *Registration) error
}

// Container resolves named targets on behalf of the exporter.
// Implementations that cannot answer TypeOf or ScopeOf report unknown rather
// than failing; the exporter degrades gracefully.
type Container interface {
	// Resolve returns the live instance bound under name for the consumer
	// identified by ctx.
	Resolve(name string, ctx *ConsumerContext) (interface{}, error)

	// TypeOf reports the declared type of a named target, or nil when it
	// cannot be determined (e.g. the target hides behind an opaque provider).
	TypeOf(name string) reflect.Type

	// ScopeOf reports the scope of a named target. ok is false when the
	// container cannot be queried for scopes.
	ScopeOf(name string) (scope Scope, ok bool)
}
