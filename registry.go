package export

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Registration is the opaque handle returned by a registry on success. It is
// owned exclusively by the exporter that obtained it.
type Registration struct {
	id         string
	contracts  []string
	properties map[string]interface{}
}

// ID returns the registry-assigned identity of this registration.
func (r *Registration) ID() string {
	return r.id
}

// Contracts returns the contract names the registration was published under.
func (r *Registration) Contracts() []string {
	out := make([]string, len(r.contracts))
	copy(out, r.contracts)
	return out
}

// Properties returns the service metadata recorded at registration time.
func (r *Registration) Properties() map[string]interface{} {
	out := make(map[string]interface{}, len(r.properties))
	for k, v := range r.properties {
		out[k] = v
	}
	return out
}

type registryEntry struct {
	registration *Registration
	factory      ServiceFactory
}

// LocalRegistry is an in-process Registry. Consumers pull service instances
// through it on demand; the registry never pushes. It is safe for concurrent
// registration, unregistration and acquisition.
type LocalRegistry struct {
	mu         sync.RWMutex
	byContract map[string]*registryEntry
	byID       map[string]*registryEntry
}

// NewLocalRegistry creates an empty registry.
func NewLocalRegistry() *LocalRegistry {
	return &LocalRegistry{
		byContract: make(map[string]*registryEntry),
		byID:       make(map[string]*registryEntry),
	}
}

// Register publishes a factory under the given contract names. The first
// registration of a contract wins: a second registration naming any of the
// same contracts is rejected with RegistrationError.
func (r *LocalRegistry) Register(contracts []string, factory ServiceFactory, properties map[string]interface{}) (*Registration, error) {
	if len(contracts) == 0 {
		return nil, &RegistrationError{Contracts: contracts, Err: fmt.Errorf("empty contract list")}
	}
	if factory == nil {
		return nil, &RegistrationError{Contracts: contracts, Err: fmt.Errorf("nil factory")}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, contract := range contracts {
		if _, taken := r.byContract[contract]; taken {
			return nil, &RegistrationError{
				Contracts: contracts,
				Err:       fmt.Errorf("contract %q is already registered", contract),
			}
		}
	}

	// Snapshot the metadata so later caller-side mutation of the map
	// cannot rewrite what was registered.
	props := make(map[string]interface{}, len(properties))
	for k, v := range properties {
		props[k] = v
	}

	registration := &Registration{
		id:         uuid.NewString(),
		contracts:  append([]string(nil), contracts...),
		properties: props,
	}
	entry := &registryEntry{registration: registration, factory: factory}
	for _, contract := range contracts {
		r.byContract[contract] = entry
	}
	r.byID[registration.id] = entry

	return registration, nil
}

// Unregister withdraws a registration. A handle that is nil or already gone
// yields AlreadyUnregisteredError; by the time Unregister returns, the end
// state is not-registered either way.
func (r *LocalRegistry) Unregister(reg *Registration) error {
	if reg == nil {
		return &AlreadyUnregisteredError{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.byID[reg.id]
	if !ok {
		return &AlreadyUnregisteredError{ID: reg.id}
	}
	delete(r.byID, reg.id)
	for _, contract := range entry.registration.contracts {
		delete(r.byContract, contract)
	}
	return nil
}

// GetService acquires an instance of the capability published under the
// given contract name for the consumer identified by ctx.
func (r *LocalRegistry) GetService(contract string, ctx *ConsumerContext) (interface{}, error) {
	r.mu.RLock()
	entry, ok := r.byContract[contract]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no service registered under contract %q", contract)
	}
	return entry.factory.Acquire(ctx)
}

// UngetService releases an instance previously obtained through GetService.
// Releasing against a contract that is already unregistered is a no-op.
func (r *LocalRegistry) UngetService(contract string, ctx *ConsumerContext, instance interface{}) {
	r.mu.RLock()
	entry, ok := r.byContract[contract]
	r.mu.RUnlock()
	if !ok {
		return
	}
	entry.factory.Release(ctx, instance)
}

// Has reports whether any factory is registered under the contract name.
func (r *LocalRegistry) Has(contract string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byContract[contract]
	return ok
}

// Count returns the number of live registrations.
func (r *LocalRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
