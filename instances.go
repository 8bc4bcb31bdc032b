package export

import (
	"reflect"
	"sync"

	"github.com/sirupsen/logrus"
)

// ManagedInstanceRegistry tracks live service instances so property updates
// can be pushed into them after publication. Instances are addressed by a
// stable handle assigned at registration time and matched by identity, never
// by value equality: two equal-by-value instances must remain distinct
// entries.
type ManagedInstanceRegistry struct {
	strategy UpdateStrategy
	method   string

	mu         sync.Mutex
	nextHandle uint64
	instances  map[uint64]interface{}
}

// NewManagedInstanceRegistry creates a registry for the given strategy.
// The method name is only consulted for the bean-managed strategy.
func NewManagedInstanceRegistry(strategy UpdateStrategy, method string) *ManagedInstanceRegistry {
	return &ManagedInstanceRegistry{
		strategy:  strategy,
		method:    method,
		instances: make(map[uint64]interface{}),
	}
}

// Register adds an instance and returns its handle.
func (r *ManagedInstanceRegistry) Register(instance interface{}) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextHandle++
	r.instances[r.nextHandle] = instance
	return r.nextHandle
}

// Unregister removes the entry addressed by handle.
func (r *ManagedInstanceRegistry) Unregister(handle uint64) {
	r.mu.Lock()
	delete(r.instances, handle)
	r.mu.Unlock()
}

// UnregisterInstance removes the entry holding exactly this instance,
// matched by identity.
func (r *ManagedInstanceRegistry) UnregisterInstance(instance interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for handle, tracked := range r.instances {
		if sameIdentity(tracked, instance) {
			delete(r.instances, handle)
			return
		}
	}
}

// Len reports the number of tracked instances.
func (r *ManagedInstanceRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.instances)
}

// Updated pushes new properties into every tracked instance according to the
// configured strategy. Failures on individual instances are logged and do
// not abort the sweep.
func (r *ManagedInstanceRegistry) Updated(properties map[string]interface{}) {
	if r.strategy == UpdateNone || len(properties) == 0 {
		return
	}

	r.mu.Lock()
	instances := make([]interface{}, 0, len(r.instances))
	for _, instance := range r.instances {
		instances = append(instances, instance)
	}
	r.mu.Unlock()

	for _, instance := range instances {
		switch r.strategy {
		case UpdateBeanManaged:
			r.updateViaMethod(instance, properties)
		case UpdateContainerManaged:
			r.updateViaFields(instance, properties)
		}
	}
}

// updateViaMethod invokes the configured update method with the property
// map.
func (r *ManagedInstanceRegistry) updateViaMethod(instance interface{}, properties map[string]interface{}) {
	typeName := reflect.TypeOf(instance).String()
	defer func() {
		if rec := recover(); rec != nil {
			log.WithFields(logrus.Fields{"method": r.method, "type": typeName}).
				Errorf("update method panicked: %v", rec)
		}
	}()

	method := reflect.ValueOf(instance).MethodByName(r.method)
	if !method.IsValid() {
		log.WithFields(logrus.Fields{"method": r.method, "type": typeName}).
			Warn("update method not found on instance, skipping")
		return
	}
	method.Call([]reflect.Value{reflect.ValueOf(properties)})
}

// updateViaFields assigns exported struct fields whose names match property
// keys and whose types accept the new value.
func (r *ManagedInstanceRegistry) updateViaFields(instance interface{}, properties map[string]interface{}) {
	value := reflect.ValueOf(instance)
	for value.Kind() == reflect.Ptr {
		value = value.Elem()
	}
	if value.Kind() != reflect.Struct {
		return
	}

	for name, raw := range properties {
		field := value.FieldByName(name)
		if !field.IsValid() || !field.CanSet() || raw == nil {
			continue
		}
		next := reflect.ValueOf(raw)
		if next.Type().AssignableTo(field.Type()) {
			field.Set(next)
		}
	}
}

// sameIdentity reports whether a and b are the same object. Only reference
// kinds carry an identity; plain values never match.
func sameIdentity(a, b interface{}) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch va.Kind() {
	case reflect.Ptr, reflect.Chan, reflect.Map, reflect.Func, reflect.Slice, reflect.UnsafePointer:
		return vb.Kind() == va.Kind() && va.Pointer() == vb.Pointer()
	}
	return false
}
