package export

import (
	"reflect"
	"sync"
)

// ContractSpace holds the universe of capability contracts known to the
// application. Go interfaces are structural, so auto-detection checks a
// runtime type against this universe rather than enumerating declarations.
// Iteration order is first-added, which keeps detection output deterministic.
type ContractSpace struct {
	mu        sync.RWMutex
	contracts []reflect.Type
	seen      map[reflect.Type]bool
}

// NewContractSpace creates an empty contract universe.
func NewContractSpace() *ContractSpace {
	return &ContractSpace{
		seen: make(map[reflect.Type]bool),
	}
}

// Add registers an interface type as a known contract. Non-interface types
// are rejected. Adding the same contract twice is a no-op.
func (s *ContractSpace) Add(t reflect.Type) error {
	if t == nil || t.Kind() != reflect.Interface {
		return &ConfigError{Reason: "contracts must be interface types"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen[t] {
		return nil
	}
	s.seen[t] = true
	s.contracts = append(s.contracts, t)
	return nil
}

// Lookup finds a known contract by its type name, as reported by
// reflect.Type.String. Used when resolving declarative export definitions.
func (s *ContractSpace) Lookup(name string) (reflect.Type, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.contracts {
		if t.String() == name {
			return t, true
		}
	}
	return nil, false
}

func (s *ContractSpace) snapshot() []reflect.Type {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]reflect.Type, len(s.contracts))
	copy(out, s.contracts)
	return out
}

// AddContract registers the interface type T as a known contract.
func AddContract[T any](s *ContractSpace) error {
	return s.Add(reflect.TypeOf((*T)(nil)).Elem())
}

// Contract returns the reflect.Type of the interface T, for building explicit
// contract lists in an ExportConfig.
func Contract[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Detector computes the set of capability contracts a target type should be
// advertised under. Detection is a pure function of the type, the mode and
// the contract space; it performs no I/O.
type Detector struct {
	space *ContractSpace
}

// NewDetector creates a detector over the given contract space. A nil space
// is treated as empty.
func NewDetector(space *ContractSpace) *Detector {
	if space == nil {
		space = NewContractSpace()
	}
	return &Detector{space: space}
}

// Detect returns the contracts inferred for t under the given mode, in
// stable first-seen order with duplicates collapsed by identity. A nil type
// yields an empty set: detection is simply skipped, not an error.
func (d *Detector) Detect(t reflect.Type, mode AutoExport) []reflect.Type {
	var detected []reflect.Type

	if mode.enabled(AutoExportDisabled) {
		return detected
	}
	if t == nil {
		log.Debug("service type is unknown, skipping capability autodetection")
		return detected
	}

	seen := make(map[reflect.Type]bool)

	if mode.enabled(AutoExportInterfaces) {
		for _, contract := range d.space.snapshot() {
			if implementsContract(t, contract) && !seen[contract] {
				seen[contract] = true
				detected = append(detected, contract)
			}
		}
	}

	if mode.enabled(AutoExportHierarchy) {
		for _, concrete := range concreteChain(t) {
			if !seen[concrete] {
				seen[concrete] = true
				detected = append(detected, concrete)
			}
		}
	}

	return detected
}

// implementsContract checks t against a contract, considering the pointer
// method set when t itself is not a pointer.
func implementsContract(t, contract reflect.Type) bool {
	if t.Implements(contract) {
		return true
	}
	if t.Kind() != reflect.Ptr {
		return reflect.PtrTo(t).Implements(contract)
	}
	return false
}

// concreteChain walks the concrete struct type and its transitively embedded
// structs, the closest Go analogue of a superclass chain. Pointer types are
// unwrapped first; non-struct types contribute only themselves.
func concreteChain(t reflect.Type) []reflect.Type {
	return appendConcreteChain(nil, t, make(map[reflect.Type]bool))
}

// appendConcreteChain tracks visited types so self-referential embeds
// (legal through a pointer) terminate instead of recursing forever.
func appendConcreteChain(chain []reflect.Type, t reflect.Type, visited map[reflect.Type]bool) []reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if visited[t] {
		return chain
	}
	visited[t] = true

	chain = append(chain, t)
	if t.Kind() != reflect.Struct {
		return chain
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.Anonymous {
			continue
		}
		embedded := field.Type
		for embedded.Kind() == reflect.Ptr {
			embedded = embedded.Elem()
		}
		if embedded.Kind() == reflect.Struct {
			chain = appendConcreteChain(chain, embedded, visited)
		}
	}
	return chain
}
