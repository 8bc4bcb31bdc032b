package export

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Default metadata keys contributed by the exporter. Explicit Properties in
// the ExportConfig override them on conflict.
const (
	// PropertyServiceName carries the target name, or a generated identity
	// for anonymous direct targets.
	PropertyServiceName = "service.name"
	// PropertyExporterID carries a unique id per publication attempt.
	PropertyExporterID = "service.exporter.id"
)

type publishState int

const (
	stateUnpublished publishState = iota
	statePublishing
	statePublished
	stateUnpublishing
)

// Exporter publishes a single configured target into a Registry as a
// lazily-activated service and owns the resulting registration for its whole
// lifecycle. Each exporter is independent; no state is shared across
// publications.
type Exporter struct {
	registry  Registry
	container Container
	cfg       ExportConfig

	mu           sync.Mutex
	state        publishState
	registration *Registration
	instances    *ManagedInstanceRegistry
}

// NewExporter creates an exporter for one publication. The configuration is
// validated on Publish, not here, so construction never fails.
func NewExporter(registry Registry, container Container, cfg ExportConfig) *Exporter {
	return &Exporter{
		registry:  registry,
		container: container,
		cfg:       cfg,
	}
}

// Publish validates the configuration, computes the capability set, builds
// the (possibly scope-decorated) factory and registers it. On any failure no
// handle is retained and the exporter returns to the unpublished state.
// A second Publish without an intervening Unpublish is rejected with
// AlreadyPublishedError.
func (e *Exporter) Publish() error {
	e.mu.Lock()
	if e.state != stateUnpublished {
		contracts := []string(nil)
		if e.registration != nil {
			contracts = e.registration.Contracts()
		}
		e.mu.Unlock()
		return &AlreadyPublishedError{Contracts: contracts}
	}
	e.state = statePublishing
	e.mu.Unlock()

	registration, instances, err := e.doPublish()

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.state = stateUnpublished
		return err
	}
	e.state = statePublished
	e.registration = registration
	e.instances = instances
	return nil
}

func (e *Exporter) doPublish() (*Registration, *ManagedInstanceRegistry, error) {
	if err := e.cfg.validate(); err != nil {
		return nil, nil, err
	}
	if e.registry == nil {
		return nil, nil, &ConfigError{Reason: "no registry configured"}
	}
	if e.cfg.Target == nil && e.container == nil {
		return nil, nil, &ConfigError{Reason: "a named target requires a container"}
	}

	// Best-effort runtime type for detection. A container that cannot
	// report the type simply disables autodetection.
	var serviceType reflect.Type
	if e.cfg.Target != nil {
		serviceType = reflect.TypeOf(e.cfg.Target)
	} else {
		serviceType = e.container.TypeOf(e.cfg.TargetName)
	}

	detector := NewDetector(e.cfg.Space)
	detected := detector.Detect(serviceType, e.cfg.AutoExport)

	contracts := dedupeContracts(e.cfg.Contracts, detected)
	if len(contracts) == 0 {
		return nil, nil, &ConfigError{Reason: "no capability contracts to publish: configure Contracts or enable AutoExport"}
	}

	var instances *ManagedInstanceRegistry
	if e.cfg.UpdateStrategy != UpdateNone {
		instances = NewManagedInstanceRegistry(e.cfg.UpdateStrategy, e.cfg.UpdateMethod)
	}

	var factory ServiceFactory = newLazyFactory(&e.cfg, e.container, instances)
	if e.consumerScoped() {
		factory = newScopedFactory(factory)
	}

	names := contractNames(contracts)
	properties := e.mergeProperties()

	log.WithFields(logrus.Fields{"contracts": names}).Info("publishing service")

	registration, err := e.registry.Register(names, factory, properties)
	if err != nil {
		var regErr *RegistrationError
		if errors.As(err, &regErr) {
			return nil, nil, err
		}
		return nil, nil, &RegistrationError{Contracts: names, Err: err}
	}
	return registration, instances, nil
}

// Unpublish withdraws the registration. It is idempotent: with no retained
// handle it is a no-op, and a registry reporting the handle already gone is
// treated as success, since the end state is what the caller wants.
func (e *Exporter) Unpublish() error {
	e.mu.Lock()
	if e.state != statePublished {
		e.mu.Unlock()
		return nil
	}
	e.state = stateUnpublishing
	registration := e.registration
	e.mu.Unlock()

	err := e.registry.Unregister(registration)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = stateUnpublished
	e.registration = nil
	e.instances = nil

	if err != nil {
		var gone *AlreadyUnregisteredError
		if errors.As(err, &gone) {
			log.WithFields(logrus.Fields{"registration": registration.ID()}).
				Info("service had already been unregistered")
			return nil
		}
		return err
	}
	return nil
}

// Registration returns the live handle, or nil while unpublished.
func (e *Exporter) Registration() *Registration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registration
}

// Published reports whether the exporter currently holds a registration.
func (e *Exporter) Published() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state == statePublished
}

// Updated pushes new properties into all live instances acquired through
// this publication, according to the configured update strategy.
func (e *Exporter) Updated(properties map[string]interface{}) {
	e.mu.Lock()
	instances := e.instances
	e.mu.Unlock()
	if instances != nil {
		instances.Updated(properties)
	}
}

// consumerScoped decides whether the factory needs scoped decoration. Only
// named targets can be scope-managed; when the container cannot report a
// scope at all, decoration is applied anyway so a scoped target is never
// left without its destruction callback.
func (e *Exporter) consumerScoped() bool {
	if e.cfg.TargetName == "" {
		return false
	}
	scope, ok := e.container.ScopeOf(e.cfg.TargetName)
	if !ok {
		return true
	}
	return scope == ScopeConsumer
}

func (e *Exporter) mergeProperties() map[string]interface{} {
	merged := map[string]interface{}{
		PropertyServiceName: e.targetName(),
		PropertyExporterID:  uuid.NewString(),
	}
	for k, v := range e.cfg.Properties {
		merged[k] = v
	}
	return merged
}

// targetName names the publication: the container name when there is one,
// otherwise a synthetic identity for the anonymous direct target.
func (e *Exporter) targetName() string {
	if e.cfg.TargetName != "" {
		return e.cfg.TargetName
	}
	v := reflect.ValueOf(e.cfg.Target)
	switch v.Kind() {
	case reflect.Ptr, reflect.Chan, reflect.Map, reflect.Func, reflect.Slice, reflect.UnsafePointer:
		return fmt.Sprintf("%s@%x", v.Type().String(), v.Pointer())
	}
	return fmt.Sprintf("%s@%s", reflect.TypeOf(e.cfg.Target).String(), uuid.NewString())
}

// dedupeContracts merges explicit and detected contracts, collapsing
// duplicates by identity while keeping first-seen order.
func dedupeContracts(explicit, detected []reflect.Type) []reflect.Type {
	seen := make(map[reflect.Type]bool, len(explicit)+len(detected))
	var out []reflect.Type
	for _, group := range [][]reflect.Type{explicit, detected} {
		for _, contract := range group {
			if contract == nil || seen[contract] {
				continue
			}
			seen[contract] = true
			out = append(out, contract)
		}
	}
	return out
}

// contractNames renders the registration name list, sorted lexicographically
// so registrations are reproducible in diagnostics.
func contractNames(contracts []reflect.Type) []string {
	names := make([]string, len(contracts))
	for i, contract := range contracts {
		names[i] = contract.String()
	}
	sort.Strings(names)
	return names
}
