package export

import (
	"fmt"
	"reflect"
	"strings"
)

// UpdateStrategy controls how live instances receive property updates after
// publication.
type UpdateStrategy string

// Available update strategies.
const (
	// UpdateNone disables instance tracking and updates.
	UpdateNone UpdateStrategy = ""
	// UpdateContainerManaged assigns matching exported fields on each
	// tracked instance.
	UpdateContainerManaged UpdateStrategy = "container-managed"
	// UpdateBeanManaged invokes a named method on each tracked instance,
	// passing the new properties. Requires UpdateMethod.
	UpdateBeanManaged UpdateStrategy = "bean-managed"
)

// ExportConfig describes one publication. It is validated once at publish
// time and treated as immutable afterwards. Exactly one of Target and
// TargetName must be set.
type ExportConfig struct {
	// Target is a direct object reference, for nested or non-managed
	// objects.
	Target interface{}

	// TargetName selects a container-managed lookup, resolved on every
	// acquisition so prototype targets stay transparent.
	TargetName string

	// Contracts lists explicit capability contracts, honored regardless of
	// the auto-export mode.
	Contracts []reflect.Type

	// AutoExport controls contract detection from the target's runtime
	// type.
	AutoExport AutoExport

	// Space is the contract universe used for interface detection. May be
	// nil when detection is disabled or hierarchy-only.
	Space *ContractSpace

	// ActivationMethod and DeactivationMethod name optional zero-argument
	// hooks resolved against the runtime type of the acquired instance.
	ActivationMethod   string
	DeactivationMethod string

	// Properties is explicit service metadata, merged over resolver
	// defaults; explicit values win on conflict.
	Properties map[string]interface{}

	// UpdateStrategy and UpdateMethod configure post-publication property
	// updates for acquired instances.
	UpdateStrategy UpdateStrategy
	UpdateMethod   string
}

func (c *ExportConfig) validate() error {
	hasTarget := c.Target != nil
	hasName := strings.TrimSpace(c.TargetName) != ""

	if hasTarget == hasName {
		return &ConfigError{Reason: "exactly one of Target and TargetName must be set"}
	}
	if c.UpdateStrategy == UpdateBeanManaged && strings.TrimSpace(c.UpdateMethod) == "" {
		return &ConfigError{Reason: "UpdateMethod is required for the bean-managed update strategy"}
	}
	switch c.UpdateStrategy {
	case UpdateNone, UpdateContainerManaged, UpdateBeanManaged:
	default:
		return &ConfigError{Reason: fmt.Sprintf("unknown update strategy %q", c.UpdateStrategy)}
	}
	for _, contract := range c.Contracts {
		if contract == nil {
			return &ConfigError{Reason: "explicit contract list contains a nil type"}
		}
	}
	return nil
}

// ParseAutoExport converts a textual auto-export mode into its bitmask form.
// Recognized values are disabled, interfaces, hierarchy and all.
func ParseAutoExport(s string) (AutoExport, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "disabled":
		return AutoExportDisabled, nil
	case "interfaces":
		return AutoExportInterfaces, nil
	case "hierarchy":
		return AutoExportHierarchy, nil
	case "all":
		return AutoExportAll, nil
	}
	return AutoExportDisabled, &ConfigError{Reason: fmt.Sprintf("unknown auto-export mode %q", s)}
}
