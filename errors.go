package export

import "fmt"

// ConfigError represents an invalid or contradictory export configuration.
// It always surfaces before any registry interaction.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid export configuration: %s", e.Reason)
}

// ResolutionError represents a failure to resolve a named target at
// acquire-time.
type ResolutionError struct {
	Name string
	Err  error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolution failed for target %q: %v", e.Name, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// RegistrationError represents a registry rejecting a registration attempt.
type RegistrationError struct {
	Contracts []string
	Err       error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("registration rejected for contracts %v: %v", e.Contracts, e.Err)
}

func (e *RegistrationError) Unwrap() error {
	return e.Err
}

// AlreadyPublishedError represents a Publish call on an exporter that still
// holds a live registration.
type AlreadyPublishedError struct {
	Contracts []string
}

func (e *AlreadyPublishedError) Error() string {
	return fmt.Sprintf("exporter already holds a registration for contracts %v", e.Contracts)
}

// AlreadyUnregisteredError represents the benign teardown race where a
// registration is already gone, typically because the owning registry shut
// down first. Callers treat it as success.
type AlreadyUnregisteredError struct {
	ID string
}

func (e *AlreadyUnregisteredError) Error() string {
	return fmt.Sprintf("registration %s has already been unregistered", e.ID)
}

// HookError represents an activation or deactivation hook failure. It is
// never returned past an Acquire or Release boundary; it only exists as a
// structured diagnostic payload.
type HookError struct {
	Phase string
	Hook  string
	Type  string
	Err   error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("%s hook %q failed on type %s: %v", e.Phase, e.Hook, e.Type, e.Err)
}

func (e *HookError) Unwrap() error {
	return e.Err
}
