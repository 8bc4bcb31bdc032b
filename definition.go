package export

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// ExportDefinition is the declarative form of an ExportConfig, loaded from
// YAML. Interface names are resolved against a ContractSpace, so only named
// targets can be described declaratively.
type ExportDefinition struct {
	Target             string                 `yaml:"target"`
	Interfaces         []string               `yaml:"interfaces"`
	AutoExport         string                 `yaml:"auto-export"`
	ActivationMethod   string                 `yaml:"activation-method"`
	DeactivationMethod string                 `yaml:"deactivation-method"`
	UpdateStrategy     string                 `yaml:"update-strategy"`
	UpdateMethod       string                 `yaml:"update-method"`
	Properties         map[string]interface{} `yaml:"properties"`
}

// LoadDefinitions decodes a stream of YAML documents, each holding a list of
// export definitions under the `exports` key.
func LoadDefinitions(r io.Reader) ([]ExportDefinition, error) {
	var doc struct {
		Exports []ExportDefinition `yaml:"exports"`
	}
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&doc); err != nil {
		return nil, &ConfigError{Reason: fmt.Sprintf("cannot decode export definitions: %v", err)}
	}
	return doc.Exports, nil
}

// Config resolves the definition into a publishable ExportConfig. Unknown
// interface names and unrecognized mode strings fail here, before any
// registry contact.
func (d ExportDefinition) Config(space *ContractSpace) (ExportConfig, error) {
	cfg := ExportConfig{
		TargetName:         d.Target,
		Space:              space,
		ActivationMethod:   d.ActivationMethod,
		DeactivationMethod: d.DeactivationMethod,
		UpdateStrategy:     UpdateStrategy(d.UpdateStrategy),
		UpdateMethod:       d.UpdateMethod,
		Properties:         d.Properties,
	}

	mode, err := ParseAutoExport(d.AutoExport)
	if err != nil {
		return ExportConfig{}, err
	}
	cfg.AutoExport = mode

	for _, name := range d.Interfaces {
		if space == nil {
			return ExportConfig{}, &ConfigError{Reason: "interface names require a contract space"}
		}
		contract, ok := space.Lookup(name)
		if !ok {
			return ExportConfig{}, &ConfigError{Reason: fmt.Sprintf("unknown interface %q", name)}
		}
		cfg.Contracts = append(cfg.Contracts, contract)
	}

	return cfg, nil
}
