package types

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ServerMetadata identifies the deployed server.
type ServerMetadata struct {
	Name    string `yaml:"name" json:"name"`
	Version string `yaml:"version" json:"version"`
}

func (m ServerMetadata) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Name, validation.Required),
		validation.Field(&m.Version, validation.Required),
	)
}

// ServerConfig decides how a tool server is deployed.
type ServerConfig struct {
	// ComputeLayer selects the runtime adapter: "dedicated" or "serverless".
	ComputeLayer Runtime `yaml:"computeLayer" json:"computeLayer"`

	Metadata ServerMetadata `yaml:"metadata" json:"metadata"`
}

func (c ServerConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(
			&c.ComputeLayer,
			validation.Required,
			validation.In(RuntimeDedicated, RuntimeServerless).
				Error(fmt.Sprintf("must be either '%s' or '%s'", RuntimeDedicated, RuntimeServerless)),
		),
		validation.Field(&c.Metadata),
	)
}
