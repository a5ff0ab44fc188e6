package types

import "fmt"

// Runtime is the deployment shape a server runs in.
type Runtime string

const (
	// RuntimeDedicated is a long-running process listening on a port.
	RuntimeDedicated Runtime = "dedicated"
	// RuntimeServerless is a stateless request/response function.
	RuntimeServerless Runtime = "serverless"
)

// ValidateRuntime returns the Runtime matching the input string.
func ValidateRuntime(input string) (Runtime, error) {
	switch input {
	case string(RuntimeDedicated):
		return RuntimeDedicated, nil
	case string(RuntimeServerless):
		return RuntimeServerless, nil
	default:
		return "", fmt.Errorf(
			"unsupported compute layer: %s (acceptable values: '%s', '%s')",
			input, RuntimeDedicated, RuntimeServerless,
		)
	}
}

// HealthSnapshot is the body of the /health surface.
type HealthSnapshot struct {
	Status   string   `json:"status"`
	Runtime  Runtime  `json:"runtime"`
	Tools    []string `json:"tools"`
	Requests int64    `json:"requests"`
}
