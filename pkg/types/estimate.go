package types

import (
	"encoding/json"

	"github.com/skedyul/toolserver/pkg/tool"
)

// EstimateRequest is the body accepted by the /estimate surface.
type EstimateRequest struct {
	Name   string          `json:"name"`
	Inputs json.RawMessage `json:"inputs,omitempty"`
}

// EstimateResponse is the body returned by the /estimate surface on success.
type EstimateResponse struct {
	Output  any          `json:"output"`
	Billing tool.Billing `json:"billing"`
}

// ErrorResponse is returned by the /estimate surface when the estimate could not be computed.
type ErrorResponse struct {
	Error *Error `json:"error"`
}
