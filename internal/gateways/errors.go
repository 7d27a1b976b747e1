package gateway

import (
	"errors"
	"fmt"
)

var (
	ErrConfiguration = errors.New("payment gateway is not configured")
	ErrGateway       = errors.New("payment gateway error")
)

// GatewayError is an upstream rejection. StatusCode is the HTTP status the
// gateway answered with, or 0 when the body itself was unusable.
type GatewayError struct {
	StatusCode int
	Message    string
}

func (e *GatewayError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("payment gateway: %s", e.Message)
	}
	return fmt.Sprintf("payment gateway returned %d: %s", e.StatusCode, e.Message)
}

func (e *GatewayError) Unwrap() error { return ErrGateway }
