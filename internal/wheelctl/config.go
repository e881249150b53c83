// Package wheelctl implements the operator CLI that drives the wheel's HTTP
// API: status, roster, spin, confirm and the session transitions.
package wheelctl

import (
	"io"
	"time"
)

// Defaults for the command line.
const (
	DefaultBaseURL = "http://localhost:9080"
	DefaultTimeout = 10 * time.Second
)

// Config holds configuration for a wheelctl invocation.
type Config struct {
	BaseURL string        // Base URL of the service
	Timeout time.Duration // HTTP request timeout
	JSON    bool          // Print raw JSON instead of tables
	Out     io.Writer     // Destination for command output
}
