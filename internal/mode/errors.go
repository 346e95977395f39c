package mode

import "fmt"

// Stable configuration error codes reported to callers.
const (
	CodeUnknownMode       = "unknown_mode"
	CodeModeCycle         = "mode_cycle"
	CodeInvalidMode       = "invalid_mode"
	CodeUnsupportedFormat = "unsupported_format"
)

// ConfigError is a fatal configuration problem: a bad mode reference, a
// cyclic base chain, or an unsupported format/mode combination. Content
// problems never produce a ConfigError.
type ConfigError struct {
	Code   string
	Detail string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}
