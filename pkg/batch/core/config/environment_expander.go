package config

import (
	"os"
)

// EnvironmentExpander replaces ${VAR} placeholders in raw configuration before it is parsed.
// The bot token reaches the config this way (bot_token: ${TELEGRAM_BOT_TOKEN}).
type EnvironmentExpander interface {
	Expand(input []byte) ([]byte, error)
}

// OsEnvironmentExpander expands placeholders from the process environment.
// Unset variables expand to an empty string, which leaves optional features (notifications) disabled.
type OsEnvironmentExpander struct{}

// NewOsEnvironmentExpander creates and returns a new instance of OsEnvironmentExpander.
func NewOsEnvironmentExpander() *OsEnvironmentExpander {
	return &OsEnvironmentExpander{}
}

// Expand never fails.
func (e *OsEnvironmentExpander) Expand(input []byte) ([]byte, error) {
	return []byte(os.ExpandEnv(string(input))), nil
}

// MapEnvironmentExpander expands placeholders from a fixed map. Tests use it to avoid touching the process environment.
type MapEnvironmentExpander map[string]string

// Expand replaces ${KEY} with the mapped value, or an empty string.
func (m MapEnvironmentExpander) Expand(input []byte) ([]byte, error) {
	return []byte(os.Expand(string(input), func(key string) string { return m[key] })), nil
}
