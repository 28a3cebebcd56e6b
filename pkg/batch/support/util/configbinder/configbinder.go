// Package configbinder decodes loosely typed configuration maps (the `adapter.*` sections of
// application.yaml) into typed structs using their yaml tags.
package configbinder

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// Decode binds raw (usually a map[string]interface{} produced by yaml.v3) to target.
// Strings are converted to numbers, bools and time.Duration values ("30s") where needed.
func Decode(raw interface{}, target interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(raw); err != nil {
		return fmt.Errorf("failed to bind properties to %s: %w", targetName(target), err)
	}
	return nil
}

// BindProperties binds a flat property map to target. A nil or empty map leaves target untouched.
func BindProperties(properties map[string]interface{}, target interface{}) error {
	if len(properties) == 0 {
		return nil
	}
	return Decode(properties, target)
}

// Lookup returns adapters[section][name], the raw config of one named adapter connection.
func Lookup(adapters map[string]interface{}, section, name string) (interface{}, error) {
	rawSection, ok := adapters[section]
	if !ok {
		return nil, fmt.Errorf("no '%s' adapter configuration found", section)
	}
	named, ok := rawSection.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid '%s' adapter configuration format: expected map, got %T", section, rawSection)
	}
	raw, ok := named[name]
	if !ok {
		return nil, fmt.Errorf("%s configuration '%s' not found", section, name)
	}
	return raw, nil
}

// Names lists the connection names configured under adapters[section].
func Names(adapters map[string]interface{}, section string) []string {
	named, ok := adapters[section].(map[string]interface{})
	if !ok {
		return nil
	}
	names := make([]string, 0, len(named))
	for name := range named {
		names = append(names, name)
	}
	return names
}

func targetName(target interface{}) string {
	t := reflect.TypeOf(target)
	if t == nil {
		return "<nil>"
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Name() == "" {
		return t.String()
	}
	return t.Name()
}
