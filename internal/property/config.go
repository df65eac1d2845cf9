// Package property resolves the effective per-property configuration (agent
// URL, photos, Wi-Fi, map address) for an access code by layering defaults,
// property-level and code-level entries.
package property

import (
	"bytes"
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// WiFi holds the guest network credentials.
type WiFi struct {
	SSID     string `json:"ssid" yaml:"ssid"`
	Password string `json:"password" yaml:"password"`
	Notes    string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// Field is a configuration value that remembers whether its layer set it.
// A key present in JSON sets the field even when its value is null.
type Field[T any] struct {
	Value T
	Set   bool
}

// Of returns a set field holding v.
func Of[T any](v T) Field[T] {
	return Field[T]{Value: v, Set: true}
}

// UnmarshalJSON marks the field as set; null leaves Value at its zero value.
// A number or boolean is accepted for a string field as its literal text.
// On error the field is left unchanged.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	var v T
	trimmed := bytes.TrimSpace(data)
	if !bytes.Equal(trimmed, []byte("null")) {
		if err := json.Unmarshal(trimmed, &v); err != nil {
			if !isJSONScalar(trimmed) || !coerceScalar(&v, string(trimmed)) {
				return err
			}
		}
	}
	f.Value, f.Set = v, true
	return nil
}

// MarshalJSON writes the value, or null when unset.
func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.Set {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// UnmarshalYAML marks the field as set. YAML null keys are not delivered here
// and therefore behave as absent. Any scalar is accepted for a string field.
func (f *Field[T]) UnmarshalYAML(node *yaml.Node) error {
	var v T
	if err := node.Decode(&v); err != nil {
		if node.Kind != yaml.ScalarNode || !coerceScalar(&v, node.Value) {
			return err
		}
	}
	f.Value, f.Set = v, true
	return nil
}

// coerceScalar stores text into v when v points at a string or *string.
func coerceScalar(v any, text string) bool {
	switch p := v.(type) {
	case *string:
		*p = text
	case **string:
		*p = &text
	default:
		return false
	}
	return true
}

// isJSONScalar reports whether data is a JSON number or boolean.
func isJSONScalar(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	switch data[0] {
	case '{', '[', '"', 'n':
		return false
	}
	return true
}

// IsZero lets encoders omit unset fields.
func (f Field[T]) IsZero() bool {
	return !f.Set
}

// PartialConfig is one configuration layer. Every field is independently optional.
type PartialConfig struct {
	AgentURL   Field[*string]  `json:"agentUrl" yaml:"agentUrl,omitempty"`
	Photos     Field[[]string] `json:"photos" yaml:"photos,omitempty"`
	MapAddress Field[string]   `json:"mapAddress" yaml:"mapAddress,omitempty"`
	WiFi       Field[*WiFi]    `json:"wifi" yaml:"wifi,omitempty"`
	PropertyID Field[string]   `json:"propertyId" yaml:"propertyId,omitempty"`
}

// Overlay returns c with every field set in layer replaced by the layer's
// value. Slices and structs are replaced wholesale.
func (c PartialConfig) Overlay(layer PartialConfig) PartialConfig {
	if layer.AgentURL.Set {
		c.AgentURL = layer.AgentURL
	}
	if layer.Photos.Set {
		c.Photos = layer.Photos
	}
	if layer.MapAddress.Set {
		c.MapAddress = layer.MapAddress
	}
	if layer.WiFi.Set {
		c.WiFi = layer.WiFi
	}
	if layer.PropertyID.Set {
		c.PropertyID = layer.PropertyID
	}
	return c
}

// Document is the persisted configuration store.
type Document struct {
	Defaults     PartialConfig            `json:"defaults" yaml:"defaults"`
	ByCode       map[string]PartialConfig `json:"byCode" yaml:"byCode"`
	ByPropertyID map[string]PartialConfig `json:"byPropertyId" yaml:"byPropertyId"`

	// Skipped lists the entries Parse dropped because their value had the
	// wrong shape, with the reason.
	Skipped []string `json:"-" yaml:"-"`
}

// Config is the effective configuration after layering.
type Config struct {
	AgentURL   *string  `json:"agentUrl"`
	Photos     []string `json:"photos"`
	MapAddress string   `json:"mapAddress"`
	WiFi       *WiFi    `json:"wifi"`
	PropertyID string   `json:"propertyId,omitempty"`
}

// Defaults is the configuration used when no layer sets a field.
func Defaults() Config {
	return Config{
		AgentURL:   nil,
		Photos:     []string{},
		MapAddress: "",
		WiFi:       nil,
	}
}

// materialize fills unset or empty fields with the documented defaults.
func (c PartialConfig) materialize() Config {
	out := Defaults()
	if c.AgentURL.Set && c.AgentURL.Value != nil && *c.AgentURL.Value != "" {
		url := *c.AgentURL.Value
		out.AgentURL = &url
	}
	if c.Photos.Set && c.Photos.Value != nil {
		out.Photos = append([]string{}, c.Photos.Value...)
	}
	if c.MapAddress.Set {
		out.MapAddress = c.MapAddress.Value
	}
	if c.WiFi.Set && c.WiFi.Value != nil {
		w := *c.WiFi.Value
		out.WiFi = &w
	}
	if c.PropertyID.Set {
		out.PropertyID = c.PropertyID.Value
	}
	return out
}
