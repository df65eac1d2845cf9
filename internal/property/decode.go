package property

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// rawValue is an undecoded JSON or YAML value.
type rawValue interface {
	absent() bool
	entries() (map[string]rawValue, error)
	decode(out any) error
}

type jsonValue json.RawMessage

func (v jsonValue) absent() bool {
	t := bytes.TrimSpace(v)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

func (v jsonValue) entries() (map[string]rawValue, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(v, &m); err != nil {
		return nil, err
	}
	out := make(map[string]rawValue, len(m))
	for k, e := range m {
		out[k] = jsonValue(e)
	}
	return out, nil
}

func (v jsonValue) decode(out any) error {
	return json.Unmarshal(v, out)
}

type yamlValue struct {
	node *yaml.Node
}

func (v yamlValue) absent() bool {
	return v.node == nil || v.node.Kind == 0 || v.node.ShortTag() == "!!null"
}

func (v yamlValue) entries() (map[string]rawValue, error) {
	var m map[string]yaml.Node
	if err := v.node.Decode(&m); err != nil {
		return nil, err
	}
	out := make(map[string]rawValue, len(m))
	for k := range m {
		n := m[k]
		out[k] = yamlValue{node: &n}
	}
	return out, nil
}

func (v yamlValue) decode(out any) error {
	return v.node.Decode(out)
}

// Parse decodes a configuration document. Only a syntax error or a
// non-object document fails; an entry or field of the wrong shape is left
// out and listed in Document.Skipped.
func Parse(data []byte, asYAML bool) (Document, error) {
	var root rawValue
	if asYAML {
		var node yaml.Node
		if err := yaml.Unmarshal(data, &node); err != nil {
			return Document{}, fmt.Errorf("parsing yaml: %w", err)
		}
		root = yamlValue{node: &node}
	} else {
		data = jsonc.ToJSON(data)
		if !json.Valid(data) {
			return Document{}, fmt.Errorf("parsing json: invalid syntax")
		}
		root = jsonValue(data)
	}

	if root.absent() {
		return Document{}, nil
	}
	sections, err := root.entries()
	if err != nil {
		return Document{}, fmt.Errorf("parsing document: %w", err)
	}

	var d docDecoder
	doc := Document{
		ByCode:       d.section("byCode", sections["byCode"]),
		ByPropertyID: d.section("byPropertyId", sections["byPropertyId"]),
	}
	doc.Defaults, _ = d.layer("defaults", sections["defaults"])
	sort.Strings(d.skipped)
	doc.Skipped = d.skipped
	return doc, nil
}

type docDecoder struct {
	skipped []string
}

func (d *docDecoder) skip(path string, err error) {
	d.skipped = append(d.skipped, fmt.Sprintf("%s: %v", path, err))
}

func (d *docDecoder) section(name string, v rawValue) map[string]PartialConfig {
	if v == nil || v.absent() {
		return nil
	}
	entries, err := v.entries()
	if err != nil {
		d.skip(name, err)
		return nil
	}

	out := make(map[string]PartialConfig, len(entries))
	for key, e := range entries {
		if e.absent() {
			out[key] = PartialConfig{}
			continue
		}
		if layer, ok := d.layer(name+"."+key, e); ok {
			out[key] = layer
		}
	}
	return out
}

// layer decodes one configuration layer field by field. Unknown keys are
// ignored. It reports false when v is not an object.
func (d *docDecoder) layer(path string, v rawValue) (PartialConfig, bool) {
	var layer PartialConfig
	if v == nil || v.absent() {
		return layer, true
	}
	fields, err := v.entries()
	if err != nil {
		d.skip(path, err)
		return layer, false
	}

	targets := map[string]any{
		"agentUrl":   &layer.AgentURL,
		"photos":     &layer.Photos,
		"mapAddress": &layer.MapAddress,
		"wifi":       &layer.WiFi,
		"propertyId": &layer.PropertyID,
	}
	for key, raw := range fields {
		target, ok := targets[key]
		if !ok {
			continue
		}
		if err := raw.decode(target); err != nil {
			d.skip(path+"."+key, err)
		}
	}
	return layer, true
}
