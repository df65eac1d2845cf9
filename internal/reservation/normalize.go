// Package reservation turns stored booking-platform payloads into the
// guest-facing reservation view and enriches it from property configuration.
package reservation

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/str-access/backend/internal/property"
)

// Step is one unlock instruction shown to the guest.
type Step struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ActionLabel string `json:"actionLabel"`
	PhotoURL    string `json:"photoUrl,omitempty"`
}

// Reservation is the normalized, guest-facing view of a stored record.
// It is derived on every read and never persisted.
type Reservation struct {
	ReservationID string         `json:"reservationId"`
	Code          string         `json:"code"`
	Address       string         `json:"address"`
	CheckInISO    string         `json:"checkInISO"`
	CheckOutISO   string         `json:"checkOutISO"`
	Steps         []Step         `json:"steps"`
	PropertyID    string         `json:"propertyId"`
	Photos        []string       `json:"photos"`
	MapAddress    string         `json:"mapAddress"`
	WiFi          *property.WiFi `json:"wifi"`
}

// Decode parses a raw payload into generic JSON values, keeping numbers exact.
// Invalid or empty input decodes to nil.
func Decode(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	return v
}

// DataOf picks the reservation object out of a payload. Platforms deliver it
// as payload.data, as payload.body.data, or as the payload itself; the first
// of those that is an object wins.
func DataOf(payload any) map[string]any {
	root, ok := payload.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	if data, ok := root["data"].(map[string]any); ok {
		return data
	}
	if body, ok := root["body"].(map[string]any); ok {
		if data, ok := body["data"].(map[string]any); ok {
			return data
		}
	}
	return root
}

// Normalize builds the reservation view from a stored payload. fallbackID and
// fallbackCode come from the record itself and are used when the payload
// carries neither. Absent strings become "", absent lists become empty.
func Normalize(raw json.RawMessage, fallbackID, fallbackCode string) Reservation {
	data := DataOf(Decode(raw))

	return Reservation{
		ReservationID: FirstString(data["reservationId"], data["id"], fallbackID),
		Code:          FirstString(data["code"], data["platform_id"], fallbackCode),
		Address:       FirstString(data["address"]),
		CheckInISO:    FirstString(data["checkInISO"]),
		CheckOutISO:   FirstString(data["checkOutISO"]),
		Steps:         stepsOf(data["steps"]),
		PropertyID:    FirstString(data["propertyId"]),
		Photos:        stringsOf(data["photos"]),
		MapAddress:    FirstString(data["mapAddress"], data["address"]),
		WiFi:          wifiOf(data["wifi"]),
	}
}

// FirstString returns the first candidate that is a non-empty string, a
// non-zero number or true, rendered as a string. It returns "" otherwise.
func FirstString(candidates ...any) string {
	for _, c := range candidates {
		if s, ok := scalarString(c); ok {
			return s
		}
	}
	return ""
}

func scalarString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, x != ""
	case json.Number:
		f, err := x.Float64()
		if err != nil || f == 0 {
			return "", false
		}
		return x.String(), true
	case float64:
		if x == 0 {
			return "", false
		}
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case int:
		if x == 0 {
			return "", false
		}
		return strconv.Itoa(x), true
	case bool:
		return "true", x
	}
	return "", false
}

func stepsOf(v any) []Step {
	items, _ := v.([]any)
	steps := make([]Step, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		steps = append(steps, Step{
			ID:          FirstString(m["id"]),
			Title:       FirstString(m["title"]),
			Description: FirstString(m["description"]),
			ActionLabel: FirstString(m["actionLabel"]),
			PhotoURL:    FirstString(m["photoUrl"]),
		})
	}
	return steps
}

func stringsOf(v any) []string {
	items, _ := v.([]any)
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func wifiOf(v any) *property.WiFi {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return &property.WiFi{
		SSID:     FirstString(m["ssid"]),
		Password: FirstString(m["password"]),
		Notes:    FirstString(m["notes"]),
	}
}
