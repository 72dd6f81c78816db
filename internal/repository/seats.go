package repository

import (
	"encoding/json"
	"strings"
)

// Encoding selects how a seat collection is serialized into a TEXT column.
type Encoding int

const (
	// EncodingJSON writes a JSON array of strings. It is the canonical format.
	EncodingJSON Encoding = iota
	// EncodingCSV writes a comma-separated list. Older rows use it.
	EncodingCSV
)

// EncodeSeats serializes seats in the canonical JSON array format.
func EncodeSeats(seats []string) string {
	return EncodeSeatsAs(seats, EncodingJSON)
}

// EncodeSeatsAs serializes seats using enc.
func EncodeSeatsAs(seats []string, enc Encoding) string {
	if seats == nil {
		seats = []string{}
	}
	if enc == EncodingCSV {
		return strings.Join(seats, ",")
	}
	b, _ := json.Marshal(seats)
	return string(b)
}

// DecodeSeats parses a seat collection written in either encoding. Blank
// entries are dropped and duplicates keep their first position. Values are
// not interpreted otherwise. Malformed JSON falls back to the comma-separated
// reading after stripping brackets and quotes.
func DecodeSeats(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return []string{}
	}
	var items []string
	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			items = splitLegacy(strings.Trim(raw, "[]"))
		}
	} else {
		items = splitLegacy(raw)
	}
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" {
			continue
		}
		if _, dup := seen[it]; dup {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return out
}

// IsCanonical reports whether raw is already stored as a JSON array.
func IsCanonical(raw string) bool {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "[") {
		return false
	}
	var items []string
	return json.Unmarshal([]byte(raw), &items) == nil
}

func splitLegacy(raw string) []string {
	parts := strings.Split(raw, ",")
	for i, p := range parts {
		parts[i] = strings.Trim(strings.TrimSpace(p), `"'`)
	}
	return parts
}
