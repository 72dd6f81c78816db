package layout

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Venue returns the auditorium's fixed seating plan. Shows without a stored
// layout use it.
func Venue() Layout {
	front := Section{Name: "Front", Prefix: PrefixFront}
	for _, label := range "ABCDEFGHIJ" {
		front.Rows = append(front.Rows, Row{Label: string(label), From: 1, To: 18})
	}
	for _, label := range "KLM" {
		front.Rows = append(front.Rows, Row{Label: string(label), From: 1, To: 20})
	}

	rear := Section{Name: "Rear", Prefix: PrefixRear}
	for _, label := range "NOPQRST" {
		row := Row{Label: string(label), From: 1, To: 22}
		if label == 'Q' {
			// server room
			row.Gaps = []int{9, 10, 11, 12}
		}
		rear.Rows = append(rear.Rows, row)
	}

	balcony := Section{Name: "Balcony", Prefix: PrefixBalcony}
	for _, label := range "OPQ" {
		balcony.Rows = append(balcony.Rows, Row{Label: string(label), From: 1, To: 14})
	}

	plastic := Section{Name: "Plastic", Prefix: PrefixPlastic, Rows: []Row{
		{Label: "XA", Seats: []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}},
		{Label: "XB", Seats: []int{1, 2, 3, 4, 5, 6, 7, 8}},
	}}

	return Layout{Sections: []Section{front, rear, balcony, plastic}}
}

// Decode parses a stored layout. An empty value selects Venue().
func Decode(raw string) (Layout, error) {
	if strings.TrimSpace(raw) == "" {
		return Venue(), nil
	}
	var l Layout
	if err := json.Unmarshal([]byte(raw), &l); err != nil {
		return Layout{}, fmt.Errorf("decode layout: %w", err)
	}
	if err := l.Validate(); err != nil {
		return Layout{}, fmt.Errorf("decode layout: %w", err)
	}
	return l, nil
}

// Encode serializes a layout for storage.
func Encode(l Layout) (string, error) {
	b, err := json.Marshal(l)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
