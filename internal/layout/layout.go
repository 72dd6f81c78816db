// Package layout describes the auditorium seating plan and the pure functions
// used to validate seat identifiers against it.
//
// A seat identifier is {sectionPrefix}{row}{number}, e.g. FA3, RN12, BO5 or
// PXA7. The section prefixes are fixed for the venue and defined only here:
//
//	F – Front
//	R – Rear (also called Back)
//	B – Balcony
//	P – Plastic (removable chairs, two-letter row codes)
//
// Everything that needs to split a seat identifier must go through this
// package so that the prefix mapping cannot drift between code paths.
package layout

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Section prefixes used by the venue.
const (
	PrefixFront   = "F"
	PrefixRear    = "R"
	PrefixBalcony = "B"
	PrefixPlastic = "P"
)

// ErrInvalidSeat is returned by Parse when an identifier does not denote a
// seat of the layout.
var ErrInvalidSeat = errors.New("invalid seat")

// Row is a single row of a section. Valid seat numbers are either the
// explicit Seats list or the contiguous range From..To, minus Gaps.
type Row struct {
	Label string `json:"label"`
	From  int    `json:"from,omitempty"`
	To    int    `json:"to,omitempty"`
	Seats []int  `json:"seats,omitempty"`
	Gaps  []int  `json:"gaps,omitempty"`
}

// Section groups rows under a name and an identifier prefix.
type Section struct {
	Name   string `json:"name"`
	Prefix string `json:"prefix"`
	Rows   []Row  `json:"rows"`
}

// Layout is the ordered list of sections of a show's auditorium.
type Layout struct {
	Sections []Section `json:"sections"`
}

// Seat is a parsed seat identifier.
type Seat struct {
	Section string // section name
	Prefix  string
	Row     string // row label within the section
	Number  int
}

// ID returns the canonical identifier of the seat.
func (s Seat) ID() string {
	return s.Prefix + s.Row + strconv.Itoa(s.Number)
}

// RowCode returns prefix and row label, e.g. "FA".
func (s Seat) RowCode() string {
	return s.Prefix + s.Row
}

// Numbers returns the sorted valid seat numbers of the row.
func (r Row) Numbers() []int {
	gaps := make(map[int]struct{}, len(r.Gaps))
	for _, g := range r.Gaps {
		gaps[g] = struct{}{}
	}
	seen := make(map[int]struct{})
	out := make([]int, 0)
	add := func(n int) {
		if n <= 0 {
			return
		}
		if _, gap := gaps[n]; gap {
			return
		}
		if _, dup := seen[n]; dup {
			return
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	if len(r.Seats) > 0 {
		for _, n := range r.Seats {
			add(n)
		}
	} else {
		for n := r.From; n <= r.To; n++ {
			add(n)
		}
	}
	sort.Ints(out)
	return out
}

// Has reports whether n is a valid seat number of the row.
func (r Row) Has(n int) bool {
	if n <= 0 {
		return false
	}
	for _, g := range r.Gaps {
		if g == n {
			return false
		}
	}
	if len(r.Seats) > 0 {
		for _, s := range r.Seats {
			if s == n {
				return true
			}
		}
		return false
	}
	return n >= r.From && n <= r.To
}

// Normalize upper-cases and trims a seat identifier.
func Normalize(seatID string) string {
	return strings.ToUpper(strings.TrimSpace(seatID))
}

// RowOf returns the row code of a seat identifier: everything before the
// trailing seat number, section prefix included ("FA3" -> "FA",
// "PXA12" -> "PXA"). It does not consult a layout.
func RowOf(seatID string) string {
	id := Normalize(seatID)
	i := len(id)
	for i > 0 && id[i-1] >= '0' && id[i-1] <= '9' {
		i--
	}
	return id[:i]
}

// Parse splits seatID into section, row and number and checks it against
// the layout. Numbers with leading zeros are rejected so that each physical
// seat has exactly one identifier.
func Parse(l Layout, seatID string) (Seat, error) {
	id := Normalize(seatID)
	code := RowOf(id)
	digits := id[len(code):]
	if code == "" || digits == "" || digits[0] == '0' {
		return Seat{}, fmt.Errorf("%w: %q", ErrInvalidSeat, seatID)
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return Seat{}, fmt.Errorf("%w: %q", ErrInvalidSeat, seatID)
	}
	for _, sec := range l.Sections {
		if !strings.HasPrefix(code, sec.Prefix) {
			continue
		}
		label := code[len(sec.Prefix):]
		for _, row := range sec.Rows {
			if row.Label != label {
				continue
			}
			if !row.Has(n) {
				return Seat{}, fmt.Errorf("%w: %q", ErrInvalidSeat, seatID)
			}
			return Seat{Section: sec.Name, Prefix: sec.Prefix, Row: label, Number: n}, nil
		}
	}
	return Seat{}, fmt.Errorf("%w: %q", ErrInvalidSeat, seatID)
}

// IsValidSeat reports whether seatID denotes a seat of the layout.
func IsValidSeat(l Layout, seatID string) bool {
	_, err := Parse(l, seatID)
	return err == nil
}

// TotalSeats sums the valid seat counts of every row.
func TotalSeats(l Layout) int {
	total := 0
	for _, sec := range l.Sections {
		for _, row := range sec.Rows {
			total += len(row.Numbers())
		}
	}
	return total
}

// Validate checks that prefixes and row labels are letters only and that
// every row code (prefix + label) is unique, which keeps Parse unambiguous.
func (l Layout) Validate() error {
	if len(l.Sections) == 0 {
		return errors.New("layout has no sections")
	}
	codes := make(map[string]string)
	for _, sec := range l.Sections {
		if !letters(sec.Prefix) {
			return fmt.Errorf("section %q: prefix %q must be letters", sec.Name, sec.Prefix)
		}
		if len(sec.Rows) == 0 {
			return fmt.Errorf("section %q has no rows", sec.Name)
		}
		for _, row := range sec.Rows {
			if !letters(row.Label) {
				return fmt.Errorf("section %q: row label %q must be letters", sec.Name, row.Label)
			}
			code := sec.Prefix + row.Label
			if other, dup := codes[code]; dup {
				return fmt.Errorf("row code %q declared by both %q and %q", code, other, sec.Name)
			}
			codes[code] = sec.Name
			if len(row.Numbers()) == 0 {
				return fmt.Errorf("row %q has no seats", code)
			}
		}
	}
	return nil
}

func letters(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}
