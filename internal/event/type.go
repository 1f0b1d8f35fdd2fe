// Package event detects life events (weddings, birthdays, funerals,
// reunions) in chat messages.
package event

import (
	"fmt"
	"strings"
)

// Type is the closed set of life events a message can announce.
type Type int

const (
	None Type = iota
	Wedding
	Birthday
	Funeral
	Reunion
)

// Types lists every event type in priority order, None last.
var Types = []Type{Wedding, Birthday, Funeral, Reunion, None}

func (t Type) String() string {
	switch t {
	case Wedding:
		return "WEDDING"
	case Birthday:
		return "BIRTHDAY"
	case Funeral:
		return "FUNERAL"
	case Reunion:
		return "REUNION"
	case None:
		return "NONE"
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Detected reports whether t names an actual event.
func (t Type) Detected() bool { return t != None }

// ParseType is the inverse of String. The empty string parses as None.
func ParseType(s string) (Type, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "NONE":
		return None, nil
	case "WEDDING":
		return Wedding, nil
	case "BIRTHDAY":
		return Birthday, nil
	case "FUNERAL":
		return Funeral, nil
	case "REUNION":
		return Reunion, nil
	}
	return None, fmt.Errorf("unknown event type %q", s)
}

// Label is the short Korean name used in notification titles.
func (t Type) Label() string {
	switch t {
	case Wedding:
		return "결혼"
	case Birthday:
		return "생일"
	case Funeral:
		return "부고"
	case Reunion:
		return "모임"
	}
	return ""
}
