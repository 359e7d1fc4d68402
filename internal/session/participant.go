// Package session provides the authoritative participant registry and the
// proximity computation for the shared room.
package session

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// Room is the fixed-size 2D coordinate space shared by all participants.
// Coordinates are valid in [0, Width] x [0, Height] inclusive.
type Room struct {
	Width  int
	Height int
}

// Clamp returns the nearest point to (x, y) inside the room bounds.
func (r Room) Clamp(x, y int) (int, int) {
	if x < 0 {
		x = 0
	}
	if x > r.Width {
		x = r.Width
	}
	if y < 0 {
		y = 0
	}
	if y > r.Height {
		y = r.Height
	}
	return x, y
}

// Participant is one connected actor's identity, position, and display
// attributes. ID and Color are immutable for the connection's lifetime.
type Participant struct {
	// ID is the opaque unique identifier assigned at registration.
	ID string `json:"id"`
	// Name is the display name, clamped to the configured maximum length.
	Name string `json:"name"`
	// X and Y are the current position inside the room bounds.
	X int `json:"x"`
	Y int `json:"y"`
	// Color is the visual identifier assigned once at registration.
	Color string `json:"color"`
}

// palette is the set of colors assigned round-robin-by-chance at registration.
var palette = []string{
	"#e6194b", "#3cb44b", "#ffe119", "#4363d8", "#f58231",
	"#911eb4", "#46f0f0", "#f032e6", "#bcf60c", "#fabebe",
	"#008080", "#e6beff", "#9a6324", "#800000", "#aaffc3",
}

func randomColor() string {
	return palette[rand.IntN(len(palette))]
}

func guestName() string {
	return fmt.Sprintf("guest-%04d", rand.IntN(10000))
}

// clampName trims surrounding whitespace and truncates to max runes.
func clampName(name string, max int) string {
	name = strings.TrimSpace(name)
	runes := []rune(name)
	if len(runes) > max {
		return string(runes[:max])
	}
	return name
}
