package injector

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownMode is returned by Render and ParseMode for unsupported modes.
var ErrUnknownMode = errors.New("unknown render mode")

// Mode selects what Render writes.
type Mode int

const (
	// Holo runs the lenticular interleaving over the quilt.
	Holo Mode = iota
	// Quilt passes the quilt through at the output's own coordinates.
	Quilt
)

func (m Mode) String() string {
	switch m {
	case Holo:
		return "holo"
	case Quilt:
		return "quilt"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode accepts "holo" or "quilt", case-insensitive.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "holo":
		return Holo, nil
	case "quilt":
		return Quilt, nil
	}
	return 0, fmt.Errorf("injector: %q: %w", s, ErrUnknownMode)
}
