package config

import (
	"fmt"
	"strings"
)

// Mode selects between one-shot production bundling and the dev server.
type Mode string

const (
	ModeServe Mode = "serve"
	ModeBuild Mode = "build"
)

// ParseMode normalizes a raw mode string. Empty input means serve.
func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ModeServe:
		return ModeServe, nil
	case ModeBuild:
		return ModeBuild, nil
	default:
		return "", fmt.Errorf("unknown mode %q (expected serve or build)", raw)
	}
}

func (m Mode) String() string { return string(m) }
