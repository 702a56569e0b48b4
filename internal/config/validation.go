package config

import (
	"path/filepath"
	"strings"

	derrors "git.home.luguber.info/inful/demostage/internal/errors"
)

// Validate checks the resolved configuration before any side effect happens.
// Paths must already be absolute (see Resolve).
func (c *Config) Validate() error {
	if _, err := ParseMode(string(c.Mode)); err != nil {
		return derrors.ConfigInvalid("mode", err.Error())
	}
	if c.ReservedEntry == "" {
		return derrors.ConfigInvalid("reserved_entry", "must not be empty")
	}
	if strings.ContainsAny(c.ReservedEntry, `/\`) {
		return derrors.ConfigInvalid("reserved_entry", "must be a plain file name")
	}
	if c.Serve.Port < 0 || c.Serve.Port > 65535 {
		return derrors.ConfigInvalid("serve.port", "must be between 0 and 65535")
	}
	// The scratch workspace and demo output dirs are removed wholesale, so
	// neither may overlap the demo sources in either direction.
	if overlaps(c.ScratchDir, c.RootDir) {
		return derrors.ConfigInvalid("scratch", "scratch workspace must not be, contain or lie inside the demo root")
	}
	if c.Mode == ModeBuild {
		if overlaps(c.Build.OutDir, c.RootDir) {
			return derrors.ConfigInvalid("build.out_dir", "output must not be, contain or lie inside the demo root")
		}
		if within(c.Build.OutDir, c.ScratchDir) {
			return derrors.ConfigInvalid("build.out_dir", "output must not live inside the scratch workspace")
		}
	}
	for _, name := range c.DemoFilter {
		if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
			return derrors.ConfigInvalid("demos", "invalid demo name "+name)
		}
	}
	return nil
}

// overlaps reports whether a and b are the same directory or one contains the other.
func overlaps(a, b string) bool {
	return within(a, b) || within(b, a)
}

// within reports whether path equals base or lies beneath it.
func within(path, base string) bool {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
