// Package workspace owns the scratch workspace: a single fixed directory,
// rebuilt from scratch at the start of every run and removed when the run ends.
// One process owns it at a time; nothing else writes to it.
package workspace
