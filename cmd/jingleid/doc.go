// Package main hosts the jingleid CLI entrypoint and command graph.
//
// The Cobra-based command tree turns terminal invocations into reference
// fitting, batch opening prediction, checkpoint inspection, dependency checks
// and configuration scaffolding. It centralizes configuration resolution and
// logger construction so subcommands only translate flags into calls on the
// internal packages.
//
// Keep this package lean: new behaviour belongs in internal/opening or
// internal/refdb first and is surfaced here through a command or flag.
package main
