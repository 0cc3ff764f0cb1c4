// Package main hosts the voxclip CLI entrypoint and command graph.
//
// Each pipeline command (split, transcribe, save) runs in-process against
// the configured roots, catalog, and providers. serve exposes the same
// commands over HTTP. Configuration resolution, logger setup, and
// dependency wiring happen once per invocation in commandContext so
// subcommands only translate flags into pipeline requests and render
// the results.
package main
