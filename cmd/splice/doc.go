// Package main hosts the splice CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into HTTP
// calls against the spliced daemon: job submission, status inspection,
// cancellation, output download, and configuration scaffolding. It
// centralizes configuration resolution and server discovery so subcommands
// can focus on user experience instead of wiring.
package main
