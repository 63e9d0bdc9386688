// Package cmd implements the strata subcommands: init, fmt, check, and
// compose.
package cmd
