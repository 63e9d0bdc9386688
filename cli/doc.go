// Package cli implements the strata command-line interface: flag and
// configuration handling, logging setup, optional profiling, and the
// collaborator namespaces the variable resolver exposes to documents.
package cli
