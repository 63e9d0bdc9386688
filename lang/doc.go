// Package lang implements the strata configuration language: a
// line-oriented document syntax with typed scalar annotations, ordered
// blocks, lists, tables, and verbatim multiline capture.
//
// The package covers the full document lifecycle. ParseString and
// ParseReader produce an ordered Document from source text. A Composer
// flattens base, include, overlay, patch, and merge directives across
// documents supplied by a Loader. A Resolver substitutes
// $namespace.path references in scalar values to a fixed point. The
// result projects to a deterministic generic tree for JSON or YAML
// output, or formats back to native syntax.
package lang
