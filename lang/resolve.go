package lang

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/strataconf/strata/log"
)

// resolveCeiling bounds total resolver work. A document that has not
// converged after this many passes contains a reference cycle.
const resolveCeiling = 100

// varsKey is the top-level block whose entries back the vars namespace.
const varsKey = "vars"

// NamespaceFunc answers a reference in a namespace other than vars. The
// first path segment names the function, the remaining segments are its
// parameters.
type NamespaceFunc func(namespace, function string, params []string) (string, error)

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithNamespace registers a collaborator for one namespace. References in
// namespaces without a collaborator pass through verbatim.
func WithNamespace(name string, fn NamespaceFunc) ResolverOption {
	return func(r *Resolver) {
		r.namespaces[name] = fn
	}
}

// WithResolveLogger sets the structured logger for resolution tracing.
func WithResolveLogger(logger log.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// Resolver substitutes $namespace.path references in scalar values.
// References in the vars namespace resolve against the document's own
// top-level vars block; other namespaces are delegated to registered
// collaborators.
type Resolver struct {
	namespaces map[string]NamespaceFunc
	logger     log.Logger
	cache      map[string]string // namespace call results, keyed by token
}

// NewResolver returns a Resolver with the given collaborators.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		namespaces: make(map[string]NamespaceFunc),
		cache:      make(map[string]string),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve rewrites every scalar in doc until a full pass makes no further
// substitution. Each pass substitutes against a snapshot of the vars
// block taken at pass start, so the result does not depend on document
// order. Failure to converge within the iteration ceiling is a
// circular-reference error naming one of the remaining references.
func (r *Resolver) Resolve(ctx context.Context, doc *Document) error {
	for pass := 1; ; pass++ {
		if pass > resolveCeiling {
			ref, key := findReference(doc)

			return ErrCircularReference.
				Withf("no convergence after %d passes; %s remains unresolved", resolveCeiling, ref).
				WithKey(key)
		}

		n, err := r.pass(doc, flattenVars(doc))
		if err != nil {
			return err
		}

		r.logger.TraceContext(ctx, "resolve pass",
			slog.Int("pass", pass),
			slog.Int("substitutions", n))

		if n == 0 {
			break
		}
	}

	if ref, key := findReference(doc); ref != "" {
		return ErrUnresolvedReference.
			Withf("%s does not name a vars entry", ref).
			WithKey(key)
	}

	return nil
}

// pass performs one substitution sweep over every scalar in the document.
func (r *Resolver) pass(doc *Document, vars map[string]string) (int, error) {
	count := 0

	err := visitScalars(doc, func(s *string, key string) error {
		out, n, err := r.rewrite(*s, vars)
		if err != nil {
			return WrapError(err).WithKey(key)
		}

		*s = out
		count += n

		return nil
	})

	return count, err
}

// rewrite substitutes every reference token in s, returning the new
// string and the number of substitutions made.
func (r *Resolver) rewrite(s string, vars map[string]string) (string, int, error) {
	if !strings.ContainsRune(s, '$') {
		return s, 0, nil
	}

	var b strings.Builder

	count := 0

	for i := 0; i < len(s); {
		if s[i] != '$' {
			b.WriteByte(s[i])
			i++

			continue
		}

		segs, width := scanReference(s[i:])
		if width == 0 {
			b.WriteByte(s[i])
			i++

			continue
		}

		token := s[i : i+width]
		i += width

		replacement, substituted, err := r.lookup(token, segs, vars)
		if err != nil {
			return "", 0, err
		}

		b.WriteString(replacement)

		if substituted {
			count++
		}
	}

	return b.String(), count, nil
}

// lookup resolves one reference token. An unknown vars path or a
// namespace without a collaborator passes the token through unchanged;
// leftover vars references are diagnosed after convergence.
func (r *Resolver) lookup(token string, segs []string, vars map[string]string) (string, bool, error) {
	ns := segs[0]

	if ns == varsKey {
		if val, ok := vars[strings.Join(segs[1:], ".")]; ok {
			return val, true, nil
		}

		return token, false, nil
	}

	fn, ok := r.namespaces[ns]
	if !ok {
		return token, false, nil
	}

	if val, ok := r.cache[token]; ok {
		return val, true, nil
	}

	val, err := fn(ns, segs[1], segs[2:])
	if err != nil {
		return "", false, ErrNamespace.Wrap(err).
			Withf("namespace %q function %q", ns, segs[1])
	}

	r.cache[token] = val

	return val, true, nil
}

// scanReference parses a reference token at the start of s, which must
// begin with '$'. A token is a namespace and at least one path segment,
// each a run of word characters, joined by dots. A dot is part of the
// token only when a segment follows it. Returns the segments and the
// token's byte width, or width zero when s does not start a reference.
func scanReference(s string) ([]string, int) {
	i := 1 // past '$'

	var segs []string

	for {
		start := i
		for i < len(s) && isWordChar(s[i]) {
			i++
		}

		if i == start {
			return nil, 0
		}

		segs = append(segs, s[start:i])

		if i+1 < len(s) && s[i] == '.' && isWordChar(s[i+1]) {
			i++

			continue
		}

		break
	}

	if len(segs) < 2 {
		return nil, 0
	}

	return segs, i
}

func isWordChar(c byte) bool {
	return c == '_' ||
		('a' <= c && c <= 'z') ||
		('A' <= c && c <= 'Z') ||
		('0' <= c && c <= '9')
}

// Vars returns a snapshot of the document's top-level vars block as a
// dotted path to scalar value map, the same view the vars namespace
// resolves against.
func Vars(doc *Document) map[string]string {
	return flattenVars(doc)
}

// flattenVars snapshots the document's top-level vars block as a dotted
// path to scalar value map. Nested blocks contribute nested paths; list
// and table entries have no scalar identity and are not addressable.
func flattenVars(doc *Document) map[string]string {
	out := make(map[string]string)

	e, ok := doc.Get(varsKey)
	if !ok || e.Value.Kind != KindBlock {
		return out
	}

	flattenBlock(e.Value.Block, "", out)

	return out
}

func flattenBlock(b *Block, prefix string, out map[string]string) {
	for e := range b.Declared() {
		path := prefix + e.Key

		switch e.Value.Kind {
		case KindScalar:
			out[path] = e.Value.Scalar
		case KindMultiline:
			out[path] = e.Value.Multiline.Content
		case KindBlock:
			flattenBlock(e.Value.Block, path+".", out)
		}
	}
}

// findReference returns the first remaining vars reference in the
// document and the key of the scalar holding it, or empty strings when
// none remain.
func findReference(doc *Document) (ref, key string) {
	_ = visitScalars(doc, func(s *string, k string) error {
		if ref != "" {
			return nil
		}

		rest := *s
		for {
			j := strings.IndexByte(rest, '$')
			if j < 0 {
				return nil
			}

			if segs, width := scanReference(rest[j:]); width > 0 && segs[0] == varsKey {
				ref = rest[j : j+width]
				key = k

				return nil
			}

			rest = rest[j+1:]
		}
	})

	return ref, key
}

// visitScalars walks every mutable scalar string in the document: entry
// scalars, multiline content, list items, and table cells.
func visitScalars(doc *Document, fn func(s *string, key string) error) error {
	for _, e := range doc.Entries {
		if err := visitValue(e.Value, e.Key, fn); err != nil {
			return err
		}
	}

	return nil
}

func visitValue(v *Value, path string, fn func(s *string, key string) error) error {
	switch v.Kind {
	case KindScalar:
		return fn(&v.Scalar, path)

	case KindMultiline:
		return fn(&v.Multiline.Content, path)

	case KindBlock:
		for e := range v.Block.Declared() {
			if err := visitValue(e.Value, path+"."+e.Key, fn); err != nil {
				return err
			}
		}

	case KindList:
		for i, item := range v.List {
			if err := visitValue(item, fmt.Sprintf("%s[%d]", path, i), fn); err != nil {
				return err
			}
		}

	case KindTable:
		for i := range v.Table.Rows {
			for j := range v.Table.Rows[i] {
				cell := fmt.Sprintf("%s[%d][%d]", path, i, j)
				if err := fn(&v.Table.Rows[i][j], cell); err != nil {
					return err
				}
			}
		}
	}

	return nil
}
