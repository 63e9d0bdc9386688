package lang

import (
	"context"
	"log/slog"

	"github.com/strataconf/strata/lang/token"
	"github.com/strataconf/strata/log"
)

// Loader resolves a document reference named by a base or include
// directive. The engine does not specify transport; a reference may be a
// file path, a registry name, or anything else the caller maps to a parsed
// document.
type Loader interface {
	Load(ref string) (*Document, error)
}

// LoaderFunc adapts a plain function to the Loader interface.
type LoaderFunc func(ref string) (*Document, error)

func (f LoaderFunc) Load(ref string) (*Document, error) { return f(ref) }

// Merge strategies selectable through a !merge directive block.
const (
	StrategyDeep    = "deep"
	StrategyShallow = "shallow"
	StrategyReplace = "replace"

	ListAppend  = "append"
	ListReplace = "replace"
	ListUnique  = "unique"
)

// mergeOptions carries the document-scoped strategy selection.
type mergeOptions struct {
	strategy string
	lists    string
}

func defaultMergeOptions() mergeOptions {
	return mergeOptions{strategy: StrategyDeep, lists: ListAppend}
}

// ComposerOption configures a Composer.
type ComposerOption func(*Composer)

// WithComposeLogger sets the structured logger for composition tracing.
func WithComposeLogger(logger log.Logger) ComposerOption {
	return func(c *Composer) {
		c.logger = logger
	}
}

// Composer resolves base, include, overlay, patch, and merge directives
// into a single flattened document.
type Composer struct {
	loader  Loader
	logger  log.Logger
	loading map[string]bool // refs on the active load chain
}

// NewComposer returns a Composer that resolves document references through
// the given loader. A nil loader is valid for documents without base or
// include directives.
func NewComposer(loader Loader, opts ...ComposerOption) *Composer {
	c := &Composer{
		loader:  loader,
		loading: make(map[string]bool),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Compose flattens doc into a single document with all directives applied.
// Layers merge in a fixed order: the base chain root-first, then includes
// in listed order, then the document's own entries, then overlays, then
// patches. The input document is not modified.
func (c *Composer) Compose(ctx context.Context, doc *Document) (*Document, error) {
	layers, err := classify(doc)
	if err != nil {
		return nil, err
	}

	opt := defaultMergeOptions()
	if layers.merge != nil {
		if opt, err = readMergeOptions(layers.merge); err != nil {
			return nil, err
		}
	}

	result := &Document{}

	if layers.base != nil {
		based, err := c.loadLayer(ctx, layers.base.Value.Scalar, layers.base.Pos, ErrCircularBase)
		if err != nil {
			return nil, err
		}

		if err := mergeDocument(result, based, opt); err != nil {
			return nil, err
		}
	}

	for _, inc := range layers.includes {
		included, err := c.loadLayer(ctx, inc.ref, inc.pos, ErrMerge)
		if err != nil {
			return nil, err
		}

		if err := mergeDocument(result, included, opt); err != nil {
			return nil, err
		}
	}

	if opt.strategy == StrategyReplace && len(layers.entries) > 0 {
		result = &Document{}
	}

	for _, e := range layers.entries {
		if err := mergeEntry(result, e, opt); err != nil {
			return nil, err
		}
	}

	for _, e := range layers.overlays {
		if err := applyOverlay(result, e, opt); err != nil {
			return nil, err
		}
	}

	for _, e := range layers.patches {
		if err := applyPatchBlock(result, e); err != nil {
			return nil, err
		}
	}

	c.logger.TraceContext(ctx, "compose complete",
		slog.Int("entry_count", len(result.Entries)),
		slog.Int("include_count", len(layers.includes)),
		slog.Int("overlay_count", len(layers.overlays)),
		slog.Int("patch_count", len(layers.patches)))

	return result, nil
}

// loadLayer loads a referenced document and composes it recursively, so a
// base or include brings its own base chain with it. A reference already
// on the active load chain is a cycle.
func (c *Composer) loadLayer(
	ctx context.Context,
	ref string,
	pos token.Position,
	cycleKind *Error,
) (*Document, error) {
	if ref == "" {
		return nil, ErrMerge.Withf("directive requires a document reference").
			WithPosition(pos)
	}

	if c.loading[ref] {
		return nil, cycleKind.Withf("document %q references itself through its load chain", ref).
			WithPosition(pos)
	}

	if c.loader == nil {
		return nil, ErrLoad.Withf("no loader configured for reference %q", ref).
			WithPosition(pos)
	}

	loaded, err := c.loader.Load(ref)
	if err != nil {
		return nil, ErrLoad.Wrap(err).Withf("cannot load %q", ref).
			WithPosition(pos)
	}

	c.loading[ref] = true
	defer delete(c.loading, ref)

	return c.Compose(ctx, loaded)
}

// includeRef is one document reference from an include list.
type includeRef struct {
	ref string
	pos token.Position
}

// layerSet is the directive classification of a single document.
type layerSet struct {
	base     *Entry
	merge    *Entry
	includes []includeRef
	overlays []*Entry
	patches  []*Entry
	entries  []*Entry
}

// classify splits a document's entries into composition layers. Directive
// entries are dispatched on their annotation; everything else is content.
func classify(doc *Document) (*layerSet, error) {
	ls := &layerSet{}

	for _, e := range doc.Entries {
		switch e.Type {
		case "base":
			if ls.base != nil {
				return nil, ErrMerge.Withf("document declares more than one base").
					WithPosition(e.Pos)
			}

			if e.Value.Kind != KindScalar {
				return nil, ErrMerge.Withf("base directive requires a scalar reference").
					WithPosition(e.Pos)
			}

			ls.base = e

		case "include":
			refs, err := includeRefs(e)
			if err != nil {
				return nil, err
			}

			ls.includes = append(ls.includes, refs...)

		case "overlay":
			if e.Value.Kind != KindBlock {
				return nil, ErrMerge.Withf("overlay directive requires a block").
					WithKey(e.Key).WithPosition(e.Pos)
			}

			ls.overlays = append(ls.overlays, e)

		case "patch":
			if e.Value.Kind != KindBlock {
				return nil, ErrMerge.Withf("patch directive requires a block").
					WithKey(e.Key).WithPosition(e.Pos)
			}

			ls.patches = append(ls.patches, e)

		case "merge":
			if ls.merge != nil {
				return nil, ErrMerge.Withf("document declares more than one merge directive").
					WithPosition(e.Pos)
			}

			if e.Value.Kind != KindBlock {
				return nil, ErrMerge.Withf("merge directive requires a block").
					WithPosition(e.Pos)
			}

			ls.merge = e

		default:
			ls.entries = append(ls.entries, e)
		}
	}

	return ls, nil
}

// includeRefs flattens an include directive into its document references.
// A scalar names one document; a list names several, merged in order.
func includeRefs(e *Entry) ([]includeRef, error) {
	switch e.Value.Kind {
	case KindScalar:
		return []includeRef{{ref: e.Value.Scalar, pos: e.Pos}}, nil

	case KindList:
		refs := make([]includeRef, 0, len(e.Value.List))

		for _, item := range e.Value.List {
			if item.Kind != KindScalar {
				return nil, ErrMerge.Withf("include list items must be document references").
					WithKey(e.Key).WithPosition(item.Pos)
			}

			refs = append(refs, includeRef{ref: item.Scalar, pos: item.Pos})
		}

		return refs, nil

	default:
		return nil, ErrMerge.Withf("include directive requires a reference or list of references").
			WithKey(e.Key).WithPosition(e.Pos)
	}
}

// readMergeOptions extracts strategy fields from a !merge block.
func readMergeOptions(e *Entry) (mergeOptions, error) {
	opt := defaultMergeOptions()

	for inner := range e.Value.Block.Declared() {
		if inner.Value.Kind != KindScalar {
			return opt, ErrMerge.Withf("merge option %q must be a scalar", inner.Key).
				WithPosition(inner.Pos)
		}

		switch inner.Key {
		case "strategy":
			switch inner.Value.Scalar {
			case StrategyDeep, StrategyShallow, StrategyReplace:
				opt.strategy = inner.Value.Scalar
			default:
				return opt, ErrMerge.Withf("unknown merge strategy %q", inner.Value.Scalar).
					WithPosition(inner.Pos)
			}

		case "list_strategy":
			switch inner.Value.Scalar {
			case ListAppend, ListReplace, ListUnique:
				opt.lists = inner.Value.Scalar
			default:
				return opt, ErrMerge.Withf("unknown list strategy %q", inner.Value.Scalar).
					WithPosition(inner.Pos)
			}

		default:
			return opt, ErrMerge.Withf("unknown merge option %q", inner.Key).
				WithPosition(inner.Pos)
		}
	}

	return opt, nil
}

// mergeDocument merges every entry of src into dst.
func mergeDocument(dst, src *Document, opt mergeOptions) error {
	for _, e := range src.Entries {
		if err := mergeEntry(dst, e, opt); err != nil {
			return err
		}
	}

	return nil
}

// mergeEntry merges a single top-level entry into dst. The later entry's
// annotation wins when it declares one; otherwise the earlier annotation
// is retained.
func mergeEntry(dst *Document, e *Entry, opt mergeOptions) error {
	prev, ok := dst.Get(e.Key)
	if !ok || e.Key == "" {
		dst.append(e.Clone())

		return nil
	}

	merged, err := mergeValue(prev.Value, e.Value, opt, e.Key)
	if err != nil {
		return err
	}

	prev.Value = merged
	if e.Type != "" {
		prev.Type = e.Type
	}

	return nil
}

// mergeValue combines two values for the same key. Blocks recurse under
// the deep strategy; lists combine per the list strategy; any other
// pairing lets the later value replace the earlier one.
func mergeValue(prev, next *Value, opt mergeOptions, path string) (*Value, error) {
	if opt.strategy == StrategyDeep && prev.Kind == KindBlock && next.Kind == KindBlock {
		merged, err := mergeBlock(prev.Block, next.Block, opt, path)
		if err != nil {
			return nil, err
		}

		return &Value{Kind: KindBlock, Block: merged, Pos: prev.Pos}, nil
	}

	if prev.Kind == KindList && next.Kind == KindList {
		return mergeList(prev, next, opt), nil
	}

	return next.Clone(), nil
}

// mergeBlock deep merges two blocks. The ordering mode of a block is
// immutable, so merging an insertion-ordered block into a key-ordered one
// (or the reverse) is an error rather than a silent mode change.
func mergeBlock(prev, next *Block, opt mergeOptions, path string) (*Block, error) {
	if prev.Mode() != next.Mode() {
		return nil, ErrMerge.Withf("cannot merge %s block into %s block",
			next.Mode(), prev.Mode()).WithKey(path)
	}

	merged := prev.Clone()

	for e := range next.Declared() {
		childPath := path + "." + e.Key

		existing, ok := merged.Get(e.Key)
		if !ok {
			merged.Set(e.Clone())

			continue
		}

		value, err := mergeValue(existing.Value, e.Value, opt, childPath)
		if err != nil {
			return nil, err
		}

		out := existing.Clone()
		out.Value = value

		if e.Type != "" {
			out.Type = e.Type
		}

		merged.Set(out)
	}

	return merged, nil
}

// mergeList combines two lists per the document's list strategy.
func mergeList(prev, next *Value, opt mergeOptions) *Value {
	out := &Value{Kind: KindList, Pos: prev.Pos}

	switch opt.lists {
	case ListReplace:
		out.List = cloneItems(next.List)

	case ListUnique:
		out.List = dedupeItems(append(cloneItems(prev.List), cloneItems(next.List)...))

	default:
		out.List = append(cloneItems(prev.List), cloneItems(next.List)...)
	}

	return out
}

func cloneItems(items []*Value) []*Value {
	out := make([]*Value, len(items))
	for i, item := range items {
		out[i] = item.Clone()
	}

	return out
}

// dedupeItems drops scalar items whose payload was already seen, keeping
// first occurrence order. Non-scalar items have no identity to compare
// and always pass through.
func dedupeItems(items []*Value) []*Value {
	seen := make(map[string]bool, len(items))
	out := items[:0]

	for _, item := range items {
		if item.Kind == KindScalar {
			if seen[item.Scalar] {
				continue
			}

			seen[item.Scalar] = true
		}

		out = append(out, item)
	}

	return out
}

// applyOverlay deep merges an overlay block into the same-named entry of
// the composed result, regardless of the ambient strategy. An overlay
// onto a key that does not exist yet simply defines it.
func applyOverlay(dst *Document, e *Entry, opt mergeOptions) error {
	prev, ok := dst.Get(e.Key)
	if !ok {
		out := e.Clone()
		out.Type = ""
		dst.append(out)

		return nil
	}

	if prev.Value.Kind != KindBlock {
		return ErrMerge.Withf("overlay target %q is not a block", e.Key).
			WithKey(e.Key).WithPosition(e.Pos)
	}

	deep := opt
	deep.strategy = StrategyDeep

	merged, err := mergeBlock(prev.Value.Block, e.Value.Block, deep, e.Key)
	if err != nil {
		return err
	}

	prev.Value = &Value{Kind: KindBlock, Block: merged, Pos: prev.Value.Pos}

	return nil
}
