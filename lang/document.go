package lang

import (
	"iter"
	"slices"
	"strings"

	"github.com/strataconf/strata/lang/token"
)

// Document is an ordered sequence of top-level entries produced by a single
// parse. A Document is immutable after parsing except through the merge
// engine (which produces a new composed Document) and the variable resolver
// (which substitutes scalar values in place).
type Document struct {
	Entries []*Entry

	index map[string]int // key -> Entries position, directives excluded
}

// Get retrieves a top-level entry by key in O(1) expected time.
// Directive entries are not addressable; Get resolves content only.
func (d *Document) Get(key string) (*Entry, bool) {
	i, ok := d.index[key]
	if !ok {
		return nil, false
	}

	return d.Entries[i], true
}

// All returns an iterator over all top-level entries in declaration order.
func (d *Document) All() iter.Seq[*Entry] {
	return func(yield func(*Entry) bool) {
		for _, e := range d.Entries {
			if !yield(e) {
				return
			}
		}
	}
}

// Append adds a top-level entry. An entry with an already-present key
// shadows the earlier index slot; callers building documents by hand are
// expected to keep keys unique the way the parser does.
func (d *Document) Append(e *Entry) {
	d.append(e)
}

// append adds an entry and indexes its key. Directive entries live outside
// the content key namespace, so a key overlaid or patched in the same
// document keeps resolving to its content entry.
func (d *Document) append(e *Entry) {
	if d.index == nil {
		d.index = make(map[string]int)
	}

	if e.Key != "" && !e.directive() {
		d.index[e.Key] = len(d.Entries)
	}

	d.Entries = append(d.Entries, e)
}

// reindex rebuilds the key index after entries have been reordered.
func (d *Document) reindex() {
	d.index = make(map[string]int, len(d.Entries))

	for i, e := range d.Entries {
		if e.Key != "" && !e.directive() {
			d.index[e.Key] = i
		}
	}
}

// Entry is a keyed value with an optional free-form type annotation.
//
// The annotation is not restricted to a fixed set: a small closed family of
// names is recognized for projection typing and composition dispatch
// (see project.go and merge.go), and everything else passes through as
// opaque metadata for collaborators.
type Entry struct {
	Key   string
	Type  string
	Value *Value
	Pos   token.Position
}

// directive reports whether the entry's annotation names a composition
// directive rather than content.
func (e *Entry) directive() bool {
	switch e.Type {
	case "base", "include", "overlay", "patch", "merge":
		return true
	}

	return false
}

// Clone returns a deep copy of the entry.
func (e *Entry) Clone() *Entry {
	return &Entry{
		Key:   e.Key,
		Type:  e.Type,
		Value: e.Value.Clone(),
		Pos:   e.Pos,
	}
}

// Kind discriminates the value union.
type Kind int

const (
	// KindScalar is a string payload. Numeric, boolean, or null
	// interpretation is deferred to the type annotation and never inferred
	// from spelling.
	KindScalar Kind = iota

	// KindBlock is a mapping from key to entry with unique keys.
	KindBlock

	// KindList is an ordered sequence of values; order is always
	// significant.
	KindList

	// KindTable is a fixed-column, multi-row tabular value with strict row
	// arity.
	KindTable

	// KindMultiline is a scalar captured verbatim between triple-backtick
	// delimiters.
	KindMultiline
)

// String returns a human-readable name for the value kind.
func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindBlock:
		return "block"
	case KindList:
		return "list"
	case KindTable:
		return "table"
	case KindMultiline:
		return "multiline"
	default:
		return "unknown"
	}
}

// Value is the tagged union over all strata value types. Exactly one of
// the payload fields is set based on Kind.
type Value struct {
	Kind      Kind
	Scalar    string
	Block     *Block
	List      []*Value
	Table     *Table
	Multiline *Multiline
	Pos       token.Position
}

// NewScalar constructs a scalar value.
func NewScalar(s string) *Value {
	return &Value{Kind: KindScalar, Scalar: s}
}

// Clone returns a deep copy of the value.
func (v *Value) Clone() *Value {
	if v == nil {
		return nil
	}

	out := &Value{Kind: v.Kind, Pos: v.Pos}

	switch v.Kind {
	case KindScalar:
		out.Scalar = v.Scalar

	case KindBlock:
		out.Block = v.Block.Clone()

	case KindList:
		out.List = make([]*Value, len(v.List))
		for i, item := range v.List {
			out.List[i] = item.Clone()
		}

	case KindTable:
		out.Table = v.Table.Clone()

	case KindMultiline:
		m := *v.Multiline
		out.Multiline = &m
	}

	return out
}

// OrderMode selects how a block's entries are ordered for canonical
// iteration and projection. The mode is fixed when the block is created
// and never changed by composition.
type OrderMode int

const (
	// OrderKeys sorts keys lexicographically by code point. This is the
	// default mode.
	OrderKeys OrderMode = iota

	// OrderInsertion preserves declaration order. Selected by the
	// annotations "list", "ordered", and "seq".
	OrderInsertion
)

// String returns a human-readable name for the ordering mode.
func (m OrderMode) String() string {
	if m == OrderInsertion {
		return "insertion-ordered"
	}

	return "key-ordered"
}

// orderAnnotations are the annotation names that select insertion ordering.
var orderAnnotations = map[string]bool{
	"list":    true,
	"ordered": true,
	"seq":     true,
}

// OrderModeFor maps a type annotation to the block ordering mode it
// selects.
func OrderModeFor(annotation string) OrderMode {
	if orderAnnotations[annotation] {
		return OrderInsertion
	}

	return OrderKeys
}

// Block is a mapping from key to entry with unique keys. A single
// structure serves both ordering modes: entries are stored with their
// declaration position, and a sorted key view is derived lazily for
// key-ordered iteration. Keeping one block type keeps merge logic uniform.
type Block struct {
	mode    OrderMode
	entries map[string]*Entry
	order   []string // declaration order of keys

	sorted []string // lazily derived sorted key view, nil when stale
}

// NewBlock creates an empty block with the given ordering mode.
func NewBlock(mode OrderMode) *Block {
	return &Block{
		mode:    mode,
		entries: make(map[string]*Entry),
	}
}

// Mode returns the block's ordering mode.
func (b *Block) Mode() OrderMode { return b.mode }

// Len returns the number of entries in the block.
func (b *Block) Len() int { return len(b.order) }

// Get retrieves an entry by key in O(1) expected time.
func (b *Block) Get(key string) (*Entry, bool) {
	e, ok := b.entries[key]

	return e, ok
}

// Define inserts a new entry. A duplicate key is a structural error: the
// existing entry is never silently overwritten.
func (b *Block) Define(e *Entry) error {
	if prev, ok := b.entries[e.Key]; ok {
		return ErrDuplicateKey.
			WithPosition(e.Pos).
			WithKey(e.Key).
			Withf("first declared at %s", prev.Pos)
	}

	b.entries[e.Key] = e
	b.order = append(b.order, e.Key)
	b.sorted = nil

	return nil
}

// Set inserts or replaces an entry, preserving the original declaration
// position on replacement. Used by the merge engine; parse-time insertion
// goes through Define.
func (b *Block) Set(e *Entry) {
	if _, ok := b.entries[e.Key]; !ok {
		b.order = append(b.order, e.Key)
		b.sorted = nil
	}

	b.entries[e.Key] = e
}

// Keys returns the block's keys in canonical order for its mode.
func (b *Block) Keys() []string {
	if b.mode == OrderInsertion {
		return b.order
	}

	if b.sorted == nil {
		b.sorted = slices.Clone(b.order)
		slices.Sort(b.sorted)
	}

	return b.sorted
}

// All returns an iterator over entries in canonical order for the block's
// mode.
func (b *Block) All() iter.Seq[*Entry] {
	return func(yield func(*Entry) bool) {
		for _, key := range b.Keys() {
			if !yield(b.entries[key]) {
				return
			}
		}
	}
}

// Declared returns an iterator over entries in declaration order,
// regardless of mode.
func (b *Block) Declared() iter.Seq[*Entry] {
	return func(yield func(*Entry) bool) {
		for _, key := range b.order {
			if !yield(b.entries[key]) {
				return
			}
		}
	}
}

// Clone returns a deep copy of the block, preserving mode and declaration
// order.
func (b *Block) Clone() *Block {
	out := NewBlock(b.mode)

	for _, key := range b.order {
		out.entries[key] = b.entries[key].Clone()
	}

	out.order = slices.Clone(b.order)

	return out
}

// Table is a fixed ordered list of column names plus an ordered list of
// rows. Every row's arity equals the column count; the parser rejects
// mismatched rows.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	rows := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		rows[i] = slices.Clone(row)
	}

	return &Table{
		Columns: slices.Clone(t.Columns),
		Rows:    rows,
	}
}

// Multiline is a scalar whose content was captured verbatim between
// triple-backtick delimiters. Dedent records the column count already
// stripped from the content; Hint is an uninterpreted language tag.
type Multiline struct {
	Content string
	Hint    string
	Dedent  int
}

// dedent strips n leading whitespace columns from every line of s.
// It fails when any non-empty line is indented by fewer than n columns.
func dedent(s string, n int) (string, error) {
	if n == 0 {
		return s, nil
	}

	lines := strings.Split(s, "\n")

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			// Blank lines dedent to empty rather than erroring.
			lines[i] = ""

			continue
		}

		indent := len(line) - len(strings.TrimLeft(line, " \t"))
		if indent < n {
			return "", ErrDedent.
				Withf("line %d is indented %d column(s), need at least %d",
					i+1, indent, n)
		}

		lines[i] = line[n:]
	}

	return strings.Join(lines, "\n"), nil
}
