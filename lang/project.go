package lang

import (
	"bytes"
	"encoding/json"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
)

// Recognized annotation equivalence classes for primitive projection.
// Annotations outside these sets pass through as opaque metadata and
// project as strings.
var (
	intAnnotations   = map[string]bool{"int": true, "integer": true}
	floatAnnotations = map[string]bool{"float": true, "double": true}
	boolAnnotations  = map[string]bool{"bool": true, "boolean": true}
	nullAnnotations  = map[string]bool{"null": true, "nil": true}
)

// Tree is a node of the canonical projection: a generic ordered mapping.
// Two structurally equal documents always project to byte-identical
// serialized trees, because ordering is fixed by the projection rules
// rather than by source declaration order.
type Tree struct {
	pairs []treePair
}

type treePair struct {
	key   string
	value any
}

// put appends a key/value pair. The projector is the only writer and
// already emits keys in canonical order.
func (t *Tree) put(key string, value any) {
	t.pairs = append(t.pairs, treePair{key: key, value: value})
}

// Len returns the number of pairs in the node.
func (t *Tree) Len() int { return len(t.pairs) }

// Get retrieves a value by key.
func (t *Tree) Get(key string) (any, bool) {
	for _, p := range t.pairs {
		if p.key == key {
			return p.value, true
		}
	}

	return nil, false
}

// Keys returns the node's keys in projection order.
func (t *Tree) Keys() []string {
	keys := make([]string, len(t.pairs))
	for i, p := range t.pairs {
		keys[i] = p.key
	}

	return keys
}

// MarshalJSON implements json.Marshaler preserving pair order.
func (t *Tree) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, p := range t.pairs {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(p.key)
		if err != nil {
			return nil, err
		}

		buf.Write(key)
		buf.WriteByte(':')

		value, err := json.Marshal(p.value)
		if err != nil {
			return nil, err
		}

		buf.Write(value)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// MarshalYAML implements yaml.InterfaceMarshaler preserving pair order.
func (t *Tree) MarshalYAML() (any, error) {
	return t.yamlNode(), nil
}

func (t *Tree) yamlNode() yaml.MapSlice {
	out := make(yaml.MapSlice, len(t.pairs))

	for i, p := range t.pairs {
		out[i] = yaml.MapItem{Key: p.key, Value: yamlValue(p.value)}
	}

	return out
}

func yamlValue(v any) any {
	switch vv := v.(type) {
	case *Tree:
		return vv.yamlNode()

	case []any:
		out := make([]any, len(vv))
		for i, item := range vv {
			out[i] = yamlValue(item)
		}

		return out

	default:
		return v
	}
}

// Project converts the document into its canonical generic tree.
//
// The document projects as a key-ordered block: keys sorted
// lexicographically by code point. Insertion-ordered blocks project in
// declaration order, lists and table rows always in original order.
// Scalars whose annotation names a recognized primitive family are parsed
// into that primitive; a parse failure is a projection error. Directive
// entries are compositional instructions, not content, and are omitted.
func (d *Document) Project() (*Tree, error) {
	root := &Tree{}

	content := make([]*Entry, 0, len(d.Entries))

	for _, e := range d.Entries {
		if e.Key != "" && !e.directive() {
			content = append(content, e)
		}
	}

	slices.SortFunc(content, func(a, b *Entry) int {
		return strings.Compare(a.Key, b.Key)
	})

	for _, e := range content {
		value, err := projectEntry(e)
		if err != nil {
			return nil, err
		}

		root.put(e.Key, value)
	}

	return root, nil
}

// projectEntry projects a single entry's value under its annotation.
func projectEntry(e *Entry) (any, error) {
	switch e.Value.Kind {
	case KindScalar:
		return projectScalar(e.Type, e.Value.Scalar, e.Key)

	case KindMultiline:
		return e.Value.Multiline.Content, nil

	case KindBlock:
		return projectBlock(e.Value.Block)

	case KindList:
		return projectList(e.Value.List)

	case KindTable:
		return projectTable(e.Value.Table), nil

	default:
		return nil, ErrProjection.WithKey(e.Key).
			Withf("unknown value kind %d", e.Value.Kind)
	}
}

// projectBlock projects entries in the block's canonical order.
func projectBlock(b *Block) (*Tree, error) {
	out := &Tree{}

	for e := range b.All() {
		value, err := projectEntry(e)
		if err != nil {
			return nil, err
		}

		out.put(e.Key, value)
	}

	return out, nil
}

// projectList projects items in original order. Bare list items carry no
// annotation, so scalar items always project as strings.
func projectList(items []*Value) ([]any, error) {
	out := make([]any, len(items))

	for i, item := range items {
		switch item.Kind {
		case KindScalar:
			out[i] = item.Scalar

		case KindMultiline:
			out[i] = item.Multiline.Content

		case KindBlock:
			block, err := projectBlock(item.Block)
			if err != nil {
				return nil, err
			}

			out[i] = block

		case KindList:
			list, err := projectList(item.List)
			if err != nil {
				return nil, err
			}

			out[i] = list

		case KindTable:
			out[i] = projectTable(item.Table)
		}
	}

	return out, nil
}

// projectTable projects a table as a two-key node: its column list and its
// rows, both in original order.
func projectTable(t *Table) *Tree {
	columns := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		columns[i] = c
	}

	rows := make([]any, len(t.Rows))

	for i, row := range t.Rows {
		cells := make([]any, len(row))
		for j, cell := range row {
			cells[j] = cell
		}

		rows[i] = cells
	}

	out := &Tree{}
	out.put("columns", columns)
	out.put("rows", rows)

	return out
}

// projectScalar maps a scalar to the target primitive selected by its
// annotation's equivalence class, or to a string for unrecognized
// annotations. Interpretation is never inferred from the literal's
// spelling.
func projectScalar(annotation, text, key string) (any, error) {
	switch {
	case intAnnotations[annotation]:
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, ErrProjection.WithKey(key).
				Withf("cannot parse %q as %s", text, annotation)
		}

		return n, nil

	case floatAnnotations[annotation]:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, ErrProjection.WithKey(key).
				Withf("cannot parse %q as %s", text, annotation)
		}

		return f, nil

	case boolAnnotations[annotation]:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return nil, ErrProjection.WithKey(key).
				Withf("cannot parse %q as %s", text, annotation)
		}

		return b, nil

	case nullAnnotations[annotation]:
		if text != "" && text != "null" && text != "nil" {
			return nil, ErrProjection.WithKey(key).
				Withf("cannot parse %q as %s", text, annotation)
		}

		return nil, nil

	default:
		return text, nil
	}
}
