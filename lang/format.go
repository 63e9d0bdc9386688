package lang

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-yaml"
)

// Format writes the document in native strata syntax. Entries are written
// in declaration order; canonical ordering is a projection concern, so a
// format/parse round trip changes neither the model nor its projection.
func (d *Document) Format(w io.Writer, indent int) error {
	if indent <= 0 {
		indent = 2
	}

	for _, e := range d.Entries {
		if err := formatEntry(w, e, indent, 0); err != nil {
			return err
		}
	}

	return nil
}

// FormatJSON writes the document's canonical projection as JSON.
func (d *Document) FormatJSON(w io.Writer, indent int) error {
	tree, err := d.Project()
	if err != nil {
		return err
	}

	data, err := json.Marshal(tree)
	if err != nil {
		return ErrProjection.Wrap(err)
	}

	if indent > 0 {
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", strings.Repeat(" ", indent)); err != nil {
			return ErrProjection.Wrap(err)
		}

		data = buf.Bytes()
	}

	_, err = fmt.Fprintln(w, string(data))

	return err
}

// FormatYAML writes the document's canonical projection as YAML.
func (d *Document) FormatYAML(w io.Writer, indent int) error {
	tree, err := d.Project()
	if err != nil {
		return err
	}

	var opts []yaml.EncodeOption
	if indent > 0 {
		opts = append(opts, yaml.Indent(indent))
	}

	data, err := yaml.MarshalWithOptions(tree, opts...)
	if err != nil {
		return ErrProjection.Wrap(err)
	}

	_, err = fmt.Fprint(w, string(data))

	return err
}

// formatEntry writes one statement at the given nesting depth.
func formatEntry(w io.Writer, e *Entry, indent, depth int) error {
	prefix := strings.Repeat(" ", depth*indent)

	head := e.Key
	if e.Type != "" {
		head += "!" + e.Type
	}

	switch e.Value.Kind {
	case KindScalar:
		if e.Value.Scalar == "" {
			_, err := fmt.Fprintf(w, "%s%s\n", prefix, head)

			return err
		}

		_, err := fmt.Fprintf(w, "%s%s %s\n", prefix, head, quoteScalar(e.Value.Scalar))

		return err

	case KindMultiline:
		return formatMultiline(w, head, e.Value.Multiline, prefix)

	case KindBlock:
		if _, err := fmt.Fprintf(w, "%s%s {\n", prefix, head); err != nil {
			return err
		}

		for inner := range e.Value.Block.Declared() {
			if err := formatEntry(w, inner, indent, depth+1); err != nil {
				return err
			}
		}

		_, err := fmt.Fprintf(w, "%s}\n", prefix)

		return err

	case KindList:
		return formatList(w, head, e.Value.List, indent, depth)

	case KindTable:
		return formatTable(w, head, e.Value.Table, indent, depth)

	default:
		return ErrProjection.WithKey(e.Key).
			Withf("cannot format value kind %d", e.Value.Kind)
	}
}

// formatMultiline re-emits a captured block. The content is already
// dedented, so no dedent annotation is written.
func formatMultiline(w io.Writer, head string, m *Multiline, prefix string) error {
	opener := "```"
	if m.Hint != "" {
		opener += m.Hint
	}

	_, err := fmt.Fprintf(w, "%s%s %s\n%s\n```\n", prefix, head, opener, m.Content)

	return err
}

// formatList writes a multiline list, one item per line. An empty list is
// written inline.
func formatList(w io.Writer, head string, items []*Value, indent, depth int) error {
	prefix := strings.Repeat(" ", depth*indent)

	if len(items) == 0 {
		_, err := fmt.Fprintf(w, "%s%s []\n", prefix, head)

		return err
	}

	if _, err := fmt.Fprintf(w, "%s%s [\n", prefix, head); err != nil {
		return err
	}

	if err := formatListItems(w, items, indent, depth+1); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "%s]\n", prefix)

	return err
}

// formatListItems writes the item lines of a multiline list.
func formatListItems(w io.Writer, items []*Value, indent, depth int) error {
	prefix := strings.Repeat(" ", depth*indent)

	for _, item := range items {
		switch item.Kind {
		case KindScalar:
			if _, err := fmt.Fprintf(w, "%s%s\n", prefix, quoteScalar(item.Scalar)); err != nil {
				return err
			}

		case KindBlock:
			if _, err := fmt.Fprintf(w, "%s{\n", prefix); err != nil {
				return err
			}

			for inner := range item.Block.Declared() {
				if err := formatEntry(w, inner, indent, depth+1); err != nil {
					return err
				}
			}

			if _, err := fmt.Fprintf(w, "%s}\n", prefix); err != nil {
				return err
			}

		case KindList:
			if len(item.List) == 0 {
				if _, err := fmt.Fprintf(w, "%s[]\n", prefix); err != nil {
					return err
				}

				continue
			}

			if _, err := fmt.Fprintf(w, "%s[\n", prefix); err != nil {
				return err
			}

			if err := formatListItems(w, item.List, indent, depth+1); err != nil {
				return err
			}

			if _, err := fmt.Fprintf(w, "%s]\n", prefix); err != nil {
				return err
			}

		case KindMultiline:
			if err := formatMultiline(w, "", item.Multiline, prefix); err != nil {
				return err
			}

		case KindTable:
			if err := formatTable(w, "", item.Table, indent, depth); err != nil {
				return err
			}
		}
	}

	return nil
}

// formatTable writes a table, normalized to the block row container.
func formatTable(w io.Writer, head string, t *Table, indent, depth int) error {
	prefix := strings.Repeat(" ", depth*indent)
	inner := strings.Repeat(" ", (depth+1)*indent)
	rowPrefix := strings.Repeat(" ", (depth+2)*indent)

	if _, err := fmt.Fprintf(w, "%s%s {\n", prefix, head); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "%scolumns %s\n", inner, inlineRow(t.Columns)); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "%srows {\n", inner); err != nil {
		return err
	}

	for _, row := range t.Rows {
		if _, err := fmt.Fprintf(w, "%s%s\n", rowPrefix, inlineRow(row)); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintf(w, "%s}\n", inner); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "%s}\n", prefix)

	return err
}

// inlineRow renders an inline bracketed list of scalars.
func inlineRow(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = quoteScalar(v)
	}

	return "[" + strings.Join(quoted, ", ") + "]"
}

// quoteScalar wraps a value in quotes when it contains structurally
// significant characters that would otherwise terminate or split it.
//
// Quoted values have no escape sequences, so a scalar containing both a
// double quote and a structural character has no native rendering that
// parses back to itself. Such values survive only in the projected
// output formats.
func quoteScalar(s string) string {
	if s == "" {
		return `""`
	}

	if strings.Contains(s, `"`) {
		return s
	}

	if strings.ContainsAny(s, ",{}[]#") || s != strings.TrimSpace(s) {
		return `"` + s + `"`
	}

	return s
}
