package lang

import (
	"strings"
)

// pathSeg is one segment of a dotted patch path. A trailing [*] on the
// segment fans the remaining path out over every element of a list.
type pathSeg struct {
	name string
	fan  bool
}

// splitPath parses a dotted patch path like "servers[*].cpu".
func splitPath(e *Entry) ([]pathSeg, error) {
	parts := strings.Split(e.Key, ".")
	segs := make([]pathSeg, 0, len(parts))

	for _, part := range parts {
		seg := pathSeg{name: part}

		if strings.HasSuffix(part, "[*]") {
			seg.name = part[:len(part)-len("[*]")]
			seg.fan = true
		}

		if seg.name == "" || strings.ContainsAny(seg.name, "[]") {
			return nil, ErrPatchTarget.Withf("malformed path segment %q", part).
				WithKey(e.Key).WithPosition(e.Pos)
		}

		segs = append(segs, seg)
	}

	return segs, nil
}

// applyPatchBlock applies every assignment of a !patch block to the
// composed document, in declaration order.
func applyPatchBlock(dst *Document, patch *Entry) error {
	for e := range patch.Value.Block.Declared() {
		segs, err := splitPath(e)
		if err != nil {
			return err
		}

		if err := patchDocument(dst, segs, e); err != nil {
			return err
		}
	}

	return nil
}

// patchDocument applies one assignment starting at the document's top
// level. A leaf assignment may define a new key; every intermediate
// segment must address an existing value.
func patchDocument(dst *Document, segs []pathSeg, src *Entry) error {
	head := segs[0]

	if len(segs) == 1 && !head.fan {
		if prev, ok := dst.Get(head.name); ok {
			assignLeaf(prev, src)

			return nil
		}

		dst.append(leafEntry(head.name, src))

		return nil
	}

	prev, ok := dst.Get(head.name)
	if !ok {
		return missingTarget(head.name, src)
	}

	return patchStep(prev.Value, head, segs[1:], src)
}

// patchStep continues from the value that seg's name resolved to: it
// applies the segment's fan-out, if any, then descends with the remaining
// segments. The leaf case without fan-out is handled by the caller, so a
// plain segment reaching here always has segments left.
func patchStep(v *Value, seg pathSeg, rest []pathSeg, src *Entry) error {
	if !seg.fan {
		return patchBlock(v, rest[0], rest[1:], src)
	}

	if v.Kind != KindList {
		return ErrPatchTarget.Withf("segment %q[*] does not address a list", seg.name).
			WithKey(src.Key).WithPosition(src.Pos)
	}

	for i, item := range v.List {
		if len(rest) == 0 {
			v.List[i] = src.Value.Clone()

			continue
		}

		if err := patchBlock(item, rest[0], rest[1:], src); err != nil {
			return err
		}
	}

	return nil
}

// patchBlock addresses seg's name inside block value v: assigns the leaf
// when no fan-out or segments remain, otherwise resolves the key and
// hands the value back to patchStep.
func patchBlock(v *Value, seg pathSeg, rest []pathSeg, src *Entry) error {
	if v.Kind != KindBlock {
		return ErrPatchTarget.Withf("segment %q does not address a block", seg.name).
			WithKey(src.Key).WithPosition(src.Pos)
	}

	b := v.Block

	if len(rest) == 0 && !seg.fan {
		if prev, ok := b.Get(seg.name); ok {
			assignLeaf(prev, src)

			return nil
		}

		b.Set(leafEntry(seg.name, src))

		return nil
	}

	prev, ok := b.Get(seg.name)
	if !ok {
		return missingTarget(seg.name, src)
	}

	return patchStep(prev.Value, seg, rest, src)
}

func assignLeaf(dst *Entry, src *Entry) {
	dst.Value = src.Value.Clone()

	if src.Type != "" {
		dst.Type = src.Type
	}
}

func leafEntry(name string, src *Entry) *Entry {
	return &Entry{
		Key:   name,
		Type:  src.Type,
		Value: src.Value.Clone(),
		Pos:   src.Pos,
	}
}

func missingTarget(name string, src *Entry) error {
	return ErrPatchTarget.Withf("path addresses missing key %q", name).
		WithKey(src.Key).WithPosition(src.Pos)
}
