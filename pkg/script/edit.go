package script

import "sort"

// Buffer records edits against an immutable text and renders the result on
// demand. Offsets always refer to the original text.
type Buffer struct {
	text  string
	edits []edit
}

type edit struct {
	start, end int
	text       string
	seq        int
}

// NewBuffer creates an edit buffer over text.
func NewBuffer(text string) *Buffer {
	return &Buffer{text: text}
}

// Replace substitutes text for the range [start, end).
func (b *Buffer) Replace(start, end int, text string) {
	b.edits = append(b.edits, edit{start: start, end: end, text: text, seq: len(b.edits)})
}

// Insert adds text at offset at. Insertions at the same offset keep their
// call order.
func (b *Buffer) Insert(at int, text string) {
	b.Replace(at, at, text)
}

// Remove deletes the range [start, end).
func (b *Buffer) Remove(start, end int) {
	b.Replace(start, end, "")
}

// Wrap surrounds [start, end) with before and after.
func (b *Buffer) Wrap(start, end int, before, after string) {
	b.Insert(start, before)
	b.Insert(end, after)
}

// Original returns the unedited text.
func (b *Buffer) Original() string {
	return b.text
}

// String renders the whole text with every edit applied.
func (b *Buffer) String() string {
	return b.Render(0, len(b.text))
}

// Render returns [start, end) of the original text with the edits that fall
// inside that range applied. An edit overlapping one applied before it is
// dropped.
func (b *Buffer) Render(start, end int) string {
	edits := make([]edit, 0, len(b.edits))
	for _, e := range b.edits {
		if e.start >= start && e.end <= end {
			edits = append(edits, e)
		}
	}
	sort.SliceStable(edits, func(i, j int) bool {
		if edits[i].start != edits[j].start {
			return edits[i].start < edits[j].start
		}
		// Pure insertions come before a replacement starting at the same offset.
		iIns, jIns := edits[i].start == edits[i].end, edits[j].start == edits[j].end
		if iIns != jIns {
			return iIns
		}
		return edits[i].seq < edits[j].seq
	})

	out := make([]byte, 0, end-start+16*len(edits))
	cursor := start
	for _, e := range edits {
		if e.start < cursor {
			continue
		}
		out = append(out, b.text[cursor:e.start]...)
		out = append(out, e.text...)
		cursor = e.end
	}
	out = append(out, b.text[cursor:end]...)
	return string(out)
}
