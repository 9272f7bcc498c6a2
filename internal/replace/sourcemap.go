package replace

import (
	"encoding/json"
	"fmt"
	"strings"
)

// sourceMapFile is a version 3 source map as consumed by downstream
// minifiers. Mappings are the usual base64 VLQ segment encoding.
type sourceMapFile struct {
	Version        int      `json:"version"`
	Sources        []string `json:"sources"`
	SourcesContent []string `json:"sourcesContent"`
	Mappings       string   `json:"mappings"`
	Names          []string `json:"names"`
}

// segment maps a generated column back to an original line and column. The
// source index is always zero: each map covers exactly one file.
type segment struct {
	genCol   int
	origLine int
	origCol  int
}

// mapBuilder accumulates position mappings while the rewriter splices the
// output. Copied spans advance the original position in lockstep with the
// generated position; spliced spans pin every generated position to the
// start of the token they replaced.
type mapBuilder struct {
	source   string
	content  string
	lineOffs []int // byte offset of each original line start
	genLine  int
	genCol   int
	lines    [][]segment
}

func newMapBuilder(source, content string) *mapBuilder {
	offs := []int{0}
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			offs = append(offs, i+1)
		}
	}
	return &mapBuilder{
		source:   source,
		content:  content,
		lineOffs: offs,
		lines:    [][]segment{nil},
	}
}

// origPos converts a byte offset in the original content to (line, column).
func (m *mapBuilder) origPos(off int) (int, int) {
	lo, hi := 0, len(m.lineOffs)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if m.lineOffs[mid] <= off {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo, off - m.lineOffs[lo]
}

func (m *mapBuilder) emit(origOff int) {
	line, col := m.origPos(origOff)
	segs := m.lines[m.genLine]
	if n := len(segs); n > 0 && segs[n-1].genCol == m.genCol {
		// Overwrite rather than stack segments at the same column.
		segs[n-1] = segment{genCol: m.genCol, origLine: line, origCol: col}
		return
	}
	m.lines[m.genLine] = append(segs, segment{genCol: m.genCol, origLine: line, origCol: col})
}

// copy records a span of output text copied verbatim from origOff in the
// original content.
func (m *mapBuilder) copy(text string, origOff int) {
	m.track(text, origOff, true)
}

// splice records replacement text standing in for the original token at
// origOff.
func (m *mapBuilder) splice(text string, origOff int) {
	m.track(text, origOff, false)
}

func (m *mapBuilder) track(text string, origOff int, advanceOrig bool) {
	if text == "" {
		return
	}
	m.emit(origOff)
	for i := 0; i < len(text); i++ {
		if text[i] != '\n' {
			m.genCol++
			continue
		}
		m.genLine++
		m.genCol = 0
		m.lines = append(m.lines, nil)
		if i+1 < len(text) {
			off := origOff
			if advanceOrig {
				off += i + 1
			}
			m.emit(off)
		}
	}
}

func (m *mapBuilder) generate() ([]byte, error) {
	var b strings.Builder
	prevOrigLine, prevOrigCol := 0, 0
	for i, segs := range m.lines {
		if i > 0 {
			b.WriteByte(';')
		}
		prevGenCol := 0
		for j, seg := range segs {
			if j > 0 {
				b.WriteByte(',')
			}
			writeVLQ(&b, seg.genCol-prevGenCol)
			writeVLQ(&b, 0) // single source
			writeVLQ(&b, seg.origLine-prevOrigLine)
			writeVLQ(&b, seg.origCol-prevOrigCol)
			prevGenCol = seg.genCol
			prevOrigLine = seg.origLine
			prevOrigCol = seg.origCol
		}
	}

	encoded, err := json.Marshal(sourceMapFile{
		Version:        3,
		Sources:        []string{m.source},
		SourcesContent: []string{m.content},
		Mappings:       b.String(),
		Names:          []string{},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal source map: %w", err)
	}
	return encoded, nil
}

const vlqChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

// writeVLQ appends one base64 VLQ value: the low bit carries the sign and
// continuation bits chain five-bit groups.
func writeVLQ(b *strings.Builder, value int) {
	u := value << 1
	if value < 0 {
		u = (-value << 1) | 1
	}
	for {
		digit := u & 31
		u >>= 5
		if u > 0 {
			digit |= 32
		}
		b.WriteByte(vlqChars[digit])
		if u == 0 {
			return
		}
	}
}
