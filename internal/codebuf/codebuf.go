// Package codebuf implements the append-only instruction listing that the
// emission core builds up for one function at a time.
package codebuf

import "strings"

// blankMarker is the sentinel line text used by AppendBlank; it never
// reaches Render as executable output, only as a spacer for readability.
const blankMarker = " "

// CodeLine is a single textual instruction or label, indented by an
// absolute tab count captured at the moment it was appended.
type CodeLine struct {
	Text string
	Tabs int
}

// IsBlank reports whether the line is a pure spacer with no executable
// content.
func (l CodeLine) IsBlank() bool {
	return l.Text == blankMarker
}

// Buffer is an ordered sequence of CodeLines plus the indent level that new
// lines are appended at. Continuation blocks (PUSHCONT { ... }) push the
// indent level up by one; EndContinuation must bring it back down.
type Buffer struct {
	lines []CodeLine
	tabs  int
}

// New returns an empty Buffer at indent level 0.
func New() *Buffer {
	return &Buffer{}
}

// Tabs returns the buffer's current indent level.
func (b *Buffer) Tabs() int {
	return b.tabs
}

// Len returns the number of recorded lines, including blank spacers.
func (b *Buffer) Len() int {
	return len(b.lines)
}

// Lines exposes the recorded lines read-only.
func (b *Buffer) Lines() []CodeLine {
	return b.lines
}

// Append records a line of text at the buffer's current indent level.
func (b *Buffer) Append(text string) {
	b.lines = append(b.lines, CodeLine{Text: text, Tabs: b.tabs})
}

// AppendBlank records a spacer line to aid reader scanning; it contributes
// nothing executable when the buffer is rendered.
func (b *Buffer) AppendBlank() {
	b.Append(blankMarker)
}

// AddTabs increases the current indent level by n.
func (b *Buffer) AddTabs(n int) {
	b.tabs += n
}

// SubTabs decreases the current indent level by n. It panics if the result
// would go negative — that indicates an unbalanced continuation, an
// internal invariant failure rather than a compile error.
func (b *Buffer) SubTabs(n int) {
	if b.tabs-n < 0 {
		panic("codebuf: SubTabs would drive indent below zero")
	}
	b.tabs -= n
}

// StartContinuation emits the opening line of a PUSHCONT block and nests
// the indent level by one.
func (b *Buffer) StartContinuation() {
	b.Append("PUSHCONT {")
	b.AddTabs(1)
}

// EndContinuation closes the most recently opened PUSHCONT block.
func (b *Buffer) EndContinuation() {
	b.SubTabs(1)
	b.Append("}")
}

// AppendBuffer splices another buffer's lines into this one, re-indenting
// each appended line relative to this buffer's current tab depth so the
// spliced text reads correctly wherever it lands.
func (b *Buffer) AppendBuffer(other *Buffer) {
	for _, line := range other.lines {
		b.lines = append(b.lines, CodeLine{
			Text: line.Text,
			Tabs: b.tabs + line.Tabs,
		})
	}
}

// DropLast removes the most recently appended line, if any. Used by tail-
// call elision to strip a trailing RET.
func (b *Buffer) DropLast() {
	if len(b.lines) == 0 {
		return
	}
	b.lines = b.lines[:len(b.lines)-1]
}

// Render produces the final text, prefixing every non-blank line with
// prefix repeated Tabs times and leaving blank spacer lines empty.
func (b *Buffer) Render(prefix string) string {
	var sb strings.Builder
	for _, line := range b.lines {
		if line.IsBlank() {
			sb.WriteByte('\n')
			continue
		}
		sb.WriteString(strings.Repeat(prefix, line.Tabs))
		sb.WriteString(line.Text)
		sb.WriteByte('\n')
	}
	return sb.String()
}
