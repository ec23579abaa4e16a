package items

import (
	"strings"

	"github.com/ginjaninja78/invoice-landed-cost/internal/types"
)

// =============================================================================
// BLOCK SCANNER
// =============================================================================

// BlockScanner segments the item section of a document into one block per
// line item. It is a single forward pass over the text and cannot be
// restarted; create a new scanner to scan again.
//
// BOUNDARIES:
//   - A line that is exactly a color name starts a new item.
//   - A quantity/price line closes the current item.
//   - A part-number or weight line right after a closed item belongs to it,
//     unless the item already has one.
//   - Page furniture and repeated column headers are skipped, so an item
//     split by a page break continues on the next page.
//
// UNTERMINATED ITEMS:
//   - A run that began at a color line (optionally preceded by a condition
//     line) and is closed by the next item start or the end of the section
//     is emitted with Terminated false, so the field parser reports it.
//
// NOISE:
//   - Any other unterminated run interrupted by a new item start, or left
//     at the end of the section, is discarded.
//   - An unterminated run longer than LookaheadLines sheds its oldest lines;
//     a run that loses its color line is noise from then on.
//
// Usage:
//
//	scanner, err := items.NewBlockScanner(doc, settings)
//	for scanner.Next() {
//	    block := scanner.Block()
//	}
//	noise := scanner.Noise()
type BlockScanner struct {
	settings Settings
	colors   vocabulary
	lines    []types.Line
	pos      int

	open    *pending
	closed  *pending
	queue   []types.ItemBlock
	current types.ItemBlock
	noise   []pending
}

// pending is a block under construction.
type pending struct {
	lines      []types.Line
	terminated bool

	// started is set when the run began at an item start line.
	started bool
}

func (p *pending) add(line types.Line) {
	p.lines = append(p.lines, line)
}

func (p *pending) has(match func(string) bool) bool {
	for _, l := range p.lines {
		if match(l.Text) {
			return true
		}
	}
	return false
}

func (p *pending) all(match func(string) bool) bool {
	for _, l := range p.lines {
		if !match(l.Text) {
			return false
		}
	}
	return true
}

func (p *pending) block() types.ItemBlock {
	b := types.ItemBlock{Terminated: p.terminated}
	if len(p.lines) > 0 {
		b.FirstLine = p.lines[0].Index
	}
	for _, l := range p.lines {
		b.Lines = append(b.Lines, l.Text)
		if n := len(b.Pages); n == 0 || b.Pages[n-1] != l.Page {
			b.Pages = append(b.Pages, l.Page)
		}
	}
	return b
}

// NewBlockScanner locates the item section of doc and prepares a scanner
// over the lines strictly between its start and end markers.
//
// RETURNS:
//   - *BlockScanner: ready to iterate
//   - error: *types.StructureError when either marker is missing
func NewBlockScanner(doc *types.RawDocument, settings Settings) (*BlockScanner, error) {
	settings = settings.withDefaults()
	all := doc.Lines()

	start := -1
	for i, l := range all {
		if startMarkerRe.MatchString(l.Text) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, &types.StructureError{Source: doc.Source, Missing: "item section start marker"}
	}

	end, lastBatch := -1, -1
	for i := start + 1; i < len(all); i++ {
		if endMarkerRe.MatchString(all[i].Text) {
			end = i
			break
		}
		if batchTotalRe.MatchString(all[i].Text) {
			lastBatch = i
		}
	}
	if end < 0 {
		end = lastBatch
	}
	if end < 0 {
		return nil, &types.StructureError{Source: doc.Source, Missing: "item section end marker"}
	}

	lines := make([]types.Line, 0, end-start-1)
	for _, l := range all[start+1 : end] {
		l.Text = strings.TrimSpace(l.Text)
		lines = append(lines, l)
	}

	return &BlockScanner{
		settings: settings,
		colors:   newVocabulary(settings.Colors),
		lines:    lines,
	}, nil
}

// Next advances to the next item block. It returns false when the section
// is exhausted.
func (s *BlockScanner) Next() bool {
	for len(s.queue) == 0 {
		if s.pos >= len(s.lines) {
			s.finish()
			if len(s.queue) == 0 {
				return false
			}
			break
		}
		s.step(s.lines[s.pos])
		s.pos++
	}

	s.current = s.queue[0]
	s.queue = s.queue[1:]
	return true
}

// Block returns the block produced by the last call to Next.
func (s *BlockScanner) Block() types.ItemBlock {
	return s.current
}

// Noise returns the runs of text discarded so far. After Next has returned
// false it holds every discarded run.
func (s *BlockScanner) Noise() []types.ItemBlock {
	out := make([]types.ItemBlock, 0, len(s.noise))
	for i := range s.noise {
		out = append(out, s.noise[i].block())
	}
	return out
}

func (s *BlockScanner) step(line types.Line) {
	text := line.Text
	if text == "" || isSkipLine(text) {
		return
	}

	if s.closed != nil {
		if s.trails(text) {
			s.closed.add(line)
			return
		}
		s.queue = append(s.queue, s.closed.block())
		s.closed = nil
	}

	switch {
	case isTerminal(text):
		if s.open == nil {
			s.open = &pending{}
		}
		s.open.add(line)
		s.open.terminated = true
		s.closed, s.open = s.open, nil

	case s.startsItem(text):
		if s.open != nil && !s.open.all(isCondition) {
			s.release(s.open)
			s.open = nil
		}
		if s.open == nil {
			s.open = &pending{}
		}
		s.open.add(line)
		s.open.started = true

	default:
		if s.open == nil {
			s.open = &pending{}
		}
		s.open.add(line)
		if over := len(s.open.lines) - s.settings.LookaheadLines; over > 0 {
			s.discard(s.open.lines[:over])
			s.open.lines = append([]types.Line(nil), s.open.lines[over:]...)
			s.open.started = s.open.has(s.startsItem)
		}
	}
}

// release hands an unterminated run to the caller when it began at an item
// start, and discards it otherwise.
func (s *BlockScanner) release(p *pending) {
	if p.started && !p.all(isCondition) {
		s.queue = append(s.queue, p.block())
		return
	}
	s.discard(p.lines)
}

// trails reports whether a line continues the item that was just closed.
func (s *BlockScanner) trails(text string) bool {
	if partNumberRe.MatchString(text) && strings.TrimSpace(partNumberRe.ReplaceAllString(text, "")) == "" {
		return !s.closed.has(partNumberRe.MatchString)
	}
	if weightLineRe.MatchString(text) {
		return !s.closed.has(weightAnyRe.MatchString)
	}
	return false
}

func (s *BlockScanner) startsItem(text string) bool {
	_, ok := s.colors.Exact(text)
	return ok
}

// isCondition matches a bare condition line, which may precede the color
// line of the same item.
func isCondition(text string) bool {
	return conditionRe.MatchString(text)
}

func (s *BlockScanner) discard(lines []types.Line) {
	for _, l := range lines {
		if n := len(s.noise); n > 0 {
			last := &s.noise[n-1]
			if last.lines[len(last.lines)-1].Index+1 == l.Index {
				last.add(l)
				continue
			}
		}
		s.noise = append(s.noise, pending{lines: []types.Line{l}})
	}
}

func (s *BlockScanner) finish() {
	if s.closed != nil {
		s.queue = append(s.queue, s.closed.block())
		s.closed = nil
	}
	if s.open != nil {
		s.release(s.open)
		s.open = nil
	}
}
