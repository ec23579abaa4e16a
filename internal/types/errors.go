package types

import (
	"fmt"
	"strings"
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// StructureError reports that a document lacks a mandatory marker (order
// number, a monetary total, or the item section boundaries). It fails the
// document but never the batch.
type StructureError struct {
	// Source is the document the error belongs to.
	Source string

	// Missing names the absent marker, e.g. "order number".
	Missing string
}

// Error implements the error interface.
func (e *StructureError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("document structure: missing %s", e.Missing)
	}
	return fmt.Sprintf("document structure: %s: missing %s", e.Source, e.Missing)
}

// ParseFailure reports that a single item block could not be turned into an
// ItemRecord. The item is skipped and the document is flagged partially
// parsed.
type ParseFailure struct {
	// Block is the offending block, kept for diagnostic reporting.
	Block ItemBlock

	// Field is the field that could not be located ("quantity", "unit price").
	Field string

	// Reason is a short human-readable explanation.
	Reason string
}

// Error implements the error interface.
func (f *ParseFailure) Error() string {
	first := ""
	if len(f.Block.Lines) > 0 {
		first = f.Block.Lines[0]
	}
	return fmt.Sprintf("item at line %d (%q): %s: %s",
		f.Block.FirstLine+1, first, f.Field, f.Reason)
}

// Diagnostic converts the failure into a diagnostic entry.
func (f *ParseFailure) Diagnostic() Diagnostic {
	return Diagnostic{
		Severity: SeverityWarning,
		Flag:     FlagPartiallyParsed,
		Message:  f.Error(),
		RawText:  strings.TrimSpace(f.Block.RawText()),
	}
}
