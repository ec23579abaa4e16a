// =============================================================================
// Landed Cost Calculator - Validation Engine
// =============================================================================
//
// This module checks the flat output records of a run before they are
// written. The parser already flags what it could not read; validation
// catches rows that were read but make no sense, and problems that only
// show up across documents.
//
// VALIDATION LEVELS:
//   1. Record-level: each row on its own (quantity, prices, rate, date)
//   2. Batch-level: rows from different files (the same order twice)
//
// ERROR HANDLING:
//   - Errors are collected, never returned early unless StopOnFirstError
//   - Each error names the source file, row, field, value and rule
//   - "error" marks a row that should not be trusted; "warning" marks one
//     worth a look. Neither removes the row from the output.
//
// =============================================================================

package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/invoice-landed-cost/internal/types"
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Rule names. They double as diagnostic flags in the run outputs.
const (
	RuleOrderNumber   = "missing-order-number"
	RuleQuantity      = "invalid-quantity"
	RuleUnitPrice     = "negative-unit-price"
	RuleAdjustedPrice = "negative-adjusted-price"
	RuleOverheadSign  = "overhead-sign-mismatch"
	RuleExchangeRate  = "invalid-exchange-rate"
	RuleOrderDate     = "unparsed-order-date"
	RuleDuplicate     = "duplicate-order"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError represents a single validation finding.
type ValidationError struct {
	// Severity is SeverityError or SeverityWarning.
	Severity string

	// Source is the input file the row came from.
	Source string

	// OrderNumber identifies the order, when known.
	OrderNumber string

	// Row is the 1-based position of the record in the validated slice.
	// Zero for batch-level findings.
	Row int

	// Field is the output column that failed.
	Field string

	// Value is the offending value as text.
	Value string

	// Rule is the violated rule, one of the Rule constants.
	Rule string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	where := e.Source
	if e.Row > 0 {
		where = fmt.Sprintf("%s row %d", e.Source, e.Row)
	}
	return fmt.Sprintf("[%s] %s, order %s, field '%s': %s (value: '%s')",
		strings.ToUpper(e.Severity), where, e.OrderNumber, e.Field, e.Message, e.Value)
}

// Diagnostic converts the finding to a per-document diagnostic.
func (e *ValidationError) Diagnostic() types.Diagnostic {
	severity := types.SeverityWarning
	if e.Severity == SeverityError {
		severity = types.SeverityError
	}
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s (value %q)", e.Field, e.Message, e.Value)
	}
	return types.Diagnostic{Severity: severity, Flag: types.Flag(e.Rule), Message: msg}
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult contains the results of validation.
type ValidationResult struct {
	// IsValid is true if there are no errors (warnings allowed, unless
	// TreatWarningsAsErrors is set).
	IsValid bool

	// Errors contains all findings, warnings included, in row order.
	Errors []*ValidationError

	ErrorCount   int
	WarningCount int

	// RecordsValidated is the number of rows checked.
	RecordsValidated int
}

// =============================================================================
// VALIDATOR
// =============================================================================

// ValidationOptions contains options for validation.
type ValidationOptions struct {
	// StopOnFirstError stops validation after the first error.
	StopOnFirstError bool

	// TreatWarningsAsErrors makes any warning invalidate the result.
	TreatWarningsAsErrors bool

	// SkipBatchChecks disables cross-document checks.
	SkipBatchChecks bool
}

// DefaultValidationOptions returns the default validation options.
func DefaultValidationOptions() ValidationOptions {
	return ValidationOptions{}
}

// Validator checks output records.
type Validator struct {
	options ValidationOptions
}

// NewValidator creates a new Validator with the given options.
func NewValidator(options ValidationOptions) *Validator {
	return &Validator{options: options}
}

// Validate checks records with the default options and returns the findings.
func Validate(records []types.OutputRecord) []*ValidationError {
	return NewValidator(DefaultValidationOptions()).ValidateAll(records).Errors
}

// ValidateAll checks every record and then the batch as a whole.
//
// PARAMETERS:
//   - records: The rows of a run, in output order.
//
// RETURNS:
//   - The findings and counts.
func (v *Validator) ValidateAll(records []types.OutputRecord) *ValidationResult {
	result := &ValidationResult{
		IsValid:          true,
		Errors:           make([]*ValidationError, 0),
		RecordsValidated: len(records),
	}

	add := func(errs []*ValidationError) bool {
		for _, err := range errs {
			result.Errors = append(result.Errors, err)
			if err.Severity == SeverityError {
				result.ErrorCount++
				result.IsValid = false
				if v.options.StopOnFirstError {
					return false
				}
				continue
			}
			result.WarningCount++
			if v.options.TreatWarningsAsErrors {
				result.IsValid = false
			}
		}
		return true
	}

	for i := range records {
		if !add(v.ValidateRecord(&records[i], i+1)) {
			return result
		}
	}

	if !v.options.SkipBatchChecks {
		add(duplicateOrders(records))
	}

	return result
}

// ValidateRecord checks a single row.
//
// PARAMETERS:
//   - rec: The row to check.
//   - row: Its 1-based position, used in messages.
//
// RETURNS:
//   - The findings for this row, nil if it is clean.
func (v *Validator) ValidateRecord(rec *types.OutputRecord, row int) []*ValidationError {
	var errs []*ValidationError
	fail := func(severity, field, value, rule, msg string) {
		errs = append(errs, &ValidationError{
			Severity:    severity,
			Source:      rec.SourceFile,
			OrderNumber: rec.OrderNumber,
			Row:         row,
			Field:       field,
			Value:       value,
			Rule:        rule,
			Message:     msg,
		})
	}

	if strings.TrimSpace(rec.OrderNumber) == "" {
		fail(SeverityError, "Order_Number", "", RuleOrderNumber, "order number is empty")
	}

	if rec.Quantity < 1 {
		fail(SeverityError, "Quantity", fmt.Sprint(rec.Quantity), RuleQuantity, "quantity must be at least 1")
	}

	if rec.OriginalUnitPrice.IsNegative() {
		fail(SeverityError, "Original_Unit_Price", rec.OriginalUnitPrice.String(), RuleUnitPrice,
			"unit price is negative")
	}

	// Credit larger than the other charges can push a cheap item below zero.
	if rec.AdjustedUnitPrice.IsNegative() {
		fail(SeverityWarning, "Adjusted_Unit_Price", rec.AdjustedUnitPrice.String(), RuleAdjustedPrice,
			"credit exceeds the item's value")
	}

	if diff := rec.AdjustedTotal.Sub(rec.OriginalTotal); diff.Sign() != 0 &&
		rec.OverheadPercentage.Sign() != 0 && diff.Sign() != rec.OverheadPercentage.Sign() {
		fail(SeverityError, "Adjusted_Total", rec.AdjustedTotal.StringFixed(2), RuleOverheadSign,
			fmt.Sprintf("moves against an overhead of %s%%", rec.OverheadPercentage.StringFixed(2)))
	}

	if !rec.ExchangeRate.IsZero() && !rec.ExchangeRate.IsPositive() {
		fail(SeverityError, "Exchange_Rate", rec.ExchangeRate.String(), RuleExchangeRate,
			"exchange rate must be positive")
	}

	if rec.OrderDate != "" {
		if _, err := time.Parse("2006-01-02", rec.OrderDate); err != nil {
			fail(SeverityWarning, "Order_Date", rec.OrderDate, RuleOrderDate,
				"date kept as printed")
		}
	}

	return errs
}

// duplicateOrders reports order numbers that appear in more than one file,
// which usually means the same invoice was exported twice.
func duplicateOrders(records []types.OutputRecord) []*ValidationError {
	type orderSeen struct {
		first  string
		amount decimal.Decimal
	}
	seen := make(map[string]*orderSeen)
	reported := make(map[string]bool)
	var errs []*ValidationError

	for _, rec := range records {
		if rec.OrderNumber == "" {
			continue
		}
		s, ok := seen[rec.OrderNumber]
		if !ok {
			seen[rec.OrderNumber] = &orderSeen{first: rec.SourceFile, amount: rec.GrandTotal}
			continue
		}
		key := rec.OrderNumber + "\x00" + rec.SourceFile
		if s.first == rec.SourceFile || reported[key] {
			continue
		}
		reported[key] = true
		errs = append(errs, &ValidationError{
			Severity:    SeverityWarning,
			Source:      rec.SourceFile,
			OrderNumber: rec.OrderNumber,
			Field:       "Order_Number",
			Value:       rec.OrderNumber,
			Rule:        RuleDuplicate,
			Message: fmt.Sprintf("order also read from %s (grand total %s vs %s)",
				s.first, s.amount.StringFixed(2), rec.GrandTotal.StringFixed(2)),
		})
	}
	return errs
}

// =============================================================================
// FORMATTING
// =============================================================================

// FormatErrors formats findings for display or logging.
func FormatErrors(errors []*ValidationError) string {
	if len(errors) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder
	fmt.Fprintf(&builder, "Validation completed with %d finding(s):\n\n", len(errors))
	for i, err := range errors {
		fmt.Fprintf(&builder, "%d. %s\n", i+1, err.Error())
	}
	return builder.String()
}
