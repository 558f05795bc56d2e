package models

import "fmt"

// SourceUnreadableError reports a spreadsheet that is missing, corrupt, or has no sheets.
type SourceUnreadableError struct {
	Path   string
	Reason string
	Err    error
}

func (e *SourceUnreadableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("spreadsheet %s unreadable: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("spreadsheet %s unreadable: %s", e.Path, e.Reason)
}

func (e *SourceUnreadableError) Unwrap() error { return e.Err }

// SheetNotFoundError reports a sheet name absent from the workbook.
type SheetNotFoundError struct {
	Sheet     string
	Available []string
}

func (e *SheetNotFoundError) Error() string {
	return fmt.Sprintf("sheet %q not found (available: %v)", e.Sheet, e.Available)
}

// KeyAttributeNotFoundError reports a key attribute that is not a column of the dataset.
type KeyAttributeNotFoundError struct {
	Column string
}

func (e *KeyAttributeNotFoundError) Error() string {
	return fmt.Sprintf("key attribute %q not found in columns", e.Column)
}

// PatternInvalidError reports a regular expression that does not compile.
type PatternInvalidError struct {
	Pattern string
	Err     error
}

func (e *PatternInvalidError) Error() string {
	return fmt.Sprintf("invalid pattern %q: %v", e.Pattern, e.Err)
}

func (e *PatternInvalidError) Unwrap() error { return e.Err }

// FeedbackSourceInvalidError reports a feedback source that was skipped.
type FeedbackSourceInvalidError struct {
	Path   string
	Reason string
	Err    error
}

func (e *FeedbackSourceInvalidError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("feedback source %s invalid: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("feedback source %s invalid: %s", e.Path, e.Reason)
}

func (e *FeedbackSourceInvalidError) Unwrap() error { return e.Err }

// DuplicateKeyReportError reports a second report for a key value that already has one.
// The builder groups rows before rendering, so this signals a bug upstream.
type DuplicateKeyReportError struct {
	Key string
}

func (e *DuplicateKeyReportError) Error() string {
	return fmt.Sprintf("duplicate report for key value %q", e.Key)
}
