package counter

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	errNotJSON        = errors.New("payload is not valid JSON")
	errMissingHeader  = errors.New("missing Report_Header")
	errWrongRelease   = errors.New("unsupported COUNTER release")
	errWrongReport    = errors.New("report ID mismatch")
	errNoItems        = errors.New("report has no usage items")
	errMissingCreated = errors.New("header has no Created timestamp")
)

// codeNoUsage is the header exception explaining a legitimately empty
// report ("No Usage Available for Requested Dates").
const codeNoUsage = 3030

// ValidationError wraps the reason a payload failed schema validation so
// the worker can distinguish it from transport or storage errors.
type ValidationError struct {
	reason error
}

func (e ValidationError) Error() string {
	return e.reason.Error()
}

func (e ValidationError) Unwrap() error {
	return e.reason
}

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// Validator checks structural and semantic conformance of raw payloads to
// the expected report schema release.
type Validator struct {
	release string
}

// NewValidator creates a validator for the given COUNTER release
// (currently always "5").
func NewValidator(release string) *Validator {
	if release == "" {
		release = "5"
	}
	return &Validator{release: release}
}

// Validate decodes and checks a raw payload against the expected report
// name. A non-nil error is always a ValidationError.
func (v *Validator) Validate(raw []byte, expectedReport string) (*Report, error) {
	var rpt Report
	if err := json.Unmarshal(raw, &rpt); err != nil {
		return nil, ValidationError{reason: fmt.Errorf("%w: %v", errNotJSON, err)}
	}

	h := rpt.Header
	if h.ReportID == "" && h.Release == "" {
		return nil, ValidationError{reason: errMissingHeader}
	}
	if h.Release != v.release {
		return nil, ValidationError{reason: fmt.Errorf("%w: got %q, want %q", errWrongRelease, h.Release, v.release)}
	}
	if !strings.EqualFold(h.ReportID, expectedReport) {
		return nil, ValidationError{reason: fmt.Errorf("%w: got %q, want %q", errWrongReport, h.ReportID, expectedReport)}
	}
	if h.Created == "" {
		return nil, ValidationError{reason: errMissingCreated}
	}
	if len(rpt.Items) == 0 && !h.HasException(codeNoUsage) {
		return nil, ValidationError{reason: errNoItems}
	}

	return &rpt, nil
}
