// Package errors provides the structured error and warning types used across
// riskbench. Fatal configuration and data errors carry stack traces via
// cockroachdb/errors; per-candidate fit failures are plain error values that
// the tuning orchestrator records instead of propagating.
package errors

import (
	"fmt"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

var (
	warningMutex   sync.Mutex
	warningHandler func(w error)
)

// SetWarningHandler installs a handler for non-fatal warnings such as
// ConvergenceWarning. A nil handler silences warnings.
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// Warn dispatches a warning to the installed handler, if any.
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	if warningHandler != nil {
		warningHandler(w)
	}
}

// ConvergenceWarning is raised when an iterative fit stops at its iteration
// limit without meeting its tolerance.
type ConvergenceWarning struct {
	Algorithm  string
	Iterations int
}

func (w *ConvergenceWarning) Error() string {
	return fmt.Sprintf("%s did not converge within %d iterations", w.Algorithm, w.Iterations)
}

// MarshalZerologObject adds the warning fields to a zerolog event.
func (w *ConvergenceWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("algorithm", w.Algorithm).
		Int("iterations", w.Iterations).
		Str("type", "ConvergenceWarning")
}

// NewConvergenceWarning creates a new ConvergenceWarning.
func NewConvergenceWarning(algorithm string, iterations int) *ConvergenceWarning {
	return &ConvergenceWarning{Algorithm: algorithm, Iterations: iterations}
}

// NotFittedError reports a Predict or Transform call on an unfitted component.
type NotFittedError struct {
	Component string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("riskbench: %s: not fitted. Call Fit() before %s()", e.Component, e.Method)
}

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("component", e.Component).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError creates a NotFittedError with a stack trace.
func NewNotFittedError(component, method string) error {
	return errors.WithStack(&NotFittedError{Component: component, Method: method})
}

// DimensionError reports an input whose shape disagrees with the shape seen
// during fitting. Axis 0 is rows, axis 1 is columns.
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int
}

func (e *DimensionError) Error() string {
	axisName := "columns"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("riskbench: %s: dimension mismatch on %s: expected %d, got %d", e.Op, axisName, e.Expected, e.Got)
}

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("type", "DimensionError")
}

// NewDimensionError creates a DimensionError with a stack trace.
func NewDimensionError(op string, expected, got, axis int) error {
	return errors.WithStack(&DimensionError{Op: op, Expected: expected, Got: got, Axis: axis})
}

// ValidationError reports a parameter that failed validation. Configuration
// errors of this kind are fatal and abort the run before any fitting begins.
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("riskbench: invalid parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError creates a ValidationError with a stack trace.
func NewValidationError(param, reason string, value interface{}) error {
	return errors.WithStack(&ValidationError{ParamName: param, Reason: reason, Value: value})
}

// ValueError reports an argument value an operation cannot work with.
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("riskbench: %s: %s", e.Op, e.Message)
}

// NewValueError creates a ValueError with a stack trace.
func NewValueError(op, message string) error {
	return errors.WithStack(&ValueError{Op: op, Message: message})
}

// StratificationError reports a label class with too few records to satisfy a
// stratified split or fold assignment.
type StratificationError struct {
	Op     string
	Class  string
	Count  int
	Needed int
}

func (e *StratificationError) Error() string {
	return fmt.Sprintf("riskbench: %s: class %q has %d records, need at least %d to stratify", e.Op, e.Class, e.Count, e.Needed)
}

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *StratificationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("class", e.Class).
		Int("count", e.Count).
		Int("needed", e.Needed).
		Str("type", "StratificationError")
}

// NewStratificationError creates a StratificationError with a stack trace.
func NewStratificationError(op, class string, count, needed int) error {
	return errors.WithStack(&StratificationError{Op: op, Class: class, Count: count, Needed: needed})
}

// IncompleteCandidateError reports a hyperparameter candidate that failed on
// at least one cross-validation fold. Its partial scores never enter a
// comparison; the candidate is excluded and its failures surfaced.
type IncompleteCandidateError struct {
	Family   string
	Point    string
	Failures []string
}

func (e *IncompleteCandidateError) Error() string {
	return fmt.Sprintf("riskbench: candidate %s/%s failed %d fold(s): %s",
		e.Family, e.Point, len(e.Failures), strings.Join(e.Failures, "; "))
}

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *IncompleteCandidateError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("family", e.Family).
		Str("point", e.Point).
		Strs("failures", e.Failures).
		Str("type", "IncompleteCandidateError")
}

// NewIncompleteCandidateError creates an IncompleteCandidateError with a
// stack trace.
func NewIncompleteCandidateError(family, point string, failures []string) error {
	return errors.WithStack(&IncompleteCandidateError{Family: family, Point: point, Failures: failures})
}

// Is reports whether err matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps err with a message.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf wraps err with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New creates a new error with a stack trace.
func New(message string) error {
	return errors.New(message)
}

// Newf creates a new formatted error with a stack trace.
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack annotates err with a stack trace.
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ErrEmptyData is returned when a component receives an empty matrix or dataset.
var ErrEmptyData = New("empty data")
