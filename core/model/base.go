// Package model holds the fitted-state tracking and the small interfaces
// shared by preprocessing transformers and model families.
package model

// EstimatorState tracks whether a component has been fitted.
type EstimatorState int

const (
	// NotFitted means Fit has not completed yet.
	NotFitted EstimatorState = iota
	// Fitted means Fit completed successfully.
	Fitted
)

// BaseEstimator is embedded by every fittable component.
type BaseEstimator struct {
	state EstimatorState
}

// IsFitted reports whether Fit has completed.
func (e *BaseEstimator) IsFitted() bool {
	return e.state == Fitted
}

// SetFitted marks the component as fitted.
func (e *BaseEstimator) SetFitted() {
	e.state = Fitted
}

// Reset returns the component to the unfitted state.
func (e *BaseEstimator) Reset() {
	e.state = NotFitted
}
