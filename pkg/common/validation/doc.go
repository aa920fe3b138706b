// Package validation provides common validation utilities for constructor
// arguments and configuration parameters across the gopump library.
//
// Every function returns a *errors.ValidationError, which unwraps to
// errors.ErrInvalidArgument, so callers can test failures with errors.Is.
package validation
