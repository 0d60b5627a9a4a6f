package bind

import "fmt"

// SignatureError reports a procedure whose signature could not be
// introspected or is structurally invalid. It is surfaced synchronously to
// the registration caller; registration does not proceed.
type SignatureError struct {
	Err error
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("invalid procedure signature: %v", e.Err)
}

func (e *SignatureError) Unwrap() error { return e.Err }

// UntypedParameterError reports a parameter that lacks a resolvable
// primitive type at bind time. The descriptor is a valid build artifact;
// only binding it is an error.
type UntypedParameterError struct {
	Name string
}

func (e *UntypedParameterError) Error() string {
	return fmt.Sprintf("parameter %q has no resolvable primitive type", e.Name)
}

// MissingArgumentError reports a required parameter that was absent from
// both name and position lookup and carries no default.
type MissingArgumentError struct {
	Name string
}

func (e *MissingArgumentError) Error() string {
	return fmt.Sprintf("required argument %q is missing", e.Name)
}

// ApplicationError wraps a failure raised by the target procedure itself,
// as opposed to a failure to bind its arguments. Diagnostics use the
// distinction to tell a bad call from a broken procedure.
type ApplicationError struct {
	Err error
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("procedure failed: %v", e.Err)
}

func (e *ApplicationError) Unwrap() error { return e.Err }
