package draw

import "errors"

var (
	// ErrTransformStackUnderflow is returned by PopTransform when the stack
	// is empty. The stack is left untouched.
	ErrTransformStackUnderflow = errors.New("transform stack underflow")

	// ErrUnknownParam is returned by SetParam when the active shader does not
	// declare a parameter with the given name.
	ErrUnknownParam = errors.New("unknown shader parameter")

	// ErrParamKind is returned by SetParam when the value's kind or uniform
	// type does not match the parameter's declaration.
	ErrParamKind = errors.New("shader parameter kind mismatch")
)
