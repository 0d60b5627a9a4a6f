// Package bind compiles registered procedures into replayable binders and
// drives the per-call argument resolution.
//
// NewBinder runs once at registration time: it introspects the handler's
// input struct (or its explicitly declared signature) into an ordered
// schema.Signature and precomputes the field mapping. Invoke runs on every
// call: it pulls each argument out of the call context by name or
// position, applies defaults, coerces wire values into the handler's
// native fields, calls the handler and serializes the result.
package bind
