// Package schema models procedure signatures: the ordered parameter
// descriptors (name, primitive type, default, kind) derived once at
// registration time and replayed on every call by the binder.
//
// A Signature is immutable after construction and safe for concurrent
// reads; all mutation happens before it is handed to the registry.
package schema
