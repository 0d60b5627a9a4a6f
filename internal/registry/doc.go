// Package registry provides the central "glue" between procedure names and
// their compiled binders.
//
// The Registry is responsible for storing mappings between the method
// names that arrive on the wire and the actual compiled Go functions that
// implement them, together with the signature descriptors built once at
// registration time. The dispatch engine looks entries up by name on every
// incoming call; many entries are live at once and lookups may run
// concurrently with registrations.
package registry
