// Package app wires the application together: the isolated logger, the
// resolved server configuration, the populated procedure registry and the
// transport's run loop.
package app
