// Package config loads the server's HCL configuration: the listen address,
// the dispatch queue and worker sizing, the response size cap, and the
// optional run limits (max processed calls / max wall time).
package config
