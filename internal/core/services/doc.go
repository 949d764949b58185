// Package services implements the driving port interfaces.
// Services contain the core analysis logic and orchestrate
// calls to driven ports (adapters).
//
// Source files are chunked by internal/chunker and guidance documents
// are split by the markdown normaliser before anything reaches a port.
package services
