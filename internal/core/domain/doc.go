// Package domain defines the core entities of vigil.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Chunk: A contiguous analysis unit of one source file
//   - GuidanceSection: A heading-delimited part of a guidance document
//   - Finding: The analysis result for one chunk
//   - FileReport: Findings of one file with a severity summary
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
