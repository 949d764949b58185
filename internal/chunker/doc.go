// Package chunker splits a source file into structural analysis units.
//
// Each top-level function or class becomes one chunk, decorators and nested
// definitions included. Runs of other top-level statements are coalesced
// into global blocks. The resulting chunks never overlap and, for a file
// that parses, cover every line exactly once.
//
// Parsing uses tree-sitter grammars for Python and JavaScript.
package chunker
