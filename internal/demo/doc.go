// Package demo provides concrete processor domains used by scenarios and the
// CLI.
//
// Counter is a plain reducer with a delayed increment and a counting stream.
// Search is parameterized by an environment holding a Client and exercises
// debouncing, latest-wins cancellation, and error folding.
//
// Each domain is reachable by name through Lookup, which returns a Driver: a
// type-erased handle that accepts actions by name with loosely typed
// arguments and projects state into plain fields.
package demo
