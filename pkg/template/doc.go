// Package template implements the message template language used across
// Sampark campaigns: named variables ({name}), fallback defaults
// ({name|default}), and conditional sections ({?guard}...{/guard}).
//
// A template string is compiled once into an immutable syntax tree and then
// rendered any number of times against per-contact variable bindings. All
// operations are pure functions over the input; a compiled *Template is safe
// for concurrent use without locking.
//
// Scanning operates on Unicode scalar values, never raw bytes, so Devanagari
// conjuncts and combining marks survive the round trip byte-exact.
package template
