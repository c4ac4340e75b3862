// Package jvm models the slice of the Java Virtual Machine that the
// benchmark suites exercise: method identities, a small value universe,
// a decoded instruction set and the suite directories that carry them.
//
// # Method identities
//
// Methods are addressed by fully qualified name plus descriptor, written
//
//	jpamb.cases.Simple.assertInteger:(I)V
//
// ParseMethodID turns that form into a MethodID; MethodID.String prints it
// back unchanged. Only the descriptor types the suites use are understood:
// int, boolean, char, java.lang.String, int[] and char[].
//
// # Values
//
// Value is a tagged union over those types plus null and heap references.
// Accessors panic when asked for the wrong kind, mirroring how the
// interpreter treats a type confusion as an implementation bug rather than
// a runtime outcome.
//
// # Suites
//
// A benchmark suite is a directory with one JSON file per class under
// decompiled/. Suite reads and decodes them lazily, method by method, and
// MapSource substitutes an in-memory table where tests need full control.
package jvm
