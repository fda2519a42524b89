// Package assembly builds one-layer module volumes from repeated elementary
// shapes.
//
// A sub-assembly is a named volume holding N copies of one [ElementSpec]
// placed along the transverse (x) axis at a fixed pitch. The stack composer
// only ever sees a sub-assembly's half-thickness and transverse extents; it
// never looks inside.
//
// # Row Conventions
//
// Element centres follow [Row]: centre(i) = Start + i*Pitch. Two conventions
// are used and must be picked per sub-assembly kind:
//
//   - Edge: bars start flush against the envelope edge,
//     Start = -envelopeHalfX + halfWidth and Pitch = 2*halfWidth + extra.
//   - Half-bar-plus-increment: Start = halfWidth and Pitch = spacing, measured
//     from the module origin.
//
// [EdgeRow] and [IncrementRow] construct each convention.
//
// # Fibre Modules
//
// A fibre module stacks rows of fibres along z. Even rows are full rows of
// Count fibres; odd rows hold Count-1 fibres shifted by one fibre radius.
// Rows are separated by one fibre diameter plus twice the tolerance.
//
// # Two Phases
//
// Every spec has a pure Plan method that computes element centres and checks
// that they fit, and a [Builder] method that materializes the plan in a
// backend. Detector constructors plan every sub-assembly before placing
// anything so configuration and overflow errors never leave a half-built
// detector behind.
package assembly
