// Package stack composes sub-assemblies into a detector along the beam axis.
//
// A detector's layer-code string is walked once, front to back. Each code
// selects a table [Entry]: which sub-assembly kind to place, its orientation
// about the beam axis, whether it is recentred transversely, and which
// identifier field its layer index goes into.
//
// The only carried state is the running longitudinal offset, held in an
// explicit [State] value. [Step] is the pure transition function:
//
//	offset += half          // enter through the leading face
//	centre  = offset        // place here, with optional transverse shift
//	id      = index*stride + indexOffset
//	offset += half          // leave through the trailing face
//	offset += gapAfter[code]
//
// [Compose] runs Step over a whole code string and returns a [Plan]. Nothing
// here calls a geometry backend, so plans can be checked (see
// [Plan.Validate]) before a single volume is placed.
//
// # Codes
//
// The SplitCal table ([SplitCalTable]):
//
//	1  wide-bar layer,   90° about z
//	2  wide-bar layer,    0°
//	3  thin-bar layer,   90°
//	4  thin-bar layer,    0°
//	5  fibre module,     90°
//	6  fibre module,      0°
//	7  passive plate
//	8  mechanical split
//
// The sandwich calorimeter ([SandwichTable]) uses codes 1, 2 and 7 with its
// own identifier fields and recentres vertical bar layers and passive plates
// by the transverse shift given in [Dimensions].
package stack
