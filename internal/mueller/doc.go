// Package mueller provides the 4x4 Mueller matrices of the polarimeter's
// optical elements and composes them into an evaluated system matrix.
//
// Each element is a small struct with a defaulted constructor and a pure
// Mueller method mapping its current parameters to a [mat.Dense]:
//
//   - [Rotator]: parallactic-rotation compensator
//   - [Retarder]: general linear retarder; [NewHWP] is the half-wave case
//   - [DiattenuatorRetarder]: non-ideal mirror/derotator (diattenuation +
//     retardance at an orientation)
//   - [WollastonPrism]: beam-splitting analyzer, ordinary or extraordinary
//
// Elements implement [Configurable] for named parameter updates. All angles
// are radians; setters reject values outside [-2π, 2π] so a degrees-for-
// radians mixup fails immediately instead of producing garbage matrices.
//
// A [Train] holds elements in optical-path order (sky to detector) and
// evaluates the full system matrix on demand:
//
//	tr, _ := mueller.NewTrain(rot, hwp, woll)
//	m := tr.Evaluate() // woll * hwp * rot
package mueller
