package mueller

import "errors"

var (
	// ErrUnitMismatch flags an angle that cannot be radians (|a| > 2π).
	ErrUnitMismatch = errors.New("angle out of radian range")

	// ErrParamRange flags a physical coefficient outside its valid interval.
	ErrParamRange = errors.New("parameter out of range")

	// ErrUnknownParam flags a SetParam name the element does not have.
	ErrUnknownParam = errors.New("unknown param")

	// ErrEmptyTrain is returned when composing a train with no elements.
	ErrEmptyTrain = errors.New("optical train has no elements")

	// ErrBadBeam flags a Wollaston beam selector other than o/e.
	ErrBadBeam = errors.New("beam must be o or e")
)
