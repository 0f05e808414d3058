package mueller

import "gonum.org/v1/gonum/mat"

// Train is an ordered optical path, listed sky to detector. Evaluation
// multiplies the element matrices so the first-listed element acts first on
// an incoming Stokes vector.
type Train struct {
	elems []Element
}

func NewTrain(elems ...Element) (*Train, error) {
	if len(elems) == 0 {
		return nil, ErrEmptyTrain
	}
	t := &Train{elems: make([]Element, len(elems))}
	copy(t.elems, elems)
	return t, nil
}

// Evaluate recomputes the full 4x4 system matrix from the elements' current
// parameters. Products are cheap and parameters change between nearly every
// evaluation, so nothing is cached.
func (t *Train) Evaluate() *mat.Dense {
	sys := t.elems[0].Mueller()
	for _, e := range t.elems[1:] {
		var next mat.Dense
		next.Mul(e.Mueller(), sys)
		sys = &next
	}
	return sys
}

// Elements returns the path in sky-to-detector order.
func (t *Train) Elements() []Element {
	out := make([]Element, len(t.elems))
	copy(out, t.elems)
	return out
}
