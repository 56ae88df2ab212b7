package sendfx

import "testing"

// gainEffector is a minimal Effector stub used to exercise Chain without
// depending on any concrete DSP implementation — the real reverb/delay/
// granular bus effects are external collaborators, installed by the
// caller at the mixer's SetBusEffect interface, not owned by this package.
type gainEffector struct {
	gain   float32
	resets int
}

func (g *gainEffector) Process(l, r float32) (float32, float32) {
	return l * g.gain, r * g.gain
}

func (g *gainEffector) Reset() {
	g.resets++
}

func TestChainAppliesEffectsInOrder(t *testing.T) {
	c := NewChain(&gainEffector{gain: 0.5}, &gainEffector{gain: 2})
	l, r := c.Process(1, 1)
	if l != 1 || r != 1 {
		t.Errorf("0.5 then 2 gain should net to unity, got l=%f r=%f", l, r)
	}
}

func TestChainAddAppendsToEnd(t *testing.T) {
	c := NewChain(&gainEffector{gain: 0.5})
	c.Add(&gainEffector{gain: 0.5})
	l, _ := c.Process(1, 1)
	if l != 0.25 {
		t.Errorf("appended effect should also apply, got l=%f", l)
	}
}

func TestChainResetPropagatesToEveryEffect(t *testing.T) {
	a := &gainEffector{gain: 1}
	b := &gainEffector{gain: 1}
	c := NewChain(a, b)
	c.Reset()
	if a.resets != 1 || b.resets != 1 {
		t.Errorf("Reset should reach every chained effect, got a=%d b=%d", a.resets, b.resets)
	}
}
