package ml

import (
	"fmt"
	"math"
)

// Network is the variant function classifier: three convolutional
// feature-extraction blocks (convolution, batch normalization, ReLU, max
// pooling), a two-layer bidirectional LSTM context stage, layer
// normalization, global average pooling over the sequence axis, and a dense
// classification head emitting log-probabilities over the four function
// classes.
//
// All parameters are read-only after construction; Forward allocates its own
// working buffers, so concurrent inference calls are safe.
type Network struct {
	Conv   []ConvBlock
	LSTM   []BiLSTMLayer
	Norm   LayerNorm
	FC1    Dense
	BN1    BatchNorm
	FC2    Dense
	Hidden int // LSTM hidden size per direction
}

// ConvBlock holds one convolution + batch normalization stage. Kernel
// weights are indexed [out][in][tap]; padding is (kernel-1)/2 ("same").
type ConvBlock struct {
	Weight [][][]float32 `json:"weight"`
	Bias   []float32     `json:"bias"`
	BN     BatchNorm     `json:"bn"`
}

// BatchNorm holds inference-mode batch normalization parameters.
type BatchNorm struct {
	Gamma []float32 `json:"gamma"`
	Beta  []float32 `json:"beta"`
	Mean  []float32 `json:"mean"`
	Var   []float32 `json:"var"`
}

// LSTMDirection holds one direction of one LSTM layer. Gate rows are packed
// in input, forget, cell, output order.
type LSTMDirection struct {
	WIH [][]float32 `json:"w_ih"` // [4*hidden][input]
	WHH [][]float32 `json:"w_hh"` // [4*hidden][hidden]
	BIH []float32   `json:"b_ih"`
	BHH []float32   `json:"b_hh"`
}

// BiLSTMLayer pairs the forward and backward directions of one layer.
type BiLSTMLayer struct {
	Fwd LSTMDirection `json:"fwd"`
	Bwd LSTMDirection `json:"bwd"`
}

// LayerNorm holds feature-axis normalization parameters.
type LayerNorm struct {
	Gamma []float32 `json:"gamma"`
	Beta  []float32 `json:"beta"`
}

// Dense is a fully connected layer with Weight indexed [out][in].
type Dense struct {
	Weight [][]float32 `json:"weight"`
	Bias   []float32   `json:"bias"`
}

const bnEpsilon = 1e-5

// NumClasses is the size of the classifier output distribution.
const NumClasses = 4

// Forward runs inference on one encoded window and returns log-probabilities
// over the four function classes.
func (n *Network) Forward(t *Tensor) ([]float64, error) {
	if t == nil || t.Channels != len(Bases) {
		return nil, fmt.Errorf("expected %d input channels", len(Bases))
	}

	x := t.Data
	for i := range n.Conv {
		x = n.Conv[i].apply(x)
		if len(x[0]) == 0 {
			return nil, fmt.Errorf("window too short: convolution stage %d produced empty output", i)
		}
	}

	// Sequence-major view for the recurrent stage: seq[t][feature].
	seqLen := len(x[0])
	features := len(x)
	seq := make([][]float32, seqLen)
	for ti := 0; ti < seqLen; ti++ {
		row := make([]float32, features)
		for c := 0; c < features; c++ {
			row[c] = x[c][ti]
		}
		seq[ti] = row
	}

	for i := range n.LSTM {
		seq = n.LSTM[i].apply(seq, n.Hidden)
	}
	for ti := range seq {
		n.Norm.apply(seq[ti])
	}

	// Global average pool over the sequence axis.
	pooled := make([]float32, len(seq[0]))
	for _, row := range seq {
		for i, v := range row {
			pooled[i] += v
		}
	}
	inv := float32(1.0 / float64(len(seq)))
	for i := range pooled {
		pooled[i] *= inv
	}

	h := n.FC1.apply(pooled)
	n.BN1.apply(h)
	for i, v := range h {
		if v < 0 {
			h[i] = 0
		}
	}
	logits := n.FC2.apply(h)

	return logSoftmax(logits), nil
}

func (b *ConvBlock) apply(x [][]float32) [][]float32 {
	in := len(x)
	length := len(x[0])
	out := len(b.Weight)
	kernel := len(b.Weight[0][0])
	pad := (kernel - 1) / 2

	conv := make([][]float32, out)
	for o := 0; o < out; o++ {
		row := make([]float32, length)
		w := b.Weight[o]
		for t := 0; t < length; t++ {
			acc := b.Bias[o]
			for c := 0; c < in; c++ {
				xc := x[c]
				wc := w[c]
				for k := 0; k < kernel; k++ {
					src := t + k - pad
					if src >= 0 && src < length {
						acc += wc[k] * xc[src]
					}
				}
			}
			row[t] = acc
		}
		b.BN.applyChannel(row, o)
		for t, v := range row {
			if v < 0 {
				row[t] = 0
			}
		}
		conv[o] = maxPool2(row)
	}
	return conv
}

// applyChannel normalizes one channel row in place.
func (bn *BatchNorm) applyChannel(row []float32, c int) {
	scale := float32(float64(bn.Gamma[c]) / math.Sqrt(float64(bn.Var[c])+bnEpsilon))
	shift := bn.Beta[c] - bn.Mean[c]*scale
	for i, v := range row {
		row[i] = v*scale + shift
	}
}

// apply normalizes a feature vector in place (one value per channel).
func (bn *BatchNorm) apply(v []float32) {
	for i := range v {
		scale := float32(float64(bn.Gamma[i]) / math.Sqrt(float64(bn.Var[i])+bnEpsilon))
		v[i] = (v[i]-bn.Mean[i])*scale + bn.Beta[i]
	}
}

func maxPool2(row []float32) []float32 {
	out := make([]float32, len(row)/2)
	for i := range out {
		a, b := row[2*i], row[2*i+1]
		if b > a {
			a = b
		}
		out[i] = a
	}
	return out
}

// apply runs both directions over the sequence and concatenates their hidden
// states per timestep.
func (l *BiLSTMLayer) apply(seq [][]float32, hidden int) [][]float32 {
	fwd := l.Fwd.run(seq, hidden, false)
	bwd := l.Bwd.run(seq, hidden, true)

	out := make([][]float32, len(seq))
	for t := range seq {
		row := make([]float32, 2*hidden)
		copy(row[:hidden], fwd[t])
		copy(row[hidden:], bwd[t])
		out[t] = row
	}
	return out
}

// run executes one direction over the sequence, returning the hidden state
// at each timestep (in original sequence order).
func (d *LSTMDirection) run(seq [][]float32, hidden int, reverse bool) [][]float32 {
	h := make([]float32, hidden)
	c := make([]float32, hidden)
	gates := make([]float32, 4*hidden)
	out := make([][]float32, len(seq))

	for step := 0; step < len(seq); step++ {
		t := step
		if reverse {
			t = len(seq) - 1 - step
		}
		x := seq[t]

		for g := 0; g < 4*hidden; g++ {
			acc := d.BIH[g] + d.BHH[g]
			wi := d.WIH[g]
			for i, xv := range x {
				acc += wi[i] * xv
			}
			wh := d.WHH[g]
			for i, hv := range h {
				acc += wh[i] * hv
			}
			gates[g] = acc
		}

		// Gate packing follows input, forget, cell, output order.
		next := make([]float32, hidden)
		for i := 0; i < hidden; i++ {
			ig := sigmoid(gates[i])
			fg := sigmoid(gates[hidden+i])
			gg := tanh32(gates[2*hidden+i])
			og := sigmoid(gates[3*hidden+i])
			c[i] = fg*c[i] + ig*gg
			next[i] = og * tanh32(c[i])
		}
		h = next
		out[t] = h
	}
	return out
}

// apply normalizes a feature row in place over the feature axis.
func (ln *LayerNorm) apply(row []float32) {
	var mean float64
	for _, v := range row {
		mean += float64(v)
	}
	mean /= float64(len(row))

	var variance float64
	for _, v := range row {
		d := float64(v) - mean
		variance += d * d
	}
	variance /= float64(len(row))

	inv := 1.0 / math.Sqrt(variance+bnEpsilon)
	for i, v := range row {
		row[i] = float32((float64(v)-mean)*inv)*ln.Gamma[i] + ln.Beta[i]
	}
}

func (d *Dense) apply(x []float32) []float32 {
	out := make([]float32, len(d.Weight))
	for o := range d.Weight {
		acc := d.Bias[o]
		w := d.Weight[o]
		for i, xv := range x {
			acc += w[i] * xv
		}
		out[o] = acc
	}
	return out
}

// logSoftmax computes numerically stable log-probabilities using the
// log-sum-exp trick.
func logSoftmax(logits []float32) []float64 {
	maxV := float64(logits[0])
	for _, v := range logits[1:] {
		if float64(v) > maxV {
			maxV = float64(v)
		}
	}
	var sum float64
	for _, v := range logits {
		sum += math.Exp(float64(v) - maxV)
	}
	lse := maxV + math.Log(sum)

	out := make([]float64, len(logits))
	for i, v := range logits {
		out[i] = float64(v) - lse
	}
	return out
}

func sigmoid(x float32) float32 {
	return float32(1.0 / (1.0 + math.Exp(-float64(x))))
}

func tanh32(x float32) float32 {
	return float32(math.Tanh(float64(x)))
}
