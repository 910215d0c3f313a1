package ml

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
)

// Checkpoint is the serialized weight file layout. All tensors are stored as
// nested JSON arrays under named fields so checkpoints exported by the
// training pipeline can be validated field by field.
type Checkpoint struct {
	Version string        `json:"version"`
	Hidden  int           `json:"hidden"`
	Conv    []ConvBlock   `json:"conv"`
	LSTM    []BiLSTMLayer `json:"lstm"`
	Norm    LayerNorm     `json:"layer_norm"`
	FC1     Dense         `json:"fc1"`
	BN1     BatchNorm     `json:"bn1"`
	FC2     Dense         `json:"fc2"`
}

// Fixed architecture dimensions. Checkpoints must match exactly.
var convChannels = []int{len(Bases), 64, 128, 256}

const (
	convKernel = 7
	lstmLayers = 2
	lstmHidden = 128
	fc1Width   = 128
)

// LoadCheckpoint reads and validates a weight file, returning the network.
func LoadCheckpoint(path string) (*Network, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading checkpoint: %w", err)
	}

	var ckpt Checkpoint
	if err := json.Unmarshal(raw, &ckpt); err != nil {
		return nil, fmt.Errorf("parsing checkpoint: %w", err)
	}

	net := &Network{
		Conv:   ckpt.Conv,
		LSTM:   ckpt.LSTM,
		Norm:   ckpt.Norm,
		FC1:    ckpt.FC1,
		BN1:    ckpt.BN1,
		FC2:    ckpt.FC2,
		Hidden: ckpt.Hidden,
	}
	if net.Hidden == 0 {
		net.Hidden = lstmHidden
	}
	if err := validateNetwork(net); err != nil {
		return nil, fmt.Errorf("checkpoint %s: %w", path, err)
	}
	return net, nil
}

// validateNetwork checks every tensor shape against the fixed architecture.
func validateNetwork(n *Network) error {
	if len(n.Conv) != len(convChannels)-1 {
		return fmt.Errorf("expected %d conv blocks, got %d", len(convChannels)-1, len(n.Conv))
	}
	for i, blk := range n.Conv {
		in, out := convChannels[i], convChannels[i+1]
		if len(blk.Weight) != out || len(blk.Bias) != out {
			return fmt.Errorf("conv block %d: expected %d output channels", i, out)
		}
		for o := range blk.Weight {
			if len(blk.Weight[o]) != in {
				return fmt.Errorf("conv block %d: expected %d input channels", i, in)
			}
			for c := range blk.Weight[o] {
				if len(blk.Weight[o][c]) != convKernel {
					return fmt.Errorf("conv block %d: expected kernel size %d", i, convKernel)
				}
			}
		}
		if err := validateBN(&blk.BN, out); err != nil {
			return fmt.Errorf("conv block %d: %w", i, err)
		}
	}

	if len(n.LSTM) != lstmLayers {
		return fmt.Errorf("expected %d LSTM layers, got %d", lstmLayers, len(n.LSTM))
	}
	for i, layer := range n.LSTM {
		input := convChannels[len(convChannels)-1]
		if i > 0 {
			input = 2 * n.Hidden
		}
		for _, dir := range []*LSTMDirection{&layer.Fwd, &layer.Bwd} {
			if len(dir.WIH) != 4*n.Hidden || len(dir.WHH) != 4*n.Hidden ||
				len(dir.BIH) != 4*n.Hidden || len(dir.BHH) != 4*n.Hidden {
				return fmt.Errorf("LSTM layer %d: expected %d gate rows", i, 4*n.Hidden)
			}
			for g := range dir.WIH {
				if len(dir.WIH[g]) != input || len(dir.WHH[g]) != n.Hidden {
					return fmt.Errorf("LSTM layer %d: bad gate row width", i)
				}
			}
		}
	}

	width := 2 * n.Hidden
	if len(n.Norm.Gamma) != width || len(n.Norm.Beta) != width {
		return fmt.Errorf("layer norm: expected width %d", width)
	}
	if len(n.FC1.Weight) != fc1Width || len(n.FC1.Bias) != fc1Width {
		return fmt.Errorf("fc1: expected %d outputs", fc1Width)
	}
	for o := range n.FC1.Weight {
		if len(n.FC1.Weight[o]) != width {
			return fmt.Errorf("fc1: expected %d inputs", width)
		}
	}
	if err := validateBN(&n.BN1, fc1Width); err != nil {
		return fmt.Errorf("bn1: %w", err)
	}
	if len(n.FC2.Weight) != NumClasses || len(n.FC2.Bias) != NumClasses {
		return fmt.Errorf("fc2: expected %d outputs", NumClasses)
	}
	for o := range n.FC2.Weight {
		if len(n.FC2.Weight[o]) != fc1Width {
			return fmt.Errorf("fc2: expected %d inputs", fc1Width)
		}
	}
	return nil
}

func validateBN(bn *BatchNorm, width int) error {
	if len(bn.Gamma) != width || len(bn.Beta) != width || len(bn.Mean) != width || len(bn.Var) != width {
		return fmt.Errorf("batch norm: expected width %d", width)
	}
	return nil
}

// NewDemoNetwork builds a network with deterministic pseudorandom weights
// seeded from the configuration. Used when no checkpoint is available:
// predictions are illustrative only and every confidence is clamped
// downstream, but determinism is preserved across processes.
func NewDemoNetwork(seed int64) *Network {
	rng := rand.New(rand.NewSource(seed))

	uniform := func() float32 { return float32(rng.Float64()*0.2 - 0.1) }
	vec := func(n int, fill func() float32) []float32 {
		v := make([]float32, n)
		for i := range v {
			v[i] = fill()
		}
		return v
	}
	ones := func() float32 { return 1.0 }
	zeros := func() float32 { return 0.0 }
	mat := func(rows, cols int) [][]float32 {
		m := make([][]float32, rows)
		for i := range m {
			m[i] = vec(cols, uniform)
		}
		return m
	}

	net := &Network{Hidden: lstmHidden}

	for i := 0; i+1 < len(convChannels); i++ {
		in, out := convChannels[i], convChannels[i+1]
		w := make([][][]float32, out)
		for o := range w {
			w[o] = mat(in, convKernel)
		}
		net.Conv = append(net.Conv, ConvBlock{
			Weight: w,
			Bias:   vec(out, uniform),
			BN:     BatchNorm{Gamma: vec(out, ones), Beta: vec(out, zeros), Mean: vec(out, zeros), Var: vec(out, ones)},
		})
	}

	for i := 0; i < lstmLayers; i++ {
		input := convChannels[len(convChannels)-1]
		if i > 0 {
			input = 2 * lstmHidden
		}
		dir := func() LSTMDirection {
			return LSTMDirection{
				WIH: mat(4*lstmHidden, input),
				WHH: mat(4*lstmHidden, lstmHidden),
				BIH: vec(4*lstmHidden, uniform),
				BHH: vec(4*lstmHidden, uniform),
			}
		}
		net.LSTM = append(net.LSTM, BiLSTMLayer{Fwd: dir(), Bwd: dir()})
	}

	width := 2 * lstmHidden
	net.Norm = LayerNorm{Gamma: vec(width, ones), Beta: vec(width, zeros)}
	net.FC1 = Dense{Weight: mat(fc1Width, width), Bias: vec(fc1Width, uniform)}
	net.BN1 = BatchNorm{Gamma: vec(fc1Width, ones), Beta: vec(fc1Width, zeros), Mean: vec(fc1Width, zeros), Var: vec(fc1Width, ones)}
	net.FC2 = Dense{Weight: mat(NumClasses, fc1Width), Bias: vec(NumClasses, uniform)}

	return net
}
