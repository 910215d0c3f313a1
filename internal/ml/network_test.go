package ml

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDemoNetwork_Deterministic(t *testing.T) {
	a := NewDemoNetwork(1)
	b := NewDemoNetwork(1)
	other := NewDemoNetwork(2)

	assert.Equal(t, a.Conv[0].Weight[0][0], b.Conv[0].Weight[0][0])
	assert.Equal(t, a.FC2.Bias, b.FC2.Bias)
	assert.NotEqual(t, a.FC2.Bias, other.FC2.Bias)
}

func TestNewDemoNetwork_ValidShapes(t *testing.T) {
	net := NewDemoNetwork(1)
	require.NoError(t, validateNetwork(net))
}

func TestNetwork_Forward(t *testing.T) {
	net := NewDemoNetwork(1)
	enc := NewEncoder(SyntheticSource{}, 50)
	tensor := enc.Encode("chr22", 42524947, "C", "T")

	logProbs, err := net.Forward(tensor)
	require.NoError(t, err)
	require.Len(t, logProbs, NumClasses)

	// Log-probabilities exponentiate to a distribution.
	var sum float64
	for _, lp := range logProbs {
		assert.LessOrEqual(t, lp, 0.0)
		sum += math.Exp(lp)
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
}

func TestNetwork_Forward_Deterministic(t *testing.T) {
	net := NewDemoNetwork(7)
	enc := NewEncoder(SyntheticSource{}, 50)

	a, err := net.Forward(enc.Encode("chr10", 94781859, "G", "A"))
	require.NoError(t, err)
	b, err := net.Forward(enc.Encode("chr10", 94781859, "G", "A"))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestNetwork_Forward_RejectsWrongChannels(t *testing.T) {
	net := NewDemoNetwork(1)

	_, err := net.Forward(nil)
	require.Error(t, err)

	_, err = net.Forward(NewTensor(3, 101))
	require.Error(t, err)
}

func TestLoadCheckpoint_Roundtrip(t *testing.T) {
	net := NewDemoNetwork(3)
	ckpt := Checkpoint{
		Version: "test",
		Hidden:  net.Hidden,
		Conv:    net.Conv,
		LSTM:    net.LSTM,
		Norm:    net.Norm,
		FC1:     net.FC1,
		BN1:     net.BN1,
		FC2:     net.FC2,
	}

	raw, err := json.Marshal(&ckpt)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "weights.json")
	require.NoError(t, os.WriteFile(path, raw, 0644))

	loaded, err := LoadCheckpoint(path)
	require.NoError(t, err)
	assert.Equal(t, net.Hidden, loaded.Hidden)

	// Loaded weights produce identical outputs.
	enc := NewEncoder(SyntheticSource{}, 50)
	tensor := enc.Encode("chr6", 18130943, "G", "C")
	want, err := net.Forward(tensor)
	require.NoError(t, err)
	got, err := loaded.Forward(tensor)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadCheckpoint_RejectsCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := LoadCheckpoint(path)
	require.Error(t, err)
}

func TestLoadCheckpoint_RejectsBadShapes(t *testing.T) {
	net := NewDemoNetwork(3)
	net.FC2.Weight = net.FC2.Weight[:2] // truncate output layer

	ckpt := Checkpoint{Hidden: net.Hidden, Conv: net.Conv, LSTM: net.LSTM, Norm: net.Norm, FC1: net.FC1, BN1: net.BN1, FC2: net.FC2}
	raw, err := json.Marshal(&ckpt)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "weights.json")
	require.NoError(t, os.WriteFile(path, raw, 0644))

	_, err = LoadCheckpoint(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fc2")
}

func TestLogSoftmax_Stable(t *testing.T) {
	out := logSoftmax([]float32{1000, 1000, 1000, 1000})
	for _, lp := range out {
		assert.InDelta(t, math.Log(0.25), lp, 1e-6)
	}
}
