// Package ml implements the sequence window encoder and the neural fallback
// classifier used when a variant cannot be resolved against the curated
// reference table.
package ml

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Bases is the nucleotide ordering used throughout the model. The row index
// of each base in the one-hot tensor must stay fixed.
const Bases = "ACGT"

// Tensor is a channels-by-length float32 matrix holding the one-hot encoded
// nucleotide window: Data[base][position].
type Tensor struct {
	Channels int
	Length   int
	Data     [][]float32
}

// NewTensor allocates a zeroed tensor.
func NewTensor(channels, length int) *Tensor {
	data := make([][]float32, channels)
	for i := range data {
		data[i] = make([]float32, length)
	}
	return &Tensor{Channels: channels, Length: length, Data: data}
}

// SequenceSource supplies the nucleotide window around a variant position.
// The default implementation is synthetic; a reference-genome-backed source
// can replace it without touching the encoder or classifier contracts.
type SequenceSource interface {
	// Window returns the (2*flank+1)-length sequence centered on pos with
	// the variant's alternate allele substituted at the center base.
	Window(chrom string, pos int64, ref, alt string, flank int) string
}

// SyntheticSource derives flanking sequence deterministically from a hash of
// the variant coordinate. Reproducible across calls and processes but not
// biologically accurate: a documented fidelity limitation of the prototype,
// not a defect.
type SyntheticSource struct{}

// Window implements SequenceSource.
func (SyntheticSource) Window(chrom string, pos int64, ref, alt string, flank int) string {
	total := flank*2 + 1

	seed := fmt.Sprintf("%s:%d:%s:%s", chrom, pos, ref, alt)
	sum := sha256.Sum256([]byte(seed))
	digest := hex.EncodeToString(sum[:])

	// Map hex digits onto ACGT, four hex symbols per base.
	var sb strings.Builder
	sb.Grow(total + len(digest))
	for sb.Len() < total+1 {
		for _, c := range digest {
			sb.WriteByte(hexToBase(byte(c)))
		}
	}
	raw := sb.String()

	center := centerBase(ref, alt)
	return raw[:flank] + string(center) + raw[flank+1:flank+1+flank]
}

func hexToBase(c byte) byte {
	switch {
	case c >= '0' && c <= '3':
		return 'A'
	case c >= '4' && c <= '7':
		return 'C'
	case (c >= '8' && c <= '9') || c == 'a' || c == 'b':
		return 'G'
	default:
		return 'T'
	}
}

// centerBase picks the base substituted at the window center: the first base
// of the alternate allele when it is a plain nucleotide, else the first base
// of the reference, else 'A'.
func centerBase(ref, alt string) byte {
	for _, s := range []string{alt, ref} {
		if s == "" {
			continue
		}
		b := s[0]
		if b >= 'a' {
			b -= 'a' - 'A'
		}
		if strings.IndexByte(Bases, b) >= 0 {
			return b
		}
	}
	return 'A'
}

// Encoder builds fixed-width one-hot tensors from variant coordinates.
// Identical (chrom, pos, ref, alt) inputs always yield identical encodings.
type Encoder struct {
	source SequenceSource
	flank  int
}

// NewEncoder creates an encoder with the given flank length; the encoded
// window length is 2*flank+1 (odd, variant-centered).
func NewEncoder(source SequenceSource, flank int) *Encoder {
	if source == nil {
		source = SyntheticSource{}
	}
	return &Encoder{source: source, flank: flank}
}

// WindowLength returns the encoded window length.
func (e *Encoder) WindowLength() int {
	return e.flank*2 + 1
}

// Encode builds the (4 x window) one-hot tensor for a variant coordinate.
// Bases outside the ACGT alphabet encode as all-zero columns.
func (e *Encoder) Encode(chrom string, pos int64, ref, alt string) *Tensor {
	seq := e.source.Window(chrom, pos, ref, alt, e.flank)
	t := NewTensor(len(Bases), e.WindowLength())
	for i := 0; i < len(seq) && i < t.Length; i++ {
		b := seq[i]
		if b >= 'a' {
			b -= 'a' - 'A'
		}
		if idx := strings.IndexByte(Bases, b); idx >= 0 {
			t.Data[idx][i] = 1.0
		}
	}
	return t
}
