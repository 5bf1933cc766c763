package gapcodec

import (
	"fmt"
	"slices"

	hllerrors "github.com/tamirms/hybridhll/errors"
)

// Code names the gap code of a Stream.
type Code uint8

const (
	CodeRice  Code = 0
	CodeGamma Code = 1
)

// String returns the code name.
func (c Code) String() string {
	switch c {
	case CodeRice:
		return "rice"
	case CodeGamma:
		return "gamma"
	default:
		return "unknown"
	}
}

// Stream is a gap-coded hash list.
type Stream struct {
	Code  Code
	RiceK uint8 // only meaningful for CodeRice
	Count int
	Width uint8
	Data  []byte
}

// Compress codes descending words with the smaller of the best Rice code and
// the gamma code, then checks that the stream decodes back to words.
func Compress(words []uint32, width uint8) (Stream, error) {
	st := Analyze(words, width)
	s := Stream{Count: st.Count, Width: width}
	if st.GammaBits < st.RiceBits {
		s.Code = CodeGamma
		s.Data = EncodeGamma(words)
	} else {
		s.Code = CodeRice
		s.RiceK = st.RiceK
		s.Data = EncodeRice(words, st.RiceK)
	}

	back, err := s.Words()
	if err != nil {
		return Stream{}, err
	}
	if !slices.Equal(back, words) {
		return Stream{}, fmt.Errorf("%w: %s code of %d words", hllerrors.ErrGapStreamMismatch, s.Code, len(words))
	}
	return s, nil
}

// Words decodes the stream into descending words.
func (s Stream) Words() ([]uint32, error) {
	switch s.Code {
	case CodeRice:
		return DecodeRice(s.Data, s.Count, s.RiceK, s.Width)
	case CodeGamma:
		return DecodeGamma(s.Data, s.Count, s.Width)
	default:
		return nil, fmt.Errorf("%w: unknown code %d", hllerrors.ErrGapStreamMismatch, s.Code)
	}
}
