package layer

import (
	"unicode"

	"github.com/gcomneno/onion-compressor-framework/internal/container"
	"github.com/gcomneno/onion-compressor-framework/internal/errs"
	"github.com/gcomneno/onion-compressor-framework/internal/mbn"
)

// VC0Layer classifies every input byte as vowel / consonant / other and
// separates the payload into three streams accordingly. Bytes are
// treated as Latin-1 codepoints when testing alphabetic-ness, so
// non-ASCII Latin-1 letters count as consonants rather than "other".
type VC0Layer struct{}

func (VC0Layer) Code() container.LayerCode { return container.LayerVC0 }

func isVowelByte(b byte) bool {
	switch b {
	case 'a', 'e', 'i', 'o', 'u', 'A', 'E', 'I', 'O', 'U':
		return true
	default:
		return false
	}
}

func (VC0Layer) Encode(data []byte) (Result, error) {
	mask := make([]byte, 0, len(data))
	vowels := make([]byte, 0)
	cons := make([]byte, 0)
	for _, b := range data {
		switch {
		case isVowelByte(b):
			mask = append(mask, 'V')
			vowels = append(vowels, b)
		case unicode.IsLetter(rune(b)):
			mask = append(mask, 'C')
			cons = append(cons, b)
		default:
			mask = append(mask, 'O')
			cons = append(cons, b)
		}
	}
	return Result{Streams: map[uint8][]byte{
		mbn.StypeMask:   mask,
		mbn.StypeVowels: vowels,
		mbn.StypeCons:   cons,
	}}, nil
}

func (VC0Layer) Decode(streams map[uint8][]byte, meta []byte) ([]byte, error) {
	mask, ok := streams[mbn.StypeMask]
	if !ok {
		return nil, errs.NewCorruptPayload("vc0: missing MASK stream", nil)
	}
	vowels := streams[mbn.StypeVowels]
	cons := streams[mbn.StypeCons]

	out := make([]byte, 0, len(mask))
	iv, ic := 0, 0
	for _, m := range mask {
		if m == 'V' {
			if iv >= len(vowels) {
				return nil, errs.NewCorruptPayload("vc0: VOWELS stream exhausted", nil)
			}
			out = append(out, vowels[iv])
			iv++
		} else {
			if ic >= len(cons) {
				return nil, errs.NewCorruptPayload("vc0: CONS stream exhausted", nil)
			}
			out = append(out, cons[ic])
			ic++
		}
	}
	return out, nil
}
