package layer

import (
	"github.com/gcomneno/onion-compressor-framework/internal/container"
	"github.com/gcomneno/onion-compressor-framework/internal/errs"
	"github.com/gcomneno/onion-compressor-framework/internal/mbn"
	"github.com/gcomneno/onion-compressor-framework/internal/varint"
)

func isASCIILetter(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

func isVowelASCII(b byte) bool {
	switch b {
	case 'a', 'e', 'i', 'o', 'u', 'A', 'E', 'I', 'O', 'U':
		return true
	}
	return false
}

// splitWordIntoSyllables breaks right after every vowel, a block per
// run of consonants that precedes it, trailing consonants form a final
// block.
func splitWordIntoSyllables(word []byte) [][]byte {
	var out [][]byte
	var cur []byte
	for _, b := range word {
		cur = append(cur, b)
		if isVowelASCII(b) {
			out = append(out, cur)
			cur = nil
		}
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

// tokenizeByLetterRuns splits data into maximal ASCII-letter runs and
// maximal non-letter runs, optionally further splitting letter runs
// into pseudo-syllables.
func tokenizeByLetterRuns(data []byte, syllabize bool) [][]byte {
	var tokens [][]byte
	i, n := 0, len(data)
	for i < n {
		if isASCIILetter(data[i]) {
			start := i
			i++
			for i < n && isASCIILetter(data[i]) {
				i++
			}
			word := data[start:i]
			if syllabize {
				tokens = append(tokens, splitWordIntoSyllables(word)...)
			} else {
				tokens = append(tokens, word)
			}
		} else {
			start := i
			i++
			for i < n && !isASCIILetter(data[i]) {
				i++
			}
			tokens = append(tokens, data[start:i])
		}
	}
	return tokens
}

func encodeTokenStream(tokens [][]byte) (ids []uint64, vocab [][]byte) {
	index := map[string]int{}
	for _, tok := range tokens {
		key := string(tok)
		j, ok := index[key]
		if !ok {
			j = len(vocab)
			index[key] = j
			vocab = append(vocab, tok)
		}
		ids = append(ids, uint64(j))
	}
	return ids, vocab
}

func decodeTokenStream(streams map[uint8][]byte, meta []byte, what string) ([]byte, error) {
	var vocab [][]byte
	var err error
	if len(meta) > 0 {
		vocab, err = UnpackVocabList(meta)
		if err != nil {
			return nil, err
		}
	}
	main, ok := streams[mbn.StypeMain]
	if !ok {
		return nil, errs.NewCorruptPayload(what+": missing MAIN stream", nil)
	}
	ids, err := varint.DecodeUints(main)
	if err != nil {
		return nil, err
	}
	var out []byte
	for _, id := range ids {
		if id >= uint64(len(vocab)) {
			return nil, errs.NewCorruptPayload(what+": id out of range", nil)
		}
		out = append(out, vocab[id]...)
	}
	return out, nil
}

// SyllablesItLayer tokenizes ASCII letter runs into pseudo-syllables
// (splitting after each vowel) and non-letter runs as single tokens,
// then emits a vocabulary-index stream.
type SyllablesItLayer struct{}

func (SyllablesItLayer) Code() container.LayerCode { return container.LayerSyllablesIt }

func (SyllablesItLayer) Encode(data []byte) (Result, error) {
	tokens := tokenizeByLetterRuns(data, true)
	ids, vocab := encodeTokenStream(tokens)
	return Result{
		Streams: map[uint8][]byte{mbn.StypeMain: varint.EncodeUints(ids)},
		Meta:    PackVocabList(vocab),
	}, nil
}

func (SyllablesItLayer) Decode(streams map[uint8][]byte, meta []byte) ([]byte, error) {
	return decodeTokenStream(streams, meta, "syllables_it")
}

// WordsItLayer tokenizes ASCII letter runs as whole words and
// non-letter runs as single delimiter tokens.
type WordsItLayer struct{}

func (WordsItLayer) Code() container.LayerCode { return container.LayerWordsIt }

func (WordsItLayer) Encode(data []byte) (Result, error) {
	tokens := tokenizeByLetterRuns(data, false)
	ids, vocab := encodeTokenStream(tokens)
	return Result{
		Streams: map[uint8][]byte{mbn.StypeMain: varint.EncodeUints(ids)},
		Meta:    PackVocabList(vocab),
	}, nil
}

func (WordsItLayer) Decode(streams map[uint8][]byte, meta []byte) ([]byte, error) {
	return decodeTokenStream(streams, meta, "words_it")
}
