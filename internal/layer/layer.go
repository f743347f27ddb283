// Package layer implements the semantic layers: reversible transforms
// from raw bytes into named symbol streams (plus optional metadata),
// and back.
package layer

import (
	"github.com/gcomneno/onion-compressor-framework/internal/container"
	"github.com/gcomneno/onion-compressor-framework/internal/mbn"
)

// Result is a layer's encode output: named streams keyed by stype, plus
// optional layer-level metadata.
type Result struct {
	Streams map[uint8][]byte
	Meta    []byte
}

// Layer is the uniform contract every semantic layer satisfies.
type Layer interface {
	Code() container.LayerCode
	Encode(data []byte) (Result, error)
	Decode(streams map[uint8][]byte, meta []byte) ([]byte, error)
}

// ByCode returns the layer implementation for a numeric layer_code.
func ByCode(c container.LayerCode) (Layer, bool) {
	l, ok := registry[c]
	return l, ok
}

// ByName returns the layer implementation for a registered identifier.
func ByName(name string) (Layer, bool) {
	c, ok := container.LayerByName(name)
	if !ok {
		return nil, false
	}
	return ByCode(c)
}

var registry = map[container.LayerCode]Layer{
	container.LayerBytes:            BytesLayer{},
	container.LayerVC0:              VC0Layer{},
	container.LayerSyllablesIt:      SyllablesItLayer{},
	container.LayerWordsIt:          WordsItLayer{},
	container.LayerLinesDict:        LinesDictLayer{},
	container.LayerLinesRLE:         LinesRLELayer{},
	container.LayerSplitTextNums:    SplitTextNumsLayer{},
	container.LayerTplLinesV0:       TplLinesV0Layer{},
	container.LayerTplLinesSharedV0: TplLinesSharedV0Layer{SharedBase: nil},
}

// StreamNamesForLayer maps a layer to the stypes it produces, in the
// canonical order a fallback reader should try them.
func StreamNamesForLayer(c container.LayerCode) []uint8 {
	switch c {
	case container.LayerVC0:
		return []uint8{mbn.StypeMask, mbn.StypeVowels, mbn.StypeCons}
	case container.LayerSplitTextNums:
		return []uint8{mbn.StypeText, mbn.StypeNums}
	case container.LayerTplLinesV0, container.LayerTplLinesSharedV0:
		return []uint8{mbn.StypeTpl, mbn.StypeIDs, mbn.StypeNums}
	default:
		return []uint8{mbn.StypeMain}
	}
}
