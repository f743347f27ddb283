package layer

import (
	"crypto/sha256"

	"github.com/gcomneno/onion-compressor-framework/internal/container"
	"github.com/gcomneno/onion-compressor-framework/internal/errs"
	"github.com/gcomneno/onion-compressor-framework/internal/mbn"
	"github.com/gcomneno/onion-compressor-framework/internal/varint"
)

// TemplateDictTag8 computes the stable 8-byte tag for a shared
// tpl_lines_shared_v0 base dictionary, mirroring package codec's
// DictTag8 for num_v1's shared dictionary.
func TemplateDictTag8(base [][][]byte) [8]byte {
	sum := sha256.Sum256(PackTemplates(base))
	var tag [8]byte
	copy(tag[:], sum[:8])
	return tag
}

// Sign codes for the numeric triples.
const (
	signNone  = 0
	signPlus  = 1
	signMinus = 2
)

const fmtVersion = 1
const tokRules = 1

// PackTemplates/UnpackTemplates implement the TPL stream's raw layout:
// varint(n_templates), then per template varint(n_chunks) + per chunk
// varint(len)+bytes.
func PackTemplates(templates [][][]byte) []byte {
	out := varint.Put(nil, uint64(len(templates)))
	for _, chunks := range templates {
		out = varint.Put(out, uint64(len(chunks)))
		for _, c := range chunks {
			out = varint.Put(out, uint64(len(c)))
			out = append(out, c...)
		}
	}
	return out
}

const maxTplSanity = 1_000_000

func UnpackTemplates(raw []byte) ([][][]byte, error) {
	n, used, err := varint.Get(raw)
	if err != nil {
		return nil, err
	}
	raw = raw[used:]
	if n > maxTplSanity {
		return nil, errs.NewCorruptPayload("tpl_lines_v0: too many templates", nil)
	}
	out := make([][][]byte, 0, n)
	for i := uint64(0); i < n; i++ {
		nChunks, used, err := varint.Get(raw)
		if err != nil {
			return nil, err
		}
		raw = raw[used:]
		if nChunks < 1 || nChunks > maxTplSanity {
			return nil, errs.NewCorruptPayload("tpl_lines_v0: invalid n_chunks", nil)
		}
		chunks := make([][]byte, 0, nChunks)
		for j := uint64(0); j < nChunks; j++ {
			l, used, err := varint.Get(raw)
			if err != nil {
				return nil, err
			}
			raw = raw[used:]
			if uint64(len(raw)) < l {
				return nil, errs.NewCorruptPayload("tpl_lines_v0: truncated chunk", nil)
			}
			chunks = append(chunks, append([]byte{}, raw[:l]...))
			raw = raw[l:]
		}
		out = append(out, chunks)
	}
	if len(raw) != 0 {
		return nil, errs.NewCorruptPayload("tpl_lines_v0: trailing garbage in TPL stream", nil)
	}
	return out, nil
}

func isDigitB(b byte) bool { return b >= '0' && b <= '9' }

func isUnarySign(line []byte, pos int) bool {
	if pos <= 0 {
		return true
	}
	prev := line[pos-1]
	switch prev {
	case 9, 10, 13, 32:
		return true
	case '(', '[', '{', '<', '=', ':', ',', ';':
		return true
	}
	return false
}

type numTriple struct {
	sign, digitsLen, magnitude int64
}

// splitTplLine returns the static chunks around numeric tokens
// (len = len(nums)+1) and the (sign, digits_len, magnitude) triple for
// each numeric token.
func splitTplLine(line []byte) ([][]byte, []numTriple) {
	n := len(line)
	i, last := 0, 0
	var chunks [][]byte
	var nums []numTriple

	for i < n {
		c := line[i]
		start := -1
		sign := signNone
		j := i

		if (c == '+' || c == '-') && i+1 < n && isDigitB(line[i+1]) && isUnarySign(line, i) {
			start = i
			if c == '+' {
				sign = signPlus
			} else {
				sign = signMinus
			}
			j = i + 1
		} else if isDigitB(c) {
			start = i
			j = i
		} else {
			i++
			continue
		}

		for j < n && isDigitB(line[j]) {
			j++
		}

		chunks = append(chunks, line[last:start])
		last = j

		token := line[start:j]
		var digits []byte
		if len(token) > 0 && (token[0] == '+' || token[0] == '-') {
			digits = token[1:]
		} else {
			digits = token
		}
		if len(digits) == 0 {
			i = j
			continue
		}
		var mag int64
		for _, d := range digits {
			mag = mag*10 + int64(d-'0')
		}
		nums = append(nums, numTriple{int64(sign), int64(len(digits)), mag})
		i = j
	}
	chunks = append(chunks, line[last:])
	return chunks, nums
}

// TplLinesV0Layer mines per-line templates: the static skeleton goes
// to TPL, numeric fields go to NUMS, the per-line template id sequence
// goes to IDS.
type TplLinesV0Layer struct{}

func (TplLinesV0Layer) Code() container.LayerCode { return container.LayerTplLinesV0 }

func (TplLinesV0Layer) Encode(data []byte) (Result, error) {
	lines := splitLinesKeepEnds(data)

	if len(lines) == 0 && len(data) == 0 {
		tplRaw := PackTemplates([][][]byte{{[]byte{}}})
		idsRaw := varint.EncodeInts([]int64{0})
		numsRaw := varint.EncodeInts([]int64{1, 0})
		meta := []byte{fmtVersion, tokRules}
		return Result{Streams: map[uint8][]byte{
			mbn.StypeTpl:  tplRaw,
			mbn.StypeIDs:  idsRaw,
			mbn.StypeNums: numsRaw,
		}, Meta: meta}, nil
	}

	var templates [][][]byte
	tplIndex := map[string]int{}
	ids := make([]int64, 0, len(lines))
	numsInts := []int64{int64(len(lines))}

	for _, line := range lines {
		chunks, nums := splitTplLine(line)
		key := joinChunksKey(chunks)
		tid, ok := tplIndex[key]
		if !ok {
			tid = len(templates)
			tplIndex[key] = tid
			templates = append(templates, chunks)
		}
		ids = append(ids, int64(tid))

		numsInts = append(numsInts, int64(len(nums)))
		for _, tr := range nums {
			numsInts = append(numsInts, tr.sign, tr.digitsLen, tr.magnitude)
		}
	}

	return Result{Streams: map[uint8][]byte{
		mbn.StypeTpl:  PackTemplates(templates),
		mbn.StypeIDs:  varint.EncodeInts(ids),
		mbn.StypeNums: varint.EncodeInts(numsInts),
	}, Meta: []byte{fmtVersion, tokRules}}, nil
}

func joinChunksKey(chunks [][]byte) string {
	out := make([]byte, 0)
	for _, c := range chunks {
		out = varint.Put(out, uint64(len(c)))
		out = append(out, c...)
	}
	return string(out)
}

func (TplLinesV0Layer) Decode(streams map[uint8][]byte, meta []byte) ([]byte, error) {
	return decodeTplLines(streams, meta, nil)
}

// decodeTplLines is shared by TplLinesV0Layer and TplLinesSharedV0Layer
// (the latter prepends a shared base template dictionary, sharedBase).
func decodeTplLines(streams map[uint8][]byte, meta []byte, sharedBase [][][]byte) ([]byte, error) {
	if len(meta) == 0 {
		return nil, errs.NewCorruptPayload("tpl_lines_v0: missing meta", nil)
	}
	if len(meta) < 2 || meta[0] != fmtVersion {
		return nil, errs.NewCorruptPayload("tpl_lines_v0: unsupported fmt", nil)
	}

	tplRaw, ok := streams[mbn.StypeTpl]
	if !ok {
		return nil, errs.NewCorruptPayload("tpl_lines_v0: missing TPL stream", nil)
	}
	idsRaw := streams[mbn.StypeIDs]
	numsRaw, ok := streams[mbn.StypeNums]
	if !ok {
		return nil, errs.NewCorruptPayload("tpl_lines_v0: missing NUMS stream", nil)
	}

	templates, err := UnpackTemplates(tplRaw)
	if err != nil {
		return nil, err
	}
	if len(sharedBase) > 0 {
		templates = append(append([][][]byte{}, sharedBase...), templates...)
	}
	ids, err := varint.DecodeInts(idsRaw)
	if err != nil {
		return nil, err
	}
	nums, err := varint.DecodeInts(numsRaw)
	if err != nil {
		return nil, err
	}
	if len(nums) == 0 {
		return nil, errs.NewCorruptPayload("tpl_lines_v0: empty NUMS stream", nil)
	}

	idx := 0
	nLines := int(nums[idx])
	idx++
	if nLines != len(ids) {
		return nil, errs.NewCorruptPayload("tpl_lines_v0: n_lines mismatch with IDS", nil)
	}

	var out []byte
	for li := 0; li < nLines; li++ {
		if idx >= len(nums) {
			return nil, errs.NewCorruptPayload("tpl_lines_v0: NUMS truncated", nil)
		}
		nNums := int(nums[idx])
		idx++

		tid := int(ids[li])
		if tid < 0 || tid >= len(templates) {
			return nil, errs.NewCorruptPayload("tpl_lines_v0: template id out of range", nil)
		}
		chunks := templates[tid]
		expected := len(chunks) - 1
		if expected < 0 {
			expected = 0
		}
		if nNums != expected {
			return nil, errs.NewCorruptPayload("tpl_lines_v0: n_nums mismatch", nil)
		}

		out = append(out, chunks[0]...)
		for ni := 0; ni < nNums; ni++ {
			if idx+3 > len(nums) {
				return nil, errs.NewCorruptPayload("tpl_lines_v0: NUMS truncated (triple)", nil)
			}
			sign, digitsLen, magnitude := nums[idx], nums[idx+1], nums[idx+2]
			idx += 3
			switch sign {
			case signPlus:
				out = append(out, '+')
			case signMinus:
				out = append(out, '-')
			case signNone:
			default:
				return nil, errs.NewCorruptPayload("tpl_lines_v0: invalid sign_code", nil)
			}
			if digitsLen < 1 {
				return nil, errs.NewCorruptPayload("tpl_lines_v0: invalid digits_len", nil)
			}
			out = append(out, zfillDigits(magnitude, int(digitsLen))...)
			out = append(out, chunks[ni+1]...)
		}
	}
	if idx != len(nums) {
		return nil, errs.NewCorruptPayload("tpl_lines_v0: NUMS stream has extra data", nil)
	}
	return out, nil
}

func zfillDigits(magnitude int64, width int) []byte {
	s := itoa(magnitude)
	for len(s) < width {
		s = "0" + s
	}
	return []byte(s)
}
