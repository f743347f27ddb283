package layer

import (
	"github.com/gcomneno/onion-compressor-framework/internal/container"
	"github.com/gcomneno/onion-compressor-framework/internal/errs"
	"github.com/gcomneno/onion-compressor-framework/internal/mbn"
	"github.com/gcomneno/onion-compressor-framework/internal/varint"
)

// SplitTextNumsLayer replaces every maximal run of ASCII digits with a
// single sentinel byte (0x00) in the TEXT stream and records the runs
// in the NUMS stream: one sentinel per digit run, NUMS holding one
// (digit count, value) pair per run in order, not the bare values
// (see Encode). A sign-aware tokenizer with a
// format-version tag and unary +/- context rules was considered and
// dropped in favor of this simpler contract (see DESIGN.md).
type SplitTextNumsLayer struct{}

const sentinel = 0x00

func (SplitTextNumsLayer) Code() container.LayerCode { return container.LayerSplitTextNums }

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// Encode records each digit run as a (digitsLen, magnitude) pair
// rather than the bare magnitude, so a leading-zero run (e.g. "007",
// a zip code, an invoice number) round-trips exactly instead of
// collapsing to "7" on decode.
func (SplitTextNumsLayer) Encode(data []byte) (Result, error) {
	var text []byte
	var nums []int64
	i := 0
	for i < len(data) {
		if isDigit(data[i]) {
			j := i
			var n int64
			for j < len(data) && isDigit(data[j]) {
				n = n*10 + int64(data[j]-'0')
				j++
			}
			text = append(text, sentinel)
			nums = append(nums, int64(j-i), n)
			i = j
			continue
		}
		text = append(text, data[i])
		i++
	}
	return Result{Streams: map[uint8][]byte{
		mbn.StypeText: text,
		mbn.StypeNums: varint.EncodeInts(nums),
	}}, nil
}

func (SplitTextNumsLayer) Decode(streams map[uint8][]byte, meta []byte) ([]byte, error) {
	text, ok := streams[mbn.StypeText]
	if !ok {
		return nil, errs.NewCorruptPayload("split_text_nums: missing TEXT stream", nil)
	}
	var nums []int64
	if raw, ok := streams[mbn.StypeNums]; ok && len(raw) > 0 {
		var err error
		nums, err = varint.DecodeInts(raw)
		if err != nil {
			return nil, err
		}
	}
	if len(nums)%2 != 0 {
		return nil, errs.NewCorruptPayload("split_text_nums: NUMS stream has odd element count", nil)
	}

	out := make([]byte, 0, len(text))
	ni := 0
	for _, b := range text {
		if b == sentinel {
			if ni+1 >= len(nums) {
				return nil, errs.NewCorruptPayload("split_text_nums: NUMS stream exhausted", nil)
			}
			digitsLen, magnitude := nums[ni], nums[ni+1]
			ni += 2
			if digitsLen < 1 {
				return nil, errs.NewCorruptPayload("split_text_nums: invalid digits_len", nil)
			}
			out = append(out, zfillDigits(magnitude, int(digitsLen))...)
			continue
		}
		out = append(out, b)
	}
	if ni != len(nums) {
		return nil, errs.NewCorruptPayload("split_text_nums: NUMS stream has extra data", nil)
	}
	return out, nil
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
