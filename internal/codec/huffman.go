package codec

import (
	"container/heap"

	"github.com/gcomneno/onion-compressor-framework/internal/errs"
	"github.com/gcomneno/onion-compressor-framework/internal/varint"
)

// HuffmanCodec is static Huffman coding over byte symbols. Codes are
// read off the tree (left edge 0, right edge 1); they are not
// reassigned in canonical order. The bit layout is self-contained: the
// decoder only needs to read whatever the encoder produced, so the
// frequency table travels with the payload rather than being fixed in
// advance. Tree construction uses container/heap with an explicit
// insertion counter so that symbols tying on frequency break ties in
// ascending byte-value order, giving a deterministic tree shape.
//
// Wire format of the comp bytes: magic "HUF1", u8 lastbits, varint
// nsymbols, nsymbols * (u8 symbol, varint freq), then the bitstream.
type HuffmanCodec struct{}

var huffmanMagic = []byte("HUF1")

type huffNode struct {
	freq          int
	symbol        int // -1 for internal nodes
	left, right   *huffNode
	seq           int
}

type huffHeap []*huffNode

func (h huffHeap) Len() int { return len(h) }
func (h huffHeap) Less(i, j int) bool {
	if h[i].freq != h[j].freq {
		return h[i].freq < h[j].freq
	}
	return h[i].seq < h[j].seq
}
func (h huffHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *huffHeap) Push(x any)        { *h = append(*h, x.(*huffNode)) }
func (h *huffHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

func buildFreqTable(data []byte) [256]int {
	var freq [256]int
	for _, b := range data {
		freq[b]++
	}
	return freq
}

func buildHuffmanTree(freq [256]int) *huffNode {
	h := &huffHeap{}
	heap.Init(h)
	seq := 0
	for sym, f := range freq {
		if f > 0 {
			heap.Push(h, &huffNode{freq: f, symbol: sym, seq: seq})
			seq++
		}
	}
	if h.Len() == 0 {
		return nil
	}
	if h.Len() == 1 {
		only := (*h)[0]
		dummySymbol := (only.symbol + 1) % 256
		heap.Push(h, &huffNode{freq: 0, symbol: dummySymbol, seq: seq})
		seq++
	}
	for h.Len() > 1 {
		n1 := heap.Pop(h).(*huffNode)
		n2 := heap.Pop(h).(*huffNode)
		parent := &huffNode{freq: n1.freq + n2.freq, symbol: -1, left: n1, right: n2, seq: seq}
		seq++
		heap.Push(h, parent)
	}
	return (*h)[0]
}

func buildCodeTable(root *huffNode) map[int][]byte {
	codes := make(map[int][]byte)
	var dfs func(n *huffNode, path []byte)
	dfs = func(n *huffNode, path []byte) {
		if n.left == nil && n.right == nil {
			if len(path) == 0 {
				codes[n.symbol] = []byte{0}
			} else {
				codes[n.symbol] = append([]byte{}, path...)
			}
			return
		}
		if n.left != nil {
			dfs(n.left, append(path, 0))
		}
		if n.right != nil {
			dfs(n.right, append(path, 1))
		}
	}
	dfs(root, nil)
	return codes
}

func encodeHuffmanBits(data []byte, codes map[int][]byte) ([]byte, int) {
	if len(data) == 0 {
		return nil, 0
	}
	out := make([]byte, 0, len(data))
	var cur byte
	var bitCount int
	for _, b := range data {
		for _, bit := range codes[int(b)] {
			cur = (cur << 1) | bit
			bitCount++
			if bitCount == 8 {
				out = append(out, cur)
				cur, bitCount = 0, 0
			}
		}
	}
	lastbits := 8
	if bitCount > 0 {
		cur <<= uint(8 - bitCount)
		out = append(out, cur)
		lastbits = bitCount
	}
	return out, lastbits
}

func decodeHuffmanBits(root *huffNode, bitstream []byte, n, lastbits int) []byte {
	if n == 0 || root == nil {
		return nil
	}
	out := make([]byte, 0, n)
	node := root
	total := 0
	totalBytes := len(bitstream)
	for i, by := range bitstream {
		bitsInByte := 8
		if i == totalBytes-1 && lastbits != 0 {
			bitsInByte = lastbits
		}
		for bi := 0; bi < bitsInByte; bi++ {
			bit := (by >> (7 - bi)) & 1
			if bit == 0 {
				node = node.left
			} else {
				node = node.right
			}
			if node.left == nil && node.right == nil {
				out = append(out, byte(node.symbol))
				total++
				node = root
				if total == n {
					return out
				}
			}
		}
	}
	return out
}

func (HuffmanCodec) Compress(data []byte) ([]byte, error) {
	freq := buildFreqTable(data)
	root := buildHuffmanTree(freq)
	var bitstream []byte
	lastbits := 0
	if root != nil {
		codes := buildCodeTable(root)
		bitstream, lastbits = encodeHuffmanBits(data, codes)
	}

	var nsyms []byte
	var freqPairs []byte
	count := uint64(0)
	for sym := 0; sym < 256; sym++ {
		if freq[sym] > 0 {
			count++
			freqPairs = append(freqPairs, byte(sym))
			freqPairs = varint.Put(freqPairs, uint64(freq[sym]))
		}
	}
	nsyms = varint.Put(nsyms, count)

	out := make([]byte, 0, len(huffmanMagic)+1+len(nsyms)+len(freqPairs)+len(bitstream))
	out = append(out, huffmanMagic...)
	out = append(out, byte(lastbits))
	out = append(out, nsyms...)
	out = append(out, freqPairs...)
	out = append(out, bitstream...)
	return out, nil
}

// DecodeHuffmanRaw decodes a bitstream against a caller-supplied
// frequency table, bypassing the HUF1 self-contained framing. Used by
// package container's legacy v1-v4 read path, whose own on-disk format
// stores the frequency table directly rather than via this codec's
// wire format.
func DecodeHuffmanRaw(freq [256]int, bitstream []byte, n, lastbits int) ([]byte, error) {
	if n == 0 {
		return []byte{}, nil
	}
	root := buildHuffmanTree(freq)
	if root == nil {
		return nil, errs.NewCorruptPayload("huffman: empty tree for non-empty n", nil)
	}
	out := decodeHuffmanBits(root, bitstream, n, lastbits)
	if len(out) != n {
		return nil, errs.NewCorruptPayload("huffman: length mismatch after decompression", nil)
	}
	return out, nil
}

func (HuffmanCodec) Decompress(data []byte, ulen int) ([]byte, error) {
	if len(data) < 5 || string(data[:4]) != string(huffmanMagic) {
		return nil, errs.NewBadMagic("huffman: bad magic")
	}
	lastbits := int(data[4])
	rest := data[5:]
	nsyms, n, err := varint.Get(rest)
	if err != nil {
		return nil, err
	}
	rest = rest[n:]
	var freq [256]int
	for i := uint64(0); i < nsyms; i++ {
		if len(rest) < 1 {
			return nil, errs.NewCorruptPayload("huffman: truncated freq table", nil)
		}
		sym := rest[0]
		rest = rest[1:]
		f, n, err := varint.Get(rest)
		if err != nil {
			return nil, err
		}
		rest = rest[n:]
		freq[sym] = int(f)
	}
	if ulen == 0 {
		return []byte{}, nil
	}
	root := buildHuffmanTree(freq)
	if root == nil {
		return nil, errs.NewCorruptPayload("huffman: empty tree for non-empty ulen", nil)
	}
	out := decodeHuffmanBits(root, rest, ulen, lastbits)
	if len(out) != ulen {
		return nil, errs.NewCorruptPayload("huffman: length mismatch after decompression", nil)
	}
	return out, nil
}
