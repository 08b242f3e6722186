package td0

import (
	"bytes"
	"errors"
	"io"

	"github.com/icza/bitio"
)

// LZHUF parameters of Teledisk advanced compression
const (
	ringSize  = 4096                        // sliding window
	lookahead = 60                          // longest match
	threshold = 2                           // matches longer than this are coded
	numChars  = 256 - threshold + lookahead // literals plus match lengths
	tableSize = numChars*2 - 1              // nodes of the Huffman tree
	root      = tableSize - 1
	maxFreq   = 0x8000 // root frequency that triggers a rebuild
)

// Upper 6 bits of a match position are Huffman coded with these fixed tables
var (
	dCode [256]uint8
	dLen  [256]uint8
)

func init() {
	groups := []struct{ bits, codes int }{
		{3, 1}, {4, 3}, {5, 8}, {6, 12}, {7, 24}, {8, 16},
	}
	i, code := 0, 0
	for _, g := range groups {
		span := 1 << (8 - g.bits)
		for c := 0; c < g.codes; c++ {
			for k := 0; k < span; k++ {
				dCode[i] = uint8(code)
				dLen[i] = uint8(g.bits)
				i++
			}
			code++
		}
	}
}

// Decoder expands an LZHUF stream one byte at a time.
// It reports io.EOF once the input cannot supply the bits of the next symbol.
// A Decoder cannot be rewound; create a new one to start over.
type Decoder struct {
	in *bitio.Reader

	freq [tableSize + 1]uint16
	prnt [tableSize + numChars]int
	son  [tableSize]int

	ring    [ringSize]byte
	r       int
	copyPos int // source of a pending match
	copyLen int
	err     error
}

// NewDecoder returns a decoder reading compressed bytes
func NewDecoder(compressed []byte) *Decoder {
	d := &Decoder{
		in: bitio.NewReader(bytes.NewReader(compressed)),
		r:  ringSize - lookahead,
	}
	for i := 0; i < ringSize-lookahead; i++ {
		d.ring[i] = ' '
	}
	d.startHuff()
	return d
}

// Expand decodes a whole LZHUF stream
func Expand(compressed []byte) ([]byte, error) {
	return io.ReadAll(NewDecoder(compressed))
}

func (d *Decoder) startHuff() {
	for i := 0; i < numChars; i++ {
		d.freq[i] = 1
		d.son[i] = i + tableSize
		d.prnt[i+tableSize] = i
	}
	i := 0
	for j := numChars; j <= root; j++ {
		d.freq[j] = d.freq[i] + d.freq[i+1]
		d.son[j] = i
		d.prnt[i] = j
		d.prnt[i+1] = j
		i += 2
	}
	d.freq[tableSize] = 0xffff
	d.prnt[root] = 0
}

// reconst rebuilds the tree with halved frequencies
func (d *Decoder) reconst() {
	// Collect leaves into the first half of the table
	j := 0
	for i := 0; i < tableSize; i++ {
		if d.son[i] >= tableSize {
			d.freq[j] = (d.freq[i] + 1) / 2
			d.son[j] = d.son[i]
			j++
		}
	}

	// Connect sons, keeping frequencies sorted
	i := 0
	for j := numChars; j < tableSize; j++ {
		f := d.freq[i] + d.freq[i+1]
		d.freq[j] = f
		k := j - 1
		for f < d.freq[k] {
			k--
		}
		k++
		copy(d.freq[k+1:j+1], d.freq[k:j])
		d.freq[k] = f
		copy(d.son[k+1:j+1], d.son[k:j])
		d.son[k] = i
		i += 2
	}

	// Connect parents
	for i := 0; i < tableSize; i++ {
		k := d.son[i]
		d.prnt[k] = i
		if k < tableSize {
			d.prnt[k+1] = i
		}
	}
}

// update increments the frequency of symbol c and restores tree order
func (d *Decoder) update(c int) {
	if d.freq[root] == maxFreq {
		d.reconst()
	}
	c = d.prnt[c+tableSize]
	for {
		d.freq[c]++
		k := d.freq[c]

		// Swap with the last node of smaller frequency
		l := c + 1
		if k > d.freq[l] {
			for {
				l++
				if k <= d.freq[l] {
					break
				}
			}
			l--
			d.freq[c] = d.freq[l]
			d.freq[l] = k

			i := d.son[c]
			d.prnt[i] = l
			if i < tableSize {
				d.prnt[i+1] = l
			}
			j := d.son[l]
			d.son[l] = i
			d.prnt[j] = c
			if j < tableSize {
				d.prnt[j+1] = c
			}
			d.son[c] = j
			c = l
		}
		c = d.prnt[c]
		if c == 0 {
			break
		}
	}
}

func (d *Decoder) decodeChar() (int, error) {
	c := d.son[root]
	for c < tableSize {
		bit, err := d.in.ReadBool()
		if err != nil {
			return 0, err
		}
		if bit {
			c++
		}
		c = d.son[c]
	}
	c -= tableSize
	d.update(c)
	return c, nil
}

func (d *Decoder) decodePosition() (int, error) {
	i, err := d.in.ReadBits(8)
	if err != nil {
		return 0, err
	}
	upper := int(dCode[i]) << 6
	n := dLen[i] - 2
	low, err := d.in.ReadBits(n)
	if err != nil {
		return 0, err
	}
	return upper | int((i<<n|low)&0x3f), nil
}

func (d *Decoder) put(b byte) {
	d.ring[d.r] = b
	d.r = (d.r + 1) & (ringSize - 1)
}

// ReadByte returns the next expanded byte
func (d *Decoder) ReadByte() (byte, error) {
	if d.copyLen > 0 {
		b := d.ring[d.copyPos]
		d.copyPos = (d.copyPos + 1) & (ringSize - 1)
		d.copyLen--
		d.put(b)
		return b, nil
	}
	if d.err != nil {
		return 0, d.err
	}

	c, err := d.decodeChar()
	if err == nil && c >= 256 {
		var pos int
		pos, err = d.decodePosition()
		if err == nil {
			d.copyPos = (d.r - pos - 1) & (ringSize - 1)
			d.copyLen = c - 255 + threshold
			return d.ReadByte()
		}
	}
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			err = io.EOF
		}
		d.err = err
		return 0, err
	}
	b := byte(c)
	d.put(b)
	return b, nil
}

// Read fills p with expanded bytes
func (d *Decoder) Read(p []byte) (int, error) {
	for n := range p {
		b, err := d.ReadByte()
		if err != nil {
			if n > 0 {
				return n, nil
			}
			return 0, err
		}
		p[n] = b
	}
	return len(p), nil
}
