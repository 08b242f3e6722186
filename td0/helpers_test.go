package td0

import (
	"encoding/binary"
	"testing"

	"github.com/sergev/td0scan/images"
)

// createTestHeader builds a 12-byte header with a valid CRC
func createTestHeader(sig string, version, stepping, sides uint8) []byte {
	h := []byte{sig[0], sig[1], 0, 0, version, 2, 3, stepping, 0, sides}
	crc := CRC16(h)
	return binary.LittleEndian.AppendUint16(h, crc)
}

// createTestComment builds a comment block with a valid CRC
func createTestComment(text string, stamp [6]byte) []byte {
	body := binary.LittleEndian.AppendUint16(nil, uint16(len(text)))
	body = append(body, stamp[:]...)
	body = append(body, text...)
	return append(binary.LittleEndian.AppendUint16(nil, CRC16(body)), body...)
}

// createTestTrack builds a track header followed by sector records
func createTestTrack(cyl, head uint8, sectors ...[]byte) []byte {
	h := []byte{uint8(len(sectors)), cyl, head}
	out := append(h, byte(CRC16(h)))
	for _, s := range sectors {
		out = append(out, s...)
	}
	return out
}

// createTestSector builds a sector header and, when method >= 0, a data block.
// data is only used for the CRC byte.
func createTestSector(cyl, head, num, code, flags uint8, data []byte, method int, payload []byte) []byte {
	out := []byte{cyl, head, num, code, flags, byte(CRC16(data))}
	if method < 0 {
		return out
	}
	out = binary.LittleEndian.AppendUint16(out, uint16(len(payload)+1))
	out = append(out, byte(method))
	return append(out, payload...)
}

// createRawSector stores data uncompressed; the size code follows from len(data)
func createRawSector(cyl, head, num uint8, data []byte) []byte {
	code := uint8(0)
	for 128<<code < len(data) {
		code++
	}
	return createTestSector(cyl, head, num, code, 0, data, MethodRaw, data)
}

// createTestImage joins a normal header, the records and the end marker
func createTestImage(records ...[]byte) []byte {
	out := createTestHeader(SignatureNormal, 21, 1, 1)
	for _, r := range records {
		out = append(out, r...)
	}
	return append(out, EndOfImage)
}

// fillBytes returns n bytes of a simple counting pattern
func fillBytes(n int, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = seed + byte(i*7)
	}
	return b
}

func loadImage(t *testing.T, name string) []byte {
	t.Helper()
	data, err := images.GetImage(name)
	if err != nil {
		t.Fatalf("failed to load %s: %v", name, err)
	}
	return data
}
