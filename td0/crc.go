package td0

// CRC-16 polynomial used by Teledisk headers, sectors and comments
const crcPoly = 0xA097

// Table-driven CRC, most significant bit first
var crcTable [256]uint16

func init() {
	for i := 0; i < 256; i++ {
		crc := uint16(i) << 8
		for bit := 0; bit < 8; bit++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ crcPoly
			} else {
				crc <<= 1
			}
		}
		crcTable[i] = crc
	}
}

// CRC16 computes the Teledisk CRC of data with initial value 0.
func CRC16(data []byte) uint16 {
	return updateCRC(0, data)
}

func updateCRC(crc uint16, data []byte) uint16 {
	for _, b := range data {
		crc = crc<<8 ^ crcTable[byte(crc>>8)^b]
	}
	return crc
}
