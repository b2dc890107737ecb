package sht4x

import "fmt"

// CRC-8 used by Sensirion sensors: polynomial 0x31, init 0xFF, no reflection.
const (
	crcPoly byte = 0x31
	crcInit byte = 0xFF
)

// CRC8 computes the checksum of one data word.
func CRC8(data []byte) byte {
	crc := crcInit
	for _, b := range data {
		crc ^= b
		for range 8 {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ crcPoly
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// CheckCRC verifies both words of a measurement response.
func CheckCRC(buf [ReadLength]byte) error {
	if got := CRC8(buf[0:2]); got != buf[2] {
		return fmt.Errorf("%w: temperature word 0x%02X, want 0x%02X", ErrCRC, buf[2], got)
	}
	if got := CRC8(buf[3:5]); got != buf[5] {
		return fmt.Errorf("%w: humidity word 0x%02X, want 0x%02X", ErrCRC, buf[5], got)
	}
	return nil
}

// Encode builds a response for the given raw words with valid CRC bytes.
func Encode(rawT, rawRH uint16) [ReadLength]byte {
	var buf [ReadLength]byte
	buf[0], buf[1] = byte(rawT>>8), byte(rawT)
	buf[2] = CRC8(buf[0:2])
	buf[3], buf[4] = byte(rawRH>>8), byte(rawRH)
	buf[5] = CRC8(buf[3:5])
	return buf
}
