package stapl

import (
	"fmt"
	"math"
)

// aca6 maps one compressed-stream character to its packed 6-bit value, or
// -1 if the character is whitespace (ignored) per the ACA alphabet.
func aca6(c byte) (int, error) {
	switch {
	case c >= '0' && c <= '9':
		return int(c-'0') + 0x00, nil
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10, nil
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 36, nil
	case c == '_':
		return 0x3e, nil
	case c == '@':
		return 0x3f, nil
	case c == 0x08 || c == 0x0a || c == 0x0d || c == 0x20:
		return -1, nil
	default:
		return 0, fmt.Errorf("stapl: invalid ACA character 0x%02x", c)
	}
}

// acaBytes unpacks groups of four 6-bit symbols into three bytes each, the
// inverse of the STAPL ACA bit-packing.
func acaBytes(compressed string) ([]byte, error) {
	var symbols []int
	for i := 0; i < len(compressed); i++ {
		v, err := aca6(compressed[i])
		if err != nil {
			return nil, err
		}
		if v >= 0 {
			symbols = append(symbols, v)
		}
	}
	var out []byte
	for i := 0; i+4 <= len(symbols); i += 4 {
		a, b, c, d := symbols[i], symbols[i+1], symbols[i+2], symbols[i+3]
		out = append(out, byte(a|((b&0x03)<<6)))
		out = append(out, byte(((b&0x3c)>>2)|((c&0x0f)<<4)))
		out = append(out, byte(((c&0x30)>>4)|(d<<2)))
	}
	return out, nil
}

// acaBitReader reads bits little-endian (bit 0 = LSB of byte 0) from a byte
// slice, matching Python's bitarray(endian='little', buffer=...).
type acaBitReader struct {
	data []byte
	pos  int
}

func (r *acaBitReader) bit(i int) int {
	byteIdx := i / 8
	if byteIdx >= len(r.data) {
		return 0
	}
	if r.data[byteIdx]&(1<<uint(i%8)) != 0 {
		return 1
	}
	return 0
}

func (r *acaBitReader) readUint(n int) uint64 {
	var v uint64
	for i := 0; i < n; i++ {
		if r.bit(r.pos+i) != 0 {
			v |= 1 << uint(i)
		}
	}
	r.pos += n
	return v
}

// Decompress reverses the ACA LZ-style compression used by "@..." literals:
// a 32-bit little-endian length header, followed by a stream of literal
// (3-byte) and back-reference (offset/length) tokens.
func Decompress(compressed string) ([]byte, error) {
	raw, err := acaBytes(compressed)
	if err != nil {
		return nil, err
	}
	r := &acaBitReader{data: raw}
	length := int(r.readUint(32))

	ret := make([]byte, 0, length)
	for len(ret) < length {
		if r.bit(r.pos) == 0 {
			r.pos++
			for i := 0; i < 3 && len(ret) < length; i++ {
				ret = append(ret, byte(r.readUint(8)))
			}
		} else {
			r.pos++
			bits := 0
			if len(ret) > 0 {
				bits = int(math.Ceil(math.Log2(float64(len(ret)))))
				if bits > 13 {
					bits = 13
				}
			}
			repeatOffset := int(r.readUint(bits))
			repeatLength := int(r.readUint(8))
			start := len(ret) - repeatOffset
			for i := 0; i < repeatLength; i++ {
				ret = append(ret, ret[start+i])
			}
		}
	}
	if len(ret) > length {
		ret = ret[:length]
	}
	return ret, nil
}
