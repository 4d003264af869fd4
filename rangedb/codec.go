package rangedb

import "encoding/binary"

// Encoder is a buffered little-endian encoder. All writes append to an
// internal buffer; nothing ever fails until the buffer is flushed by
// the caller.
type Encoder struct {
	buf []byte
}

func (e *Encoder) WriteU8(v byte) {
	e.buf = append(e.buf, v)
}

func (e *Encoder) WriteU16(v uint16) {
	s := [2]byte{}
	binary.LittleEndian.PutUint16(s[:], v)
	e.buf = append(e.buf, s[:]...)
}

func (e *Encoder) WriteU32(v uint32) {
	s := [4]byte{}
	binary.LittleEndian.PutUint32(s[:], v)
	e.buf = append(e.buf, s[:]...)
}

func (e *Encoder) WriteU64(v uint64) {
	s := [8]byte{}
	binary.LittleEndian.PutUint64(s[:], v)
	e.buf = append(e.buf, s[:]...)
}

func (e *Encoder) WriteRawBytes(v []byte) {
	e.buf = append(e.buf, v...)
}

// WriteString16 writes a uint16 length prefix and then the bytes.
// String pool entries are stored this way; interning rejects strings
// the prefix cannot represent before they get here.
func (e *Encoder) WriteString16(v string) {
	e.WriteU16(uint16(len(v)))
	e.buf = append(e.buf, v...)
}

// WriteUvarint writes LEB128: 7 bits per byte, high bit means
// continuation.
func (e *Encoder) WriteUvarint(v uint64) {
	for v >= 0x80 {
		e.buf = append(e.buf, byte(v)|0x80)
		v >>= 7
	}

	e.buf = append(e.buf, byte(v))
}

// WriteUvarint128 is WriteUvarint extended to 128-bit values. Deltas
// between sorted IPv6 range starts need the full width.
func (e *Encoder) WriteUvarint128(v Uint128) {
	for v.Hi != 0 || v.Lo >= 0x80 {
		e.buf = append(e.buf, byte(v.Lo&0x7F)|0x80)
		v.Lo = v.Lo>>7 | v.Hi<<57
		v.Hi >>= 7
	}

	e.buf = append(e.buf, byte(v.Lo))
}

// WriteVarint zigzag-encodes a signed value then writes it as uvarint.
// String pool index deltas may go backwards, hence signed.
func (e *Encoder) WriteVarint(v int64) {
	e.WriteUvarint(uint64(v<<1) ^ uint64(v>>63))
}

func (e *Encoder) Len() int {
	return len(e.buf)
}

func (e *Encoder) Bytes() []byte {
	return e.buf
}

func (e *Encoder) Reset() {
	e.buf = e.buf[:0]
}

// Decoder is the reading counterpart of Encoder. Out-of-bounds reads
// do not abort decoding immediately: they return zero values and bump
// a failure counter which the caller checks once per section.
type Decoder struct {
	buf    []byte
	offset int
	err    int
}

func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

func (d *Decoder) ReadU8() byte {
	d.offset++
	if d.offset > len(d.buf) {
		d.err++
		return 0
	}

	return d.buf[d.offset-1]
}

func (d *Decoder) ReadU16() uint16 {
	d.offset += 2
	if d.offset > len(d.buf) {
		d.err++
		return 0
	}

	return binary.LittleEndian.Uint16(d.buf[d.offset-2 : d.offset])
}

func (d *Decoder) ReadU32() uint32 {
	d.offset += 4
	if d.offset > len(d.buf) {
		d.err++
		return 0
	}

	return binary.LittleEndian.Uint32(d.buf[d.offset-4 : d.offset])
}

func (d *Decoder) ReadU64() uint64 {
	d.offset += 8
	if d.offset > len(d.buf) {
		d.err++
		return 0
	}

	return binary.LittleEndian.Uint64(d.buf[d.offset-8 : d.offset])
}

func (d *Decoder) ReadRawBytes(n int) []byte {
	d.offset += n
	if d.offset > len(d.buf) {
		d.err++
		return nil
	}

	return d.buf[d.offset-n : d.offset]
}

func (d *Decoder) ReadString16() string {
	length := int(d.ReadU16())

	d.offset += length
	if d.offset > len(d.buf) {
		d.err++
		return ""
	}

	return string(d.buf[d.offset-length : d.offset])
}

func (d *Decoder) ReadUvarint() uint64 {
	var rv uint64

	for shift := uint(0); shift < 64; shift += 7 {
		d.offset++
		if d.offset > len(d.buf) {
			d.err++
			return 0
		}

		b := d.buf[d.offset-1]
		rv |= uint64(b&0x7F) << shift

		if b < 0x80 {
			return rv
		}
	}

	d.err++

	return 0
}

func (d *Decoder) ReadUvarint128() Uint128 {
	var rv Uint128

	for shift := uint(0); shift < 128; shift += 7 {
		d.offset++
		if d.offset > len(d.buf) {
			d.err++
			return Uint128{}
		}

		b := d.buf[d.offset-1]
		group := uint64(b & 0x7F)

		if shift < 64 {
			rv.Lo |= group << shift
			if shift > 57 {
				rv.Hi |= group >> (64 - shift)
			}
		} else {
			rv.Hi |= group << (shift - 64)
		}

		if b < 0x80 {
			return rv
		}
	}

	d.err++

	return Uint128{}
}

func (d *Decoder) ReadVarint() int64 {
	raw := d.ReadUvarint()

	return int64(raw>>1) ^ -int64(raw&1)
}

func (d *Decoder) Offset() int {
	return d.offset
}

func (d *Decoder) Seek(offset int) {
	if offset < 0 || offset > len(d.buf) {
		d.err++
		return
	}

	d.offset = offset
}

func (d *Decoder) Failed() bool {
	return d.err > 0
}

func (d *Decoder) IsEnd() bool {
	return d.offset >= len(d.buf)
}
