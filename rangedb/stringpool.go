package rangedb

// StringPool deduplicates payload strings. Index 0 is reserved for the
// empty string so that "absent" fields cost one varint byte.
type StringPool struct {
	strings []string
	indexes map[string]uint64
}

func NewStringPool() *StringPool {
	return &StringPool{
		strings: []string{""},
		indexes: map[string]uint64{"": 0},
	}
}

// Intern returns the pool index of the string, adding it on first use.
func (p *StringPool) Intern(s string) uint64 {
	if idx, ok := p.indexes[s]; ok {
		return idx
	}

	idx := uint64(len(p.strings))
	p.strings = append(p.strings, s)
	p.indexes[s] = idx

	return idx
}

func (p *StringPool) Len() int {
	return len(p.strings)
}

func (p *StringPool) encodeTo(enc *Encoder) {
	enc.WriteU32(uint32(len(p.strings)))

	for _, s := range p.strings {
		enc.WriteString16(s)
	}
}

func decodeStringPool(dec *Decoder) []string {
	count := int(dec.ReadU32())

	// Every entry costs at least its 2-byte length prefix; a count
	// claiming more entries than the remaining bytes could hold is a
	// hostile or corrupt header and must not size an allocation.
	if dec.Failed() || count < 1 || count > (len(dec.buf)-dec.offset)/2 {
		return nil
	}

	rv := make([]string, 0, count)

	for i := 0; i < count; i++ {
		rv = append(rv, dec.ReadString16())

		if dec.Failed() {
			return nil
		}
	}

	return rv
}
