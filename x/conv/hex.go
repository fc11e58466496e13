package conv

const hexd = "0123456789ABCDEF"

// AppendHex appends b as uppercase hex pairs separated by sep (0 for none).
func AppendHex(dst, b []byte, sep byte) []byte {
	for i, v := range b {
		if i > 0 && sep != 0 {
			dst = append(dst, sep)
		}
		dst = append(dst, hexd[v>>4], hexd[v&0x0F])
	}
	return dst
}

// ParseHex decodes hex pairs, skipping spaces, colons and dashes.
// ok is false on an odd digit count or a non-hex character.
func ParseHex(s string) (out []byte, ok bool) {
	var hi byte
	half := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case ' ', ':', '-':
			continue
		}
		v, good := nibble(c)
		if !good {
			return nil, false
		}
		if !half {
			hi = v
			half = true
			continue
		}
		out = append(out, hi<<4|v)
		half = false
	}
	return out, !half
}

func nibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
