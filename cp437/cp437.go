// Package cp437 holds the 8×8 system font and the CP437 byte↔rune
// mapping used by the shell terminal and the client runtime.
package cp437

// high maps CP437 bytes 0x80-0xFF to their Unicode code points.
var high = [128]rune{
	'Ç', 'ü', 'é', 'â', 'ä', 'à', 'å', 'ç', 'ê', 'ë', 'è', 'ï', 'î', 'ì', 'Ä', 'Å',
	'É', 'æ', 'Æ', 'ô', 'ö', 'ò', 'û', 'ù', 'ÿ', 'Ö', 'Ü', '¢', '£', '¥', '₧', 'ƒ',
	'á', 'í', 'ó', 'ú', 'ñ', 'Ñ', 'ª', 'º', '¿', '⌐', '¬', '½', '¼', '¡', '«', '»',
	'░', '▒', '▓', '│', '┤', '╡', '╢', '╖', '╕', '╣', '║', '╗', '╝', '╜', '╛', '┐',
	'└', '┴', '┬', '├', '─', '┼', '╞', '╟', '╚', '╔', '╩', '╦', '╠', '═', '╬', '╧',
	'╨', '╤', '╥', '╙', '╘', '╒', '╓', '╫', '╪', '┘', '┌', '█', '▄', '▌', '▐', '▀',
	'α', 'ß', 'Γ', 'π', 'Σ', 'σ', 'µ', 'τ', 'Φ', 'Θ', 'Ω', 'δ', '∞', 'φ', 'ε', '∩',
	'≡', '±', '≥', '≤', '⌠', '⌡', '÷', '≈', '°', '∙', '·', '√', 'ⁿ', '²', '■', ' ',
}

var toByte map[rune]byte

func init() {
	toByte = make(map[rune]byte, 128)
	for i, r := range high {
		toByte[r] = byte(0x80 + i)
	}
}

// Encode maps a rune to its CP437 byte. Runes without a CP437 slot map
// to '?'.
func Encode(r rune) byte {
	if r >= 0 && r < 0x80 {
		return byte(r)
	}
	if b, ok := toByte[r]; ok {
		return b
	}
	return '?'
}

// Decode maps a CP437 byte to its rune.
func Decode(b byte) rune {
	if b < 0x80 {
		return rune(b)
	}
	return high[b-0x80]
}

// DecodeBytes decodes a CP437 byte slice into a UTF-8 string.
func DecodeBytes(bs []byte) string {
	out := make([]rune, len(bs))
	for i, b := range bs {
		out[i] = Decode(b)
	}
	return string(out)
}
