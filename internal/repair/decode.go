package repair

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// cp1252 leaves these bytes undefined. x/text maps them to C1 controls, so
// strict decoding has to reject them explicitly.
var cp1252Undefined = [256]bool{0x81: true, 0x8D: true, 0x8F: true, 0x90: true, 0x9D: true}

type textEncoding struct {
	name   string
	decode func([]byte) (string, bool)
}

// encodings is tried in order; the first strict success wins.
var encodings = []textEncoding{
	{"utf-8-sig", decodeUTF8BOM},
	{"utf-8", decodeUTF8},
	{"cp1252", decodeCharmap(charmap.Windows1252, &cp1252Undefined)},
	{"latin-1", decodeCharmap(charmap.ISO8859_1, nil)},
}

func decodeUTF8BOM(b []byte) (string, bool) {
	if !bytes.HasPrefix(b, utf8BOM) {
		return "", false
	}
	return decodeUTF8(b[len(utf8BOM):])
}

func decodeUTF8(b []byte) (string, bool) {
	if !utf8.Valid(b) {
		return "", false
	}
	return string(b), true
}

func decodeCharmap(cm *charmap.Charmap, undefined *[256]bool) func([]byte) (string, bool) {
	return func(b []byte) (string, bool) {
		var sb strings.Builder
		sb.Grow(len(b))
		for _, c := range b {
			if undefined != nil && undefined[c] {
				return "", false
			}
			r := cm.DecodeByte(c)
			if r == utf8.RuneError {
				return "", false
			}
			sb.WriteRune(r)
		}
		return sb.String(), true
	}
}

// decode returns the text and the name of the encoding that produced it.
func decode(data []byte, log *ChangeLog) (string, string, error) {
	tried := make([]string, 0, len(encodings))
	for _, enc := range encodings {
		tried = append(tried, enc.name)
		text, ok := enc.decode(data)
		if !ok {
			continue
		}
		if strings.TrimSpace(text) == "" {
			return "", enc.name, ErrEmptyInput
		}
		if enc.name == "utf-8-sig" {
			log.Addf(StageDecode, "Decoded file as UTF-8 (removed byte order mark).")
		} else {
			log.Addf(StageDecode, "Decoded file as %s.", enc.name)
		}
		return text, enc.name, nil
	}
	return "", "", &DecodeError{Tried: tried}
}
