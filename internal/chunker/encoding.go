package chunker

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
)

// decodeCascade holds the non-UTF-8 codecs tried, in order, after
// tryUTF8 fails; the first that decodes within the replacement-character
// threshold wins.
var decodeCascade = []encoding.Encoding{
	simplifiedchinese.GBK,
	simplifiedchinese.GB18030,
	charmap.Windows1252,
}

const replacementChar = '�'

// DecodeBytes applies the UTF-8 → GBK → GB18030 → Windows-1252 decode
// cascade from spec.md §4.3, falling back to lossy UTF-8 if none of the
// four satisfies its replacement-character threshold.
func DecodeBytes(raw []byte) string {
	if s, ok := tryUTF8(raw); ok {
		return s
	}
	for _, enc := range decodeCascade {
		decoded, err := enc.NewDecoder().Bytes(raw)
		if err != nil {
			continue
		}
		s := string(decoded)
		if withinReplacementThreshold(s) {
			return s
		}
	}
	return strings.ToValidUTF8(string(raw), string(utf8.RuneError))
}

// tryUTF8 accepts raw as-is if it is already valid UTF-8 and within the
// replacement-character threshold (valid UTF-8 never produces U+FFFD
// from decoding, but a source file may legitimately contain the
// character itself, so the threshold still applies for consistency with
// the other codecs).
func tryUTF8(raw []byte) (string, bool) {
	if !utf8.Valid(raw) {
		return "", false
	}
	s := string(raw)
	if withinReplacementThreshold(s) {
		return s, true
	}
	return "", false
}

func withinReplacementThreshold(s string) bool {
	count := strings.Count(s, string(replacementChar))
	threshold := 5
	if len(s) >= 100 {
		threshold = int(float64(len(s)) * 0.05)
	}
	return count <= threshold
}
