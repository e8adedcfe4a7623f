package chunker

import "strings"

// Sanitize drops C0 control characters outside \t \n \r, matching
// original_source's sanitize_content: it also drops vertical tab (0x0B)
// and form feed (0x0C), which are not part of the "excluding \t \n \r"
// exception despite being whitespace-adjacent.
func Sanitize(content string) string {
	var b strings.Builder
	b.Grow(len(content))
	for _, r := range content {
		if isDroppedControl(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isDroppedControl(r rune) bool {
	switch {
	case r >= 0x00 && r <= 0x08:
		return true
	case r == 0x0B || r == 0x0C:
		return true
	case r >= 0x0E && r <= 0x1F:
		return true
	case r == 0x7F:
		return true
	default:
		return false
	}
}

// IsBinary reports whether more than 10% of content's characters fall in
// the C0 control ranges (excluding tab/newline/carriage-return *and*
// excluding 0x0B/0x0C, which original_source does not count toward
// binary detection even though Sanitize strips them).
func IsBinary(content string) bool {
	total := 0
	nonPrintable := 0
	for _, r := range content {
		total++
		if isBinaryNonPrintable(r) {
			nonPrintable++
		}
	}
	if total == 0 {
		return false
	}
	return nonPrintable > total/10
}

func isBinaryNonPrintable(r rune) bool {
	switch {
	case r >= 0x00 && r <= 0x08:
		return true
	case r >= 0x0E && r <= 0x1F:
		return true
	case r == 0x7F:
		return true
	default:
		return false
	}
}
