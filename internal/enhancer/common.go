// Package enhancer implements the Enhancer Client of spec.md §4.9:
// chat-history parsing, Chinese-language detection, template rendering,
// tagged-prompt extraction, and the provider hook dispatching across the
// Simplified/Streamed Augment shapes plus the third-party Claude/OpenAI/
// Gemini variants.
package enhancer

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// ChatMessage is one turn of parsed conversation history.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

var (
	userPrefixes      = []string{"User:", "用户:"}
	assistantPrefixes = []string{"AI:", "Assistant:", "助手:"}
)

// ParseChatHistory splits a multi-line conversation-history blob into
// ordered ChatMessages. A line matching a recognized role prefix starts
// a new message; unprefixed lines (including blank ones) continue the
// current message.
func ParseChatHistory(history string) []ChatMessage {
	var messages []ChatMessage
	var role string
	var lines []string
	hasCurrent := false

	flush := func() {
		if hasCurrent {
			messages = append(messages, ChatMessage{Role: role, Content: strings.Join(lines, "\n")})
		}
	}

	for _, line := range strings.Split(history, "\n") {
		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			if hasCurrent {
				lines = append(lines, "")
			}
			continue
		}

		if r, content, ok := parseHistoryLine(trimmed); ok {
			flush()
			role = r
			lines = []string{content}
			hasCurrent = true
			continue
		}

		if hasCurrent {
			lines = append(lines, line)
		}
	}
	flush()

	return messages
}

func parseHistoryLine(line string) (role, content string, ok bool) {
	for _, p := range userPrefixes {
		if rest, found := strings.CutPrefix(line, p); found {
			return "user", strings.TrimSpace(rest), true
		}
	}
	for _, p := range assistantPrefixes {
		if rest, found := strings.CutPrefix(line, p); found {
			return "assistant", strings.TrimSpace(rest), true
		}
	}
	return "", "", false
}

var enhancedPromptTagRe = regexp.MustCompile(`(?s)<augment-enhanced-prompt(?:\s+[^>]*)?>\s*(.*?)\s*</augment-enhanced-prompt\s*>`)

// ExtractEnhancedPrompt pulls the trimmed inner text out of a balanced
// <augment-enhanced-prompt>...</augment-enhanced-prompt> pair, tolerating
// attributes and surrounding whitespace. Returns ok=false when no such
// tag (or only an empty one) is present, in which case callers fall back
// to the raw text.
func ExtractEnhancedPrompt(text string) (string, bool) {
	m := enhancedPromptTagRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	inner := strings.TrimSpace(m[1])
	if inner == "" {
		return "", false
	}
	return inner, true
}

// IsChineseText reports whether text is primarily Chinese: at least 3
// CJK Unified Ideographs, or a CJK-to-non-whitespace ratio of at least
// 10%.
func IsChineseText(text string) bool {
	cjkCount := 0
	nonWhitespace := 0
	for _, r := range text {
		if isCJKIdeograph(r) {
			cjkCount++
		}
		if !unicode.IsSpace(r) {
			nonWhitespace++
		}
	}
	if cjkCount == 0 {
		return false
	}
	if cjkCount >= 3 {
		return true
	}
	if nonWhitespace == 0 {
		return false
	}
	return float64(cjkCount)/float64(nonWhitespace) >= 0.1
}

func isCJKIdeograph(r rune) bool {
	return r >= 0x4e00 && r <= 0x9fa5
}

// ReplaceToolNames rewrites the retrieval tool's Augment-specific aliases
// to the name this server actually exposes.
func ReplaceToolNames(text string) string {
	text = strings.ReplaceAll(text, "codebase-retrieval", "search_context")
	text = strings.ReplaceAll(text, "codebase_retrieval", "search_context")
	return text
}

// RenderTemplate splits template on its single literal placeholder and
// concatenates before+value+after, rather than doing a textual replace,
// so a placeholder occurring inside value is never substituted again.
func RenderTemplate(template, placeholder, value string) (string, error) {
	before, after, found := strings.Cut(template, placeholder)
	if !found {
		return "", fmt.Errorf("template missing placeholder %q", placeholder)
	}
	var b strings.Builder
	b.Grow(len(before) + len(value) + len(after))
	b.WriteString(before)
	b.WriteString(value)
	b.WriteString(after)
	return b.String(), nil
}

const enhancePromptPlaceholder = "{original_prompt}"

// RenderEnhancePrompt renders the outbound enhancement prompt template
// with the caller's original prompt substituted in.
func RenderEnhancePrompt(originalPrompt string) (string, error) {
	return RenderTemplate(EnhancePromptTemplate, enhancePromptPlaceholder, originalPrompt)
}

// BuildThirdPartyPrompt renders the enhance-prompt template and appends a
// language hint when the original prompt is primarily Chinese, for the
// third-party providers that have no separate language field.
func BuildThirdPartyPrompt(originalPrompt string) (string, error) {
	rendered, err := RenderEnhancePrompt(originalPrompt)
	if err != nil {
		return "", err
	}
	if IsChineseText(originalPrompt) {
		rendered += "\n\n请用中文回复。"
	}
	return rendered, nil
}
