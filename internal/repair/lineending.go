package repair

import "strings"

var lineEndingReplacer = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// normalizeLineEndings rewrites CRLF and lone CR as LF.
func normalizeLineEndings(text string, log *ChangeLog) string {
	if !strings.Contains(text, "\r") {
		return text
	}
	out := lineEndingReplacer.Replace(text)
	if out != text {
		log.Addf(StageLineEnding, "Normalized line endings (fixed Windows/Mac-style newlines).")
	}
	return out
}
