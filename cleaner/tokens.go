package cleaner

import "unicode/utf8"

// EstimateHTMLTokens provides a fast token estimate for HTML-ish text
// without importing a tokenizer.
//
// Heuristic: utf8 rune count / 3. English averages ~4 chars/token, CJK
// ~1.5; dividing by 3 is a reasonable middle ground for mixed content
// and slightly over-estimates, which keeps reported savings honest.
func EstimateHTMLTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	est := n / 3
	if est < 1 {
		est = 1
	}
	return est
}

// EstimateArtifactTokens estimates tokens for a final artifact as
// len/4, the convention used for usage accounting on task results.
func EstimateArtifactTokens(artifact string) int {
	return len(artifact) / 4
}
