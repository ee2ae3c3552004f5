package pdf

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	// codeHints flags API-reference style content: request lines,
	// pagination parameters, code fences, indented blocks, bracketed
	// payloads, HTTP headers and markdown headings.
	codeHints = regexp.MustCompile(`(?im)` +
		`\b(GET|POST|PUT|PATCH|DELETE|HEAD|OPTIONS)\b\s+/|` +
		`\b(limit|offset|cursor|pageToken|per_page|maxResults)\b|` +
		"`{1,3}|^[ \\t]{2,}\\S|" +
		`\{[\s\S]*?\}|\[[\s\S]*?\]|` +
		`HTTP/1\.[01]|Authorization:|Bearer\s+[A-Za-z0-9\-_.]+|` +
		`^#+\s|\bExamples?\b|\bParameters?\b`)

	// tableHints flags pipe tables and lines with four or more columns
	// separated by runs of two or more blanks.
	tableHints = regexp.MustCompile(`(?m)\|.+\||^[^\n]*\S(?:[ \t]{2,}\S+){3,}`)

	multiSpace    = regexp.MustCompile(`\s+`)
	manyNewlines  = regexp.MustCompile(`\n{3,}`)
	digitOnlyLine = regexp.MustCompile(`^\s*\d+\s*$`)
)

// pageNumberLines is how many lines at the top and bottom are checked for
// bare page numbers.
const pageNumberLines = 3

func looksLikeCode(text string) bool  { return codeHints.MatchString(text) }
func looksLikeTable(text string) bool { return tableHints.MatchString(text) }

// stripPageNumbers blanks digit-only lines among the first and last few
// lines, leaving numbered lines in the middle (code listings) alone.
func stripPageNumbers(text string) string {
	lines := strings.Split(text, "\n")
	top := min(pageNumberLines, len(lines))
	for i := 0; i < top; i++ {
		if digitOnlyLine.MatchString(lines[i]) {
			lines[i] = ""
		}
	}
	for i := max(0, len(lines)-pageNumberLines); i < len(lines); i++ {
		if digitOnlyLine.MatchString(lines[i]) {
			lines[i] = ""
		}
	}
	return strings.Join(lines, "\n")
}

// cleanText normalises extracted page text. Code and table pages keep
// their whitespace apart from runs of blank lines; prose is collapsed to
// single spaces.
func cleanText(raw string, preserveWhitespace bool) string {
	if raw == "" {
		return ""
	}
	text := norm.NFKC.String(raw)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = stripPageNumbers(text)

	if preserveWhitespace {
		return strings.TrimRight(manyNewlines.ReplaceAllString(text, "\n\n"), " \t\n")
	}
	return strings.TrimSpace(multiSpace.ReplaceAllString(text, " "))
}
