package plan

import "strings"

// Percent, single quote, colon and newline are all meaningful in the
// drawtext mini-language; leaving any of them raw corrupts the filter graph
// or the rendered text.
var textEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`:`, `\:`,
	`%`, `%%`,
	"\n", `\n`,
)

// EscapeText escapes a subtitle string for drawtext's text= option.
func EscapeText(s string) string {
	return textEscaper.Replace(s)
}

// EscapePath escapes a font file path for drawtext's fontfile= option.
// Windows drive colons and quoted segments are the usual offenders.
var pathEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`:`, `\:`,
)

func EscapePath(s string) string {
	return pathEscaper.Replace(s)
}
