package provider

import (
	"strings"

	"golang.org/x/net/html"
)

// htmlToText reduces an HTML document to whitespace-normalized visible text.
// Script and style contents are dropped. Tokenization failures simply end the
// text, which is good enough for the regex scans the providers run.
func htmlToText(document string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(document))
	var builder strings.Builder
	skipDepth := 0
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return normalizeSpace(builder.String())
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if isSkippedTag(string(name)) {
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if isSkippedTag(string(name)) && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth == 0 {
				builder.Write(tokenizer.Text())
				builder.WriteByte(' ')
			}
		}
	}
}

func isSkippedTag(name string) bool {
	return name == "script" || name == "style"
}

func normalizeSpace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
