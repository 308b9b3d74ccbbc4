package parsers

import (
	"iter"
	"strings"

	"github.com/mvp-joe/cdoc/internal/indexer/extraction"
)

// SplitComments separates comment tokens from code tokens. Consecutive line
// comments of the same kind and no code between them are merged into one
// Comment when opts.MergeLineComments is set. A trailing ///< comment never
// merges with a leading one.
func SplitComments(tokens iter.Seq[Token], opts Options) ([]Token, []extraction.Comment) {
	var code []Token
	var comments []extraction.Comment

	// lastLine is true while the previous token was a line comment.
	lastLine := false
	for tok := range tokens {
		isBlock := tok.Kind == TokenComment && strings.HasPrefix(tok.Text, "/*") ||
			tok.Kind == TokenUnterminated && strings.HasPrefix(tok.Text, "/*")
		isLine := tok.Kind == TokenComment && strings.HasPrefix(tok.Text, "//")

		switch {
		case isLine:
			c := lineComment(tok)
			if n := len(comments); opts.MergeLineComments && lastLine && n > 0 &&
				comments[n-1].EndLine+1 == c.StartLine && comments[n-1].Kind == c.Kind &&
				comments[n-1].Trailing == c.Trailing {
				prev := &comments[n-1]
				prev.Lines = append(prev.Lines, c.Lines...)
				prev.Text = strings.Join(prev.Lines, " ")
				prev.EndLine = c.EndLine
				prev.EndOffset = c.EndOffset
			} else {
				comments = append(comments, c)
			}
			lastLine = true
		case isBlock:
			comments = append(comments, blockComment(tok))
			lastLine = false
		default:
			code = append(code, tok)
			lastLine = false
		}
	}
	return code, comments
}

func lineComment(tok Token) extraction.Comment {
	kind := extraction.CommentPlain
	body := tok.Text[2:]
	if (strings.HasPrefix(tok.Text, "///") && !strings.HasPrefix(tok.Text, "////")) ||
		strings.HasPrefix(tok.Text, "//!") {
		kind = extraction.CommentLineDoc
		body = tok.Text[3:]
	}
	trailing := kind.IsDoc() && strings.HasPrefix(body, "<")
	if trailing {
		body = body[1:]
	}
	lines := cleanLines(body)
	return extraction.Comment{
		Kind:        kind,
		Trailing:    trailing,
		Text:        strings.Join(lines, " "),
		Lines:       lines,
		StartLine:   tok.Line,
		EndLine:     tok.EndLine,
		StartOffset: tok.Offset,
		EndOffset:   tok.End(),
	}
}

func blockComment(tok Token) extraction.Comment {
	truncated := tok.Kind == TokenUnterminated
	body := tok.Text[2:]
	if !truncated {
		body = body[:len(body)-2]
	}

	kind := extraction.CommentPlain
	if isBlockDoc(tok.Text) {
		kind = extraction.CommentBlockDoc
		body = body[1:]
	}
	trailing := kind.IsDoc() && strings.HasPrefix(body, "<")
	if trailing {
		body = body[1:]
	}
	lines := cleanLines(body)
	return extraction.Comment{
		Kind:        kind,
		Trailing:    trailing,
		Text:        strings.Join(lines, " "),
		Lines:       lines,
		StartLine:   tok.Line,
		EndLine:     tok.EndLine,
		StartOffset: tok.Offset,
		EndOffset:   tok.End(),
		Truncated:   truncated,
	}
}

// isBlockDoc accepts /** and /*! openers. /**/ is an empty plain comment and
// /*** banners are decoration.
func isBlockDoc(text string) bool {
	if strings.HasPrefix(text, "/*!") {
		return true
	}
	if !strings.HasPrefix(text, "/**") || len(text) < 4 {
		return false
	}
	return text[3] != '/' && text[3] != '*'
}

// cleanLines strips leading asterisks and surrounding blanks from each line
// and drops the empty ones.
func cleanLines(body string) []string {
	var lines []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "*")
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
