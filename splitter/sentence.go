package splitter

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

var defaultAbbreviations = []string{
	"mr", "mrs", "ms", "dr", "prof", "sr", "jr", "st", "mt", "vs",
	"e.g", "i.e", "cf", "al", "inc", "ltd", "co", "corp", "dept", "est",
	"fig", "no", "vol", "approx", "jan", "feb", "mar", "apr", "jun", "jul",
	"aug", "sep", "sept", "oct", "nov", "dec",
}

// isTerminator reports sentence-ending punctuation that still needs a
// following whitespace to count as a boundary.
func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// isFullWidthTerminator reports CJK sentence punctuation, which ends a
// sentence without trailing whitespace.
func isFullWidthTerminator(r rune) bool {
	return r == '。' || r == '！' || r == '？'
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', '”', '’', '»', ')', ']', '}', '」', '』', '）':
		return true
	}
	return false
}

// skipWhitespace returns the offset of the first non-whitespace rune at or
// after i, and how many newlines were crossed.
func skipWhitespace(text string, i int) (int, int) {
	newlines := 0
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !unicode.IsSpace(r) {
			break
		}
		if r == '\n' {
			newlines++
		}
		i += size
	}
	return i, newlines
}

func skipClosers(text string, i int) int {
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !isCloser(r) {
			break
		}
		i += size
	}
	return i
}

// nextBoundary returns the end offset of the sentence starting at from.
// The returned sentence includes its trailing whitespace. If no boundary is
// found the rest of the text is one sentence.
func (s *Splitter) nextBoundary(text string, from int) int {
	content := false
	for i := from; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])

		switch {
		case r == '\n':
			end, newlines := skipWhitespace(text, i)
			if content && newlines >= 2 {
				return end
			}
			i = end
			continue

		case isFullWidthTerminator(r):
			end := skipClosers(text, i+size)
			end, _ = skipWhitespace(text, end)
			return end

		case isTerminator(r):
			if end, ok := s.terminatorBoundary(text, i); ok {
				return end
			}
		}

		if !unicode.IsSpace(r) {
			content = true
		}
		i += size
	}
	return len(text)
}

// terminatorBoundary decides whether the terminator at i ends a sentence and,
// if so, where the sentence (with trailing whitespace) ends.
func (s *Splitter) terminatorBoundary(text string, i int) (int, bool) {
	j := i
	for j < len(text) && isTerminator(rune(text[j])) {
		j++
	}
	single := j-i == 1 && text[i] == '.'

	j = skipClosers(text, j)
	if j == len(text) {
		return j, true
	}

	r, _ := utf8.DecodeRuneInString(text[j:])
	if !unicode.IsSpace(r) {
		// "3.14", "example.com", "e.g" in the middle of a token
		return 0, false
	}

	end, newlines := skipWhitespace(text, j)
	if end == len(text) || newlines >= 2 {
		return end, true
	}

	next, _ := utf8.DecodeRuneInString(text[end:])
	if unicode.IsLower(next) {
		return 0, false
	}
	if single && s.isAbbreviation(text, i) {
		return 0, false
	}
	return end, true
}

// isAbbreviation reports whether the word ending just before the period at
// dot is a known abbreviation or a single-letter initial.
func (s *Splitter) isAbbreviation(text string, dot int) bool {
	start := dot
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(text[:start])
		if !unicode.IsLetter(r) && r != '.' {
			break
		}
		start -= size
	}
	word := strings.ToLower(text[start:dot])
	if word == "" {
		return false
	}
	if utf8.RuneCountInString(word) == 1 {
		return true
	}
	_, ok := s.abbreviations[word]
	return ok
}
