// Package splitter divides document text into sentence spans.
//
// Boundaries fall after sentence-ending punctuation followed by whitespace,
// after full-width CJK punctuation, and at blank lines. Known abbreviations,
// initials and decimal numbers do not end a sentence. Any sentence longer
// than the chunk size is subdivided at word boundaries, or at rune boundaries
// when a single word is too long, so that every span fits.
//
// Length is measured by a LengthFunc: Unicode code points by default, or
// tiktoken tokens via NewTokenLength.
package splitter
