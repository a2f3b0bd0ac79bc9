package splitter

import (
	"strings"
	"testing"

	"github.com/poiesic/splitembed/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spanTexts(spans []core.Span) []string {
	out := make([]string, len(spans))
	for i, s := range spans {
		out[i] = s.Text
	}
	return out
}

func joinSpans(spans []core.Span) string {
	var b strings.Builder
	for _, s := range spans {
		b.WriteString(s.Text)
	}
	return b.String()
}

func TestNew_InvalidChunkSize(t *testing.T) {
	_, err := New(0)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
	assert.ErrorIs(t, err, core.ErrInvalidChunkSize)
}

func TestNew_NilLengthFunc(t *testing.T) {
	_, err := New(10, WithLengthFunc(nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}

func TestSplit_SentenceBoundaries(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "three sentences",
			text: "Sentence one. Sentence two. Sentence three.",
			want: []string{"Sentence one. ", "Sentence two. ", "Sentence three."},
		},
		{
			name: "abbreviation",
			text: "Dr. Smith arrived. He sat.",
			want: []string{"Dr. Smith arrived. ", "He sat."},
		},
		{
			name: "latin abbreviation",
			text: "Use a tool, e.g. A hammer. Done.",
			want: []string{"Use a tool, e.g. A hammer. ", "Done."},
		},
		{
			name: "initial",
			text: "J. Smith wrote it. Then he left.",
			want: []string{"J. Smith wrote it. ", "Then he left."},
		},
		{
			name: "decimal",
			text: "Pi is 3.14 today. Yes.",
			want: []string{"Pi is 3.14 today. ", "Yes."},
		},
		{
			name: "ellipsis before lowercase",
			text: "Wait... then what? Nothing.",
			want: []string{"Wait... then what? ", "Nothing."},
		},
		{
			name: "closing quote stays with sentence",
			text: `He said "Stop." Then silence.`,
			want: []string{`He said "Stop." `, "Then silence."},
		},
		{
			name: "exclamation and question",
			text: "Really?! Yes! Fine.",
			want: []string{"Really?! ", "Yes! ", "Fine."},
		},
		{
			name: "paragraph break",
			text: "First line\n\nSecond line",
			want: []string{"First line\n\n", "Second line"},
		},
		{
			name: "single newline does not split",
			text: "First line\nsecond line",
			want: []string{"First line\nsecond line"},
		},
		{
			name: "full-width punctuation",
			text: "今日は晴れ。明日は雨。",
			want: []string{"今日は晴れ。", "明日は雨。"},
		},
		{
			name: "leading whitespace joins first span",
			text: "  Hello. World.",
			want: []string{"  Hello. ", "World."},
		},
		{
			name: "trailing whitespace joins last span",
			text: "Hello. World.   ",
			want: []string{"Hello. ", "World.   "},
		},
		{
			name: "no punctuation",
			text: "just some words",
			want: []string{"just some words"},
		},
	}

	s, err := New(1000)
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spans := s.Split(tt.text)
			assert.Equal(t, tt.want, spanTexts(spans))
			assert.Equal(t, tt.text, joinSpans(spans))
			for _, sp := range spans {
				assert.False(t, sp.Forced)
				assert.Equal(t, tt.text[sp.Start:sp.End], sp.Text)
			}
		})
	}
}

func TestSplit_EmptyInput(t *testing.T) {
	s, err := New(10)
	require.NoError(t, err)

	assert.Empty(t, s.Split(""))
	assert.Empty(t, s.Split("   \n\t "))
}

func TestSplit_CustomAbbreviations(t *testing.T) {
	s, err := New(1000, WithAbbreviations("Sen.", " rep "))
	require.NoError(t, err)

	spans := s.Split("Sen. Warren spoke. Rep. Jones left. Then quiet.")
	assert.Equal(t, []string{"Sen. Warren spoke. ", "Rep. Jones left. ", "Then quiet."}, spanTexts(spans))
}

func TestSplit_ForcedAtWordBoundary(t *testing.T) {
	s, err := New(10)
	require.NoError(t, err)

	spans := s.Split("aaaa bbbb cccc dddd")
	assert.Equal(t, []string{"aaaa bbbb ", "cccc dddd"}, spanTexts(spans))
	for _, sp := range spans {
		assert.True(t, sp.Forced)
	}
}

func TestSplit_ForcedAtRuneBoundary(t *testing.T) {
	s, err := New(4)
	require.NoError(t, err)

	spans := s.Split("abcdefghij")
	assert.Equal(t, []string{"abcd", "efgh", "ij"}, spanTexts(spans))
}

func TestSplit_ForcedMultibyte(t *testing.T) {
	s, err := New(3)
	require.NoError(t, err)

	text := "ééééééé"
	spans := s.Split(text)
	assert.Equal(t, []string{"ééé", "ééé", "é"}, spanTexts(spans))
	assert.Equal(t, text, joinSpans(spans))
}

func TestSplit_OversizedSingleRune(t *testing.T) {
	// W weighs 5 units, everything else 1
	weighted := func(s string) int {
		n := 0
		for _, r := range s {
			if r == 'W' {
				n += 5
			} else {
				n++
			}
		}
		return n
	}

	s, err := New(3, WithLengthFunc(weighted))
	require.NoError(t, err)

	spans := s.Split("aWb")
	assert.Equal(t, []string{"a", "W", "b"}, spanTexts(spans))
}

func TestSplit_LongSentenceOnlyThatSentenceForced(t *testing.T) {
	s, err := New(12)
	require.NoError(t, err)

	spans := s.Split("Short one. This sentence is far too long to fit. End.")
	require.NotEmpty(t, spans)

	assert.Equal(t, "Short one. ", spans[0].Text)
	assert.False(t, spans[0].Forced)
	last := spans[len(spans)-1]
	assert.Equal(t, "End.", last.Text)
	assert.False(t, last.Forced)
	for _, sp := range spans[1 : len(spans)-1] {
		assert.True(t, sp.Forced)
		assert.LessOrEqual(t, RuneLength(sp.Text), 12)
	}
}

func TestSpans_BoundedAndCovering(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 20) +
		"Supercalifragilisticexpialidocious is long! Is it? Yes.\n\nNew paragraph here."

	for _, size := range []int{1, 5, 7, 16, 50, 200} {
		s, err := New(size)
		require.NoError(t, err)

		spans := s.Split(text)
		assert.Equal(t, text, joinSpans(spans), "size %d", size)

		prevEnd := 0
		for _, sp := range spans {
			assert.Equal(t, prevEnd, sp.Start)
			assert.Greater(t, sp.End, sp.Start)
			assert.LessOrEqual(t, RuneLength(sp.Text), size)
			prevEnd = sp.End
		}
		assert.Equal(t, len(text), prevEnd)
	}
}

func TestSpans_RestartableAndStoppable(t *testing.T) {
	s, err := New(100)
	require.NoError(t, err)

	seq := s.Spans("One. Two. Three.")

	var first, second []string
	for sp := range seq {
		first = append(first, sp.Text)
	}
	for sp := range seq {
		second = append(second, sp.Text)
	}
	assert.Equal(t, first, second)

	count := 0
	for range seq {
		count++
		break
	}
	assert.Equal(t, 1, count)
}

func TestSplit_Deterministic(t *testing.T) {
	s, err := New(9)
	require.NoError(t, err)

	text := "Alpha beta. Gamma delta epsilon zeta. Eta."
	assert.Equal(t, s.Split(text), s.Split(text))
}
