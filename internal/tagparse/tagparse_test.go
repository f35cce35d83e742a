package tagparse_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/tagcatalog/internal/tagparse"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		text string
		want tagparse.Fields
	}{
		{
			name: "clean labels",
			text: "Article: Sketch-7\nColour: Black\nSize: 6x9 7x10\nPair: 12\nMade in India\n",
			want: tagparse.Fields{
				Article: "sketch-7", Colour: "black", Size: "6x9 7x10", Pair: "12",
				Description: "Made in India",
			},
		},
		{
			name: "ocr misreads",
			text: "Aaticle:-Runner-04\nCol-Wt/Tan\nStze:-6x9 7x10 Poir\nPaie: 8",
			want: tagparse.Fields{
				Article: "runner-04", Colour: "wt/tan", Size: "6x9 7x10", Pair: "8",
			},
		},
		{
			name: "shapes and fallbacks",
			text: "  SKETCH-9 BLACK 6x9 24  ",
			want: tagparse.Fields{
				Article: "sketch-9", Colour: "black", Size: "6x9", Pair: "24",
			},
		},
		{
			name: "dotted colour and slash size",
			text: "Art-Sktch 7\nT.Blue\n6/9-7/1\n",
			want: tagparse.Fields{
				Article: "sktch 7", Colour: "t.blue", Size: "6/9-7/1", Pair: "7",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tagparse.Parse(tt.text)
			tt.want.RawText = tt.text
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseEmpty(t *testing.T) {
	got := tagparse.Parse("  \n\n ")
	assert.True(t, got.Empty())
	assert.Equal(t, "", got.Description)
}

func TestParseIsDeterministic(t *testing.T) {
	text := "Article: Safari-3 Color: Navy Size: 7x10 Pairs: 6"
	first := tagparse.Parse(text)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, tagparse.Parse(text))
	}
	assert.Equal(t, "safari-3", first.Article)
	assert.Equal(t, "navy", first.Colour)
	assert.Equal(t, "7x10", first.Size)
	assert.Equal(t, "6", first.Pair)
}

func TestSizeDropsPairWords(t *testing.T) {
	got := tagparse.Parse("size: 6x9 pairs 12")
	assert.Equal(t, "6x9", got.Size)
	assert.Equal(t, "12", got.Pair)
}
