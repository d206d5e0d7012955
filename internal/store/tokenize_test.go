package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"simple", "Hello World", []string{"hello", "world"}},
		{"punctuation", "go-lang, rocks!", []string{"go", "lang", "rocks"}},
		{"diacritics", "Café Crème", []string{"cafe", "creme"}},
		{"decomposed", "Cafe\u0301", []string{"cafe"}},
		{"fold", "HeLLo WORLD", []string{"hello", "world"}},
		{"digits", "v1.25 release", []string{"v1", "25", "release"}},
		{"compatibility", "ＡＢＣ", []string{"abc"}},
		{"empty", "", nil},
		{"only symbols", "--- ***", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.in)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSearchTerm(t *testing.T) {
	got := parseSearchTerm("sync* Engine db-lay*")
	assert.Equal(t, []queryToken{
		{text: "sync", prefix: true},
		{text: "engine"},
		{text: "db"},
		{text: "lay", prefix: true},
	}, got)

	assert.Empty(t, parseSearchTerm("  * "))
}
