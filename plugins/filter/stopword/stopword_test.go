package stopword

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinEnglish(t *testing.T) {
	f, err := New(nil)
	require.NoError(t, err)
	assert.Equal(t, 179, f.Len())
	for _, w := range []string{"i", "am", "at", "you", "the", "is", "don't", "wouldn"} {
		assert.True(t, f.IsStopword(w), w)
	}
	for _, w := range []string{"hello", "free", "call", "pm", "win"} {
		assert.False(t, f.IsStopword(w), w)
	}
}

func TestFilterWorkedExample(t *testing.T) {
	f, err := New(nil)
	require.NoError(t, err)
	assert.Equal(t, "hello calling pm", f.Filter("hello i am calling you at pm"))
}

func TestFilterWholeWordOnly(t *testing.T) {
	f := NewFromWords([]string{"a", "the", "is"})
	// "theme"、"isle"、"banana" 含停用词子串但不是整词
	assert.Equal(t, "theme isle banana", f.Filter("the theme is a isle banana"))
	assert.Equal(t, "", f.Filter("the a is"))
	assert.Equal(t, "", f.Filter(""))
	assert.Equal(t, "x y", f.Filter("  x   the  y  "))
}

func TestFilterExcludesEveryStopword(t *testing.T) {
	f, err := New(nil)
	require.NoError(t, err)
	text := strings.Join(append(f.Words(), "prize", "claim", "txt"), " ")
	out := f.Filter(text)
	for _, tok := range strings.Fields(out) {
		assert.False(t, f.IsStopword(tok), tok)
	}
	assert.Equal(t, "prize claim txt", out)
}

func TestOptions(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "stop.txt")
	require.NoError(t, os.WriteFile(p, []byte("# custom\nFoo\n\n bar \n"), 0o644))

	f, err := New(&Options{Path: p, Extra: []string{"BAZ"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"bar", "baz", "foo"}, f.Words())
	assert.Equal(t, "the", f.Filter("foo the bar baz"))

	_, err = New(&Options{Language: "french"})
	assert.Error(t, err)

	_, err = New(&Options{Path: filepath.Join(dir, "missing.txt")})
	assert.Error(t, err)
}
