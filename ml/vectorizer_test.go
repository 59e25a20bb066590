package ml

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/unicode/norm"
)

func testVectorizer(t *testing.T) *CountVectorizer {
	t.Helper()
	v, err := NewCountVectorizer(testVocabulary, DefaultVectorizerOptions())
	require.NoError(t, err)
	return v
}

func TestCountVectorizerTransform(t *testing.T) {
	v := testVectorizer(t)

	got, err := v.Transform("FREE money, free MONEY now!! unknown")
	require.NoError(t, err)
	assert.Equal(t, 6, got.Dim)
	assert.Equal(t, []int{0, 1, 2}, got.Indices)
	assert.Equal(t, []float64{2, 2, 1}, got.Values)
}

func TestCountVectorizerSingleCharTokensDropped(t *testing.T) {
	v := testVectorizer(t)

	terms, err := v.Analyze("a b free c")
	require.NoError(t, err)
	assert.Equal(t, []string{"free"}, terms)
}

func TestCountVectorizerEmptyText(t *testing.T) {
	v := testVectorizer(t)

	got, err := v.Transform("")
	require.NoError(t, err)
	assert.Zero(t, got.NNZ())
	assert.Equal(t, make([]float64, 6), got.Dense())
}

func TestCountVectorizerBinary(t *testing.T) {
	opts := DefaultVectorizerOptions()
	opts.Binary = true
	v, err := NewCountVectorizer(testVocabulary, opts)
	require.NoError(t, err)

	got, err := v.Transform("free free free")
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, got.Values)
}

func TestCountVectorizerStripAccents(t *testing.T) {
	opts := DefaultVectorizerOptions()
	opts.StripAccents = StripAccentsUnicode
	v, err := NewCountVectorizer(map[string]int{"cafe": 0, "naive": 1}, opts)
	require.NoError(t, err)

	got, err := v.Transform("Café NAÏVE")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, got.Indices)
}

func TestCountVectorizerStripAccentsKeepsHangulJamo(t *testing.T) {
	opts := DefaultVectorizerOptions()
	opts.StripAccents = StripAccentsUnicode
	// 词表由训练端以NFKD分解后的形式导出
	v, err := NewCountVectorizer(map[string]int{norm.NFKD.String("한국어"): 0}, opts)
	require.NoError(t, err)

	got, err := v.Transform("한국어")
	require.NoError(t, err)
	assert.Equal(t, 1, got.NNZ())
}

func TestCountVectorizerStripAccentsKeepsZeroClassMarks(t *testing.T) {
	opts := DefaultVectorizerOptions()
	opts.StripAccents = StripAccentsUnicode
	opts.TokenPattern = `[\p{L}\p{M}\p{N}_]{2,}`
	v, err := NewCountVectorizer(map[string]int{"कुछ": 0}, opts)
	require.NoError(t, err)

	terms, err := v.Analyze("कुछ")
	require.NoError(t, err)
	assert.Equal(t, []string{"कुछ"}, terms)

	got, err := v.Transform("कुछ")
	require.NoError(t, err)
	assert.Equal(t, 1, got.NNZ())
}

func TestCountVectorizerExportedDefaultTokenPattern(t *testing.T) {
	opts := DefaultVectorizerOptions()
	opts.TokenPattern = `(?u)\b\w\w+\b`
	v, err := NewCountVectorizer(testVocabulary, opts)
	require.NoError(t, err)
	assert.Equal(t, DefaultTokenPattern, v.Options().TokenPattern)

	got, err := v.Transform("free money")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, got.Indices)
}

func TestCountVectorizerNgramsAndStopWords(t *testing.T) {
	opts := DefaultVectorizerOptions()
	opts.NgramRange = [2]int{1, 2}
	opts.StopWords = []string{"the"}
	v, err := NewCountVectorizer(map[string]int{"free": 0, "money": 1, "free money": 2}, opts)
	require.NoError(t, err)

	terms, err := v.Analyze("the free the money")
	require.NoError(t, err)
	assert.Equal(t, []string{"free", "money", "free money"}, terms)

	got, err := v.Transform("free money")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, got.Indices)
}

func TestCountVectorizerValidation(t *testing.T) {
	_, err := NewCountVectorizer(nil, DefaultVectorizerOptions())
	assert.Error(t, err)

	_, err = NewCountVectorizer(map[string]int{"a": 0, "b": 0}, DefaultVectorizerOptions())
	assert.Error(t, err)

	opts := DefaultVectorizerOptions()
	opts.TokenPattern = "("
	_, err = NewCountVectorizer(map[string]int{"a": 0}, opts)
	assert.Error(t, err)

	opts = DefaultVectorizerOptions()
	opts.NgramRange = [2]int{2, 1}
	_, err = NewCountVectorizer(map[string]int{"a": 0}, opts)
	assert.Error(t, err)
}

func TestCountVectorizerSaveLoad(t *testing.T) {
	opts := DefaultVectorizerOptions()
	opts.Lowercase = false
	v, err := NewCountVectorizer(testVocabulary, opts)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), DefaultVectorizerFile)
	require.NoError(t, v.Save(path))

	loaded := &CountVectorizer{}
	require.NoError(t, loaded.Load(path))
	assert.False(t, loaded.Options().Lowercase)
	assert.Equal(t, v.Terms(), loaded.Terms())
}
