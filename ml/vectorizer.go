package ml

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// TypeCountVectorizer 词频向量化器的制品类型
	TypeCountVectorizer = "count_vectorizer"

	// DefaultTokenPattern 默认分词规则：两个及以上的单词字符
	DefaultTokenPattern = `[\p{L}\p{N}_]{2,}`

	// exportedTokenPattern 训练端导出的默认规则，Go正则不支持，加载时替换为DefaultTokenPattern
	exportedTokenPattern = `(?u)\b\w\w+\b`

	// StripAccentsUnicode 按Unicode组合类去除重音
	StripAccentsUnicode = "unicode"
	// StripAccentsASCII 仅保留ASCII字符
	StripAccentsASCII = "ascii"
)

// VectorizerOptions 训练时确定的分析器选项
type VectorizerOptions struct {
	Lowercase    bool
	StripAccents string
	TokenPattern string
	NgramRange   [2]int
	StopWords    []string
	Binary       bool
}

// DefaultVectorizerOptions 默认分析器选项
func DefaultVectorizerOptions() VectorizerOptions {
	return VectorizerOptions{
		Lowercase:    true,
		TokenPattern: DefaultTokenPattern,
		NgramRange:   [2]int{1, 1},
	}
}

// CountVectorizer 基于固定词表的词袋计数向量化器，构造后只读，可并发使用
type CountVectorizer struct {
	vocabulary map[string]int
	size       int
	opts       VectorizerOptions
	pattern    *regexp.Regexp
	stopWords  map[string]struct{}
}

type vectorizerDocument struct {
	Type         string         `json:"type"`
	Vocabulary   map[string]int `json:"vocabulary"`
	Lowercase    *bool          `json:"lowercase,omitempty"`
	StripAccents string         `json:"strip_accents,omitempty"`
	TokenPattern string         `json:"token_pattern,omitempty"`
	NgramRange   []int          `json:"ngram_range,omitempty"`
	StopWords    []string       `json:"stop_words,omitempty"`
	Binary       bool           `json:"binary,omitempty"`
}

// NewCountVectorizer 创建向量化器并校验词表与选项
func NewCountVectorizer(vocabulary map[string]int, opts VectorizerOptions) (*CountVectorizer, error) {
	if len(vocabulary) == 0 {
		return nil, errors.New("vocabulary is empty")
	}
	seen := make(map[int]string, len(vocabulary))
	size := 0
	for term, idx := range vocabulary {
		if idx < 0 || idx >= len(vocabulary) {
			return nil, fmt.Errorf("vocabulary index %d for %q out of range", idx, term)
		}
		if other, ok := seen[idx]; ok {
			return nil, fmt.Errorf("vocabulary index %d shared by %q and %q", idx, other, term)
		}
		seen[idx] = term
		if idx+1 > size {
			size = idx + 1
		}
	}

	if opts.TokenPattern == "" || opts.TokenPattern == exportedTokenPattern {
		opts.TokenPattern = DefaultTokenPattern
	}
	pattern, err := regexp.Compile(opts.TokenPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid token pattern: %w", err)
	}
	if opts.NgramRange == [2]int{} {
		opts.NgramRange = [2]int{1, 1}
	}
	if opts.NgramRange[0] < 1 || opts.NgramRange[0] > opts.NgramRange[1] {
		return nil, fmt.Errorf("invalid ngram range %v", opts.NgramRange)
	}
	switch opts.StripAccents {
	case "", StripAccentsUnicode, StripAccentsASCII:
	default:
		return nil, fmt.Errorf("unknown strip_accents %q", opts.StripAccents)
	}

	stop := make(map[string]struct{}, len(opts.StopWords))
	for _, w := range opts.StopWords {
		stop[w] = struct{}{}
	}

	vocab := make(map[string]int, len(vocabulary))
	for term, idx := range vocabulary {
		vocab[term] = idx
	}
	return &CountVectorizer{
		vocabulary: vocab,
		size:       size,
		opts:       opts,
		pattern:    pattern,
		stopWords:  stop,
	}, nil
}

// VocabularySize 词表大小，即特征维度
func (v *CountVectorizer) VocabularySize() int {
	return v.size
}

// Options 返回分析器选项
func (v *CountVectorizer) Options() VectorizerOptions {
	return v.opts
}

// Terms 按列序号返回词表
func (v *CountVectorizer) Terms() []string {
	terms := make([]string, v.size)
	for term, idx := range v.vocabulary {
		terms[idx] = term
	}
	return terms
}

// Transform 将文本转换为稀疏词频向量
func (v *CountVectorizer) Transform(text string) (SparseVector, error) {
	if v.pattern == nil {
		return SparseVector{}, errors.New("vectorizer not loaded")
	}
	terms, err := v.Analyze(text)
	if err != nil {
		return SparseVector{}, err
	}

	counts := make(map[int]float64)
	for _, term := range terms {
		idx, ok := v.vocabulary[term]
		if !ok {
			continue
		}
		if v.opts.Binary {
			counts[idx] = 1
		} else {
			counts[idx]++
		}
	}

	vec := SparseVector{
		Dim:     v.size,
		Indices: make([]int, 0, len(counts)),
		Values:  make([]float64, 0, len(counts)),
	}
	for idx := range counts {
		vec.Indices = append(vec.Indices, idx)
	}
	sort.Ints(vec.Indices)
	for _, idx := range vec.Indices {
		vec.Values = append(vec.Values, counts[idx])
	}
	return vec, nil
}

// Analyze 预处理、分词、去停用词并展开n-gram，返回用于查词表的词项
func (v *CountVectorizer) Analyze(text string) ([]string, error) {
	text, err := v.preprocess(text)
	if err != nil {
		return nil, err
	}

	tokens := v.pattern.FindAllString(text, -1)
	if len(v.stopWords) > 0 {
		kept := tokens[:0]
		for _, tok := range tokens {
			if _, stop := v.stopWords[tok]; !stop {
				kept = append(kept, tok)
			}
		}
		tokens = kept
	}
	return wordNgrams(tokens, v.opts.NgramRange[0], v.opts.NgramRange[1]), nil
}

func (v *CountVectorizer) preprocess(text string) (string, error) {
	if v.opts.Lowercase {
		// Caser有状态，每次调用单独创建
		text = cases.Lower(language.Und).String(text)
	}
	switch v.opts.StripAccents {
	case StripAccentsUnicode:
		// 保留NFKD结果，只去掉组合类非零的字符
		t := transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(func(r rune) bool {
			return norm.NFD.PropertiesString(string(r)).CCC() != 0
		})))
		out, _, err := transform.String(t, text)
		if err != nil {
			return "", fmt.Errorf("strip accents: %w", err)
		}
		text = out
	case StripAccentsASCII:
		t := transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(func(r rune) bool {
			return r > unicode.MaxASCII
		})))
		out, _, err := transform.String(t, text)
		if err != nil {
			return "", fmt.Errorf("strip accents: %w", err)
		}
		text = out
	}
	return text, nil
}

func wordNgrams(tokens []string, minN, maxN int) []string {
	if maxN == 1 {
		return tokens
	}
	out := make([]string, 0, len(tokens)*(maxN-minN+1))
	for n := minN; n <= maxN; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			out = append(out, strings.Join(tokens[i:i+n], " "))
		}
	}
	return out
}

// Save 保存为JSON制品
func (v *CountVectorizer) Save(path string) error {
	if v.pattern == nil {
		return errors.New("vectorizer not loaded")
	}
	lowercase := v.opts.Lowercase
	return writeArtifact(path, vectorizerDocument{
		Type:         TypeCountVectorizer,
		Vocabulary:   v.vocabulary,
		Lowercase:    &lowercase,
		StripAccents: v.opts.StripAccents,
		TokenPattern: v.opts.TokenPattern,
		NgramRange:   []int{v.opts.NgramRange[0], v.opts.NgramRange[1]},
		StopWords:    v.opts.StopWords,
		Binary:       v.opts.Binary,
	})
}

// Load 从JSON制品加载
func (v *CountVectorizer) Load(path string) error {
	var doc vectorizerDocument
	if err := readArtifact(path, &doc); err != nil {
		return err
	}
	if doc.Type != "" && doc.Type != TypeCountVectorizer {
		return fmt.Errorf("%s: artifact type %q is not %q", path, doc.Type, TypeCountVectorizer)
	}

	opts := DefaultVectorizerOptions()
	if doc.Lowercase != nil {
		opts.Lowercase = *doc.Lowercase
	}
	opts.StripAccents = doc.StripAccents
	if doc.TokenPattern != "" {
		opts.TokenPattern = doc.TokenPattern
	}
	if len(doc.NgramRange) > 0 {
		if len(doc.NgramRange) != 2 {
			return fmt.Errorf("%s: ngram_range must have two entries", path)
		}
		opts.NgramRange = [2]int{doc.NgramRange[0], doc.NgramRange[1]}
	}
	opts.StopWords = doc.StopWords
	opts.Binary = doc.Binary

	loaded, err := NewCountVectorizer(doc.Vocabulary, opts)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	*v = *loaded
	return nil
}
