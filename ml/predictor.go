package ml

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// cacheKey 文本的SHA-256摘要，缓存占用与请求体大小无关
type cacheKey = [sha256.Size]byte

// Predictor 推理器：文本经向量化器和分类器得到预测结果。
// 制品不可变，按文本摘要缓存的结果永不过期。
type Predictor struct {
	classifier Classifier
	vectorizer Vectorizer
	cache      *lru.Cache[cacheKey, Prediction]

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewPredictor 基于已加载的制品创建推理器，cacheSize <= 0 时不缓存
func NewPredictor(artifacts *Artifacts, cacheSize int) (*Predictor, error) {
	if artifacts == nil || artifacts.Classifier == nil || artifacts.Vectorizer == nil {
		return nil, errors.New("artifacts not loaded")
	}
	p := &Predictor{
		classifier: artifacts.Classifier,
		vectorizer: artifacts.Vectorizer,
	}
	if cacheSize > 0 {
		cache, err := lru.New[cacheKey, Prediction](cacheSize)
		if err != nil {
			return nil, err
		}
		p.cache = cache
	}
	return p, nil
}

// Predict 预测单条文本的标签
func (p *Predictor) Predict(ctx context.Context, text string) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, ArtifactError(fmt.Errorf("prediction failed: %w", err))
	}

	var key cacheKey
	if p.cache != nil {
		key = sha256.Sum256([]byte(text))
		if pred, ok := p.cache.Get(key); ok {
			p.hits.Add(1)
			return pred, nil
		}
		p.misses.Add(1)
	}

	features, err := p.vectorizer.Transform(text)
	if err != nil {
		return Prediction{}, ArtifactError(fmt.Errorf("prediction failed: transform: %w", err))
	}
	pred, err := p.classifier.Predict(features)
	if err != nil {
		return Prediction{}, ArtifactError(fmt.Errorf("prediction failed: %w", err))
	}

	if p.cache != nil {
		p.cache.Add(key, pred)
	}
	return pred, nil
}

// Probabilities 返回各类别的后验概率，顺序与Classes一致
func (p *Predictor) Probabilities(text string) ([]float64, error) {
	features, err := p.vectorizer.Transform(text)
	if err != nil {
		return nil, ArtifactError(fmt.Errorf("prediction failed: transform: %w", err))
	}
	proba, err := p.classifier.PredictProba(features)
	if err != nil {
		return nil, ArtifactError(fmt.Errorf("prediction failed: %w", err))
	}
	return proba, nil
}

// Info 返回模型概要
func (p *Predictor) Info() ModelInfo {
	return ModelInfo{
		Classes:        p.classifier.Classes(),
		NumFeatures:    p.classifier.NumFeatures(),
		VocabularySize: p.vectorizer.VocabularySize(),
	}
}

// CacheStats 返回缓存命中与未命中次数
func (p *Predictor) CacheStats() (hits, misses uint64) {
	return p.hits.Load(), p.misses.Load()
}
