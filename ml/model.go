package ml

import "context"

// Label 类别值，与分类器制品中的原值一致（字符串，或整数类别对应的json.Number）
type Label = any

// Prediction 单条文本的预测结果
type Prediction struct {
	Label      Label   `json:"label"`
	ClassIndex int     `json:"class_index"`
	Confidence float64 `json:"confidence"`
}

// Classifier 分类器接口
type Classifier interface {
	Predict(features SparseVector) (Prediction, error)
	PredictProba(features SparseVector) ([]float64, error)
	Classes() []Label
	NumFeatures() int
	Save(path string) error
	Load(path string) error
}

// Vectorizer 文本向量化器接口
type Vectorizer interface {
	Transform(text string) (SparseVector, error)
	VocabularySize() int
	Save(path string) error
	Load(path string) error
}

// ModelProvider 请求处理器依赖的模型接口
type ModelProvider interface {
	Predict(ctx context.Context, text string) (Prediction, error)
	Info() ModelInfo
}

// ModelInfo 模型概要
type ModelInfo struct {
	Classes        []Label `json:"classes"`
	NumFeatures    int     `json:"num_features"`
	VocabularySize int     `json:"vocabulary_size"`
}
