package ml

import (
	"errors"
	"fmt"
	"math"
)

// TypeMultinomialNB 多项式朴素贝叶斯的制品类型
const TypeMultinomialNB = "multinomial_nb"

// MultinomialNB 已训练的多项式朴素贝叶斯分类器，输入为离散词频
type MultinomialNB struct {
	classes        []Label
	classLogPrior  []float64
	featureLogProb [][]float64
}

type nbDocument struct {
	Type           string      `json:"type"`
	Classes        []Label     `json:"classes"`
	ClassLogPrior  []float64   `json:"class_log_prior,omitempty"`
	FeatureLogProb [][]float64 `json:"feature_log_prob,omitempty"`
	ClassCount     []float64   `json:"class_count,omitempty"`
	FeatureCount   [][]float64 `json:"feature_count,omitempty"`
	Alpha          *float64    `json:"alpha,omitempty"`
}

// NewMultinomialNB 由对数先验和对数似然创建分类器
func NewMultinomialNB(classes []Label, classLogPrior []float64, featureLogProb [][]float64) (*MultinomialNB, error) {
	nb := &MultinomialNB{
		classes:        classes,
		classLogPrior:  classLogPrior,
		featureLogProb: featureLogProb,
	}
	if err := nb.validate(); err != nil {
		return nil, err
	}
	return nb, nil
}

// NewMultinomialNBFromCounts 由各类别计数经加法平滑推导对数概率
func NewMultinomialNBFromCounts(classes []Label, classCount []float64, featureCount [][]float64, alpha float64) (*MultinomialNB, error) {
	if len(classCount) != len(classes) || len(featureCount) != len(classes) {
		return nil, errors.New("class counts do not match classes")
	}
	if alpha < 0 {
		return nil, errors.New("alpha must be non-negative")
	}

	var total float64
	for _, c := range classCount {
		total += c
	}
	if total <= 0 {
		return nil, errors.New("class counts sum to zero")
	}

	prior := make([]float64, len(classCount))
	for i, c := range classCount {
		prior[i] = math.Log(c) - math.Log(total)
	}

	flp := make([][]float64, len(featureCount))
	for i, row := range featureCount {
		var rowTotal float64
		smoothed := make([]float64, len(row))
		for j, v := range row {
			smoothed[j] = v + alpha
			rowTotal += smoothed[j]
		}
		if rowTotal <= 0 {
			return nil, fmt.Errorf("feature counts for class %d sum to zero", i)
		}
		logTotal := math.Log(rowTotal)
		for j := range smoothed {
			smoothed[j] = math.Log(smoothed[j]) - logTotal
		}
		flp[i] = smoothed
	}
	return NewMultinomialNB(classes, prior, flp)
}

func (nb *MultinomialNB) validate() error {
	if len(nb.classes) == 0 {
		return errors.New("classifier has no classes")
	}
	if len(nb.classLogPrior) != len(nb.classes) {
		return fmt.Errorf("class_log_prior has %d entries, want %d", len(nb.classLogPrior), len(nb.classes))
	}
	if len(nb.featureLogProb) != len(nb.classes) {
		return fmt.Errorf("feature_log_prob has %d rows, want %d", len(nb.featureLogProb), len(nb.classes))
	}
	width := len(nb.featureLogProb[0])
	if width == 0 {
		return errors.New("feature_log_prob has no columns")
	}
	for i, row := range nb.featureLogProb {
		if len(row) != width {
			return fmt.Errorf("feature_log_prob row %d has %d columns, want %d", i, len(row), width)
		}
	}
	return nil
}

// Classes 返回类别标签，顺序即类别序号
func (nb *MultinomialNB) Classes() []Label {
	return append([]Label(nil), nb.classes...)
}

// NumFeatures 特征维度
func (nb *MultinomialNB) NumFeatures() int {
	if len(nb.featureLogProb) == 0 {
		return 0
	}
	return len(nb.featureLogProb[0])
}

// ClassLogPrior 返回各类别的对数先验
func (nb *MultinomialNB) ClassLogPrior() []float64 {
	return append([]float64(nil), nb.classLogPrior...)
}

// jointLogLikelihood 每个类别的 log P(c) + sum_i x_i * log P(w_i|c)
func (nb *MultinomialNB) jointLogLikelihood(features SparseVector) ([]float64, error) {
	if len(nb.classes) == 0 {
		return nil, errors.New("model not loaded")
	}
	if len(features.Indices) != len(features.Values) {
		return nil, errors.New("malformed feature vector")
	}
	width := nb.NumFeatures()
	jll := make([]float64, len(nb.classes))
	copy(jll, nb.classLogPrior)
	for k, idx := range features.Indices {
		if idx < 0 || idx >= width {
			return nil, fmt.Errorf("feature index %d out of range for %d features", idx, width)
		}
		x := features.Values[k]
		for c := range jll {
			jll[c] += x * nb.featureLogProb[c][idx]
		}
	}
	return jll, nil
}

// Predict 取联合对数似然最大的类别，置信度为其后验概率
func (nb *MultinomialNB) Predict(features SparseVector) (Prediction, error) {
	jll, err := nb.jointLogLikelihood(features)
	if err != nil {
		return Prediction{}, err
	}
	best := 0
	for c := 1; c < len(jll); c++ {
		if jll[c] > jll[best] {
			best = c
		}
	}
	return Prediction{
		Label:      nb.classes[best],
		ClassIndex: best,
		Confidence: math.Exp(jll[best] - logSumExp(jll)),
	}, nil
}

// PredictProba 返回各类别的后验概率
func (nb *MultinomialNB) PredictProba(features SparseVector) ([]float64, error) {
	jll, err := nb.jointLogLikelihood(features)
	if err != nil {
		return nil, err
	}
	norm := logSumExp(jll)
	proba := make([]float64, len(jll))
	for i, v := range jll {
		proba[i] = math.Exp(v - norm)
	}
	return proba, nil
}

// Save 保存为JSON制品
func (nb *MultinomialNB) Save(path string) error {
	if len(nb.classes) == 0 {
		return errors.New("model not loaded")
	}
	return writeArtifact(path, nbDocument{
		Type:           TypeMultinomialNB,
		Classes:        nb.classes,
		ClassLogPrior:  nb.classLogPrior,
		FeatureLogProb: nb.featureLogProb,
	})
}

// Load 从JSON制品加载，缺少对数概率时由计数推导
func (nb *MultinomialNB) Load(path string) error {
	var doc nbDocument
	if err := readArtifact(path, &doc); err != nil {
		return err
	}
	if doc.Type != "" && doc.Type != TypeMultinomialNB {
		return fmt.Errorf("%s: artifact type %q is not %q", path, doc.Type, TypeMultinomialNB)
	}

	var (
		loaded *MultinomialNB
		err    error
	)
	if doc.FeatureLogProb == nil && doc.FeatureCount != nil {
		alpha := 1.0
		if doc.Alpha != nil {
			alpha = *doc.Alpha
		}
		loaded, err = NewMultinomialNBFromCounts(doc.Classes, doc.ClassCount, doc.FeatureCount, alpha)
	} else {
		loaded, err = NewMultinomialNB(doc.Classes, doc.ClassLogPrior, doc.FeatureLogProb)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	*nb = *loaded
	return nil
}

func logSumExp(values []float64) float64 {
	peak := math.Inf(-1)
	for _, v := range values {
		if v > peak {
			peak = v
		}
	}
	if math.IsInf(peak, -1) {
		return peak
	}
	var sum float64
	for _, v := range values {
		sum += math.Exp(v - peak)
	}
	return peak + math.Log(sum)
}
