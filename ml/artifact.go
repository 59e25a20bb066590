package ml

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// 默认制品文件名
const (
	DefaultClassifierFile = "mymodel.joblib"
	DefaultVectorizerFile = "feature.joblib"
)

// Artifacts 启动时加载一次的分类器与向量化器
type Artifacts struct {
	Classifier     Classifier
	Vectorizer     Vectorizer
	ClassifierPath string
	VectorizerPath string
}

// LoadArtifacts 从dir读取两个制品，任一失败即返回错误，不重试
func LoadArtifacts(dir, classifierFile, vectorizerFile string) (*Artifacts, error) {
	if classifierFile == "" {
		classifierFile = DefaultClassifierFile
	}
	if vectorizerFile == "" {
		vectorizerFile = DefaultVectorizerFile
	}
	clfPath := filepath.Join(dir, classifierFile)
	vecPath := filepath.Join(dir, vectorizerFile)

	classifier, err := LoadClassifier(clfPath)
	if err != nil {
		return nil, fmt.Errorf("load classifier: %w", err)
	}
	vectorizer, err := LoadVectorizer(vecPath)
	if err != nil {
		return nil, fmt.Errorf("load vectorizer: %w", err)
	}
	return &Artifacts{
		Classifier:     classifier,
		Vectorizer:     vectorizer,
		ClassifierPath: clfPath,
		VectorizerPath: vecPath,
	}, nil
}

// LoadClassifier 按type字段选择分类器实现并加载
func LoadClassifier(path string) (Classifier, error) {
	modelType, err := artifactType(path)
	if err != nil {
		return nil, err
	}
	switch modelType {
	case TypeMultinomialNB, "":
		model := &MultinomialNB{}
		if err := model.Load(path); err != nil {
			return nil, err
		}
		return model, nil
	default:
		return nil, fmt.Errorf("%s: unsupported classifier type %q", path, modelType)
	}
}

// LoadVectorizer 按type字段选择向量化器实现并加载
func LoadVectorizer(path string) (Vectorizer, error) {
	vecType, err := artifactType(path)
	if err != nil {
		return nil, err
	}
	switch vecType {
	case TypeCountVectorizer, "":
		vec := &CountVectorizer{}
		if err := vec.Load(path); err != nil {
			return nil, err
		}
		return vec, nil
	default:
		return nil, fmt.Errorf("%s: unsupported vectorizer type %q", path, vecType)
	}
}

func artifactType(path string) (string, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := readArtifact(path, &head); err != nil {
		return "", err
	}
	return head.Type, nil
}

// readArtifact 解码JSON制品，文件以gzip魔数开头时先解压
func readArtifact(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	var r io.Reader = br
	if magic, err := br.Peek(2); err == nil && bytes.Equal(magic, []byte{0x1f, 0x8b}) {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%s: decode artifact: %w", path, err)
	}
	return nil
}

// writeArtifact 写入JSON制品，".gz"后缀时gzip压缩
func writeArtifact(path string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if strings.HasSuffix(path, ".gz") {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		if _, err := gz.Write(payload); err != nil {
			return err
		}
		if err := gz.Close(); err != nil {
			return err
		}
		payload = buf.Bytes()
	}
	return os.WriteFile(path, payload, 0o600)
}
