package ml

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestArtifacts(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, testClassifier(t).Save(filepath.Join(dir, DefaultClassifierFile)))
	require.NoError(t, testVectorizer(t).Save(filepath.Join(dir, DefaultVectorizerFile)))
}

func TestLoadArtifacts(t *testing.T) {
	dir := t.TempDir()
	writeTestArtifacts(t, dir)

	artifacts, err := LoadArtifacts(dir, "", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, DefaultClassifierFile), artifacts.ClassifierPath)
	assert.Equal(t, 6, artifacts.Classifier.NumFeatures())
	assert.Equal(t, 6, artifacts.Vectorizer.VocabularySize())
}

func TestLoadArtifactsMissingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, testClassifier(t).Save(filepath.Join(dir, DefaultClassifierFile)))

	_, err := LoadArtifacts(dir, "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load vectorizer")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadArtifactsCorrupt(t *testing.T) {
	dir := t.TempDir()
	writeTestArtifacts(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultClassifierFile), []byte("\x80\x04\x95pickle"), 0o600))

	_, err := LoadArtifacts(dir, "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load classifier")
}

func TestLoadArtifactsGzip(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, testClassifier(t).Save(filepath.Join(dir, "model.json.gz")))
	require.NoError(t, testVectorizer(t).Save(filepath.Join(dir, "vec.json.gz")))

	artifacts, err := LoadArtifacts(dir, "model.json.gz", "vec.json.gz")
	require.NoError(t, err)
	assert.Len(t, artifacts.Classifier.Classes(), 2)
}

func TestLoadClassifierFromCountsDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counts.json")
	doc := `{"type":"multinomial_nb","classes":[0,1],"class_count":[1,1],"feature_count":[[1,0],[0,1]],"alpha":0.5}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	clf, err := LoadClassifier(path)
	require.NoError(t, err)
	assert.Equal(t, []Label{json.Number("0"), json.Number("1")}, clf.Classes())

	pred, err := clf.Predict(vec(2, 1, 3))
	require.NoError(t, err)
	out, err := json.Marshal(map[string]any{"prediction": pred.Label})
	require.NoError(t, err)
	assert.JSONEq(t, `{"prediction":1}`, string(out))
}

func TestLoadClassifierUnsupportedType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "svm.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"linear_svc"}`), 0o600))

	_, err := LoadClassifier(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported classifier type")
}
