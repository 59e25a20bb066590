package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"text/tabwriter"

	"go.uber.org/zap"

	"nbserve/db"
	"nbserve/ml"
)

func main() {
	modelDir := flag.String("model_dir", "/opt/ml/model", "directory holding the artifacts")
	classifierFile := flag.String("classifier", ml.DefaultClassifierFile, "classifier artifact file name")
	vectorizerFile := flag.String("vectorizer", ml.DefaultVectorizerFile, "vectorizer artifact file name")
	text := flag.String("text", "", "classify this text and print class probabilities")
	dbPath := flag.String("db", "", "prediction store to read history from")
	history := flag.Int("history", 0, "print this many recent predictions from -db")
	flag.Parse()

	artifacts, err := ml.LoadArtifacts(*modelDir, *classifierFile, *vectorizerFile)
	if err != nil {
		log.Fatalf("failed to load artifacts: %v", err)
	}
	predictor, err := ml.NewPredictor(artifacts, 0)
	if err != nil {
		log.Fatalf("failed to build predictor: %v", err)
	}

	printSummary(artifacts, predictor.Info())

	if *text != "" {
		if err := classify(predictor, *text); err != nil {
			log.Fatalf("failed to classify: %v", err)
		}
	}

	if *history > 0 {
		if *dbPath == "" {
			log.Fatal("-history requires -db")
		}
		if err := printHistory(*dbPath, *history); err != nil {
			log.Fatalf("failed to read history: %v", err)
		}
	}
}

func printSummary(artifacts *ml.Artifacts, info ml.ModelInfo) {
	fmt.Printf("classifier: %s\n", artifacts.ClassifierPath)
	fmt.Printf("vectorizer: %s\n", artifacts.VectorizerPath)
	fmt.Printf("features:   %d (vocabulary %d)\n", info.NumFeatures, info.VocabularySize)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CLASS\tPRIOR")
	var priors []float64
	if nb, ok := artifacts.Classifier.(*ml.MultinomialNB); ok {
		priors = nb.ClassLogPrior()
	}
	for i, class := range info.Classes {
		prior := "-"
		if i < len(priors) {
			prior = fmt.Sprintf("%.4f", math.Exp(priors[i]))
		}
		fmt.Fprintf(w, "%s\t%s\n", formatLabel(class), prior)
	}
	w.Flush()

	if cv, ok := artifacts.Vectorizer.(*ml.CountVectorizer); ok {
		opts := cv.Options()
		fmt.Printf("analyzer:   lowercase=%t strip_accents=%q ngram=%v binary=%t stop_words=%d\n",
			opts.Lowercase, opts.StripAccents, opts.NgramRange, opts.Binary, len(opts.StopWords))
	}
}

func classify(predictor *ml.Predictor, text string) error {
	pred, err := predictor.Predict(context.Background(), text)
	if err != nil {
		return err
	}
	proba, err := predictor.Probabilities(text)
	if err != nil {
		return err
	}

	fmt.Printf("\nprediction: %s (confidence %.4f)\n", formatLabel(pred.Label), pred.Confidence)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CLASS\tPROBABILITY")
	for i, class := range predictor.Info().Classes {
		fmt.Fprintf(w, "%s\t%.4f\n", formatLabel(class), proba[i])
	}
	return w.Flush()
}

func printHistory(path string, limit int) error {
	store, err := db.Open(path, 1, zap.NewNop())
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.Recent(limit)
	if err != nil {
		return err
	}
	fmt.Printf("\nrecent predictions (%d)\n", len(records))
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tLABEL\tCONFIDENCE\tTEXT SHA256")
	for _, rec := range records {
		fmt.Fprintf(w, "%d\t%s\t%s\t%.4f\t%s\n", rec.ID, rec.CreatedAt.Format("2006-01-02 15:04:05"), rec.Label, rec.Confidence, rec.TextSHA256[:12])
	}
	return w.Flush()
}

func formatLabel(label ml.Label) string {
	if s, ok := label.(string); ok {
		return s
	}
	b, err := json.Marshal(label)
	if err != nil {
		return fmt.Sprint(label)
	}
	return string(b)
}
