package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"nbserve/db"
	"nbserve/ml"
	"nbserve/monitoring"
)

// PredictionRecorder 接收成功的预测用于审计
type PredictionRecorder interface {
	Record(rec db.PredictionRecord) error
}

// HandlerOptions 处理器选项
type HandlerOptions struct {
	Metrics  *monitoring.MetricsCollector
	Recorder PredictionRecorder
	Logger   *zap.Logger

	// StrictStatusCodes 输入错误返回400而非500
	StrictStatusCodes bool
	MaxBodyBytes      int64
}

// InferenceHandler 基于已加载模型的推理接口
type InferenceHandler struct {
	model    ml.ModelProvider
	metrics  *monitoring.MetricsCollector
	recorder PredictionRecorder
	logger   *zap.Logger
	strict   bool
	maxBody  int64
}

// NewInferenceHandler 创建推理处理器
func NewInferenceHandler(model ml.ModelProvider, opts HandlerOptions) *InferenceHandler {
	h := &InferenceHandler{
		model:    model,
		metrics:  opts.Metrics,
		recorder: opts.Recorder,
		logger:   opts.Logger,
		strict:   opts.StrictStatusCodes,
		maxBody:  opts.MaxBodyBytes,
	}
	if h.metrics == nil {
		h.metrics = monitoring.NewMetricsCollector()
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	if h.maxBody <= 0 {
		h.maxBody = DefaultServerConfig().MaxBodyBytes
	}
	return h
}

// Register 注册路由
func (h *InferenceHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /ping", h.handlePing)
	mux.HandleFunc("POST /invocations", h.handleInvocations)
	mux.HandleFunc("GET /ws/invocations", h.handleStream)
	mux.HandleFunc("GET /metrics", h.handleMetrics)
}

func (h *InferenceHandler) handlePing(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func (h *InferenceHandler) handleInvocations(w http.ResponseWriter, r *http.Request) {
	h.metrics.RecordRequest()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = ml.InvalidInput("request body too large: limit is %d bytes", tooLarge.Limit)
		} else {
			err = ml.InvalidInput("read request body: %v", err)
		}
		h.fail(w, r, err)
		return
	}

	pred, err := h.invoke(r.Context(), r.Header.Get("Content-Type"), body)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"prediction": pred.Label})
}

func (h *InferenceHandler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	snap := h.metrics.Snapshot()
	if stats, ok := h.model.(interface{ CacheStats() (uint64, uint64) }); ok {
		snap.CacheHits, snap.CacheMisses = stats.CacheStats()
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"metrics": snap,
		"model":   h.model.Info(),
	})
}

// invoke HTTP与WebSocket共用的推理流程
func (h *InferenceHandler) invoke(ctx context.Context, contentType string, body []byte) (ml.Prediction, error) {
	text, err := parseInput(contentType, body)
	if err != nil {
		return ml.Prediction{}, err
	}

	start := time.Now()
	pred, err := h.model.Predict(ctx, text)
	if err != nil {
		return ml.Prediction{}, err
	}
	h.metrics.RecordPrediction(time.Since(start))

	if h.recorder != nil {
		if err := h.recorder.Record(db.NewRecord(text, pred.Label, pred.Confidence)); err != nil {
			h.logger.Warn("prediction not recorded", zap.Error(err))
		}
	}
	return pred, nil
}

func (h *InferenceHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := h.statusFor(err)
	kind := ml.KindOf(err)
	if kind == ml.KindInvalidInput {
		h.metrics.RecordInvalidInput()
	} else {
		h.metrics.RecordArtifactError()
	}
	fields := []zap.Field{
		zap.String("request_id", GetRequestID(r.Context())),
		zap.Stringer("kind", kind),
		zap.Int("status", status),
		zap.Error(err),
	}
	if start := GetStartTime(r.Context()); !start.IsZero() {
		fields = append(fields, zap.Duration("elapsed", time.Since(start)))
	}
	h.logger.Warn("invocation failed", fields...)
	respondError(w, status, err.Error())
}

// statusFor 非严格模式下所有失败均为500
func (h *InferenceHandler) statusFor(err error) int {
	if h.strict && ml.KindOf(err) == ml.KindInvalidInput {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
