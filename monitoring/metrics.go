// Package monitoring 进程内推理指标
package monitoring

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// MetricsCollector 请求与结果计数，可并发使用
type MetricsCollector struct {
	requests      atomic.Uint64
	predictions   atomic.Uint64
	invalidInputs atomic.Uint64
	artifactErrs  atomic.Uint64
	streamFrames  atomic.Uint64

	latencyLock sync.Mutex
	latency     LatencySummary

	startTime time.Time
}

// LatencySummary 预测耗时摘要
type LatencySummary struct {
	Count  uint64  `json:"count"`
	MeanMs float64 `json:"mean_ms"`
	MaxMs  float64 `json:"max_ms"`

	totalMs float64
}

// Snapshot 指标快照
type Snapshot struct {
	Requests      uint64         `json:"requests"`
	Predictions   uint64         `json:"predictions"`
	InvalidInputs uint64         `json:"invalid_inputs"`
	ArtifactErrs  uint64         `json:"artifact_errors"`
	StreamFrames  uint64         `json:"stream_frames"`
	CacheHits     uint64         `json:"cache_hits"`
	CacheMisses   uint64         `json:"cache_misses"`
	Latency       LatencySummary `json:"latency"`
	UptimeSeconds float64        `json:"uptime_seconds"`
	Goroutines    int            `json:"goroutines"`
	HeapAllocMB   float64        `json:"heap_alloc_mb"`
}

// NewMetricsCollector 创建指标收集器
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{startTime: time.Now()}
}

// RecordRequest 记录一次请求
func (mc *MetricsCollector) RecordRequest() {
	mc.requests.Add(1)
}

// RecordStreamFrame 记录一个WebSocket帧
func (mc *MetricsCollector) RecordStreamFrame() {
	mc.streamFrames.Add(1)
}

// RecordPrediction 记录一次成功预测及其耗时
func (mc *MetricsCollector) RecordPrediction(d time.Duration) {
	mc.predictions.Add(1)

	ms := float64(d) / float64(time.Millisecond)
	mc.latencyLock.Lock()
	defer mc.latencyLock.Unlock()
	mc.latency.Count++
	mc.latency.totalMs += ms
	mc.latency.MeanMs = mc.latency.totalMs / float64(mc.latency.Count)
	if ms > mc.latency.MaxMs {
		mc.latency.MaxMs = ms
	}
}

// RecordInvalidInput 记录一次输入错误
func (mc *MetricsCollector) RecordInvalidInput() {
	mc.invalidInputs.Add(1)
}

// RecordArtifactError 记录一次模型错误
func (mc *MetricsCollector) RecordArtifactError() {
	mc.artifactErrs.Add(1)
}

// Snapshot 返回当前值，缓存计数由调用方从推理器填入
func (mc *MetricsCollector) Snapshot() Snapshot {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	mc.latencyLock.Lock()
	latency := mc.latency
	mc.latencyLock.Unlock()

	return Snapshot{
		Requests:      mc.requests.Load(),
		Predictions:   mc.predictions.Load(),
		InvalidInputs: mc.invalidInputs.Load(),
		ArtifactErrs:  mc.artifactErrs.Load(),
		StreamFrames:  mc.streamFrames.Load(),
		Latency:       latency,
		UptimeSeconds: time.Since(mc.startTime).Seconds(),
		Goroutines:    runtime.NumGoroutine(),
		HeapAllocMB:   float64(mem.HeapAlloc) / 1024 / 1024,
	}
}
