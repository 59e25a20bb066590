package ml

import (
	"errors"
	"fmt"
)

// ErrorKind 错误类别，HTTP层据此决定状态码
type ErrorKind int

const (
	// KindArtifact 向量化或预测失败
	KindArtifact ErrorKind = iota
	// KindInvalidInput 请求本身有误
	KindInvalidInput
)

// String 日志中使用的类别名
func (k ErrorKind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "artifact_error"
	}
}

// Error 带类别的错误
type Error struct {
	Kind ErrorKind
	Err  error
}

// Error 返回内部错误信息
func (e *Error) Error() string {
	return e.Err.Error()
}

// Unwrap 返回内部错误
func (e *Error) Unwrap() error {
	return e.Err
}

// InvalidInput 构造请求输入错误
func InvalidInput(format string, args ...any) error {
	return &Error{Kind: KindInvalidInput, Err: fmt.Errorf(format, args...)}
}

// ArtifactError 将err标记为模型错误，nil原样返回
func ArtifactError(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindArtifact, Err: err}
}

// KindOf 返回err的类别，未标记的错误按模型错误处理
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindArtifact
}
