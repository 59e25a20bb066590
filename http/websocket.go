package http

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"nbserve/ml"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// streamReply 每帧的应答
type streamReply struct {
	Prediction ml.Label `json:"prediction,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// handleStream 每个文本帧 {"text": ...} 对应一个应答帧
func (h *InferenceHandler) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(h.maxBody)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("websocket read failed", zap.Error(err))
			}
			return
		}
		h.metrics.RecordStreamFrame()

		var reply streamReply
		if msgType != websocket.TextMessage {
			h.metrics.RecordInvalidInput()
			reply.Error = "unsupported message type: text frames only"
		} else if pred, err := h.invoke(r.Context(), contentTypeJSON, data); err != nil {
			if ml.KindOf(err) == ml.KindInvalidInput {
				h.metrics.RecordInvalidInput()
			} else {
				h.metrics.RecordArtifactError()
			}
			reply.Error = err.Error()
		} else {
			reply.Prediction = pred.Label
		}

		if err := conn.WriteJSON(reply); err != nil {
			h.logger.Debug("websocket write failed", zap.Error(err))
			return
		}
	}
}
