package server

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type signalRequest struct {
	Value string `json:"value"`
}

type signalResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func signalKey(r *http.Request) string {
	key, _ := url.PathUnescape(chi.URLParam(r, "key"))
	return key
}

func (s *Server) getSignal(w http.ResponseWriter, r *http.Request) {
	key := signalKey(r)
	value, err := s.signals.Get(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeSuccess(w, http.StatusOK, "", signalResponse{Key: key, Value: value})
}

func (s *Server) putSignal(w http.ResponseWriter, r *http.Request) {
	key := signalKey(r)
	var req signalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Value == "" {
		writeError(w, http.StatusBadRequest, "value is required")
		return
	}
	if err := s.signals.Set(r.Context(), key, req.Value); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeSuccess(w, http.StatusOK, "", signalResponse{Key: key, Value: req.Value})
}

// watchSignal streams every new value of a key as a text frame until the
// client goes away.
func (s *Server) watchSignal(w http.ResponseWriter, r *http.Request) {
	key := signalKey(r)

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.logger.Warn("websocket accept", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	// Only the latest value matters; a full buffer drops older ones.
	values := make(chan string, 1)
	stop, err := s.signals.Watch(r.Context(), key, func(v string) {
		for {
			select {
			case values <- v:
				return
			default:
			}
			select {
			case <-values:
			default:
			}
		}
	})
	if err != nil {
		conn.Close(websocket.StatusInternalError, "watch unavailable")
		return
	}
	defer stop()

	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			return
		case v := <-values:
			if err := conn.Write(ctx, websocket.MessageText, []byte(v)); err != nil {
				s.logger.Debug("signal watch write", zap.String("key", key), zap.Error(err))
				return
			}
		}
	}
}
