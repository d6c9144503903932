package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"nhooyr.io/websocket"

	"arcadia/explorer"
)

const wsWriteTimeout = 10 * time.Second

// handleEventsWS streams receipts as JSON frames. An optional numeric
// `cursor` query parameter replays the backlog after that sequence before
// the live stream begins.
func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	if s == nil || s.history == nil {
		http.Error(w, "event stream unavailable", http.StatusServiceUnavailable)
		return
	}
	var cursor uint64
	if raw := strings.TrimSpace(r.URL.Query().Get("cursor")); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid cursor", http.StatusBadRequest)
			return
		}
		cursor = parsed
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")

	if err := s.streamEvents(r.Context(), conn, cursor); err != nil {
		if status := websocket.CloseStatus(err); status == -1 {
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

func (s *Server) streamEvents(ctx context.Context, conn *websocket.Conn, cursor uint64) error {
	// Live subscription opens before the backlog replay so nothing indexed
	// during the replay is missed; duplicates are suppressed by sequence.
	updates, cancel := s.history.Subscribe(64)
	defer cancel()

	const backlogPage = 200
	for {
		backlog, err := s.history.After(cursor, backlogPage)
		if err != nil {
			return err
		}
		if len(backlog) == 0 {
			break
		}
		for _, receipt := range backlog {
			if err := writeReceipt(ctx, conn, receipt); err != nil {
				return err
			}
			cursor = receipt.Sequence
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case receipt, ok := <-updates:
			if !ok {
				return nil
			}
			if receipt.Sequence <= cursor {
				continue
			}
			cursor = receipt.Sequence
			if err := writeReceipt(ctx, conn, receipt); err != nil {
				return err
			}
		}
	}
}

func writeReceipt(ctx context.Context, conn *websocket.Conn, receipt explorer.Receipt) error {
	data, err := json.Marshal(receipt)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
