package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/signalsfoundry/comms-inspector/core"
	"github.com/signalsfoundry/comms-inspector/internal/logging"
	"github.com/signalsfoundry/comms-inspector/internal/session"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 512
)

// Playback stream message types.
const (
	MessageFrame = "frame"
	MessageEnd   = "end"
)

// PlaybackMessage is one message on the playback stream.
type PlaybackMessage struct {
	Type  string      `json:"type"`
	Frame *core.Frame `json:"frame,omitempty"`
}

func writeMessage(conn *websocket.Conn, msg PlaybackMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// playback streams one frame per tick from the session cursor to the last
// filtered timestamp, then sends an end message and closes the socket.
func (s *Server) playback(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionFor(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	mode, err := modeParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	tick := s.tick
	if raw := r.URL.Query().Get("tick"); raw != "" {
		tick, err = time.ParseDuration(raw)
		if err != nil || tick <= 0 {
			s.fail(w, r, fmt.Errorf("%w: tick %q", ErrInvalidRequest, raw))
			return
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, http.Header{session.HeaderName: []string{sess.ID}})
	if err != nil {
		// Upgrade has already answered the client.
		return
	}
	defer conn.Close()

	log := requestLog(r, s.log)
	if s.metrics != nil {
		s.metrics.PlaybackClientDelta(1)
		defer s.metrics.PlaybackClientDelta(-1)
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Drain the client side so a close frame or a dropped connection stops
	// playback.
	go func() {
		defer cancel()
		conn.SetReadLimit(maxMessageSize)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	var writeErr error
	p := sess.Playback(tick)
	p.AddListener(func(ts float64) {
		if writeErr != nil {
			return
		}
		sess.Seek(ts)
		frame := sess.Frame(ctx, ts, mode)
		if writeErr = writeMessage(conn, PlaybackMessage{Type: MessageFrame, Frame: &frame}); writeErr != nil {
			cancel()
		}
	})
	if from, ok := sess.Current(); ok {
		log.Debug(ctx, "playback started", logging.Timestamp(from), logging.Duration("tick", tick))
	}
	<-p.Start(ctx)

	if writeErr != nil {
		log.Debug(ctx, "playback client dropped", logging.Err(writeErr))
		return
	}
	if ctx.Err() != nil {
		return
	}
	if err := writeMessage(conn, PlaybackMessage{Type: MessageEnd}); err != nil {
		return
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	log.Debug(ctx, "playback finished")
}
