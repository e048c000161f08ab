package server

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/lawnchairsociety/wavecollapse/internal/generator"
	"github.com/lawnchairsociety/wavecollapse/internal/logger"
)

// Message types sent on a solve stream.
const (
	MessageCollapse = "collapse"
	MessageDone     = "done"
	MessageError    = "error"
)

// Message is one JSON frame of a solve stream. Collapse frames carry a
// placement; a frame with a higher attempt than the last means the cells
// of the earlier attempt were discarded.
type Message struct {
	Type    string `json:"type"`
	SolveID string `json:"solve_id"`
	Attempt int    `json:"attempt"`

	*generator.Placement

	// Set on done frames
	Shape       string `json:"shape,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	Radius      int    `json:"radius,omitempty"`
	ModuleSet   string `json:"module_set,omitempty"`
	Seed        int64  `json:"seed,omitempty"`
	Attempts    int    `json:"attempts,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Stored      bool   `json:"stored,omitempty"`

	Error string `json:"error,omitempty"`
}

// stream solves the configured field with seed and writes every collapse to
// the client, followed by a done or error frame.
func (s *Server) stream(ctx context.Context, client *WebSocketClient, clientIP string, seed int64) {
	solveID := uuid.NewString()
	log := logger.Solve(solveID, "client_ip", clientIP)

	gcfg, err := generator.ConfigFrom(s.cfg)
	if err != nil {
		s.sendError(client, log, solveID, err)
		return
	}
	gcfg.Seed = seed

	gen := generator.NewGenerator(gcfg, s.table).WithRecorder(s.recorder)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	gen.OnCollapse(func(ev generator.Event) {
		placement := ev.Placement
		msg := Message{
			Type:      MessageCollapse,
			SolveID:   solveID,
			Attempt:   ev.Attempt,
			Placement: &placement,
		}
		if err := client.WriteJSON(msg); err != nil {
			log.Debug("Stream write failed", "error", err)
			cancel()
		}
	})

	log.Info("Stream started", "seed", seed)

	result, err := gen.Generate(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info("Stream canceled")
			return
		}
		log.Warn("Stream solve failed", "error", err)
		s.sendError(client, log, solveID, err)
		return
	}

	stored := false
	if s.store != nil && s.cfg.Server.Persist {
		if err := s.store.SaveSolveAs(context.Background(), solveID, result); err != nil {
			log.Error("Failed to store streamed solve", "error", err)
		} else {
			stored = true
		}
	}

	done := Message{
		Type:        MessageDone,
		SolveID:     solveID,
		Attempt:     result.Attempts - 1,
		Shape:       result.Shape,
		Width:       result.Width,
		Height:      result.Height,
		Radius:      result.Radius,
		ModuleSet:   result.ModuleSet,
		Seed:        result.Seed,
		Attempts:    result.Attempts,
		Fingerprint: result.Fingerprint,
		Stored:      stored,
	}
	if err := client.WriteJSON(done); err != nil {
		log.Debug("Stream write failed", "error", err)
		return
	}

	log.Info("Stream finished", "attempts", result.Attempts, "elapsed", result.Elapsed)
	client.CloseGracefully()
}

func (s *Server) sendError(client *WebSocketClient, log *slog.Logger, solveID string, err error) {
	msg := Message{Type: MessageError, SolveID: solveID, Error: err.Error()}
	if werr := client.WriteJSON(msg); werr != nil {
		log.Debug("Stream write failed", "error", werr)
		return
	}
	client.CloseGracefully()
}
