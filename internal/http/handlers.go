package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/pairup/internal/events"
	"github.com/mauv0809/pairup/internal/participant"
	"github.com/mauv0809/pairup/internal/processor"
	"github.com/mauv0809/pairup/internal/pubsub"
	"github.com/mauv0809/pairup/internal/store"
)

func (s *Server) HealthCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK!"))
	}
}

func (s *Server) ClearStoreHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if isDryRunFromContext(r) {
			log.Info("[Dry Run] Would clear all participants, meetings and stats")
			w.Write([]byte("Dry run: store not cleared"))
			return
		}
		if err := s.Processor.Clear(r.Context()); err != nil {
			log.Error("Failed to clear store", "error", err)
			http.Error(w, "Failed to clear store", http.StatusInternalServerError)
			return
		}
		w.Write([]byte("Store cleared"))
	}
}

func (s *Server) StatsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := s.Processor.Stats(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func (s *Server) ListTopicsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		topics, err := s.Processor.Topics(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, topics)
	}
}

func (s *Server) SweepHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dryRun := isDryRunFromContext(r)
		matches, err := s.Processor.Sweep(r.Context(), dryRun)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sweepResponse{Matches: matches, DryRun: dryRun})
	}
}

func (s *Server) GetParticipantHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := s.Processor.Participant(r.Context(), keyFromPath(r))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func (s *Server) ContextParticipantHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := s.Processor.ParticipantInContext(r.Context(), r.PathValue("context"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func (s *Server) StartHandler() http.HandlerFunc {
	return s.command(func(ctx context.Context, key participant.Key, req commandRequest, dryRun bool) (*processor.Outcome, error) {
		return s.Processor.Start(ctx, key, req.DisplayName)
	})
}

func (s *Server) JoinHandler() http.HandlerFunc {
	return s.command(func(ctx context.Context, key participant.Key, req commandRequest, dryRun bool) (*processor.Outcome, error) {
		return s.Processor.Join(ctx, key, req.DisplayName)
	})
}

func (s *Server) PostponeHandler() http.HandlerFunc {
	return s.command(func(ctx context.Context, key participant.Key, req commandRequest, dryRun bool) (*processor.Outcome, error) {
		return s.Processor.Postpone(ctx, key, dryRun)
	})
}

func (s *Server) ModeHandler(mode participant.Mode) http.HandlerFunc {
	return s.command(func(ctx context.Context, key participant.Key, req commandRequest, dryRun bool) (*processor.Outcome, error) {
		return s.Processor.SetMode(ctx, key, mode)
	})
}

func (s *Server) TopicsHandler() http.HandlerFunc {
	return s.command(func(ctx context.Context, key participant.Key, req commandRequest, dryRun bool) (*processor.Outcome, error) {
		return s.Processor.SubmitTopics(ctx, key, req.TopicIDs, dryRun)
	})
}

func (s *Server) ReadyHandler() http.HandlerFunc {
	return s.command(func(ctx context.Context, key participant.Key, req commandRequest, dryRun bool) (*processor.Outcome, error) {
		return s.Processor.ReadyForMeeting(ctx, key, dryRun)
	})
}

func (s *Server) MeetingHappenedHandler() http.HandlerFunc {
	return s.command(func(ctx context.Context, key participant.Key, req commandRequest, dryRun bool) (*processor.Outcome, error) {
		return s.Processor.MeetingHappened(ctx, key, dryRun)
	})
}

func (s *Server) MeetingCancelledHandler() http.HandlerFunc {
	return s.command(func(ctx context.Context, key participant.Key, req commandRequest, dryRun bool) (*processor.Outcome, error) {
		return s.Processor.MeetingCancelled(ctx, key, dryRun)
	})
}

func (s *Server) MessageHandler() http.HandlerFunc {
	return s.command(func(ctx context.Context, key participant.Key, req commandRequest, dryRun bool) (*processor.Outcome, error) {
		if req.Text == "" {
			return nil, errBadRequest("text is required")
		}
		return s.Processor.HandleMessage(ctx, key, req.Text, dryRun)
	})
}

type commandFunc func(ctx context.Context, key participant.Key, req commandRequest, dryRun bool) (*processor.Outcome, error)

// command decodes the optional JSON body, runs fn and writes the outcome.
func (s *Server) command(fn commandFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req commandRequest
		bodyBytes, err := io.ReadAll(r.Body)
		if err != nil {
			log.Error("Failed to read request body", "error", err)
			http.Error(w, "Failed to read request body", http.StatusInternalServerError)
			return
		}
		if len(bodyBytes) > 0 {
			if err := json.Unmarshal(bodyBytes, &req); err != nil {
				log.Error("Failed to unmarshal command body", "error", err)
				writeError(w, errBadRequest("invalid JSON"))
				return
			}
		}
		key := keyFromPath(r)
		out, err := fn(r.Context(), key, req, isDryRunFromContext(r))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) MatchFoundPushHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ev events.MatchFound
		if !s.decodePush(w, r, &ev) {
			return
		}
		if err := s.Delivery.NotifyMatch(r.Context(), ev, isDryRunFromContext(r)); err != nil {
			log.Error("Failed to deliver match notification", "meeting", ev.MeetingID, "error", err)
			http.Error(w, "Failed to deliver notification", http.StatusInternalServerError)
			return
		}
		w.Write([]byte("OK"))
	}
}

func (s *Server) MeetingStatusPushHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ev events.MeetingStatusChanged
		if !s.decodePush(w, r, &ev) {
			return
		}
		if err := s.Delivery.NotifyMeetingStatus(r.Context(), ev, isDryRunFromContext(r)); err != nil {
			log.Error("Failed to deliver meeting status", "meeting", ev.MeetingID, "error", err)
			http.Error(w, "Failed to deliver notification", http.StatusInternalServerError)
			return
		}
		w.Write([]byte("OK"))
	}
}

func (s *Server) MessageRelayedPushHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ev events.MessageRelayed
		if !s.decodePush(w, r, &ev) {
			return
		}
		if err := s.Delivery.RelayMessage(r.Context(), ev, isDryRunFromContext(r)); err != nil {
			log.Error("Failed to relay message", "meeting", ev.MeetingID, "error", err)
			http.Error(w, "Failed to deliver notification", http.StatusInternalServerError)
			return
		}
		w.Write([]byte("OK"))
	}
}

// decodePush unwraps a Pub/Sub push body and decodes its MessagePack payload into v.
// It writes the error response itself and reports whether the handler may continue.
func (s *Server) decodePush(w http.ResponseWriter, r *http.Request, v any) bool {
	bodyBytes, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error("Failed to read request body", "error", err)
		http.Error(w, "Failed to read request body", http.StatusInternalServerError)
		return false
	}
	log.Debug("Received push message", "path", r.URL.Path, "body", string(bodyBytes))
	// encoding/json decodes the base64 data field straight into bytes.
	var msg pubsub.PushMessage
	if err := json.Unmarshal(bodyBytes, &msg); err != nil {
		log.Error("Failed to unmarshal wrapper JSON", "error", err)
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return false
	}
	decode := pubsub.Decode
	if s.pubsub != nil {
		decode = s.pubsub.ProcessMessage
	}
	if err := decode(msg.Message.Data, v); err != nil {
		log.Error("Failed to decode push payload", "error", err)
		http.Error(w, "Invalid payload", http.StatusBadRequest)
		return false
	}
	return true
}

func keyFromPath(r *http.Request) participant.Key {
	return participant.Key{ContextID: r.PathValue("context"), PersonID: r.PathValue("person")}
}

type badRequestError string

func (e badRequestError) Error() string { return string(e) }

func errBadRequest(msg string) error { return badRequestError(msg) }

func statusFor(err error) int {
	var bad badRequestError
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, processor.ErrNoTopics), errors.As(err, &bad):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error("Request failed", "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to encode response", "error", err)
	}
}
