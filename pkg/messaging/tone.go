package messaging

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Bharath-S-J/Intent-Chat/pkg/models"
)

// Classifier resolves the emotional tone of a message text.
type Classifier interface {
	DetectTone(ctx context.Context, text string) (models.Tone, error)
}

type ToneStore interface {
	UpdateMessageTone(ctx context.Context, messageID string, tone models.Tone) (bool, error)
}

// Notifier pushes message events to the connected parties.
type Notifier interface {
	MessageCreated(msg models.Message)
	ToneUpdated(msg models.Message, tone models.Tone)
}

// ToneEnricher classifies text messages after the send response is out.
// Tasks are detached from any request and cannot be cancelled; a process
// that exits mid-task leaves the message pending.
type ToneEnricher struct {
	classifier Classifier
	store      ToneStore
	notifier   Notifier
	logger     *slog.Logger

	wg sync.WaitGroup
}

func NewToneEnricher(classifier Classifier, store ToneStore, notifier Notifier, logger *slog.Logger) *ToneEnricher {
	return &ToneEnricher{
		classifier: classifier,
		store:      store,
		notifier:   notifier,
		logger:     logger,
	}
}

// Spawn starts classification of msg in the background. Messages without
// text are ignored.
func (e *ToneEnricher) Spawn(msg models.Message) {
	if !msg.HasText() {
		return
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				e.logger.Error("Tone enrichment panicked", "message_id", msg.ID, "panic", r)
			}
		}()
		e.Enrich(context.Background(), msg)
	}()
}

// Enrich classifies msg, stores the label and announces it. On failure the
// stored tone stays pending and clients get ToneUnknown instead.
func (e *ToneEnricher) Enrich(ctx context.Context, msg models.Message) models.Tone {
	tone, err := e.classifier.DetectTone(ctx, msg.Text)
	if err != nil {
		e.logger.Warn("Tone detection failed", "message_id", msg.ID, "error", err)
		e.notifier.ToneUpdated(msg, models.ToneUnknown)
		return models.ToneUnknown
	}

	updated, err := e.store.UpdateMessageTone(ctx, msg.ID, tone)
	if err != nil {
		e.logger.Error("Failed to persist message tone", "message_id", msg.ID, "error", err)
		e.notifier.ToneUpdated(msg, models.ToneUnknown)
		return models.ToneUnknown
	}
	if !updated {
		// Removed together with its conversation, or already classified.
		e.logger.Debug("Message tone not updated", "message_id", msg.ID)
		return tone
	}

	e.logger.Debug("Message tone resolved", "message_id", msg.ID, "tone", tone)
	e.notifier.ToneUpdated(msg, tone)
	return tone
}

// Wait blocks until every spawned task finished or ctx is done.
func (e *ToneEnricher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
