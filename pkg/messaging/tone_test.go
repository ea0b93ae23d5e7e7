package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/require"

	"github.com/Bharath-S-J/Intent-Chat/pkg/models"
)

func saved(t *testing.T, store *memStore, text string) models.Message {
	t.Helper()
	msg := models.Message{SenderID: "alice", ReceiverID: "bob", Text: text}
	require.NoError(t, store.SaveMessage(context.Background(), &msg))
	return msg
}

func TestToneEnricher_Enrich(t *testing.T) {
	tests := []struct {
		name       string
		classifier stubClassifier
		toneErr    error
		wantTone   models.Tone
		persisted  bool
	}{
		{
			name:       "Classified",
			classifier: stubClassifier{tone: models.ToneAnger},
			wantTone:   models.ToneAnger,
			persisted:  true,
		},
		{
			name:       "ClassifierFails",
			classifier: stubClassifier{err: errBoom},
			wantTone:   models.ToneUnknown,
		},
		{
			name:       "StoreFails",
			classifier: stubClassifier{tone: models.ToneFear},
			toneErr:    errBoom,
			wantTone:   models.ToneUnknown,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			store := newMemStore()
			store.toneErr = tt.toneErr
			notifier := &recordingNotifier{}
			e := NewToneEnricher(tt.classifier, store, notifier, slogt.New(t))
			msg := saved(t, store, "what is going on")

			got := e.Enrich(context.Background(), msg)

			req.Equal(tt.wantTone, got)
			req.Equal([]toneEvent{{msg.ID, tt.wantTone}}, notifier.toneEvents())
			if !tt.persisted {
				// Failures leave the message pending
				req.Nil(store.storedTone(msg.ID))
				return
			}
			req.Equal(tt.wantTone, *store.storedTone(msg.ID))
		})
	}
}

func TestToneEnricher_AlreadyClassified(t *testing.T) {
	req := require.New(t)
	store := newMemStore()
	notifier := &recordingNotifier{}
	msg := saved(t, store, "hi")
	_, err := store.UpdateMessageTone(context.Background(), msg.ID, models.ToneNeutral)
	req.NoError(err)

	e := NewToneEnricher(stubClassifier{tone: models.ToneJoy}, store, notifier, slogt.New(t))
	e.Enrich(context.Background(), msg)

	req.Empty(notifier.toneEvents())
	req.Equal(models.ToneNeutral, *store.storedTone(msg.ID))
}

func TestToneEnricher_SpawnSkipsImageOnly(t *testing.T) {
	req := require.New(t)
	store := newMemStore()
	notifier := &recordingNotifier{}
	e := NewToneEnricher(stubClassifier{tone: models.ToneJoy}, store, notifier, slogt.New(t))

	e.Spawn(models.Message{ID: "m1", SenderID: "alice", ReceiverID: "bob", Image: "https://cdn/x.png"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	req.NoError(e.Wait(ctx))
	req.Empty(notifier.toneEvents())
}

type panickingClassifier struct{}

func (panickingClassifier) DetectTone(context.Context, string) (models.Tone, error) {
	panic("classifier exploded")
}

func TestToneEnricher_SpawnRecoversPanic(t *testing.T) {
	req := require.New(t)
	store := newMemStore()
	e := NewToneEnricher(panickingClassifier{}, store, &recordingNotifier{}, slogt.New(t))
	msg := saved(t, store, "hi")

	e.Spawn(msg)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	req.NoError(e.Wait(ctx))
	req.Nil(store.storedTone(msg.ID))
}
