package models

import (
	"encoding/json"
	"time"
)

type Tone string

const (
	ToneJoy      Tone = "joy"
	ToneSadness  Tone = "sadness"
	ToneAnger    Tone = "anger"
	ToneFear     Tone = "fear"
	ToneSurprise Tone = "surprise"
	ToneNeutral  Tone = "neutral"

	// ToneUnknown is pushed to clients when classification fails. It is
	// never persisted.
	ToneUnknown Tone = "unknown"
)

// Tones is the closed label set a classifier may resolve to.
var Tones = []Tone{ToneJoy, ToneSadness, ToneAnger, ToneFear, ToneSurprise, ToneNeutral}

func (t Tone) Valid() bool {
	for _, known := range Tones {
		if t == known {
			return true
		}
	}
	return false
}

type Message struct {
	ID         string    `json:"_id" db:"id"`
	SenderID   string    `json:"senderId" db:"sender_id"`
	ReceiverID string    `json:"receiverId" db:"receiver_id"`
	Text       string    `json:"text,omitempty" db:"text"`
	Image      string    `json:"image,omitempty" db:"image"`
	Tone       *Tone     `json:"tone" db:"tone"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

// HasText reports whether the message takes part in tone enrichment.
func (m Message) HasText() bool {
	return m.Text != ""
}

// TonePending reports whether a text message still waits for its tone.
func (m Message) TonePending() bool {
	return m.HasText() && m.Tone == nil
}

// MarshalJSON omits the tone key for image-only messages and writes
// "tone": null while a text message is still being classified.
func (m Message) MarshalJSON() ([]byte, error) {
	type plain Message
	if m.HasText() {
		return json.Marshal(plain(m))
	}
	return json.Marshal(struct {
		plain
		Tone *Tone `json:"tone,omitempty"`
	}{plain: plain(m)})
}

// SendMessageRequest is the JSON form of a send; multipart forms carry the
// same fields with image as a file part.
type SendMessageRequest struct {
	Text  string `json:"text"`
	Image string `json:"image,omitempty"` // base64 data URL
}

// ToneUpdate is the payload of the updateMessageTone event.
type ToneUpdate struct {
	MessageID string `json:"messageId"`
	Tone      Tone   `json:"tone"`
}

type SmartReplyRequest struct {
	Message string `json:"message" validate:"required"`
}

type SmartReplyResponse struct {
	Replies []string `json:"replies"`
}
