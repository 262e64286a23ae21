package live

import "encoding/json"

// Topic identifies one class of session event.
type Topic string

const (
	TopicOpen         Topic = "open"
	TopicAudio        Topic = "audio"
	TopicText         Topic = "text"
	TopicTranscript   Topic = "transcript"
	TopicToolCall     Topic = "toolcall"
	TopicInterrupted  Topic = "interrupted"
	TopicTurnComplete Topic = "turncomplete"
	TopicClose        Topic = "close"
	TopicError        Topic = "error"
)

// Event is one inbound session event. The concrete type matches the
// topic it is published on.
type Event interface {
	topic() Topic
}

// OpenEvent is published once when the setup handshake completes.
type OpenEvent struct{}

// AudioEvent carries one chunk of model output audio, decoded from the
// wire (24 kHz mono s16le).
type AudioEvent struct {
	Data []byte
}

// TextEvent carries one piece of streamed model text.
type TextEvent struct {
	Text string
}

// TranscriptEvent carries a speech transcription fragment.
type TranscriptEvent struct {
	Text string

	// Final marks the end of the current utterance.
	Final bool

	// Input is true for the user's speech, false for the model's.
	Input bool
}

// ToolCallEvent asks the client to run a declared function.
type ToolCallEvent struct {
	ID   string
	Name string
	Args json.RawMessage
}

// InterruptedEvent signals that the user barged in and the model turn
// was cut off. Queued playback for the turn should be discarded.
type InterruptedEvent struct{}

// TurnCompleteEvent signals the end of a model turn.
type TurnCompleteEvent struct{}

// CloseEvent is published exactly once when the session leaves the open
// state, whatever the reason.
type CloseEvent struct {
	// Err is the failure that ended the session, nil on a clean
	// Disconnect.
	Err error
}

// ErrorEvent reports a mid-session failure. It always precedes the
// CloseEvent it causes.
type ErrorEvent struct {
	Err error
}

func (OpenEvent) topic() Topic         { return TopicOpen }
func (AudioEvent) topic() Topic        { return TopicAudio }
func (TextEvent) topic() Topic         { return TopicText }
func (TranscriptEvent) topic() Topic   { return TopicTranscript }
func (ToolCallEvent) topic() Topic     { return TopicToolCall }
func (InterruptedEvent) topic() Topic  { return TopicInterrupted }
func (TurnCompleteEvent) topic() Topic { return TopicTurnComplete }
func (CloseEvent) topic() Topic        { return TopicClose }
func (ErrorEvent) topic() Topic        { return TopicError }
