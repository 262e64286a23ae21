package live

import (
	"encoding/json"

	"github.com/voxlate/voxlate/pkg/media"
)

// Outbound message shapes. Each client message carries exactly one of
// the top-level envelopes.

type setupMessage struct {
	Setup setupPayload `json:"setup"`
}

type setupPayload struct {
	Model             string               `json:"model"`
	SystemInstruction *wireContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig    `json:"generationConfig,omitempty"`
	Tools             []wireTool           `json:"tools,omitempty"`
	InputTranscript   *transcriptionConfig `json:"inputAudioTranscription,omitempty"`
	OutputTranscript  *transcriptionConfig `json:"outputAudioTranscription,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string      `json:"responseModalities,omitempty"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
}

type speechConfig struct {
	VoiceConfig  *voiceConfig `json:"voiceConfig,omitempty"`
	LanguageCode string       `json:"languageCode,omitempty"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoiceConfig `json:"prebuiltVoiceConfig"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

type wireTool struct {
	FunctionDeclarations []FunctionDeclaration `json:"functionDeclarations"`
}

type transcriptionConfig struct{}

type realtimeInputMessage struct {
	RealtimeInput realtimeInputPayload `json:"realtimeInput"`
}

type realtimeInputPayload struct {
	MediaChunks []media.Part `json:"mediaChunks"`
}

type clientContentMessage struct {
	ClientContent clientContentPayload `json:"clientContent"`
}

type clientContentPayload struct {
	Turns        []wireContent `json:"turns"`
	TurnComplete bool          `json:"turnComplete"`
}

type toolResponseMessage struct {
	ToolResponse toolResponsePayload `json:"toolResponse"`
}

type toolResponsePayload struct {
	FunctionResponses []FunctionResponse `json:"functionResponses"`
}

type wireContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []wirePart `json:"parts"`
}

type wirePart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *wireInlineData `json:"inlineData,omitempty"`
}

type wireInlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

// Inbound message shape. The server sends exactly one of the envelopes
// per message; anything unrecognized is dropped by the read loop.

type serverMessage struct {
	SetupComplete *json.RawMessage `json:"setupComplete"`
	ServerContent *serverContent   `json:"serverContent"`
	ToolCall      *serverToolCall  `json:"toolCall"`
	GoAway        *json.RawMessage `json:"goAway"`
}

type serverContent struct {
	ModelTurn           *wireContent         `json:"modelTurn"`
	Interrupted         bool                 `json:"interrupted"`
	TurnComplete        bool                 `json:"turnComplete"`
	InputTranscription  *serverTranscription `json:"inputTranscription"`
	OutputTranscription *serverTranscription `json:"outputTranscription"`
}

type serverTranscription struct {
	Text     string `json:"text"`
	Finished bool   `json:"finished"`
}

type serverToolCall struct {
	FunctionCalls []serverFunctionCall `json:"functionCalls"`
}

type serverFunctionCall struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}
