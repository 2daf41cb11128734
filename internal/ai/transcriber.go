package ai

import (
	"bytes"
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// SentinelNoSpeech is returned whenever transcription yields no usable text.
// The pipeline treats it as a valid transcript, never as a failure.
const SentinelNoSpeech = "No speech detected"

const transcriptionModel = openai.Whisper1

// Transcriber transcribes audio through an OpenAI-compatible Whisper
// endpoint. It never fails outright: any provider error or empty result
// degrades to SentinelNoSpeech.
type Transcriber struct {
	client *openai.Client
}

// Config holds the shared collaborator configuration.
type Config struct {
	BaseURL   string
	APIKey    string
	Model     string // summarization model; transcription always uses whisper-1
	TimeoutMS int
}

func newClient(cfg Config) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	httpClient := &http.Client{}
	if cfg.TimeoutMS > 0 {
		httpClient.Timeout = time.Duration(cfg.TimeoutMS) * time.Millisecond
	}
	clientCfg.HTTPClient = httpClient

	return openai.NewClientWithConfig(clientCfg)
}

// NewTranscriber creates the transcription collaborator.
func NewTranscriber(cfg Config) *Transcriber {
	return &Transcriber{client: newClient(cfg)}
}

// Transcribe sends the decoded audio bytes for recognition. Empty audio,
// provider errors and blank results all yield SentinelNoSpeech.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte) string {
	if len(audio) == 0 {
		return SentinelNoSpeech
	}

	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    transcriptionModel,
		FilePath: "recording.webm",
		Reader:   bytes.NewReader(audio),
	})
	if err != nil {
		log.Printf("Warning: transcription failed: %v\n", err)
		return SentinelNoSpeech
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return SentinelNoSpeech
	}
	return text
}
