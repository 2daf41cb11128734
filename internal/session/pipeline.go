package session

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ineffablesam/cf-ai-meetmate/internal/core"
)

// Pipeline turns a raw recorded asset into a transcript and summary, with a
// ledger event per step. Its critical invariant: every Run either returns a
// completed result or leaves the session in failed, never stuck in
// processing.
type Pipeline struct {
	store       core.SessionStorage
	transcriber core.Transcriber
	summarizer  core.Summarizer
	ledger      core.LedgerWriter
}

// NewPipeline wires the processing pipeline.
func NewPipeline(store core.SessionStorage, transcriber core.Transcriber, summarizer core.Summarizer, ledger core.LedgerWriter) *Pipeline {
	return &Pipeline{
		store:       store,
		transcriber: transcriber,
		summarizer:  summarizer,
		ledger:      ledger,
	}
}

// Run executes the three steps in order: transcribe, summarize, persist.
// The transcript is persisted before summarization begins so a crash after
// that point still retains it. Collaborator-level faults never surface here;
// decode and persistence faults force the session to failed and return a
// PipelineError.
func (p *Pipeline) Run(ctx context.Context, sessionID, rawAsset string) (*core.PipelineResult, error) {
	start := time.Now()

	if err := p.store.SetProcessing(sessionID, start); err != nil {
		return nil, p.fail(sessionID, "mark_processing", start, err)
	}
	p.ledger.Record(sessionID, core.StepProcessingStarted, core.EventProcessing)

	audio, err := DecodeAsset(rawAsset)
	if err != nil {
		return nil, p.fail(sessionID, "decode", start, err)
	}

	// Step 1: transcribe
	transcriptionStart := time.Now()
	p.ledger.Record(sessionID, core.StepTranscriptionStarted, core.EventProcessing)

	transcript := p.transcriber.Transcribe(ctx, audio)
	transcriptionMs := time.Since(transcriptionStart).Milliseconds()

	p.ledger.RecordDuration(sessionID, core.StepTranscriptionComplete, core.EventSuccess, transcriptionMs)

	if err := p.store.SaveTranscript(sessionID, transcript); err != nil {
		return nil, p.fail(sessionID, "save_transcript", start, err)
	}

	// Step 2: summarize
	summarizationStart := time.Now()
	p.ledger.Record(sessionID, core.StepSummarizationStarted, core.EventProcessing)

	summary := p.summarizer.Summarize(ctx, transcript)
	summarizationMs := time.Since(summarizationStart).Milliseconds()

	p.ledger.RecordDuration(sessionID, core.StepSummarizationComplete, core.EventSuccess, summarizationMs)

	// Step 3: terminal write, one atomic statement
	totalMs := time.Since(start).Milliseconds()
	if err := p.store.CompleteSession(sessionID, summary, time.Now(), totalMs); err != nil {
		return nil, p.fail(sessionID, "persist", start, err)
	}

	p.ledger.RecordDuration(sessionID, core.StepProcessingComplete, core.EventSuccess, totalMs)

	return &core.PipelineResult{
		SessionID:       sessionID,
		Transcript:      transcript,
		SummaryJSON:     summary.JSON,
		SummaryMarkdown: summary.Markdown,
		Timing:          core.NewTiming(transcriptionMs, summarizationMs, totalMs),
	}, nil
}

// fail force-transitions the session to failed and records the fault in the
// ledger. A failure to write the failed status itself is logged but not
// allowed to mask the original fault.
func (p *Pipeline) fail(sessionID, step string, start time.Time, cause error) error {
	elapsed := time.Since(start).Milliseconds()
	p.ledger.RecordError(sessionID, core.StepError, core.EventFailed, cause.Error(), elapsed)

	if err := p.store.FailSession(sessionID, time.Now(), elapsed); err != nil {
		log.Printf("Warning: failed to mark session %s as failed: %v\n", sessionID, err)
	}

	return &core.PipelineError{SessionID: sessionID, Step: step, Err: cause}
}

// DecodeAsset decodes a data-URL style asset ("<prefix>,<base64>") into raw
// bytes. A bare base64 string without a prefix is accepted too.
func DecodeAsset(rawAsset string) ([]byte, error) {
	payload := rawAsset
	if idx := strings.IndexByte(rawAsset, ','); idx >= 0 {
		payload = rawAsset[idx+1:]
	}
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, fmt.Errorf("empty audio asset")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decoding audio asset: %w", err)
	}
	return data, nil
}
