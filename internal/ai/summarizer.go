package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ineffablesam/cf-ai-meetmate/internal/core"
)

const summarizerSystemPrompt = `You are an expert meeting summarizer. Analyze the transcript and return a JSON object with two fields:
1. summaryJSON: A structured object with title, participants (if detectable), topics (array of objects with title, summary, action_items), key_decisions (array), next_steps (array), tone, and overall_summary
2. summaryMarkdown: A clean, formatted markdown string with headings, lists, and highlights

Return ONLY valid JSON, no markdown code blocks.`

const defaultSummarizerModel = "gpt-4o-mini"

// Summarizer generates structured summaries via a chat completion. Its
// contract is graceful degradation: whatever the model returns, Summarize
// produces a well-formed Summary and never an error, falling back to a
// deterministic summary derived from the transcript.
type Summarizer struct {
	client *openai.Client
	model  string
}

// NewSummarizer creates the summarization collaborator.
func NewSummarizer(cfg Config) *Summarizer {
	model := cfg.Model
	if model == "" {
		model = defaultSummarizerModel
	}
	return &Summarizer{client: newClient(cfg), model: model}
}

// Summarize runs the chat completion and parses the result. Provider errors
// and malformed output degrade to fallbackSummary rather than failing.
func (s *Summarizer) Summarize(ctx context.Context, transcript string) *core.Summary {
	userPrompt := fmt.Sprintf("Transcript:\n\"\"\"\n%s\n\"\"\"\n\nGenerate a comprehensive summary in JSON format with summaryJSON and summaryMarkdown fields.", transcript)

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: summarizerSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: 0.7,
		MaxTokens:   2048,
	})
	if err != nil {
		log.Printf("Warning: summarization failed: %v\n", err)
		return fallbackSummary(transcript, err.Error())
	}

	var content string
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}

	return ParseSummaryResponse(content, transcript)
}

// rawSummaryResponse mirrors the two-field shape the model is prompted for.
// Fields are raw so a malformed half does not poison the other.
type rawSummaryResponse struct {
	SummaryJSON     json.RawMessage `json:"summaryJSON"`
	SummaryMarkdown string          `json:"summaryMarkdown"`
}

// ParseSummaryResponse isolates all leniency toward model output in one
// place: strip code fences, strict parse, then try the first balanced {...}
// substring, and finally substitute the deterministic fallback. It never
// fails.
func ParseSummaryResponse(content, transcript string) *core.Summary {
	content = stripCodeFences(content)
	if content == "" {
		return fallbackSummary(transcript, "empty response from model")
	}

	raw, ok := parseRaw(content)
	if !ok {
		// Lenient pass: extract the first balanced JSON object.
		if extracted := extractJSONObject(content); extracted != "" {
			raw, ok = parseRaw(extracted)
		}
	}
	if !ok {
		return fallbackSummary(transcript, "unparseable model output")
	}

	summary := &core.Summary{Markdown: raw.SummaryMarkdown}

	if len(raw.SummaryJSON) > 0 {
		if err := json.Unmarshal(raw.SummaryJSON, &summary.JSON); err != nil {
			summary.JSON = core.SummaryJSON{}
		}
	}

	// Either top-level field missing means the shape cannot be trusted;
	// patch in the fallback for whichever half is absent.
	fb := fallbackSummary(transcript, "missing required fields")
	if summary.JSON.Title == "" && summary.JSON.OverallSummary == "" {
		summary.JSON = fb.JSON
	}
	if summary.Markdown == "" {
		summary.Markdown = fb.Markdown
	}

	normalize(&summary.JSON)
	return summary
}

func parseRaw(content string) (rawSummaryResponse, bool) {
	var raw rawSummaryResponse
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return rawSummaryResponse{}, false
	}
	if len(raw.SummaryJSON) == 0 && raw.SummaryMarkdown == "" {
		return rawSummaryResponse{}, false
	}
	return raw, true
}

// stripCodeFences removes leading/trailing markdown code-fence markers.
func stripCodeFences(content string) string {
	content = strings.TrimSpace(content)
	for _, prefix := range []string{"```json", "```JSON", "```"} {
		if strings.HasPrefix(content, prefix) {
			content = strings.TrimSpace(content[len(prefix):])
			break
		}
	}
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}

// extractJSONObject returns the first balanced top-level {...} substring,
// or "" if none exists. Braces inside JSON strings are skipped.
func extractJSONObject(content string) string {
	start := strings.IndexByte(content, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		c := content[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = inString
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return content[start : i+1]
				}
			}
		}
	}
	return ""
}

// fallbackSummary builds the deterministic degraded summary: the overall
// summary is the first 500 characters of the transcript, the markdown keeps
// up to 1000 characters, arrays are empty.
func fallbackSummary(transcript, reason string) *core.Summary {
	return &core.Summary{
		JSON: core.SummaryJSON{
			Title:          "Meeting Summary",
			Participants:   []string{},
			OverallSummary: truncate(transcript, 500),
			Topics: []core.Topic{{
				Title:       "Discussion",
				Summary:     "Full transcript available",
				ActionItems: []string{},
			}},
			KeyDecisions: []string{},
			NextSteps:    []string{},
			Tone:         "professional",
		},
		Markdown: fmt.Sprintf("# Meeting Summary\n\n## Transcript\n%s\n\n---\n*Note: AI summarization encountered an error: %s*",
			truncate(transcript, 1000), reason),
	}
}

// normalize replaces nil slices so the JSON contract always carries arrays.
func normalize(j *core.SummaryJSON) {
	if j.Participants == nil {
		j.Participants = []string{}
	}
	if j.Topics == nil {
		j.Topics = []core.Topic{}
	}
	for i := range j.Topics {
		if j.Topics[i].ActionItems == nil {
			j.Topics[i].ActionItems = []string{}
		}
	}
	if j.KeyDecisions == nil {
		j.KeyDecisions = []string{}
	}
	if j.NextSteps == nil {
		j.NextSteps = []string{}
	}
	if j.Tone == "" {
		j.Tone = "professional"
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
