package notify

import (
	"strings"
	"testing"
	"time"
)

func TestRenderEmail(t *testing.T) {
	req := &EmailRequest{
		UserEmail:   "user@example.com",
		MeetingName: "Q3 Planning",
		Summary: &SummaryPayload{
			MainPoints:  []string{"Roadmap agreed"},
			Decisions:   []string{"Ship in September"},
			ActionItems: []string{"Draft plan"},
			NextSteps:   []string{"Schedule follow-up"},
		},
		Timestamp: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	}

	content := RenderEmail(req)

	for _, want := range []string{
		"Meeting Summary Ready: Q3 Planning",
		"Roadmap agreed",
		"Decisions Made",
		"Ship in September",
		"Action Items",
		"Draft plan",
		"Next Steps",
		"Schedule follow-up",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("Rendered email missing %q", want)
		}
	}
}

func TestRenderEmail_EmptySections(t *testing.T) {
	req := &EmailRequest{
		UserEmail:   "user@example.com",
		MeetingName: "Quick Sync",
		Summary:     &SummaryPayload{},
	}

	content := RenderEmail(req)

	if !strings.Contains(content, "No main points identified") {
		t.Error("Empty main points should render the placeholder")
	}
	for _, absent := range []string{"Decisions Made", "Action Items", "Next Steps"} {
		if strings.Contains(content, absent) {
			t.Errorf("Empty section %q should be omitted", absent)
		}
	}
}

func TestQueueEmail_StampsTimestamp(t *testing.T) {
	req := &EmailRequest{
		UserEmail:   "user@example.com",
		MeetingName: "Standup",
		Summary:     &SummaryPayload{},
	}

	if err := NewNotifier().QueueEmail(req); err != nil {
		t.Fatalf("QueueEmail() error = %v", err)
	}
	if req.Timestamp.IsZero() {
		t.Error("QueueEmail should stamp a missing timestamp")
	}
}
