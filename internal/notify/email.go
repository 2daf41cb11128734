// Package notify renders summary notifications. Delivery is a logged queue
// hand-off; no SMTP integration is wired in.
package notify

import (
	"fmt"
	"log"
	"strings"
	"time"
)

// EmailRequest is the notification payload posted by clients once a summary
// is ready.
type EmailRequest struct {
	UserEmail   string          `json:"userEmail"`
	MeetingName string          `json:"meetingName"`
	Summary     *SummaryPayload `json:"summary"`
	Timestamp   time.Time       `json:"timestamp"`
}

// SummaryPayload is the condensed summary shape clients send for
// notification rendering.
type SummaryPayload struct {
	MainPoints  []string `json:"mainPoints"`
	Decisions   []string `json:"decisions"`
	ActionItems []string `json:"actionItems"`
	NextSteps   []string `json:"nextSteps"`
}

// Notifier renders and queues email notifications.
type Notifier struct{}

// NewNotifier creates a notifier.
func NewNotifier() *Notifier {
	return &Notifier{}
}

// QueueEmail renders the notification and hands it to the delivery log.
func (n *Notifier) QueueEmail(req *EmailRequest) error {
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now()
	}

	content := RenderEmail(req)
	log.Printf("Email notification: to=%s subject=%q bytes=%d\n",
		req.UserEmail, "Meeting Summary: "+req.MeetingName, len(content))
	return nil
}

// RenderEmail builds the notification body.
func RenderEmail(req *EmailRequest) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Meeting Summary Ready: %s\n\n", req.MeetingName)
	sb.WriteString("Your meeting has been processed and summarized successfully.\n\n")

	sb.WriteString("Main Discussion Points\n")
	if len(req.Summary.MainPoints) == 0 {
		sb.WriteString("  - No main points identified\n")
	}
	for _, point := range req.Summary.MainPoints {
		fmt.Fprintf(&sb, "  - %s\n", point)
	}

	writeSection(&sb, "Decisions Made", req.Summary.Decisions)
	writeSection(&sb, "Action Items", req.Summary.ActionItems)
	writeSection(&sb, "Next Steps", req.Summary.NextSteps)

	fmt.Fprintf(&sb, "\nGenerated by MeetMate AI - %s\n", req.Timestamp.Format(time.RFC1123))
	return sb.String()
}

func writeSection(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n%s\n", title)
	for _, item := range items {
		fmt.Fprintf(sb, "  - %s\n", item)
	}
}
