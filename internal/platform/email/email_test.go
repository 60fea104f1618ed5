package email

import (
	"context"
	"strings"
	"testing"
	"time"

	"appraisal/internal/platform/config"
)

func TestBuildMessageHeaders(t *testing.T) {
	now := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	msg := string(buildMessage("hr@example.com", "sam@example.com", "Appraisal\r\nBcc: x", "body text", now))

	for _, want := range []string{"From: hr@example.com\r\n", "To: sam@example.com\r\n", "Subject: Appraisal Bcc: x\r\n", "@example.com>\r\n", "\r\n\r\nbody text"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message missing %q:\n%s", want, msg)
		}
	}
	if strings.Contains(msg, "\r\nBcc:") {
		t.Fatalf("subject must not inject headers:\n%s", msg)
	}
}

func TestNewDisabledIsNoop(t *testing.T) {
	mailer := New(config.Config{EmailEnabled: false, SMTPHost: "smtp.example.com"})
	if err := mailer.Send(context.Background(), "a@example.com", "b@example.com", "s", "b"); err != nil {
		t.Fatalf("noop mailer returned %v", err)
	}
}
