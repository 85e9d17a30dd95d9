package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func capture(t *testing.T, level Level, redact bool, fn func()) string {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(level)
	SetRedactPII(redact)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetLevel(INFO)
		SetRedactPII(true)
	})
	fn()
	return buf.String()
}

func TestLevelFiltering(t *testing.T) {
	out := capture(t, WARN, false, func() {
		Debug("debug line")
		Info("info line")
		Warn("warn line")
		Error("error line")
	})
	if strings.Contains(out, "debug line") || strings.Contains(out, "info line") {
		t.Errorf("low-severity lines leaked: %s", out)
	}
	if !strings.Contains(out, "warn line") || !strings.Contains(out, "error line") {
		t.Errorf("high-severity lines missing: %s", out)
	}
}

func TestFieldsAreLogged(t *testing.T) {
	out := capture(t, INFO, false, func() {
		Info("syncer: run complete", "source", "filedrop", "records", 42)
	})
	if !strings.Contains(out, "source") || !strings.Contains(out, "filedrop") {
		t.Errorf("fields missing: %s", out)
	}
}

func TestRecipientFieldsAreRedacted(t *testing.T) {
	out := capture(t, INFO, true, func() {
		Info("merge: record upserted", "recipient", "jane.doe@example.com")
	})
	if strings.Contains(out, "jane.doe@example.com") {
		t.Errorf("recipient address leaked: %s", out)
	}
}

func TestRedactEmail(t *testing.T) {
	tests := []struct{ in, want string }{
		{"jane.doe@example.com", "ja***@example.com"},
		{"a@b.co", "***@b.co"},
		{"not-an-email", "***@***"},
	}
	for _, tt := range tests {
		if got := RedactEmail(tt.in); got != tt.want {
			t.Errorf("RedactEmail(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRedactPhone(t *testing.T) {
	got := RedactPhone("+15550123")
	if strings.Contains(got, "55501") {
		t.Errorf("RedactPhone leaked middle digits: %q", got)
	}
	if !strings.HasSuffix(got, "23") {
		t.Errorf("RedactPhone(%q) = %q, want last two digits kept", "+15550123", got)
	}
}

func TestRedactRecipientDispatch(t *testing.T) {
	if got := RedactRecipient("jane@example.com"); !strings.Contains(got, "@example.com") {
		t.Errorf("email recipient = %q, want domain kept", got)
	}
	if got := RedactRecipient("+15550123"); strings.Contains(got, "5550") {
		t.Errorf("phone recipient leaked: %q", got)
	}
}
