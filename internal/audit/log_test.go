package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"lifedrop.org/internal/obs"
)

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("audit entry is not JSON: %v (%q)", err, buf.String())
	}
	return entry
}

func TestLogCarriesContextIdentity(t *testing.T) {
	var buf bytes.Buffer
	logger := obs.NewLogger(&buf, "info")

	ctx := WithUserID(WithRequestID(context.Background(), " req-7 "), "p-3")
	Log(ctx, logger, "journal.donation_added", map[string]any{"center": "City Blood Bank"})

	entry := decodeEntry(t, &buf)
	if entry["msg"] != "audit" || entry["type"] != "audit" {
		t.Fatalf("not an audit entry: %v", entry)
	}
	if entry["event"] != "journal.donation_added" {
		t.Fatalf("event = %v", entry["event"])
	}
	if entry["request_id"] != "req-7" || entry["user_id"] != "p-3" {
		t.Fatalf("identity not carried: %v", entry)
	}
	fields, _ := entry["fields"].(map[string]any)
	if fields["center"] != "City Blood Bank" {
		t.Fatalf("fields = %v", entry["fields"])
	}
}

func TestLogOmitsMissingIdentity(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithRequestID(WithUserID(context.Background(), "   "), "")
	Log(ctx, obs.NewLogger(&buf, "info"), "session.logout", nil)
	entry := decodeEntry(t, &buf)
	if _, ok := entry["request_id"]; ok {
		t.Fatalf("blank request id should be dropped: %v", entry)
	}
	if _, ok := entry["user_id"]; ok {
		t.Fatalf("blank user id should be dropped: %v", entry)
	}
	if RequestIDFromContext(ctx) != "" {
		t.Fatal("RequestIDFromContext should be empty")
	}
}

func TestLogNilLoggerUsesProcessLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := obs.SetLogger(obs.NewLogger(&buf, "info"))
	defer obs.SetLogger(prev)

	Log(context.Background(), nil, "session.login", nil)
	if !strings.Contains(buf.String(), `"event":"session.login"`) {
		t.Fatalf("process logger not used: %q", buf.String())
	}
}

func TestLogUnnamedEventWarns(t *testing.T) {
	var buf bytes.Buffer
	Log(context.Background(), obs.NewLogger(&buf, "info"), "  ", map[string]any{"id": "j-1"})
	entry := decodeEntry(t, &buf)
	if entry["msg"] != "audit_event_unnamed" || entry["level"] != "WARN" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if _, ok := entry["type"]; ok {
		t.Fatalf("unnamed event must not be recorded as audit: %v", entry)
	}
}
