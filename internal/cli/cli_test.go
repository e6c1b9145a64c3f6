package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mailassist/internal/corpus"
	"mailassist/internal/heuristic"
)

const sampleMessage = "From: Ana Lima <ana@example.com>\n" +
	"To: Joe Newman <joe@example.com>\n" +
	"Subject: Budget review\n" +
	"Message-ID: <budget-1@example.com>\n" +
	"Date: Mon, 03 Mar 2025 09:00:00 +0000\n" +
	"MIME-Version: 1.0\n" +
	"Content-Type: text/plain; charset=utf-8\n" +
	"\n" +
	"Hi Joe,\n" +
	"\n" +
	"Can we have a meeting on March 5th at 10:30 in conference room B?\n" +
	"Please send the budget by March 3 before the call.\n" +
	"\n" +
	"Thanks,\n" +
	"Ana\n"

func setupHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("MAILASSIST_AUTH_USERNAME", "joe@example.com")
	t.Setenv("MAILASSIST_AUTH_PASSWORD", "secret")
	return home
}

func writeSample(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "budget.eml")
	if err := os.WriteFile(path, []byte(sampleMessage), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestReadFromFile(t *testing.T) {
	home := setupHome(t)
	path := writeSample(t, home)

	out, err := runCLI(t, "read", "--file", path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	for _, want := range []string{"Subject: Budget review", "From: Ana Lima <ana@example.com>", "Please send the budget"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestTasksExport(t *testing.T) {
	home := setupHome(t)
	path := writeSample(t, home)
	exportPath := filepath.Join(home, "tasks.txt")

	out, err := runCLI(t, "tasks", "--file", path, "--export", exportPath)
	if err != nil {
		t.Fatalf("tasks: %v", err)
	}
	want := "1. [ ] Please send the budget by March 3 before the call. (medium) due March 3"
	if !strings.Contains(out, want) {
		t.Fatalf("expected %q in output:\n%s", want, out)
	}

	data, err := os.ReadFile(exportPath)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if string(data) != "Please send the budget by March 3 before the call.\n" {
		t.Fatalf("export = %q", data)
	}

	if _, err := runCLI(t, "tasks", "--file", path, "--done", "1", "--export", exportPath); err != nil {
		t.Fatalf("tasks done: %v", err)
	}
	data, _ = os.ReadFile(exportPath)
	if string(data) != "\n" {
		t.Fatalf("expected empty export, got %q", data)
	}

	if _, err := runCLI(t, "tasks", "--file", path, "--done", "2"); err == nil {
		t.Fatalf("expected out of range item error")
	}
}

func TestMeetingCreateEvent(t *testing.T) {
	home := setupHome(t)
	path := writeSample(t, home)

	out, err := runCLI(t, "meeting", "--file", path, "--create-event")
	if err != nil {
		t.Fatalf("meeting: %v", err)
	}
	for _, want := range []string{
		"Title: Budget review",
		"When: March 5th at 10:30",
		"Duration: 30 minutes",
		"Attendees: Ana Lima",
		"subject: Budget review",
		"required_attendees:",
		"Meeting regarding: Budget review",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestSummaryJSON(t *testing.T) {
	home := setupHome(t)
	path := writeSample(t, home)

	out, err := runCLI(t, "summary", "--file", path, "--thread", "--format", "json")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	var digest heuristic.SummaryDigest
	if err := json.Unmarshal([]byte(out), &digest); err != nil {
		t.Fatalf("decode summary: %v\n%s", err, out)
	}
	if digest.Subject != "Budget review" || digest.Sender != "Ana Lima" {
		t.Fatalf("unexpected digest: %+v", digest)
	}
	if digest.ThreadNote != heuristic.ThreadAdvisoryNote {
		t.Fatalf("thread note = %q", digest.ThreadNote)
	}
}

func TestReplyInsertWritesEml(t *testing.T) {
	home := setupHome(t)
	path := writeSample(t, home)
	replyPath := filepath.Join(home, "out", "reply.eml")

	out, err := runCLI(t, "reply", "--file", path, "--type", "meeting", "--insert", "--reply-out", replyPath)
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if !strings.HasPrefix(out, "Hi Ana Lima,") || !strings.Contains(out, "Best regards,\nJoe Newman") {
		t.Fatalf("unexpected draft:\n%s", out)
	}

	data, err := os.ReadFile(replyPath)
	if err != nil {
		t.Fatalf("read reply: %v", err)
	}
	reply := string(data)
	for _, want := range []string{"In-Reply-To: <budget-1@example.com>", "ana@example.com", "I think a meeting would be beneficial"} {
		if !strings.Contains(reply, want) {
			t.Fatalf("expected %q in reply:\n%s", want, reply)
		}
	}
}

func TestReplyRegenerate(t *testing.T) {
	home := setupHome(t)
	path := writeSample(t, home)

	if _, err := runCLI(t, "reply", "--file", path, "--regenerate"); err == nil || !strings.Contains(err.Error(), "no draft to regenerate") {
		t.Fatalf("expected missing draft error, got %v", err)
	}

	detailed, err := runCLI(t, "reply", "--file", path, "--type", "detailed")
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if !strings.Contains(detailed, "I appreciate you taking the time") {
		t.Fatalf("unexpected detailed draft:\n%s", detailed)
	}

	out, err := runCLI(t, "reply", "--file", path, "--regenerate", "--format", "json")
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	var view replyView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode reply: %v\n%s", err, out)
	}
	if view.Type != heuristic.ResponseQuick || !strings.HasPrefix(view.Draft, "Hi Ana Lima,") {
		t.Fatalf("unexpected regenerated reply: %+v", view)
	}
	if strings.Contains(view.Draft, "I appreciate you taking the time") {
		t.Fatalf("expected a quick reply, got:\n%s", view.Draft)
	}
}

func TestReplyValidation(t *testing.T) {
	home := setupHome(t)
	path := writeSample(t, home)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "unknown type", args: []string{"reply", "--file", path, "--type", "long"}, want: "invalid --type"},
		{name: "no source", args: []string{"reply"}, want: "a message <uid> or --file is required"},
		{name: "both sources", args: []string{"reply", "7", "--file", path}, want: "use either <uid> or --file"},
		{name: "bad uid", args: []string{"summary", "abc"}, want: "invalid uid"},
		{name: "bad format", args: []string{"summary", "--file", path, "--format", "xml"}, want: "unknown format"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := runCLI(t, tc.args...)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCorpusCleanAndAnalyze(t *testing.T) {
	home := setupHome(t)
	raw := filepath.Join(home, "output", "raw-emails.json")
	cleaned := filepath.Join(home, "output", "cleaned-emails.json")
	profile := filepath.Join(home, "output", "style-profile.json")
	training := filepath.Join(home, "output", "training-data.txt")

	msgs := []corpus.Message{
		{Subject: "Quote", SentDate: "2025-03-03T10:00:00.000Z", Body: "Hi Maria,\n\nThanks for reaching out. The quote for the new chairs is attached.\n\nBest regards,\nJoe", BodyType: "text"},
		{Subject: "Delivery", SentDate: "2025-03-02T10:00:00.000Z", Body: "Hi Tom,\n\nThe delivery is scheduled for Tuesday morning. Let me know if that works.\n\nThanks,\nJoe", BodyType: "text"},
		{Subject: "Short", SentDate: "2025-03-01T10:00:00.000Z", Body: "ok", BodyType: "text"},
	}
	if err := corpus.Save(raw, corpus.NewExport(msgs, time.Now())); err != nil {
		t.Fatalf("save export: %v", err)
	}

	if _, err := runCLI(t, "corpus", "clean", "-i", raw, "-o", cleaned); err != nil {
		t.Fatalf("clean: %v", err)
	}
	cleanedExport, err := corpus.LoadCleaned(cleaned)
	if err != nil {
		t.Fatalf("load cleaned: %v", err)
	}
	if cleanedExport.TotalEmails != 2 || cleanedExport.ProcessingStats.EmptyAfterCleaning != 1 {
		t.Fatalf("unexpected cleaned export: %+v", cleanedExport)
	}
	for _, e := range cleanedExport.Emails {
		if strings.Contains(e.Body, "Maria") || strings.Contains(e.Body, "Tom") {
			t.Fatalf("expected names anonymized: %q", e.Body)
		}
	}

	out, err := runCLI(t, "corpus", "analyze", "-i", cleaned, "-o", profile, "--training-out", training)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !strings.Contains(out, "Analyzed 2 emails") {
		t.Fatalf("unexpected output:\n%s", out)
	}

	data, err := os.ReadFile(profile)
	if err != nil {
		t.Fatalf("read profile: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if doc["total_emails_analyzed"] != float64(2) {
		t.Fatalf("total_emails_analyzed = %v", doc["total_emails_analyzed"])
	}
	samples, err := os.ReadFile(training)
	if err != nil {
		t.Fatalf("read training samples: %v", err)
	}
	if !strings.Contains(string(samples), "--- Sample 1 ---") {
		t.Fatalf("unexpected training samples:\n%s", samples)
	}
}

func TestCorpusAnalyzeMissingInput(t *testing.T) {
	home := setupHome(t)
	_, err := runCLI(t, "corpus", "analyze", "-i", filepath.Join(home, "missing.json"))
	if err == nil || !strings.Contains(err.Error(), "input file not found") {
		t.Fatalf("expected missing input error, got %v", err)
	}
}

func TestConfigInitAndShowRedacts(t *testing.T) {
	home := setupHome(t)
	t.Setenv("MAILASSIST_AI_OPENAI_API_KEY", "sk-hidden")

	out, err := runCLI(t, "config", "init")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	want := filepath.Join(home, ".config", "mailassist", "config.yaml")
	if !strings.Contains(out, want) {
		t.Fatalf("unexpected init output: %s", out)
	}
	if _, err := runCLI(t, "config", "init"); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected existing config error, got %v", err)
	}

	out, err = runCLI(t, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "sk-hidden") || !strings.Contains(out, "****") {
		t.Fatalf("expected redacted output:\n%s", out)
	}

	out, err = runCLI(t, "config", "show", "--show-secrets")
	if err != nil {
		t.Fatalf("config show secrets: %v", err)
	}
	if !strings.Contains(out, "sk-hidden") {
		t.Fatalf("expected api key in output:\n%s", out)
	}
}

func TestParseIndices(t *testing.T) {
	tests := []struct {
		value   string
		count   int
		want    []int
		wantErr bool
	}{
		{value: "", count: 3},
		{value: "1, 3", count: 3, want: []int{0, 2}},
		{value: "0", count: 3, wantErr: true},
		{value: "4", count: 3, wantErr: true},
		{value: "x", count: 3, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.value, func(t *testing.T) {
			got, err := parseIndices(tc.value, tc.count)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
			for _, i := range tc.want {
				if !got[i] {
					t.Fatalf("missing index %d in %v", i, got)
				}
			}
		})
	}
}
