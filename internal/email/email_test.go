package email

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleMessage = "From: Ana Lopez <ana@example.com>\r\n" +
	"To: me@example.com, bob@example.com\r\n" +
	"Cc: carol@example.com, ME@example.com\r\n" +
	"Subject: Project Sync\r\n" +
	"Message-ID: <orig-1@example.com>\r\n" +
	"References: <root@example.com>\r\n" +
	"Date: Mon, 02 Jun 2025 10:00:00 +0000\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Can you review the deck by Friday 6?\r\n"

func TestParseMessage(t *testing.T) {
	p, err := ParseMessage([]byte(sampleMessage))
	if err != nil {
		t.Fatalf("parse message: %v", err)
	}
	if p.Subject != "Project Sync" {
		t.Fatalf("subject = %q", p.Subject)
	}
	if p.SenderDisplayName() != "Ana Lopez" || p.FromAddress != "ana@example.com" {
		t.Fatalf("sender = %q <%s>", p.SenderDisplayName(), p.FromAddress)
	}
	if !strings.Contains(p.Text, "Can you review the deck") {
		t.Fatalf("text = %q", p.Text)
	}
	if len(p.Attachments) != 0 {
		t.Fatalf("attachments = %v", p.Attachments)
	}
	if p.Date.IsZero() {
		t.Fatalf("date not parsed")
	}
}

func TestParseMessageSenderFallsBackToAddress(t *testing.T) {
	raw := "From: solo@example.com\r\nSubject: hi\r\n\r\nbody\r\n"
	p, err := ParseMessage([]byte(raw))
	if err != nil {
		t.Fatalf("parse message: %v", err)
	}
	if p.SenderDisplayName() != "solo@example.com" {
		t.Fatalf("sender = %q", p.SenderDisplayName())
	}
}

func TestBuildMessageWithAttachmentRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("attached"), 0o600); err != nil {
		t.Fatalf("write attachment: %v", err)
	}

	raw, err := BuildMessage(ComposeInput{
		From:        "me@example.com",
		To:          []string{"ana@example.com"},
		Subject:     "Notes",
		Body:        "See attached.",
		BodyHTML:    "<p>See attached.</p>",
		Attachments: []string{path},
	})
	if err != nil {
		t.Fatalf("build message: %v", err)
	}

	p, err := ParseMessage(raw)
	if err != nil {
		t.Fatalf("parse built message: %v", err)
	}
	if len(p.Attachments) != 1 || p.Attachments[0] != "notes.txt" {
		t.Fatalf("attachments = %v", p.Attachments)
	}
	if strings.TrimSpace(p.Text) != "See attached." {
		t.Fatalf("text = %q", p.Text)
	}
	if !strings.Contains(p.HTML, "<p>See attached.</p>") {
		t.Fatalf("html = %q", p.HTML)
	}
}

func TestBuildMessageRequiresFrom(t *testing.T) {
	if _, err := BuildMessage(ComposeInput{Body: "x"}); err == nil {
		t.Fatalf("expected missing from error")
	}
}

func TestBuildReply(t *testing.T) {
	raw, err := BuildReply([]byte(sampleMessage), ReplyOptions{
		From: "me@example.com",
		Body: "Hi Ana,\n\nWill do.",
	})
	if err != nil {
		t.Fatalf("build reply: %v", err)
	}

	info, err := ReadReplyInfo(raw)
	if err != nil {
		t.Fatalf("read reply: %v", err)
	}
	if info.Subject != "Re: Project Sync" {
		t.Fatalf("subject = %q", info.Subject)
	}
	if strings.Join(info.To, ",") != "ana@example.com,bob@example.com" {
		t.Fatalf("to = %v", info.To)
	}
	if strings.Join(info.Cc, ",") != "carol@example.com" {
		t.Fatalf("cc = %v", info.Cc)
	}
	if !strings.Contains(string(raw), "In-Reply-To: <orig-1@example.com>") {
		t.Fatalf("missing In-Reply-To:\n%s", raw)
	}
	if !strings.Contains(string(raw), "References: <root@example.com> <orig-1@example.com>") {
		t.Fatalf("missing References:\n%s", raw)
	}

	p, err := ParseMessage(raw)
	if err != nil {
		t.Fatalf("parse reply: %v", err)
	}
	if got := strings.TrimSpace(strings.ReplaceAll(p.Text, "\r\n", "\n")); got != "Hi Ana,\n\nWill do." {
		t.Fatalf("body = %q", p.Text)
	}
}

func TestBuildReplyWithQuote(t *testing.T) {
	raw, err := BuildReply([]byte(sampleMessage), ReplyOptions{From: "me@example.com", Body: "Done.", Quote: true})
	if err != nil {
		t.Fatalf("build reply: %v", err)
	}
	p, err := ParseMessage(raw)
	if err != nil {
		t.Fatalf("parse reply: %v", err)
	}
	if !strings.Contains(p.Text, "> Can you review the deck by Friday 6?") {
		t.Fatalf("missing quotation:\n%s", p.Text)
	}
	if !strings.Contains(p.HTML, "<blockquote") {
		t.Fatalf("missing html quotation:\n%s", p.HTML)
	}
}

func TestReplySubject(t *testing.T) {
	tests := map[string]string{
		"Hello":     "Re: Hello",
		"RE: Hello": "RE: Hello",
		"  ":        "",
	}
	for in, want := range tests {
		if got := ReplySubject(in); got != want {
			t.Fatalf("ReplySubject(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStripHTMLTags(t *testing.T) {
	got := StripHTMLTags("<style>p{}</style><p>Hello <b>there</b></p>\n<script>x()</script>")
	if got != "Hello there" {
		t.Fatalf("strip = %q", got)
	}
}
