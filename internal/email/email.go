package email

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type ComposeInput struct {
	From        string
	To          []string
	Cc          []string
	ReplyTo     string
	Subject     string
	Body        string
	BodyHTML    string
	InReplyTo   string
	References  string
	Attachments []string
}

// BuildMessage renders in as an RFC 5322 message. A non-empty BodyHTML adds
// a multipart/alternative body; attachments wrap it in multipart/mixed.
func BuildMessage(in ComposeInput) ([]byte, error) {
	if in.From == "" {
		return nil, fmt.Errorf("from address is required")
	}

	var buf bytes.Buffer

	writeHeader(&buf, "From", in.From)
	if len(in.To) > 0 {
		writeHeader(&buf, "To", strings.Join(in.To, ", "))
	}
	if len(in.Cc) > 0 {
		writeHeader(&buf, "Cc", strings.Join(in.Cc, ", "))
	}
	writeHeader(&buf, "Reply-To", in.ReplyTo)
	if in.Subject != "" {
		writeHeader(&buf, "Subject", mime.QEncoding.Encode("utf-8", in.Subject))
	}
	writeHeader(&buf, "In-Reply-To", in.InReplyTo)
	writeHeader(&buf, "References", in.References)
	writeHeader(&buf, "Message-ID", newMessageID(in.From))
	writeHeader(&buf, "Date", time.Now().Format(time.RFC1123Z))
	writeHeader(&buf, "MIME-Version", "1.0")

	if len(in.Attachments) == 0 {
		if err := writeBody(&buf, in); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	writer := multipart.NewWriter(&buf)
	writeHeader(&buf, "Content-Type", fmt.Sprintf("multipart/mixed; boundary=%q", writer.Boundary()))
	buf.WriteString("\r\n")

	if in.BodyHTML == "" {
		textPart, err := writer.CreatePart(textHeader("text/plain"))
		if err != nil {
			return nil, err
		}
		if err := writeQuotedPrintable(textPart, in.Body); err != nil {
			return nil, err
		}
	} else {
		alt := multipart.NewWriter(io.Discard)
		header := textproto.MIMEHeader{}
		header.Set("Content-Type", fmt.Sprintf("multipart/alternative; boundary=%q", alt.Boundary()))
		altPart, err := writer.CreatePart(header)
		if err != nil {
			return nil, err
		}
		if err := writeAlternative(altPart, alt.Boundary(), in); err != nil {
			return nil, err
		}
	}

	for _, attachmentPath := range in.Attachments {
		if attachmentPath == "" {
			continue
		}
		if err := writeAttachment(writer, attachmentPath); err != nil {
			return nil, err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func writeBody(buf *bytes.Buffer, in ComposeInput) error {
	if in.BodyHTML == "" {
		writeHeader(buf, "Content-Type", "text/plain; charset=\"utf-8\"")
		writeHeader(buf, "Content-Transfer-Encoding", "quoted-printable")
		buf.WriteString("\r\n")
		return writeQuotedPrintable(buf, in.Body)
	}

	alt := multipart.NewWriter(io.Discard)
	writeHeader(buf, "Content-Type", fmt.Sprintf("multipart/alternative; boundary=%q", alt.Boundary()))
	buf.WriteString("\r\n")
	return writeAlternative(buf, alt.Boundary(), in)
}

func writeAlternative(w io.Writer, boundary string, in ComposeInput) error {
	alt := multipart.NewWriter(w)
	if err := alt.SetBoundary(boundary); err != nil {
		return err
	}
	textPart, err := alt.CreatePart(textHeader("text/plain"))
	if err != nil {
		return err
	}
	if err := writeQuotedPrintable(textPart, in.Body); err != nil {
		return err
	}
	htmlPart, err := alt.CreatePart(textHeader("text/html"))
	if err != nil {
		return err
	}
	if err := writeQuotedPrintable(htmlPart, in.BodyHTML); err != nil {
		return err
	}
	return alt.Close()
}

func writeAttachment(writer *multipart.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	filename := filepath.Base(path)
	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	header := textproto.MIMEHeader{}
	header.Set("Content-Type", fmt.Sprintf("%s; name=\"%s\"", contentType, filename))
	header.Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	header.Set("Content-Transfer-Encoding", "base64")

	part, err := writer.CreatePart(header)
	if err != nil {
		return err
	}
	return writeBase64(part, data)
}

func textHeader(contentType string) textproto.MIMEHeader {
	header := textproto.MIMEHeader{}
	header.Set("Content-Type", contentType+"; charset=\"utf-8\"")
	header.Set("Content-Transfer-Encoding", "quoted-printable")
	return header
}

func writeQuotedPrintable(w io.Writer, body string) error {
	qp := quotedprintable.NewWriter(w)
	if _, err := qp.Write([]byte(body)); err != nil {
		return err
	}
	return qp.Close()
}

func writeHeader(buf *bytes.Buffer, key, value string) {
	if value == "" {
		return
	}
	buf.WriteString(key)
	buf.WriteString(": ")
	buf.WriteString(value)
	buf.WriteString("\r\n")
}

func writeBase64(w io.Writer, data []byte) error {
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 76 {
		if _, err := w.Write([]byte(encoded[:76] + "\r\n")); err != nil {
			return err
		}
		encoded = encoded[76:]
	}
	if len(encoded) > 0 {
		if _, err := w.Write([]byte(encoded + "\r\n")); err != nil {
			return err
		}
	}
	return nil
}

func newMessageID(from string) string {
	domain := "localhost"
	if at := strings.LastIndex(from, "@"); at != -1 {
		domain = strings.TrimRight(from[at+1:], "> ")
	}
	var b [12]byte
	if _, err := rand.Read(b[:]); err != nil {
		return ""
	}
	return fmt.Sprintf("<%s.%d@%s>", hex.EncodeToString(b[:]), time.Now().Unix(), domain)
}
