package email

import (
	"bytes"
	"fmt"
	"html"
	"net/mail"
	"regexp"
	"strings"

	gomail "github.com/emersion/go-message/mail"
)

// ReplyInfo holds the headers of the message being replied to. Address
// lists are bare lowercase addresses.
type ReplyInfo struct {
	MessageID  string
	References string
	From       string
	ReplyTo    string
	To         []string
	Cc         []string
	Date       string
	Subject    string
}

func ReadReplyInfo(raw []byte) (*ReplyInfo, error) {
	r, err := gomail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("read reply headers: %w", err)
	}
	defer r.Close()

	h := r.Header
	subject, err := h.Subject()
	if err != nil {
		subject = h.Get("Subject")
	}
	messageID := strings.TrimSpace(h.Get("Message-Id"))
	return &ReplyInfo{
		MessageID:  messageID,
		References: strings.TrimSpace(h.Get("References")),
		From:       h.Get("From"),
		ReplyTo:    strings.TrimSpace(h.Get("Reply-To")),
		To:         addressesOf(h.Get("To")),
		Cc:         addressesOf(h.Get("Cc")),
		Date:       h.Get("Date"),
		Subject:    subject,
	}, nil
}

// ReplyHeaders returns the In-Reply-To and References values for a reply.
func ReplyHeaders(info *ReplyInfo) (inReplyTo, references string) {
	if info == nil {
		return "", ""
	}
	inReplyTo = strings.TrimSpace(info.MessageID)
	references = strings.TrimSpace(info.References)
	switch {
	case references == "":
		references = inReplyTo
	case inReplyTo != "" && !strings.Contains(references, inReplyTo):
		references += " " + inReplyTo
	}
	return inReplyTo, references
}

// recipientSet keeps addresses in insertion order, ignoring case,
// duplicates and the user's own address.
type recipientSet struct {
	seen map[string]bool
	list []string
}

func newRecipientSet(self string) *recipientSet {
	s := &recipientSet{seen: map[string]bool{}}
	if self = strings.ToLower(strings.TrimSpace(self)); self != "" {
		s.seen[self] = true
	}
	return s
}

func (s *recipientSet) add(addrs ...string) {
	for _, addr := range addrs {
		key := strings.ToLower(addr)
		if s.seen[key] {
			continue
		}
		s.seen[key] = true
		s.list = append(s.list, addr)
	}
}

// ReplyAllRecipients addresses the sender (Reply-To when present) plus the
// original To list, and carries the original Cc over. The user's own
// address never appears and no address is listed twice.
func ReplyAllRecipients(info *ReplyInfo, selfEmail string) (to, cc []string) {
	if info == nil {
		return nil, nil
	}
	sender := info.ReplyTo
	if sender == "" {
		sender = info.From
	}

	set := newRecipientSet(selfEmail)
	set.add(addressesOf(sender)...)
	set.add(info.To...)
	to = set.list

	set.list = nil
	set.add(info.Cc...)
	return to, set.list
}

func ReplySubject(original string) string {
	subject := strings.TrimSpace(original)
	if subject == "" || strings.HasPrefix(strings.ToLower(subject), "re:") {
		return subject
	}
	return "Re: " + subject
}

// ReplyOptions controls BuildReply.
type ReplyOptions struct {
	From  string
	Body  string
	Quote bool
}

// BuildReply renders a reply-all draft to the raw message original. With
// Quote set, the original text is appended as a quotation and an HTML
// alternative is produced.
func BuildReply(original []byte, opts ReplyOptions) ([]byte, error) {
	info, err := ReadReplyInfo(original)
	if err != nil {
		return nil, err
	}
	to, cc := ReplyAllRecipients(info, opts.From)
	inReplyTo, references := ReplyHeaders(info)

	in := ComposeInput{
		From:       opts.From,
		To:         to,
		Cc:         cc,
		Subject:    ReplySubject(info.Subject),
		Body:       opts.Body,
		InReplyTo:  inReplyTo,
		References: references,
	}
	if opts.Quote {
		parsed, err := ParseMessage(original)
		if err != nil {
			return nil, err
		}
		in.Body, in.BodyHTML = QuoteOriginal(opts.Body, info, parsed)
	}
	return BuildMessage(in)
}

// QuoteOriginal appends the original message to reply in both plain and
// HTML form.
func QuoteOriginal(reply string, info *ReplyInfo, original *Parsed) (plain, htmlBody string) {
	if info == nil || original == nil || (original.Text == "" && original.HTML == "") {
		return reply, ""
	}
	attribution := attributionLine(info.From, info.Date)

	plain = reply
	if original.Text != "" {
		var sb strings.Builder
		sb.WriteString(reply)
		sb.WriteString("\n\n")
		sb.WriteString(attribution)
		sb.WriteString("\n")
		for _, line := range strings.Split(strings.TrimRight(original.Text, "\r\n"), "\n") {
			sb.WriteString("> " + strings.TrimRight(line, "\r") + "\n")
		}
		plain = sb.String()
	}

	quoted := original.HTML
	if quoted == "" {
		quoted = textToHTML(original.Text)
	}
	htmlBody = textToHTML(strings.TrimSpace(reply)) +
		`<br><br><div class="reply-quote"><div>` + html.EscapeString(attribution) + `</div>` +
		`<blockquote style="margin:0 0 0 .8ex;border-left:1px #ccc solid;padding-left:1ex">` + quoted + `</blockquote></div>`
	return plain, htmlBody
}

func attributionLine(from, date string) string {
	who := from
	if addr, err := mail.ParseAddress(from); err == nil && addr.Name != "" {
		who = addr.Name
	}
	switch {
	case who == "":
		return "Original message:"
	case date == "":
		return who + " wrote:"
	default:
		return fmt.Sprintf("On %s, %s wrote:", date, who)
	}
}

func textToHTML(s string) string {
	return strings.ReplaceAll(html.EscapeString(s), "\n", "<br>\n")
}

var angleAddr = regexp.MustCompile(`<([^<>\s]+@[^<>\s]+)>`)

// addressesOf returns the lowercase addresses of an address-list header.
// Malformed lists fall back to picking <addr> and bare addr@host tokens.
func addressesOf(header string) []string {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil
	}
	var out []string
	if list, err := gomail.ParseAddressList(header); err == nil {
		for _, a := range list {
			if a.Address != "" {
				out = append(out, strings.ToLower(a.Address))
			}
		}
		return out
	}
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if m := angleAddr.FindStringSubmatch(part); m != nil {
			out = append(out, strings.ToLower(m[1]))
		} else if strings.Contains(part, "@") && !strings.ContainsAny(part, "<>") {
			out = append(out, strings.ToLower(part))
		}
	}
	return out
}

var (
	scriptBlock = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleBlock  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	anyTag      = regexp.MustCompile(`<[^>]*>`)
	spaceRun    = regexp.MustCompile(`\s+`)
)

// StripHTMLTags drops script and style blocks and tags, collapsing
// whitespace. Entities are left encoded.
func StripHTMLTags(s string) string {
	for _, re := range []*regexp.Regexp{scriptBlock, styleBlock} {
		s = re.ReplaceAllString(s, "")
	}
	s = anyTag.ReplaceAllString(s, " ")
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}
