package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mailassist/internal/logger"

	"go.uber.org/zap"
)

const (
	graphBaseURL   = "https://graph.microsoft.com/v1.0"
	sentItemsPath  = "/me/mailFolders/SentItems/messages"
	graphPageSize  = 100
	graphSelect    = "subject,sentDateTime,body,from,toRecipients,importance"
	graphOrderBy   = "sentDateTime desc"
	maxGraphErrLen = 4 << 10
)

// GraphError is a non-success answer from Microsoft Graph.
type GraphError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *GraphError) Error() string {
	msg := fmt.Sprintf("graph API error (%d)", e.StatusCode)
	if e.Code != "" {
		msg += ": " + e.Code
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Hint is the remediation text shown for authentication and permission
// failures.
func (e *GraphError) Hint() string {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return "Authentication error. Please re-authenticate: mailassist corpus auth"
	case http.StatusForbidden:
		return "Permission error. Please check:\n" +
			"  1. API permissions in Azure portal\n" +
			"  2. Admin consent granted\n" +
			"  3. User has access to mailbox"
	default:
		return ""
	}
}

type graphAddress struct {
	EmailAddress struct {
		Address string `json:"address"`
	} `json:"emailAddress"`
}

type graphMessage struct {
	Subject      string `json:"subject"`
	SentDateTime string `json:"sentDateTime"`
	Body         struct {
		ContentType string `json:"contentType"`
		Content     string `json:"content"`
	} `json:"body"`
	From         *graphAddress  `json:"from"`
	ToRecipients []graphAddress `json:"toRecipients"`
	Importance   string         `json:"importance"`
}

type graphPage struct {
	Value    []graphMessage `json:"value"`
	NextLink string         `json:"@odata.nextLink"`
}

type graphErrorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// GraphSource reads the Sent Items folder through Microsoft Graph. Client
// must attach the bearer token, typically an oauth2 client.
type GraphSource struct {
	Client  *http.Client
	BaseURL string
	Now     func() time.Time
	Log     *zap.Logger
}

func (s *GraphSource) Fetch(ctx context.Context, since time.Time, limit int) ([]Message, error) {
	log := logger.OrNop(s.Log)
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	next := s.firstPageURL(since, now())
	var out []graphMessage
	for batch := 1; next != ""; batch++ {
		log.Debug("fetching batch", zap.Int("batch", batch))
		page, err := s.get(ctx, next)
		if err != nil {
			return nil, err
		}
		out = append(out, page.Value...)
		log.Debug("fetched batch",
			zap.Int("batch", batch),
			zap.Int("count", len(page.Value)),
			zap.Int("total", len(out)))

		if limit > 0 && len(out) >= limit {
			out = out[:limit]
			break
		}
		next = page.NextLink
	}

	msgs := make([]Message, 0, len(out))
	for _, gm := range out {
		msgs = append(msgs, gm.toMessage())
	}
	return msgs, nil
}

func (s *GraphSource) firstPageURL(start, end time.Time) string {
	base := strings.TrimRight(s.BaseURL, "/")
	if base == "" {
		base = graphBaseURL
	}
	q := url.Values{}
	q.Set("$top", fmt.Sprint(graphPageSize))
	q.Set("$select", graphSelect)
	q.Set("$orderby", graphOrderBy)
	q.Set("$filter", fmt.Sprintf("sentDateTime ge %s and sentDateTime le %s",
		start.UTC().Format(isoMillis), end.UTC().Format(isoMillis)))
	return base + sentItemsPath + "?" + q.Encode()
}

func (s *GraphSource) get(ctx context.Context, rawURL string) (*graphPage, error) {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call graph API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxGraphErrLen))
		gerr := &GraphError{StatusCode: resp.StatusCode}
		var body graphErrorBody
		if json.Unmarshal(raw, &body) == nil && body.Error.Message != "" {
			gerr.Code = body.Error.Code
			gerr.Message = body.Error.Message
		} else {
			gerr.Message = strings.TrimSpace(string(raw))
		}
		return nil, gerr
	}

	var page graphPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode graph page: %w", err)
	}
	return &page, nil
}

func (gm graphMessage) toMessage() Message {
	m := Message{
		Subject:    gm.Subject,
		SentDate:   gm.SentDateTime,
		Body:       gm.Body.Content,
		BodyType:   strings.ToLower(gm.Body.ContentType),
		Importance: gm.Importance,
	}
	if gm.From != nil {
		m.From = gm.From.EmailAddress.Address
	}
	m.ToRecipients = make([]string, 0, len(gm.ToRecipients))
	for _, r := range gm.ToRecipients {
		m.ToRecipients = append(m.ToRecipients, r.EmailAddress.Address)
	}
	return m
}
