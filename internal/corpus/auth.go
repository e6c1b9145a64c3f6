package corpus

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net"
	"net/http"
	"net/url"
	"time"

	"mailassist/internal/config"
	"mailassist/internal/logger"
	"mailassist/internal/secrets"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"
)

const (
	GraphTokenName   = "graph"
	authTimeout      = 5 * time.Minute
	successPage      = `<html><head><title>Authentication Successful</title></head><body style="font-family: Arial, sans-serif; text-align: center; padding: 50px;"><h1>Authentication Successful!</h1><p>You can close this window and return to the terminal.</p></body></html>`
	failurePageTmpl  = `<html><head><title>Authentication Failed</title></head><body style="font-family: Arial, sans-serif; text-align: center; padding: 50px;"><h1>Authentication Failed</h1><p>Error: %s</p><p>Description: %s</p><p>Please check your configuration and try again.</p></body></html>`
	defaultAuthority = "common"
)

var (
	ErrAuthTimeout   = errors.New("Authentication timeout - no response received")
	ErrNotAuthorized = errors.New("no Graph token found; run: mailassist corpus auth")

	graphScopes = []string{"User.Read", "Mail.Read", "offline_access"}
)

// TokenStore persists serialized OAuth tokens.
type TokenStore interface {
	SetToken(name string, data []byte) error
	GetToken(name string) ([]byte, error)
}

type keyringTokens struct{}

func (keyringTokens) SetToken(name string, data []byte) error { return secrets.SetToken(name, data) }
func (keyringTokens) GetToken(name string) ([]byte, error)    { return secrets.GetToken(name) }

// KeyringTokens stores tokens in the system keyring.
var KeyringTokens TokenStore = keyringTokens{}

// GraphAuth runs the authorization-code flow against Azure AD.
type GraphAuth struct {
	OAuth  *oauth2.Config
	Store  TokenStore
	Log    *zap.Logger
	Notify func(authURL string)
}

// NewGraphAuth builds the flow from the corpus graph configuration.
func NewGraphAuth(cfg config.GraphConfig, store TokenStore, log *zap.Logger) (*GraphAuth, error) {
	var missing []string
	if cfg.ClientID == "" {
		missing = append(missing, "corpus.graph.client_id")
	}
	if cfg.ClientSecret == "" {
		missing = append(missing, "corpus.graph.client_secret")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required configuration: %v", missing)
	}
	tenant := cfg.TenantID
	if tenant == "" {
		tenant = defaultAuthority
	}
	if store == nil {
		store = KeyringTokens
	}
	return &GraphAuth{
		OAuth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     microsoft.AzureADEndpoint(tenant),
			RedirectURL:  cfg.RedirectURL,
			Scopes:       graphScopes,
		},
		Store: store,
		Log:   logger.OrNop(log),
	}, nil
}

// Login waits for the browser callback on the redirect URL, exchanges the
// code and stores the token.
func (a *GraphAuth) Login(ctx context.Context) (*oauth2.Token, error) {
	log := logger.OrNop(a.Log)
	redirect, err := url.Parse(a.OAuth.RedirectURL)
	if err != nil || redirect.Host == "" {
		return nil, fmt.Errorf("invalid redirect URL %q", a.OAuth.RedirectURL)
	}
	state, err := randomState()
	if err != nil {
		return nil, err
	}

	ln, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return nil, fmt.Errorf("start callback server: %w", err)
	}

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath(redirect), func(w http.ResponseWriter, r *http.Request) {
		code, err := handleCallback(w, r, state)
		if err != nil {
			select {
			case errCh <- err:
			default:
			}
			return
		}
		if code != "" {
			select {
			case codeCh <- code:
			default:
			}
		}
	})
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	defer srv.Close()

	authURL := a.OAuth.AuthCodeURL(state, oauth2.AccessTypeOffline)
	log.Info("callback server running", zap.String("addr", ln.Addr().String()))
	if a.Notify != nil {
		a.Notify(authURL)
	}

	timer := time.NewTimer(authTimeout)
	defer timer.Stop()

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return nil, err
	case <-timer.C:
		return nil, ErrAuthTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	tok, err := a.OAuth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("token acquisition failed: %w", err)
	}
	if err := a.Save(tok); err != nil {
		return nil, err
	}
	return tok, nil
}

func (a *GraphAuth) Save(tok *oauth2.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	if err := a.Store.SetToken(GraphTokenName, data); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	return nil
}

// Token loads the stored token.
func (a *GraphAuth) Token() (*oauth2.Token, error) {
	data, err := a.Store.GetToken(GraphTokenName)
	if err != nil {
		if errors.Is(err, secrets.ErrSecretNotFound) {
			return nil, ErrNotAuthorized
		}
		return nil, err
	}
	tok := &oauth2.Token{}
	if err := json.Unmarshal(data, tok); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	return tok, nil
}

// Client returns an HTTP client that refreshes the stored token as needed.
// An expired token without a refresh token is rejected up front.
func (a *GraphAuth) Client(ctx context.Context) (*http.Client, error) {
	tok, err := a.Token()
	if err != nil {
		return nil, err
	}
	if !tok.Valid() && tok.RefreshToken == "" {
		return nil, errors.New("access token has expired; please re-authenticate: mailassist corpus auth")
	}
	return a.OAuth.Client(ctx, tok), nil
}

func handleCallback(w http.ResponseWriter, r *http.Request, state string) (string, error) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		desc := q.Get("error_description")
		if desc == "" {
			desc = "Unknown error"
		}
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, failurePageTmpl, html.EscapeString(e), html.EscapeString(desc))
		return "", fmt.Errorf("%s: %s", e, desc)
	}
	code := q.Get("code")
	if code == "" {
		http.NotFound(w, r)
		return "", nil
	}
	if q.Get("state") != state {
		http.Error(w, "state mismatch", http.StatusBadRequest)
		return "", errors.New("authorization state mismatch")
	}
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(successPage))
	return code, nil
}

func callbackPath(u *url.URL) string {
	if u.Path == "" {
		return "/"
	}
	return u.Path
}

func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
