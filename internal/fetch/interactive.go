package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/leapstack-labs/sqlstage/pkg/core"
)

// defaultDriveEndpoint is the canonical download endpoint for hosts that
// gate large files behind an HTML confirmation page.
const defaultDriveEndpoint = "https://drive.google.com/uc"

// cookieTokenPrefix names the session cookie some hosts use to carry the
// confirmation token instead of embedding it in the page.
const cookieTokenPrefix = "download_warning"

var interactiveHosts = []string{
	"drive.google.com",
	"drive.usercontent.google.com",
}

var reFilePathID = regexp.MustCompile(`/file/d/([A-Za-z0-9_-]+)`)

// IsInteractiveHost reports whether rawURL points at a host that requires
// the confirmation-page download protocol.
func IsInteractiveHost(rawURL string) bool {
	for _, h := range interactiveHosts {
		if strings.Contains(rawURL, h) {
			return true
		}
	}
	return false
}

// FileID extracts the stable file identifier from an interactive-host
// URL: either an "id" query parameter or a /file/d/<id> path segment.
func FileID(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrIdentifier, err)
	}
	if id := u.Query().Get("id"); id != "" {
		return id, nil
	}
	if m := reFilePathID.FindStringSubmatch(rawURL); m != nil {
		return m[1], nil
	}
	return "", fmt.Errorf("%w: %s", core.ErrIdentifier, rawURL)
}

// FetchInteractive downloads from a host that may interpose an HTML
// confirmation page. The protocol is two rounds at most: a first GET
// that either returns the file body or the confirmation page, and a
// second GET carrying the extracted confirm token on the same session.
// Caching short-circuits the whole protocol exactly like Fetch.
func (c *Client) FetchInteractive(ctx context.Context, rawURL, dest string, force bool) (string, error) {
	if !force {
		if _, err := os.Stat(dest); err == nil {
			c.logger.Debug("using cached file", "path", dest)
			return dest, nil
		}
	}

	id, err := FileID(rawURL)
	if err != nil {
		return "", err
	}
	c.logger.Info("downloading via confirmation protocol", "id", id, "dest", dest)

	jar, err := cookiejar.New(nil)
	if err != nil {
		return "", err
	}
	// Same transport, session-scoped cookie jar.
	session := &http.Client{Transport: c.httpc.Transport, Jar: jar}

	endpoint, err := url.Parse(c.driveEndpoint)
	if err != nil {
		return "", err
	}
	params := url.Values{"export": {"download"}, "id": {id}}

	resp, err := c.getWithParams(ctx, session, endpoint, params)
	if err != nil {
		return "", err
	}

	if !isHTML(resp) {
		defer func() { _ = resp.Body.Close() }()
		if err := c.saveStream(resp.Body, dest); err != nil {
			return "", fmt.Errorf("saving %s: %w", rawURL, err)
		}
		return dest, nil
	}

	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return "", fmt.Errorf("reading confirmation page: %w", err)
	}

	token := ConfirmToken(string(body), jar.Cookies(endpoint))
	if token == "" {
		return "", fmt.Errorf("downloading %s: %w", rawURL, core.ErrConfirmToken)
	}

	params.Set("confirm", token)
	resp, err = c.getWithParams(ctx, session, endpoint, params)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if isHTML(resp) {
		return "", fmt.Errorf("downloading %s: %w", rawURL, core.ErrPermissionDenied)
	}

	if err := c.saveStream(resp.Body, dest); err != nil {
		return "", fmt.Errorf("saving %s: %w", rawURL, err)
	}
	return dest, nil
}

func (c *Client) getWithParams(ctx context.Context, session *http.Client, endpoint *url.URL, params url.Values) (*http.Response, error) {
	u := *endpoint
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := session.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", u.String(), err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, &core.TransferError{URL: u.String(), Status: resp.StatusCode}
	}
	return resp, nil
}

func isHTML(resp *http.Response) bool {
	ctype := strings.ToLower(resp.Header.Get("Content-Type"))
	return strings.Contains(ctype, "text/html")
}

// ConfirmToken extracts a confirmation token from a confirmation page.
// It tries, in order: a confirm= query parameter in any link, a hidden
// form field named "confirm", and a non-empty download_warning* session
// cookie. Returns "" when no token is found. The function performs no
// network I/O.
func ConfirmToken(body string, cookies []*http.Cookie) string {
	if tok := tokenFromHTML(body); tok != "" {
		return tok
	}
	for _, c := range cookies {
		if strings.HasPrefix(c.Name, cookieTokenPrefix) && c.Value != "" {
			return c.Value
		}
	}
	return ""
}

func tokenFromHTML(body string) string {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return ""
	}

	var fromLink, fromForm string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "a":
				if tok := confirmParam(attr(n, "href")); tok != "" && fromLink == "" {
					fromLink = tok
				}
			case "form":
				if tok := confirmParam(attr(n, "action")); tok != "" && fromLink == "" {
					fromLink = tok
				}
			case "input":
				if attr(n, "name") == "confirm" && attr(n, "value") != "" && fromForm == "" {
					fromForm = attr(n, "value")
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	if fromLink != "" {
		return fromLink
	}
	return fromForm
}

func confirmParam(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Query().Get("confirm")
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}
