// Package whttp wraps go-retryablehttp with the session behavior the SEBI
// site expects: a cookie jar shared across calls (the listing page sets a
// JSESSIONID that the AJAX pagination endpoint requires), browser-like
// headers, and form-encoded POST support.
package whttp

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/net/html"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Header is a single request header.
type Header struct {
	Name  string
	Value string
}

// Response carries the parts of an HTTP response the scrapers care about.
type Response struct {
	StatusCode     int
	BodyString     string
	ResponseLength int
	HTTPTitle      string
}

// Client is a session-bearing HTTP client. One Client corresponds to one
// resolution invocation; cookies set by earlier requests are attached to
// later ones and nothing is shared between Clients.
type Client struct {
	rc *retryablehttp.Client
}

// NewSessionClient builds a Client with a fresh cookie jar. proxy may be
// empty; when set it is applied to the underlying transport.
func NewSessionClient(proxy string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	rc := retryablehttp.NewClient()
	rc.Logger = log.New(io.Discard, "", 0)
	rc.RetryMax = 2
	rc.HTTPClient.Jar = jar
	rc.HTTPClient.Timeout = 60 * time.Second

	if proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}
		rc.HTTPClient.Transport = &http.Transport{
			Proxy: http.ProxyURL(proxyURL),
		}
	}

	return &Client{rc: rc}, nil
}

// Get performs a GET and reads the full body.
func (c *Client) Get(ctx context.Context, rawURL string, headers ...Header) (*Response, error) {
	return c.do(ctx, http.MethodGet, rawURL, nil, headers)
}

// PostForm performs a form-encoded POST and reads the full body.
func (c *Client) PostForm(ctx context.Context, rawURL string, form url.Values, headers ...Header) (*Response, error) {
	headers = append(headers, Header{Name: "Content-Type", Value: "application/x-www-form-urlencoded; charset=UTF-8"})
	return c.do(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()), headers)
}

// Stream performs a GET and returns the raw response without reading the
// body; the caller owns resp.Body. Used for large artifact downloads.
func (c *Client) Stream(ctx context.Context, rawURL string, headers ...Header) (*http.Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	setHeaders(req, headers)

	resp, err := c.rc.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, rawURL)
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, method, rawURL string, body io.Reader, headers []Header) (*Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, err
	}
	setHeaders(req, headers)

	resp, err := c.rc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, rawURL)
	}

	wRes := &Response{
		StatusCode: resp.StatusCode,
		BodyString: string(bodyBytes),
	}
	wRes.ResponseLength = utf8.RuneCountInString(wRes.BodyString)

	if title, ok := getHTMLTitle(wRes.BodyString); ok {
		wRes.HTTPTitle = strings.ToValidUTF8(strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(title, "\n", ""), "\r", "")), "")
	}

	return wRes, nil
}

func setHeaders(req *retryablehttp.Request, headers []Header) {
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	for _, h := range headers {
		req.Header.Set(h.Name, h.Value)
	}
}

func isTitleElement(n *html.Node) bool {
	return n.Type == html.ElementNode && n.Data == "title"
}

func traverse(n *html.Node) (string, bool) {
	if isTitleElement(n) {
		if n.FirstChild != nil {
			return n.FirstChild.Data, true
		}
		return "", true
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		result, ok := traverse(c)
		if ok {
			return result, ok
		}
	}

	return "", false
}

func getHTMLTitle(requestBody string) (string, bool) {
	doc, err := html.Parse(strings.NewReader(requestBody))
	if err != nil {
		return "", false
	}

	return traverse(doc)
}
