// Package artifact turns a filing's landing page into a validated local
// PDF. SEBI landing pages reference the real document through anchors,
// iframes, embeds or inline scripts, often behind a /web/?file= wrapper
// URL, and the download itself is occasionally served as a truncated or
// blocked HTML response that must be detected and retried.
package artifact

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"

	"github.com/sebiscope/sebiscope/internal/utils"
	"github.com/sebiscope/sebiscope/pkg/whttp"
)

const (
	// MinArtifactSize rejects placeholder/blocked responses; real filings
	// run to hundreds of pages.
	MinArtifactSize = 50 * 1024

	// MaxAttempts bounds the fetch-extract-download-validate cycle.
	MaxAttempts = 3

	// RetryBackoff is the pause between attempts.
	RetryBackoff = 2 * time.Second

	pdfMagic = "%PDF"
)

// Outcome is the result of one acquisition. Saved is true only after the
// size and signature checks passed and the file reached its final path.
type Outcome struct {
	Saved       bool   `json:"saved"`
	Path        string `json:"path,omitempty"`
	SizeBytes   int64  `json:"size_bytes,omitempty"`
	ResolvedURL string `json:"resolved_url,omitempty"`
	Attempts    int    `json:"attempts"`
	Reason      string `json:"reason,omitempty"`
}

// Config carries the tunables of a Downloader; tests shrink them.
type Config struct {
	MinSize     int64
	MaxAttempts int
	Backoff     time.Duration
}

func DefaultConfig() Config {
	return Config{
		MinSize:     MinArtifactSize,
		MaxAttempts: MaxAttempts,
		Backoff:     RetryBackoff,
	}
}

// Downloader resolves and downloads filing PDFs into destDir.
type Downloader struct {
	client  *whttp.Client
	destDir string
	cfg     Config
}

func NewDownloader(client *whttp.Client, destDir string, cfg Config) *Downloader {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = MaxAttempts
	}
	if cfg.MinSize <= 0 {
		cfg.MinSize = MinArtifactSize
	}
	return &Downloader{client: client, destDir: destDir, cfg: cfg}
}

// Acquire fetches the landing page, locates the real PDF URL, streams it
// to a temporary file and validates it, retrying the whole cycle up to
// the attempt budget. The final file is named deterministically from
// companyName and moved into place atomically, so a concurrent
// acquisition for the same company never observes a partial write.
//
// A non-nil error is returned only for context cancellation or an
// unusable destination; every remote failure is folded into the Outcome.
func (d *Downloader) Acquire(ctx context.Context, landingURL, companyName string) (Outcome, error) {
	if err := os.MkdirAll(d.destDir, 0o755); err != nil {
		return Outcome{}, fmt.Errorf("creating destination dir: %w", err)
	}

	finalPath := filepath.Join(d.destDir, utils.SafeFilename(companyName)+".pdf")
	lastReason := ""

	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleepCtx(ctx, d.cfg.Backoff); err != nil {
				return Outcome{Attempts: attempt - 1, Reason: lastReason}, err
			}
		}

		outcome, reason, err := d.attempt(ctx, landingURL, finalPath)
		if err != nil {
			return Outcome{Attempts: attempt, Reason: lastReason}, err
		}
		if outcome.Saved {
			outcome.Attempts = attempt
			utils.Log.Infof("saved %s (%d bytes) after %d attempt(s)", outcome.Path, outcome.SizeBytes, attempt)
			return outcome, nil
		}

		lastReason = reason
		utils.Log.Warnf("download attempt %d/%d failed: %s", attempt, d.cfg.MaxAttempts, reason)
	}

	return Outcome{
		Saved:    false,
		Attempts: d.cfg.MaxAttempts,
		Reason:   lastReason,
	}, nil
}

// attempt runs one full fetch-extract-download-validate cycle. The string
// return is the failure reason for retryable outcomes; err is reserved
// for context cancellation.
func (d *Downloader) attempt(ctx context.Context, landingURL, finalPath string) (Outcome, string, error) {
	res, err := d.client.Get(ctx, landingURL)
	if err != nil {
		if ctx.Err() != nil {
			return Outcome{}, "", ctx.Err()
		}
		return Outcome{}, fmt.Sprintf("fetching landing page: %v", err), nil
	}
	if res.HTTPTitle != "" {
		utils.Log.Debugf("landing page title: %s", res.HTTPTitle)
	}

	extracted := ExtractResourceURL(res.BodyString, landingURL)
	if extracted == "" {
		return Outcome{}, "no PDF link found on landing page", nil
	}
	// The wrapper's file parameter is usually absolute, but resolve it
	// against the landing page just in case.
	resourceURL := resolveRef(landingURL, UnwrapFileURL(extracted))
	utils.Log.Debugf("resolved artifact URL: %s", resourceURL)

	size, tmpPath, reason, err := d.download(ctx, resourceURL, landingURL)
	if err != nil || reason != "" {
		return Outcome{}, reason, err
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return Outcome{}, fmt.Sprintf("moving artifact into place: %v", err), nil
	}

	return Outcome{
		Saved:       true,
		Path:        finalPath,
		SizeBytes:   size,
		ResolvedURL: resourceURL,
	}, "", nil
}

// download streams the resource to a temp file in destDir and validates
// it. On any failure the temp file is removed.
func (d *Downloader) download(ctx context.Context, resourceURL, landingURL string) (int64, string, string, error) {
	resp, err := d.client.Stream(ctx, resourceURL, whttp.Header{Name: "Referer", Value: landingURL})
	if err != nil {
		if ctx.Err() != nil {
			return 0, "", "", ctx.Err()
		}
		return 0, "", fmt.Sprintf("downloading artifact: %v", err), nil
	}
	defer resp.Body.Close()

	tmp, err := os.CreateTemp(d.destDir, ".download-*")
	if err != nil {
		return 0, "", fmt.Sprintf("creating temp file: %v", err), nil
	}
	tmpPath := tmp.Name()

	size, copyErr := io.Copy(tmp, resp.Body)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(tmpPath)
		if ctx.Err() != nil {
			return 0, "", "", ctx.Err()
		}
		return 0, "", fmt.Sprintf("streaming artifact body: copy=%v close=%v", copyErr, closeErr), nil
	}

	if reason := validate(tmpPath, size, d.cfg.MinSize); reason != "" {
		os.Remove(tmpPath)
		return 0, "", reason, nil
	}

	return size, tmpPath, "", nil
}

// validate enforces the minimum size and the %PDF leading signature. An
// HTML error page saved with a .pdf extension fails the signature check.
func validate(path string, size, minSize int64) string {
	if size < minSize {
		return fmt.Sprintf("file too small (%d bytes, want >= %d)", size, minSize)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Sprintf("reopening artifact: %v", err)
	}
	defer f.Close()

	header := make([]byte, len(pdfMagic))
	if _, err := io.ReadFull(f, header); err != nil {
		return fmt.Sprintf("reading artifact header: %v", err)
	}
	if string(header) != pdfMagic {
		return fmt.Sprintf("invalid signature %q, not a PDF", header)
	}

	return ""
}

var scriptSplitRe = regexp.MustCompile(`[\s"'()\[\]{}]+`)

// ExtractResourceURL scans landing-page HTML for the document URL:
// anchors first, then iframes and embeds, then inline script text, then
// JSON script blobs. Returned URLs are resolved against baseURL.
func ExtractResourceURL(htmlBody, baseURL string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		utils.Log.Warnf("failed to parse landing page HTML: %v", err)
		return ""
	}

	found := ""
	pick := func(raw string) bool {
		raw = strings.TrimSpace(raw)
		if !isDocumentURL(raw) {
			return false
		}
		found = resolveRef(baseURL, raw)
		return true
	}

	for _, sel := range []struct{ query, attr string }{
		{"a[href]", "href"},
		{"iframe[src]", "src"},
		{"embed[src]", "src"},
	} {
		doc.Find(sel.query).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			val, _ := s.Attr(sel.attr)
			return !pick(val)
		})
		if found != "" {
			return found
		}
	}

	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		if text == "" {
			return true
		}

		// JSON configuration blobs sometimes carry the document URL in a
		// nested field.
		if typ, _ := s.Attr("type"); strings.Contains(typ, "json") && gjson.Valid(text) {
			if u := findDocumentURLInJSON(gjson.Parse(text)); u != "" && pick(u) {
				return false
			}
		}

		for _, part := range scriptSplitRe.Split(text, -1) {
			if pick(part) {
				return false
			}
		}
		return true
	})

	return found
}

func findDocumentURLInJSON(v gjson.Result) string {
	found := ""
	var walk func(r gjson.Result) bool
	walk = func(r gjson.Result) bool {
		if r.Type == gjson.String && isDocumentURL(r.Str) {
			found = r.Str
			return false
		}
		if r.IsObject() || r.IsArray() {
			cont := true
			r.ForEach(func(_, child gjson.Result) bool {
				cont = walk(child)
				return cont
			})
			return cont
		}
		return true
	}
	walk(v)
	return found
}

func isDocumentURL(raw string) bool {
	lower := strings.ToLower(raw)
	return strings.Contains(lower, ".pdf") || strings.Contains(lower, "web/?file=")
}

// UnwrapFileURL converts SEBI's viewer wrapper
// (/web/?file=<encoded real URL>) into the direct document URL.
func UnwrapFileURL(rawURL string) string {
	if !strings.Contains(rawURL, "/web/?") || !strings.Contains(rawURL, "file=") {
		return rawURL
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	if file := parsed.Query().Get("file"); file != "" {
		if decoded, err := url.QueryUnescape(file); err == nil {
			return decoded
		}
		return file
	}
	return rawURL
}

func resolveRef(baseURL, ref string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(r).String()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// AcquireArtifact is the pipeline-facing entry point: a fresh session per
// acquisition, default thresholds, destination destDir.
func AcquireArtifact(ctx context.Context, landingURL, companyName, destDir, proxy string) (Outcome, error) {
	client, err := whttp.NewSessionClient(proxy)
	if err != nil {
		return Outcome{}, err
	}
	d := NewDownloader(client, destDir, DefaultConfig())
	return d.Acquire(ctx, landingURL, companyName)
}
