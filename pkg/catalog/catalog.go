// Package catalog walks SEBI's paginated public-issues listing and
// resolves a company name to its primary RHP/DRHP filing entry.
package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/sebiscope/sebiscope/internal/utils"
	"github.com/sebiscope/sebiscope/pkg/matching"
	"github.com/sebiscope/sebiscope/pkg/whttp"
)

const (
	BaseURL = "https://www.sebi.gov.in"

	// Main listing page; visited once to establish the session cookie.
	ListingURL = BaseURL + "/sebiweb/home/HomeAction.do?doListing=yes&sid=3&ssid=15&smid=11"

	// AJAX endpoint that supports page navigation via POST.
	AjaxURL = BaseURL + "/sebiweb/ajax/home/getnewslistinfo.jsp"

	// PageSize is the number of entries per SEBI listing page.
	PageSize = 25

	// MaxPages bounds the walk.
	MaxPages = 10

	// MinMatchScore and StrongMatchScore are empirical tunables, not
	// domain truths: the floor below which a candidate is ignored, and
	// the threshold at which the walk stops early.
	MinMatchScore    = 0.65
	StrongMatchScore = 0.80

	// PageDelay is the courtesy pause between page requests.
	PageDelay = 200 * time.Millisecond
)

// Candidate is one catalog entry encountered during a walk. It is created
// when a listing page is parsed and read-only afterwards.
type Candidate struct {
	RawTitle        string           `json:"title"`
	NormalizedTitle string           `json:"-"`
	LandingURL      string           `json:"url"`
	DocType         matching.DocType `json:"doc_type"`
	Score           float64          `json:"score"`
}

// MatchQuery is a normalized search intent with its score thresholds.
type MatchQuery struct {
	RawName        string
	NormalizedName string
	MinScore       float64
	StrongScore    float64
}

// NewMatchQuery normalizes a company name and attaches the default
// thresholds. MinScore never exceeds StrongScore.
func NewMatchQuery(companyName string) MatchQuery {
	return MatchQuery{
		RawName:        companyName,
		NormalizedName: matching.Normalize(companyName),
		MinScore:       MinMatchScore,
		StrongScore:    StrongMatchScore,
	}
}

// ErrSessionEstablish signals that the initial listing request failed.
// Without a session the AJAX endpoint serves nothing, so this aborts the
// whole resolution.
type ErrSessionEstablish struct {
	Err error
}

func (e *ErrSessionEstablish) Error() string {
	return fmt.Sprintf("failed to establish catalog session: %v", e.Err)
}

func (e *ErrSessionEstablish) Unwrap() error { return e.Err }

// Config carries the endpoints and pacing of a Walker. Tests point it at
// a local server; production uses DefaultConfig.
type Config struct {
	BaseURL    string
	ListingURL string
	AjaxURL    string
	MaxPages   int
	PageDelay  time.Duration
}

func DefaultConfig() Config {
	return Config{
		BaseURL:    BaseURL,
		ListingURL: ListingURL,
		AjaxURL:    AjaxURL,
		MaxPages:   MaxPages,
		PageDelay:  PageDelay,
	}
}

// Walker retrieves listing pages in order over one session.
type Walker struct {
	client *whttp.Client
	cfg    Config
}

func NewWalker(client *whttp.Client, cfg Config) *Walker {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = MaxPages
	}
	return &Walker{client: client, cfg: cfg}
}

// Walk scans listing pages until MaxPages is reached, an eligible
// candidate meets the strong-match threshold, or the catalog runs out of
// entries. It returns every scored candidate seen plus the number of
// pages actually requested.
//
// Pages are strictly sequential: each AJAX request rides on the session
// cookie set by the first request, and early termination must observe
// results in scan order so that the lowest page index wins ties.
func (w *Walker) Walk(ctx context.Context, q MatchQuery) ([]Candidate, int, error) {
	var candidates []Candidate
	seenTitles := make(map[string]bool)
	pagesScanned := 0
	bestEligibleScore := 0.0

	// Page 0 rides on the session-establishing GET itself.
	res, err := w.client.Get(ctx, w.cfg.ListingURL)
	pagesScanned++
	if err != nil {
		return nil, pagesScanned, &ErrSessionEstablish{Err: err}
	}

	entries := parseEntries(res.BodyString, w.cfg.BaseURL)
	for _, e := range entries {
		if seenTitles[e.title] {
			continue
		}
		seenTitles[e.title] = true
		c := scoreEntry(e, q)
		candidates = append(candidates, c)
		if c.DocType.Eligible() && c.Score > bestEligibleScore {
			bestEligibleScore = c.Score
		}
	}

	if len(entries) == 0 {
		utils.Log.Warnf("catalog listing page returned no entries for %q", q.RawName)
		return candidates, pagesScanned, nil
	}

	for pageIndex := 1; pageIndex < w.cfg.MaxPages; pageIndex++ {
		if bestEligibleScore >= q.StrongScore {
			utils.Log.Debugf("strong match (%.4f) after %d page(s), stopping walk", bestEligibleScore, pagesScanned)
			break
		}

		if err := sleepCtx(ctx, w.cfg.PageDelay); err != nil {
			return candidates, pagesScanned, err
		}

		entries, err := w.fetchPage(ctx, pageIndex)
		pagesScanned++
		if err != nil {
			// A lost page costs us at most PageSize candidates; the walk
			// itself survives.
			utils.Log.Warnf("page %d fetch failed, treating as empty: %v", pageIndex, err)
			continue
		}
		if len(entries) == 0 {
			break
		}

		for _, e := range entries {
			if seenTitles[e.title] {
				continue
			}
			seenTitles[e.title] = true
			c := scoreEntry(e, q)
			candidates = append(candidates, c)
			if c.DocType.Eligible() && c.Score > bestEligibleScore {
				bestEligibleScore = c.Score
			}
		}
	}

	return candidates, pagesScanned, nil
}

// fetchPage retrieves one AJAX-paginated fragment. pageIndex is 0-based.
func (w *Walker) fetchPage(ctx context.Context, pageIndex int) ([]entry, error) {
	form := url.Values{
		"sid":      {"3"},
		"ssid":     {"15"},
		"smid":     {"11"},
		"doDirect": {strconv.Itoa(pageIndex)},
		"next":     {"n"},
		"search":   {""},
		"fromDate": {""},
		"toDate":   {""},
		"deptId":   {"-1"},
	}

	res, err := w.client.PostForm(ctx, w.cfg.AjaxURL, form,
		whttp.Header{Name: "X-Requested-With", Value: "XMLHttpRequest"},
		whttp.Header{Name: "Referer", Value: w.cfg.ListingURL},
	)
	if err != nil {
		return nil, err
	}

	return parseEntries(res.BodyString, w.cfg.BaseURL), nil
}

type entry struct {
	title string
	url   string
}

// parseEntries extracts filing links from a full listing page or an AJAX
// fragment. Filing detail pages live under /filings/public-issues/ and
// end in .html.
func parseEntries(htmlBody, baseURL string) []entry {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		utils.Log.Warnf("failed to parse listing HTML: %v", err)
		return nil
	}

	var entries []entry
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if !strings.Contains(href, "/filings/public-issues/") || !strings.HasSuffix(href, ".html") {
			return
		}
		title := strings.TrimSpace(s.Text())
		if title == "" {
			return
		}
		fullURL := href
		if !strings.HasPrefix(href, "http") {
			fullURL = baseURL + href
		}
		entries = append(entries, entry{title: title, url: fullURL})
	})

	return entries
}

func scoreEntry(e entry, q MatchQuery) Candidate {
	normalized := matching.Normalize(e.title)
	return Candidate{
		RawTitle:        e.title,
		NormalizedTitle: normalized,
		LandingURL:      e.url,
		DocType:         matching.Classify(e.title),
		Score:           matching.Score(q.NormalizedName, normalized),
	}
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

// ResolveDocument is the entry point consumed by the acquisition
// pipeline: it establishes a fresh session, walks the catalog and selects
// the best eligible filing for companyName. The session credential lives
// and dies with this call, so concurrent resolutions never share state.
func ResolveDocument(ctx context.Context, companyName, proxy string) (ResolutionResult, error) {
	client, err := whttp.NewSessionClient(proxy)
	if err != nil {
		return ResolutionResult{}, err
	}

	q := NewMatchQuery(companyName)
	utils.Log.Infof("resolving %q (normalized: %q)", companyName, q.NormalizedName)

	w := NewWalker(client, DefaultConfig())
	candidates, pagesScanned, err := w.Walk(ctx, q)
	if err != nil {
		return ResolutionResult{}, err
	}

	result := Select(candidates, q, pagesScanned)
	if result.Found {
		utils.Log.Infof("matched %q (%s, score %.4f) after %d page(s)",
			result.Match.RawTitle, result.Match.DocType, result.Match.Score, pagesScanned)
	} else {
		utils.Log.Infof("no eligible filing for %q after %d page(s), %d alternatives",
			companyName, pagesScanned, len(result.Alternatives))
	}
	return result, nil
}
