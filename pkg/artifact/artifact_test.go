package artifact

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sebiscope/sebiscope/pkg/whttp"
)

func newTestClient(t *testing.T) *whttp.Client {
	t.Helper()
	client, err := whttp.NewSessionClient("")
	require.NoError(t, err)
	return client
}

func fakePDF(size int) []byte {
	b := make([]byte, size)
	copy(b, "%PDF-1.7\n")
	for i := len("%PDF-1.7\n"); i < size; i++ {
		b[i] = 'x'
	}
	return b
}

func testDownloader(t *testing.T, client *whttp.Client) *Downloader {
	t.Helper()
	return NewDownloader(client, t.TempDir(), Config{
		MinSize:     1024,
		MaxAttempts: 3,
		Backoff:     0,
	})
}

func TestUnwrapFileURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{
			"https://www.sebi.gov.in/web/?file=https%3A%2F%2Fwww.sebi.gov.in%2Fsebi_data%2Fattachdocs%2Fdoc.pdf",
			"https://www.sebi.gov.in/sebi_data/attachdocs/doc.pdf",
		},
		{
			"https://www.sebi.gov.in/web/?file=https://www.sebi.gov.in/sebi_data/attachdocs/doc.pdf",
			"https://www.sebi.gov.in/sebi_data/attachdocs/doc.pdf",
		},
		{
			"https://www.sebi.gov.in/sebi_data/attachdocs/doc.pdf",
			"https://www.sebi.gov.in/sebi_data/attachdocs/doc.pdf",
		},
		{
			"https://www.sebi.gov.in/web/?other=1",
			"https://www.sebi.gov.in/web/?other=1",
		},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, UnwrapFileURL(tt.in), "input %s", tt.in)
	}
}

func TestExtractResourceURL(t *testing.T) {
	base := "https://www.sebi.gov.in/filings/public-issues/page.html"

	tests := []struct {
		name string
		html string
		want string
	}{
		{
			"anchor",
			`<html><body><a href="/sebi_data/attachdocs/filing.pdf">Download</a></body></html>`,
			"https://www.sebi.gov.in/sebi_data/attachdocs/filing.pdf",
		},
		{
			"wrapper anchor",
			`<html><body><a href="/web/?file=https%3A%2F%2Fwww.sebi.gov.in%2Fdoc.pdf">View</a></body></html>`,
			"https://www.sebi.gov.in/web/?file=https%3A%2F%2Fwww.sebi.gov.in%2Fdoc.pdf",
		},
		{
			"iframe",
			`<html><body><iframe src="https://www.sebi.gov.in/viewer/doc.pdf"></iframe></body></html>`,
			"https://www.sebi.gov.in/viewer/doc.pdf",
		},
		{
			"embed",
			`<html><body><embed src="/attach/doc.pdf" type="application/pdf"></body></html>`,
			"https://www.sebi.gov.in/attach/doc.pdf",
		},
		{
			"inline script",
			`<html><body><script>var u = "https://www.sebi.gov.in/sebi_data/attachdocs/script.pdf"; open(u);</script></body></html>`,
			"https://www.sebi.gov.in/sebi_data/attachdocs/script.pdf",
		},
		{
			"json script blob",
			`<html><body><script type="application/json">{"viewer":{"file":"https://www.sebi.gov.in/sebi_data/attachdocs/blob.pdf"}}</script></body></html>`,
			"https://www.sebi.gov.in/sebi_data/attachdocs/blob.pdf",
		},
		{
			"nothing",
			`<html><body><a href="/contact.html">Contact us</a></body></html>`,
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractResourceURL(tt.html, base))
		})
	}
}

func TestAcquireSavesValidPDF(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/landing.html", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><a href="/files/filing.pdf">Download</a></body></html>`)
	})
	mux.HandleFunc("/files/filing.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Write(fakePDF(4096))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	d := testDownloader(t, newTestClient(t))
	outcome, err := d.Acquire(context.Background(), srv.URL+"/landing.html", "Zomato Limited")
	require.NoError(t, err)

	require.True(t, outcome.Saved, "reason: %s", outcome.Reason)
	assert.Equal(t, 1, outcome.Attempts)
	assert.Equal(t, int64(4096), outcome.SizeBytes)
	assert.Equal(t, "zomato_limited.pdf", filepath.Base(outcome.Path))

	data, err := os.ReadFile(outcome.Path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF"))

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(outcome.Path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestAcquireRejectsDisguisedHTMLErrorPage(t *testing.T) {
	var downloads int
	mux := http.NewServeMux()
	mux.HandleFunc("/landing.html", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><a href="/files/filing.pdf">Download</a></body></html>`)
	})
	mux.HandleFunc("/files/filing.pdf", func(w http.ResponseWriter, r *http.Request) {
		downloads++
		// A 200-byte HTML error page wearing a .pdf extension.
		fmt.Fprint(w, "<html><body>Access denied</body></html>")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	d := testDownloader(t, newTestClient(t))
	outcome, err := d.Acquire(context.Background(), srv.URL+"/landing.html", "Zomato")
	require.NoError(t, err)

	assert.False(t, outcome.Saved)
	assert.Equal(t, 3, outcome.Attempts)
	assert.Equal(t, 3, downloads)
	assert.Contains(t, outcome.Reason, "too small")
}

func TestAcquireRejectsBadSignature(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/landing.html", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><a href="/files/filing.pdf">Download</a></body></html>`)
	})
	mux.HandleFunc("/files/filing.pdf", func(w http.ResponseWriter, r *http.Request) {
		// Big enough, wrong leading bytes.
		w.Write([]byte("<htm" + strings.Repeat("x", 4096)))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	d := testDownloader(t, newTestClient(t))
	outcome, err := d.Acquire(context.Background(), srv.URL+"/landing.html", "Zomato")
	require.NoError(t, err)

	assert.False(t, outcome.Saved)
	assert.Equal(t, 3, outcome.Attempts)
	assert.Contains(t, outcome.Reason, "invalid signature")
}

func TestAcquireFailsWhenNoLinkOnLandingPage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/landing.html", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>No documents here.</body></html>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	d := testDownloader(t, newTestClient(t))
	outcome, err := d.Acquire(context.Background(), srv.URL+"/landing.html", "Zomato")
	require.NoError(t, err)

	assert.False(t, outcome.Saved)
	assert.Equal(t, 3, outcome.Attempts)
	assert.Contains(t, outcome.Reason, "no PDF link")
}

func TestAcquireUnwrapsViewerURL(t *testing.T) {
	mux := http.NewServeMux()
	var landingURL string
	mux.HandleFunc("/landing.html", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body><iframe src="/web/?file=%s"></iframe></body></html>`,
			"%2Ffiles%2Freal.pdf")
	})
	var gotReferer string
	mux.HandleFunc("/files/real.pdf", func(w http.ResponseWriter, r *http.Request) {
		gotReferer = r.Header.Get("Referer")
		w.Write(fakePDF(2048))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	landingURL = srv.URL + "/landing.html"

	client := newTestClient(t)
	d := NewDownloader(client, t.TempDir(), Config{MinSize: 1024, MaxAttempts: 3, Backoff: 0})
	outcome, err := d.Acquire(context.Background(), landingURL, "Wrapped Co")
	require.NoError(t, err)

	require.True(t, outcome.Saved, "reason: %s", outcome.Reason)
	assert.Equal(t, landingURL, gotReferer)
}

func TestAcquireHonorsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>No documents here.</body></html>`)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := testDownloader(t, newTestClient(t))
	_, err := d.Acquire(ctx, srv.URL+"/landing.html", "Zomato")
	assert.ErrorIs(t, err, context.Canceled)
}
