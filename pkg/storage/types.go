package storage

import "time"

// Resolution is one recorded resolution attempt.
type Resolution struct {
	ID              int64
	Company         string
	NormalizedQuery string
	Found           bool
	MatchedTitle    string
	DocType         string
	Score           float64
	LandingURL      string
	PagesScanned    int
	UniqueTitles    int
	CreatedAt       time.Time
}

// Artifact is one recorded successful download.
type Artifact struct {
	ID          int64
	Company     string
	LandingURL  string
	ResolvedURL string
	Path        string
	SizeBytes   int64
	Attempts    int
	CreatedAt   time.Time
}
