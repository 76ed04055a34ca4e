package utils

import (
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
	log "github.com/sirupsen/logrus"
)

var Log = logrus.New()

func SetLogLevel(level string) {
	// We are not using logrus' trace and panic levels
	switch strings.ToLower(level) {
	case "debug":
		Log.SetLevel(log.DebugLevel)
	case "info":
		Log.SetLevel(log.InfoLevel)
	case "warning", "warn":
		Log.SetLevel(log.WarnLevel)
	case "error":
		Log.SetLevel(log.ErrorLevel)
	case "fatal":
		Log.SetLevel(log.FatalLevel)
	default:
		log.Fatal("Bad error level string")
	}
}

var unsafeFilenameRe = regexp.MustCompile(`[^a-z0-9]+`)

// SafeFilename turns a company name into a stable filesystem-safe slug,
// so repeated downloads for the same company land on the same path.
func SafeFilename(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = unsafeFilenameRe.ReplaceAllString(name, "_")
	return strings.Trim(name, "_")
}
