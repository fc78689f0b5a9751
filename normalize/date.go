package normalize

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// TimeLayout is the layout of record_update_date and record_creation_date
// values written by the indexer.
const TimeLayout = "2006-01-02 15:04:05 MST"

var timeLayouts = []string{
	TimeLayout,
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05Z07:00",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02",
}

// ParseTime parses the timestamp formats found in catalog exports, Solr
// documents and OAI datestamps. Values without a zone are read as UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.Errorf("unparseable time %q", s)
}

// FormatTime renders t in TimeLayout, in UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}
