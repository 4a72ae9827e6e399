package extract

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DateExtractor finds the closing date of a tender in extracted document
// text. It anchors on the configured closing keywords first and only falls
// back to a whole-document scan when no anchored segment parses.
type DateExtractor struct {
	keywords []string
	now      func() time.Time
}

func NewDateExtractor(keywords []string) *DateExtractor {
	return &DateExtractor{keywords: keywords, now: time.Now}
}

// segment capture stops at a line break or a double space; past ~120 chars
// the date is no longer about the keyword that anchored it.
const maxSegmentLen = 120

var (
	weekdayRe = regexp.MustCompile(`(?i)\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday)[,\s]*`)
	atTimeRe  = regexp.MustCompile(`(?i)\bat\s+\d{1,2}(:\d{2})?\s*(a\.?m\.?|p\.?m\.?|hrs|hours)?\b`)
	ordinalRe = regexp.MustCompile(`\b(\d{1,2})(st|nd|rd|th)\b`)
	spaceRe   = regexp.MustCompile(`\s+`)
)

// dateShapeRegexes pull a date-shaped substring out of a noisy segment,
// most specific first.
var dateShapeRegexes = []*regexp.Regexp{
	regexp.MustCompile(`\b20\d{2}-\d{2}-\d{2}([ T]\d{2}:\d{2}(:\d{2})?)?\b`),
	regexp.MustCompile(`(?i)\b\d{1,2}\s+(January|February|March|April|May|June|July|August|September|October|November|December|Jan|Feb|Mar|Apr|Jun|Jul|Aug|Sep|Oct|Nov|Dec),?\s+20\d{2}\b`),
	regexp.MustCompile(`(?i)\b(January|February|March|April|May|June|July|August|September|October|November|December|Jan|Feb|Mar|Apr|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\s+\d{1,2},?\s+20\d{2}\b`),
	regexp.MustCompile(`\b\d{1,2}/\d{1,2}/20\d{2}\b`),
	regexp.MustCompile(`\b\d{1,2}\.\d{1,2}\.20\d{2}\b`),
	// No year; resolved against the current year after capture.
	regexp.MustCompile(`(?i)\b\d{1,2}\s+(January|February|March|April|May|June|July|August|September|October|November|December|Jan|Feb|Mar|Apr|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\b`),
	regexp.MustCompile(`(?i)\b(January|February|March|April|May|June|July|August|September|October|November|December|Jan|Feb|Mar|Apr|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\s+\d{1,2}\b`),
}

var dateFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2 January 2006",
	"2 January, 2006",
	"January 2, 2006",
	"January 2 2006",
	"2 Jan 2006",
	"2 Jan, 2006",
	"Jan 2, 2006",
	"02/01/2006",
	"2/1/2006",
	"01/02/2006",
	"02.01.2006",
	"2.1.2006",
}

var noYearFormats = []string{
	"2 January",
	"January 2",
	"2 Jan",
	"Jan 2",
}

// Extract returns the closing date found in text, or ok=false when no
// parsable date exists. A tender without a parsable closing date keeps a
// zero date and is treated as closed downstream.
func (e *DateExtractor) Extract(text string) (time.Time, bool) {
	lower := strings.ToLower(text)

	for _, keyword := range e.keywords {
		kw := strings.ToLower(strings.TrimSpace(keyword))
		if kw == "" {
			continue
		}
		offset := 0
		for {
			idx := strings.Index(lower[offset:], kw)
			if idx < 0 {
				break
			}
			start := offset + idx + len(kw)
			segment := captureSegment(text, start)
			if t, ok := e.parseSegment(segment); ok {
				return t, true
			}
			offset = start
		}
	}

	// No anchored segment parsed; scan the whole document for the first
	// date shape that does.
	return e.parseSegment(text)
}

func captureSegment(text string, start int) string {
	end := start + maxSegmentLen
	if end > len(text) {
		end = len(text)
	}
	segment := text[start:end]
	if idx := strings.IndexAny(segment, "\n\r"); idx >= 0 {
		segment = segment[:idx]
	}
	if idx := strings.Index(segment, "  "); idx >= 0 {
		segment = segment[:idx]
	}
	return segment
}

func (e *DateExtractor) parseSegment(segment string) (time.Time, bool) {
	segment = normalizeDateText(segment)
	if segment == "" {
		return time.Time{}, false
	}

	for i, re := range dateShapeRegexes {
		match := re.FindString(segment)
		if match == "" {
			continue
		}
		hasYear := i < len(dateShapeRegexes)-2
		if t, err := e.parseToken(match, hasYear); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (e *DateExtractor) parseToken(token string, hasYear bool) (time.Time, error) {
	token = strings.TrimSpace(token)
	token = titleCaseMonths(token)

	formats := dateFormats
	if !hasYear {
		formats = noYearFormats
	}

	for _, format := range formats {
		t, err := time.Parse(format, token)
		if err != nil {
			continue
		}
		if !hasYear {
			t = time.Date(e.now().Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		}
		if strings.Contains(format, ":") {
			return t.UTC(), nil
		}
		return toEndOfDay(t), nil
	}
	return time.Time{}, fmt.Errorf("unable to parse date token: %s", token)
}

// normalizeDateText strips the decoration that surrounds real-world closing
// dates so the fixed format list can parse them.
func normalizeDateText(s string) string {
	s = weekdayRe.ReplaceAllString(s, "")
	s = atTimeRe.ReplaceAllString(s, "")
	s = ordinalRe.ReplaceAllString(s, "$1")
	s = strings.NewReplacer("a.m.", "AM", "p.m.", "PM", "a.m", "AM", "p.m", "PM").Replace(s)
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

var monthTitleRe = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sep|oct|nov|dec)\b`)

func titleCaseMonths(s string) string {
	return monthTitleRe.ReplaceAllStringFunc(s, func(m string) string {
		return strings.ToUpper(m[:1]) + strings.ToLower(m[1:])
	})
}

// toEndOfDay makes a date-only deadline inclusive of its final day.
func toEndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, time.UTC)
}
