package hltv

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	matchIdRegex     = regexp.MustCompile(`matches/(\d+)`)
	canonicalIdRegex = regexp.MustCompile(`/matches/(\d+)(?:[/?#]|$)`)
	playerIdRegex    = regexp.MustCompile(`/player/(\d+)/`)
)

func submatchId(re *regexp.Regexp, href string) (int64, bool) {
	groups := re.FindStringSubmatch(href)
	if len(groups) < 2 {
		return 0, false
	}
	id, err := strconv.ParseInt(groups[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// MatchID extracts the numeric id out of a listing link like /matches/2367432/a-vs-b.
func MatchID(href string) (int64, bool) {
	return submatchId(matchIdRegex, href)
}

// CanonicalMatchID extracts the id out of a detail page's canonical link.
func CanonicalMatchID(href string) (int64, bool) {
	return submatchId(canonicalIdRegex, href)
}

// PlayerID extracts the id out of a profile link like /player/7322/apex.
func PlayerID(href string) (int64, bool) {
	return submatchId(playerIdRegex, href)
}

// BestOf maps the listing's format label, an empty label means there is no
// format to report.
func BestOf(label string) *int {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" {
		return nil
	}
	n := 1
	switch label {
	case "bo3":
		n = 3
	case "bo5":
		n = 5
	}
	return &n
}

// splitTimestamp turns a millisecond unix timestamp into date and time strings in loc.
func splitTimestamp(raw string, loc *time.Location) (date, clock *string) {
	ms, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return nil, nil
	}
	t := time.UnixMilli(ms).In(loc)
	d := t.Format("2006-01-02")
	c := t.Format("15:04:05")
	return &d, &c
}

func resolve(base *url.URL, href string) (string, bool) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	return base.ResolveReference(ref).String(), true
}
