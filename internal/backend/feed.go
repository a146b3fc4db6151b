package backend

import (
	"fmt"
	"strings"
)

// Feed names one of the collaborator's opportunity listings.
type Feed string

const (
	FeedScrape      Feed = "scrape"
	FeedNewIncoming Feed = "new-incoming"
	FeedDashboard   Feed = "dashboard"
)

var feedPaths = map[Feed]string{
	FeedScrape:      "/scrape",
	FeedNewIncoming: "/new-incoming",
	FeedDashboard:   "/dashboard-rfps",
}

func (f Feed) Valid() bool {
	_, ok := feedPaths[f]
	return ok
}

func (f Feed) Path() string { return feedPaths[f] }

// ParseFeed accepts a feed name or its endpoint path ("dashboard-rfps").
func ParseFeed(s string) (Feed, error) {
	s = strings.Trim(strings.ToLower(strings.TrimSpace(s)), "/")
	if s == "" {
		return FeedScrape, nil
	}
	for f, path := range feedPaths {
		if s == string(f) || "/"+s == path {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown feed %q (want scrape, new-incoming or dashboard)", s)
}
