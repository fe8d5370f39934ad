// Package useragent parses User-Agent headers and normalizes the result into
// a small set of dashboard bucket names so aggregate charts stay readable.
package useragent

import (
	"strings"

	ua "github.com/mssola/useragent"
)

// Info is the parsed, normalized view of one User-Agent header.
type Info struct {
	Browser         string
	BrowserVersion  string
	OperatingSystem string
}

// Normalized bucket names, matched in order. The first name found as a
// case-insensitive substring of the raw parse wins; anything unmatched
// passes through verbatim.
var (
	browserBuckets = []string{
		"Chrome",
		"Firefox",
		"Microsoft Edge",
		"Safari",
		"Opera",
	}
	osBuckets = []string{
		"Android",
		"Linux",
		"Mac OS X",
		"Ubuntu",
		"Windows 10",
		"Windows 8",
		"Windows 7",
		"Windows XP",
		"Windows Vista",
	}
)

// Parse extracts browser and operating-system details from a raw User-Agent
// header. An empty header yields a zero Info.
func Parse(header string) Info {
	if header == "" {
		return Info{}
	}
	parsed := ua.New(header)
	name, version := parsed.Browser()
	osInfo := parsed.OSInfo()
	os := osInfo.FullName
	if os == "" {
		os = parsed.OS()
	}
	return Info{
		Browser:         simplify(name, browserBuckets),
		BrowserVersion:  version,
		OperatingSystem: simplify(os, osBuckets),
	}
}

// simplify maps a raw parsed name onto the first matching bucket.
func simplify(raw string, buckets []string) string {
	if raw == "" {
		return ""
	}
	lower := strings.ToLower(raw)
	for _, bucket := range buckets {
		if strings.Contains(lower, strings.ToLower(bucket)) {
			return bucket
		}
	}
	return raw
}
