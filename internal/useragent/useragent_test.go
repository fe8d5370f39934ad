package useragent

import "testing"

func TestParseCommonAgents(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		browser string
		os      string
	}{
		{
			name:    "chrome on windows 10",
			header:  "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			browser: "Chrome",
			os:      "Windows 10",
		},
		{
			name:    "firefox on linux",
			header:  "Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/115.0",
			browser: "Firefox",
			os:      "Linux",
		},
		{
			name:    "safari on mac",
			header:  "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
			browser: "Safari",
			os:      "Mac OS X",
		},
		{
			name:    "chrome on android",
			header:  "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36",
			browser: "Chrome",
			os:      "Android",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := Parse(tt.header)
			if info.Browser != tt.browser {
				t.Fatalf("browser = %q, want %q", info.Browser, tt.browser)
			}
			if info.OperatingSystem != tt.os {
				t.Fatalf("os = %q, want %q", info.OperatingSystem, tt.os)
			}
			if info.BrowserVersion == "" {
				t.Fatal("expected a browser version")
			}
		})
	}
}

func TestParseEmpty(t *testing.T) {
	if info := Parse(""); info != (Info{}) {
		t.Fatalf("info = %+v, want zero", info)
	}
}

func TestSimplify(t *testing.T) {
	tests := []struct {
		raw     string
		buckets []string
		want    string
	}{
		// Substring match, case-insensitive.
		{"Microsoft Edge 120", browserBuckets, "Microsoft Edge"},
		{"chrome mobile", browserBuckets, "Chrome"},
		{"OPERA GX", browserBuckets, "Opera"},
		// First match wins over later buckets.
		{"Windows 10 Pro", osBuckets, "Windows 10"},
		{"Ubuntu Linux", osBuckets, "Linux"},
		// Unmatched values pass through verbatim.
		{"UCBrowser", browserBuckets, "UCBrowser"},
		{"FreeBSD", osBuckets, "FreeBSD"},
		{"", osBuckets, ""},
	}

	for _, tt := range tests {
		if got := simplify(tt.raw, tt.buckets); got != tt.want {
			t.Fatalf("simplify(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
