package capture

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const maxFetchBody = 512 * 1024 // head metadata lives early; don't read whole pages

// PageMeta is the lightweight result of fetching a captured URL.
type PageMeta struct {
	Title       string
	Description string
}

// Fetcher fetches title/description for captured URLs. It follows at most
// five redirects and never hangs past its short timeouts: a capture must
// stay cheap.
type Fetcher struct {
	httpClient *http.Client
}

// NewFetcher creates a page-metadata fetcher.
func NewFetcher() *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				ResponseHeaderTimeout: 5 * time.Second,
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
	}
}

// Fetch retrieves the page and extracts <title> and meta description,
// tolerating any HTML the parser can limp through.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*PageMeta, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "cortex/1.0")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: status %d", url, resp.StatusCode)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxFetchBody))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", url, err)
	}

	meta := &PageMeta{}
	extractMeta(doc, meta)
	meta.Title = strings.TrimSpace(meta.Title)
	meta.Description = strings.TrimSpace(meta.Description)
	return meta, nil
}

// extractMeta walks the parse tree collecting the first <title> text and the
// description/og: meta tags. og: values only fill gaps left by the plain ones.
func extractMeta(n *html.Node, meta *PageMeta) {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.Title:
			if meta.Title == "" && n.FirstChild != nil {
				meta.Title = n.FirstChild.Data
			}
		case atom.Meta:
			var name, property, content string
			for _, a := range n.Attr {
				switch a.Key {
				case "name":
					name = strings.ToLower(a.Val)
				case "property":
					property = strings.ToLower(a.Val)
				case "content":
					content = a.Val
				}
			}
			if content == "" {
				break
			}
			switch {
			case name == "description" && meta.Description == "":
				meta.Description = content
			case property == "og:description" && meta.Description == "":
				meta.Description = content
			case property == "og:title" && meta.Title == "":
				meta.Title = content
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractMeta(c, meta)
	}
}
