// internal/assistant/website.go
package assistant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	httpclient "tulipai-funnel/internal/common/http"
	"tulipai-funnel/internal/common/logger"
	"tulipai-funnel/internal/funnel/validate"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var ErrWebsiteFetchFailed = errors.New("WEBSITE_FETCH_FAILED")

// PageContent is the text pulled from a company homepage.
type PageContent struct {
	Title       string
	Description string
	Keywords    string
	Headings    []string
	Subheadings []string
	Paragraphs  []string
}

func (p PageContent) String() string {
	lines := []string{
		"Website Title: " + p.Title,
		"Meta Description: " + p.Description,
		"Meta Keywords: " + p.Keywords,
		"Main Headings: " + strings.Join(p.Headings, " "),
		"Subheadings: " + strings.Join(p.Subheadings, " "),
		"Content: " + strings.Join(p.Paragraphs, " "),
	}
	return strings.Join(lines, "\n")
}

// PageFetcher loads and extracts a web page.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (PageContent, error)
}

type WebsiteFetcher struct {
	config *Config
	client *httpclient.Client
	logger logger.Logger
}

func NewWebsiteFetcher(config *Config, log logger.Logger) *WebsiteFetcher {
	return &WebsiteFetcher{
		config: config,
		client: httpclient.NewClient(config.WebsiteTimeout).WithUserAgent(config.UserAgent),
		logger: log.WithFields(map[string]interface{}{
			"component": "website",
		}),
	}
}

// Fetch downloads rawURL, prefixing https:// when no scheme is given.
func (f *WebsiteFetcher) Fetch(ctx context.Context, rawURL string) (PageContent, error) {
	target := validate.NormalizeURL(strings.TrimSpace(rawURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return PageContent{}, fmt.Errorf("%w: %v", ErrWebsiteFetchFailed, err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return PageContent{}, fmt.Errorf("%w: %v", ErrWebsiteFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return PageContent{}, fmt.Errorf("%w: status %d", ErrWebsiteFetchFailed, resp.StatusCode)
	}

	var body io.Reader = resp.Body
	if f.config.MaxWebsiteBytes > 0 {
		body = io.LimitReader(resp.Body, f.config.MaxWebsiteBytes)
	}

	content, err := ExtractContent(body)
	if err != nil {
		return PageContent{}, fmt.Errorf("%w: %v", ErrWebsiteFetchFailed, err)
	}

	f.logger.Debug("website fetched", map[string]interface{}{
		"url":        target,
		"paragraphs": len(content.Paragraphs),
	})
	return content, nil
}

// ExtractContent parses HTML and collects title, meta description and
// keywords, h1, h2 and p text. Script and style content is ignored.
func ExtractContent(r io.Reader) (PageContent, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return PageContent{}, err
	}

	var out PageContent
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript:
				return
			case atom.Title:
				if out.Title == "" {
					out.Title = textContent(n)
				}
				return
			case atom.Meta:
				switch strings.ToLower(attr(n, "name")) {
				case "description":
					out.Description = strings.TrimSpace(attr(n, "content"))
				case "keywords":
					out.Keywords = strings.TrimSpace(attr(n, "content"))
				}
			case atom.H1:
				appendText(&out.Headings, n)
				return
			case atom.H2:
				appendText(&out.Subheadings, n)
				return
			case atom.P:
				appendText(&out.Paragraphs, n)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return out, nil
}

func appendText(dst *[]string, n *html.Node) {
	if text := textContent(n); text != "" {
		*dst = append(*dst, text)
	}
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var collect func(n *html.Node)
	collect = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		case n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style):
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}
