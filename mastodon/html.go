package mastodon

import (
	"strings"

	"golang.org/x/net/html"
)

// extractText strips markup from a status body, returning the concatenated
// text content. Mastodon wraps status text in HTML (<p>, <a>, <span>), so the
// raw body is never usable directly.
func extractText(body string) (string, error) {
	root, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return sb.String(), nil
}
