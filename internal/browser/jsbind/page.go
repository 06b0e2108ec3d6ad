package jsbind

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Page is the part of an HTML document the sandbox can execute.
type Page struct {
	Title string
	// Scripts holds the inline classic scripts in document order. External
	// and module scripts are skipped.
	Scripts []string
}

// ParsePage extracts the title and inline scripts from an HTML document.
func ParsePage(r io.Reader) (*Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}
	page := &Page{}
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Title:
				if page.Title == "" {
					page.Title = strings.TrimSpace(textContent(n))
				}
			case atom.Script:
				if runnable(n) {
					if src := textContent(n); strings.TrimSpace(src) != "" {
						page.Scripts = append(page.Scripts, src)
					}
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return page, nil
}

func runnable(n *html.Node) bool {
	for _, a := range n.Attr {
		switch a.Key {
		case "src":
			return false
		case "type":
			t := strings.ToLower(strings.TrimSpace(a.Val))
			if t != "" && t != "text/javascript" && t != "application/javascript" {
				return false
			}
		}
	}
	return true
}

func textContent(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}
