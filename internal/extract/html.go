package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// boilerplate is removed before reading the body text.
const boilerplate = "script, style, nav, header, footer, noscript, iframe, template"

func extractHTML(raw []byte, pageURL string) (*Document, error) {
	root, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	if href := findBase(root); href != "" {
		if b, err := base.Parse(href); err == nil {
			base = b
		}
	}
	links := collectLinks(root, base)

	doc := goquery.NewDocumentFromNode(root)
	title := collapse(doc.Find("title").First().Text())
	if title == "" {
		title = collapse(doc.Find("h1").First().Text())
	}
	doc.Find(boilerplate).Remove()
	var sb strings.Builder
	for _, n := range doc.Find("body").Nodes {
		writeText(&sb, n)
	}
	text := collapse(sb.String())
	if title == "" {
		title = TitleFromURL(pageURL)
	}
	return &Document{Title: title, Text: text, Links: links}, nil
}

// blockElements end a run of text so adjacent blocks do not merge into one word.
var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true, "br": true,
	"caption": true, "dd": true, "details": true, "div": true, "dl": true, "dt": true,
	"figcaption": true, "figure": true, "form": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "hr": true, "li": true, "main": true, "ol": true,
	"p": true, "pre": true, "section": true, "summary": true, "table": true, "td": true,
	"th": true, "tr": true, "ul": true,
}

func writeText(sb *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
		return
	case html.ElementNode:
		if blockElements[n.Data] {
			sb.WriteByte(' ')
			defer sb.WriteByte(' ')
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(sb, c)
	}
}

func findBase(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "base" {
		for _, attr := range n.Attr {
			if attr.Key == "href" {
				return strings.TrimSpace(attr.Val)
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if res := findBase(c); res != "" {
			return res
		}
	}
	return ""
}

// collectLinks walks the tree iteratively and returns resolved anchor targets.
func collectLinks(root *html.Node, base *url.URL) []string {
	var links []string
	seen := make(map[string]bool)
	stack := []*html.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" {
					continue
				}
				if abs := resolve(attr.Val, base); abs != "" && !seen[abs] {
					seen[abs] = true
					links = append(links, abs)
				}
				break
			}
		}
		// push children in reverse so they pop in document order
		for c := n.LastChild; c != nil; c = c.PrevSibling {
			stack = append(stack, c)
		}
	}
	return links
}

func resolve(ref string, base *url.URL) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(u)
	scheme := strings.ToLower(abs.Scheme)
	if scheme != "http" && scheme != "https" {
		return ""
	}
	abs.Fragment = ""
	return abs.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
