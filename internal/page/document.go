// Package page wraps a rendered issue page: the parsed HTML tree, the page URL and
// the locator chains used to resolve semantic fields from it.
package page

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Document is a parsed host document together with the URL it was rendered at.
type Document struct {
	doc *goquery.Document
	url *url.URL
}

// Parse reads HTML from r. An unparsable rawURL is kept as an empty URL since the
// URL only feeds fallbacks.
func Parse(r io.Reader, rawURL string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse page html: %w", err)
	}
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		u = &url.URL{}
	}
	return &Document{doc: doc, url: u}, nil
}

// FromString is Parse over an in-memory HTML string.
func FromString(html, rawURL string) (*Document, error) {
	return Parse(strings.NewReader(html), rawURL)
}

// Root returns the document node as a selection.
func (d *Document) Root() *goquery.Selection {
	return d.doc.Selection
}

// Body returns the body element, which the html parser always synthesizes.
func (d *Document) Body() *goquery.Selection {
	return d.doc.Find("body").First()
}

// URL returns the page URL; it is never nil.
func (d *Document) URL() *url.URL {
	return d.url
}

// Render writes the current (possibly mutated) tree as HTML.
func (d *Document) Render(w io.Writer) error {
	html, err := d.doc.Html()
	if err != nil {
		return fmt.Errorf("render page html: %w", err)
	}
	_, err = io.WriteString(w, html)
	return err
}

// HTML renders the current tree into a string.
func (d *Document) HTML() (string, error) {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
