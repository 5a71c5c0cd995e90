package page

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// Locator is a CSS selector group; a group may list alternatives separated by commas.
type Locator string

// Chain is an ordered list of locators evaluated short-circuit.
type Chain []Locator

// First returns the first element matched by the earliest locator that matches at all.
// The returned selection is empty when nothing matches.
func (c Chain) First(root *goquery.Selection) *goquery.Selection {
	for _, l := range c {
		if found := root.Find(string(l)); found.Length() > 0 {
			return found.First()
		}
	}
	return root.Slice(0, 0)
}

// FirstText returns the first non-empty visible text, trying locators in order and
// matches of one locator in document order.
func (c Chain) FirstText(root *goquery.Selection) string {
	for _, l := range c {
		var text string
		root.Find(string(l)).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text = Text(s)
			return text == ""
		})
		if text != "" {
			return text
		}
	}
	return ""
}

// Union returns every element matched by any locator. The union is a single selector
// group, so elements come back once each and in document order.
func (c Chain) Union(root *goquery.Selection) *goquery.Selection {
	return root.Find(c.group())
}

// Matches reports whether any element of s itself matches a locator of the chain.
// Descendants are not considered.
func (c Chain) Matches(s *goquery.Selection) bool {
	group := c.group()
	return group != "" && s.Is(group)
}

func (c Chain) group() string {
	parts := make([]string, 0, len(c))
	for _, l := range c {
		if s := strings.TrimSpace(string(l)); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

// Validate compiles every locator and reports the first invalid one.
func (c Chain) Validate() error {
	for i, l := range c {
		if strings.TrimSpace(string(l)) == "" {
			return fmt.Errorf("locator %d is empty", i)
		}
		if _, err := cascadia.ParseGroup(string(l)); err != nil {
			return fmt.Errorf("locator %d %q: %w", i, l, err)
		}
	}
	return nil
}
