package siga

import (
	"context"
	"errors"
	"time"
)

// ErrElementNotFound is returned by a Page when a selector matches nothing
// within the allotted wait.
var ErrElementNotFound = errors.New("element not found")

// Element is an opaque handle to a node in the page's current document, it
// may only be interpreted by the Page that returned it.
type Element any

// Page is the capability surface of a controllable rendered web page that the
// authenticator and extractors drive. Every method is a suspend point.
type Page interface {
	// Navigate loads url and returns once navigation has settled.
	Navigate(ctx context.Context, url string) error
	// WaitFor waits at most timeout for selector to match, returning the
	// first match or ErrElementNotFound.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) (Element, error)
	// QueryAll returns every match of selector under scope in document order,
	// a nil scope queries the whole document.
	QueryAll(ctx context.Context, scope Element, selector string) ([]Element, error)
	// Text returns the trimmed text content of el.
	Text(ctx context.Context, el Element) (string, error)
	// InnerText returns the rendered text of el: table cells are separated
	// by tabs and line breaks by newlines.
	InnerText(ctx context.Context, el Element) (string, error)
	// Attr returns the value of the attribute name of el, with URL valued
	// attributes (src, href) resolved against the page URL.
	Attr(ctx context.Context, el Element, name string) (string, error)
	// Type enters text into the input matched by selector.
	Type(ctx context.Context, selector, text string) error
	// Click activates the element matched by selector.
	Click(ctx context.Context, selector string) error
	// URL returns the URL of the current document.
	URL() string
	// Close releases the page, it may not be used afterwards.
	Close() error
}

// PageFactory creates an independent page (and session) per call.
type PageFactory interface {
	NewPage(ctx context.Context) (Page, error)
}

// PageFactoryFunc adapts a function to PageFactory.
type PageFactoryFunc func(ctx context.Context) (Page, error)

func (f PageFactoryFunc) NewPage(ctx context.Context) (Page, error) {
	return f(ctx)
}
