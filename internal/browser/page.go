// Package browser implements siga.Page over plain HTTP: documents are fetched
// with resty, kept in a cookie-backed session and queried with goquery. Forms
// are submitted the way a browser serializes them, scripts never run.
package browser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"siga-backend/internal/components/assert"
	"siga-backend/internal/components/telemetry"
	"siga-backend/internal/scrapers/siga"
	"siga-backend/pkg/htmlutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html"
)

const (
	report_page_navigate = "page.navigate"
	report_page_submit   = "page.submit"
)

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// ErrClosed is returned by every method of a closed Page.
var ErrClosed = errors.New("browser: page is closed")

// ErrNoDocument is returned when a page is queried before anything was loaded.
var ErrNoDocument = errors.New("browser: no document loaded")

type Options struct {
	UserAgent string
	// Timeout bounds a single request, redirects included.
	Timeout      time.Duration
	MaxRedirects int
}

func (o Options) withDefaults() Options {
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.Timeout == 0 {
		o.Timeout = 30 * time.Second
	}
	if o.MaxRedirects == 0 {
		o.MaxRedirects = 10
	}
	return o
}

// Page is a single browsing session, it is not safe for concurrent use.
type Page struct {
	http   *resty.Client
	tel    telemetry.API
	url    *url.URL
	doc    *goquery.Document
	closed bool
}

// New creates a page with an empty session.
func New(opts Options, tel telemetry.API) (*Page, error) {
	assert.NotNil(tel)
	opts = opts.withDefaults()
	tel = telemetry.NewScopedAPI("browser", tel)

	client := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetHeader("user-agent", opts.UserAgent)
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(opts.MaxRedirects))
	client.SetTimeout(opts.Timeout)

	telemetry.InstrumentResty(client, tel)

	return &Page{http: client, tel: tel}, nil
}

// FromReader creates an offline page holding the document read from r as if
// it had been loaded from pageUrl. Navigation and form submission fail on it.
func FromReader(pageUrl string, r io.Reader) (*Page, error) {
	parsed, err := url.Parse(pageUrl)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("browser: parse document: %w", err)
	}
	return &Page{url: parsed, doc: doc, tel: telemetry.SlogAPI{}}, nil
}

// Factory creates independent pages, it implements siga.PageFactory.
type Factory struct {
	opts Options
	tel  telemetry.API
}

func NewFactory(opts Options, tel telemetry.API) Factory {
	assert.NotNil(tel)
	return Factory{opts: opts, tel: tel}
}

func (f Factory) NewPage(ctx context.Context) (siga.Page, error) {
	return New(f.opts, f.tel)
}

func (p *Page) check() error {
	if p.closed {
		return ErrClosed
	}
	return nil
}

func (p *Page) document() (*goquery.Document, error) {
	err := p.check()
	if err != nil {
		return nil, err
	}
	if p.doc == nil {
		return nil, ErrNoDocument
	}
	return p.doc, nil
}

func (p *Page) Navigate(ctx context.Context, link string) error {
	err := p.check()
	if err != nil {
		return err
	}
	if p.http == nil {
		return fmt.Errorf("browser: navigate %s: offline page", link)
	}

	res, err := p.http.R().
		SetContext(ctx).
		Get(link)
	if err != nil {
		p.tel.ReportBroken(report_page_navigate, err, link)
		return err
	}
	return p.load(res)
}

// load replaces the current document with the body of res. The page URL
// becomes the URL of the last request made, after redirects.
func (p *Page) load(res *resty.Response) error {
	if res.IsError() {
		return fmt.Errorf("browser: %s %s: %s", res.Request.Method, res.Request.URL, res.Status())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return fmt.Errorf("browser: parse %s: %w", res.Request.URL, err)
	}

	finalUrl, err := url.Parse(res.Request.URL)
	if err != nil {
		return err
	}
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		finalUrl = res.RawResponse.Request.URL
	}

	p.url = finalUrl
	p.doc = doc
	return nil
}

// WaitFor matches selector against the current document. Documents do not
// change without a navigation so there is nothing to wait for, timeout only
// has to be honored by implementations that render asynchronously.
func (p *Page) WaitFor(ctx context.Context, selector string, timeout time.Duration) (siga.Element, error) {
	doc, err := p.document()
	if err != nil {
		return nil, err
	}
	found := doc.Find(selector)
	if found.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", siga.ErrElementNotFound, selector)
	}
	return found.Get(0), nil
}

func (p *Page) QueryAll(ctx context.Context, scope siga.Element, selector string) ([]siga.Element, error) {
	doc, err := p.document()
	if err != nil {
		return nil, err
	}

	sel := doc.Selection
	if scope != nil {
		node, err := toNode(scope)
		if err != nil {
			return nil, err
		}
		sel = doc.FindNodes(node)
	}

	found := sel.Find(selector)
	elements := make([]siga.Element, found.Length())
	for i, node := range found.Nodes {
		elements[i] = node
	}
	return elements, nil
}

func (p *Page) Text(ctx context.Context, el siga.Element) (string, error) {
	node, err := p.element(el)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(htmlutil.GetText(node)), nil
}

func (p *Page) InnerText(ctx context.Context, el siga.Element) (string, error) {
	node, err := p.element(el)
	if err != nil {
		return "", err
	}
	return htmlutil.InnerText(node), nil
}

func (p *Page) Attr(ctx context.Context, el siga.Element, name string) (string, error) {
	node, err := p.element(el)
	if err != nil {
		return "", err
	}
	value, ok := attr(node, name)
	if !ok {
		return "", fmt.Errorf("browser: attribute %s not present on <%s>", name, node.Data)
	}
	if (name == "src" || name == "href") && p.url != nil {
		return htmlutil.ResolveUrl(p.url.String(), value), nil
	}
	return value, nil
}

func (p *Page) Type(ctx context.Context, selector, text string) error {
	doc, err := p.document()
	if err != nil {
		return err
	}
	found := doc.Find(selector).First()
	if found.Length() == 0 {
		return fmt.Errorf("%w: %s", siga.ErrElementNotFound, selector)
	}
	node := found.Get(0)
	if node.Data == "textarea" {
		found.SetText(text)
		return nil
	}
	if node.Data != "input" {
		return fmt.Errorf("browser: cannot type into <%s>", node.Data)
	}
	found.SetAttr("value", text)
	return nil
}

// Click activates the first element matched by selector: links are followed
// and submit controls submit their form.
func (p *Page) Click(ctx context.Context, selector string) error {
	doc, err := p.document()
	if err != nil {
		return err
	}
	found := doc.Find(selector).First()
	if found.Length() == 0 {
		return fmt.Errorf("%w: %s", siga.ErrElementNotFound, selector)
	}
	node := found.Get(0)

	if node.Data == "a" {
		href, ok := attr(node, "href")
		if !ok {
			return nil
		}
		return p.Navigate(ctx, htmlutil.ResolveUrl(p.url.String(), href))
	}

	form := found.Closest("form")
	if form.Length() == 0 {
		return fmt.Errorf("browser: %s is not inside a form", selector)
	}
	return p.submit(ctx, form, node)
}

func (p *Page) URL() string {
	if p.url == nil {
		return ""
	}
	return p.url.String()
}

func (p *Page) Close() error {
	if p.closed {
		return ErrClosed
	}
	p.closed = true
	p.doc = nil
	return nil
}

func (p *Page) element(el siga.Element) (*html.Node, error) {
	err := p.check()
	if err != nil {
		return nil, err
	}
	return toNode(el)
}

func toNode(el siga.Element) (*html.Node, error) {
	node, ok := el.(*html.Node)
	if !ok || node == nil {
		return nil, fmt.Errorf("browser: element %T was not returned by this page", el)
	}
	return node, nil
}

func attr(node *html.Node, name string) (string, bool) {
	for _, a := range node.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}
