package browser

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"siga-backend/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html"
)

// formValues serializes the successful controls of form the way a browser
// does on submission, submitter is the clicked control.
func formValues(form *goquery.Selection, submitter *html.Node) url.Values {
	values := url.Values{}

	form.Find("input, select, textarea").Each(func(_ int, control *goquery.Selection) {
		name, ok := control.Attr("name")
		if !ok || name == "" {
			return
		}
		if _, disabled := control.Attr("disabled"); disabled {
			return
		}

		switch goquery.NodeName(control) {
		case "textarea":
			values.Add(name, control.Text())
		case "select":
			selected := control.Find("option[selected]")
			if selected.Length() == 0 {
				selected = control.Find("option")
			}
			if selected.Length() == 0 {
				return
			}
			if _, multiple := control.Attr("multiple"); !multiple {
				selected = selected.First()
			}
			selected.Each(func(_ int, option *goquery.Selection) {
				value, ok := option.Attr("value")
				if !ok {
					value = strings.TrimSpace(option.Text())
				}
				values.Add(name, value)
			})
		case "input":
			kind := strings.ToLower(control.AttrOr("type", "text"))
			switch kind {
			case "submit", "image", "button", "reset", "file":
				return
			case "checkbox", "radio":
				if _, checked := control.Attr("checked"); !checked {
					return
				}
				values.Add(name, control.AttrOr("value", "on"))
			default:
				values.Add(name, control.AttrOr("value", ""))
			}
		}
	})

	if name, ok := attr(submitter, "name"); ok && name != "" {
		value, _ := attr(submitter, "value")
		values.Add(name, value)
	}

	return values
}

func (p *Page) submit(ctx context.Context, form *goquery.Selection, submitter *html.Node) error {
	if p.http == nil {
		return fmt.Errorf("browser: submit: offline page")
	}

	action := htmlutil.ResolveUrl(p.url.String(), form.AttrOr("action", ""))
	method := strings.ToUpper(form.AttrOr("method", "GET"))
	values := formValues(form, submitter)

	req := p.http.R().SetContext(ctx)
	var res *resty.Response
	var err error
	if method == "POST" {
		res, err = req.SetFormDataFromValues(values).Post(action)
	} else {
		target, parseErr := url.Parse(action)
		if parseErr != nil {
			return parseErr
		}
		target.RawQuery = values.Encode()
		res, err = req.Get(target.String())
	}
	if err != nil {
		p.tel.ReportBroken(report_page_submit, err, method, action)
		return err
	}
	return p.load(res)
}
