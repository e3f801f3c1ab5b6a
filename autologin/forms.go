package autologin

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/use-agent/autologin/models"
)

// Method is a form submission method.
type Method string

const (
	MethodGet  Method = "GET"
	MethodPost Method = "POST"
)

// Field describes one form control.
type Field struct {
	Name     string `json:"name,omitempty"`
	ID       string `json:"id,omitempty"`
	Type     string `json:"type"`
	Value    string `json:"value,omitempty"`
	Checked  bool   `json:"checked,omitempty"`
	Disabled bool   `json:"disabled,omitempty"`
}

// Hidden reports whether the field is an <input type=hidden>.
func (f Field) Hidden() bool { return f.Type == "hidden" }

// dataEntry reports whether a user would type or pick a value for the field.
func (f Field) dataEntry() bool {
	switch f.Type {
	case "hidden", "submit", "button", "image", "reset":
		return false
	}
	return true
}

// Form describes one <form> element. Fields are in document order and
// duplicate names are kept.
type Form struct {
	Index  int     `json:"index"` // position among the page's forms
	Method Method  `json:"method"`
	Action string  `json:"action"`
	ID     string  `json:"id,omitempty"`
	Name   string  `json:"name,omitempty"`
	Fields []Field `json:"fields"`
}

// PasswordIndex returns the index of the first password field, or -1.
func (f Form) PasswordIndex() int {
	for i, fld := range f.Fields {
		if fld.Type == "password" {
			return i
		}
	}
	return -1
}

// fieldMatcher selects form controls in document order. Buttons are
// filtered further in readField.
var fieldMatcher = cascadia.MustCompile("input, select, textarea, button")

// ParseDocument parses raw HTML. The parser is tolerant of malformed
// markup; only an empty body is rejected.
func ParseDocument(rawHTML string) (*goquery.Document, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, models.NewLoginError(models.ErrCodeParse, "page body is empty", nil)
	}
	root, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, models.NewLoginError(models.ErrCodeParse, "cannot parse html", err)
	}
	return goquery.NewDocumentFromNode(root), nil
}

// DocumentTitle returns the trimmed text of the first <title>.
func DocumentTitle(doc *goquery.Document) string {
	if doc == nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// LocateForms returns a descriptor for every <form> in the document.
func LocateForms(doc *goquery.Document) []Form {
	if doc == nil {
		return nil
	}
	var forms []Form
	doc.Find("form").Each(func(i int, s *goquery.Selection) {
		forms = append(forms, readForm(i, s))
	})
	return forms
}

func readForm(index int, s *goquery.Selection) Form {
	method := MethodGet
	if strings.EqualFold(strings.TrimSpace(s.AttrOr("method", "")), "post") {
		method = MethodPost
	}
	form := Form{
		Index:  index,
		Method: method,
		Action: strings.TrimSpace(s.AttrOr("action", "")),
		ID:     s.AttrOr("id", ""),
		Name:   s.AttrOr("name", ""),
	}
	s.FindMatcher(fieldMatcher).Each(func(_ int, fs *goquery.Selection) {
		if f, ok := readField(fs); ok {
			form.Fields = append(form.Fields, f)
		}
	})
	return form
}

func readField(s *goquery.Selection) (Field, bool) {
	f := Field{
		Name: s.AttrOr("name", ""),
		ID:   s.AttrOr("id", ""),
	}
	_, f.Disabled = s.Attr("disabled")

	switch goquery.NodeName(s) {
	case "input":
		f.Type = strings.ToLower(strings.TrimSpace(s.AttrOr("type", "")))
		if f.Type == "" {
			f.Type = "text"
		}
		f.Value = s.AttrOr("value", "")
		if f.Type == "checkbox" || f.Type == "radio" {
			_, f.Checked = s.Attr("checked")
			if _, ok := s.Attr("value"); !ok {
				f.Value = "on"
			}
		}
	case "select":
		f.Type = "select"
		f.Value = selectValue(s)
	case "textarea":
		f.Type = "textarea"
		f.Value = s.Text()
	case "button":
		t := strings.ToLower(strings.TrimSpace(s.AttrOr("type", "submit")))
		if t != "submit" {
			return Field{}, false
		}
		f.Type = "submit"
		f.Value = s.AttrOr("value", "")
	default:
		return Field{}, false
	}
	return f, true
}

// selectValue returns the value of the selected option, falling back to
// the first option.
func selectValue(s *goquery.Selection) string {
	opts := s.Find("option")
	opt := opts.FilterFunction(func(_ int, o *goquery.Selection) bool {
		_, ok := o.Attr("selected")
		return ok
	}).First()
	if opt.Length() == 0 {
		opt = opts.First()
	}
	if opt.Length() == 0 {
		return ""
	}
	if v, ok := opt.Attr("value"); ok {
		return v
	}
	return strings.Join(strings.Fields(opt.Text()), " ")
}
