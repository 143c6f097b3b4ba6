package extract

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/dwalters/scrapeflow/internal/records"
)

// ErrNoRecords is returned in strict mode when the container selector
// matches nothing on a page that was expected to carry records.
var ErrNoRecords = errors.New("no records matched container selector")

// FieldSpec maps one record field to a sub-selector within a container
// element.
type FieldSpec struct {
	Name     string
	Selector string
	// Attr reads an attribute instead of the text content when set.
	Attr string
	// Join collects every match and joins them with this separator.
	// When empty only the first match is used.
	Join string
	// Pattern, when set, reduces the raw value to its first capture group.
	Pattern *regexp.Regexp
	// ResolveURL resolves the value against the page URL. Only meaningful
	// for href-like attributes.
	ResolveURL bool
}

// Profile describes how to scrape one kind of listing page: which elements
// are records, which sub-elements are fields, and which control advances to
// the next page.
type Profile struct {
	Name      string
	Container string
	// Ready is the content-ready selector the driver waits on before
	// extracting.
	Ready string
	// Next selects the pagination control. Absent or disabled means the
	// listing is on its final page.
	Next   string
	Fields []FieldSpec
}

// FieldNames returns the field names in declaration order.
func (p Profile) FieldNames() []string {
	names := make([]string, len(p.Fields))
	for i, f := range p.Fields {
		names[i] = f.Name
	}
	return names
}

// Extractor turns a rendered HTML snapshot into records according to a
// Profile. It is a pure function over its input; it holds no page state.
type Extractor struct {
	profile Profile
	strict  bool
}

func New(profile Profile, strict bool) *Extractor {
	return &Extractor{profile: profile, strict: strict}
}

func (e *Extractor) Profile() Profile {
	return e.profile
}

// Extract parses html and returns one record per container match, in DOM
// order. pageURL is used to resolve relative links for fields with
// ResolveURL set.
func (e *Extractor) Extract(html, pageURL string) ([]records.Record, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var base *url.URL
	if pageURL != "" {
		if u, err := url.Parse(pageURL); err == nil {
			base = u
		}
	}

	containers := doc.Find(e.profile.Container)
	if containers.Length() == 0 {
		if e.strict {
			return nil, fmt.Errorf("%w: %q", ErrNoRecords, e.profile.Container)
		}
		return nil, nil
	}

	recs := make([]records.Record, 0, containers.Length())
	containers.Each(func(_ int, sel *goquery.Selection) {
		rec := make(records.Record, len(e.profile.Fields))
		for _, f := range e.profile.Fields {
			rec[f.Name] = extractField(sel, f, base)
		}
		recs = append(recs, rec)
	})

	return recs, nil
}

func extractField(container *goquery.Selection, spec FieldSpec, base *url.URL) string {
	matches := container.Find(spec.Selector)
	if matches.Length() == 0 {
		return ""
	}

	var values []string
	if spec.Join != "" {
		matches.Each(func(_ int, s *goquery.Selection) {
			if v := fieldValue(s, spec, base); v != "" {
				values = append(values, v)
			}
		})
	} else {
		values = []string{fieldValue(matches.First(), spec, base)}
	}

	return strings.Join(values, spec.Join)
}

func fieldValue(s *goquery.Selection, spec FieldSpec, base *url.URL) string {
	var raw string
	if spec.Attr != "" {
		raw, _ = s.Attr(spec.Attr)
	} else {
		raw = s.Text()
	}
	raw = strings.TrimSpace(raw)

	if spec.Pattern != nil {
		m := spec.Pattern.FindStringSubmatch(raw)
		if len(m) < 2 {
			return ""
		}
		raw = m[1]
	}

	if spec.ResolveURL && base != nil && raw != "" {
		if ref, err := url.Parse(raw); err == nil {
			raw = base.ResolveReference(ref).String()
		}
	}

	return raw
}
