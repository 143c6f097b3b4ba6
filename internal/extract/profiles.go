package extract

import "regexp"

var (
	priceValuePattern = regexp.MustCompile(`(\d+(?:[,.]\d+)?)`)
	starRatingPattern = regexp.MustCompile(`star-rating\s+(\w+)`)
)

// Built-in profiles for the toscrape.com practice sites. The quotes site
// renders its listing with JavaScript, which is what makes the explicit
// waits necessary in the first place.
var builtinProfiles = map[string]Profile{
	"quotes": {
		Name:      "quotes",
		Container: ".quote",
		Ready:     ".quote",
		Next:      "li.next > a",
		Fields: []FieldSpec{
			{Name: "text", Selector: "span.text"},
			{Name: "author", Selector: "small.author"},
			{Name: "tags", Selector: "a.tag", Join: ", "},
		},
	},
	"books": {
		Name:      "books",
		Container: "article.product_pod",
		Ready:     "article.product_pod",
		Next:      "li.next > a",
		Fields: []FieldSpec{
			{Name: "title", Selector: "h3 a", Attr: "title"},
			{Name: "price", Selector: ".price_color", Pattern: priceValuePattern},
			{Name: "rating", Selector: "p.star-rating", Attr: "class", Pattern: starRatingPattern},
			{Name: "link", Selector: "h3 a", Attr: "href", ResolveURL: true},
		},
	},
}

// BuiltinProfile looks up a named profile shipped with the binary.
func BuiltinProfile(name string) (Profile, bool) {
	p, ok := builtinProfiles[name]
	return p, ok
}

// ProfileNames lists the available built-in profile names.
func ProfileNames() []string {
	names := make([]string, 0, len(builtinProfiles))
	for name := range builtinProfiles {
		names = append(names, name)
	}
	return names
}
