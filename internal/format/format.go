package format

import (
	"math"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Currency formats an amount given in minor units, e.g. Currency(189900, "COP", "es") => "$ 189.900".
// Minor digits follow CLDR except for currencies priced in whole units locally.
func Currency(minor int64, code, lang string) string {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		unit = pesos
	}
	tag := tagFor(lang)
	scale := minorDigits(unit)

	amount := float64(minor)
	if scale > 0 {
		amount = amount / math.Pow10(scale)
	}

	p := message.NewPrinter(tag)
	sym := symbol(unit, tag)
	formatted := p.Sprint(number.Decimal(amount, number.Scale(scale)))
	if strings.HasPrefix(formatted, "-") {
		return "-" + sym + " " + strings.TrimPrefix(formatted, "-")
	}
	return sym + " " + formatted
}

// MajorUnits converts minor units to whole currency units, dropping any fraction.
func MajorUnits(minor int64, code string) int64 {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		unit = pesos
	}
	scale := minorDigits(unit)
	for i := 0; i < scale; i++ {
		minor /= 10
	}
	return minor
}

// wholeUnit lists currencies the catalog prices without minor units. CLDR
// still reports two digits for COP.
var (
	pesos     = currency.MustParseISO("COP")
	wholeUnit = map[currency.Unit]bool{
		pesos:                        true,
		currency.MustParseISO("CLP"): true,
		currency.JPY:                 true,
	}
)

func minorDigits(unit currency.Unit) int {
	if wholeUnit[unit] {
		return 0
	}
	scale, _ := currency.Standard.Rounding(unit)
	return scale
}

func symbol(unit currency.Unit, tag language.Tag) string {
	s := message.NewPrinter(tag).Sprint(currency.NarrowSymbol(unit.Amount(0)))
	// the amount renders after the symbol; keep only the symbol part
	if i := strings.IndexAny(s, "0123456789"); i > 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func tagFor(lang string) language.Tag {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "en":
		return language.AmericanEnglish
	case "", "es":
		return language.MustParse("es-CO")
	default:
		tag, err := language.Parse(lang)
		if err != nil {
			return language.MustParse("es-CO")
		}
		return tag
	}
}

// DecodeString returns the text content of an HTML fragment with entities decoded,
// e.g. "Tac&oacute;n <b>alto</b>" => "Tacón alto". Block-level boundaries become spaces.
func DecodeString(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if isBreak(string(name)) {
				b.WriteByte(' ')
			}
		}
	}
}

func isBreak(tag string) bool {
	switch tag {
	case "br", "p", "div", "li", "ul", "ol", "h1", "h2", "h3", "h4", "h5", "h6", "tr", "td":
		return true
	}
	return false
}
