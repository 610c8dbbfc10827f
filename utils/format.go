// Package utils provides utility functions for the application.
package utils

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var languageTags = map[string]language.Tag{
	"ar": language.Arabic,
	"en": language.English,
}

var arabicMonths = [12]string{
	"يناير", "فبراير", "مارس", "أبريل", "مايو", "يونيو",
	"يوليو", "أغسطس", "سبتمبر", "أكتوبر", "نوفمبر", "ديسمبر",
}

// FormatAmount renders a money amount with locale-aware digits and
// separators, followed by the ISO currency code.
func FormatAmount(amount decimal.Decimal, currency, lang string) string {
	tag, ok := languageTags[lang]
	if !ok {
		tag = language.English
	}
	p := message.NewPrinter(tag)
	f, _ := amount.Round(2).Float64()
	return p.Sprintf("%.2f %s", f, currency)
}

// FormatRate renders a percentage rate for the given language.
func FormatRate(rate decimal.Decimal, lang string) string {
	tag, ok := languageTags[lang]
	if !ok {
		tag = language.English
	}
	p := message.NewPrinter(tag)
	f, _ := rate.Float64()
	return p.Sprintf("%v%%", f)
}

// FormatDate renders a date in the invoice's language.
func FormatDate(t time.Time, lang string) string {
	if lang == "ar" {
		return fmt.Sprintf("%d %s %d", t.Day(), arabicMonths[t.Month()-1], t.Year())
	}
	return t.Format("02 Jan 2006")
}
