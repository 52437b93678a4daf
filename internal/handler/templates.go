package handler

import (
	"fmt"
	"html/template"
	"time"

	"github.com/DukeRupert/proforma/internal/csrf"
	"github.com/DukeRupert/proforma/internal/domain"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TemplateFuncs returns a FuncMap with custom template functions
func TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"add": func(a, b int) int {
			return a + b
		},
		"year": func() int {
			return time.Now().Year()
		},

		// String functions
		"title": func(v interface{}) string {
			return cases.Title(language.English).String(fmt.Sprint(v))
		},
		"upper": func(v interface{}) string {
			return cases.Upper(language.English).String(fmt.Sprint(v))
		},
		"orNA": domain.OrNA,
		"currency": func() string {
			return domain.CurrencySymbol
		},

		// Conditional/Logic functions
		"ternary": func(condition bool, trueVal, falseVal interface{}) interface{} {
			if condition {
				return trueVal
			}
			return falseVal
		},
		"default": func(defaultVal, val interface{}) interface{} {
			if val == nil || val == "" || val == 0 {
				return defaultVal
			}
			return val
		},

		// Form helpers
		"csrfField": func(token string) template.HTML {
			return template.HTML(fmt.Sprintf(`<input type="hidden" name="%s" value="%s">`,
				csrf.FormFieldName, template.HTMLEscapeString(token)))
		},
		"flashClass": func(kind string) string {
			switch kind {
			case "success", "error":
				return "flash-" + kind
			default:
				return "flash-info"
			}
		},
	}
}
