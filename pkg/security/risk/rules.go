package risk

import (
	"strings"
	"unicode"
)

// Category groups keywords of one kind of consequential action.
type Category string

const (
	CategoryPayment   Category = "payment"
	CategoryDelete    Category = "delete"
	CategorySend      Category = "send"
	CategorySensitive Category = "sensitive"
	CategoryAccount   Category = "account"
)

// categoryOrder fixes the order categories are checked in.
var categoryOrder = []Category{CategoryPayment, CategoryDelete, CategorySend, CategorySensitive, CategoryAccount}

// DefaultKeywords are matched at word starts against element labels, option
// values and typed text. Russian entries are word stems.
var DefaultKeywords = map[Category][]string{
	CategoryPayment: {
		"pay", "checkout", "buy", "order", "purchase",
		"оплат", "купить", "заказ", "плат", "покупк",
	},
	CategoryDelete: {
		"delete", "remove", "trash", "erase", "clear all", "remove all",
		"удал", "корзин", "уничтож", "очистить",
	},
	CategorySend: {
		"send", "submit", "publish", "post",
		"отправ", "опубликов", "отослать", "послать",
	},
	CategorySensitive: {
		"password", "card", "cvv", "cvc", "pin", "secret", "token", "key", "credentials",
		"пароль", "карт", "секрет", "ключ",
	},
	CategoryAccount: {
		"logout", "log out", "sign out", "delete account", "close account",
		"выход", "выйти", "аккаунт удал", "закрыть аккаунт",
	},
}

// DefaultURLPatterns are globs matched against the lower-cased URL to flag
// payment and order pages.
var DefaultURLPatterns = []string{
	"*checkout*", "*payment*", "*pay.*", "*order*", "*cart*",
	"*billing*", "*subscribe*", "*premium*",
}

// DefaultSensitiveFields are substrings of selectors and field attributes
// that mark an input as sensitive.
var DefaultSensitiveFields = []string{
	"password", "pass", "pwd", "secret",
	"card", "credit", "cvv", "cvc",
	"ssn", "social", "pin",
}

// containsWord reports whether keyword occurs in text starting at a word
// boundary. Both are expected lower-cased.
func containsWord(text, keyword string) bool {
	if keyword == "" {
		return false
	}
	offset := 0
	for {
		idx := strings.Index(text[offset:], keyword)
		if idx < 0 {
			return false
		}
		pos := offset + idx
		if pos == 0 {
			return true
		}
		prev := lastRune(text[:pos])
		if !unicode.IsLetter(prev) && !unicode.IsDigit(prev) {
			return true
		}
		offset = pos + len(keyword)
	}
}

func lastRune(s string) rune {
	r := []rune(s)
	if len(r) == 0 {
		return 0
	}
	return r[len(r)-1]
}

// matchCategory returns the first category whose keywords occur in text.
func (g *Gate) matchCategory(text string, only ...Category) (Category, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	lower := strings.ToLower(text)
	cats := categoryOrder
	if len(only) > 0 {
		cats = only
	}
	for _, cat := range cats {
		for _, kw := range g.keywords[cat] {
			if containsWord(lower, kw) {
				return cat, true
			}
		}
	}
	return "", false
}

func (g *Gate) isHighRiskURL(u string) bool {
	if u == "" {
		return false
	}
	lower := strings.ToLower(u)
	for _, p := range g.urlPatterns {
		if p.Match(lower) {
			return true
		}
	}
	return false
}

func (g *Gate) isSensitiveField(values ...string) bool {
	for _, v := range values {
		lower := strings.ToLower(v)
		if lower == "" {
			continue
		}
		for _, kw := range g.sensitiveFields {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}
