package schema

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxIdentifierLen is the Postgres identifier limit; the other backends
// accept at least as much.
const MaxIdentifierLen = 63

// InferTableName derives a plural PascalCase table name from the first
// id-like key ("user_id" or "userId" gives "Users"). Keys that are exactly
// "id" carry no entity name and are skipped. fallback is returned when no
// key qualifies.
func InferTableName(keys []string, fallback string) string {
	for _, k := range keys {
		base, ok := idBase(k)
		if !ok {
			continue
		}
		if name := pluralize(PascalCase(base)); name != "" {
			return name
		}
	}
	return fallback
}

func idBase(key string) (string, bool) {
	lower := strings.ToLower(key)
	switch {
	case lower == "id":
		return "", false
	case strings.HasSuffix(lower, "_id"):
		return key[:len(key)-3], true
	case strings.HasSuffix(key, "Id") || strings.HasSuffix(key, "ID"):
		return key[:len(key)-2], true
	}
	return "", false
}

func pluralize(s string) string {
	s = strings.TrimSuffix(s, "s")
	if s == "" {
		return ""
	}
	return s + "s"
}

// PascalCase turns "order_item", "order-item" or "orderItem" into
// "OrderItem". Characters other than letters and digits separate words.
func PascalCase(s string) string {
	// Casers are stateful; build one per call.
	title := cases.Title(language.Und, cases.NoLower)
	var b strings.Builder
	for _, w := range splitWords(s) {
		b.WriteString(title.String(w))
	}
	return b.String()
}

func splitWords(s string) []string {
	var (
		words []string
		cur   []rune
		prev  rune
	)
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			prev = 0
			continue
		}
		if unicode.IsUpper(r) && prev != 0 && unicode.IsLower(prev) {
			flush()
		}
		cur = append(cur, r)
		prev = r
	}
	flush()
	return words
}

var foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeIdentifier converts arbitrary text into a lowercase
// [a-z0-9_] identifier suitable for table and column names. Accents are
// folded ("Příjmení" becomes "prijmeni") and the result is truncated to
// MaxIdentifierLen bytes.
func NormalizeIdentifier(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if folded, _, err := transform.String(foldDiacritics, s); err == nil {
		s = folded
	}
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))

	lastUnderscore := false
	for _, r := range s {
		if r == ' ' || r == '-' || r == '.' || r == '/' || r == '\\' || r == ':' || r == ';' {
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
			continue
		}
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
			lastUnderscore = r == '_'
		}
	}

	return TruncateIdentifier(strings.Trim(b.String(), "_"))
}

// TruncateIdentifier cuts s to MaxIdentifierLen bytes on a UTF-8 boundary.
func TruncateIdentifier(s string) string {
	if len(s) <= MaxIdentifierLen {
		return s
	}
	cut := MaxIdentifierLen
	for cut > 0 && !utf8.ValidString(s[:cut]) {
		cut--
	}
	if cut == 0 {
		return s[:MaxIdentifierLen]
	}
	return s[:cut]
}
