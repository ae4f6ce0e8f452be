package gen

import (
	"go/token"
	"strings"
	"sync"
	"unicode"

	"github.com/go-openapi/inflect"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	rules    = ruleset()
	acronyms = make(map[string]struct{})
	// acronymMu guards acronyms against AddAcronym during generation.
	acronymMu sync.RWMutex
)

func ruleset() *inflect.Ruleset {
	rules := inflect.NewDefaultRuleset()
	// Common initialisms from golint and more.
	for _, w := range []string{
		"ACL", "API", "ASCII", "AWS", "CPU", "CSS", "DNS", "EOF", "GB", "GUID",
		"HTML", "HTTP", "HTTPS", "ID", "IP", "JSON", "KB", "LHS", "MAC", "MB",
		"QPS", "RAM", "RHS", "RPC", "SKU", "SLA", "SMTP", "SQL", "SSH", "SSO",
		"TCP", "TLS", "TTL", "UDP", "UI", "UID", "URI", "URL", "UTF8", "UUID",
		"VAT", "VM", "XML", "XMPP", "XSRF", "XSS",
	} {
		acronyms[w] = struct{}{}
		rules.AddAcronym(w)
	}
	return rules
}

// AddAcronym registers an initialism that identifiers keep upper cased.
func AddAcronym(word string) {
	acronymMu.Lock()
	defer acronymMu.Unlock()
	upper := strings.ToUpper(word)
	acronyms[upper] = struct{}{}
	rules.AddAcronym(upper)
}

func isAcronym(w string) bool {
	acronymMu.RLock()
	defer acronymMu.RUnlock()
	_, ok := acronyms[strings.ToUpper(w)]
	return ok
}

// stripMarks removes combining marks after canonical decomposition, so that
// "Café" becomes "Cafe".
var stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// words splits a human name into lower-cased words. Non alphanumeric runes
// separate words, and so do case changes ("LineItem", "HTTPCode").
func words(name string) []string {
	if s, _, err := transform.String(stripMarks, name); err == nil {
		name = s
	}
	var out []string
	for _, part := range strings.FieldsFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		for _, w := range strings.Split(snake(part), "_") {
			if w != "" {
				out = append(out, w)
			}
		}
	}
	return out
}

// AsType converts a human name to an exported type identifier.
//
//	AsType("line item") // LineItem
//	AsType("http_code") // HTTPCode
//	AsType("Café")      // Cafe
func AsType(name string) string {
	ws := words(name)
	if len(ws) == 0 {
		return "X"
	}
	s := pascalWords(ws)
	if !unicode.IsLetter(rune(s[0])) {
		s = "X" + s
	}
	return s
}

// AsIdent converts a human name to an unexported value identifier. Go
// keywords get a trailing underscore.
//
//	AsIdent("Line Item") // lineItem
//	AsIdent("type")      // type_
func AsIdent(name string) string {
	ws := words(name)
	if len(ws) == 0 {
		return "x"
	}
	s := ws[0] + pascalWords(ws[1:])
	if !unicode.IsLetter(rune(s[0])) {
		s = "x" + s
	}
	if token.Lookup(s).IsKeyword() {
		s += "_"
	}
	return s
}

func pascalWords(words []string) string {
	var b strings.Builder
	for _, w := range words {
		if isAcronym(w) {
			b.WriteString(strings.ToUpper(w))
			continue
		}
		b.WriteString(rules.Capitalize(w))
	}
	return b.String()
}

// snake converts the given struct or field name into a snake_case.
//
//	Username => username
//	FullName => full_name
//	HTTPCode => http_code
func snake(s string) string {
	var (
		j int
		b strings.Builder
	)
	rs := []rune(s)
	for i := 0; i < len(rs); i++ {
		r := rs[i]
		// Put '_' if it is not a start or end of a word, current letter is
		// uppercase, and previous is lowercase (cases like: "UserInfo"), or
		// next letter is also a lowercase and previous letter is not "_".
		if i > 0 && i < len(rs)-1 && unicode.IsUpper(r) {
			if unicode.IsLower(rs[i-1]) || unicode.IsDigit(rs[i-1]) ||
				j != i-1 && unicode.IsLower(rs[i+1]) && unicode.IsLetter(rs[i-1]) {
				j = i
				b.WriteString("_")
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// kebab converts a name to kebab-case, as used in scope tags.
func kebab(s string) string {
	return strings.Join(words(s), "-")
}

// receiver returns the receiver name of the given type.
//
//	[]T       => t
//	[1]T      => t
//	User      => u
//	UserQuery => uq
func receiver(s string) string {
	// Trim invalid tokens for identifier prefix.
	s = strings.Trim(s, "[]*&0123456789")
	var b strings.Builder
	for _, w := range strings.Split(snake(s), "_") {
		if w != "" {
			b.WriteString(w[:1])
		}
	}
	name := b.String()
	if name == "" {
		name = "r"
	}
	if token.Lookup(name).IsKeyword() {
		name = "_" + name
	}
	return name
}

// plural a name.
func plural(name string) string {
	p := rules.Pluralize(name)
	if p == name {
		p += "Slice"
	}
	return p
}
