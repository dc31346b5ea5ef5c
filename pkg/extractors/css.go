package extractors

import (
	"strings"
)

// cssRule is one style rule or @font-face block. Selector is lowercased.
type cssRule struct {
	Selector string
	AtRule   string
	Decls    []cssDecl
}

type cssDecl struct {
	Property string
	Value    string
}

// groupingAtRules contain nested style rules that still apply to the page.
var groupingAtRules = map[string]bool{
	"media":     true,
	"supports":  true,
	"layer":     true,
	"document":  true,
	"container": true,
}

// parseCSS tokenizes a style sheet into flat rules. It is deliberately
// forgiving: unbalanced input yields whatever rules were complete.
func parseCSS(css string) []cssRule {
	return parseRules(stripComments(css))
}

func parseRules(css string) []cssRule {
	var rules []cssRule
	pos := 0
	for pos < len(css) {
		open, terminator := nextPreludeEnd(css, pos)
		if open < 0 {
			break
		}
		prelude := strings.TrimSpace(css[pos:open])
		if terminator == ';' {
			// Block-less at-rule such as @import or @charset.
			pos = open + 1
			continue
		}

		end := matchingBrace(css, open)
		body := css[open+1 : end]
		pos = end + 1
		if end >= len(css) {
			pos = len(css)
		}

		if strings.HasPrefix(prelude, "@") {
			name := strings.ToLower(strings.TrimPrefix(firstWord(prelude), "@"))
			switch {
			case groupingAtRules[name]:
				rules = append(rules, parseRules(body)...)
			case name == "font-face":
				rules = append(rules, cssRule{AtRule: "font-face", Decls: parseDecls(body)})
			}
			continue
		}

		if prelude == "" {
			continue
		}
		rules = append(rules, cssRule{
			Selector: strings.ToLower(strings.Join(strings.Fields(prelude), " ")),
			Decls:    parseDecls(body),
		})
	}
	return rules
}

// cssImports returns the targets of @import statements in css.
func cssImports(css string) []string {
	var targets []string
	css = stripComments(css)
	for {
		idx := strings.Index(strings.ToLower(css), "@import")
		if idx < 0 {
			return targets
		}
		css = css[idx+len("@import"):]
		end := strings.IndexByte(css, ';')
		if end < 0 {
			end = len(css)
		}
		stmt := strings.TrimSpace(css[:end])
		css = css[end:]

		if strings.HasPrefix(strings.ToLower(stmt), "url(") {
			if paren := strings.IndexByte(stmt, ')'); paren > 0 {
				stmt = stmt[4:paren]
			}
		} else if fields := strings.Fields(stmt); len(fields) > 0 {
			stmt = fields[0]
		}
		if target := trimQuotes(stmt); target != "" {
			targets = append(targets, target)
		}
	}
}

func stripComments(css string) string {
	var b strings.Builder
	b.Grow(len(css))
	for {
		start := strings.Index(css, "/*")
		if start < 0 {
			b.WriteString(css)
			return b.String()
		}
		b.WriteString(css[:start])
		end := strings.Index(css[start+2:], "*/")
		if end < 0 {
			return b.String()
		}
		css = css[start+2+end+2:]
	}
}

// nextPreludeEnd finds the '{' or ';' that ends the prelude starting at pos,
// skipping quoted strings.
func nextPreludeEnd(css string, pos int) (int, byte) {
	var quote byte
	for i := pos; i < len(css); i++ {
		c := css[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '{' || c == ';':
			return i, c
		}
	}
	return -1, 0
}

// matchingBrace returns the index of the '}' closing the '{' at open, or
// len(css) when the block is unterminated.
func matchingBrace(css string, open int) int {
	depth := 0
	var quote byte
	for i := open; i < len(css); i++ {
		c := css[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return len(css)
}

// parseDecls splits a declaration block on ';' outside quotes and parentheses.
func parseDecls(body string) []cssDecl {
	var decls []cssDecl
	var quote byte
	parens := 0
	start := 0
	flush := func(end int) {
		part := body[start:end]
		if colon := strings.IndexByte(part, ':'); colon > 0 {
			prop := strings.ToLower(strings.TrimSpace(part[:colon]))
			value := strings.TrimSpace(part[colon+1:])
			value = strings.TrimSpace(strings.TrimSuffix(value, "!important"))
			if prop != "" && value != "" {
				decls = append(decls, cssDecl{Property: prop, Value: value})
			}
		}
	}
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(':
			parens++
		case c == ')':
			if parens > 0 {
				parens--
			}
		case c == ';' && parens == 0:
			flush(i)
			start = i + 1
		}
	}
	if start < len(body) {
		flush(len(body))
	}
	return decls
}

// parseStyleAttr parses an inline style attribute.
func parseStyleAttr(style string) []cssDecl {
	return parseDecls(style)
}

// selectorParts splits a selector group on commas.
func selectorParts(selector string) []string {
	parts := strings.Split(selector, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// lastCompound returns the rightmost compound selector of a complex selector,
// e.g. "header .nav > a:hover" -> "a:hover".
func lastCompound(selector string) string {
	selector = strings.NewReplacer(">", " ", "+", " ", "~", " ").Replace(selector)
	fields := strings.Fields(selector)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// compoundTag returns the element name of a compound selector, if any.
func compoundTag(compound string) string {
	end := strings.IndexAny(compound, ".#[:")
	if end < 0 {
		end = len(compound)
	}
	return compound[:end]
}

func firstWord(s string) string {
	if fields := strings.Fields(s); len(fields) > 0 {
		end := strings.IndexAny(fields[0], "({")
		if end > 0 {
			return fields[0][:end]
		}
		return fields[0]
	}
	return ""
}

func trimQuotes(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	return strings.TrimSpace(s)
}
