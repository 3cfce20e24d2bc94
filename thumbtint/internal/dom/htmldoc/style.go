package htmldoc

import (
	"strings"

	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
)

type declarations []*css.Declaration

// parseStyle reads an inline style attribute. Like a browser, it drops
// declarations that do not parse and keeps the rest.
func parseStyle(s string) declarations {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if decls, err := parser.ParseDeclarations(s); err == nil {
		return decls
	}
	var out declarations
	for _, part := range splitDeclarations(s) {
		if strings.TrimSpace(part) == "" {
			continue
		}
		decls, err := parser.ParseDeclarations(part)
		if err != nil {
			continue
		}
		out = append(out, decls...)
	}
	return out
}

// splitDeclarations splits on semicolons outside quotes and parentheses,
// so data: URLs stay whole.
func splitDeclarations(s string) []string {
	var (
		parts []string
		quote byte
		depth int
		start int
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
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
			depth++
		case c == ')' && depth > 0:
			depth--
		case c == ';' && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

// get returns the last value declared for property, as the cascade would.
func (ds declarations) get(property string) string {
	property = strings.ToLower(property)
	for i := len(ds) - 1; i >= 0; i-- {
		if strings.ToLower(ds[i].Property) == property {
			return ds[i].Value
		}
	}
	return ""
}

// set replaces property in place or appends it. An empty value removes it.
func (ds declarations) set(property, value string) declarations {
	lower := strings.ToLower(property)
	out := ds[:0:0]
	replaced := value == ""
	for _, d := range ds {
		if strings.ToLower(d.Property) != lower {
			out = append(out, d)
			continue
		}
		if !replaced {
			out = append(out, &css.Declaration{Property: property, Value: value})
			replaced = true
		}
	}
	if !replaced {
		out = append(out, &css.Declaration{Property: property, Value: value})
	}
	return out
}

func (ds declarations) String() string {
	parts := make([]string, 0, len(ds))
	for _, d := range ds {
		v := d.Value
		if d.Important {
			v += " !important"
		}
		parts = append(parts, d.Property+": "+v)
	}
	return strings.Join(parts, "; ")
}
