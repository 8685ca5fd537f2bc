package golisp

import (
	"fmt"
	"strings"
)

// stringEscaper renders the full C-style escape set spec.md §4.4/§6 uses
// for reader round-tripping, generalized from the teacher's
// tree_printer.go literalSanitizer (which only escaped the subset a
// grammar's own literal syntax needs).
var stringEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	`'`, `\'`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
	"\f", `\f`,
	"\b", `\b`,
)

func escapeString(s string) string {
	return stringEscaper.Replace(s)
}

// Display renders v in user-facing form: strings unquoted.
func Display(v Value) string {
	var b strings.Builder
	writeValue(&b, v, false)
	return b.String()
}

// ReadableString renders v in round-trippable form: strings quoted with
// escapes preserved, satisfying read(readable_print(v)) = v for Int,
// String, Symbol, and proper Cons (testable property 2).
func ReadableString(v Value) string {
	var b strings.Builder
	writeValue(&b, v, true)
	return b.String()
}

func writeValue(b *strings.Builder, v Value, readable bool) {
	switch x := v.(type) {
	case *Symbol:
		b.WriteString(x.Name)
	case *Int:
		fmt.Fprintf(b, "%d", x.Val)
	case *String:
		if readable {
			b.WriteByte('"')
			b.WriteString(escapeString(x.Val))
			b.WriteByte('"')
		} else {
			b.WriteString(x.Val)
		}
	case *Cons:
		writeCons(b, x, readable)
	case *Procedure:
		b.WriteString("#<procedure>")
	case *BuiltinProc:
		fmt.Fprintf(b, "#<builtin %s>", x.Name)
	case *Macro:
		b.WriteString("#<macro>")
	case *SpecialForm:
		fmt.Fprintf(b, "#<special-form %s>", x.Name)
	default:
		b.WriteString("#<unknown>")
	}
}

// writeCons prints a list in parenthesized form, eliding a proper list's
// nil terminator and falling back to dotted notation for an improper tail.
func writeCons(b *strings.Builder, c *Cons, readable bool) {
	b.WriteByte('(')
	writeValue(b, c.Car, readable)
	rest := c.Cdr
	for {
		if IsNil(rest) {
			break
		}
		if rc, ok := rest.(*Cons); ok {
			b.WriteByte(' ')
			writeValue(b, rc.Car, readable)
			rest = rc.Cdr
			continue
		}
		b.WriteString(" . ")
		writeValue(b, rest, readable)
		break
	}
	b.WriteByte(')')
}
