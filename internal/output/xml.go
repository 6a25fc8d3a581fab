// Package output implements the three presentation formats: human text,
// XML for machine consumption, and JSON for scripts. Escaping happens at
// the boundary here, never inside the data that commands assemble.
package output

import (
	"strings"
)

// XMLHeader starts every emitted XML document.
const XMLHeader = `<?xml version="1.0" encoding="UTF-8"?>`

// Elem is a buildable XML element. Attribute and child order is the
// insertion order, so documents are stable across runs.
type Elem struct {
	name     string
	attrs    []xmlAttr
	children []*Elem
	text     string
	cdata    bool
	hasText  bool
}

type xmlAttr struct {
	key, value string
}

// NewElem creates an element with the given tag name.
func NewElem(name string) *Elem {
	return &Elem{name: name}
}

// Attr adds an attribute. The value is entity-escaped on render.
func (e *Elem) Attr(key, value string) *Elem {
	e.attrs = append(e.attrs, xmlAttr{key, value})
	return e
}

// Text sets entity-escaped element text.
func (e *Elem) Text(s string) *Elem {
	e.text, e.cdata, e.hasText = s, false, true
	return e
}

// CDATA sets the element text to be emitted as a CDATA section.
func (e *Elem) CDATA(s string) *Elem {
	e.text, e.cdata, e.hasText = s, true, true
	return e
}

// Child appends a child element and returns it.
func (e *Elem) Child(name string) *Elem {
	c := NewElem(name)
	e.children = append(e.children, c)
	return c
}

// ChildText appends a child holding entity-escaped text.
func (e *Elem) ChildText(name, s string) *Elem {
	e.Child(name).Text(s)
	return e
}

// ChildCDATA appends a child holding a CDATA section.
func (e *Elem) ChildCDATA(name, s string) *Elem {
	e.Child(name).CDATA(s)
	return e
}

// Append attaches an already-built element.
func (e *Elem) Append(c *Elem) *Elem {
	e.children = append(e.children, c)
	return e
}

// Render serializes the element as a complete document, header included.
func (e *Elem) Render() string {
	var b strings.Builder
	b.WriteString(XMLHeader)
	b.WriteByte('\n')
	e.render(&b, 0)
	return b.String()
}

func (e *Elem) render(b *strings.Builder, depth int) {
	indent := strings.Repeat("  ", depth)
	b.WriteString(indent)
	b.WriteByte('<')
	b.WriteString(e.name)
	for _, a := range e.attrs {
		b.WriteByte(' ')
		b.WriteString(a.key)
		b.WriteString(`="`)
		b.WriteString(EscapeXML(a.value))
		b.WriteByte('"')
	}
	if !e.hasText && len(e.children) == 0 {
		b.WriteString("/>\n")
		return
	}
	b.WriteByte('>')
	if e.hasText {
		if e.cdata {
			b.WriteString("<![CDATA[")
			b.WriteString(NeutralizeCDATA(e.text))
			b.WriteString("]]>")
		} else {
			b.WriteString(EscapeXML(e.text))
		}
	}
	if len(e.children) > 0 {
		b.WriteByte('\n')
		for _, c := range e.children {
			c.render(b, depth+1)
		}
		b.WriteString(indent)
	}
	b.WriteString("</")
	b.WriteString(e.name)
	b.WriteString(">\n")
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// EscapeXML entity-escapes text for use in attribute values or element text.
func EscapeXML(s string) string {
	return xmlEscaper.Replace(s)
}

// NeutralizeCDATA makes s safe inside a CDATA section by rewriting the
// closing sequence. Without this a value containing "]]>" would terminate
// the section early.
func NeutralizeCDATA(s string) string {
	return strings.ReplaceAll(s, "]]>", "]]&gt;")
}

// XMLError renders the uniform error envelope in XML.
func XMLError(msg string) string {
	root := NewElem("result")
	root.ChildText("status", "error")
	root.ChildCDATA("error", msg)
	return root.Render()
}
