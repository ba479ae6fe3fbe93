package export

import (
	"encoding/xml"
)

// DOCX XML Namespaces
const (
	WordprocessingMLNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	RelationshipsNamespace    = "http://schemas.openxmlformats.org/package/2006/relationships"
	ContentTypesNamespace     = "http://schemas.openxmlformats.org/package/2006/content-types"
	officeDocumentRelType     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	documentContentType       = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
	relsContentType           = "application/vnd.openxmlformats-package.relationships+xml"
)

// WordDocument represents the main document.xml structure
type WordDocument struct {
	XMLName xml.Name `xml:"w:document"`
	XMLNSW  string   `xml:"xmlns:w,attr"`
	Body    Body     `xml:"w:body"`
}

// Body represents the document body
type Body struct {
	Paragraphs []Paragraph `xml:"w:p"`
}

// Paragraph represents a paragraph element
type Paragraph struct {
	Properties *ParagraphProps `xml:"w:pPr,omitempty"`
	Runs       []Run           `xml:"w:r"`
}

// ParagraphProps represents paragraph properties
type ParagraphProps struct {
	Spacing *ParagraphSpacing `xml:"w:spacing,omitempty"`
	Align   *ValAttr          `xml:"w:jc,omitempty"`
}

// ParagraphSpacing represents paragraph spacing
type ParagraphSpacing struct {
	After  string `xml:"w:after,attr,omitempty"`
	Before string `xml:"w:before,attr,omitempty"`
}

// Run represents a text run
type Run struct {
	Properties *RunProps `xml:"w:rPr,omitempty"`
	Text       *Text     `xml:"w:t,omitempty"`
}

// RunProps represents run properties
type RunProps struct {
	Bold *ValAttr `xml:"w:b,omitempty"`
	Size *ValAttr `xml:"w:sz,omitempty"`
}

// ValAttr 只有 w:val 属性的元素
type ValAttr struct {
	Val string `xml:"w:val,attr,omitempty"`
}

// Text represents actual text content
type Text struct {
	Space string `xml:"http://www.w3.org/XML/1998/namespace space,attr,omitempty"`
	Text  string `xml:",chardata"`
}

// ContentTypes represents [Content_Types].xml
type ContentTypes struct {
	XMLName   xml.Name   `xml:"Types"`
	Namespace string     `xml:"xmlns,attr"`
	Defaults  []Default  `xml:"Default"`
	Overrides []Override `xml:"Override"`
}

// Default represents a default content type
type Default struct {
	Extension   string `xml:"Extension,attr"`
	ContentType string `xml:"ContentType,attr"`
}

// Override represents an override content type
type Override struct {
	PartName    string `xml:"PartName,attr"`
	ContentType string `xml:"ContentType,attr"`
}

// Relationships represents relationships
type Relationships struct {
	XMLName       xml.Name       `xml:"Relationships"`
	Namespace     string         `xml:"xmlns,attr"`
	Relationships []Relationship `xml:"Relationship"`
}

// Relationship represents a relationship
type Relationship struct {
	ID     string `xml:"Id,attr"`
	Type   string `xml:"Type,attr"`
	Target string `xml:"Target,attr"`
}
