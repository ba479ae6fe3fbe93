package export

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/nerdneilsfield/legal-simplifier/pkg/simplify"
)

// renderDOCX 生成只包含正文部件的最小 DOCX 包
func renderDOCX(report simplify.FinalReport, meta Meta) ([]byte, error) {
	doc := WordDocument{XMLNSW: WordprocessingMLNamespace}
	doc.Body.Paragraphs = append(doc.Body.Paragraphs, headingParagraph(meta.Title, "32"))
	if meta.Source != "" {
		doc.Body.Paragraphs = append(doc.Body.Paragraphs, textParagraph("Source: "+meta.Source))
	}

	for _, section := range report.Sections() {
		if section.Title != "" {
			doc.Body.Paragraphs = append(doc.Body.Paragraphs, headingParagraph(section.Title, "26"))
		}
		for _, line := range strings.Split(section.Body, "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			doc.Body.Paragraphs = append(doc.Body.Paragraphs, textParagraph(line))
		}
	}

	documentXML, err := marshalPart(doc)
	if err != nil {
		return nil, err
	}
	contentTypesXML, err := marshalPart(ContentTypes{
		Namespace: ContentTypesNamespace,
		Defaults: []Default{
			{Extension: "rels", ContentType: relsContentType},
			{Extension: "xml", ContentType: "application/xml"},
		},
		Overrides: []Override{
			{PartName: "/word/document.xml", ContentType: documentContentType},
		},
	})
	if err != nil {
		return nil, err
	}
	relsXML, err := marshalPart(Relationships{
		Namespace: RelationshipsNamespace,
		Relationships: []Relationship{
			{ID: "rId1", Type: officeDocumentRelType, Target: "word/document.xml"},
		},
	})
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	parts := []struct {
		name string
		data []byte
	}{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", relsXML},
		{"word/document.xml", documentXML},
	}
	for _, p := range parts {
		w, err := zw.Create(p.name)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", p.name, err)
		}
		if _, err := w.Write(p.data); err != nil {
			return nil, fmt.Errorf("write %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func marshalPart(v interface{}) ([]byte, error) {
	b, err := xml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal docx part: %w", err)
	}
	return append([]byte(xml.Header), b...), nil
}

func headingParagraph(text, size string) Paragraph {
	return Paragraph{
		Properties: &ParagraphProps{Spacing: &ParagraphSpacing{Before: "240", After: "120"}},
		Runs: []Run{{
			Properties: &RunProps{Bold: &ValAttr{}, Size: &ValAttr{Val: size}},
			Text:       &Text{Text: text, Space: "preserve"},
		}},
	}
}

func textParagraph(text string) Paragraph {
	return Paragraph{
		Runs: []Run{{Text: &Text{Text: text, Space: "preserve"}}},
	}
}
