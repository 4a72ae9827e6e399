package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"unicode"
)

// ExtractDocText extracts plain text from a Word document. A .docx is a zip
// archive holding word/document.xml; a legacy .doc is an opaque binary from
// which only printable runs can be salvaged.
func ExtractDocText(content []byte, pageURL string) (string, error) {
	if text, err := extractDocxText(content); err == nil {
		return text, nil
	}
	if strings.HasSuffix(strings.ToLower(pageURL), ".docx") {
		return "", fmt.Errorf("docx archive unreadable")
	}

	text := salvagePrintableText(content)
	if text == "" {
		return "", fmt.Errorf("doc contains no extractable text")
	}
	return text, nil
}

func extractDocxText(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}

	var docXML io.ReadCloser
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docXML, err = f.Open()
			if err != nil {
				return "", err
			}
			break
		}
	}
	if docXML == nil {
		return "", fmt.Errorf("word/document.xml missing")
	}
	defer docXML.Close()

	decoder := xml.NewDecoder(docXML)
	var builder strings.Builder
	var inText bool

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			if el.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				builder.WriteString("\n")
			case "tab":
				builder.WriteString(" ")
			}
		case xml.CharData:
			if inText {
				builder.Write(el)
			}
		}
	}

	text := NormalizeText(builder.String())
	if text == "" {
		return "", fmt.Errorf("document.xml contains no text")
	}
	return text, nil
}

// salvagePrintableText pulls readable runs out of a legacy .doc binary.
// Crude, but closing dates are short labeled strings and usually survive.
func salvagePrintableText(content []byte) string {
	var builder strings.Builder
	var run []rune

	flush := func() {
		if len(run) >= 8 {
			builder.WriteString(string(run))
			builder.WriteString("\n")
		}
		run = run[:0]
	}

	for _, b := range content {
		r := rune(b)
		if r == '\r' || r == '\n' {
			flush()
			continue
		}
		if r < 0x20 || r > 0x7e || !unicode.IsPrint(r) {
			flush()
			continue
		}
		run = append(run, r)
	}
	flush()

	return NormalizeText(builder.String())
}
