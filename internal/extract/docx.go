package extract

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

// DOCXExtractor reads the paragraphs of a Word (.docx) document.
type DOCXExtractor struct{}

var _ Extractor = (*DOCXExtractor)(nil)

const docxBody = "word/document.xml"

func (DOCXExtractor) Extract(ctx context.Context, path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", ReadFailureError(path, "not a valid .docx archive", err)
	}
	defer func() { _ = zr.Close() }()

	for _, f := range zr.File {
		if f.Name != docxBody {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", ReadFailureError(path, "cannot open document body", err)
		}
		defer func() { _ = rc.Close() }()

		text, err := docxText(ctx, rc)
		if err != nil {
			return "", ReadFailureError(path, "invalid document body", err)
		}
		return text, nil
	}
	return "", ReadFailureError(path, "missing "+docxBody, nil)
}

// docxText walks WordprocessingML: <w:t> holds text, <w:tab/> and <w:br/>
// are whitespace, and each closing </w:p> ends a paragraph.
func docxText(ctx context.Context, r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var sb strings.Builder
	inText := false

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				sb.WriteByte('\t')
			case "br", "cr":
				sb.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
