package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor reads the text layer of a PDF. Scanned PDFs without a
// text layer produce no text and fail as a read failure.
type PDFExtractor struct{}

var _ Extractor = (*PDFExtractor)(nil)

func (PDFExtractor) Extract(_ context.Context, path string) (text string, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = ReadFailureError(path, "malformed PDF", fmt.Errorf("%v", r))
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", ReadFailureError(path, "cannot open PDF", err)
	}
	defer func() { _ = f.Close() }()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", ReadFailureError(path, "cannot read PDF text", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", ReadFailureError(path, "cannot read PDF text", err)
	}
	return buf.String(), nil
}
