package store

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sort"

	docerrors "github.com/Aman-CERP/docsearch/internal/errors"
)

// Documents file layout (little endian), strings are u32 length + bytes:
//
//	magic "DSDC" | version u32 | count u64 |
//	count * ( id u64 | text | label | pairs u32 | pairs * (key | value) )
//
// Metadata keys are written sorted so equal stores encode identically.
const (
	documentsMagic   uint32 = 0x43445344
	documentsVersion uint32 = 1

	// maxStringLen guards against allocating from a corrupt length prefix.
	maxStringLen = 1 << 30
)

// SaveDocuments writes the document list atomically.
func SaveDocuments(path string, docs []Document) error {
	return writeFileAtomic(path, func(w io.Writer) error {
		return encodeDocuments(w, docs)
	})
}

func encodeDocuments(w io.Writer, docs []Document) error {
	enc := &recordWriter{w: w}
	enc.u32(documentsMagic)
	enc.u32(documentsVersion)
	enc.u64(uint64(len(docs)))

	for _, doc := range docs {
		enc.u64(doc.ID)
		enc.str(doc.Text)
		enc.str(doc.Label)

		keys := make([]string, 0, len(doc.Metadata))
		for k := range doc.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		enc.u32(uint32(len(keys)))
		for _, k := range keys {
			enc.str(k)
			enc.str(doc.Metadata[k])
		}
	}
	if enc.err != nil {
		return fmt.Errorf("write documents: %w", enc.err)
	}
	return nil
}

// LoadDocuments reads a document list written by SaveDocuments.
func LoadDocuments(path string) ([]Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open documents file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return decodeDocuments(bufio.NewReader(file))
}

func decodeDocuments(r io.Reader) ([]Document, error) {
	dec := &recordReader{r: r}
	magic, version, count := dec.u32(), dec.u32(), dec.u64()
	if dec.err != nil {
		return nil, docerrors.CorruptStateError("documents header unreadable", dec.err)
	}
	if magic != documentsMagic {
		return nil, docerrors.CorruptStateError("documents file has wrong magic", nil)
	}
	if version != documentsVersion {
		return nil, docerrors.CorruptStateError(fmt.Sprintf("unsupported documents version %d", version), nil)
	}

	docs := make([]Document, 0, min(count, 1<<16))
	for i := uint64(0); i < count; i++ {
		doc := Document{
			ID:    dec.u64(),
			Text:  dec.str(),
			Label: dec.str(),
		}
		pairs := dec.u32()
		if pairs > 0 && dec.err == nil {
			doc.Metadata = make(map[string]string, pairs)
			for p := uint32(0); p < pairs && dec.err == nil; p++ {
				k := dec.str()
				doc.Metadata[k] = dec.str()
			}
		}
		if dec.err != nil {
			return nil, docerrors.CorruptStateError(
				fmt.Sprintf("documents truncated at record %d of %d", i, count), dec.err)
		}
		if doc.ID != i {
			return nil, docerrors.CorruptStateError(
				fmt.Sprintf("document at position %d has id %d", i, doc.ID), nil)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// recordWriter accumulates the first write error.
type recordWriter struct {
	w   io.Writer
	err error
	buf [8]byte
}

func (e *recordWriter) write(p []byte) {
	if e.err == nil {
		_, e.err = e.w.Write(p)
	}
}

func (e *recordWriter) u32(v uint32) {
	binary.LittleEndian.PutUint32(e.buf[:4], v)
	e.write(e.buf[:4])
}

func (e *recordWriter) u64(v uint64) {
	binary.LittleEndian.PutUint64(e.buf[:8], v)
	e.write(e.buf[:8])
}

func (e *recordWriter) str(s string) {
	e.u32(uint32(len(s)))
	e.write([]byte(s))
}

// recordReader accumulates the first read error.
type recordReader struct {
	r   io.Reader
	err error
	buf [8]byte
}

func (d *recordReader) read(p []byte) {
	if d.err != nil {
		return
	}
	if _, err := io.ReadFull(d.r, p); err != nil {
		d.err = errShortRead
	}
}

func (d *recordReader) u32() uint32 {
	d.read(d.buf[:4])
	if d.err != nil {
		return 0
	}
	return binary.LittleEndian.Uint32(d.buf[:4])
}

func (d *recordReader) u64() uint64 {
	d.read(d.buf[:8])
	if d.err != nil {
		return 0
	}
	return binary.LittleEndian.Uint64(d.buf[:8])
}

func (d *recordReader) str() string {
	n := d.u32()
	if d.err != nil || n == 0 {
		return ""
	}
	if n > maxStringLen {
		d.err = fmt.Errorf("string length %d exceeds limit", n)
		return ""
	}
	p := make([]byte, n)
	d.read(p)
	if d.err != nil {
		return ""
	}
	return string(p)
}
