package store

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	docerrors "github.com/Aman-CERP/docsearch/internal/errors"
)

// Embeddings file layout (little endian):
//
//	magic "DSEM" | version u32 | rows u64 | dims u32 | rows*dims float32
const (
	embeddingsMagic   uint32 = 0x4d455344
	embeddingsVersion uint32 = 1
)

// SaveEmbeddings writes a rows x dims matrix atomically.
func SaveEmbeddings(path string, rows [][]float32, dims int) error {
	return writeFileAtomic(path, func(w io.Writer) error {
		return encodeEmbeddings(w, rows, dims)
	})
}

type embeddingsHeader struct {
	Magic   uint32
	Version uint32
	Rows    uint64
	Dims    uint32
}

func encodeEmbeddings(w io.Writer, rows [][]float32, dims int) error {
	hdr := embeddingsHeader{embeddingsMagic, embeddingsVersion, uint64(len(rows)), uint32(dims)}
	if err := binary.Write(w, binary.LittleEndian, hdr); err != nil {
		return fmt.Errorf("write embeddings header: %w", err)
	}

	buf := make([]byte, 4*dims)
	for i, row := range rows {
		if len(row) != dims {
			return docerrors.DimensionMismatchError(dims, len(row)).WithDetail("row", fmt.Sprint(i))
		}
		for j, v := range row {
			binary.LittleEndian.PutUint32(buf[4*j:], math.Float32bits(v))
		}
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("write embeddings row %d: %w", i, err)
		}
	}
	return nil
}

// LoadEmbeddings reads a matrix written by SaveEmbeddings.
func LoadEmbeddings(path string) ([][]float32, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open embeddings file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return decodeEmbeddings(bufio.NewReader(file))
}

// ReadEmbeddingsHeader returns the row count and width recorded in an
// embeddings file without reading the matrix.
func ReadEmbeddingsHeader(path string) (rows, dims int, err error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("open embeddings file: %w", err)
	}
	defer func() { _ = file.Close() }()

	hdr, err := readEmbeddingsHeader(file)
	if err != nil {
		return 0, 0, err
	}
	return int(hdr.Rows), int(hdr.Dims), nil
}

func readEmbeddingsHeader(r io.Reader) (embeddingsHeader, error) {
	var hdr embeddingsHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return hdr, docerrors.CorruptStateError("embeddings header unreadable", err)
	}
	if hdr.Magic != embeddingsMagic {
		return hdr, docerrors.CorruptStateError("embeddings file has wrong magic", nil)
	}
	if hdr.Version != embeddingsVersion {
		return hdr, docerrors.CorruptStateError(fmt.Sprintf("unsupported embeddings version %d", hdr.Version), nil)
	}
	if hdr.Dims == 0 && hdr.Rows > 0 {
		return hdr, docerrors.CorruptStateError(
			fmt.Sprintf("embeddings header declares %d rows of width 0", hdr.Rows), nil)
	}
	return hdr, nil
}

func decodeEmbeddings(r io.Reader) ([][]float32, int, error) {
	hdr, err := readEmbeddingsHeader(r)
	if err != nil {
		return nil, 0, err
	}

	dims := int(hdr.Dims)
	rows := make([][]float32, 0, min(hdr.Rows, 1<<16))
	buf := make([]byte, 4*dims)
	for i := uint64(0); i < hdr.Rows; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, 0, docerrors.CorruptStateError(
				fmt.Sprintf("embeddings truncated at row %d of %d", i, hdr.Rows), errShortRead)
		}
		row := make([]float32, dims)
		for j := range row {
			row[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*j:]))
		}
		rows = append(rows, row)
	}
	return rows, dims, nil
}
