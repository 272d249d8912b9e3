package store

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	docerrors "github.com/Aman-CERP/docsearch/internal/errors"
)

func TestDocuments_EncodeDecode(t *testing.T) {
	in := []Document{
		{ID: 0, Text: "first", Label: "general", Metadata: map[string]string{"b": "2", "a": "1"}},
		{ID: 1, Text: "", Label: ""},
		{ID: 2, Text: "línea\nnueva", Label: "csv", Metadata: map[string]string{MetaHash: "abc"}},
	}

	var buf bytes.Buffer
	require.NoError(t, encodeDocuments(&buf, in))
	out, err := decodeDocuments(&buf)

	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDocuments_EncodingIsDeterministic(t *testing.T) {
	doc := []Document{{ID: 0, Text: "x", Metadata: map[string]string{"z": "1", "y": "2", "x": "3"}}}

	var a, b bytes.Buffer
	require.NoError(t, encodeDocuments(&a, doc))
	require.NoError(t, encodeDocuments(&b, doc))

	assert.Equal(t, a.Bytes(), b.Bytes())
}

func TestDocuments_RejectsOutOfOrderIDs(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, encodeDocuments(&buf, []Document{{ID: 1, Text: "gap"}}))

	_, err := decodeDocuments(&buf)

	assert.True(t, errors.Is(err, docerrors.ErrCorruptState))
}

func TestDocuments_Truncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, encodeDocuments(&buf, []Document{{ID: 0, Text: "some longer text"}}))
	data := buf.Bytes()[:buf.Len()-4]

	_, err := decodeDocuments(bytes.NewReader(data))

	assert.True(t, errors.Is(err, docerrors.ErrCorruptState))
}

func TestEmbeddings_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), EmbeddingsFileName)
	rows := [][]float32{{1.5, -2, 0}, {3.25, 1e-8, -0}}

	require.NoError(t, SaveEmbeddings(path, rows, 3))
	got, dims, err := LoadEmbeddings(path)

	require.NoError(t, err)
	assert.Equal(t, 3, dims)
	assert.Equal(t, rows, got)
}

func TestEmbeddings_EmptyKeepsDimension(t *testing.T) {
	path := filepath.Join(t.TempDir(), EmbeddingsFileName)

	require.NoError(t, SaveEmbeddings(path, nil, 384))
	got, dims, err := LoadEmbeddings(path)

	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 384, dims)
}

func TestEmbeddings_RejectsRaggedRows(t *testing.T) {
	var buf bytes.Buffer

	err := encodeEmbeddings(&buf, [][]float32{{1, 2}, {1}}, 2)

	assert.True(t, errors.Is(err, docerrors.ErrDimensionMismatch))
}

func TestEmbeddings_WrongMagic(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, encodeDocuments(&buf, nil))

	_, _, err := decodeEmbeddings(&buf)

	assert.True(t, errors.Is(err, docerrors.ErrCorruptState))
}

func TestEmbeddings_ZeroWidthHeaderIsCorrupt(t *testing.T) {
	// Given: a header claiming 2^40 rows of width 0 and no payload
	var buf bytes.Buffer
	hdr := embeddingsHeader{embeddingsMagic, embeddingsVersion, 1 << 40, 0}
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, hdr))

	// When: decoding
	rows, _, err := decodeEmbeddings(&buf)

	// Then: rejected before reading any row
	assert.True(t, errors.Is(err, docerrors.ErrCorruptState), "got %v", err)
	assert.Nil(t, rows)
}

func TestEmbeddings_ReadHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), EmbeddingsFileName)
	require.NoError(t, SaveEmbeddings(path, [][]float32{{1, 2, 3}, {4, 5, 6}}, 3))

	rows, dims, err := ReadEmbeddingsHeader(path)

	require.NoError(t, err)
	assert.Equal(t, 2, rows)
	assert.Equal(t, 3, dims)

	_, _, err = ReadEmbeddingsHeader(filepath.Join(t.TempDir(), "missing.bin"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestWriteFileAtomic_LeavesNoTempOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.bin")
	require.NoError(t, os.WriteFile(path, []byte("previous"), 0o644))

	err := writeFileAtomic(path, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return errors.New("encoder failed")
	})

	require.Error(t, err)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(data))
}
