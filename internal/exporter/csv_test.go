package exporter

import (
	"bytes"
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCSVWriter_WriteCSV(t *testing.T) {
	tempDir := t.TempDir()
	writer := NewCSVWriter(tempDir, testLogger())

	tests := []struct {
		name     string
		filePath string
		options  WriteOptions
		validate func(t *testing.T, content []byte)
	}{
		{
			name:     "basic write with headers",
			filePath: "test_basic.csv",
			options: WriteOptions{
				Headers: []string{"Name", "Age", "City"},
				Records: [][]string{
					{"John", "25", "New York"},
					{"Jane", "30", "London"},
				},
			},
			validate: func(t *testing.T, content []byte) {
				lines := strings.Split(strings.TrimSpace(string(content)), "\n")
				assert.Len(t, lines, 3)
				assert.Equal(t, "Name,Age,City", lines[0])
				assert.Equal(t, "John,25,New York", lines[1])
			},
		},
		{
			name:     "write with BOM prefix",
			filePath: "test_bom.csv",
			options: WriteOptions{
				Headers:   []string{"master_id", "value"},
				Records:   [][]string{{"c1", "150.25"}},
				BOMPrefix: true,
			},
			validate: func(t *testing.T, content []byte) {
				assert.True(t, bytes.HasPrefix(content, utf8BOM))
				lines := strings.Split(strings.TrimSpace(string(content[3:])), "\n")
				assert.Equal(t, "master_id,value", lines[0])
				assert.Equal(t, "c1,150.25", lines[1])
			},
		},
		{
			name:     "fields needing quotes",
			filePath: "nested/quoted.csv",
			options: WriteOptions{
				Headers: []string{"interested_in_categories_12"},
				Records: [][]string{{"[KADIN, ERKEK]"}},
			},
			validate: func(t *testing.T, content []byte) {
				rows, err := csv.NewReader(bytes.NewReader(content)).ReadAll()
				require.NoError(t, err)
				assert.Equal(t, "[KADIN, ERKEK]", rows[1][0])
			},
		},
		{
			name:     "empty records",
			filePath: "test_empty.csv",
			options:  WriteOptions{Headers: []string{"Col1", "Col2"}},
			validate: func(t *testing.T, content []byte) {
				assert.Equal(t, "Col1,Col2\n", string(content))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, err := writer.WriteCSV(tt.filePath, tt.options)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(tempDir, tt.filePath), path)

			content, err := os.ReadFile(path)
			require.NoError(t, err)
			tt.validate(t, content)
		})
	}
}

func TestCSVWriter_AbsolutePath(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "abs.csv")
	writer := NewCSVWriter("ignored", testLogger())

	path, err := writer.WriteCSV(abs, WriteOptions{Headers: []string{"a"}})
	require.NoError(t, err)
	assert.Equal(t, abs, path)
	assert.FileExists(t, abs)
}

func TestCSVWriter_StreamWriter(t *testing.T) {
	writer := NewCSVWriter(t.TempDir(), testLogger())

	stream, err := writer.CreateStreamWriter("stream.csv", []string{"k", "v"}, false)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, stream.WriteRecord([]string{"key", formatInt(i)}))
	}
	require.NoError(t, stream.Close())

	content, err := os.ReadFile(stream.Path())
	require.NoError(t, err)
	assert.Equal(t, "k,v\nkey,0\nkey,1\nkey,2\n", string(content))
}

func TestCSVWriter_UnwritableDirectory(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	writer := NewCSVWriter(blocker, testLogger())
	_, err := writer.WriteCSV("out.csv", WriteOptions{Headers: []string{"a"}})
	assert.Error(t, err)
}
