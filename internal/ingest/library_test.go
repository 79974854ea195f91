package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

func newTestLibrary(t *testing.T) *Library {
	t.Helper()
	lib, err := NewLibrary(filepath.Join(t.TempDir(), "uploads"), logging.Discard())
	require.NoError(t, err)
	return lib
}

func TestCleanName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{name: "pdf", input: "sunrise.pdf", want: "sunrise.pdf"},
		{name: "upper case extension", input: "  Green Valley.TXT ", want: "Green Valley.TXT"},
		{name: "empty", input: "   ", wantErr: ErrInvalidName},
		{name: "parent traversal", input: "../secrets.txt", wantErr: ErrInvalidName},
		{name: "nested path", input: "docs/sunrise.pdf", wantErr: ErrInvalidName},
		{name: "windows separator", input: `docs\sunrise.pdf`, wantErr: ErrInvalidName},
		{name: "dotfile", input: ".hidden.txt", wantErr: ErrInvalidName},
		{name: "unsupported extension", input: "notes.docx", wantErr: ErrUnsupportedFile},
		{name: "no extension", input: "README", wantErr: ErrUnsupportedFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CleanName(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLibrarySaveListRemove(t *testing.T) {
	lib := newTestLibrary(t)

	doc, err := lib.Save("sunrise.txt", strings.NewReader("Clinic Name: Sunrise Clinic"))
	require.NoError(t, err)
	assert.Equal(t, "sunrise.txt", doc.Name)
	assert.EqualValues(t, len("Clinic Name: Sunrise Clinic"), doc.Size)

	_, err = lib.Save("alpha.pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)

	// Files the library does not manage are ignored.
	require.NoError(t, os.WriteFile(lib.Path("notes.docx"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(lib.Path(".upload-123"), []byte("x"), 0o644))

	docs, err := lib.List()
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "alpha.pdf", docs[0].Name)
	assert.Equal(t, "sunrise.txt", docs[1].Name)

	assert.True(t, lib.Has("sunrise.txt"))
	assert.False(t, lib.Has("missing.txt"))

	require.NoError(t, lib.Remove("sunrise.txt"))
	assert.False(t, lib.Has("sunrise.txt"))
	assert.ErrorIs(t, lib.Remove("sunrise.txt"), ErrNotFound)
}

func TestLibrarySaveReplacesExisting(t *testing.T) {
	lib := newTestLibrary(t)

	_, err := lib.Save("sunrise.txt", strings.NewReader("old"))
	require.NoError(t, err)
	_, err = lib.Save("sunrise.txt", strings.NewReader("new contents"))
	require.NoError(t, err)

	data, err := os.ReadFile(lib.Path("sunrise.txt"))
	require.NoError(t, err)
	assert.Equal(t, "new contents", string(data))

	docs, err := lib.List()
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestLibraryRejectsBadNames(t *testing.T) {
	lib := newTestLibrary(t)

	_, err := lib.Save("../escape.txt", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = lib.Save("sheet.xlsx", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUnsupportedFile)

	assert.ErrorIs(t, lib.Remove("../escape.txt"), ErrInvalidName)
}

func TestNewLibraryRequiresDir(t *testing.T) {
	_, err := NewLibrary(" ", nil)
	assert.Error(t, err)
}

func TestFileExtractor(t *testing.T) {
	lib := newTestLibrary(t)
	_, err := lib.Save("sunrise.txt", strings.NewReader("Clinic Name: Sunrise Clinic\n"))
	require.NoError(t, err)

	text, err := FileExtractor{}.Extract(lib.Path("sunrise.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Clinic Name: Sunrise Clinic\n", text)

	_, err = FileExtractor{}.Extract(lib.Path("notes.docx"))
	assert.ErrorIs(t, err, ErrUnsupportedFile)

	_, err = FileExtractor{}.Extract(lib.Path("missing.pdf"))
	assert.Error(t, err)
}
