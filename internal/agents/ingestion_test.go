package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	output []byte
	err    error
}

func (f *fakeRunner) Run(_ context.Context, _ string, _ ...string) ([]byte, error) {
	return f.output, f.err
}

func TestSupportedExtension(t *testing.T) {
	assert.True(t, SupportedExtension("report.pdf"))
	assert.True(t, SupportedExtension("REPORT.PDF"))
	assert.True(t, SupportedExtension("page.html"))
	assert.True(t, SupportedExtension("notes.md"))
	assert.True(t, SupportedExtension("notes.txt"))
	assert.False(t, SupportedExtension("photo.png"))
	assert.False(t, SupportedExtension("archive.zip"))
	assert.False(t, SupportedExtension("noextension"))
}

func TestProcessPlainText(t *testing.T) {
	agent := NewIngestion()

	out, err := agent.Process(context.Background(), IngestInput{
		Filename: "notes.txt",
		Data:     []byte("  hello world  "),
	})
	require.NoError(t, err)
	assert.Equal(t, "hello world", out.Text)
	assert.Equal(t, "text", out.FileType)
	assert.Equal(t, 1, out.Pages)
}

func TestProcessHTMLStripsChrome(t *testing.T) {
	agent := NewIngestion()

	html := `<html><head><title>t</title><style>body{}</style></head>
	<body><nav>menu</nav><script>alert(1)</script><p>Actual content here.</p><footer>foot</footer></body></html>`

	out, err := agent.Process(context.Background(), IngestInput{
		Filename: "page.html",
		Data:     []byte(html),
	})
	require.NoError(t, err)
	assert.Contains(t, out.Text, "Actual content here.")
	assert.NotContains(t, out.Text, "alert(1)")
	assert.NotContains(t, out.Text, "menu")
	assert.Equal(t, "html", out.FileType)
}

func TestProcessPDFCountsPages(t *testing.T) {
	agent := NewIngestionWithRunner(&fakeRunner{
		output: []byte("page one\fpage two\fpage three\f"),
	})

	out, err := agent.Process(context.Background(), IngestInput{
		Filename: "report.pdf",
		Data:     []byte("%PDF-1.4 fake"),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, out.Pages)
	assert.Equal(t, "pdf", out.FileType)
	assert.Contains(t, out.Text, "page two")
}

func TestProcessPDFExtractionFailure(t *testing.T) {
	agent := NewIngestionWithRunner(&fakeRunner{
		err: errors.New("pdftotext: damaged file"),
	})

	_, err := agent.Process(context.Background(), IngestInput{
		Filename: "broken.pdf",
		Data:     []byte("not a pdf"),
	})
	assert.ErrorContains(t, err, "pdf extraction failed")
}

func TestProcessUnsupportedType(t *testing.T) {
	agent := NewIngestion()

	_, err := agent.Process(context.Background(), IngestInput{
		Filename: "image.png",
		Data:     []byte{0x89, 0x50},
	})
	assert.ErrorContains(t, err, "unsupported file type")
}

func TestProcessEmptyContent(t *testing.T) {
	agent := NewIngestion()

	_, err := agent.Process(context.Background(), IngestInput{
		Filename: "empty.txt",
		Data:     []byte("   \n\t  "),
	})
	assert.ErrorContains(t, err, "no text content")
}
