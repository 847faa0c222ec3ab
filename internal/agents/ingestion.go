package agents

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

type IngestInput struct {
	Filename string
	Data     []byte
}

type IngestOutput struct {
	Text     string
	FileType string
	Pages    int
}

var fileTypes = map[string]string{
	".pdf":      "pdf",
	".html":     "html",
	".htm":      "html",
	".md":       "markdown",
	".markdown": "markdown",
	".txt":      "text",
}

// SupportedExtension reports whether uploads with this filename can be
// ingested at all.
func SupportedExtension(filename string) bool {
	_, ok := fileTypes[strings.ToLower(filepath.Ext(filename))]
	return ok
}

func FileTypeFor(filename string) string {
	if t, ok := fileTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return t
	}
	return "unknown"
}

// CommandRunner executes an external tool and returns its stdout. The seam
// exists so tests never depend on pdftotext being installed.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}

	return stdout.Bytes(), nil
}

// Ingestion extracts plain text and page metadata from uploaded bytes.
type Ingestion struct {
	runner CommandRunner
}

func NewIngestion() *Ingestion {
	return &Ingestion{runner: execRunner{}}
}

// NewIngestionWithRunner overrides the external command runner.
func NewIngestionWithRunner(runner CommandRunner) *Ingestion {
	return &Ingestion{runner: runner}
}

func (a *Ingestion) Name() string { return "ingestion" }

func (a *Ingestion) Process(ctx context.Context, in IngestInput) (IngestOutput, error) {
	fileType := FileTypeFor(in.Filename)

	var (
		text  string
		pages = 1
		err   error
	)

	switch fileType {
	case "pdf":
		text, pages, err = a.extractPDF(ctx, in.Data)
	case "html":
		text, err = extractHTML(in.Data)
	case "text", "markdown":
		text = string(in.Data)
	default:
		return IngestOutput{}, fmt.Errorf("unsupported file type: %s", filepath.Ext(in.Filename))
	}

	if err != nil {
		return IngestOutput{}, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return IngestOutput{}, fmt.Errorf("no text content extracted from %s", in.Filename)
	}

	return IngestOutput{
		Text:     text,
		FileType: fileType,
		Pages:    pages,
	}, nil
}

// extractPDF shells out to pdftotext; pages are delimited by form feeds in
// its output.
func (a *Ingestion) extractPDF(ctx context.Context, data []byte) (string, int, error) {
	tmp, err := os.CreateTemp("", "ingest-*.pdf")
	if err != nil {
		return "", 0, fmt.Errorf("failed to stage pdf: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", 0, fmt.Errorf("failed to stage pdf: %w", err)
	}
	tmp.Close()

	out, err := a.runner.Run(ctx, "pdftotext", "-layout", tmp.Name(), "-")
	if err != nil {
		return "", 0, fmt.Errorf("pdf extraction failed: %w", err)
	}

	text := string(out)
	pages := strings.Count(text, "\f")
	if pages == 0 {
		pages = 1
	}

	return strings.ReplaceAll(text, "\f", "\n"), pages, nil
}

var whitespaceRE = regexp.MustCompile(`\s+`)

func extractHTML(data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("html extraction failed: %w", err)
	}

	doc.Find("script, style, nav, footer, header, aside").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	text := doc.Find("body").Text()
	if text == "" {
		text = doc.Text()
	}

	return whitespaceRE.ReplaceAllString(text, " "), nil
}
