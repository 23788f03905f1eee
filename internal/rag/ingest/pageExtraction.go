package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/akolanti/DocChat/internal/config"
	"github.com/akolanti/DocChat/internal/domain/commonModels"
	"github.com/akolanti/DocChat/pkg/logger_i"
	"github.com/dslipak/pdf"
	"github.com/go-shiori/go-readability"
	"github.com/lu4p/cat"
	"golang.org/x/net/html"
)

// Page is the text of one page (or of the whole file for formats without pages).
type Page struct {
	Number  int    `json:"number"`
	Content string `json:"content"`
}

// Loader extracts ordered pages from the file at path.
type Loader func(ctx context.Context, path string, log *logger_i.Logger) ([]Page, error)

func defaultLoaders() map[commonModels.DocType]Loader {
	return map[commonModels.DocType]Loader{
		commonModels.PDF:  extractPDF,
		commonModels.DOCX: extractDocx,
		commonModels.HTML: extractHTML,
	}
}

// GetDocType maps a file name onto the closed set of supported formats.
func GetDocType(docPath string) commonModels.DocType {
	ext := strings.ToLower(filepath.Ext(docPath))
	switch ext {
	case ".pdf":
		return commonModels.PDF
	case ".docx":
		return commonModels.DOCX
	case ".html":
		return commonModels.HTML
	default:
		return commonModels.Unsupported
	}
}

func SupportedExtensions() []string {
	return []string{".pdf", ".docx", ".html"}
}

func extractPDF(ctx context.Context, path string, log *logger_i.Logger) ([]Page, error) {
	log.Debug("extractPDF", "attempting extraction", path)
	f, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	var pages []Page
	numPages := f.NumPage()
	log.Debug("extractPDF", "number of pages", numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := f.Page(i)
		if page.V.IsNull() {
			log.Debug("extractPDF", "null page", i)
			continue
		}

		content, err := protectExtract(ctx, page)
		if err != nil {
			// Log warning but continue with other pages
			log.Warn("Error parsing page content", "page", i, "error", err)
			continue
		}

		pages = append(pages, Page{
			Number:  i,
			Content: content,
		})
	}
	return pages, nil
}

// docx has no page boundaries we can track, so the whole body is page 1
func extractDocx(_ context.Context, path string, log *logger_i.Logger) ([]Page, error) {
	text, err := cat.File(path)
	if err != nil {
		return nil, fmt.Errorf("failed to extract docx: %w", err)
	}
	log.Debug("extractDocx", "characters", len(text))
	return []Page{{Number: 1, Content: text}}, nil
}

func extractHTML(_ context.Context, path string, log *logger_i.Logger) ([]Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open html: %w", err)
	}
	defer f.Close()

	article, err := readability.FromReader(f, nil)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		return []Page{{Number: 1, Content: article.TextContent}}, nil
	}
	log.Debug("extractHTML", "readability gave no article, falling back to raw text", err)

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind html: %w", err)
	}
	text, err := htmlText(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	return []Page{{Number: 1, Content: text}}, nil
}

// htmlText collects the visible text nodes, one block per line.
func htmlText(r io.Reader) (string, error) {
	tokenizer := html.NewTokenizer(r)
	var b strings.Builder
	skip := 0
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			if errors.Is(tokenizer.Err(), io.EOF) {
				return strings.TrimSpace(b.String()), nil
			}
			return "", tokenizer.Err()
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if tag := string(name); tag == "script" || tag == "style" {
				skip++
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			switch string(name) {
			case "script", "style":
				if skip > 0 {
					skip--
				}
			case "p", "div", "li", "h1", "h2", "h3", "h4", "h5", "h6", "tr", "br":
				b.WriteString("\n")
			}
		case html.TextToken:
			if skip > 0 {
				continue
			}
			if text := strings.TrimSpace(string(tokenizer.Text())); text != "" {
				if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
					b.WriteString(" ")
				}
				b.WriteString(text)
			}
		}
	}
}

func protectExtract(ctx context.Context, page pdf.Page) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		defer func() {
			// malformed content streams make the pdf package panic
			if r := recover(); r != nil {
				resChan <- result{"", fmt.Errorf("page extraction panicked: %v", r)}
			}
		}()
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()

	select {
	case r := <-resChan:
		return r.content, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(config.PageExtractTimeout):
		return "", errors.New("page extraction timeout")
	}
}
