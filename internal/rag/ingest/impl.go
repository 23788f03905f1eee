package ingest

import (
	"strings"

	"github.com/akolanti/DocChat/internal/adapter/utils"
	"github.com/akolanti/DocChat/internal/domain/commonModels"
	"github.com/akolanti/DocChat/internal/rag/vectorDB"
)

// PrepareChunks splits every page and tags each piece with its document.
// ChunkOrder counts across the whole document so chunks sort back into reading order.
func PrepareChunks(pages []Page, doc commonModels.Document, docType commonModels.DocType, chunkSize int, chunkOverlap int) []commonModels.DocChunk {
	var allChunks []commonModels.DocChunk

	order := 0
	for _, page := range pages {
		if strings.TrimSpace(page.Content) == "" {
			continue
		}
		for _, segment := range SplitText(page.Content, chunkSize, chunkOverlap) {
			if strings.TrimSpace(segment.Text) == "" {
				continue
			}
			allChunks = append(allChunks, commonModels.DocChunk{
				Doc:        doc,
				ChunkId:    utils.GetNewUUID(),
				Chunk:      segment.Text,
				PageNum:    page.Number,
				ChunkOrder: order,
				DocType:    docType,
			})
			order++
		}
	}

	return allChunks
}

func toEntries(chunks []commonModels.DocChunk) []vectorDB.Entry {
	entries := make([]vectorDB.Entry, len(chunks))
	for i, c := range chunks {
		entries[i] = vectorDB.Entry{
			Id:       c.ChunkId,
			Text:     c.Chunk,
			Metadata: c.Metadata(),
		}
	}
	return entries
}
