// Package chunking splits ordered document pages into overlapping windows
// for bounded-size language-model calls. Chunk boundaries are a pure
// function of (pages, window, overlap): recomputation always yields
// identical chunks, which idempotent retries rely on.
package chunking

import (
	"fmt"
	"strings"

	"tenderlist/internal/services"
	"tenderlist/internal/tender"
)

// Chunk splits pages into windows of `window` pages where consecutive
// windows share `overlap` pages. Fails with a validation error when
// window <= 0 or overlap >= window. Pages must be ordered by page number.
func Chunk(pages []tender.Page, window, overlap int) ([]tender.Chunk, error) {
	if window <= 0 {
		return nil, services.Wrap(services.ErrValidation, "chunking", "chunk",
			fmt.Sprintf("window must be positive (got %d)", window), nil)
	}
	if overlap < 0 {
		return nil, services.Wrap(services.ErrValidation, "chunking", "chunk",
			fmt.Sprintf("overlap must not be negative (got %d)", overlap), nil)
	}
	if overlap >= window {
		return nil, services.Wrap(services.ErrValidation, "chunking", "chunk",
			fmt.Sprintf("overlap %d must be smaller than window %d", overlap, window), nil)
	}
	if len(pages) == 0 {
		return []tender.Chunk{}, nil
	}

	byNumber := make(map[int]tender.Page, len(pages))
	lastPage := 0
	for _, page := range pages {
		byNumber[page.PageNo] = page
		if page.PageNo > lastPage {
			lastPage = page.PageNo
		}
	}

	var chunks []tender.Chunk
	start := 1
	for {
		end := start + window - 1
		if end > lastPage {
			end = lastPage
		}

		index := len(chunks)
		chunks = append(chunks, tender.Chunk{
			ChunkID:   tender.ChunkIDForIndex(index),
			Index:     index,
			PageStart: start,
			PageEnd:   end,
			Text:      renderWindow(byNumber, start, end),
		})

		if end == lastPage {
			break
		}
		start = end - overlap + 1
	}
	return chunks, nil
}

// renderWindow joins the pages of one window, prefixing each page's text
// with a [Page N] marker so the model can attribute requirements to pages.
func renderWindow(pages map[int]tender.Page, start, end int) string {
	var b strings.Builder
	for pageNo := start; pageNo <= end; pageNo++ {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[Page %d]\n", pageNo)
		if page, ok := pages[pageNo]; ok {
			b.WriteString(page.Text)
		}
	}
	return b.String()
}
