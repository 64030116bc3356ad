// Package textextract turns a tender PDF into ordered per-page plain text.
//
// The native text layer is read with pdftotext one page at a time. Pages
// whose native text falls below a density heuristic are routed through an
// OCR fallback (local tesseract or a remote OCR service), rendering the
// page with pdftoppm first. Per-page OCR failures produce warnings, not
// job failures; only an unreadable document aborts extraction.
package textextract
