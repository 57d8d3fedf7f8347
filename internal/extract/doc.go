// Package extract pulls bounded text excerpts out of files so they can be
// classified.
//
// Each family has a dedicated route: plain text and markdown are read
// directly, docx/pptx are unpacked from their XML parts, PDFs go through
// embedded text first and rendered-page OCR second, images go straight to
// OCR, audio is clipped and transcribed, and archives expose their member
// listing plus at most one extracted document member.
//
// Excerpts come back size-bounded and normalized: whitespace collapsed,
// symbol runes stripped, words and CJK text kept. The cascade applies the
// final prompt truncation. External tools (tesseract, pdftoppm, ffmpeg,
// whisper-cli) run through an injectable CommandRunner so tests never fork
// real binaries.
package extract
