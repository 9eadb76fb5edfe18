package indexing

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/opensquiggly/spinach-sub000/internal/types"
)

// BinaryDetector rejects files that cannot hold searchable text, first by
// extension and then by sniffing the leading bytes.
type BinaryDetector struct {
	binaryExtensions map[string]bool
}

// NewBinaryDetector creates a detector with the built-in extension table.
func NewBinaryDetector() *BinaryDetector {
	extensions := map[string]bool{
		// Fonts
		".woff":  true,
		".woff2": true,
		".ttf":   true,
		".otf":   true,
		".eot":   true,

		// Images
		".png":  true,
		".jpg":  true,
		".jpeg": true,
		".gif":  true,
		".bmp":  true,
		".ico":  true,
		".webp": true,
		".svg":  false,
		".tiff": true,
		".tif":  true,

		// Archives
		".zip": true,
		".tar": true,
		".gz":  true,
		".bz2": true,
		".xz":  true,
		".7z":  true,
		".rar": true,
		".jar": true,
		".war": true,

		// Executables and objects
		".exe":   true,
		".dll":   true,
		".so":    true,
		".dylib": true,
		".a":     true,
		".o":     true,
		".obj":   true,
		".bin":   true,
		".wasm":  true,

		// Media
		".mp3":  true,
		".mp4":  true,
		".avi":  true,
		".mov":  true,
		".wav":  true,
		".flac": true,
		".ogg":  true,

		// Office formats
		".pdf":  true,
		".doc":  true,
		".docx": true,
		".xls":  true,
		".xlsx": true,
		".ppt":  true,
		".pptx": true,

		// Databases
		".db":      true,
		".sqlite":  true,
		".sqlite3": true,

		// Bytecode
		".pyc":   true,
		".pyo":   true,
		".class": true,
		".pkl":   true,
	}

	return &BinaryDetector{binaryExtensions: extensions}
}

// IsBinaryByExtension reports whether path carries a known binary extension.
func (bd *BinaryDetector) IsBinaryByExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return false
	}
	return bd.binaryExtensions[ext]
}

var magicNumbers = [][]byte{
	{0x1F, 0x8B},             // gzip
	{0x50, 0x4B, 0x03, 0x04}, // zip
	{0x50, 0x4B, 0x05, 0x06}, // empty zip
	{0x89, 0x50, 0x4E, 0x47}, // png
	{0xFF, 0xD8, 0xFF},       // jpeg
	{0x47, 0x49, 0x46, 0x38}, // gif
	{0x25, 0x50, 0x44, 0x46}, // pdf
	{0x7F, 0x45, 0x4C, 0x46}, // elf
	{0x4D, 0x5A},             // dos/windows executable
	{0xCA, 0xFE, 0xBA, 0xBE}, // mach-o fat binary, java class
	{0x77, 0x4F, 0x46, 0x46}, // woff
	{0x77, 0x4F, 0x46, 0x32}, // woff2
	{0x00, 0x61, 0x73, 0x6D}, // wasm
}

// IsBinaryByContent sniffs the leading bytes of content for a known
// signature, NUL bytes or a high share of control characters.
func (bd *BinaryDetector) IsBinaryByContent(content []byte) bool {
	if len(content) == 0 {
		return false
	}
	sample := content[:min(len(content), types.BinaryPreCheckBytes)]

	for _, magic := range magicNumbers {
		if bytes.HasPrefix(sample, magic) {
			return true
		}
	}

	nullBytes, control := 0, 0
	for _, b := range sample {
		if b == 0 {
			nullBytes++
		}
		// Bytes >= 0x80 are left alone so UTF-8 text is not rejected.
		if b < 0x20 && b != '\t' && b != '\n' && b != '\r' {
			control++
		}
	}

	return nullBytes > len(sample)/100 || control > len(sample)*30/100
}

// IsBinary combines the extension check with content sniffing.
func (bd *BinaryDetector) IsBinary(path string, content []byte) bool {
	return bd.IsBinaryByExtension(path) || bd.IsBinaryByContent(content)
}

// IsBinaryFile checks the extension and, failing that, sniffs the head of
// the file at fullPath. Unreadable files are reported as text so the read
// error surfaces when the file is indexed.
func (bd *BinaryDetector) IsBinaryFile(fullPath string) bool {
	if bd.IsBinaryByExtension(fullPath) {
		return true
	}
	f, err := os.Open(fullPath)
	if err != nil {
		return false
	}
	defer f.Close()

	head := make([]byte, types.BinaryPreCheckBytes)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return false
	}
	return bd.IsBinaryByContent(head[:n])
}
