package ingest

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/zeebo/blake3"
	"golang.org/x/text/unicode/norm"
)

// UntitledStem names pastes into documents that were never saved
const UntitledStem = "untitled"

const shortHashLen = 8

// ShortHash returns the first 8 hex characters of the digest of data
func (a HashAlgorithm) ShortHash(data []byte) string {
	var sum []byte
	switch a {
	case HashSHA256:
		digest := sha256.Sum256(data)
		sum = digest[:]
	case HashBLAKE3:
		digest := blake3.Sum256(data)
		sum = digest[:]
	default:
		digest := md5.Sum(data)
		sum = digest[:]
	}
	return hex.EncodeToString(sum)[:shortHashLen]
}

// Valid reports whether a names a supported algorithm
func (a HashAlgorithm) Valid() bool {
	switch a {
	case HashMD5, HashSHA256, HashBLAKE3:
		return true
	}
	return false
}

// ResolveName decides the on-disk filename for payload.
//
// A dropped file keeps its own stem whatever preserveOriginalName says;
// anything without a source path is named after the target document plus
// a content hash, so identical bytes always map to the same name.
func ResolveName(payload Payload, targetDocumentPath string, preserveOriginalName bool, hash HashAlgorithm) string {
	ext := payload.ResolvedExtension()

	if payload.SourcePath != "" {
		return originalStem(payload.SourcePath) + ext
	}

	return documentStem(targetDocumentPath) + "-" + hash.ShortHash(payload.Bytes) + ext
}

// disambiguate inserts the content hash before the extension
func disambiguate(filename, ext, shortHash string) string {
	return strings.TrimSuffix(filename, ext) + "-" + shortHash + ext
}

// originalStem keeps the dropped file's stem byte for byte
func originalStem(sourcePath string) string {
	base := filepath.Base(sourcePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// documentStem names assets after the document they are pasted into.
// Page bundles (index.md, _index.md) use their directory name instead.
func documentStem(targetDocumentPath string) string {
	if targetDocumentPath == "" {
		return UntitledStem
	}

	base := filepath.Base(targetDocumentPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	if stem == "index" || stem == "_index" {
		parent := filepath.Base(filepath.Dir(targetDocumentPath))
		if parent != "." && parent != string(filepath.Separator) && parent != "" {
			stem = parent
		}
	}

	if stem == "" {
		return UntitledStem
	}
	// Finder hands over decomposed document names
	return norm.NFC.String(stem)
}

// DetectExtension sniffs the image format from its magic bytes. Bytes
// that are not a recognised image yield an empty extension.
func DetectExtension(data []byte) string {
	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		return ""
	}
	return mime.Extension()
}
