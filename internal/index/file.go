package index

import (
	"bytes"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/QTest-hq/antenna/internal/parser"
)

// FileID addresses an IndexedFile inside an Index
type FileID int

// IndexedFile is a source file read and parsed exactly once per run.
// It is never mutated after the index is built.
type IndexedFile struct {
	ID        FileID
	Path      string
	Name      string
	Language  parser.Language
	Extension string
	Content   []byte

	// Tree is the parse of Content under Language
	Tree *sitter.Tree
}

// Equal compares path, extension, language and content. The tree is derived
// from content and language and is not compared.
func (f *IndexedFile) Equal(other *IndexedFile) bool {
	if f == nil || other == nil {
		return f == other
	}
	return f.Path == other.Path &&
		f.Extension == other.Extension &&
		languageName(f.Language) == languageName(other.Language) &&
		bytes.Equal(f.Content, other.Content)
}

// LanguageName returns the name of the file's language
func (f *IndexedFile) LanguageName() string {
	return languageName(f.Language)
}

func languageName(l parser.Language) string {
	if l == nil {
		return ""
	}
	return l.Name()
}
