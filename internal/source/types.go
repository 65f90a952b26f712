package source

import "fmt"

// FileID indexes a file inside its FileSet.
type FileID uint32

// FileFlags records how a file was loaded.
type FileFlags uint8

const (
	FileVirtual FileFlags = 1 << iota // не с диска: тесты, stdin
	FileHadBOM
	FileNormalizedCRLF
	FileNormalizedNFC
)

// Rewritten reports whether Content differs from the bytes on disk.
func (f FileFlags) Rewritten() bool {
	return f&(FileHadBOM|FileNormalizedCRLF|FileNormalizedNFC) != 0
}

// File is one loaded source with its line index.
type File struct {
	ID      FileID
	Path    string
	Content []byte
	LineIdx []uint32 // offsets of '\n'
	Hash    [32]byte
	Flags   FileFlags
}

// LineCol is a 1-based human position.
type LineCol struct {
	Line uint32
	Col  uint32
}

// Span is the byte range [Start, End) of one file. The zero Span is
// "nowhere": diagnostics without a source line carry it.
type Span struct {
	File  FileID
	Start uint32
	End   uint32
}

// IsZero reports whether s is the unlocated span.
func (s Span) IsZero() bool { return s == Span{} }

func (s Span) Empty() bool { return s.Start == s.End }

func (s Span) Len() uint32 { return s.End - s.Start }

// Contains reports whether o lies within s.
func (s Span) Contains(o Span) bool {
	return s.File == o.File && s.Start <= o.Start && o.End <= s.End
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d", s.File, s.Start, s.End)
}
