package git

import (
	"encoding/base64"
	"fmt"
	"path"
	"unicode/utf8"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"

	gitbackend "github.com/thiagokokada/git-explorer/internal/git/backend"
)

const (
	EncodingUTF8   = "utf8"
	EncodingBase64 = "base64"
)

// binaryKinds are sent base64 encoded regardless of their bytes.
var binaryKinds = map[FileKind]struct{}{
	KindImage:   {},
	KindAudio:   {},
	KindVideo:   {},
	KindFont:    {},
	KindArchive: {},
	KindPDF:     {},
}

// FileContent reads a file at rev. Text is returned verbatim; recognized
// binary formats and invalid UTF-8 are base64 encoded.
func (s *Service) FileContent(filePath, rev string) (*FileContent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	root, err := s.rootTree(rev)
	if err != nil {
		return nil, err
	}
	entry, err := s.lookupPath(root, filePath)
	if err != nil {
		return nil, err
	}
	if entry.Kind == gitbackend.EntryDir || entry.Kind == gitbackend.EntrySubmodule {
		return nil, fmt.Errorf("%w: %s is not a file", ErrNotFound, filePath)
	}
	data, err := s.backend.Blob(entry.Hash)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filePath, err)
	}

	res := &FileContent{Path: filePath}
	_, binary := binaryKinds[ClassifyFile(path.Base(filePath))]
	if binary || !utf8.Valid(data) {
		res.Content = base64.StdEncoding.EncodeToString(data)
		res.Encoding = EncodingBase64
		res.Language = languageFor(filePath, "")
		return res, nil
	}
	res.Content = string(data)
	res.Encoding = EncodingUTF8
	res.Language = languageFor(filePath, res.Content)
	return res, nil
}

// languageFor names the chroma lexer for a file, guessing from the content
// when the name is not enough.
func languageFor(filePath, content string) string {
	var lexer chroma.Lexer
	if filePath != "" {
		lexer = lexers.Match(path.Base(filePath))
	}
	if lexer == nil && content != "" {
		lexer = lexers.Analyse(content)
	}
	if lexer == nil {
		return ""
	}
	return lexer.Config().Name
}
