// Package loader implements the Loader component: reads source text,
// auto-detects its encoding, hands it to an external Parser, feeds the
// result to the Compiler via a class.Registry, and reports per-file errors
// without aborting sibling files. It wires a source tree into a running
// instance, with a Compiled Unit per class as the unit of work rather than
// one flat cell image.
package loader

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/magoolation/intmud/ast"
	"github.com/magoolation/intmud/class"
)

// Parser is the external parser interface; the concrete grammar and parser
// are kept out of this package's core, with the parser package shipping a
// reference implementation.
type Parser interface {
	Parse(name string, r io.Reader) (*ast.CompilationUnit, error)
}

// FileError records a load/parse/compile failure against one file, so a
// bad file never aborts its siblings: the LOAD_IO/PARSE/COMPILE propagation
// policy is per-file, logged, others continue.
type FileError struct {
	File string
	Err  error
}

func (e *FileError) Error() string { return e.File + ": " + e.Err.Error() }

// Loader reads Script Language source files, discovers their include sets,
// and installs compiled classes into a class.Registry.
type Loader struct {
	Parser   Parser
	Classes  *class.Registry
	Log      *logrus.Logger
	Included map[string]bool // absolute paths already loaded, dedup include cycles
}

// New returns a Loader bound to parser and classes.
func New(parser Parser, classes *class.Registry, log *logrus.Logger) *Loader {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Loader{Parser: parser, Classes: classes, Log: log, Included: map[string]bool{}}
}

// Files returns every absolute source path LoadFile has loaded so far, the
// set a hot-reload watcher polls for mtime changes.
func (l *Loader) Files() []string {
	out := make([]string, 0, len(l.Included))
	for p := range l.Included {
		out = append(out, p)
	}
	return out
}

// LoadFile reads path, parses it, follows its prologue's include
// directories, and registers every class it and its includes declare.
// Errors are collected and returned as one *FileError per failing file, and
// do not stop processing of sibling files within the same include set.
func (l *Loader) LoadFile(path string) []*FileError {
	var errs []*FileError
	l.loadOne(path, &errs)
	return errs
}

func (l *Loader) loadOne(path string, errs *[]*FileError) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if l.Included[abs] {
		return
	}
	l.Included[abs] = true

	cu, err := l.readAndParse(path)
	if err != nil {
		*errs = append(*errs, &FileError{File: path, Err: err})
		l.Log.WithField("file", path).WithError(err).Error("load/parse failed")
		return
	}

	for _, dir := range cu.Prologue.Include {
		entries, err := os.ReadDir(dir)
		if err != nil {
			*errs = append(*errs, &FileError{File: dir, Err: errors.Wrap(err, "include dir")})
			l.Log.WithField("dir", dir).WithError(err).Error("include directory unreadable")
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			l.loadOne(filepath.Join(dir, e.Name()), errs)
		}
	}

	for _, cls := range cu.Classes {
		if _, err := l.Classes.Register(cls); err != nil {
			*errs = append(*errs, &FileError{File: path, Err: err})
			l.Log.WithFields(logrus.Fields{"file": path, "class": cls.Name}).WithError(err).Error("compile failed")
		}
	}
}

// readAndParse reads path, auto-detecting UTF-8 vs Latin-1 (file encoding
// is auto-detected, UTF-8 with Latin-1 fallback), then hands the decoded
// text to Parser.
func (l *Loader) readAndParse(path string) (*ast.CompilationUnit, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read source")
	}
	text, err := decode(raw)
	if err != nil {
		return nil, errors.Wrap(err, "decode source")
	}
	cu, err := l.Parser.Parse(path, bytes.NewReader(text))
	if err != nil {
		return nil, errors.Wrap(err, "parse")
	}
	return cu, nil
}

// decode returns raw re-encoded as UTF-8. Valid UTF-8 passes through
// unchanged; otherwise raw is assumed Latin-1 (ISO-8859-1), the documented
// fallback, and transcoded via golang.org/x/text/encoding/charmap.
func decode(raw []byte) ([]byte, error) {
	if utf8.Valid(raw) {
		return raw, nil
	}
	out, _, err := transform.Bytes(charmap.ISO8859_1.NewDecoder(), raw)
	if err != nil {
		return nil, errors.Wrap(err, "latin-1 fallback decode")
	}
	return out, nil
}
