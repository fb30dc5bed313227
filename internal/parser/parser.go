package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	stderrors "errors" // Standard errors package

	"github.com/mcncl/treedit/internal/errors" // Custom errors package
	"github.com/mcncl/treedit/internal/models"
	"github.com/tidwall/jsonc"
)

// Options controls how input bytes are decoded.
type Options struct {
	// AllowComments strips // and /* */ comments and trailing commas
	// before decoding, so hand-edited JSONC payload files load as-is.
	AllowComments bool
}

// Parse reads a single JSON document from reader.
func Parse(reader io.Reader, opts Options) (models.Document, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return models.Document{}, errors.NewInputError("failed to read input", err)
	}
	return ParseBytes(data, opts)
}

// ParseBytes decodes data into a Document, keeping object members in source
// order.
func ParseBytes(data []byte, opts Options) (models.Document, error) {
	if opts.AllowComments {
		data = jsonc.ToJSON(data)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return models.Document{}, errors.NewParsingError("input is empty or contains only whitespace", errors.ErrEmptyInput)
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	root, err := models.ReadValue(decoder)
	if err != nil {
		return models.Document{}, classify(err, decoder)
	}

	// Anything other than whitespace after the first value is rejected.
	if _, err := decoder.Token(); !stderrors.Is(err, io.EOF) {
		if err != nil {
			return models.Document{}, errors.NewParsingError("invalid trailing data after first JSON value", err)
		}
		return models.Document{}, errors.NewParsingError("multiple JSON values found at the root", errors.ErrMultipleJSON)
	}

	return models.Document{
		Root:        root,
		RootIsArray: root.Kind() == models.KindArray,
	}, nil
}

// classify turns a decoding failure into a parsing error with position
// information where the decoder provides it.
func classify(err error, decoder *json.Decoder) error {
	var syntaxError *json.SyntaxError
	if stderrors.As(err, &syntaxError) {
		return errors.NewParsingError(
			fmt.Sprintf("JSON syntax error at offset %d", syntaxError.Offset),
			errors.ErrInvalidJSON,
		)
	}
	if stderrors.Is(err, io.EOF) || stderrors.Is(err, io.ErrUnexpectedEOF) {
		return errors.NewParsingError(
			fmt.Sprintf("unexpected end of input at offset %d", decoder.InputOffset()),
			errors.ErrInvalidJSON,
		)
	}
	return errors.NewParsingError("failed to decode JSON", err)
}

// ParseString parses JSON from a string
func ParseString(jsonString string, opts Options) (models.Document, error) {
	if strings.TrimSpace(jsonString) == "" {
		return models.Document{}, errors.NewInputError("input string is empty", errors.ErrEmptyInput)
	}
	return ParseBytes([]byte(jsonString), opts)
}

// ParseFile parses JSON from a file path
func ParseFile(filePath string, opts Options) (models.Document, error) {
	if strings.TrimSpace(filePath) == "" {
		return models.Document{}, errors.NewInputError("file path is empty", errors.ErrInvalidFilePath)
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return models.Document{}, errors.NewInputError(
				fmt.Sprintf("file '%s' not found", filePath),
				errors.ErrFileNotFound,
			)
		}
		return models.Document{}, errors.NewInputError(
			fmt.Sprintf("failed to read file '%s'", filePath),
			err,
		)
	}
	if len(data) == 0 {
		return models.Document{}, errors.NewInputError(
			fmt.Sprintf("input file '%s' is empty", filePath),
			errors.ErrFileEmpty,
		)
	}
	if ext := strings.ToLower(filepath.Ext(filePath)); ext == ".jsonc" {
		opts.AllowComments = true
	}

	return ParseBytes(data, opts)
}

// RequireContainer rejects documents whose root is a bare scalar. The tree
// builder only accepts objects and arrays at the root.
func RequireContainer(doc models.Document) error {
	if !doc.Root.Kind().IsContainer() {
		return errors.NewParsingError(
			fmt.Sprintf("document root is %s", doc.Root.Kind()),
			errors.ErrScalarRoot,
		)
	}
	return nil
}
