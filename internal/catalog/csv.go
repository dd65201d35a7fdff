package catalog

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrUnreadable is returned when no supported encoding decodes the file.
var ErrUnreadable = errors.New("catalog file could not be decoded")

type textEncoding struct {
	name string
	enc  encoding.Encoding
}

// Encodings tried in order. EUC-KR and CP949 share one decoder in x/text, the
// second attempt only differs in the reported name.
var csvEncodings = []textEncoding{
	{"utf-8", nil},
	{"utf-8-sig", unicode.UTF8BOM},
	{"cp949", korean.EUCKR},
	{"euc-kr", korean.EUCKR},
}

// LoadCSV reads a catalog from a delimited file, trying each supported text
// encoding until one parses.
func LoadCSV(path, nameColumn string) (Catalog, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: catalog path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	cat, used, err := Parse(data, nameColumn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	slog.Debug("Catalog loaded", "path", path, "encoding", used, "entries", len(cat))
	return cat, nil
}

// Parse decodes CSV bytes and returns the catalog plus the encoding name that
// succeeded.
func Parse(data []byte, nameColumn string) (Catalog, string, error) {
	var lastErr error
	for _, te := range csvEncodings {
		text, err := decode(data, te)
		if err != nil {
			lastErr = err
			continue
		}
		rows, err := readRows(strings.NewReader(text))
		if err != nil {
			lastErr = err
			continue
		}
		return FromRows(rows, nameColumn), te.name, nil
	}
	if lastErr != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrUnreadable, lastErr)
	}
	return nil, "", ErrUnreadable
}

func decode(data []byte, te textEncoding) (string, error) {
	if te.enc == nil {
		if bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}) {
			return "", fmt.Errorf("utf-8: byte order mark present")
		}
		if !utf8.Valid(data) {
			return "", fmt.Errorf("utf-8: invalid byte sequence")
		}
		return string(data), nil
	}
	out, _, err := transform.Bytes(te.enc.NewDecoder(), data)
	if err != nil {
		return "", fmt.Errorf("%s: %w", te.name, err)
	}
	if !utf8.Valid(out) || bytes.ContainsRune(out, utf8.RuneError) {
		return "", fmt.Errorf("%s: undecodable bytes", te.name)
	}
	return string(out), nil
}

// readRows parses CSV text into header keyed rows.
func readRows(r io.Reader) ([]map[string]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []map[string]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		row := make(map[string]string, len(header))
		for i, key := range header {
			if i < len(rec) {
				row[key] = rec[i]
			} else {
				row[key] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
