// Package export serializes aggregate results to files and byte slices.
// Results are written either as indented JSON for human consumption or as
// LZ4-compressed JSON for storage, and can be validated against the
// embedded result schema.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pierrec/lz4/v4"

	"github.com/ghinsight/ghinsight/internal/domain"
)

// CompressedExt marks a file as LZ4-compressed JSON
const CompressedExt = ".lz4"

// Marshal renders a result as indented JSON
func Marshal(result *domain.AggregateResult) ([]byte, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return data, nil
}

// Compress wraps data in an LZ4 frame
func Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("failed to compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish compression: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress unwraps an LZ4 frame produced by Compress
func Decompress(data []byte) ([]byte, error) {
	zr := lz4.NewReader(bytes.NewReader(data))
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress: %w", err)
	}
	return out, nil
}

// EncodeCompressed renders a result as an LZ4-compressed JSON document.
// This is the storage encoding for persisted runs.
func EncodeCompressed(result *domain.AggregateResult) ([]byte, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return Compress(data)
}

// DecodeCompressed reverses EncodeCompressed
func DecodeCompressed(data []byte) (*domain.AggregateResult, error) {
	raw, err := Decompress(data)
	if err != nil {
		return nil, err
	}
	var result domain.AggregateResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return &result, nil
}

// WriteFile writes a result to path. A path ending in .lz4 gets the
// compressed encoding, anything else gets indented JSON.
func WriteFile(path string, result *domain.AggregateResult) error {
	var data []byte
	var err error
	if strings.HasSuffix(path, CompressedExt) {
		data, err = EncodeCompressed(result)
	} else {
		data, err = Marshal(result)
	}
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// ReadFile reads a result written by WriteFile, choosing the decoding by
// file extension
func ReadFile(path string) (*domain.AggregateResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if strings.HasSuffix(path, CompressedExt) {
		return DecodeCompressed(data)
	}
	var result domain.AggregateResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", path, err)
	}
	return &result, nil
}
