// Package codec provides wire encoding for cached values: JSON serialization
// plus conditional zlib compression with a self-describing sentinel prefix.
package codec

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// CompressionSentinel prefixes compressed payloads so a reader can
// distinguish them from plain JSON without a side channel.
const CompressionSentinel = "COMPRESSED::"

const (
	// DefaultCompressionThreshold is the payload size in bytes above which
	// compression is attempted.
	DefaultCompressionThreshold = 1024

	// DefaultMinSavingRatio is the minimum fraction of bytes compression
	// must save versus the raw payload, otherwise the raw form is kept.
	DefaultMinSavingRatio = 0.10
)

var (
	// ErrDecode indicates a stored payload could not be decoded.
	// This is a data-integrity error and is never swallowed.
	ErrDecode = errors.New("decode cache payload")
)

// Marshal serializes a value to its wire form.
// A nil value encodes to the literal null token, never an empty buffer.
func Marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	return data, nil
}

// Unmarshal deserializes wire-form bytes into out.
// Malformed input is reported as ErrDecode.
func Unmarshal(data []byte, out any) error {
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return nil
}

// ShouldCompress reports whether an encoded payload exceeds the
// compression threshold.
func ShouldCompress(data []byte, threshold int) bool {
	return len(data) > threshold
}

// Compress deflates a payload and wraps it in a sentinel-tagged base64
// envelope. If the envelope does not save at least minSavingRatio of the
// raw size, the raw payload is returned unchanged; compressing
// incompressible data wastes CPU on both ends.
func Compress(data []byte, minSavingRatio float64) []byte {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, zlib.BestSpeed)
	if err != nil {
		return data
	}
	if _, err := w.Write(data); err != nil {
		return data
	}
	if err := w.Close(); err != nil {
		return data
	}

	envelope := make([]byte, 0, len(CompressionSentinel)+base64.StdEncoding.EncodedLen(buf.Len()))
	envelope = append(envelope, CompressionSentinel...)
	envelope = append(envelope, base64.StdEncoding.EncodeToString(buf.Bytes())...)

	saved := 1 - float64(len(envelope))/float64(len(data))
	if saved < minSavingRatio {
		return data
	}
	return envelope
}

// Decompress reverses Compress. Payloads without the sentinel are returned
// as-is. Corrupt or truncated compressed payloads fail with ErrDecode
// rather than returning partial data.
func Decompress(data []byte) ([]byte, error) {
	if !IsCompressed(data) {
		return data, nil
	}

	encoded := data[len(CompressionSentinel):]
	compressed, err := base64.StdEncoding.DecodeString(string(encoded))
	if err != nil {
		return nil, fmt.Errorf("%w: base64: %v", ErrDecode, err)
	}

	r, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("%w: zlib header: %v", ErrDecode, err)
	}
	defer r.Close()

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: zlib stream: %v", ErrDecode, err)
	}
	return raw, nil
}

// IsCompressed reports whether a payload carries the compression sentinel.
// It never fails on malformed input.
func IsCompressed(data []byte) bool {
	return bytes.HasPrefix(data, []byte(CompressionSentinel))
}

// Encode serializes a value and conditionally compresses it.
// threshold <= 0 disables compression for this call.
func Encode(v any, threshold int, minSavingRatio float64) ([]byte, error) {
	data, err := Marshal(v)
	if err != nil {
		return nil, err
	}
	if threshold > 0 && ShouldCompress(data, threshold) {
		data = Compress(data, minSavingRatio)
	}
	return data, nil
}

// Decode detects and reverses compression, then deserializes into out.
func Decode(data []byte, out any) error {
	raw, err := Decompress(data)
	if err != nil {
		return err
	}
	return Unmarshal(raw, out)
}
