package ingest

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/metric"
)

var (
	// ErrInvalidJSON is returned when the body is not a decodable payload.
	ErrInvalidJSON = errors.New("invalid JSON")
	// ErrUnsupportedContentType is returned for non-JSON content types.
	ErrUnsupportedContentType = errors.New("content type must be application/json")
)

// BodyTooLargeError is returned when the request body exceeds the configured limit.
type BodyTooLargeError struct {
	Max int64
}

func (e *BodyTooLargeError) Error() string {
	return fmt.Sprintf("request body exceeds limit of %d bytes", e.Max)
}

// CheckContentType accepts application/json and +json media types.
func CheckContentType(header string) error {
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		return ErrUnsupportedContentType
	}
	if mt == "application/json" || strings.HasSuffix(mt, "+json") {
		return nil
	}
	return ErrUnsupportedContentType
}

// ReadBody reads at most limit bytes of the request body.
func ReadBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, &BodyTooLargeError{Max: limit}
		}
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrInvalidJSON)
	}
	return body, nil
}

// DecodePayload compacts body for hashing and decodes it.
func DecodePayload(body []byte) ([]byte, *metric.Payload, error) {
	canonical, err := metric.Canonicalize(body)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrInvalidJSON, err)
	}
	p, err := metric.Decode(canonical)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrInvalidJSON, err)
	}
	return canonical, p, nil
}
