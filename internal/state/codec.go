package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/recurse/pkg/models"
)

// encodeDocument writes v as two-space indented JSON without HTML escaping,
// so goals in any language stay readable on disk.
func encodeDocument(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeRegistry(data []byte) (*models.Registry, error) {
	var reg models.Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("decode registry: %w", err)
	}
	if reg.Nodes == nil {
		reg.Nodes = models.NewNodeSet()
	}
	return &reg, nil
}

func decodeFailures(data []byte) (*models.FailureLog, error) {
	var log models.FailureLog
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("decode failure log: %w", err)
	}
	if log.Failures == nil {
		log.Failures = []models.Failure{}
	}
	return &log, nil
}

// peekRevision reads only the revision field of an encoded registry.
func peekRevision(data []byte) (string, error) {
	var head struct {
		Revision string `json:"revision"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return "", fmt.Errorf("decode registry revision: %w", err)
	}
	return head.Revision, nil
}

// stamped returns an encoded copy of reg with a fresh revision and
// UpdatedAt. The caller applies the stamp to reg only after a successful write.
func stamped(reg *models.Registry, now time.Time) ([]byte, string, error) {
	next := *reg
	next.UpdatedAt = now
	next.Revision = uuid.New().String()
	data, err := encodeDocument(&next)
	if err != nil {
		return nil, "", fmt.Errorf("encode registry: %w", err)
	}
	return data, next.Revision, nil
}
