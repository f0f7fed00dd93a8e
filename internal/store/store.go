package store

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/core/domain"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/core/ports"
)

// Repository is the contract every configuration backend implements.
type Repository interface {
	ports.ConfigRepository
}

var errEmptyDocument = errors.New("configuration document is empty")

// DecodeAggregate parses a stored document. It is all or nothing: a document
// that does not parse is an error, never a partially filled aggregate.
func DecodeAggregate(data []byte) (*domain.Aggregate, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, domain.StorageError("Configuration is unreadable", errEmptyDocument)
	}

	var agg domain.Aggregate
	if err := json.Unmarshal(data, &agg); err != nil {
		return nil, domain.StorageError("Configuration is unreadable", err)
	}
	agg.Normalize()
	return &agg, nil
}

// EncodeAggregate renders the document written to disk.
func EncodeAggregate(agg *domain.Aggregate) ([]byte, error) {
	data, err := json.MarshalIndent(agg, "", "  ")
	if err != nil {
		return nil, domain.StorageError("Failed to encode configuration", err)
	}
	return append(data, '\n'), nil
}
