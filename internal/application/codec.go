package application

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SnapshotSchemaVersion tags every persisted aggregate.
const SnapshotSchemaVersion = 1

type snapshotRecord struct {
	SchemaVersion int             `json:"schemaVersion"`
	SavedAt       time.Time       `json:"savedAt"`
	Data          json.RawMessage `json:"data"`
}

var errEmptySnapshot = errors.New("decode snapshot: empty data")

// EncodeSnapshot serialises the aggregate inside a versioned envelope.
func EncodeSnapshot(data StoredData, savedAt time.Time) ([]byte, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode stored data: %w", err)
	}
	payload, err := json.Marshal(snapshotRecord{
		SchemaVersion: SnapshotSchemaVersion,
		SavedAt:       savedAt,
		Data:          body,
	})
	if err != nil {
		return nil, fmt.Errorf("encode snapshot envelope: %w", err)
	}
	return payload, nil
}

// DecodeSnapshot reads a persisted aggregate. Records without a schema
// version are treated as a bare aggregate written before versioning existed.
func DecodeSnapshot(payload []byte) (StoredData, error) {
	var header struct {
		SchemaVersion *int            `json:"schemaVersion"`
		Data          json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(payload, &header); err != nil {
		return StoredData{}, fmt.Errorf("decode snapshot: %w", err)
	}

	body := payload
	if header.SchemaVersion != nil {
		if *header.SchemaVersion > SnapshotSchemaVersion || *header.SchemaVersion < 1 {
			return StoredData{}, fmt.Errorf("%w: %d", ErrUnsupportedSchema, *header.SchemaVersion)
		}
		body = header.Data
	}

	var data StoredData
	if len(body) == 0 {
		return StoredData{}, errEmptySnapshot
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return StoredData{}, fmt.Errorf("decode stored data: %w", err)
	}
	return data, nil
}
