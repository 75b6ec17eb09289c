package storage

import (
	"encoding/json"
	"fmt"
	"time"
)

const snapshotFormat = 1

// snapshot is the JSON document written by the file and S3 backends.
type snapshot struct {
	Format   int       `json:"format"`
	SavedAt  time.Time `json:"saved_at"`
	Accounts []Record  `json:"accounts"`
}

func encodeSnapshot(recs []Record, now time.Time) ([]byte, error) {
	if recs == nil {
		recs = []Record{}
	}
	data, err := json.MarshalIndent(snapshot{
		Format:   snapshotFormat,
		SavedAt:  now.UTC(),
		Accounts: recs,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

func decodeSnapshot(data []byte) ([]Record, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Format > snapshotFormat {
		return nil, fmt.Errorf("decode snapshot: unsupported format %d", snap.Format)
	}
	return snap.Accounts, nil
}
