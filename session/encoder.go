package session

import (
	"encoding/json"
	"errors"
)

// CurrentSchemaVersion is the persisted snapshot schema version. Older
// snapshots decode as long as their version is recognized; anything else is
// treated as corrupt and discarded.
const CurrentSchemaVersion = 1

var errSnapshotCorrupt = errors.New("session snapshot corrupt")

// persistedState is the durable representation of the session. IsLoading is
// deliberately absent: a fresh process always starts loading until the
// bootstrapper resolves the session.
type persistedState struct {
	SchemaVersion   int       `json:"schema_version"`
	Identity        *Identity `json:"identity"`
	AccessToken     string    `json:"access_token,omitempty"`
	RefreshToken    string    `json:"refresh_token,omitempty"`
	IsAuthenticated bool      `json:"is_authenticated"`
}

// Encode serializes the durable fields of a snapshot.
func Encode(snap Snapshot) ([]byte, error) {
	state := persistedState{
		SchemaVersion:   CurrentSchemaVersion,
		Identity:        snap.Identity,
		AccessToken:     snap.AccessToken,
		RefreshToken:    snap.RefreshToken,
		IsAuthenticated: snap.IsAuthenticated,
	}
	return json.Marshal(state)
}

// Decode parses a durable snapshot. The authenticated flag is re-derived
// from the identity on load, so a tampered or inconsistent snapshot can
// never produce a state where the two disagree.
func Decode(data []byte) (Snapshot, error) {
	var state persistedState
	if err := json.Unmarshal(data, &state); err != nil {
		return Snapshot{}, errSnapshotCorrupt
	}
	if state.SchemaVersion != CurrentSchemaVersion {
		return Snapshot{}, errSnapshotCorrupt
	}

	return Snapshot{
		Identity:        state.Identity,
		AccessToken:     state.AccessToken,
		RefreshToken:    state.RefreshToken,
		IsAuthenticated: state.Identity != nil,
		IsLoading:       true,
	}, nil
}
