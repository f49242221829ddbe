package versioned

import (
	"bytes"
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// Snapshot is the self-describing serialized state of an entity as stored in
// audit entries. Schema and SchemaVersion let old snapshots be read back
// correctly after the entity's shape changes.
type Snapshot struct {
	Schema        string          `json:"schema"`
	SchemaVersion int             `json:"schema_version"`
	Data          json.RawMessage `json:"data"`
}

// Capture serializes the full current state of e.
func Capture(e Entity) (*Snapshot, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrapf(err, "capture %s snapshot", e.Table())
	}
	return &Snapshot{Schema: e.Table(), SchemaVersion: e.SchemaVersion(), Data: data}, nil
}

// Decode unmarshals the snapshot into dst after checking that it was written
// for the same collection and a schema version dst understands.
func (s *Snapshot) Decode(dst Entity) error {
	if s == nil {
		return errors.New("snapshot: nil snapshot")
	}
	if s.Schema != dst.Table() {
		return errors.Newf("snapshot: schema %q cannot decode into %q", s.Schema, dst.Table())
	}
	if s.SchemaVersion > dst.SchemaVersion() {
		return errors.Newf("snapshot: %s schema version %d is newer than supported %d",
			s.Schema, s.SchemaVersion, dst.SchemaVersion())
	}
	return json.Unmarshal(s.Data, dst)
}

// Fields returns the snapshot data as a flat field map. Numbers are kept as
// json.Number so that comparisons are exact.
func (s *Snapshot) Fields() (map[string]any, error) {
	if s == nil {
		return map[string]any{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(s.Data))
	dec.UseNumber()
	out := map[string]any{}
	if err := dec.Decode(&out); err != nil {
		return nil, errors.Wrapf(err, "decode %s snapshot fields", s.Schema)
	}
	return out, nil
}
