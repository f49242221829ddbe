package versioned

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	Meta
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func (widget) Table() string      { return "widgets" }
func (widget) SchemaVersion() int { return 2 }

type gadget struct{ Meta }

func (gadget) Table() string      { return "gadgets" }
func (gadget) SchemaVersion() int { return 1 }

func TestCapture_SelfDescribing(t *testing.T) {
	w := &widget{Meta: Meta{ID: "w1", Version: 3, CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}, Name: "bolt", Count: 7}

	snap, err := Capture(w)
	require.NoError(t, err)
	assert.Equal(t, "widgets", snap.Schema)
	assert.Equal(t, 2, snap.SchemaVersion)

	fields, err := snap.Fields()
	require.NoError(t, err)
	assert.Equal(t, "bolt", fields["name"])
	assert.Equal(t, json.Number("7"), fields["count"])
	assert.Equal(t, json.Number("3"), fields["version"])
	assert.Nil(t, fields["updated_at"])
}

func TestSnapshot_Decode(t *testing.T) {
	w := &widget{Meta: Meta{ID: "w1", Version: 1}, Name: "nut"}
	snap, err := Capture(w)
	require.NoError(t, err)

	var back widget
	require.NoError(t, snap.Decode(&back))
	assert.Equal(t, "nut", back.Name)
	assert.Equal(t, "w1", back.ID)
}

func TestSnapshot_DecodeRejectsOtherSchema(t *testing.T) {
	snap, err := Capture(&widget{Meta: Meta{ID: "w1"}})
	require.NoError(t, err)

	err = snap.Decode(&gadget{})
	assert.ErrorContains(t, err, "cannot decode")
}

func TestSnapshot_DecodeRejectsNewerSchemaVersion(t *testing.T) {
	snap := &Snapshot{Schema: "gadgets", SchemaVersion: 5, Data: json.RawMessage(`{}`)}
	err := snap.Decode(&gadget{})
	assert.ErrorContains(t, err, "newer than supported")
}

func TestSnapshot_NilFields(t *testing.T) {
	var snap *Snapshot
	fields, err := snap.Fields()
	require.NoError(t, err)
	assert.Empty(t, fields)
}
