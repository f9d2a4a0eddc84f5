package events_test

import (
	"testing"

	"github.com/orneryd/hyperstore/pkg/events"
	"github.com/stretchr/testify/assert"
)

func TestReverse_AddEntityRemoveEntity(t *testing.T) {
	add := events.NewAddEntity("lib", "lib:1", "lib:Book", 1, true)
	rev := add.Reverse(99)

	assert.Equal(t, events.RemoveEntity, rev.Kind)
	assert.Equal(t, add.ID, rev.ID)
	assert.Equal(t, add.SchemaID, rev.SchemaID)
	assert.Equal(t, int64(99), rev.SessionID)

	back := rev.Reverse(100)
	assert.Equal(t, events.AddEntity, back.Kind)
}

func TestReverse_AddRelationshipRemoveRelationship(t *testing.T) {
	add := events.NewAddRelationship("lib", "lib:5", "lib:Library_Books", "lib:1", "lib:Library", "lib:2", "lib:Book", 1, true)
	rev := add.Reverse(7)

	assert.Equal(t, events.RemoveRelationship, rev.Kind)
	assert.Equal(t, add.StartID, rev.StartID)
	assert.Equal(t, add.EndID, rev.EndID)
	assert.Equal(t, add.EndSchemaID, rev.EndSchemaID)
}

func TestReverse_ChangePropertyValueSwapsValues(t *testing.T) {
	change := events.NewChangePropertyValue("lib", "lib:1", "lib:Book", "title", "New Title", "Old Title", true, 2)
	rev := change.Reverse(3)

	assert.Equal(t, events.ChangePropertyValue, rev.Kind)
	assert.Equal(t, "Old Title", rev.Value)
	assert.Equal(t, "New Title", rev.OldValue)
	assert.True(t, rev.TopLevel)
	assert.False(t, rev.RestoresAbsence, "the property existed before change, so undo restores a value")
}

// spec.md §8 scenario 2: undoing a property's first-ever set must
// leave no property node behind, not a node holding nil.
func TestReverse_ChangePropertyValueFirstSetRestoresAbsence(t *testing.T) {
	change := events.NewChangePropertyValue("lib", "lib:1", "lib:Book", "title", "New Title", nil, false, 2)
	rev := change.Reverse(3)

	assert.True(t, rev.RestoresAbsence, "undoing a first-ever set must remove the property node")

	redo := rev.Reverse(4)
	assert.False(t, redo.RestoresAbsence, "redo must restore the original value")
	assert.Equal(t, "New Title", redo.Value)
}

func TestReverse_RemovePropertyBecomesChangeFromNil(t *testing.T) {
	remove := events.NewRemoveProperty("lib", "lib:1", "lib:Book", "title", "Old Title", 2)
	rev := remove.Reverse(4)

	assert.Equal(t, events.ChangePropertyValue, rev.Kind)
	assert.Equal(t, "Old Title", rev.Value)
	assert.Nil(t, rev.OldValue)
}

func TestName_ReturnsKindString(t *testing.T) {
	e := events.NewAddEntity("lib", "lib:1", "lib:Book", 1, true)
	assert.Equal(t, "AddEntity", e.Name())
}
