// Package events implements the Hyperstore event model (spec.md §2.3,
// §4.7): a closed, tagged union of change events, each carrying enough
// information to be replayed or inverted.
//
// Events are a plain struct with a Kind discriminant rather than a
// hierarchy of subclasses — spec.md §9 ("Tagged events") calls this out
// explicitly: "avoid subclass dispatch in favor of a kind discriminant
// plus a per-kind inverse function." CorrelationID mirrors the
// correlation/causation fields seen across the pack's event-sourcing
// examples (e.g. flowgraph's event.Metadata), narrowed here to the one
// field spec.md actually needs: CorrelationID == SessionID, used to
// suppress re-dispatch of echoed events (spec.md §4.7).
package events

// Kind discriminates the six event payload shapes of spec.md §4.7.
type Kind string

const (
	AddEntity           Kind = "AddEntity"
	RemoveEntity        Kind = "RemoveEntity"
	AddRelationship     Kind = "AddRelationship"
	RemoveRelationship  Kind = "RemoveRelationship"
	ChangePropertyValue Kind = "ChangePropertyValue"
	RemoveProperty      Kind = "RemoveProperty"
)

// Event is the single concrete event type for every Kind. Fields not
// meaningful for a given Kind are left zero-valued; see the table in
// spec.md §4.7 for which fields each Kind populates.
type Event struct {
	Kind      Kind
	Domain    string
	ID        string
	SchemaID  string
	SessionID int64
	Version   int64

	// TopLevel is the "TL" flag from spec.md §3: true only for the
	// event directly requested by the caller, false for events
	// produced by cascade traversal (spec.md §4.4).
	TopLevel bool

	// AddRelationship / RemoveRelationship payload.
	StartID       string
	StartSchemaID string
	EndID         string
	EndSchemaID   string

	// ChangePropertyValue / RemoveProperty payload.
	PropertyName string
	Value        any
	OldValue     any

	// PropertyExisted records whether PropertyName already had a live
	// value immediately before this ChangePropertyValue was dispatched.
	// Reverse uses it to decide whether undoing the change should
	// restore a value or remove the property node entirely (spec.md §8
	// scenario 2: undoing a first-ever set leaves no property node).
	PropertyExisted bool

	// RestoresAbsence is true when dispatching this ChangePropertyValue
	// should remove the property node rather than set it to Value.
	// Only Reverse produces an event with this set.
	RestoresAbsence bool
}

// Name is the eventName string discriminator used by dispatchers
// (spec.md §4.7).
func (e Event) Name() string { return string(e.Kind) }

// NewAddEntity builds an AddEntity event (spec.md §4.7 table).
func NewAddEntity(domain, id, schemaID string, version int64, topLevel bool) Event {
	return Event{Kind: AddEntity, Domain: domain, ID: id, SchemaID: schemaID, Version: version, TopLevel: topLevel}
}

// NewRemoveEntity builds a RemoveEntity event.
func NewRemoveEntity(domain, id, schemaID string, version int64, topLevel bool) Event {
	return Event{Kind: RemoveEntity, Domain: domain, ID: id, SchemaID: schemaID, Version: version, TopLevel: topLevel}
}

// NewAddRelationship builds an AddRelationship event.
func NewAddRelationship(domain, id, schemaID, startID, startSchemaID, endID, endSchemaID string, version int64, topLevel bool) Event {
	return Event{
		Kind: AddRelationship, Domain: domain, ID: id, SchemaID: schemaID, Version: version, TopLevel: topLevel,
		StartID: startID, StartSchemaID: startSchemaID, EndID: endID, EndSchemaID: endSchemaID,
	}
}

// NewRemoveRelationship builds a RemoveRelationship event.
func NewRemoveRelationship(domain, id, schemaID, startID, startSchemaID, endID, endSchemaID string, version int64, topLevel bool) Event {
	return Event{
		Kind: RemoveRelationship, Domain: domain, ID: id, SchemaID: schemaID, Version: version, TopLevel: topLevel,
		StartID: startID, StartSchemaID: startSchemaID, EndID: endID, EndSchemaID: endSchemaID,
	}
}

// NewChangePropertyValue builds a ChangePropertyValue event.
// propertyExisted records whether the property already had a live
// value before this change (false for a property's first-ever set).
func NewChangePropertyValue(domain, id, schemaID, property string, value, oldValue any, propertyExisted bool, version int64) Event {
	return Event{
		Kind: ChangePropertyValue, Domain: domain, ID: id, SchemaID: schemaID, Version: version, TopLevel: true,
		PropertyName: property, Value: value, OldValue: oldValue, PropertyExisted: propertyExisted,
	}
}

// NewRemoveProperty builds a RemoveProperty event.
func NewRemoveProperty(domain, id, schemaID, property string, value any, version int64) Event {
	return Event{
		Kind: RemoveProperty, Domain: domain, ID: id, SchemaID: schemaID, Version: version, TopLevel: true,
		PropertyName: property, Value: value,
	}
}

// Reverse returns the deterministic inverse of e, stamped with
// sessionID as the session that produced the reversal (spec.md §4.7's
// getReverseEvent(sessionId)). Applying e then e.Reverse(s) restores
// the pre-state of the affected node.
func (e Event) Reverse(sessionID int64) Event {
	switch e.Kind {
	case AddEntity:
		return Event{Kind: RemoveEntity, Domain: e.Domain, ID: e.ID, SchemaID: e.SchemaID, Version: e.Version, SessionID: sessionID, TopLevel: e.TopLevel}
	case RemoveEntity:
		return Event{Kind: AddEntity, Domain: e.Domain, ID: e.ID, SchemaID: e.SchemaID, Version: e.Version, SessionID: sessionID, TopLevel: e.TopLevel}
	case AddRelationship:
		r := e
		r.Kind = RemoveRelationship
		r.SessionID = sessionID
		return r
	case RemoveRelationship:
		r := e
		r.Kind = AddRelationship
		r.SessionID = sessionID
		return r
	case ChangePropertyValue:
		return Event{
			Kind: ChangePropertyValue, Domain: e.Domain, ID: e.ID, SchemaID: e.SchemaID, Version: e.Version, SessionID: sessionID, TopLevel: true,
			PropertyName: e.PropertyName, Value: e.OldValue, OldValue: e.Value,
			// Undoing e restores whatever existed immediately before it
			// (present, unless e itself had nothing to revert from); the
			// produced event's own PropertyExisted records the state right
			// after e, for any further reversal down the line.
			RestoresAbsence: !e.PropertyExisted,
			PropertyExisted: !e.RestoresAbsence,
		}
	case RemoveProperty:
		// Inverse of a property removal is a ChangePropertyValue from
		// nil back to the removed value (spec.md §4.7 table).
		return Event{
			Kind: ChangePropertyValue, Domain: e.Domain, ID: e.ID, SchemaID: e.SchemaID, Version: e.Version, SessionID: sessionID, TopLevel: true,
			PropertyName: e.PropertyName, Value: e.Value, OldValue: nil,
		}
	default:
		return e
	}
}
