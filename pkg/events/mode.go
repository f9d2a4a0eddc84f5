package events

// Mode is the session mode bitmask from spec.md §3/§4.6: Normal,
// Undo, Redo, Rollback and Loading are independent flags so a session
// can for instance be both Loading and Rollback-suppressed at once.
// Kept in this package (rather than session) because both the session
// and the hypergraph need it: the hypergraph's cascading removeNode
// suppresses cascade enumeration in Rollback/Undo/Redo mode (spec.md
// §4.4 step 2), without importing the session package.
type Mode int

const Normal Mode = 0

const (
	Undo Mode = 1 << iota
	Redo
	Rollback
	Loading
)

// Has reports whether flag is set in m.
func (m Mode) Has(flag Mode) bool { return m&flag != 0 }

// IsUndoOrRedo reports whether m has either Undo or Redo set — the
// "UndoOrRedo" composite condition spec.md §4.4/§4.10 checks.
func (m Mode) IsUndoOrRedo() bool { return m.Has(Undo) || m.Has(Redo) }
