package schema

// ConstraintKind distinguishes Check constraints (run on property set
// and on commit) from Validate constraints (run only on commit),
// spec.md §4.3.
type ConstraintKind string

const (
	Check    ConstraintKind = "Check"
	Validate ConstraintKind = "Validate"
)

// Accessor is the minimal read surface a constraint condition needs
// from the element it is evaluating. Domain's ModelElement implements
// it; schema stays independent of the domain/graph packages so a
// constraint body can be authored (by the caller, per spec.md §1 —
// "concrete constraint bodies supplied by users" are an external,
// opaque collaborator) against this narrow interface alone.
type Accessor interface {
	ElementID() string
	ElementSchemaID() string
	PropertyValue(name string) (any, bool)
}

// ConstraintContext is passed to a Condition: the element under
// evaluation, the schema element the constraint is declared on, the
// property name (empty for element-level constraints), and a
// Diagnostics collector for Validate-kind failures (spec.md §4.3).
type ConstraintContext struct {
	Element     Accessor
	Schema      *Element
	Property    string
	Diagnostics *Diagnostics
}

// Condition is the opaque, user-supplied predicate body. It returns
// true when the constraint is satisfied.
type Condition func(ctx *ConstraintContext) bool

// Constraint is the {kind, condition, message, errorFlag} tuple from
// spec.md §4.3. ErrorFlag only affects Check constraints: failing a
// Check with ErrorFlag true aborts the enclosing session (spec.md
// §4.6); a Check failure without ErrorFlag, and any Validate failure,
// is recorded as a non-aborting diagnostic.
type Constraint struct {
	Kind      ConstraintKind
	Condition Condition
	Message   string
	ErrorFlag bool
	Property  string // empty for an entity/relationship-level constraint
}

// Diagnostic records one failed constraint evaluation.
type Diagnostic struct {
	SchemaID  string
	ElementID string
	Property  string
	Message   string
	Kind      ConstraintKind
}

// Diagnostics is an append-only collector of constraint failures,
// surfaced on session-completed without aborting the session (spec.md
// §4.6, §7).
type Diagnostics struct {
	entries []Diagnostic
}

// Add records a diagnostic.
func (d *Diagnostics) Add(diag Diagnostic) {
	d.entries = append(d.entries, diag)
}

// Entries returns every diagnostic recorded so far, in recording order.
func (d *Diagnostics) Entries() []Diagnostic {
	return d.entries
}

// RunChecks evaluates every Check constraint declared on el (and, for
// a property-scoped evaluation, scoped to that property name) against
// accessor. It returns the first constraint whose condition failed and
// whose ErrorFlag is true (the session-aborting case), plus every
// failure (error or not) as diagnostics.
//
// property == "" runs element-level Check constraints (Property ==
// "" on the Constraint); otherwise only constraints declared for that
// property are run.
func RunChecks(el *Element, accessor Accessor, property string, diags *Diagnostics) (aborting *Constraint) {
	for _, c := range el.Constraints() {
		if c.Kind != Check {
			continue
		}
		if c.Property != property {
			continue
		}
		ctx := &ConstraintContext{Element: accessor, Schema: el, Property: property, Diagnostics: diags}
		if c.Condition(ctx) {
			continue
		}
		diags.Add(Diagnostic{SchemaID: el.ID, ElementID: accessor.ElementID(), Property: property, Message: c.Message, Kind: Check})
		if c.ErrorFlag && aborting == nil {
			cc := c
			aborting = &cc
		}
	}
	return aborting
}

// RunValidations evaluates every Validate constraint declared on el
// against accessor. Violations are appended to diags; Validate never
// aborts the session (spec.md §4.3, §4.6).
func RunValidations(el *Element, accessor Accessor, diags *Diagnostics) {
	for _, c := range el.Constraints() {
		if c.Kind != Validate {
			continue
		}
		ctx := &ConstraintContext{Element: accessor, Schema: el, Property: c.Property, Diagnostics: diags}
		if c.Condition(ctx) {
			continue
		}
		diags.Add(Diagnostic{SchemaID: el.ID, ElementID: accessor.ElementID(), Property: c.Property, Message: c.Message, Kind: Validate})
	}
}
