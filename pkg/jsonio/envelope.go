// Package jsonio implements the Hyperstore JSON Loader (spec.md §3,
// §4.11, §6): a bidirectional translator between the compressed
// envelope form and a Domain's graph, plus a POCO form accepting
// $id/$ref back-references. Loading always runs inside a session with
// mode Loading, so the Undo Manager never records it (spec.md §4.10).
//
// Modeled on the teacher's Mimir export/import pair
// (pkg/storage/mimir_loader.go): decode into plain structs, then apply
// in bulk-friendly order (nodes before edges), collecting per-item
// errors into a result rather than stopping at the first bad record;
// any error still marks the load's session aborted (rolled back through
// the session manager's rollback hook) and is returned — generalized
// here from Mimir's fixed node/relationship
// shape to Hyperstore's schema-addressed entities/relationships.
package jsonio

import (
	"context"
	"encoding/json"

	"github.com/orneryd/hyperstore/pkg/domain"
	"github.com/orneryd/hyperstore/pkg/events"
	"github.com/orneryd/hyperstore/pkg/herrors"
)

// StateDeleted is the envelope entity/relationship "state" marker
// meaning the record is a removal rather than an upsert (spec.md §6).
const StateDeleted = "D"

// PropertyDecl is one {name, value} pair from the envelope form.
type PropertyDecl struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// SchemaElementDecl names one element within a SchemaDecl block.
type SchemaElementDecl struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// SchemaDecl is one `schemas[]` block; its elements are addressable by
// numeric index from entity/relationship `schema` fields (spec.md §6).
type SchemaDecl struct {
	Name     string              `json:"name,omitempty"`
	Elements []SchemaElementDecl `json:"elements"`
}

// EntityDecl is one envelope entity record.
type EntityDecl struct {
	ID         string         `json:"id"`
	Schema     any            `json:"schema"`
	State      string         `json:"state,omitempty"`
	Version    int64          `json:"v,omitempty"`
	Properties []PropertyDecl `json:"properties,omitempty"`
}

// RelationshipDecl is one envelope relationship record.
type RelationshipDecl struct {
	ID          string         `json:"id"`
	Schema      any            `json:"schema"`
	StartID     string         `json:"startId"`
	EndID       string         `json:"endId"`
	EndSchemaID string         `json:"endSchemaId,omitempty"`
	State       string         `json:"state,omitempty"`
	Version     int64          `json:"v,omitempty"`
	Properties  []PropertyDecl `json:"properties,omitempty"`
}

// Envelope is the compressed round-trip form of spec.md §6.
type Envelope struct {
	Schemas       []SchemaDecl       `json:"schemas,omitempty"`
	Entities      []EntityDecl       `json:"entities"`
	Relationships []RelationshipDecl `json:"relationships,omitempty"`
}

// Result carries load statistics and per-record errors, mirroring the
// teacher's MimirImportResult.
type Result struct {
	EntitiesLoaded      int
	RelationshipsLoaded int
	Removed             int
	Errors              []string
}

// LoadEnvelope decodes data as an Envelope and applies it to dom
// (spec.md §4.11): entities before relationships, inside a single
// Loading-mode session.
func LoadEnvelope(dom *domain.Domain, data []byte) (*Result, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, herrors.Wrap(herrors.InvalidArgument, err, "decoding envelope JSON")
	}
	return ApplyEnvelope(dom, &env)
}

// ApplyEnvelope applies an already-decoded Envelope to dom.
func ApplyEnvelope(dom *domain.Domain, env *Envelope) (*Result, error) {
	flat := flattenSchemaIDs(env.Schemas)
	result := &Result{}

	s := dom.Sessions().Begin(events.Loading)
	ok := true

	for _, ent := range env.Entities {
		if err := applyEntity(dom, s, flat, ent, result); err != nil {
			ok = false
			result.Errors = append(result.Errors, err.Error())
		}
	}
	for _, rel := range env.Relationships {
		if err := applyRelationship(dom, s, flat, rel, result); err != nil {
			ok = false
			result.Errors = append(result.Errors, err.Error())
		}
	}

	if err := dom.Sessions().Close(context.Background(), s, ok); err != nil && ok {
		return result, err
	}
	if !ok {
		return result, herrors.New(herrors.InvalidArgument, "load envelope: %d error(s), first: %s", len(result.Errors), result.Errors[0])
	}
	return result, nil
}

func applyEntity(dom *domain.Domain, s sessionAppender, flat []string, decl EntityDecl, result *Result) error {
	schemaID, err := resolveSchema(decl.Schema, flat)
	if err != nil {
		return err
	}

	if decl.State == StateDeleted {
		return removeByID(dom, s, decl.ID, decl.Version, result)
	}

	add := events.NewAddEntity(dom.Name(), decl.ID, schemaID, decl.Version, true)
	if err := dom.Dispatch(add); err != nil {
		return err
	}
	s.Append(add)

	if err := applyProperties(dom, s, decl.ID, schemaID, decl.Version, decl.Properties); err != nil {
		return err
	}
	result.EntitiesLoaded++
	return nil
}

func applyRelationship(dom *domain.Domain, s sessionAppender, flat []string, decl RelationshipDecl, result *Result) error {
	schemaID, err := resolveSchema(decl.Schema, flat)
	if err != nil {
		return err
	}

	if decl.State == StateDeleted {
		return removeByID(dom, s, decl.ID, decl.Version, result)
	}

	start, ok := dom.Graph().GetNode(decl.StartID)
	if !ok {
		return herrors.New(herrors.InvalidElement, "relationship %q: start %q not live", decl.ID, decl.StartID)
	}

	add := events.NewAddRelationship(dom.Name(), decl.ID, schemaID, decl.StartID, start.SchemaID, decl.EndID, decl.EndSchemaID, decl.Version, true)
	if err := dom.Dispatch(add); err != nil {
		return err
	}
	s.Append(add)

	if err := applyProperties(dom, s, decl.ID, schemaID, decl.Version, decl.Properties); err != nil {
		return err
	}
	result.RelationshipsLoaded++
	return nil
}

func applyProperties(dom *domain.Domain, s sessionAppender, ownerID, schemaID string, version int64, props []PropertyDecl) error {
	for _, p := range props {
		e := events.NewChangePropertyValue(dom.Name(), ownerID, schemaID, p.Name, p.Value, nil, false, version)
		if err := dom.Dispatch(e); err != nil {
			return err
		}
		s.Append(e)
	}
	return nil
}

func removeByID(dom *domain.Domain, s sessionAppender, id string, version int64, result *Result) error {
	evs, err := dom.Graph().RemoveNode(id, version, s.Mode())
	if err != nil {
		return herrors.Wrap(herrors.InvalidElement, err, "remove %q", id)
	}
	for _, e := range evs {
		s.Append(e)
	}
	result.Removed++
	return nil
}

// sessionAppender is the slice of *session.Session this package needs;
// kept narrow so apply* helpers don't have to import pkg/session just
// for a type name.
type sessionAppender interface {
	Append(events.Event)
	Mode() events.Mode
}

func flattenSchemaIDs(schemas []SchemaDecl) []string {
	var ids []string
	for _, decl := range schemas {
		for _, el := range decl.Elements {
			id := el.ID
			if id == "" {
				if decl.Name != "" {
					id = decl.Name + ":" + el.Name
				} else {
					id = el.Name
				}
			}
			ids = append(ids, id)
		}
	}
	return ids
}

func resolveSchema(raw any, flat []string) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case float64:
		idx := int(v)
		if idx < 0 || idx >= len(flat) {
			return "", herrors.New(herrors.InvalidArgument, "schema index %d out of range", idx)
		}
		return flat[idx], nil
	default:
		return "", herrors.New(herrors.InvalidArgument, "invalid schema reference %v", raw)
	}
}
