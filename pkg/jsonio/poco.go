package jsonio

import (
	"context"
	"encoding/json"

	"github.com/orneryd/hyperstore/pkg/domain"
	"github.com/orneryd/hyperstore/pkg/events"
	"github.com/orneryd/hyperstore/pkg/herrors"
	"github.com/orneryd/hyperstore/pkg/schema"
)

// LoadPOCO decodes data as a single nested POCO object rooted at
// schemaID and creates it (and everything it references) in dom,
// inside one Loading-mode session (spec.md §4.11, §6). Nested objects
// under a reference property key are resolved via the reference's
// schema.ReferenceDescriptor; {"$ref":"k"} resolves to an object
// earlier tagged {"$id":"k"} in the same document.
func LoadPOCO(dom *domain.Domain, schemaID string, data []byte) (string, *Result, error) {
	var root map[string]any
	if err := json.Unmarshal(data, &root); err != nil {
		return "", nil, herrors.Wrap(herrors.InvalidArgument, err, "decoding POCO JSON")
	}

	result := &Result{}
	s := dom.Sessions().Begin(events.Loading)

	refs := make(map[string]string)
	id, err := applyPOCO(dom, schemaID, root, refs, result)

	if closeErr := dom.Sessions().Close(context.Background(), s, err == nil); err == nil {
		err = closeErr
	}
	return id, result, err
}

func applyPOCO(dom *domain.Domain, schemaID string, obj map[string]any, refs map[string]string, result *Result) (string, error) {
	if refKey, ok := stringField(obj, "$ref"); ok {
		id, known := refs[refKey]
		if !known {
			return "", herrors.New(herrors.InvalidArgument, "POCO: unresolved $ref %q", refKey)
		}
		return id, nil
	}

	localID, _ := stringField(obj, "id")
	el, err := dom.CreateEntity(schemaID, localID, 0)
	if err != nil {
		return "", err
	}
	if tag, ok := stringField(obj, "$id"); ok {
		refs[tag] = el.ID()
	}

	schemaEl, ok := dom.Registry().GetSchemaElement(schemaID)
	if !ok {
		return "", herrors.New(herrors.UnknownSchema, "POCO: unknown schema %q", schemaID)
	}

	for key, value := range obj {
		switch key {
		case "id", "$id", "$ref", "$schema":
			continue
		}

		if ref, ok := schemaEl.GetReference(key); ok {
			if err := applyPOCOReference(dom, el, ref, value, refs, result); err != nil {
				return "", err
			}
			continue
		}

		if prop, ok := schemaEl.GetProperty(key, true); ok {
			if err := dom.SetPropertyValue(el.ID(), prop, value, 0); err != nil {
				return "", err
			}
		}
	}

	result.EntitiesLoaded++
	return el.ID(), nil
}

func applyPOCOReference(dom *domain.Domain, owner *domain.ModelElement, ref *schema.ReferenceDescriptor, value any, refs map[string]string, result *Result) error {
	rel, ok := dom.Registry().GetSchemaRelationship(ref.RelationshipID)
	if !ok {
		return herrors.New(herrors.UnknownSchema, "POCO: unknown relationship %q", ref.RelationshipID)
	}

	create := func(targetObj map[string]any) error {
		targetSchema := rel.EndSchemaID
		if ref.Opposite {
			targetSchema = rel.StartSchemaID
		}
		targetID, err := applyPOCO(dom, targetSchema, targetObj, refs, result)
		if err != nil {
			return err
		}

		startID, endID, endSchemaID := owner.ID(), targetID, targetSchema
		if ref.Opposite {
			startID, endID, endSchemaID = targetID, owner.ID(), owner.SchemaID()
		}
		_, err = dom.CreateRelationship(rel.ID, "", startID, endID, endSchemaID, 0)
		if err == nil {
			result.RelationshipsLoaded++
		}
		return err
	}

	if ref.IsCollection {
		items, ok := value.([]any)
		if !ok {
			return herrors.New(herrors.TypeMismatch, "POCO: reference %q expects an array", ref.Name)
		}
		for _, item := range items {
			obj, ok := item.(map[string]any)
			if !ok {
				return herrors.New(herrors.TypeMismatch, "POCO: reference %q item is not an object", ref.Name)
			}
			if err := create(obj); err != nil {
				return err
			}
		}
		return nil
	}

	obj, ok := value.(map[string]any)
	if !ok {
		return herrors.New(herrors.TypeMismatch, "POCO: reference %q expects an object", ref.Name)
	}
	return create(obj)
}

func stringField(obj map[string]any, key string) (string, bool) {
	v, ok := obj[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
