package catalog

import (
	"encoding/json"
	"errors"
)

// ErrMalformed is returned when a catalog source exists but cannot be trusted.
var ErrMalformed = errors.New("malformed catalog")

// Descriptor is a single symptom statement tagged with body-system categories
// and the remedy it is associated with by default.
type Descriptor struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Type          string   `json:"type"`
	Functions     []string `json:"functions"`
	RelatedRecipe []string `json:"related_recipe"`
	Description   string   `json:"description"`
}

// Category returns the primary category. Only the first label counts for scoring.
func (d Descriptor) Category() string {
	if len(d.Functions) == 0 {
		return ""
	}
	return d.Functions[0]
}

// Remedy is one recipe entry. Only the title is interpreted; Fields keeps
// every key of the source entry as decoded, whatever its shape.
type Remedy struct {
	Title  string
	Fields map[string]any
}

// Field returns a string-valued key, or "" when it is absent or structured.
func (r Remedy) Field(key string) string {
	s, _ := r.Fields[key].(string)
	return s
}

func (r Remedy) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+1)
	for k, v := range r.Fields {
		out[k] = v
	}
	out["title"] = r.Title
	return json.Marshal(out)
}

func (r *Remedy) UnmarshalJSON(raw []byte) error {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return err
	}
	r.Title, _ = fields["title"].(string)
	r.Fields = fields
	return nil
}

// Remedies is the diagnosis data file. Recipes are indexed by title for
// lookup; Document is the file as read and is what gets shown to the model.
type Remedies struct {
	Recipes  []Remedy
	Document json.RawMessage
}

// EmptyRemedies is the fallback used when no diagnosis file exists.
func EmptyRemedies() Remedies {
	return Remedies{Recipes: []Remedy{}, Document: json.RawMessage(emptyDocument)}
}

const emptyDocument = `{"recipes": [], "logic_rules": []}`

// JSON returns the source document. Catalogs assembled in code without one
// are rendered from their recipes.
func (r Remedies) JSON() ([]byte, error) {
	if len(r.Document) > 0 {
		return r.Document, nil
	}
	recipes := r.Recipes
	if recipes == nil {
		recipes = []Remedy{}
	}
	return json.Marshal(struct {
		Recipes    []Remedy `json:"recipes"`
		LogicRules []any    `json:"logic_rules"`
	}{recipes, []any{}})
}

// Find returns the recipe whose title matches exactly.
func (r Remedies) Find(title string) (Remedy, bool) {
	for _, recipe := range r.Recipes {
		if recipe.Title == title {
			return recipe, true
		}
	}
	return Remedy{}, false
}

// Catalog is loaded once at startup and never mutated afterwards.
type Catalog struct {
	Descriptors []Descriptor
	Remedies    Remedies
	// Builtin reports that the descriptor table came from the embedded fallback.
	Builtin bool
}
