package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/Skufu/kanpo-triage/internal/logger"
)

// legacyMarker identifies descriptor files exported from the old script format;
// those carry no usable JSON and map to the builtin table.
const legacyMarker = "symptoms = []"

// Load reads both catalogs. Missing files fall back; malformed files fail.
func Load(symptomsPath, diagnosisPath string, log *logger.Logger) (*Catalog, error) {
	descriptors, builtin, err := LoadDescriptors(symptomsPath)
	if err != nil {
		return nil, err
	}
	if builtin && log != nil {
		log.Warn("symptom catalog not found, using builtin table", "path", symptomsPath, "entries", len(descriptors))
	}

	remedies, found, err := LoadRemedies(diagnosisPath)
	if err != nil {
		return nil, err
	}
	if !found && log != nil {
		log.Warn("diagnosis catalog not found, using empty recipes", "path", diagnosisPath)
	}

	return &Catalog{Descriptors: descriptors, Remedies: remedies, Builtin: builtin}, nil
}

// LoadDescriptors reports builtin=true when the embedded table was used.
func LoadDescriptors(path string) ([]Descriptor, bool, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return BuiltinDescriptors(), true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read symptoms %s: %w", path, err)
	}
	if strings.HasPrefix(strings.TrimSpace(string(raw)), legacyMarker) {
		return BuiltinDescriptors(), true, nil
	}

	var descriptors []Descriptor
	if err := decodeStrict(raw, &descriptors); err != nil {
		return nil, false, fmt.Errorf("%w: symptoms %s: %v", ErrMalformed, path, err)
	}
	for i, d := range descriptors {
		if strings.TrimSpace(d.ID) == "" || strings.TrimSpace(d.Title) == "" || d.Category() == "" {
			return nil, false, fmt.Errorf("%w: symptoms %s: entry %d needs id, title and functions", ErrMalformed, path, i)
		}
		if d.Description == "" && len(d.RelatedRecipe) > 0 {
			descriptors[i].Description = describe(d.Title, d.Category(), d.RelatedRecipe[0])
		}
	}
	return descriptors, false, nil
}

// LoadRemedies reports found=false when the file is absent. Only recipe
// titles are checked; every other key is carried through untouched.
func LoadRemedies(path string) (Remedies, bool, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return EmptyRemedies(), false, nil
	}
	if err != nil {
		return EmptyRemedies(), false, fmt.Errorf("read diagnosis %s: %w", path, err)
	}

	raw = bytes.TrimSpace(raw)
	if !bytes.HasPrefix(raw, []byte("{")) {
		return EmptyRemedies(), true, fmt.Errorf("%w: diagnosis %s: expected a JSON object", ErrMalformed, path)
	}
	var doc struct {
		Recipes []Remedy `json:"recipes"`
	}
	if err := decodeStrict(raw, &doc); err != nil {
		return EmptyRemedies(), true, fmt.Errorf("%w: diagnosis %s: %v", ErrMalformed, path, err)
	}
	for i, r := range doc.Recipes {
		if strings.TrimSpace(r.Title) == "" {
			return EmptyRemedies(), true, fmt.Errorf("%w: diagnosis %s: recipe %d has no title", ErrMalformed, path, i)
		}
	}
	if doc.Recipes == nil {
		doc.Recipes = []Remedy{}
	}
	return Remedies{Recipes: doc.Recipes, Document: json.RawMessage(raw)}, true, nil
}

func decodeStrict(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("trailing data after JSON value")
	}
	return nil
}
