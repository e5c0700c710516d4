// Package recipe defines the canonical recipe model produced by extraction.
package recipe

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Ingredient is a single recipe ingredient. Order within a recipe is
// meaningful and preserved end-to-end.
type Ingredient struct {
	Name     string `json:"name" validate:"required"`
	Quantity string `json:"quantity,omitempty"`
	Note     string `json:"note,omitempty"`
}

// Recipe is the canonical output unit of the extraction pipeline. It is only
// ever constructed from a schema-validated model response; a partial or
// invalid recipe never reaches storage.
type Recipe struct {
	Name        string       `json:"name" validate:"required"`
	Servings    string       `json:"servings,omitempty"`
	PrepTime    int          `json:"prepTime,omitempty" validate:"gte=0"` // minutes
	CookTime    int          `json:"cookTime,omitempty" validate:"gte=0"` // minutes
	Ingredients []Ingredient `json:"ingredients" validate:"required,min=1,dive"`
	Steps       []string     `json:"steps" validate:"dive,required"`
	Notes       string       `json:"notes,omitempty"`
}

var validate = validator.New()

// Validate checks the recipe against the schema rules. It returns a single
// error describing every failing field.
func (r *Recipe) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	var sb strings.Builder
	for i, e := range verrs {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(formatFieldError(e))
	}
	return fmt.Errorf("invalid recipe: %s", sb.String())
}

// formatFieldError creates a human-readable message for one failing field.
// The message is fed back to the model on retry, so it names the JSON field.
func formatFieldError(e validator.FieldError) string {
	field := e.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("field %q is required and must be non-empty", field)
	case "min":
		return fmt.Sprintf("field %q must have at least %s entries", field, e.Param())
	case "gte":
		return fmt.Sprintf("field %q must be at least %s", field, e.Param())
	default:
		return fmt.Sprintf("field %q failed validation %q", field, e.Tag())
	}
}
