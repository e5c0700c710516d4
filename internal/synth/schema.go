package synth

// resultJSONSchema returns the JSON Schema for the synthesis result, passed
// to providers that support structured output.
func resultJSONSchema() map[string]any {
	ingredient := map[string]any{
		"type":        "object",
		"description": "One ingredient, in recipe order.",
		"properties": map[string]any{
			"name":     map[string]any{"type": "string", "description": "Ingredient name without quantity or preparation."},
			"quantity": map[string]any{"type": "string", "description": "Free-text quantity, e.g. \"1.5 lbs\" or \"2 cups\"."},
			"note":     map[string]any{"type": "string", "description": "Preparation note, e.g. \"finely chopped\"."},
		},
		"required":             []any{"name"},
		"additionalProperties": false,
	}

	recipeSchema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":     map[string]any{"type": "string", "description": "Recipe name."},
			"servings": map[string]any{"type": "string", "description": "Free-text yield, e.g. \"4 servings\"."},
			"prepTime": map[string]any{"type": "integer", "description": "Preparation time in minutes."},
			"cookTime": map[string]any{"type": "integer", "description": "Cooking time in minutes."},
			"ingredients": map[string]any{
				"type":        "array",
				"description": "Ingredients in recipe order.",
				"items":       ingredient,
			},
			"steps": map[string]any{
				"type":        "array",
				"description": "Preparation steps in order.",
				"items":       map[string]any{"type": "string"},
			},
			"notes": map[string]any{"type": "string", "description": "Creator tips and variations."},
		},
		"required":             []any{"name", "ingredients", "steps"},
		"additionalProperties": false,
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"is_recipe":  map[string]any{"type": "boolean", "description": "Whether the input describes a cookable recipe."},
			"reason":     map[string]any{"type": "string", "description": "Why the input is not a recipe (when is_recipe is false)."},
			"confidence": map[string]any{"type": "number", "description": "Extraction confidence between 0 and 1."},
			"recipe":     recipeSchema,
		},
		"required":             []any{"is_recipe"},
		"additionalProperties": false,
	}
}
