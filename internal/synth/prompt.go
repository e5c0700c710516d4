package synth

import (
	"encoding/json"
	"strings"
)

const sharedRules = `Always respond with a single JSON object matching the result schema:
- If the input does not describe something cookable, return {"is_recipe": false, "reason": "..."} with a short reason.
- Otherwise return {"is_recipe": true, "confidence": <0..1>, "recipe": {...}}.
- recipe.name must be non-empty. Ingredients keep recipe order. Each ingredient separates "name" from an optional free-text "quantity" (e.g. "1.5 lbs") and optional "note" (e.g. "finely chopped").
- recipe.prepTime and recipe.cookTime are integer minutes; omit them when unknown. Never invent timings.
- recipe.steps are the preparation steps in order, one instruction per entry.
- recipe.notes holds creator tips, variations, and serving suggestions.`

const captionSystemPrompt = `You extract recipes from social media captions.

The caption is informal free text: emoji bullet lists, hashtags, and chatty asides are common. Infer the structure the author implied:
- Separate quantities from ingredient names ("2 cups flour" -> quantity "2 cups", name "flour").
- Reconstruct step order from the narrative when no numbered list exists.
- Report how much you had to guess through "confidence": use a value below 0.7 whenever you inferred quantities, timings, or steps that the caption does not state outright.

` + sharedRules

const structuredSystemPrompt = `You convert schema.org Recipe documents into a clean recipe record.

The document is authoritative. Copy its values faithfully:
- Copy ingredient quantities and step text verbatim; do not rephrase measurements.
- Durations may appear in ISO-8601 form (e.g. "PT1H30M"); convert them to integer minutes (90).
- recipeYield maps to "servings" as free text.
- Set "confidence" to 1.

` + sharedRules

const mergeSystemPrompt = `You merge a schema.org Recipe document with the social media caption that linked to it.

The structured document is authoritative for every measurable field: ingredient quantities, timings, servings, and steps. Copy these VERBATIM from the document; never adjust, round, convert, or invent a value that the document states.

The caption is used for exactly one thing: populate "recipe.notes" with the creator's tips, variations, and serving suggestions. The caption must never override a measurable field.

Durations may appear in ISO-8601 form (e.g. "PT20M"); convert them to integer minutes (20). Set "confidence" to 1.

` + sharedRules

// systemPrompt returns the system instructions for a prompt mode.
func systemPrompt(mode Mode) string {
	switch mode {
	case ModeStructured:
		return structuredSystemPrompt
	case ModeMerge:
		return mergeSystemPrompt
	default:
		return captionSystemPrompt
	}
}

// buildUserPrompt assembles the input sections for one synthesis call.
// A previous validation failure is included so the model can self-correct.
func buildUserPrompt(req Request, previousErr error) string {
	var sb strings.Builder

	if req.Data != nil {
		sb.WriteString("## Structured Recipe Data\n```json\n")
		data, err := json.MarshalIndent(req.Data, "", "  ")
		if err != nil {
			data, _ = json.Marshal(req.Data)
		}
		sb.Write(data)
		sb.WriteString("\n```\n\n")
	}

	if req.Mode != ModeStructured && req.Caption != "" {
		sb.WriteString("## Post Caption\n```\n")
		sb.WriteString(req.Caption)
		sb.WriteString("\n```\n\n")
	}

	if previousErr != nil {
		sb.WriteString("## Previous Attempt Errors\n")
		sb.WriteString("Your previous response had these problems. Fix them:\n")
		sb.WriteString(previousErr.Error())
		sb.WriteString("\n")
	}

	return sb.String()
}
