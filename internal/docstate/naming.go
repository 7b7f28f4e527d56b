package docstate

import "encoding/json"

// decodeAliased decodes a JSON object into v after renaming storage-side
// (snake_case) keys to their client-side names. A key already present
// under its client-side name wins.
func decodeAliased(data []byte, aliases map[string]string, v any) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return nil
	}
	for from, to := range aliases {
		val, ok := raw[from]
		if !ok {
			continue
		}
		if _, exists := raw[to]; !exists {
			raw[to] = val
		}
		delete(raw, from)
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

var (
	paragraphAliases = map[string]string{
		"parent_id":    "parentId",
		"bounding_box": "boundingBox",
		"page_number":  "pageNumber",
		"is_merged":    "isMerged",
		"source_ids":   "sourceIds",
	}
	pageAliases = map[string]string{
		"page_number": "pageNumber",
	}
	uiStateAliases = map[string]string{
		"current_view": "currentView",
		"selected_ids": "selectedIds",
	}
	stateAliases = map[string]string{
		"document_id":        "documentId",
		"page_dimensions":    "pageDimensions",
		"ui_state":           "uiState",
		"initial_paragraphs": "initialParagraphs",
		"merge_suggestions":  "mergeSuggestions",
	}
	mergeAliases = map[string]string{
		"new_paragraph":       "newParagraph",
		"custom_instructions": "customInstructions",
	}
	editAliases = map[string]string{
		"old_content": "oldContent",
		"new_content": "newContent",
	}
	splitAliases = map[string]string{
		"new_paragraphs": "newParagraphs",
	}
)
