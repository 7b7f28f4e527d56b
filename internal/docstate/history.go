package docstate

import (
	"encoding/json"
	"fmt"
)

// ActionType discriminates history entries.
type ActionType string

const (
	ActionAIMerge     ActionType = "AI_MERGE"
	ActionSimpleMerge ActionType = "SIMPLE_MERGE"
	ActionEdit        ActionType = "EDIT_CONTENT"
	ActionSplit       ActionType = "SPLIT_PARAGRAPH"
	ActionDelete      ActionType = "DELETE_PARAGRAPH"
	ActionCustom      ActionType = "CUSTOM_ACTION"
)

// Payload is the action-specific body of a history entry.
type Payload interface {
	Action() ActionType
	validate() error
}

// HistoryEntry is one user edit. Entries are append-only.
type HistoryEntry struct {
	Type      ActionType
	Timestamp string
	Payload   Payload
}

type AIMergePayload struct {
	IDs                []string  `json:"ids"`
	NewParagraph       Paragraph `json:"newParagraph"`
	Prompt             *string   `json:"prompt,omitempty"`
	CustomInstructions *string   `json:"customInstructions,omitempty"`
}

func (AIMergePayload) Action() ActionType { return ActionAIMerge }

func (p AIMergePayload) validate() error {
	return validateMerge(p.IDs, p.NewParagraph)
}

type SimpleMergePayload struct {
	IDs          []string  `json:"ids"`
	NewParagraph Paragraph `json:"newParagraph"`
}

func (SimpleMergePayload) Action() ActionType { return ActionSimpleMerge }

func (p SimpleMergePayload) validate() error {
	return validateMerge(p.IDs, p.NewParagraph)
}

func validateMerge(ids []string, np Paragraph) error {
	if len(ids) < 1 {
		return fmt.Errorf("merge needs at least one source id")
	}
	return np.validate()
}

type EditPayload struct {
	ID         string `json:"id"`
	OldContent string `json:"oldContent"`
	NewContent string `json:"newContent"`
}

func (EditPayload) Action() ActionType { return ActionEdit }

func (p EditPayload) validate() error {
	if p.ID == "" {
		return fmt.Errorf("edit needs a paragraph id")
	}
	return nil
}

type SplitPayload struct {
	ID            string      `json:"id"`
	NewParagraphs []Paragraph `json:"newParagraphs"`
}

func (SplitPayload) Action() ActionType { return ActionSplit }

func (p SplitPayload) validate() error {
	if p.ID == "" {
		return fmt.Errorf("split needs a paragraph id")
	}
	if len(p.NewParagraphs) < 2 {
		return fmt.Errorf("split needs at least two new paragraphs, got %d", len(p.NewParagraphs))
	}
	for _, np := range p.NewParagraphs {
		if err := np.validate(); err != nil {
			return err
		}
	}
	return nil
}

type DeletePayload struct {
	ID string `json:"id"`
}

func (DeletePayload) Action() ActionType { return ActionDelete }

func (p DeletePayload) validate() error {
	if p.ID == "" {
		return fmt.Errorf("delete needs a paragraph id")
	}
	return nil
}

// CustomPayload carries an arbitrary client-defined object.
type CustomPayload map[string]any

func (CustomPayload) Action() ActionType { return ActionCustom }

func (CustomPayload) validate() error { return nil }

type historyEntryJSON struct {
	Type      ActionType      `json:"type"`
	Timestamp string          `json:"timestamp,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

func (e HistoryEntry) MarshalJSON() ([]byte, error) {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(historyEntryJSON{Type: e.Type, Timestamp: e.Timestamp, Payload: payload})
}

func (e *HistoryEntry) UnmarshalJSON(data []byte) error {
	var raw historyEntryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw.Payload) == 0 || string(raw.Payload) == "null" {
		return fmt.Errorf("history entry %q: payload is required", raw.Type)
	}

	var (
		p   Payload
		err error
	)
	switch raw.Type {
	case ActionAIMerge:
		var v AIMergePayload
		err = decodeAliased(raw.Payload, mergeAliases, &v)
		p = v
	case ActionSimpleMerge:
		var v SimpleMergePayload
		err = decodeAliased(raw.Payload, mergeAliases, &v)
		p = v
	case ActionEdit:
		var v EditPayload
		err = decodeAliased(raw.Payload, editAliases, &v)
		p = v
	case ActionSplit:
		var v SplitPayload
		err = decodeAliased(raw.Payload, splitAliases, &v)
		p = v
	case ActionDelete:
		var v DeletePayload
		err = json.Unmarshal(raw.Payload, &v)
		p = v
	case ActionCustom:
		var v CustomPayload
		err = json.Unmarshal(raw.Payload, &v)
		p = v
	default:
		return fmt.Errorf("unknown history entry type %q", raw.Type)
	}
	if err != nil {
		return fmt.Errorf("history entry %s: %w", raw.Type, err)
	}
	if err := p.validate(); err != nil {
		return fmt.Errorf("history entry %s: %w", raw.Type, err)
	}

	*e = HistoryEntry{Type: raw.Type, Timestamp: raw.Timestamp, Payload: p}
	return nil
}
