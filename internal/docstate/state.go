// Package docstate defines the flat, UI-facing document representation and
// its wire format. Input accepts both the client (camelCase) and storage
// (snake_case) field names; output always uses the client names.
package docstate

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidState wraps every validation failure.
var ErrInvalidState = errors.New("invalid document state")

// DocumentState is the terminal artifact of the pipeline and the unit the
// client reads and saves back.
type DocumentState struct {
	DocumentID        string           `json:"documentId"`
	PageDimensions    []PageDimensions `json:"pageDimensions"`
	Paragraphs        []Paragraph      `json:"paragraphs"`
	History           []HistoryEntry   `json:"history"`
	UIState           *UIState         `json:"uiState"`
	InitialParagraphs []Paragraph      `json:"initialParagraphs"`
	MergeSuggestions  [][]string       `json:"mergeSuggestions"`
}

type documentStateJSON DocumentState

func (s *DocumentState) UnmarshalJSON(data []byte) error {
	var v documentStateJSON
	if err := decodeAliased(data, stateAliases, &v); err != nil {
		return err
	}
	*s = DocumentState(v)
	return nil
}

// MarshalJSON emits empty lists rather than null for the collection fields.
func (s DocumentState) MarshalJSON() ([]byte, error) {
	v := documentStateJSON(s)
	v.PageDimensions = orEmpty(v.PageDimensions)
	v.Paragraphs = orEmpty(v.Paragraphs)
	v.History = orEmpty(v.History)
	v.InitialParagraphs = orEmpty(v.InitialParagraphs)
	v.MergeSuggestions = orEmpty(v.MergeSuggestions)
	return json.Marshal(v)
}

// Decode parses and validates a document state.
func Decode(data []byte) (*DocumentState, error) {
	var s DocumentState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks required fields and payload shapes.
func (s *DocumentState) Validate() error {
	if s.DocumentID == "" {
		return fmt.Errorf("%w: documentId is required", ErrInvalidState)
	}
	if s.PageDimensions == nil {
		return fmt.Errorf("%w: pageDimensions is required", ErrInvalidState)
	}
	if s.Paragraphs == nil {
		return fmt.Errorf("%w: paragraphs is required", ErrInvalidState)
	}
	for _, p := range s.Paragraphs {
		if err := p.validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidState, err)
		}
	}
	for i, e := range s.History {
		if e.Payload == nil {
			return fmt.Errorf("%w: history[%d]: payload is required", ErrInvalidState, i)
		}
		if e.Payload.Action() != e.Type {
			return fmt.Errorf("%w: history[%d]: type %s does not match payload %s", ErrInvalidState, i, e.Type, e.Payload.Action())
		}
		if err := e.Payload.validate(); err != nil {
			return fmt.Errorf("%w: history[%d]: %v", ErrInvalidState, i, err)
		}
	}
	return nil
}

// Assemble wraps a flattened paragraph list into a fresh document state with
// empty history and UI selection.
func Assemble(docID string, pages []PageDimensions, paragraphs []Paragraph) *DocumentState {
	return &DocumentState{
		DocumentID:        docID,
		PageDimensions:    orEmpty(pages),
		Paragraphs:        orEmpty(paragraphs),
		History:           []HistoryEntry{},
		UIState:           &UIState{SelectedIDs: []string{}},
		InitialParagraphs: []Paragraph{},
		MergeSuggestions:  [][]string{},
	}
}

// VerifyOrder checks that ids are unique, exactly one record has no parent,
// and every parent id appears before its children.
func VerifyOrder(paragraphs []Paragraph) error {
	seen := make(map[string]bool, len(paragraphs))
	roots := 0
	for i, p := range paragraphs {
		if seen[p.ID] {
			return fmt.Errorf("paragraph %d: duplicate id %s", i, p.ID)
		}
		if p.ParentID == nil {
			roots++
		} else if !seen[*p.ParentID] {
			return fmt.Errorf("paragraph %d (%s): parent %s not emitted earlier", i, p.ID, *p.ParentID)
		}
		seen[p.ID] = true
	}
	if len(paragraphs) > 0 && roots != 1 {
		return fmt.Errorf("expected exactly one root, found %d", roots)
	}
	return nil
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
