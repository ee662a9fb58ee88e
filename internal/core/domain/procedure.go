package domain

import (
	"encoding/json"
	"strings"
)

// Procedure is a curated ISO 13485 procedure record.
// ProcID is unique across the whole catalogue.
type Procedure struct {
	ProcID              string   `json:"proc_id"`
	Title               string   `json:"title"`
	Requirement         string   `json:"requirement"`
	Description         string   `json:"description"`
	WhatIsRequired      TextList `json:"what_is_required"`
	KeyRequirements     []string `json:"key_requirements"`
	ImplementationSteps []string `json:"implementation_steps"`
	Responsibilities    []string `json:"responsibilities"`
	DocumentationNeeded []string `json:"documentation_needed"`
	Keywords            []string `json:"keywords"`
	RelatedProcedures   []string `json:"related_procedures"`
	Examples            TextList `json:"examples"`

	// SectionID and SubsectionID are filled in when the catalogue is flattened.
	SectionID    string `json:"-"`
	SubsectionID string `json:"-"`
}

// Subsection groups procedures below a section.
type Subsection struct {
	SubsectionID   string      `json:"subsection_id"`
	SubsectionName string      `json:"subsection_name"`
	Procedures     []Procedure `json:"procedures"`
}

// Section is a top-level clause of the catalogue. Procedures may hang
// directly off the section, off its subsections, or both.
type Section struct {
	SectionID   string       `json:"section_id"`
	SectionName string       `json:"section_name"`
	Subsections []Subsection `json:"subsections"`
	Procedures  []Procedure  `json:"procedures"`
}

// AllProcedures returns the section's own procedures followed by those of
// each subsection, in document order.
func (s Section) AllProcedures() []Procedure {
	out := make([]Procedure, 0, len(s.Procedures))
	out = append(out, s.Procedures...)
	for _, sub := range s.Subsections {
		out = append(out, sub.Procedures...)
	}
	return out
}

// Catalog is the root of the procedure JSON document.
type Catalog struct {
	Sections []Section `json:"sections"`
}

// TextList accepts either a JSON string or an array of strings.
type TextList []string

// UnmarshalJSON implements json.Unmarshaler.
func (t *TextList) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*t = nil
		return nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*t = items
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*t = nil
		return nil
	}
	*t = TextList{s}
	return nil
}

// String joins the entries with a space.
func (t TextList) String() string {
	return strings.Join(t, " ")
}

// Normalise replaces nil list fields with empty slices.
func (p *Procedure) Normalise() {
	if p.WhatIsRequired == nil {
		p.WhatIsRequired = TextList{}
	}
	if p.Examples == nil {
		p.Examples = TextList{}
	}
	for _, list := range []*[]string{
		&p.KeyRequirements,
		&p.ImplementationSteps,
		&p.Responsibilities,
		&p.DocumentationNeeded,
		&p.Keywords,
		&p.RelatedProcedures,
	} {
		if *list == nil {
			*list = []string{}
		}
	}
}

// MatchesKeyword reports whether term occurs, case-insensitively, in the
// title, description or any keyword.
func (p Procedure) MatchesKeyword(term string) bool {
	term = strings.ToLower(term)
	if term == "" {
		return false
	}
	if strings.Contains(strings.ToLower(p.Title), term) ||
		strings.Contains(strings.ToLower(p.Description), term) {
		return true
	}
	for _, k := range p.Keywords {
		if strings.Contains(strings.ToLower(k), term) {
			return true
		}
	}
	return false
}
