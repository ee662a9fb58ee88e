// Package procedures loads the curated ISO 13485 procedure catalogue and
// answers exact, structural and keyword lookups against it.
package procedures

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/custodia-labs/qms-rag/internal/core/domain"
	"github.com/custodia-labs/qms-rag/internal/core/ports/driven"
)

// Direct match kinds.
const (
	MatchProcedure  = "procedure"
	MatchSubsection = "subsection"
	MatchSection    = "section"
)

// Verify interface compliance.
var _ driven.ProcedureStore = (*Store)(nil)

// Store is an immutable, validated procedure catalogue.
// It is safe for concurrent readers.
type Store struct {
	sections []domain.Section
	procs    []domain.Procedure
	byID     map[string]int
	byLower  map[string]int
}

// LoadFile reads and validates a catalogue from disk.
func LoadFile(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open procedures %s: %v", domain.ErrConfiguration, path, err)
	}
	defer f.Close()

	s, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return s, nil
}

// rawCatalog mirrors domain.Catalog with procedure decoding deferred, so a
// type error can be reported against the record that caused it.
type rawCatalog struct {
	Sections []struct {
		SectionID   string            `json:"section_id"`
		SectionName string            `json:"section_name"`
		Procedures  []json.RawMessage `json:"procedures"`
		Subsections []struct {
			SubsectionID   string            `json:"subsection_id"`
			SubsectionName string            `json:"subsection_name"`
			Procedures     []json.RawMessage `json:"procedures"`
		} `json:"subsections"`
	} `json:"sections"`
}

// Load decodes and validates a catalogue.
func Load(r io.Reader) (*Store, error) {
	var raw rawCatalog
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decode procedures: %v", domain.ErrConfiguration, err)
	}
	if raw.Sections == nil {
		return nil, fmt.Errorf("%w: procedures document has no sections array", domain.ErrConfiguration)
	}

	cat := domain.Catalog{Sections: make([]domain.Section, len(raw.Sections))}
	for i, rs := range raw.Sections {
		procs, err := decodeProcedures(rs.Procedures, "section "+rs.SectionID)
		if err != nil {
			return nil, err
		}
		sec := domain.Section{SectionID: rs.SectionID, SectionName: rs.SectionName, Procedures: procs}
		for _, rsub := range rs.Subsections {
			procs, err := decodeProcedures(rsub.Procedures, "subsection "+rsub.SubsectionID)
			if err != nil {
				return nil, err
			}
			sec.Subsections = append(sec.Subsections, domain.Subsection{
				SubsectionID:   rsub.SubsectionID,
				SubsectionName: rsub.SubsectionName,
				Procedures:     procs,
			})
		}
		cat.Sections[i] = sec
	}
	return build(cat.Sections)
}

// decodeProcedures decodes one record at a time and names the failing
// record by proc_id, or by position when even that is unreadable.
func decodeProcedures(records []json.RawMessage, where string) ([]domain.Procedure, error) {
	if records == nil {
		return nil, nil
	}
	out := make([]domain.Procedure, 0, len(records))
	for n, rec := range records {
		var p domain.Procedure
		if err := json.Unmarshal(rec, &p); err != nil {
			var id struct {
				ProcID string `json:"proc_id"`
			}
			name := fmt.Sprintf("#%d in %s", n+1, where)
			if json.Unmarshal(rec, &id) == nil && strings.TrimSpace(id.ProcID) != "" {
				name = strings.TrimSpace(id.ProcID)
			}
			return nil, fmt.Errorf("%w: decode procedure %s: %v", domain.ErrConfiguration, name, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// New builds a store from an in-memory catalogue.
func New(sections []domain.Section) (*Store, error) {
	return build(sections)
}

func build(sections []domain.Section) (*Store, error) {
	s := &Store{
		sections: make([]domain.Section, len(sections)),
		byID:     make(map[string]int),
		byLower:  make(map[string]int),
	}

	add := func(p domain.Procedure, sectionID, subsectionID string) (domain.Procedure, error) {
		p.ProcID = strings.TrimSpace(p.ProcID)
		if p.ProcID == "" {
			where := "section " + sectionID
			if subsectionID != "" {
				where = "subsection " + subsectionID
			}
			return p, fmt.Errorf("%w: procedure with blank proc_id in %s", domain.ErrConfiguration, where)
		}
		if strings.TrimSpace(p.Title) == "" {
			return p, fmt.Errorf("%w: procedure %s has a blank title", domain.ErrConfiguration, p.ProcID)
		}
		if _, dup := s.byID[p.ProcID]; dup {
			return p, fmt.Errorf("%w: duplicate proc_id %s", domain.ErrConfiguration, p.ProcID)
		}
		p.Normalise()
		p.SectionID = sectionID
		p.SubsectionID = subsectionID

		s.byID[p.ProcID] = len(s.procs)
		s.byLower[strings.ToLower(p.ProcID)] = len(s.procs)
		s.procs = append(s.procs, p)
		return p, nil
	}

	for i, sec := range sections {
		out := sec
		out.Procedures = make([]domain.Procedure, 0, len(sec.Procedures))
		for _, p := range sec.Procedures {
			np, err := add(p, sec.SectionID, "")
			if err != nil {
				return nil, err
			}
			out.Procedures = append(out.Procedures, np)
		}

		out.Subsections = make([]domain.Subsection, len(sec.Subsections))
		for j, sub := range sec.Subsections {
			nsub := sub
			nsub.Procedures = make([]domain.Procedure, 0, len(sub.Procedures))
			for _, p := range sub.Procedures {
				np, err := add(p, sec.SectionID, sub.SubsectionID)
				if err != nil {
					return nil, err
				}
				nsub.Procedures = append(nsub.Procedures, np)
			}
			out.Subsections[j] = nsub
		}
		s.sections[i] = out
	}
	return s, nil
}

// FindByID returns the procedure with the exact proc_id.
func (s *Store) FindByID(id string) (domain.Procedure, bool) {
	i, ok := s.byID[strings.TrimSpace(id)]
	if !ok {
		return domain.Procedure{}, false
	}
	return s.procs[i], true
}

// FindByKeyword returns procedures whose title, description or keywords
// contain term, case-insensitively, in catalogue order.
func (s *Store) FindByKeyword(term string) []domain.Procedure {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil
	}
	var out []domain.Procedure
	for _, p := range s.procs {
		if p.MatchesKeyword(term) {
			out = append(out, p)
		}
	}
	return out
}

// All returns every procedure in catalogue order.
func (s *Store) All() []domain.Procedure {
	out := make([]domain.Procedure, len(s.procs))
	copy(out, s.procs)
	return out
}

// Sections returns the catalogue hierarchy.
func (s *Store) Sections() []domain.Section {
	out := make([]domain.Section, len(s.sections))
	copy(out, s.sections)
	return out
}

// Len returns the number of procedures.
func (s *Store) Len() int {
	return len(s.procs)
}

// Lookup resolves an exact structural reference in query. Procedure ids
// win over subsections, which win over sections. Identifiers match whole
// tokens only, so "8.2" never selects subsection "8.2.2".
func (s *Store) Lookup(query string) (driven.DirectMatch, bool) {
	lower := strings.ToLower(query)
	tokens := Tokens(query)
	if len(tokens) == 0 {
		return driven.DirectMatch{}, false
	}

	for _, tok := range tokens {
		if i, ok := s.byLower[tok]; ok {
			p := s.procs[i]
			return driven.DirectMatch{
				Kind:       MatchProcedure,
				ID:         p.ProcID,
				Name:       p.Title,
				Procedures: []domain.Procedure{p},
			}, true
		}
	}

	tokenSet := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		tokenSet[tok] = struct{}{}
	}

	for _, sec := range s.sections {
		for _, sub := range sec.Subsections {
			if matchesUnit(sub.SubsectionID, sub.SubsectionName, tokenSet, lower) {
				return driven.DirectMatch{
					Kind:       MatchSubsection,
					ID:         sub.SubsectionID,
					Name:       sub.SubsectionName,
					Procedures: append([]domain.Procedure(nil), sub.Procedures...),
				}, true
			}
		}
	}

	for _, sec := range s.sections {
		if sectionReferenced(sec.SectionID, tokens) || nameReferenced(sec.SectionName, lower) {
			return driven.DirectMatch{
				Kind:       MatchSection,
				ID:         sec.SectionID,
				Name:       sec.SectionName,
				Procedures: sec.AllProcedures(),
			}, true
		}
	}
	return driven.DirectMatch{}, false
}

func matchesUnit(id, name string, tokens map[string]struct{}, lowerQuery string) bool {
	if id = strings.ToLower(strings.TrimSpace(id)); id != "" {
		if _, ok := tokens[id]; ok {
			return true
		}
	}
	return nameReferenced(name, lowerQuery)
}

func nameReferenced(name, lowerQuery string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	return name != "" && strings.Contains(lowerQuery, name)
}

// sectionReferenced reports whether tokens contain "section <id>".
func sectionReferenced(id string, tokens []string) bool {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return false
	}
	for i := 0; i+1 < len(tokens); i++ {
		if tokens[i] == "section" && tokens[i+1] == id {
			return true
		}
	}
	return false
}
