package procedures

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/qms-rag/internal/core/domain"
)

// Display caps for Format.
const (
	MaxKeyRequirements = 5
	MaxSteps           = 8
)

const notAvailable = "N/A"

// Format renders a procedure as a markdown card. Missing values show as N/A.
func Format(p domain.Procedure) string {
	var b strings.Builder

	fmt.Fprintf(&b, "### %s\n\n", orNA(p.Title))
	fmt.Fprintf(&b, "**Procedure ID:** %s\n\n", orNA(p.ProcID))
	fmt.Fprintf(&b, "**Requirement:** %s\n\n", orNA(p.Requirement))
	fmt.Fprintf(&b, "**Description:** %s\n\n", orNA(p.Description))

	writeList(&b, "What is Required", p.WhatIsRequired, 0, "- ")
	writeList(&b, "Key Requirements", p.KeyRequirements, MaxKeyRequirements, "- ")
	writeList(&b, "Implementation Steps", p.ImplementationSteps, MaxSteps, "")
	writeList(&b, "Responsibilities", p.Responsibilities, 0, "- ")
	writeList(&b, "Documentation Needed", p.DocumentationNeeded, 0, "- ")

	fmt.Fprintf(&b, "**Keywords:** %s\n\n", orNA(strings.Join(p.Keywords, ", ")))
	fmt.Fprintf(&b, "**Related Procedures:** %s\n\n", orNA(strings.Join(p.RelatedProcedures, ", ")))
	fmt.Fprintf(&b, "**Example:** %s\n", orNA(p.Examples.String()))

	return b.String()
}

func writeList(b *strings.Builder, heading string, items []string, limit int, bullet string) {
	fmt.Fprintf(b, "**%s:**\n", heading)
	if len(items) == 0 {
		fmt.Fprintf(b, "%s%s\n\n", bullet, notAvailable)
		return
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	for _, item := range items {
		fmt.Fprintf(b, "%s%s\n", bullet, item)
	}
	b.WriteString("\n")
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return notAvailable
	}
	return s
}

// ContextText renders the compact form of a procedure used in answer context.
func ContextText(p domain.Procedure, keyPoints int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", orNA(p.Title))
	fmt.Fprintf(&b, "ID: %s\n", orNA(p.ProcID))
	fmt.Fprintf(&b, "Requirement: %s\n", orNA(p.Requirement))
	fmt.Fprintf(&b, "Description: %s\n", orNA(p.Description))
	points := p.KeyRequirements
	if keyPoints > 0 && len(points) > keyPoints {
		points = points[:keyPoints]
	}
	fmt.Fprintf(&b, "Key Points: %s", orNA(strings.Join(points, ", ")))
	return b.String()
}

var documentNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("qmsrag:procedure"))

// URI returns the resource URI of a procedure.
func URI(procID string) string {
	return "procedure://" + procID
}

// Flatten renders every procedure as a Document for embedding. Blocks are
// separated by blank lines so the chunker can split on them.
func (s *Store) Flatten() []domain.Document {
	names := s.unitNames()
	docs := make([]domain.Document, 0, len(s.procs))
	for _, p := range s.procs {
		var b strings.Builder
		fmt.Fprintf(&b, "Procedure: %s (%s)\n\n", p.Title, p.ProcID)
		fmt.Fprintf(&b, "Section: %s - %s\n", p.SectionID, names[p.SectionID])
		if p.SubsectionID != "" {
			fmt.Fprintf(&b, "Subsection: %s - %s\n", p.SubsectionID, names[p.SectionID+"/"+p.SubsectionID])
		}
		if p.Requirement != "" {
			fmt.Fprintf(&b, "Requirement: %s\n", p.Requirement)
		}
		if p.Description != "" {
			fmt.Fprintf(&b, "\n%s\n", p.Description)
		}
		block(&b, "Requirements", p.WhatIsRequired)
		block(&b, "Key Requirements", p.KeyRequirements)
		block(&b, "Implementation Steps", p.ImplementationSteps)
		block(&b, "Documentation Needed", p.DocumentationNeeded)
		block(&b, "Responsibilities", p.Responsibilities)

		docs = append(docs, domain.Document{
			ID:       uuid.NewSHA1(documentNamespace, []byte(p.ProcID)).String(),
			SourceID: p.ProcID,
			URI:      URI(p.ProcID),
			Title:    p.Title,
			Content:  strings.TrimSpace(b.String()),
			Metadata: map[string]any{
				domain.MetaProcID:     p.ProcID,
				domain.MetaTitle:      p.Title,
				domain.MetaSection:    p.SectionID,
				domain.MetaSubsection: p.SubsectionID,
				domain.MetaFormat:     "procedure",
			},
		})
	}
	return docs
}

func block(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n%s\n", heading, strings.Join(items, ", "))
}

func (s *Store) unitNames() map[string]string {
	names := make(map[string]string)
	for _, sec := range s.sections {
		names[sec.SectionID] = sec.SectionName
		for _, sub := range sec.Subsections {
			names[sec.SectionID+"/"+sub.SubsectionID] = sub.SubsectionName
		}
	}
	return names
}
