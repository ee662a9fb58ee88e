package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// procedureScheme addresses a single procedure card.
	procedureScheme = "procedure://"

	// uriScheme is the custom URI scheme for catalogue-level resources.
	uriScheme = "qmsrag://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	if s.ports.Procedures != nil {
		s.server.AddResource(&mcp.Resource{
			URI:         uriScheme + "sections",
			Name:        "sections",
			Description: "The ISO 13485 section and subsection hierarchy with procedure ids",
			MIMEType:    "application/json",
		}, s.handleSectionsResource)

		s.server.AddResourceTemplate(&mcp.ResourceTemplate{
			URITemplate: procedureScheme + "{proc_id}",
			Name:        "procedure",
			Description: "A QMS procedure rendered as markdown",
			MIMEType:    "text/markdown",
		}, s.handleProcedureResource)
	}

	if s.ports.Index != nil {
		s.server.AddResource(&mcp.Resource{
			URI:         uriScheme + "collections",
			Name:        "collections",
			Description: "Persisted vector collections and their manifests",
			MIMEType:    "application/json",
		}, s.handleCollectionsResource)
	}
}

// handleSectionsResource returns the catalogue hierarchy without procedure bodies.
func (s *Server) handleSectionsResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	type subsectionInfo struct {
		ID         string   `json:"subsection_id"`
		Name       string   `json:"subsection_name"`
		Procedures []string `json:"procedures"`
	}
	type sectionInfo struct {
		ID          string           `json:"section_id"`
		Name        string           `json:"section_name"`
		Procedures  []string         `json:"procedures"`
		Subsections []subsectionInfo `json:"subsections"`
	}

	sections := s.ports.Procedures.Sections()
	infos := make([]sectionInfo, len(sections))
	for i, sec := range sections {
		info := sectionInfo{
			ID:          sec.SectionID,
			Name:        sec.SectionName,
			Procedures:  make([]string, 0, len(sec.Procedures)),
			Subsections: make([]subsectionInfo, 0, len(sec.Subsections)),
		}
		for _, p := range sec.Procedures {
			info.Procedures = append(info.Procedures, p.ProcID)
		}
		for _, sub := range sec.Subsections {
			ids := make([]string, 0, len(sub.Procedures))
			for _, p := range sub.Procedures {
				ids = append(ids, p.ProcID)
			}
			info.Subsections = append(info.Subsections, subsectionInfo{
				ID:         sub.SubsectionID,
				Name:       sub.SubsectionName,
				Procedures: ids,
			})
		}
		infos[i] = info
	}

	return jsonResult(req.Params.URI, infos, "sections")
}

// handleProcedureResource returns one procedure card.
func (s *Server) handleProcedureResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	id := extractProcedureID(req.Params.URI)
	if id == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	p, err := s.ports.Procedures.Get(id)
	if err != nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/markdown",
			Text:     s.ports.Procedures.Format(*p),
		}},
	}, nil
}

// handleCollectionsResource lists the persisted collections.
func (s *Server) handleCollectionsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	manifests, err := s.ports.Index.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	return jsonResult(req.Params.URI, manifests, "collections")
}

func jsonResult(uri string, v any, what string) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", what, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractProcedureID extracts the id from a URI like procedure://PROC_8_2_2.
func extractProcedureID(uri string) string {
	if !strings.HasPrefix(uri, procedureScheme) {
		return ""
	}
	return strings.Trim(strings.TrimPrefix(uri, procedureScheme), "/")
}
