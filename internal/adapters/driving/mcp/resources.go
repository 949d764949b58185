package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// URIScheme is the custom URI scheme for vigil resources.
	uriScheme = "vigil://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource listing the live guidance sections.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "guidance",
		Name:        "guidance",
		Description: "Guidance sections in the live knowledge base generation",
		MIMEType:    "application/json",
	}, s.handleGuidanceResource)

	// Template for one section's text.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "guidance/{sectionId}",
		Name:        "guidance-section",
		Description: "Text of a specific guidance section",
		MIMEType:    "text/markdown",
	}, s.handleSectionResource)
}

// handleGuidanceResource returns the live sections without their text.
func (s *Server) handleGuidanceResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	type sectionInfo struct {
		ID       string `json:"id"`
		Document string `json:"document"`
		Heading  string `json:"heading"`
		Category string `json:"category,omitempty"`
	}
	type listing struct {
		Generation int64         `json:"generation"`
		Sections   []sectionInfo `json:"sections"`
	}

	sections := s.ports.Knowledge.Sections()
	out := listing{
		Generation: s.ports.Knowledge.Generation(),
		Sections:   make([]sectionInfo, len(sections)),
	}
	for i := range sections {
		out.Sections[i] = sectionInfo{
			ID:       sections[i].ID,
			Document: sections[i].DocumentTitle,
			Heading:  sections[i].Heading,
			Category: sections[i].Category,
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling guidance: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleSectionResource returns the text of one live section.
func (s *Server) handleSectionResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	id := extractSectionID(req.Params.URI)
	if id == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	for _, sec := range s.ports.Knowledge.Sections() {
		if sec.ID != id {
			continue
		}
		text := fmt.Sprintf("# %s\n\n## %s\n\n%s\n", sec.DocumentTitle, sec.Heading, sec.Text)
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{
				URI:      req.Params.URI,
				MIMEType: "text/markdown",
				Text:     text,
			}},
		}, nil
	}
	return nil, mcp.ResourceNotFoundError(req.Params.URI)
}

// extractSectionID extracts the section ID from a URI like vigil://guidance/{sectionId}.
func extractSectionID(uri string) string {
	const prefix = uriScheme + "guidance/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	id := strings.TrimPrefix(uri, prefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
