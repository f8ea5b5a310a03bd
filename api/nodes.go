package api

import (
	"context"
	"fmt"

	"github.com/awantoch/n8n-mcp/constants"
	"github.com/awantoch/n8n-mcp/n8n"
)

const unknownGroup = "unknown"

// NodeSummary is the part of a node type description clients need to pick
// a node.
type NodeSummary struct {
	Name         string `json:"name"`
	DisplayName  string `json:"displayName"`
	Description  string `json:"description"`
	Version      any    `json:"version"`
	UsableAsTool bool   `json:"usableAsTool"`
}

// NodeCatalog is the list_nodes payload.
type NodeCatalog struct {
	TotalNodes   int                      `json:"totalNodes"`
	NodesByGroup map[string][]NodeSummary `json:"nodesByGroup"`
	Summary      map[string]int           `json:"summary"`
}

// groupNodeTypes buckets node types by their first group.
func groupNodeTypes(types []n8n.NodeType) NodeCatalog {
	catalog := NodeCatalog{
		TotalNodes:   len(types),
		NodesByGroup: map[string][]NodeSummary{},
		Summary:      map[string]int{},
	}
	for _, t := range types {
		group := unknownGroup
		if groups := t.Groups(); len(groups) > 0 {
			group = groups[0]
		}
		displayName, _ := t["displayName"].(string)
		description, _ := t["description"].(string)
		usable, _ := t["usableAsTool"].(bool)
		catalog.NodesByGroup[group] = append(catalog.NodesByGroup[group], NodeSummary{
			Name:         t.Name(),
			DisplayName:  displayName,
			Description:  description,
			Version:      t["version"],
			UsableAsTool: usable,
		})
		catalog.Summary[group]++
	}
	return catalog
}

func (s *Service) listNodes(ctx context.Context, call *Call) (*Result, error) {
	client, err := s.client(ctx, call)
	if err != nil {
		return nil, err
	}
	types, err := client.ListNodeTypes(ctx)
	if err != nil {
		return failure("list nodes", err), nil
	}
	catalog := groupNodeTypes(types)
	return Succeed(catalog, fmt.Sprintf(constants.MsgRetrievedNodes, catalog.TotalNodes)), nil
}
