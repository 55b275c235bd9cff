package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/typesense/typesense-go/v4/typesense"
	"github.com/typesense/typesense-go/v4/typesense/api"
	"github.com/typesense/typesense-go/v4/typesense/api/pointer"
)

// DocSearchParams is the argument shape for the docsearch tool.
type DocSearchParams struct {
	Query string `json:"query" jsonschema:"required,description=Free-text query to search the reference document collection for"`
	Limit int    `json:"limit,omitempty" jsonschema:"description=Max documents to return (default 5)"`
}

// DocSearchTool performs full-text search over a small reference-document
// collection via Typesense. Grounded on the teacher's own code retriever
// (internal/retriever/code) which names Typesense as its backing store in
// its source URIs but never actually calls the client; this adapter wires
// the real client the teacher's go.mod already depends on.
type DocSearchTool struct {
	client     *typesense.Client
	collection string
	queryBy    string
}

// NewDocSearchTool builds a DocSearchTool against a given Typesense server,
// searching the named collection's queryBy fields (comma-separated, e.g.
// "title,body").
func NewDocSearchTool(serverURL, apiKey, collection, queryBy string) *DocSearchTool {
	client := typesense.NewClient(
		typesense.WithServer(serverURL),
		typesense.WithAPIKey(apiKey),
	)
	return &DocSearchTool{client: client, collection: collection, queryBy: queryBy}
}

func (t *DocSearchTool) Name() string { return "docsearch" }
func (t *DocSearchTool) Description() string {
	return "Full-text search over the reference document collection. Use for background facts not in the workspace files."
}
func (t *DocSearchTool) Schema() any {
	return jsonschema.Reflector{DoNotReference: true}.Reflect(&DocSearchParams{})
}

func (t *DocSearchTool) Invoke(ctx context.Context, argumentsJSON string) (Result, error) {
	var params DocSearchParams
	if err := json.Unmarshal([]byte(argumentsJSON), &params); err != nil {
		return Result{Error: fmt.Sprintf("invalid arguments: %v", err)}, nil
	}
	limit := params.Limit
	if limit <= 0 {
		limit = 5
	}

	searchParams := &api.SearchCollectionParams{
		Q:       pointer.String(params.Query),
		QueryBy: pointer.String(t.queryBy),
		PerPage: pointer.Int(limit),
	}

	result, err := t.client.Collection(t.collection).Documents().Search(ctx, searchParams)
	if err != nil {
		return Result{Error: fmt.Sprintf("docsearch query failed: %v", err)}, nil
	}
	if result.Hits == nil || len(*result.Hits) == 0 {
		return Result{Output: "no documents matched"}, nil
	}

	var out strings.Builder
	for i, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		fmt.Fprintf(&out, "%d. %v\n", i+1, *hit.Document)
	}
	return Result{Output: out.String()}, nil
}
