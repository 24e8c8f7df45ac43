package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"medibot/internal/rag"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server exposing the question-answering tools",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	pipeline, st, err := openQueryPipeline()
	if err != nil {
		return err
	}
	defer st.Close()

	s := mcpserver.NewMCPServer("medibot", "1.0.0", mcpserver.WithToolCapabilities(false))

	s.AddTool(askBookTool(), makeAskHandler(pipeline))
	s.AddTool(searchBookTool(), makeSearchHandler(pipeline))

	return mcpserver.ServeStdio(s)
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

// --- Tool schema builders ---

var readOnlyAnnotation = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(true),
	DestructiveHint: mcp.ToBoolPtr(false),
	IdempotentHint:  mcp.ToBoolPtr(true),
	OpenWorldHint:   mcp.ToBoolPtr(false),
}

func askBookTool() mcp.Tool {
	return mcp.NewTool("ask_book",
		mcp.WithDescription("Answer a question strictly from the ingested book corpus. Refuses when the corpus holds no sufficient evidence."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("Natural language question to answer from the corpus"),
		),
	)
}

func searchBookTool() mcp.Tool {
	return mcp.NewTool("search_book",
		mcp.WithDescription("Similarity-search the ingested corpus and return matching chunks with scores, without generating an answer."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Query text to match against the corpus"),
		),
		mcp.WithNumber("k",
			mcp.Description("Maximum number of chunks to return (default 5)"),
		),
	)
}

// --- Handler factories ---

func makeAskHandler(pipeline *rag.Pipeline) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question := req.GetString("question", "")
		if question == "" {
			return mcp.NewToolResultError("question is required"), nil
		}

		ans, err := pipeline.AnswerQuestion(ctx, question)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("answer failed: %v", err)), nil
		}

		var sb strings.Builder
		sb.WriteString(ans.Text)
		if refs := ans.Sources(); len(refs) > 0 {
			sb.WriteString("\n\nSources:\n")
			for _, ref := range refs {
				fmt.Fprintf(&sb, "- %s — page %d\n", ref.Source, ref.Page)
			}
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func makeSearchHandler(pipeline *rag.Pipeline) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query := req.GetString("query", "")
		if query == "" {
			return mcp.NewToolResultError("query is required"), nil
		}
		k := req.GetInt("k", 5)
		if k <= 0 {
			k = 5
		}

		// Threshold 0 returns raw matches; this tool surfaces evidence,
		// the gate belongs to ask_book.
		answerable, results, err := pipeline.RetrieveWithConfidence(ctx, query, k, 0)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}
		if !answerable || len(results) == 0 {
			return mcp.NewToolResultText(fmt.Sprintf("No results found for query: %q", query)), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "## Search results for %q (%d chunks)\n\n", query, len(results))
		for i, r := range results {
			fmt.Fprintf(&sb, "### Result %d: %s — page %d", i+1, r.Source, r.Page)
			if r.Scored {
				fmt.Fprintf(&sb, " (score %.3f)", r.Score)
			}
			sb.WriteString("\n\n")
			sb.WriteString(r.Text)
			sb.WriteString("\n\n")
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}
