package dispatcher

import "github.com/mark3labs/mcp-go/mcp"

func searchContextTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_context",
		Description: "Search an indexed project's codebase for chunks relevant to a natural-language query",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_root_path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the project root to search",
				},
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural-language or keyword search query",
				},
			},
			Required: []string{"project_root_path", "query"},
		},
	}
}

func enhancePromptTool() mcp.Tool {
	return mcp.Tool{
		Name:        "enhance_prompt",
		Description: "Enhance a prompt with retrieved project context, optionally pausing for human review before returning",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_root_path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the project root providing context, if any",
				},
				"prompt": map[string]interface{}{
					"type":        "string",
					"description": "The prompt to enhance",
				},
				"conversation_history": map[string]interface{}{
					"type":        "string",
					"description": "Prior conversation turns, used to resolve pronouns and follow-up references",
				},
			},
			Required: []string{"prompt", "conversation_history"},
		},
	}
}

// codebaseRetrievalAlias is the legacy tool name some clients still send;
// it is routed to the same handler as search_context.
const codebaseRetrievalAlias = "codebase-retrieval"
