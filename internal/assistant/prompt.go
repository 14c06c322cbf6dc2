package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/matsen/atlas/internal/graph"
)

// Conversation accumulates the user's messages.
type Conversation struct {
	messages []string
}

// Add appends a message. Blank messages are ignored.
func (c *Conversation) Add(msg string) {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return
	}
	c.messages = append(c.messages, msg)
}

// Messages returns a copy of the accumulated messages.
func (c *Conversation) Messages() []string {
	return append([]string(nil), c.messages...)
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	return len(c.messages)
}

// Reset discards all messages.
func (c *Conversation) Reset() {
	c.messages = nil
}

// Text joins the messages with newlines.
func (c *Conversation) Text() string {
	return strings.Join(c.messages, "\n")
}

const promptTemplate = `Based on the following conversation about knowledge and research papers, create a knowledge graph in JSON format.
The JSON should follow this structure:
{
    "nodes": [
        {
            "id": "unique_id",
            "type": "main_topic",
            "description": "Description text",
            "level": 0,
            "url": "optional_url"
        }
    ],
    "edges": [
        {
            "source": "source_node_id",
            "target": "target_node_id",
            "relationship": "related_to"
        }
    ]
}

Valid node types: %s.
Level is 0 for main topics and increases for subtopics and papers.
Common relationships: %s.

Conversation:
%s

Generate a valid JSON for the knowledge graph based on the conversation above.
`

// BuildGraphPrompt returns the prompt asking the model for an interchange
// document describing the conversation.
func BuildGraphPrompt(conv *Conversation) string {
	types := make([]string, 0, len(graph.AllNodeTypes()))
	for _, t := range graph.AllNodeTypes() {
		types = append(types, t.String())
	}
	rels := []string{graph.RelationshipBelongsTo, graph.RelationshipRelatedTo, graph.RelationshipDependsOn}
	return fmt.Sprintf(promptTemplate, strings.Join(types, ", "), strings.Join(rels, ", "), conv.Text())
}

// ExtractJSON takes the text from the first '{' to the last '}' of response.
// If it parses as JSON it is returned indented by two spaces.
func ExtractJSON(response string) (string, bool) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start < 0 || end <= start {
		return "", false
	}
	candidate := response[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return "", false
	}

	var out bytes.Buffer
	if err := json.Indent(&out, []byte(candidate), "", "  "); err != nil {
		return "", false
	}
	return out.String(), true
}

// Suggestion is a model response with any JSON document it contained.
type Suggestion struct {
	Raw     string `json:"raw"`
	JSON    string `json:"json,omitempty"`
	HasJSON bool   `json:"has_json"`
}

// Suggest asks provider for a graph document describing conv. The document is
// not checked against graph rules here; importing it does that.
func Suggest(ctx context.Context, provider Provider, conv *Conversation) (*Suggestion, error) {
	if conv.Len() == 0 {
		return nil, fmt.Errorf("conversation is empty")
	}

	raw, err := provider.Generate(ctx, BuildGraphPrompt(conv))
	if err != nil {
		return nil, fmt.Errorf("generating with %s: %w", provider.Name(), err)
	}

	s := &Suggestion{Raw: raw}
	s.JSON, s.HasJSON = ExtractJSON(raw)
	return s, nil
}
