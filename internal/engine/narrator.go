package engine

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
	"gopkg.in/yaml.v3"

	"github.com/tatianab/storyworld/internal/config"
)

//go:embed prompts/narrate.txt
var narratePrompt string

var narrateTemplate = template.Must(template.New("narrate").Parse(narratePrompt))

// historyLimit is how many past exchanges are sent along with a command.
const historyLimit = 8

var ErrEmptyReply = errors.New("no content returned from narrator")

// Scene is what the narrator knows about the player's surroundings.
type Scene struct {
	Language    string
	Place       string
	Description string
	Inventory   []string
	Exits       []string
	Command     string
}

// Narrator improvises replies to commands the parser cannot match.
type Narrator interface {
	Narrate(ctx context.Context, s Scene) (string, error)
}

type exchange struct {
	Command string
	Reply   string
}

// GeminiNarrator asks a Gemini model for the reply.
type GeminiNarrator struct {
	client  *genai.Client
	model   *genai.GenerativeModel
	history []exchange
}

func NewGeminiNarrator(ctx context.Context, cfg config.NarratorConfig) (*GeminiNarrator, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, err
	}
	return &GeminiNarrator{
		client: client,
		model:  client.GenerativeModel(cfg.Model),
	}, nil
}

func (n *GeminiNarrator) Close() {
	n.client.Close()
}

func (n *GeminiNarrator) Narrate(ctx context.Context, s Scene) (string, error) {
	prompt, err := renderPrompt(s, n.history)
	if err != nil {
		return "", err
	}

	resp, err := n.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyReply
	}
	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return "", fmt.Errorf("unexpected response type from Gemini")
	}

	reply, err := parseReply(string(text))
	if err != nil {
		return "", err
	}
	n.history = append(n.history, exchange{Command: s.Command, Reply: reply})
	if len(n.history) > historyLimit {
		n.history = n.history[len(n.history)-historyLimit:]
	}
	return reply, nil
}

func renderPrompt(s Scene, history []exchange) (string, error) {
	var buf bytes.Buffer
	data := struct {
		Scene
		History []exchange
	}{s, history}
	if err := narrateTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// parseReply strips the code fences models like to add and decodes the yaml.
func parseReply(text string) (string, error) {
	clean := strings.TrimSpace(text)
	clean = strings.TrimPrefix(clean, "```yaml")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")

	var out struct {
		Reply string `yaml:"reply"`
	}
	if err := yaml.Unmarshal([]byte(clean), &out); err != nil {
		return "", fmt.Errorf("failed to parse narrator YAML: %w\nOutput was: %s", err, clean)
	}
	if strings.TrimSpace(out.Reply) == "" {
		return "", ErrEmptyReply
	}
	return strings.TrimSpace(out.Reply), nil
}
