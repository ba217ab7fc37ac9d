package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// GeminiClient implements Transport using the Generative Language API.
type GeminiClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	now     func() time.Time
}

// NewGeminiClient creates a client for the Gemini API. Model defaults to
// "gemini-3-flash-preview" if empty.
func NewGeminiClient(apiKey, model string) *GeminiClient {
	if model == "" {
		model = "gemini-3-flash-preview"
	}
	return &GeminiClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
		now:     time.Now,
	}
}

// Model returns the configured model name.
func (c *GeminiClient) Model() string {
	return c.model
}

// SetBaseURL overrides the API endpoint, used by tests.
func (c *GeminiClient) SetBaseURL(url string) {
	c.baseURL = strings.TrimSuffix(url, "/")
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiSystemInstruction `json:"system_instruction,omitempty"`
	Contents          []geminiContent          `json:"contents"`
	GenerationConfig  geminiGenerationConfig   `json:"generationConfig"`
}

type geminiSystemInstruction struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// SendTurn sends the conversation window plus the new utterance and
// returns the model's raw reply text, markers included.
func (c *GeminiClient) SendTurn(ctx context.Context, req TurnRequest) (string, error) {
	contents := make([]geminiContent, 0, historyWindow+1)
	for _, msg := range windowHistory(req.History) {
		role := "user"
		if msg.Role != "user" {
			role = "model"
		}
		contents = append(contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: msg.Content}},
		})
	}
	contents = append(contents, geminiContent{
		Role:  "user",
		Parts: []geminiPart{{Text: c.finalPrompt(req)}},
	})

	body := geminiRequest{
		SystemInstruction: &geminiSystemInstruction{
			Parts: []geminiPart{{Text: SystemInstruction}},
		},
		Contents: contents,
		GenerationConfig: geminiGenerationConfig{
			Temperature:     0.7,
			MaxOutputTokens: 1000,
		},
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send turn: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Debug("Failed to close response body", "error", closeErr)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var result geminiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}

	for _, candidate := range result.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				return part.Text, nil
			}
		}
	}
	return "", fmt.Errorf("no text content in response")
}

// finalPrompt composes the system-context block and the user command.
func (c *GeminiClient) finalPrompt(req TurnRequest) string {
	var b strings.Builder
	now := c.now()

	if req.IsGuest {
		b.WriteString("[PROTOCOLO DE CONVIDADO ATIVO]\n")
		b.WriteString("SISTEMA: MODO LIMITADO (CHAT APENAS)\n")
		fmt.Fprintf(&b, "DATA: %s\n", now.Format("02/01/2006"))
		b.WriteString("ESTADO: Subsistemas de hardware ocultos por segurança.\n")
		b.WriteString("DIRETRIZ: Atuar como um chat comum, mas mantendo a persona ORION minimalista.\n")
		b.WriteString("Você está em MODO CONVIDADO. Não execute comandos de sistema nem acesse memórias persistentes.\n")
	} else {
		b.WriteString("[NÚCLEO DE TELEMETRIA ORION - ACESSO TOTAL]\n")
		fmt.Fprintf(&b, "USUÁRIO_ID: %s\n", req.UserID)
		fmt.Fprintf(&b, "HORA/DATA: %s | %s\n", now.Format("15:04:05"), now.Format("02/01/2006"))
		b.WriteString("\n[PROCESSOS EM SEGUNDO PLANO]\n")
		b.WriteString("- IA Kernel (Orion-Flash-Core): ATIVO\n")
		b.WriteString("- Memory Service: MONITORANDO\n")
		b.WriteString("- Notification Spool: ATIVO\n")
		b.WriteString("- Interface Renderer: ESTÁVEL\n")
		b.WriteString("\n")
		b.WriteString(memoryContext(req))
		b.WriteString(notificationContext(req))
	}

	fmt.Fprintf(&b, "\nCOMANDO DO USUÁRIO: %s\n", req.Utterance)
	return b.String()
}

func memoryContext(req TurnRequest) string {
	if len(req.Memories) == 0 {
		return "BANCO DE DADOS: Vazio.\n"
	}
	var b strings.Builder
	b.WriteString("BANCO DE DADOS (MEMÓRIA PERSISTENTE):\n")
	for _, entry := range req.Memories {
		fmt.Fprintf(&b, "- %s\n", entry.Content)
	}
	return b.String()
}

func notificationContext(req TurnRequest) string {
	if len(req.Notifications) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n[NOTIFICAÇÕES ATIVAS]\n")
	for _, n := range req.Notifications {
		fmt.Fprintf(&b, "- [%s/%s] %s: %s\n", n.Priority, n.Category, n.Title, n.Details)
	}
	return b.String()
}
