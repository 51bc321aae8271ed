// Package chatcmder provides the chat command for interactive LLM chat
// through a running modelgate gateway.
package chatcmder

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/modelgate/pkg/cliui"
	"github.com/papercomputeco/modelgate/pkg/logger"
	"github.com/papercomputeco/modelgate/pkg/sse"
	"github.com/papercomputeco/modelgate/pkg/utils"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("assistant> ")
)

type chatCommander struct {
	target string
	model  string
	email  string
	debug  bool

	token  string
	logger *zap.Logger
}

// chatMessage is one turn of the conversation sent to the gateway.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

// streamChunk is one "chunk" SSE event payload from the gateway.
type streamChunk struct {
	Model   string `json:"model"`
	Content string `json:"content"`
	Done    bool   `json:"done"`
}

// streamError is an "error" SSE event payload.
type streamError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

const chatLongDesc string = `Start an interactive chat session through a modelgate gateway.

The chat command logs in with the given email (prompting for the
password), then streams responses from the gateway over SSE.

Examples:
  modelgate chat --model llama3.2 --email me@example.com
  modelgate chat --model llama3.2 --target http://localhost:8080 --email me@example.com`

const chatShortDesc string = "Interactive LLM chat through a modelgate gateway"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run()
		},
	}

	cmd.Flags().StringVarP(&cmder.target, "target", "t", "http://localhost:8080", "Gateway URL")
	cmd.Flags().StringVarP(&cmder.model, "model", "m", "llama3.2", "Model name (e.g., llama3.2, mistral:7b)")
	cmd.Flags().StringVarP(&cmder.email, "email", "e", "", "Account email to log in with")

	return cmd
}

func (c *chatCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	if c.email == "" {
		return fmt.Errorf("--email is required")
	}

	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println()
	fmt.Print(cliui.KeyStyle.Render("  password: "))
	if !scanner.Scan() {
		return fmt.Errorf("reading password: %w", scanner.Err())
	}
	password := strings.TrimSpace(scanner.Text())

	if err := cliui.Step(os.Stdout, "logging in", func() error {
		return c.login(password)
	}); err != nil {
		return err
	}

	fmt.Printf("\n  %s %s\n\n",
		cliui.KeyStyle.Render("Model:"),
		cliui.NameStyle.Render(c.model),
	)
	fmt.Printf("  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /exit or Ctrl+D to quit."))

	var messages []chatMessage
	for {
		fmt.Print(userPrompt)
		if !scanner.Scan() {
			// EOF or error
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/exit" {
			break
		}

		messages = append(messages, chatMessage{Role: "user", Content: input})

		assistantContent, err := c.sendAndStream(messages)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  %s %v\n", cliui.FailMark, err)
			// Remove the failed user message so we can retry
			messages = messages[:len(messages)-1]
			continue
		}

		messages = append(messages, chatMessage{Role: "assistant", Content: assistantContent})

		fmt.Println()
		fmt.Println()
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Println()
	return nil
}

// login exchanges the credentials for an access token.
func (c *chatCommander) login(password string) error {
	body, err := json.Marshal(map[string]string{
		"email":    c.email,
		"password": password,
	})
	if err != nil {
		return fmt.Errorf("marshaling login request: %w", err)
	}

	resp, err := http.Post(c.target+"/v1/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("sending login request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("login failed with status %d: %s", resp.StatusCode, utils.Truncate(strings.TrimSpace(string(respBody)), 256))
	}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("decoding login response: %w", err)
	}

	c.token = out.AccessToken
	return nil
}

// sendAndStream sends a chat request and streams the SSE response to stdout.
// Returns the full assistant response text.
func (c *chatCommander) sendAndStream(messages []chatMessage) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	c.logger.Debug("sending chat request",
		zap.String("target", c.target),
		zap.String("model", c.model),
		zap.Int("message_count", len(messages)),
	)

	url := c.target + "/v1/chat/stream"
	httpReq, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	client := &http.Client{
		// LLM responses can be slow
		Timeout: 5 * time.Minute,
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("sending request to gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, utils.Truncate(strings.TrimSpace(string(respBody)), 256))
	}

	fmt.Print(assistantPrompt)

	var fullContent strings.Builder
	reader := sse.NewReader(resp.Body)

	for {
		ev, err := reader.Next()
		if err != nil {
			return fullContent.String(), fmt.Errorf("reading stream: %w", err)
		}
		if ev == nil {
			return fullContent.String(), nil
		}

		switch ev.Type {
		case "chunk":
			var chunk streamChunk
			if err := json.Unmarshal([]byte(ev.Data), &chunk); err != nil {
				c.logger.Debug("failed to parse stream chunk",
					zap.Error(err),
					zap.String("data", ev.Data),
				)
				continue
			}
			if chunk.Content != "" {
				fmt.Print(chunk.Content)
				fullContent.WriteString(chunk.Content)
			}
			if chunk.Done {
				return fullContent.String(), nil
			}
		case "error":
			var streamErr streamError
			if err := json.Unmarshal([]byte(ev.Data), &streamErr); err != nil {
				return fullContent.String(), fmt.Errorf("stream failed: %s", ev.Data)
			}
			return fullContent.String(), fmt.Errorf("stream failed: %s (%s)",
				streamErr.Error.Message, streamErr.Error.Code)
		}
	}
}
