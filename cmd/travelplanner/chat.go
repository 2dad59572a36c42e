package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ManupaDev/multi-agent-travel-planner/adapter/uistream"
	"github.com/ManupaDev/multi-agent-travel-planner/server"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with a running server",
	Long: `Sends each line typed on stdin to the chat endpoint and renders the streamed
answer. After a question from the planner the next line answers it.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		base, _ := cmd.Flags().GetString("server")
		thread, _ := cmd.Flags().GetString("thread")
		requirementsOnly, _ := cmd.Flags().GetBool("requirements")

		c := newChatClient(base, thread, requirementsOnly)
		return c.loop(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().String("server", "http://localhost:8585", "Base URL of the travel planner server")
	chatCmd.Flags().String("thread", "", "Thread id to continue (default: a new one)")
	chatCmd.Flags().Bool("requirements", false, "Only gather requirements")
}

var (
	agentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	toolStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	dataStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	promptStyle = lipgloss.NewStyle().Bold(true)
)

type chatClient struct {
	url      string
	threadID string
	http     *http.Client
	// resume is set while the server waits for an answer
	resume bool
}

func newChatClient(base, threadID string, requirementsOnly bool) *chatClient {
	if threadID == "" {
		threadID = uuid.NewString()
	}
	path := "/travel-system/chat"
	if requirementsOnly {
		path = "/requirements/chat"
	}
	return &chatClient{
		url:      strings.TrimRight(base, "/") + path,
		threadID: threadID,
		http:     &http.Client{},
	}
}

func (c *chatClient) loop(ctx context.Context, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, toolStyle.Render("thread "+c.threadID))
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, promptStyle.Render("you> "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := c.send(ctx, line, out); err != nil {
			fmt.Fprintln(out, errorStyle.Render(err.Error()))
		}
	}
}

// send posts one user message and renders the answer
func (c *chatClient) send(ctx context.Context, text string, out io.Writer) error {
	body, err := json.Marshal(server.ChatRequest{
		ID:      c.threadID,
		Trigger: "submit-message",
		Resume:  c.resume,
		Messages: []server.UIMessage{{
			ID:    uuid.NewString(),
			Role:  "user",
			Parts: []server.UIPart{{Type: "text", Text: text}},
		}},
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach %s: %w", c.url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("server answered %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	interrupted, err := render(resp.Body, out)
	c.resume = interrupted
	return err
}

// render prints a UI message stream and reports whether it ended with a question
func render(r io.Reader, out io.Writer) (bool, error) {
	dec := uistream.NewDecoder(r)
	interrupted := false
	for {
		ev, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return interrupted, nil
		}
		if err != nil {
			return interrupted, err
		}

		switch {
		case ev.Type == uistream.TypeTextDelta:
			fmt.Fprint(out, agentStyle.Render(ev.Delta))
		case ev.Type == uistream.TypeTextEnd:
			fmt.Fprintln(out)
		case ev.Type == uistream.TypeToolInputAvailable:
			args, _ := json.Marshal(ev.Input)
			fmt.Fprintln(out, toolStyle.Render(fmt.Sprintf("-> %s %s", ev.ToolName, args)))
		case ev.Type == uistream.TypeToolOutputAvailable:
			fmt.Fprintln(out, toolStyle.Render("<- "+ev.ToolCallID))
		case ev.IsData():
			data, _ := json.MarshalIndent(ev.Data, "  ", "  ")
			fmt.Fprintln(out, dataStyle.Render(ev.Field()+":"))
			fmt.Fprintln(out, "  "+string(data))
		case ev.Type == uistream.TypeFinish:
			interrupted = ev.FinishReason == uistream.FinishInterrupt
		case ev.Type == uistream.TypeError:
			fmt.Fprintln(out, errorStyle.Render("error: "+ev.Error))
		case ev.Type == uistream.TypeDone:
			return interrupted, nil
		}
	}
}
