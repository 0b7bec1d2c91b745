package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/yolodolo42/txagent/internal/agent"
	"github.com/yolodolo42/txagent/internal/llm"
	"github.com/yolodolo42/txagent/internal/ui"
)

// turnTimeout covers every model round and bridged submission of one message.
const turnTimeout = 3 * time.Minute

// newAgent wires the executor behind the tool registry and the configured model.
func (s *state) newAgent(ctx context.Context) (*agent.Agent, func(), error) {
	ex, done, err := s.executor()
	if err != nil {
		return nil, nil, err
	}
	provider := s.provider
	if provider == nil {
		if provider, err = llm.New(ctx, s.cfg.LLMConfig()); err != nil {
			done()
			return nil, nil, err
		}
	}
	ag, err := agent.New(provider, agent.NewToolRegistry(ex, ex.Registry()),
		agent.WithLogger(s.log),
		agent.WithSessionLog(s.cfg.DataDir),
	)
	if err != nil {
		done()
		return nil, nil, err
	}
	return ag, func() {
		ag.Close()
		done()
	}, nil
}

func newChatCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat with a tool-calling model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, st)
		},
	}
}

func newAskCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <prompt>",
		Short: "Send one message to the model and print the outcome",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ag, done, err := st.newAgent(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			ctx, cancel := context.WithTimeout(cmd.Context(), turnTimeout)
			defer cancel()

			events, err := ag.ChatWithEvents(ctx, strings.Join(args, " "))
			if out := renderEvents(terminalWidth(), events); out != "" {
				fmt.Fprintln(cmd.OutOrStdout(), out)
			}
			return err
		},
	}
}

func runChat(cmd *cobra.Command, st *state) error {
	logFile, err := st.logToFile("txagent.log")
	if err != nil {
		return err
	}
	defer logFile.Close()

	ag, done, err := st.newAgent(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to create agent: %w", err)
	}
	defer done()

	p := tea.NewProgram(
		initialModel(ag),
		tea.WithAltScreen(),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	_, err = p.Run()
	return err
}

// chatMessage is one entry in the chat history
type chatMessage struct {
	role    string // "user", "assistant", "error", "system"
	content string
}

// model is the REPL state
type model struct {
	agent    *agent.Agent
	textarea textarea.Model
	viewport viewport.Model
	messages []chatMessage
	spinner  spinner.Model
	loading  bool
	width    int
	ready    bool
	quitting bool
}

// responseMsg is sent when the agent finishes a turn
type responseMsg struct {
	events []agent.ChatEvent
	err    error
}

func initialModel(ag *agent.Agent) model {
	ta := textarea.New()
	ta.Placeholder = "e.g. send 0.01 ETH to 0x... on sepolia"
	ta.Focus()
	ta.CharLimit = 500
	ta.SetWidth(80)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = ui.TitleStyle

	return model{
		agent:    ag,
		textarea: ta,
		spinner:  sp,
		width:    defaultWidth,
		messages: []chatMessage{{
			role:    "system",
			content: "Transfers and swaps you ask for are submitted for real.\nUse /help for commands, /quit to exit.",
		}},
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			m.quitting = true
			return m, tea.Quit

		case tea.KeyEnter:
			if m.loading {
				return m, nil
			}
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}
			m.textarea.Reset()

			if strings.HasPrefix(input, "/") {
				return m.handleCommand(input)
			}

			m.messages = append(m.messages, chatMessage{role: "user", content: input})
			m.loading = true
			m.updateViewport()
			return m, m.sendToAgent(input)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-8)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 8
		}
		m.textarea.SetWidth(msg.Width - 4)
		m.updateViewport()

	case responseMsg:
		m.loading = false
		if out := renderEvents(m.width-4, msg.events); out != "" {
			m.messages = append(m.messages, chatMessage{role: "assistant", content: out})
		}
		if msg.err != nil {
			m.messages = append(m.messages, chatMessage{role: "error", content: msg.err.Error()})
		}
		m.updateViewport()
		m.viewport.GotoBottom()

	case spinner.TickMsg:
		m.spinner, spCmd = m.spinner.Update(msg)
		return m, spCmd
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)
	return m, tea.Batch(tiCmd, vpCmd)
}

func (m model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}
	if !m.ready {
		return "Initializing...\n"
	}

	var b strings.Builder
	b.WriteString(ui.TitleStyle.Render("  txagent") + ui.HelpStyle.Render("  "+m.agent.ProviderName()+" / "+m.agent.CurrentModel()))
	b.WriteString("\n\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	if m.loading {
		b.WriteString(fmt.Sprintf("\n  %s Working...\n\n", m.spinner.View()))
	} else {
		b.WriteString("\n")
	}

	b.WriteString(m.textarea.View())
	b.WriteString("\n")
	b.WriteString(ui.HelpStyle.Render("  /help • /model • /clear • /quit • Ctrl+C to exit"))
	return b.String()
}

func (m *model) updateViewport() {
	m.viewport.SetContent(m.transcript())
}

func (m model) transcript() string {
	var content strings.Builder
	for _, msg := range m.messages {
		switch msg.role {
		case "user":
			content.WriteString(ui.UserStyle.Render("You: "))
			content.WriteString(msg.content)
		case "assistant":
			content.WriteString(ui.AssistantStyle.Render("txagent: "))
			content.WriteString(msg.content)
		case "error":
			content.WriteString(ui.ErrorStyle.Render("Error: "))
			content.WriteString(msg.content)
		case "system":
			content.WriteString(ui.HelpStyle.Render(msg.content))
		}
		content.WriteString("\n\n")
	}
	return content.String()
}

func (m model) system(content string) (tea.Model, tea.Cmd) {
	m.messages = append(m.messages, chatMessage{role: "system", content: content})
	m.updateViewport()
	return m, nil
}

func (m model) fail(content string) (tea.Model, tea.Cmd) {
	m.messages = append(m.messages, chatMessage{role: "error", content: content})
	m.updateViewport()
	return m, nil
}

func (m model) handleCommand(input string) (tea.Model, tea.Cmd) {
	parts := strings.SplitN(strings.TrimSpace(input), " ", 2)
	cmd := strings.ToLower(parts[0])
	arg := ""
	if len(parts) > 1 {
		arg = strings.TrimSpace(parts[1])
	}

	switch cmd {
	case "/quit", "/exit", "/q":
		m.quitting = true
		return m, tea.Quit

	case "/clear":
		m.messages = nil
		m.agent.Reset()
		return m.system("Chat cleared.")

	case "/model":
		return m.handleModelCommand(arg)

	case "/help", "/?":
		return m.system(`Available commands:
  /help, /?       - Show this help
  /model          - List known models
  /model <id>     - Switch to a different model
  /clear          - Clear chat history
  /quit, /exit    - Exit txagent

Example requests:
  "What chains are configured?"
  "Send 0.01 ETH to 0x... on sepolia"
  "Send 25 USDC to 0x... on sepolia"
  "Swap 0.05 ETH for USDC on sepolia"`)

	default:
		return m.fail(fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd))
	}
}

func (m model) handleModelCommand(modelID string) (tea.Model, tea.Cmd) {
	if modelID == "" {
		current := m.agent.CurrentModel()

		var b strings.Builder
		b.WriteString(fmt.Sprintf("Models for %s:\n", m.agent.ProviderName()))
		for _, md := range m.agent.ListModels() {
			marker := "  "
			if md.ID == current {
				marker = ui.SymbolArrow + " "
			}
			toolTag := ""
			if !md.SupportsTools {
				toolTag = " (no tool support)"
			}
			b.WriteString(fmt.Sprintf("  %s%-30s %s%s\n", marker, md.ID, md.Name, toolTag))
		}
		b.WriteString(fmt.Sprintf("\nActive: %s\nUsage: /model <id>", current))
		return m.system(b.String())
	}

	if err := m.agent.SetModel(modelID); err != nil {
		return m.fail(fmt.Sprintf("Failed to switch model: %v", err))
	}
	return m.system(fmt.Sprintf("Switched to %s. Conversation history cleared.", modelID))
}

func (m model) sendToAgent(input string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
		defer cancel()

		events, err := m.agent.ChatWithEvents(ctx, input)
		return responseMsg{events: events, err: err}
	}
}
