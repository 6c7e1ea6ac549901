package main

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jwebster45206/story-reel/pkg/state"
)

const (
	AgentName       = "Storyteller"
	PlaceHolderText = "Pick an option (1-3) or write your own line..."
)

// genres are offered next to the generated topics on the start screen.
var genres = []string{"sci-fi", "fantasy", "noir", "horror", "space opera"}

type starter struct {
	Label string
	Genre string
	Topic string
}

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	ctx          context.Context
	config       *ConsoleConfig
	client       *http.Client
	sseClient    *http.Client
	game         *Game
	options      []Option
	chatViewport viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	ready        bool
	width        int
	height       int
	err          error
	notice       string
	loading      bool
	loadingLabel string

	// Start screen state
	showStartModal  bool
	starters        []starter
	selectedStarter int
	loadingStarters bool

	// Quit confirmation state
	showQuitModal bool

	// Live events for the current game
	events     chan SSEEvent
	subscribed bool

	// Progress bar state
	progressTick int
	ticking      bool
}

type startersLoadedMsg struct {
	topics []Topic
	err    error
}

// gameMsg carries the game returned by an API action.
type gameMsg struct {
	action string
	game   *Game
	err    error
}

type optionsMsg struct {
	options []Option
	err     error
}

type sseMsg struct {
	event SSEEvent
}

type sseClosedMsg struct{}

type progressTickMsg struct{}

var (
	chatPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	storytellerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	optionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")) // purple

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

func NewConsoleUI(ctx context.Context, cfg *ConsoleConfig, client *http.Client) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 500
	ta.SetWidth(50)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	chatVp := viewport.New(50, 20)
	chatVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	return ConsoleUI{
		ctx:             ctx,
		config:          cfg,
		client:          client,
		sseClient:       &http.Client{}, // streams stay open for the whole game
		textarea:        ta,
		chatViewport:    chatVp,
		metaViewport:    metaVp,
		showStartModal:  true,
		loadingStarters: true,
	}
}

func writeMetadata(g *Game, baseURL string) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("GAME") + "\n\n")

	content.WriteString("Game ID:\n")
	content.WriteString(g.ID.String()[:8] + "...\n\n")

	content.WriteString("Phase:\n")
	content.WriteString(string(g.Phase) + "\n\n")

	if g.Genre != "" {
		content.WriteString("Genre:\n")
		content.WriteString(g.Genre + "\n\n")
	}

	content.WriteString("Turns left:\n")
	content.WriteString(fmt.Sprintf("%d of %d\n\n", g.TurnsRemaining, state.MaxTurns))

	content.WriteString("Panels:\n")
	content.WriteString(fmt.Sprintf("%s (%d/%d)\n\n", g.PanelStatus, g.PanelGenerationProgress, state.PanelCount))

	content.WriteString("Video:\n")
	content.WriteString(fmt.Sprintf("%s / %s\n", g.VideoGenStatus, g.VideoFetchStatus))
	if g.PlayableVideoURL != "" {
		content.WriteString(videoURL(g, baseURL) + "\n")
	}

	content.WriteString("\n")
	content.WriteString("Commands:\n")
	content.WriteString("• Ctrl+C: Quit\n")
	content.WriteString("• Enter: Send\n")
	content.WriteString("• /help: Help\n")
	content.WriteString("• /video: Make video\n")
	content.WriteString("• /copy: Copy\n")
	content.WriteString("• /reset: Start over\n")

	return content.String()
}

// videoURL makes proxied blob paths absolute.
func videoURL(g *Game, baseURL string) string {
	if strings.HasPrefix(g.PlayableVideoURL, "/") {
		return baseURL + g.PlayableVideoURL
	}
	return g.PlayableVideoURL
}

func formatTurn(turn state.Turn, width int) string {
	if turn.Author == state.AuthorUser {
		return userStyle.Render("You: ") + wordwrap.String(turn.Content, width-5)
	}
	prefix := AgentName + ": "
	return storytellerStyle.Render(prefix) + wordwrap.String(turn.Content, width-len(prefix))
}

// writeChatContent builds the story view for the current viewport width
func (m *ConsoleUI) writeChatContent() {
	chatWidth := m.chatViewport.Width - 6 // Account for left(3) + right(3) padding
	if chatWidth < 20 {
		chatWidth = 20
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render("STORY REEL") + "\n\n")
	content.WriteString(fmt.Sprintf("Take turns with the %s. After %d turns the story becomes a storyboard and a video.\n\n",
		strings.ToLower(AgentName), state.MaxTurns))
	content.WriteString(separatorStyle.Render(strings.Repeat("─", chatWidth-6)) + "\n\n")

	if m.game != nil {
		for _, turn := range m.game.Turns {
			content.WriteString(formatTurn(turn, chatWidth) + "\n\n")
		}

		if len(m.options) > 0 && !m.loading && m.game.IsUserTurn {
			content.WriteString(titleStyle.Render("Your options:") + "\n")
			for i, opt := range m.options {
				content.WriteString(optionStyle.Render(fmt.Sprintf("%d. ", i+1)) + wordwrap.String(opt.Text, chatWidth-3) + "\n")
			}
			content.WriteString("\n")
		}

		if m.game.PanelStatus != state.PanelStatusIdle {
			content.WriteString(fmt.Sprintf("Storyboard: %s, %d of %d panels settled\n",
				m.game.PanelStatus, m.game.PanelGenerationProgress, state.PanelCount))
			for _, e := range m.game.PanelErrors {
				content.WriteString(errorStyle.Render("  "+e) + "\n")
			}
			content.WriteString("\n")
		}

		if m.game.VideoError != "" {
			content.WriteString(errorStyle.Render("Video: "+m.game.VideoError) + "\n\n")
		}
	}

	if m.notice != "" {
		content.WriteString(promptStyle.Render(wordwrap.String(m.notice, chatWidth)) + "\n\n")
	}

	if m.err != nil {
		content.WriteString(errorStyle.Render("Error: "+m.err.Error()) + "\n\n")
	}

	if m.loading {
		if m.loadingLabel != "" {
			content.WriteString(loadingStyle.Render(m.loadingLabel) + "\n")
		}
		content.WriteString(m.renderProgressBar())
	}

	m.chatViewport.SetContent(content.String())
	m.chatViewport.GotoBottom()
}

func (m *ConsoleUI) refreshPanels() {
	if m.game != nil {
		m.metaViewport.SetContent(writeMetadata(m.game, m.config.APIBaseURL))
	}
	m.writeChatContent()
}

func (m *ConsoleUI) layout() {
	chatWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - chatWidth - 6

	m.chatViewport.Width = chatWidth - 2
	m.chatViewport.Height = m.height - 7
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
	m.textarea.SetWidth(chatWidth - 4)
}

func (m ConsoleUI) Init() tea.Cmd {
	return m.loadStarters()
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	if m.showStartModal {
		return m.updateStartModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.chatViewport, vpCmd = m.chatViewport.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.ready = true
		m.refreshPanels()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
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
			return m.submitTurn(input)
		}

	case gameMsg:
		return m.handleGame(msg)

	case optionsMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			m.notice = "Write your own line, or type /options to ask again."
		} else {
			m.options = msg.options
			m.notice = ""
		}
		m.writeChatContent()

	case sseMsg:
		cmds := []tea.Cmd{m.waitForEvent()}
		if strings.HasPrefix(msg.event.Type, "panels.") || strings.HasPrefix(msg.event.Type, "video.") {
			cmds = append(cmds, m.refreshGame())
		}
		return m, tea.Batch(cmds...)

	case sseClosedMsg:
		m.subscribed = false

	case progressTickMsg:
		if m.loading {
			m.progressTick++
			m.writeChatContent()
			return m, progressTick()
		}
		m.ticking = false
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.chatViewport, vpCmd = m.chatViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, mvCmd)
}

// handleGame stores an action's result and decides what happens next.
func (m ConsoleUI) handleGame(msg gameMsg) (tea.Model, tea.Cmd) {
	m.loading = false
	if msg.err != nil {
		m.err = msg.err
		m.refreshPanels()
		return m, nil
	}
	m.err = nil
	m.game = msg.game
	m.options = nil

	var cmds []tea.Cmd
	if !m.subscribed {
		m.subscribed = true
		m.events = make(chan SSEEvent, 16)
		cmds = append(cmds, m.subscribe(), m.waitForEvent())
	}
	cmds = append(cmds, m.advance(msg.action))
	m.refreshPanels()
	return m, tea.Batch(cmds...)
}

// advance starts whatever the game's phase calls for. Refreshes triggered by
// live events never start new work.
func (m *ConsoleUI) advance(action string) tea.Cmd {
	g := m.game
	refresh := action == "refresh"
	m.notice = ""

	switch g.Phase {
	case state.PhaseTopicSelection:
		m.showStartModal = true
		m.selectedStarter = 0
		if len(m.starters) == 0 {
			m.loadingStarters = true
			return m.loadStarters()
		}

	case state.PhasePlaying:
		if refresh {
			return nil
		}
		if g.IsUserTurn {
			return m.startLoading("Thinking of options...", m.fetchOptions())
		}
		return m.startLoading("The storyteller is writing...", m.postAction("ai-turn", nil))

	case state.PhaseGeneratingImage:
		switch g.PanelStatus {
		case state.PanelStatusIdle:
			if !refresh {
				return m.startLoading("Painting the storyboard...", m.postAction("panels", nil))
			}
		case state.PanelStatusGenerating:
			m.loading, m.loadingLabel = true, "Painting the storyboard..."
			return m.tick()
		case state.PanelStatusError:
			m.notice = "The storyboard failed. Type /panels to try again."
		}

	case state.PhaseVideoPreferences:
		m.notice = fmt.Sprintf("Storyboard ready. Type /video <style> [4|6|8] to make a video. Styles: %s.", styleNames())

	case state.PhaseGeneratingVideo:
		switch {
		case g.VideoPrepared && g.VideoFetchStatus == state.VideoFetchError:
			m.notice = "The video is ready but could not be fetched. Type /retry to fetch it again."
		case g.VideoGenStatus == state.VideoGenGenerating || g.VideoFetchStatus == state.VideoFetchFetching:
			m.loading, m.loadingLabel = true, "Rendering the video, this can take a few minutes..."
			return m.tick()
		case g.VideoGenStatus == state.VideoGenError:
			m.notice = "Video generation failed. Type /video <style> to try again."
		}

	case state.PhaseComplete:
		m.notice = fmt.Sprintf("Your video is ready: %s (type /copy to copy the link, /reset to play again)",
			videoURL(g, m.config.APIBaseURL))
	}
	return nil
}

func (m *ConsoleUI) startLoading(label string, cmd tea.Cmd) tea.Cmd {
	m.loading = true
	m.loadingLabel = label
	m.progressTick = 0
	return tea.Batch(cmd, m.tick())
}

// tick starts the progress animation unless it is already running.
func (m *ConsoleUI) tick() tea.Cmd {
	if m.ticking {
		return nil
	}
	m.ticking = true
	return progressTick()
}

func (m ConsoleUI) submitTurn(input string) (tea.Model, tea.Cmd) {
	if m.game == nil || m.game.Phase != state.PhasePlaying || !m.game.IsUserTurn {
		m.notice = "It is not your turn to write."
		m.writeChatContent()
		return m, nil
	}

	content := input
	if n, err := strconv.Atoi(input); err == nil {
		if n < 1 || n > len(m.options) {
			m.notice = fmt.Sprintf("Pick an option between 1 and %d.", len(m.options))
			m.writeChatContent()
			return m, nil
		}
		content = m.options[n-1].Text
	}

	cmd := m.startLoading("Adding your line...", m.postAction("turns", map[string]string{"content": content}))
	m.writeChatContent()
	return m, cmd
}

func (m ConsoleUI) handleCommand(input string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(input)
	cmd := strings.ToLower(fields[0])
	var next tea.Cmd

	switch cmd {
	case "/help":
		m.notice = `Commands:
• /help - Show this help
• /options - Ask for new options
• /panels - Retry the storyboard
• /video <style> [4|6|8] - Make the video
• /retry - Fetch a finished video again
• /copy - Copy the video link or the story
• /reset - Start a new story
• Ctrl+C - Quit`

	case "/options":
		next = m.startLoading("Thinking of options...", m.fetchOptions())

	case "/panels":
		next = m.startLoading("Painting the storyboard...", m.postAction("panels", nil))

	case "/video":
		if len(fields) < 2 {
			m.notice = fmt.Sprintf("Usage: /video <style> [4|6|8]. Styles: %s.", styleNames())
			break
		}
		prefs := state.VideoPreferences{Style: state.VideoStyle(strings.ToLower(fields[1]))}
		if len(fields) > 2 {
			seconds, err := strconv.Atoi(fields[2])
			if err != nil {
				m.notice = "Duration must be 4, 6 or 8 seconds."
				break
			}
			prefs.DurationSeconds = seconds
		}
		next = m.startLoading("Starting the video...", m.makeVideo(prefs))

	case "/retry":
		next = m.startLoading("Fetching the video...", m.postAction("video-fetch", nil))

	case "/copy":
		text := ""
		if m.game != nil {
			text = m.game.StoryText()
			if m.game.PlayableVideoURL != "" {
				text = videoURL(m.game, m.config.APIBaseURL)
			}
		}
		if err := clipboard.WriteAll(text); err != nil {
			m.err = fmt.Errorf("failed to copy: %w", err)
		} else {
			m.notice = "Copied to clipboard."
		}

	case "/reset":
		next = m.startLoading("Starting over...", m.postAction("reset", nil))

	case "/quit":
		m.showQuitModal = true

	default:
		m.notice = "Unknown command. Type /help for a list."
	}

	m.refreshPanels()
	return m, next
}

func (m ConsoleUI) postAction(action string, body any) tea.Cmd {
	gameID := m.game.ID
	return func() tea.Msg {
		g, err := gameAction(m.client, m.config.APIBaseURL, gameID, action, body)
		return gameMsg{action: action, game: g, err: err}
	}
}

func (m ConsoleUI) makeVideo(prefs state.VideoPreferences) tea.Cmd {
	gameID := m.game.ID
	return func() tea.Msg {
		if _, err := gameAction(m.client, m.config.APIBaseURL, gameID, "video-preferences", prefs); err != nil {
			return gameMsg{action: "video", err: err}
		}
		g, err := gameAction(m.client, m.config.APIBaseURL, gameID, "video", struct{}{})
		return gameMsg{action: "video", game: g, err: err}
	}
}

func (m ConsoleUI) fetchOptions() tea.Cmd {
	gameID := m.game.ID
	return func() tea.Msg {
		options, err := getOptions(m.client, m.config.APIBaseURL, gameID)
		return optionsMsg{options, err}
	}
}

func (m ConsoleUI) refreshGame() tea.Cmd {
	gameID := m.game.ID
	return func() tea.Msg {
		g, err := getGame(m.client, m.config.APIBaseURL, gameID)
		return gameMsg{action: "refresh", game: g, err: err}
	}
}

// subscribe starts the event stream in the background; waitForEvent
// delivers its events one at a time.
func (m ConsoleUI) subscribe() tea.Cmd {
	gameID := m.game.ID
	return func() tea.Msg {
		go func() {
			// Event delivery is best effort; the UI still works from responses alone
			_ = listenToSSE(m.ctx, m.sseClient, m.config.APIBaseURL, gameID, m.events)
			close(m.events)
		}()
		return nil
	}
}

func (m ConsoleUI) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		event, ok := <-m.events
		if !ok {
			return sseClosedMsg{}
		}
		return sseMsg{event}
	}
}

func (m ConsoleUI) loadStarters() tea.Cmd {
	return func() tea.Msg {
		topics, err := listTopics(m.client, m.config.APIBaseURL)
		return startersLoadedMsg{topics, err}
	}
}

// startGame creates the game on first use and starts it from s.
func (m ConsoleUI) startGame(s starter) tea.Cmd {
	existing := m.game
	return func() tea.Msg {
		game := existing
		if game == nil {
			created, err := createGame(m.client, m.config.APIBaseURL)
			if err != nil {
				return gameMsg{action: "start", err: err}
			}
			game = created
		}

		action, body := "genre", map[string]string{"genre": s.Genre}
		if s.Topic != "" {
			action, body = "topic", map[string]string{"topic": s.Topic}
		}
		g, err := gameAction(m.client, m.config.APIBaseURL, game.ID, action, body)
		return gameMsg{action: action, game: g, err: err}
	}
}

func (m ConsoleUI) updateStartModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case startersLoadedMsg:
		m.loadingStarters = false
		m.starters = m.starters[:0]
		// Topics are optional; genres always work
		for _, t := range msg.topics {
			m.starters = append(m.starters, starter{Label: t.Text, Topic: t.Text})
		}
		for _, g := range genres {
			m.starters = append(m.starters, starter{Label: "Genre: " + g, Genre: g})
		}

	case gameMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.showStartModal = false
		if m.width > 0 && m.height > 0 {
			m.layout()
			m.ready = true
		}
		m.textarea.Focus()
		model, cmd := m.handleGame(msg)
		return model, tea.Batch(cmd, textarea.Blink)

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		}
		if m.loadingStarters || m.loading {
			return m, nil
		}

		switch msg.Type {
		case tea.KeyUp:
			if m.selectedStarter > 0 {
				m.selectedStarter--
			}
		case tea.KeyDown:
			if m.selectedStarter < len(m.starters)-1 {
				m.selectedStarter++
			}
		case tea.KeyEnter:
			if len(m.starters) > 0 {
				m.loading = true
				m.err = nil
				return m, m.startGame(m.starters[m.selectedStarter])
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				if m.showStartModal {
					return m, nil
				}
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit Game?"))
	content.WriteString("\n\n")
	content.WriteString("Are you sure you want to leave your story?")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderStartModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder

	switch {
	case m.loadingStarters:
		content.WriteString(modalTitleStyle.Render("Loading Story Starters..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("Please wait while we dream up a few beginnings..."))
	case m.loading:
		content.WriteString(modalTitleStyle.Render("Starting Story..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("Setting the scene..."))
	default:
		content.WriteString(modalTitleStyle.Render("Choose a Beginning"))
		content.WriteString("\n\n")

		for i, s := range m.starters {
			label := wordwrap.String(s.Label, 60)
			if i == m.selectedStarter {
				content.WriteString(modalSelectedItemStyle.Render("▶ " + label))
			} else {
				content.WriteString(modalItemStyle.Render("  " + label))
			}
			content.WriteString("\n")
		}

		if m.err != nil {
			content.WriteString("\n")
			content.WriteString(errorStyle.Render(fmt.Sprintf("Failed to start: %v", m.err)))
			content.WriteString("\n")
		}

		content.WriteString("\n")
		content.WriteString(promptStyle.Render("Use ↑/↓ to navigate, Enter to select, Ctrl+C to exit"))
	}

	modal := modalStyle.Width(70).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if m.showStartModal {
		return m.renderStartModal()
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	chatWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - chatWidth - 6

	chatPanel := chatPanelStyle.Width(chatWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.chatViewport.View(),
			"", // Add empty line for spacing
			separatorStyle.Render(strings.Repeat("─", chatWidth-4)),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, chatPanel, metaPanel)
}

func styleNames() string {
	names := make([]string, len(state.VideoStyles))
	for i, s := range state.VideoStyles {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

// renderProgressBar creates an animated progress bar for loading states
func (m ConsoleUI) renderProgressBar() string {
	// Usable width is the viewport minus the 3+3 padding used elsewhere
	usable := m.chatViewport.Width - 6
	if usable <= 0 {
		usable = 30 // fallback before sizing
	}

	if usable > 80 {
		usable = 80
	} else if usable < 10 {
		usable = 10
	}

	const totalFrames = 40
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := 0; i < usable; i++ {
		if i < filled {
			bar.WriteString("█")
		} else if i == filled && frame%4 < 2 {
			bar.WriteString("▓") // Blinking effect at the progress point
		} else {
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String())
}

// progressTick creates a command that sends a progress tick message
func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}
