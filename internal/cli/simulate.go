package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"encoding/xml"
	stderrors "errors"
	"fmt"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/deckwork/ipkey/internal/driver"
	"github.com/deckwork/ipkey/pkg/clipboard"
	"github.com/deckwork/ipkey/pkg/config"
	"github.com/deckwork/ipkey/pkg/deck"
	"github.com/deckwork/ipkey/pkg/errors"
	"github.com/deckwork/ipkey/pkg/keyimage"
	"github.com/deckwork/ipkey/pkg/observability"
	"github.com/deckwork/ipkey/pkg/publicip"
	"github.com/deckwork/ipkey/pkg/settings"
)

// Simulator styles
var (
	simKeyStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorCyan).
			Width(16).
			Height(5).
			Align(lipgloss.Center, lipgloss.Center)
	simLabelStyle = lipgloss.NewStyle().Foreground(colorGray).Width(10)
	simErrorStyle = lipgloss.NewStyle().Foreground(colorRed)
)

// =============================================================================
// Command
// =============================================================================

// simulateCommand creates the simulate command, a terminal stand-in for the
// deck: one key, the real driver, the real clipboard.
func (c *CLI) simulateCommand() *cobra.Command {
	var (
		flags lookupFlags
		lines int
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Drive a simulated key in the terminal",
		Long: `Run the key driver against a terminal key instead of the deck.

The simulated key behaves like the hardware one: it resolves the public
address on appearance, refreshes on the timer, and copies to the real
clipboard when pressed. Layout changes persist to the same settings
store the plugin uses.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if lines != 0 {
				if err := errors.ValidateLines(lines); err != nil {
					return err
				}
			}
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			return c.runSimulate(cmd.Context(), cfg, lines)
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVarP(&lines, "lines", "l", 0, "initial address layout: 1, 2, or 4 lines")

	return cmd
}

func (c *CLI) runSimulate(ctx context.Context, cfg config.Config, lines int) error {
	recorder := &providerRecorder{}
	observability.SetFetchHooks(recorder)
	defer observability.Reset()

	store, err := settings.NewFileStore("")
	if err != nil {
		return err
	}

	display := newTUIDisplay()
	events := make(chan deck.Event, 16)

	drv := driver.New(display, publicip.New(cfg.LookupOptions()...), clipboard.New(), events, driver.Options{
		Refresh: cfg.Refresh.Duration,
		Store:   store,
		Logger:  log.New(io.Discard),
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- drv.Run(runCtx)
	}()

	key := uuid.NewString()
	var payload json.RawMessage
	if lines != 0 {
		payload = linesSettings(lines)
	}
	events <- deck.Event{Event: deck.EventWillAppear, Action: deck.ActionAddress, Context: key, Payload: payload}

	model := simulateModel{
		drv:    drv,
		events: events,
		msgs:   display.msgs,
		key:    key,
		lookup: recorder,
	}

	_, uiErr := tea.NewProgram(model, tea.WithContext(runCtx)).Run()

	cancel()
	runErr := <-done

	if uiErr != nil && !stderrors.Is(uiErr, tea.ErrProgramKilled) {
		return uiErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if stderrors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

// =============================================================================
// Display bridge
// =============================================================================

// tuiDisplay satisfies driver.Display by feeding host commands into the
// bubbletea program instead of a websocket.
type tuiDisplay struct {
	msgs chan tea.Msg
}

func newTUIDisplay() *tuiDisplay {
	return &tuiDisplay{msgs: make(chan tea.Msg, 64)}
}

func (d *tuiDisplay) SetImage(_ context.Context, _, image string) error {
	d.send(faceMsg{lines: parseKeyFace(image)})
	return nil
}

func (d *tuiDisplay) ShowAlert(_ context.Context, _ string) error {
	d.send(alertMsg{})
	return nil
}

func (d *tuiDisplay) LogMessage(_ context.Context, message string) error {
	d.send(hostLogMsg{line: message})
	return nil
}

// send never blocks the driver loop; a full queue drops the update.
func (d *tuiDisplay) send(msg tea.Msg) {
	select {
	case d.msgs <- msg:
	default:
	}
}

// parseKeyFace recovers the text lines from a rendered key image so the
// terminal can show what the deck would.
func parseKeyFace(image string) []string {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(image, keyimage.DataURIPrefix))
	if err != nil {
		return []string{"?"}
	}

	var lines []string
	dec := xml.NewDecoder(bytes.NewReader(raw))
	inText := false
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "text" {
				inText = true
			}
		case xml.EndElement:
			if t.Name.Local == "text" {
				inText = false
			}
		case xml.CharData:
			if inText {
				lines = append(lines, string(t))
			}
		}
	}
	return lines
}

// =============================================================================
// Model
// =============================================================================

type faceMsg struct {
	lines []string
}

type alertMsg struct{}

type hostLogMsg struct {
	line string
}

type tickMsg time.Time

// simulateModel is the bubbletea model for one on-screen key wired to a
// live driver.
type simulateModel struct {
	drv    *driver.Driver
	events chan<- deck.Event
	msgs   chan tea.Msg
	key    string
	lookup *providerRecorder

	face    []string
	alerts  int
	hostLog []string
	snap    driver.Snapshot
}

func (m simulateModel) Init() tea.Cmd {
	return tea.Batch(waitForHostMsg(m.msgs), simulateTick())
}

func (m simulateModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.sendEvent(deck.EventWillDisappear, nil)
			return m, tea.Quit
		case " ", "enter":
			m.sendEvent(deck.EventKeyDown, nil)
			m.sendEvent(deck.EventKeyUp, nil)
		case "1", "2", "4":
			m.sendEvent(deck.EventDidReceiveSettings, linesSettings(int(msg.String()[0]-'0')))
		case "r":
			m.drv.Kick()
		}
	case faceMsg:
		m.face = msg.lines
		return m, waitForHostMsg(m.msgs)
	case alertMsg:
		m.alerts++
		return m, waitForHostMsg(m.msgs)
	case hostLogMsg:
		m.hostLog = append(m.hostLog, msg.line)
		if len(m.hostLog) > 5 {
			m.hostLog = m.hostLog[len(m.hostLog)-5:]
		}
		return m, waitForHostMsg(m.msgs)
	case tickMsg:
		m.snap = m.drv.Snapshot()
		return m, simulateTick()
	}
	return m, nil
}

func (m simulateModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Key Simulator"))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("space copy   1/2/4 layout   r refresh   q quit"))
	b.WriteString("\n\n")

	face := strings.Join(m.face, "\n")
	switch face {
	case "Copied!":
		face = StyleSuccess.Render(face)
	case "Error":
		face = StyleWarning.Render(face)
	}
	b.WriteString(simKeyStyle.Render(face))
	b.WriteString("\n\n")

	address := m.snap.Address
	if address == "" {
		address = "resolving..."
	}
	fetched := "never"
	if !m.snap.FetchedAt.IsZero() {
		fetched = m.snap.FetchedAt.Format("15:04:05")
	}
	provider := m.lookup.name()
	if provider == "" {
		provider = "—"
	}

	b.WriteString(simRow("address", StyleHighlight.Render(address)))
	b.WriteString(simRow("fetched", fetched))
	b.WriteString(simRow("provider", provider))
	b.WriteString(simRow("alerts", fmt.Sprintf("%d", m.alerts)))
	if m.snap.LastError != "" {
		b.WriteString(simRow("last error", simErrorStyle.Render(m.snap.LastError)))
	}

	if len(m.hostLog) > 0 {
		b.WriteString("\n")
		b.WriteString(StyleDim.Render("  host log"))
		b.WriteString("\n")
		for _, line := range m.hostLog {
			b.WriteString(StyleDim.Render("  " + line))
			b.WriteString("\n")
		}
	}

	return b.String()
}

// sendEvent queues a synthetic host event for the driver.
func (m simulateModel) sendEvent(name string, payload json.RawMessage) {
	ev := deck.Event{Event: name, Action: deck.ActionAddress, Context: m.key, Payload: payload}
	select {
	case m.events <- ev:
	default:
	}
}

// waitForHostMsg relays the next display update into the program.
func waitForHostMsg(msgs chan tea.Msg) tea.Cmd {
	return func() tea.Msg { return <-msgs }
}

// simulateTick schedules the next snapshot poll.
func simulateTick() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// linesSettings is the host settings payload selecting an address layout.
func linesSettings(lines int) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"settings":{"lines":%d}}`, lines))
}

// simRow formats one label/value line of the status block.
func simRow(label, value string) string {
	return fmt.Sprintf("  %s %s\n", simLabelStyle.Render(label), value)
}
