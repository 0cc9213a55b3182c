package ui

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/Mohsinsiddi/tokensend/internal/transfer"
	tea "github.com/charmbracelet/bubbletea"
)

// TrackPollMsg reports that a receipt poll is about to be sent.
type TrackPollMsg struct {
	Attempt int
	Elapsed time.Duration
}

// TrackDoneMsg ends tracking with the confirmation outcome.
type TrackDoneMsg struct {
	Receipt *transfer.Receipt
	Err     error
}

// TrackerModel is the Bubble Tea model for the live confirmation view.
type TrackerModel struct {
	Hash        string
	Network     string
	Recipient   string
	Amount      string // formatted, with symbol
	ExplorerURL string

	Attempt  int
	Elapsed  time.Duration
	Frame    int
	Done     bool
	Receipt  *transfer.Receipt
	Err      error
	Quitting bool
	flash    string
}

type trackTickMsg struct{}

func trackSpinTick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(time.Time) tea.Msg {
		return trackTickMsg{}
	})
}

func (m TrackerModel) Init() tea.Cmd { return trackSpinTick() }

func (m TrackerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		m.flash = ""
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.Quitting = true
			return m, tea.Quit

		case "o":
			if m.ExplorerURL == "" {
				m.flash = "No explorer URL available"
				break
			}
			openBrowser(m.ExplorerURL)
			m.flash = "Opening in browser…"

		case "c":
			if err := copyToClipboard(m.Hash); err == nil {
				m.flash = "Copied: " + TruncateAddr(m.Hash)
			} else {
				m.flash = "Copy failed"
			}
		}

	case trackTickMsg:
		if m.Done {
			return m, nil
		}
		m.Frame = (m.Frame + 1) % len(spinnerFrames)
		return m, trackSpinTick()

	case TrackPollMsg:
		m.Attempt = msg.Attempt
		m.Elapsed = msg.Elapsed

	case TrackDoneMsg:
		m.Done = true
		m.Receipt = msg.Receipt
		m.Err = msg.Err
		return m, tea.Quit
	}

	return m, nil
}

func (m TrackerModel) View() string {
	if m.Quitting && !m.Done {
		return StyleMeta.Render("  stopped tracking "+TruncateAddr(m.Hash)) + "\n"
	}

	var sb strings.Builder
	sb.WriteString(StyleTitle.Render("Tracking transfer  ·  "+m.Network) + "\n")
	sb.WriteString(KeyValueBlock("", [][2]string{
		{"Hash", m.Hash},
		{"To", m.Recipient},
		{"Amount", m.Amount},
	}) + "\n\n")
	sb.WriteString(m.statusLine() + "\n")

	if !m.Done {
		sb.WriteString("\n")
		if m.flash != "" {
			sb.WriteString(StyleSuccess.Render("  ✓ " + m.flash))
		} else {
			sb.WriteString(trackControls())
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m TrackerModel) statusLine() string {
	switch {
	case m.Receipt != nil && m.Receipt.Succeeded():
		return Success(fmt.Sprintf("confirmed in block #%d  ·  gas used %d  ·  %d poll(s)",
			m.Receipt.BlockNumber, m.Receipt.GasUsed, m.Receipt.Attempts))
	case m.Receipt != nil:
		return Err(fmt.Sprintf("reverted in block #%d", m.Receipt.BlockNumber))
	case m.Err != nil:
		return Err(trimErr(m.Err.Error()))
	case m.Attempt == 0:
		return StyleMeta.Render("  broadcast, waiting for first poll…")
	}
	spin := StyleChain.Render(spinnerFrames[m.Frame%len(spinnerFrames)])
	return fmt.Sprintf("%s %s", spin, StyleInfo.Render(fmt.Sprintf(
		"waiting for inclusion  ·  poll #%d  ·  %s", m.Attempt, m.Elapsed.Round(100*time.Millisecond))))
}

func trackControls() string {
	sep := StyleMeta.Render("   ")
	var sb strings.Builder
	sb.WriteString(StyleInfo.Render("[ o ]"))
	sb.WriteString(StyleMeta.Render(" open in explorer"))
	sb.WriteString(sep)
	sb.WriteString(StyleWarning.Render("[ c ]"))
	sb.WriteString(StyleMeta.Render(" copy hash"))
	sb.WriteString(sep)
	sb.WriteString(StyleMeta.Render("[ q ]"))
	sb.WriteString(StyleMeta.Render(" stop"))
	return sb.String()
}

// Tracker drives a TrackerModel from poll callbacks.
type Tracker struct {
	model TrackerModel
	in    io.Reader
	out   io.Writer

	mu sync.Mutex
	p  *tea.Program
}

// NewTracker creates a tracker rendering to out and reading keys from in.
func NewTracker(m TrackerModel, in io.Reader, out io.Writer) *Tracker {
	return &Tracker{model: m, in: in, out: out}
}

// Observe is a transfer.PollObserver. It is a no-op while Run is not active.
func (t *Tracker) Observe(attempt int, elapsed time.Duration) {
	t.mu.Lock()
	p := t.p
	t.mu.Unlock()
	if p != nil {
		p.Send(TrackPollMsg{Attempt: attempt, Elapsed: elapsed})
	}
}

// Run shows the tracker while confirm executes. Quitting the view cancels
// the context passed to confirm.
func (t *Tracker) Run(ctx context.Context, confirm func(context.Context) (*transfer.Receipt, error)) (*transfer.Receipt, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(t.model, tea.WithContext(ctx), tea.WithInput(t.in), tea.WithOutput(t.out))
	t.mu.Lock()
	t.p = p
	t.mu.Unlock()

	var (
		rec  *transfer.Receipt
		err  error
		done = make(chan struct{})
	)
	go func() {
		defer close(done)
		rec, err = confirm(ctx)
		p.Send(TrackDoneMsg{Receipt: rec, Err: err})
	}()

	_, runErr := p.Run()
	cancel()
	<-done

	t.mu.Lock()
	t.p = nil
	t.mu.Unlock()

	if err == nil && rec == nil && runErr != nil {
		return nil, runErr
	}
	return rec, err
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	_ = cmd.Start()
}

func copyToClipboard(text string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("pbcopy")
	case "windows":
		cmd = exec.Command("clip")
	default:
		// Try wl-copy (Wayland), fall back to xclip.
		if _, err := exec.LookPath("wl-copy"); err == nil {
			cmd = exec.Command("wl-copy")
		} else {
			cmd = exec.Command("xclip", "-selection", "clipboard")
		}
	}
	cmd.Stdin = strings.NewReader(text)
	return cmd.Run()
}
