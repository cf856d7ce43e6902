// Command papertrade-console is a terminal dashboard for a running
// papertrade-server. It polls the HTTP API and renders the account,
// open orders, and recent fills.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"papertrade/internal/domain"
)

// Styles.
var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	symbolStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	gainStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lossStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("6"))
)

// Messages.
type tickMsg time.Time

type snapshotMsg struct {
	summary domain.AccountSummary
	orders  []domain.Order
	fills   []domain.Fill
	err     error
}

func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// client fetches snapshots from the server API.
type client struct {
	baseURL string
	http    *http.Client
}

func (c *client) get(path string, out any) error {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *client) snapshot() tea.Msg {
	var msg snapshotMsg
	if err := c.get("/api/account", &msg.summary); err != nil {
		msg.err = err
		return msg
	}

	var orders struct {
		Orders []domain.Order `json:"orders"`
	}
	if err := c.get("/api/orders", &orders); err != nil {
		msg.err = err
		return msg
	}
	msg.orders = orders.Orders

	var fills struct {
		Fills []domain.Fill `json:"fills"`
	}
	// Fills are optional; a server without a journal reports 404.
	if err := c.get("/api/fills?limit=15", &fills); err == nil {
		msg.fills = fills.Fills
	}

	return msg
}

// Model.
type model struct {
	api      *client
	interval time.Duration

	summary domain.AccountSummary
	orders  []domain.Order
	fills   []domain.Fill
	lastErr error
	updated time.Time

	viewport      viewport.Model
	ready         bool
	width, height int
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		func() tea.Msg { return m.api.snapshot() },
		tickCmd(m.interval),
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m, func() tea.Msg { return m.api.snapshot() }
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-2)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 2
		}
		m.viewport.SetContent(m.render())

	case tickMsg:
		return m, tea.Batch(
			func() tea.Msg { return m.api.snapshot() },
			tickCmd(m.interval),
		)

	case snapshotMsg:
		if msg.err != nil {
			m.lastErr = msg.err
		} else {
			m.summary = msg.summary
			m.orders = msg.orders
			m.fills = msg.fills
			m.lastErr = nil
			m.updated = time.Now()
		}
		if m.ready {
			m.viewport.SetContent(m.render())
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m model) View() string {
	if !m.ready {
		return "connecting..."
	}
	footer := dimStyle.Render("q quit · r refresh · updated " + m.updated.Format("15:04:05"))
	return m.viewport.View() + "\n" + footer
}

func (m model) render() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("papertrade"))
	b.WriteString("\n\n")

	if m.lastErr != nil {
		b.WriteString(errStyle.Render("server unreachable: " + m.lastErr.Error()))
		b.WriteString("\n\n")
	}

	// Account.
	b.WriteString(sectionStyle.Render(" ACCOUNT "))
	b.WriteString("\n")
	retStyle := gainStyle
	if m.summary.ReturnPct < 0 {
		retStyle = lossStyle
	}
	fmt.Fprintf(&b, "cash %12.2f   equity %12.2f   return %s",
		m.summary.Cash, m.summary.Equity,
		retStyle.Render(fmt.Sprintf("%+.2f%%", m.summary.ReturnPct)))
	if m.summary.Degraded {
		b.WriteString("   " + errStyle.Render("degraded"))
	}
	b.WriteString("\n\n")

	// Holdings.
	b.WriteString(sectionStyle.Render(" HOLDINGS "))
	b.WriteString("\n")
	if len(m.summary.Holdings) == 0 {
		b.WriteString(dimStyle.Render("none"))
		b.WriteString("\n")
	} else {
		symbols := make([]string, 0, len(m.summary.Holdings))
		for s := range m.summary.Holdings {
			symbols = append(symbols, s)
		}
		sort.Strings(symbols)
		for _, s := range symbols {
			fmt.Fprintf(&b, "%s %8d\n", symbolStyle.Render(fmt.Sprintf("%-8s", s)), m.summary.Holdings[s])
		}
	}
	b.WriteString("\n")

	// Open orders.
	b.WriteString(sectionStyle.Render(" OPEN ORDERS "))
	b.WriteString("\n")
	if len(m.orders) == 0 {
		b.WriteString(dimStyle.Render("none"))
		b.WriteString("\n")
	} else {
		b.WriteString(headerStyle.Render(fmt.Sprintf("%-10s %-12s %8s %10s  %s", "symbol", "kind", "qty", "price", "id")))
		b.WriteString("\n")
		for _, o := range m.orders {
			fmt.Fprintf(&b, "%s %-12s %8d %10.2f  %s\n",
				symbolStyle.Render(fmt.Sprintf("%-10s", o.Symbol)),
				o.Kind, o.Qty, o.Price, dimStyle.Render(o.ID))
		}
	}
	b.WriteString("\n")

	// Recent fills.
	b.WriteString(sectionStyle.Render(" RECENT FILLS "))
	b.WriteString("\n")
	if len(m.fills) == 0 {
		b.WriteString(dimStyle.Render("none"))
		b.WriteString("\n")
	} else {
		b.WriteString(headerStyle.Render(fmt.Sprintf("%-10s %-12s %8s %10s  %s", "symbol", "kind", "qty", "price", "filled")))
		b.WriteString("\n")
		for _, f := range m.fills {
			fmt.Fprintf(&b, "%s %-12s %8d %10.2f  %s\n",
				symbolStyle.Render(fmt.Sprintf("%-10s", f.Symbol)),
				f.Kind, f.Qty, f.Price, dimStyle.Render(f.FilledAt.Format("01-02 15:04:05")))
		}
	}

	return b.String()
}

func main() {
	var (
		server   = flag.String("server", "http://127.0.0.1:8220", "papertrade-server base URL")
		interval = flag.Duration("interval", 5*time.Second, "refresh interval")
	)
	flag.Parse()

	m := model{
		api: &client{
			baseURL: strings.TrimRight(*server, "/"),
			http:    &http.Client{Timeout: 10 * time.Second},
		},
		interval: *interval,
	}

	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "console error: %v\n", err)
		os.Exit(1)
	}
}
