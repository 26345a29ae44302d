package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/oe/sunrain-sub001/internal/models"
	"github.com/oe/sunrain-sub001/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	FetchView ViewState = iota
	ListView
	DetailView
)

// Pipeline runs one aggregation. Implemented by [tasks.Aggregator].
type Pipeline interface {
	Run(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.RunResult, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	pipeline     Pipeline
	width        int
	height       int
	spinner      spinner.Model
	recordList   list.Model
	selected     *models.ContentRecord
	progressChan <-chan tasks.ProgressUpdate
	done         <-chan fetchOutcome
	progress     tasks.ProgressUpdate
	sourceLog    []string
	result       *tasks.RunResult
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, pipeline Pipeline) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.ok

	return &Model{
		ctx:        ctx,
		view:       FetchView,
		pipeline:   pipeline,
		spinner:    s,
		recordList: list.New(nil, list.NewDefaultDelegate(), 0, 0),
		help:       help.New(),
		keys:       newKeyMap(),
	}
}

// Init starts the first aggregation run.
func (m *Model) Init() tea.Cmd {
	return m.startFetch()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recordList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case FetchView:
			return m.handleFetchKeys(msg)
		case ListView:
			return m.handleListKeys(msg)
		case DetailView:
			return m.handleDetailKeys(msg)
		}

	case spinner.TickMsg:
		if m.view != FetchView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateList(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgProgressUpdate:
		update := msg.data.(tasks.ProgressUpdate)
		m.progress = update
		if update.Phase == tasks.FetchSource && update.Data != nil {
			m.sourceLog = append(m.sourceLog, update.Message)
		}
		return m, waitForProgress(m.progressChan, m.done)

	case MsgFetchComplete:
		out := msg.data.(fetchOutcome)
		m.progressChan = nil
		m.done = nil
		m.result = out.result
		m.err = out.err
		if out.err != nil {
			return m, nil
		}

		m.recordList.SetItems(recordItems(out.result.Records))
		m.recordList.Title = listTitle(out.result)
		m.recordList.Select(0)
		m.view = ListView
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case FetchView:
		return m.renderFetch()
	case ListView:
		return m.renderList()
	case DetailView:
		return m.renderDetail()
	default:
		return ""
	}
}

func (m *Model) handleFetchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart) && m.err != nil:
		return m, m.startFetch()
	}
	return m, nil
}

func (m *Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.recordList.FilterState() == list.Filtering {
		return m.updateList(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart):
		return m, m.startFetch()
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.recordList.SelectedItem().(recordItem); ok {
			rec := item.record
			m.selected = &rec
			m.view = DetailView
		}
		return m, nil
	}

	return m.updateList(msg)
}

func (m *Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.selected = nil
		m.view = ListView
	}
	return m, nil
}

func (m *Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.view != ListView {
		return m, nil
	}
	var cmd tea.Cmd
	m.recordList, cmd = m.recordList.Update(msg)
	return m, cmd
}

// startFetch launches a run in the background. The pipeline goroutine is the only sender on the
// progress channel and closes it when the run returns.
func (m *Model) startFetch() tea.Cmd {
	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan fetchOutcome, 1)

	m.view = FetchView
	m.progressChan = progress
	m.done = done
	m.progress = tasks.ProgressUpdate{}
	m.sourceLog = nil
	m.result = nil
	m.err = nil
	m.selected = nil

	go func() {
		defer close(progress)
		result, err := m.pipeline.Run(m.ctx, progress)
		done <- fetchOutcome{result: result, err: err}
	}()

	return tea.Batch(m.spinner.Tick, waitForProgress(progress, done))
}

func waitForProgress(progress <-chan tasks.ProgressUpdate, done <-chan fetchOutcome) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-progress
		if !ok {
			out := <-done
			return fetchCompleteMsg(out.result, out.err)
		}
		return progressUpdateMsg(update)
	}
}

func listTitle(res *tasks.RunResult) string {
	title := fmt.Sprintf("Therapeutic Music (%d)", len(res.Records))
	if res.Degraded() {
		title += " • partial"
	}
	return title
}

func (m *Model) renderFetch() string {
	if m.err != nil {
		helpView := m.help.ShortHelpView([]key.Binding{m.keys.restart, m.keys.quit})
		return fmt.Sprintf("%s\n\n%s", styles.err.Render(fmt.Sprintf("Fetch failed: %v", m.err)), helpView)
	}

	title := styles.title.Render("Fetching Content")

	phase := "Starting..."
	switch m.progress.Phase {
	case tasks.FetchSource:
		if m.progress.Total > 0 {
			phase = fmt.Sprintf("Fetching sources (%d/%d)", m.progress.Step, m.progress.Total)
		}
	case tasks.Merge:
		phase = "Merging results..."
	case tasks.Dedupe:
		phase = "Removing duplicates..."
	case tasks.Validate:
		phase = "Validating records..."
	case tasks.Complete:
		phase = "Done"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n%s %s\n", title, m.spinner.View(), phase)
	if m.progress.Message != "" {
		fmt.Fprintf(&b, "%s\n", styles.help.Render(m.progress.Message))
	}
	for _, line := range m.sourceLog {
		fmt.Fprintf(&b, "\n  %s", line)
	}
	return b.String()
}

func (m *Model) renderList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.restart, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	var summary string
	if m.result != nil && m.result.Run != nil {
		summary = styles.help.Render(fmt.Sprintf("%d duplicates merged • %d rejected",
			m.result.Run.Duplicates, m.result.Run.Rejected))
		for _, s := range m.result.Sources {
			if s.Err != nil {
				summary += "\n" + styles.warn.Render(fmt.Sprintf("%s unavailable: %v", s.Name, s.Err))
			}
		}
	}

	return fmt.Sprintf("%s\n%s\n\n%s", m.recordList.View(), summary, helpView)
}

func (m *Model) renderDetail() string {
	if m.selected == nil {
		return ""
	}
	r := m.selected

	width := m.width - 4
	if width <= 0 {
		width = 76
	}

	field := func(label, value string) string {
		return fmt.Sprintf("%s %s", styles.label.Render(label+":"), value)
	}

	lines := []string{
		styles.title.Render(r.Title),
		field("Source", fmt.Sprintf("%s %s", r.Source, r.Type)),
	}
	if r.Artist != "" {
		lines = append(lines, field("By", r.Artist))
	}
	lines = append(lines,
		field("Score", fmt.Sprintf("%d (quality %d, relevance %d)", r.TotalScore(), r.QualityScore, r.RelevanceScore)),
	)
	if r.TrackCount > 0 {
		lines = append(lines, field("Tracks", fmt.Sprintf("%d", r.TrackCount)))
	}
	if len(r.Themes) > 0 {
		lines = append(lines, field("Themes", strings.Join(r.Themes, ", ")))
	}
	if len(r.Benefits) > 0 {
		lines = append(lines, field("Benefits", strings.Join(r.Benefits, ", ")))
	}

	link := r.ExternalURL
	if r.Affiliate {
		link += " " + styles.ok.Render("(affiliate)")
	}
	lines = append(lines, field("Link", link))

	if r.Description != "" {
		lines = append(lines, "", lipgloss.NewStyle().Width(width).Render(r.Description))
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.quit})
	return fmt.Sprintf("%s\n\n%s", strings.Join(lines, "\n"), helpView)
}
