package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/abelbrown/showroom/internal/catalog"
	"github.com/abelbrown/showroom/internal/filter"
	"github.com/abelbrown/showroom/internal/listing"
	"github.com/abelbrown/showroom/internal/otel"
	"github.com/abelbrown/showroom/internal/shared"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// listenTimeout bounds how long a listener blocks before re-arming.
const listenTimeout = 5 * time.Second

// nearEndRows is how close to the last visible row the cursor must be to
// request more rows.
const nearEndRows = 2

// Tab is one screen of the app, backed by its own listing controller.
type Tab struct {
	Title      string
	Controller *listing.Controller
}

// Options configures the App.
type Options struct {
	Tabs   []Tab
	City   *shared.City        // may be nil
	Ring   *otel.RingBuffer    // debug overlay source, may be nil
	Logger *otel.Logger        // may be nil
	Brands *listing.Controller // source of brand name completions, may be nil
	Ctx    context.Context     // cancels listeners, defaults to Background
}

type tabState struct {
	title  string
	ctrl   *listing.Controller
	pres   listing.Presentation
	cursor int
}

// App is the root Bubble Tea model.
// IMPORTANT: App does not fetch. It drives controllers and renders the
// Presentation they publish.
type App struct {
	tabs   []tabState
	active int

	city   *shared.City
	ring   *otel.RingBuffer
	log    *otel.Logger
	brands *listing.Controller
	ctx    context.Context

	keys    KeyMap
	spinner spinner.Model
	editor  textinput.Model
	mode    editMode

	status    string
	showDebug bool
	width     int
	height    int
	ready     bool
}

// NewApp creates the App. Controllers are mounted by Init.
func NewApp(opts Options) App {
	ctx := opts.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	tabs := make([]tabState, len(opts.Tabs))
	for i, t := range opts.Tabs {
		tabs[i] = tabState{title: t.Title, ctrl: t.Controller}
		if t.Controller != nil {
			tabs[i].pres = t.Controller.CurrentState()
		}
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = LoadingMore

	return App{
		tabs:    tabs,
		city:    opts.City,
		ring:    opts.Ring,
		log:     opts.Logger,
		brands:  opts.Brands,
		ctx:     ctx,
		keys:    DefaultKeyMap(),
		spinner: s,
		editor:  newEditor(),
	}
}

// Init mounts every controller and starts one listener per tab.
func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.spinner.Tick}
	for i, t := range a.tabs {
		if t.ctrl == nil {
			continue
		}
		ctrl := t.ctrl
		cmds = append(cmds, func() tea.Msg {
			ctrl.Mount()
			return nil
		})
		cmds = append(cmds, listen(a.ctx, i, ctrl.Subscribe()))
	}
	return tea.Batch(cmds...)
}

// listen waits for the next controller event on one tab.
func listen(ctx context.Context, tab int, ch <-chan listing.Event) tea.Cmd {
	return func() tea.Msg {
		select {
		case e := <-ch:
			return listingEventMsg{Tab: tab, Event: e}
		case <-time.After(listenTimeout):
			return listenTimeoutMsg{Tab: tab}
		case <-ctx.Done():
			return nil
		}
	}
}

// Update handles messages and returns the updated model and any commands.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if a.mode != modeBrowse {
			return a.handleEditorKey(msg)
		}
		return a.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		return a, nil

	case listingEventMsg:
		if msg.Tab < 0 || msg.Tab >= len(a.tabs) {
			return a, nil
		}
		a.syncTab(msg.Tab)
		return a, listen(a.ctx, msg.Tab, a.tabs[msg.Tab].ctrl.Subscribe())

	case listenTimeoutMsg:
		if msg.Tab < 0 || msg.Tab >= len(a.tabs) {
			return a, nil
		}
		// Catch up on anything dropped while the channel was full.
		a.syncTab(msg.Tab)
		return a, listen(a.ctx, msg.Tab, a.tabs[msg.Tab].ctrl.Subscribe())

	case WarmResult:
		if msg.Err != nil {
			a.status = fmt.Sprintf("warm %s failed", msg.Target)
		} else {
			a.status = fmt.Sprintf("warmed %s (%d)", msg.Target, msg.Count)
		}
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	return a, nil
}

// syncTab pulls the latest Presentation from a tab's controller.
// Events may be dropped under load, so the event payload is not trusted.
func (a *App) syncTab(i int) {
	t := &a.tabs[i]
	if t.ctrl == nil {
		return
	}
	t.pres = t.ctrl.CurrentState()
	if t.cursor >= len(t.pres.Items) {
		t.cursor = len(t.pres.Items) - 1
	}
	if t.cursor < 0 {
		t.cursor = 0
	}
}

// handleKeyMsg processes keyboard input in browse mode.
func (a App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.log != nil {
		a.log.Debug(otel.KindKeyPress, "ui", msg.String())
	}

	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, tea.Quit

	case key.Matches(msg, a.keys.Debug):
		a.showDebug = !a.showDebug
		return a, nil
	}

	if a.showDebug || len(a.tabs) == 0 {
		return a, nil
	}
	t := &a.tabs[a.active]

	switch {
	case key.Matches(msg, a.keys.Down):
		if t.cursor < len(t.pres.Items)-1 {
			t.cursor++
		}
		a.maybeExpand()

	case key.Matches(msg, a.keys.Up):
		if t.cursor > 0 {
			t.cursor--
		}

	case key.Matches(msg, a.keys.Top):
		t.cursor = 0

	case key.Matches(msg, a.keys.Bottom):
		if n := len(t.pres.Items); n > 0 {
			t.cursor = n - 1
		}
		a.maybeExpand()

	case key.Matches(msg, a.keys.NextTab):
		a.active = (a.active + 1) % len(a.tabs)
		a.status = ""

	case key.Matches(msg, a.keys.PrevTab):
		a.active = (a.active + len(a.tabs) - 1) % len(a.tabs)
		a.status = ""

	case key.Matches(msg, a.keys.Refresh):
		if t.ctrl != nil {
			t.ctrl.OnPullToRefresh()
			a.status = "refreshing"
		}

	case key.Matches(msg, a.keys.Clear):
		if t.ctrl != nil {
			t.ctrl.ClearFilters()
			a.status = "filters cleared"
		}

	case key.Matches(msg, a.keys.Filter):
		a.mode = modeFilter
		a.editor.Prompt = "filter> "
		a.editor.Placeholder = "brand=Honda"
		a.editor.SetValue("")
		return a, a.editor.Focus()

	case key.Matches(msg, a.keys.City):
		a.mode = modeCity
		a.editor.Prompt = "city> "
		a.editor.Placeholder = "Pune"
		a.editor.SetValue(a.city.Get())
		a.editor.CursorEnd()
		return a, a.editor.Focus()
	}

	return a, nil
}

// maybeExpand asks the active controller for more rows when the cursor is
// near the end of the visible window.
func (a *App) maybeExpand() {
	t := &a.tabs[a.active]
	if t.ctrl == nil || !t.pres.HasMore {
		return
	}
	if t.cursor >= len(t.pres.Items)-nearEndRows {
		t.ctrl.OnNearEndOfList()
	}
}

// handleEditorKey processes keyboard input while the filter or city editor
// is open.
func (a App) handleEditorKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Cancel):
		a.closeEditor()
		return a, nil

	case key.Matches(msg, a.keys.Accept):
		input := strings.TrimSpace(a.editor.Value())
		mode := a.mode
		a.closeEditor()
		if mode == modeCity {
			a.applyCity(input)
		} else {
			a.applyFilter(input)
		}
		return a, nil

	case a.mode == modeFilter && key.Matches(msg, a.keys.Complete):
		a.editor.SetValue(completeInput(a.editor.Value(), a.brandNames()))
		a.editor.CursorEnd()
		return a, nil
	}

	var cmd tea.Cmd
	a.editor, cmd = a.editor.Update(msg)
	return a, cmd
}

func (a *App) closeEditor() {
	a.mode = modeBrowse
	a.editor.Blur()
	a.editor.SetValue("")
}

// applyFilter parses "key=value" and applies it to the active tab. City is
// routed through the shared city so every screen follows.
func (a *App) applyFilter(input string) {
	if input == "" || len(a.tabs) == 0 {
		return
	}
	k, v, err := filter.ParsePair(input)
	if err != nil {
		a.status = err.Error()
		return
	}
	if k == filter.City {
		a.applyCity(v)
		return
	}
	if k == filter.Brand {
		v = filter.Canonicalize(v, a.brandNames())
	}
	t := a.tabs[a.active]
	if t.ctrl == nil {
		return
	}
	if err := t.ctrl.SetFilter(k, v); err != nil {
		a.status = err.Error()
		return
	}
	if v == "" {
		a.status = fmt.Sprintf("%s cleared", k)
	} else {
		a.status = fmt.Sprintf("%s=%s", k, v)
	}
}

func (a *App) applyCity(v string) {
	if a.city == nil {
		a.status = "city is not shared"
		return
	}
	if a.city.Set(v) {
		a.status = "city: " + a.city.Get()
	}
}

// brandNames lists display names from the brands controller's results.
func (a App) brandNames() []string {
	if a.brands == nil {
		return nil
	}
	rs := a.brands.Results()
	names := make([]string, 0, rs.Len())
	for i := 0; i < rs.Len(); i++ {
		if n := rs.At(i).Payload.DisplayName(); n != "" {
			names = append(names, n)
		}
	}
	return names
}

// View renders the UI.
func (a App) View() string {
	if !a.ready {
		return "Loading..."
	}

	if a.showDebug {
		overlay := debugOverlay(a.ring, a.activeComp(), a.width, a.height-1)
		return lipgloss.JoinVertical(lipgloss.Left, overlay, debugStatusBar(a.width))
	}

	header := a.renderHeader()
	bar := a.renderFilterBar()

	var p listing.Presentation
	cursor := 0
	if len(a.tabs) > 0 {
		p = a.tabs[a.active].pres
		cursor = a.tabs[a.active].cursor
	}
	errBar := errorLine(p, a.width)

	// header, filter bar, status bar, optional error line
	contentHeight := a.height - 3
	if errBar != "" {
		contentHeight--
	}
	body := RenderPresentation(p, cursor, a.spinner.View(), a.width, contentHeight)
	body = lipgloss.NewStyle().Height(contentHeight).MaxHeight(contentHeight).Render(body)

	parts := []string{header, bar, body}
	if errBar != "" {
		parts = append(parts, errBar)
	}
	parts = append(parts, a.renderStatusBar(p))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (a App) activeComp() string {
	if len(a.tabs) == 0 || a.tabs[a.active].ctrl == nil {
		return ""
	}
	return "listing:" + a.tabs[a.active].ctrl.Endpoint()
}

func (a App) renderHeader() string {
	var tabs []string
	for i, t := range a.tabs {
		if i == a.active {
			tabs = append(tabs, TabActive.Render(t.title))
		} else {
			tabs = append(tabs, TabInactive.Render(t.title))
		}
	}
	if c := a.city.Get(); c != "" {
		tabs = append(tabs, CityBadge.Render("@ "+c))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (a App) renderFilterBar() string {
	if a.mode != modeBrowse {
		line := a.editor.View()
		if a.mode == modeFilter {
			if s := suggestionsFor(a.editor.Value(), a.brandNames()); len(s) > 0 {
				line += "  " + FilterBarCount.Render(strings.Join(s, " | "))
			}
		}
		return FilterBar.Width(a.width).Render(line)
	}

	text := "no filters"
	if len(a.tabs) > 0 {
		if f := a.tabs[a.active].pres.Filters; f.Len() > 0 {
			text = f.String()
		}
	}
	return FilterBar.Width(a.width).Render(text)
}

func (a App) renderStatusBar(p listing.Presentation) string {
	var parts []string
	switch p.State {
	case listing.Populated, listing.LoadingMore:
		if len(a.tabs) > 0 && len(p.Items) > 0 {
			parts = append(parts, fmt.Sprintf("%d/%d of %d", a.tabs[a.active].cursor+1, p.Visible, p.Total))
		} else {
			parts = append(parts, fmt.Sprintf("%d of %d", p.Visible, p.Total))
		}
	default:
		parts = append(parts, p.State.String())
	}
	if p.Err != nil && p.Err.Kind == catalog.KindUnreachable {
		parts = append(parts, "offline")
	}
	if a.status != "" {
		parts = append(parts, a.status)
	}

	left := StatusBarText.Render(strings.Join(parts, " | "))
	keys := StatusBarKey.Render("/") + StatusBarText.Render(":filter ") +
		StatusBarKey.Render("x") + StatusBarText.Render(":clear ") +
		StatusBarKey.Render("c") + StatusBarText.Render(":city ") +
		StatusBarKey.Render("r") + StatusBarText.Render(":refresh ") +
		StatusBarKey.Render("tab") + StatusBarText.Render(":screen ") +
		StatusBarKey.Render("q") + StatusBarText.Render(":quit")
	return StatusBar.Width(a.width).Render(left + "  " + keys)
}

// Active returns the index of the active tab (for testing).
func (a App) Active() int {
	return a.active
}

// Cursor returns the cursor of the active tab (for testing).
func (a App) Cursor() int {
	if len(a.tabs) == 0 {
		return 0
	}
	return a.tabs[a.active].cursor
}

// Presentation returns the last synced Presentation of the active tab
// (for testing).
func (a App) Presentation() listing.Presentation {
	if len(a.tabs) == 0 {
		return listing.Presentation{}
	}
	return a.tabs[a.active].pres
}
