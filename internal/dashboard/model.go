package dashboard

import (
	"context"
	"fmt"
	"maps"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/smileynet/ledgerdeck/internal/entity"
	"github.com/smileynet/ledgerdeck/internal/ledger"
	"github.com/smileynet/ledgerdeck/internal/session"
	"github.com/smileynet/ledgerdeck/internal/store"
)

// helpBarHeight is the number of lines reserved for the help bar at the bottom.
const helpBarHeight = 1

// borderChrome is the number of lines consumed by top + bottom borders.
const borderChrome = 2

// topBarHeight is the tab bar plus the notice line.
const topBarHeight = 2

// DefaultPerPage is the page size used when the session has none.
const DefaultPerPage = 10

// Model is the root Bubble Tea model for the dashboard TUI.
// It manages one fetcher-backed page per visited entity tab.
type Model struct {
	ctx      context.Context
	registry *entity.Registry
	deps     entity.Deps
	bridge   *Bridge
	switcher AccountSwitcher
	saver    SessionSaver
	session  session.Session
	logger   *zap.Logger
	perPage  int

	tabs   []entity.Definition
	active int
	states map[ledger.Entity]pageState
	pages  map[ledger.Entity]entity.Page
	mounts uint64

	focus     Focus
	searching bool
	search    textinput.Model
	width     int
	height    int
	viewport  viewport.Model
	help      help.Model
	spinner   spinner.Model
	notice    string
	noticeErr bool
}

// Option configures a Model.
type Option func(*Model)

// WithRegistry sets the entity pages shown as tabs.
func WithRegistry(r *entity.Registry) Option {
	return func(m *Model) { m.registry = r }
}

// WithDeps sets what pages fetch with.
func WithDeps(d entity.Deps) Option {
	return func(m *Model) { m.deps = d }
}

// WithBridge sets the bridge pages render into.
func WithBridge(b *Bridge) Option {
	return func(m *Model) { m.bridge = b }
}

// WithAccountSwitcher enables switching account from switchable pages.
func WithAccountSwitcher(s AccountSwitcher) Option {
	return func(m *Model) { m.switcher = s }
}

// WithSession restores s and saves the session through saver.
func WithSession(saver SessionSaver, s session.Session) Option {
	return func(m *Model) {
		m.saver = saver
		m.session = s
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Model) { m.logger = l }
}

// WithPerPage sets the default page size.
func WithPerPage(n int) Option {
	return func(m *Model) { m.perPage = n }
}

// WithContext bounds every fetch the dashboard starts.
func WithContext(ctx context.Context) Option {
	return func(m *Model) { m.ctx = ctx }
}

// NewModel creates a dashboard Model with list-pane focus, opening on the
// session's last entity.
func NewModel(opts ...Option) Model {
	search := textinput.New()
	search.Prompt = "/ "
	search.Placeholder = "search"

	s := spinner.New()
	s.Spinner = spinner.Dot

	m := Model{
		ctx:      context.Background(),
		logger:   zap.NewNop(),
		perPage:  DefaultPerPage,
		states:   make(map[ledger.Entity]pageState),
		pages:    make(map[ledger.Entity]entity.Page),
		focus:    PaneLeft,
		search:   search,
		viewport: viewport.New(0, 0),
		help:     help.New(),
		spinner:  s,
	}
	for _, opt := range opts {
		opt(&m)
	}
	if m.registry == nil {
		m.registry = entity.Builtin()
	}
	if m.bridge == nil {
		m.bridge = NewBridge()
	}
	m.tabs = m.registry.Tabs()
	for i, d := range m.tabs {
		if d.Name == m.session.Entity {
			m.active = i
		}
	}
	return m
}

// Init mounts the opening tab and starts listening for renders.
func (m Model) Init() tea.Cmd {
	active := m.active
	return tea.Batch(
		func() tea.Msg { return activateMsg{tab: active} },
		m.bridge.Wait(),
		m.spinner.Tick,
	)
}

// Close stops every mounted page and releases the bridge. Call it after the
// program exits.
func (m Model) Close() {
	for _, p := range m.pages {
		p.Close()
	}
	m.bridge.Close()
}

// Update handles incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		_, rightWidth := PaneWidths(msg.Width)
		m.viewport.Width = max(rightWidth-borderChrome, 0)
		m.viewport.Height = m.contentHeight()
		m.refreshDetail()
		return m, nil

	case activateMsg:
		return m.activate(msg.tab), nil

	case ViewsMsg:
		for _, v := range msg.Views {
			// Views from a page closed by an account switch may still arrive.
			if st, ok := m.states[v.Entity]; ok && st.mount == v.Mount {
				m.states[v.Entity] = st.apply(v)
			}
		}
		m.refreshDetail()
		return m, m.bridge.Wait()

	case BridgeClosedMsg:
		return m, nil

	case RefreshDoneMsg:
		return m.applyRefresh(msg), nil

	case AccountSwitchedMsg:
		return m.applySwitch(msg), nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.searching {
			return m.handleSearchKey(msg)
		}
		return m.handleKey(msg)
	}

	return m, nil
}

// activate shows tab, mounting its page on first visit.
func (m Model) activate(tab int) Model {
	n := len(m.tabs)
	if n == 0 {
		return m
	}
	m.active = ((tab % n) + n) % n
	def := m.tabs[m.active]
	if _, ok := m.pages[def.Name]; !ok {
		m.mounts++
		mount := m.mounts
		bridge := m.bridge
		m.states[def.Name] = newPageState(def, mount)
		page := def.New(m.deps, func(v entity.View) {
			v.Mount = mount
			bridge.Send(v)
		})
		m.pages[def.Name] = page
		m.logger.Debug("mounting page", zap.String("entity", string(def.Name)))
		page.Mount(m.ctx, m.initialQuery(def.Name))
	}
	m.search.SetValue(m.pages[def.Name].Query().Search)
	m.refreshDetail()
	return m
}

func (m Model) initialQuery(e ledger.Entity) store.Query {
	q := m.session.Query(e)
	if q.PerPage <= 0 {
		q.PerPage = m.perPage
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	return q
}

// handleKey processes key messages while browsing.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.persist()
		return m, tea.Quit

	case "tab":
		if m.focus == PaneLeft {
			m.focus = PaneRight
		} else {
			m.focus = PaneLeft
		}
		return m, nil

	case "]":
		return m.activate(m.active + 1), nil

	case "[":
		return m.activate(m.active - 1), nil

	case "up", "k", "down", "j":
		if m.focus == PaneRight {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		delta := 1
		if s := msg.String(); s == "up" || s == "k" {
			delta = -1
		}
		if st, ok := m.current(); ok {
			m.states[st.def.Name] = st.move(delta)
			m.refreshDetail()
		}
		return m, nil

	case "n":
		return m.turnPage(1), nil

	case "p":
		return m.turnPage(-1), nil

	case "/":
		m.searching = true
		m.focus = PaneLeft
		return m, m.search.Focus()

	case "r":
		return m.refreshAll()

	case "enter":
		return m.switchToSelected()
	}

	return m, nil
}

// handleSearchKey routes keys to the search input. Every edit re-queries the
// page; the fetcher debounces the resulting fetches.
func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.searching = false
		m.search.Blur()
		return m, nil
	case tea.KeyEsc:
		m.searching = false
		m.search.Blur()
		m.search.SetValue("")
		return m.applySearch(), nil
	case tea.KeyCtrlC:
		m.persist()
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m.applySearch(), cmd
}

func (m Model) applySearch() Model {
	page, ok := m.currentPage()
	if !ok {
		return m
	}
	q := page.Query()
	term := strings.TrimSpace(m.search.Value())
	if q.Search == term {
		return m
	}
	q.Search = term
	q.Page = 1
	page.SetQuery(q)
	return m
}

func (m Model) turnPage(delta int) Model {
	page, ok := m.currentPage()
	if !ok {
		return m
	}
	st, _ := m.current()
	q := page.Query()
	cur := max(q.Page, 1)
	switch {
	case delta > 0 && st.view.Pagination.IsLastPage:
		return m
	case delta < 0 && cur <= 1:
		return m
	}
	page.SetQuery(q.WithPage(cur + delta))
	return m
}

func (m Model) refreshAll() (tea.Model, tea.Cmd) {
	page, ok := m.currentPage()
	if !ok {
		return m, nil
	}
	name := m.tabs[m.active].Name
	ctx := m.ctx
	m.notice = "Refreshing " + strings.ToLower(m.tabs[m.active].Title) + "..."
	m.noticeErr = false
	return m, func() tea.Msg {
		res, err := page.FetchAll(ctx)
		return RefreshDoneMsg{Entity: name, Results: res, Err: err}
	}
}

func (m Model) applyRefresh(msg RefreshDoneMsg) Model {
	if msg.Err != nil {
		m.logger.Warn("refresh failed", zap.String("entity", string(msg.Entity)), zap.Error(msg.Err))
		m.notice = fmt.Sprintf("Refresh failed for %d of %d pages", len(msg.Results.Failed()), len(msg.Results.Keys))
		m.noticeErr = true
		return m
	}
	m.notice = fmt.Sprintf("Refreshed %d pages", len(msg.Results.Keys))
	m.noticeErr = false
	return m
}

func (m Model) switchToSelected() (tea.Model, tea.Cmd) {
	st, ok := m.current()
	if !ok || !st.def.Switchable || m.switcher == nil {
		return m, nil
	}
	r, ok := st.Selected()
	if !ok {
		return m, nil
	}
	id := r.RecordID()
	ctx, switcher := m.ctx, m.switcher
	m.notice = "Switching to " + id + "..."
	m.noticeErr = false
	return m, func() tea.Msg {
		_, err := switcher.SwitchAccount(ctx, id)
		return AccountSwitchedMsg{AccountID: id, Err: err}
	}
}

// applySwitch remounts from a clean slate: the store dropped every cached
// record on the switch, so each page fetches again when next visited.
func (m Model) applySwitch(msg AccountSwitchedMsg) Model {
	if msg.Err != nil {
		m.logger.Warn("switching account failed", zap.String("account_id", msg.AccountID), zap.Error(msg.Err))
		m.notice = "Could not switch account: " + msg.Err.Error()
		m.noticeErr = true
		return m
	}
	m.logger.Info("switched account", zap.String("account_id", msg.AccountID))

	m.session.Queries = maps.Clone(m.session.Queries)
	for name, page := range m.pages {
		m.session.Remember(name, page.Query().WithPage(1))
		page.Close()
	}
	clear(m.pages)
	clear(m.states)
	m.session.AccountID = msg.AccountID
	m.persist()

	m.notice = "Switched to account " + msg.AccountID
	m.noticeErr = false
	return m.activate(m.active)
}

// persist saves the current session. Failures are logged, not surfaced.
func (m Model) persist() {
	if m.saver == nil {
		return
	}
	s := m.session
	s.Queries = maps.Clone(m.session.Queries)
	for name, page := range m.pages {
		s.Remember(name, page.Query())
	}
	if len(m.tabs) > 0 {
		s.Entity = m.tabs[m.active].Name
	}
	if acc := m.currentAccount(); acc != "" {
		s.AccountID = acc
	}
	if err := m.saver.Save(s); err != nil {
		m.logger.Warn("saving session failed", zap.Error(err))
	}
}

func (m Model) current() (pageState, bool) {
	if len(m.tabs) == 0 {
		return pageState{}, false
	}
	st, ok := m.states[m.tabs[m.active].Name]
	return st, ok
}

func (m Model) currentPage() (entity.Page, bool) {
	if len(m.tabs) == 0 {
		return nil, false
	}
	p, ok := m.pages[m.tabs[m.active].Name]
	return p, ok
}

func (m Model) currentAccount() string {
	if m.deps.Source == nil {
		return m.session.AccountID
	}
	return m.deps.Source.State().CurrentAccount
}

// refreshDetail re-renders the detail pane for the selected record.
func (m *Model) refreshDetail() {
	st, ok := m.current()
	if !ok {
		m.viewport.SetContent("")
		return
	}
	r, ok := st.Selected()
	if !ok {
		m.viewport.SetContent(mutedText.Render("Nothing selected"))
		return
	}
	m.viewport.SetContent(renderDetail(st.def, r, m.currentAccount()))
}

// contentHeight returns the usable height for pane content,
// accounting for border chrome, the top bar, and the help bar.
func (m Model) contentHeight() int {
	h := m.height - borderChrome - helpBarHeight - topBarHeight
	if h < 1 {
		return 1
	}
	return h
}

// View renders the tab bar, the two panes, and the help bar.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	leftWidth, rightWidth := PaneWidths(m.width)
	contentHeight := m.contentHeight()

	var leftStyle, rightStyle lipgloss.Style
	if m.focus == PaneLeft {
		leftStyle = FocusedBorder()
		rightStyle = UnfocusedBorder()
	} else {
		leftStyle = UnfocusedBorder()
		rightStyle = FocusedBorder()
	}

	leftStyle = leftStyle.
		Width(leftWidth - borderChrome).
		Height(contentHeight)
	rightStyle = rightStyle.
		Width(rightWidth - borderChrome).
		Height(contentHeight)

	leftPane := leftStyle.Render(m.viewLeft(leftWidth-borderChrome, contentHeight))
	rightPane := rightStyle.Render(m.viewport.View())
	panes := lipgloss.JoinHorizontal(lipgloss.Top, leftPane, rightPane)

	switchable := false
	if st, ok := m.current(); ok {
		switchable = st.def.Switchable && m.switcher != nil
	}
	helpView := m.help.View(HelpBindings(m.searching, switchable))

	return lipgloss.JoinVertical(lipgloss.Left, m.viewTabs(), m.viewNotice(), panes, helpView)
}

func (m Model) viewTabs() string {
	titles := make([]string, len(m.tabs))
	for i, d := range m.tabs {
		if i == m.active {
			titles[i] = activeTab.Render(d.Title)
		} else {
			titles[i] = mutedText.Render(d.Title)
		}
	}
	return fit(strings.Join(titles, "  "), m.width)
}

func (m Model) viewNotice() string {
	account := m.currentAccount()
	if account == "" {
		account = "none"
	}
	line := mutedText.Render("account: " + account)
	if m.notice != "" {
		style := mutedText
		if m.noticeErr {
			style = errorText
		}
		line += "  " + style.Render(m.notice)
	}
	return line
}

// viewLeft renders the search line, when a search is active, and the page.
func (m Model) viewLeft(width, height int) string {
	st, ok := m.current()
	if !ok {
		return "No pages"
	}
	spin := ""
	if st.loading() {
		spin = m.spinner.View()
	}
	if !m.searching && m.search.Value() == "" {
		return st.View(width, height, spin)
	}
	return m.search.View() + "\n" + st.View(width, height-1, spin)
}
