package tui

import (
	"context"
	"math/big"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mkell/chainlend/internal/config"
	"github.com/mkell/chainlend/internal/database/repository"
	"github.com/mkell/chainlend/internal/service"
	"github.com/mkell/chainlend/internal/wallet"
)

// Deps are the collaborators the view orchestrates. Everything is
// passed in so tests can substitute fakes.
type Deps struct {
	Connector *wallet.Connector
	Borrower  *service.BorrowerService
	Journal   *repository.ActivityRepo
}

type appView string

const (
	viewLoans    appView = "loans"
	viewActivity appView = "activity"
)

type focusZone string

const (
	focusList focusZone = "list"
	focusForm focusZone = "form"
)

// Form field indices, in tab order.
const (
	fieldAmount = iota
	fieldCollateral
	fieldRate
	fieldDueDate
	fieldCount
)

// App is the borrower view: wallet header, loan-request form, loan
// table and activity journal, all driven by one update loop.
type App struct {
	ctx  context.Context
	cfg  config.Config
	deps Deps
	loc  *time.Location
	keys keyMap

	connected bool
	session   wallet.Session

	rows     []service.LoanRow
	activity []repository.Activity
	cursor   int

	view      appView
	focus     focusZone
	formField int
	form      service.FormInput

	busy      bool
	notice    notice
	noticeSeq int

	width  int
	height int
}

func New(ctx context.Context, cfg config.Config, deps Deps, loc *time.Location) *App {
	if loc == nil {
		loc = time.Local
	}
	return &App{
		ctx:   ctx,
		cfg:   cfg,
		deps:  deps,
		loc:   loc,
		keys:  newKeyMap(),
		view:  viewLoans,
		focus: focusList,
	}
}

// messages

type connectedMsg struct{ session wallet.Session }
type sessionMsg struct{ session wallet.Session }
type accountCheckMsg struct{ addr string }
type rowsMsg []service.LoanRow
type activityMsg []repository.Activity
type submitDoneMsg struct{ result service.SubmitResult }
type repayDoneMsg struct{ result service.RepayResult }
type pollTickMsg time.Time
type errMsg struct{ err error }

func (e errMsg) message() string {
	if e.err == nil || e.err.Error() == "" {
		return "something went wrong"
	}
	return e.err.Error()
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.connectCmd(), a.pollTick())
}

// commands

func (a *App) connectCmd() tea.Cmd {
	return func() tea.Msg {
		session, err := a.deps.Connector.Connect(a.ctx)
		if err != nil {
			return errMsg{err}
		}
		return connectedMsg{session: session}
	}
}

func (a *App) refreshBalanceCmd(addr string) tea.Cmd {
	return func() tea.Msg {
		session, err := a.deps.Connector.Refresh(a.ctx, addr)
		if err != nil {
			return errMsg{err}
		}
		return sessionMsg{session: session}
	}
}

func (a *App) loadRowsCmd() tea.Cmd {
	addr := a.session.Address
	return func() tea.Msg {
		rows, err := a.deps.Borrower.LoanRows(a.ctx, addr, a.loc)
		if err != nil {
			return errMsg{err}
		}
		return rowsMsg(rows)
	}
}

func (a *App) loadActivityCmd() tea.Cmd {
	return func() tea.Msg {
		if a.deps.Journal == nil {
			return activityMsg(nil)
		}
		entries, err := a.deps.Journal.List(a.ctx, 50)
		if err != nil {
			return errMsg{err}
		}
		return activityMsg(entries)
	}
}

func (a *App) submitCmd(form service.FormInput) tea.Cmd {
	addr := a.session.Address
	return func() tea.Msg {
		result, err := a.deps.Borrower.SubmitRequest(a.ctx, addr, form)
		if err != nil {
			return errMsg{err}
		}
		return submitDoneMsg{result: result}
	}
}

func (a *App) repayCmd(id *big.Int) tea.Cmd {
	addr := a.session.Address
	return func() tea.Msg {
		result, err := a.deps.Borrower.RepayLoan(a.ctx, addr, id)
		if err != nil {
			return errMsg{err}
		}
		return repayDoneMsg{result: result}
	}
}

func (a *App) checkAccountCmd() tea.Cmd {
	return func() tea.Msg {
		addr, err := a.deps.Connector.PrimaryAccount(a.ctx)
		if err != nil {
			// transient poll failure, try again next tick
			return accountCheckMsg{addr: a.session.Address}
		}
		return accountCheckMsg{addr: addr}
	}
}

func (a *App) pollTick() tea.Cmd {
	secs := a.cfg.UI.AccountPollSecs
	if secs <= 0 {
		secs = 5
	}
	return tea.Tick(time.Duration(secs)*time.Second, func(t time.Time) tea.Msg {
		return pollTickMsg(t)
	})
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = m.Width
		a.height = m.Height
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(m)

	case connectedMsg:
		a.connected = true
		a.session = m.session
		return a, tea.Batch(
			a.setNotice(noticeSuccess, "wallet connected: "+shortAddr(a.session.Address)),
			a.loadRowsCmd(),
			a.loadActivityCmd(),
		)

	case sessionMsg:
		a.session = m.session
		return a, nil

	case accountCheckMsg:
		if !a.connected || m.addr == "" || equalFoldAddr(m.addr, a.session.Address) {
			return a, nil
		}
		a.session.Address = m.addr
		return a, tea.Batch(
			a.setNotice(noticeWarning, "account changed: "+shortAddr(m.addr)),
			a.refreshBalanceCmd(m.addr),
			a.loadRowsCmd(),
		)

	case rowsMsg:
		a.rows = []service.LoanRow(m)
		if a.cursor >= len(a.rows) {
			a.cursor = 0
		}
		return a, nil

	case activityMsg:
		a.activity = []repository.Activity(m)
		return a, nil

	case submitDoneMsg:
		a.busy = false
		a.form = service.FormInput{}
		a.focus = focusList
		a.formField = fieldAmount
		return a, tea.Batch(
			a.setNotice(noticeSuccess, "loan request confirmed: "+shortHash(m.result.TxHash)),
			a.refreshBalanceCmd(a.session.Address),
			a.loadRowsCmd(),
			a.loadActivityCmd(),
		)

	case repayDoneMsg:
		a.busy = false
		return a, tea.Batch(
			a.setNotice(noticeSuccess, repaySummary(m.result)),
			a.refreshBalanceCmd(a.session.Address),
			a.loadRowsCmd(),
			a.loadActivityCmd(),
		)

	case errMsg:
		a.busy = false
		return a, a.setNotice(noticeDanger, m.message())

	case noticeExpiredMsg:
		a.clearNotice(m.seq)
		return a, nil

	case pollTickMsg:
		if !a.connected {
			return a, a.pollTick()
		}
		return a, tea.Batch(a.checkAccountCmd(), a.pollTick())
	}

	return a, nil
}

func (a *App) handleKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.String() {
	case "ctrl+c":
		return a, tea.Quit
	}

	if a.focus == focusForm {
		return a.handleFormKey(m)
	}

	switch m.String() {
	case "q":
		return a, tea.Quit
	case "c":
		if !a.connected {
			return a, a.connectCmd()
		}
	case "n":
		if a.connected && a.view == viewLoans {
			a.focus = focusForm
			a.formField = fieldAmount
		}
	case "R", "ctrl+r":
		if a.connected {
			return a, tea.Batch(a.refreshBalanceCmd(a.session.Address), a.loadRowsCmd(), a.loadActivityCmd())
		}
	case "v":
		if a.view == viewActivity {
			a.view = viewLoans
		} else {
			a.view = viewActivity
		}
	case "esc":
		a.view = viewLoans
	case "up", "k":
		if a.cursor > 0 {
			a.cursor--
		}
	case "down", "j":
		if a.view == viewLoans && a.cursor < len(a.rows)-1 {
			a.cursor++
		}
	case "p", "enter":
		if a.view != viewLoans || !a.connected || a.busy || len(a.rows) == 0 {
			return a, nil
		}
		row := a.rows[a.cursor]
		if row.State != service.StateActive {
			return a, a.setNotice(noticeWarning, "only active loans can be repaid")
		}
		a.busy = true
		return a, a.repayCmd(row.ID)
	}
	return a, nil
}

func (a *App) handleFormKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.String() {
	case "esc":
		a.focus = focusList
		return a, nil
	case "tab":
		a.formField = (a.formField + 1) % fieldCount
		return a, nil
	case "shift+tab":
		a.formField = (a.formField - 1 + fieldCount) % fieldCount
		return a, nil
	case "enter":
		if a.busy {
			return a, nil
		}
		a.busy = true
		return a, a.submitCmd(a.form)
	}

	buf := a.formBuffer(a.formField)
	switch m.Type {
	case tea.KeyBackspace, tea.KeyCtrlH, tea.KeyDelete:
		if len(*buf) > 0 {
			*buf = (*buf)[:len(*buf)-1]
		}
	case tea.KeyRunes, tea.KeySpace:
		text := *buf + string(m.Runes)
		if a.formField == fieldRate && !service.ValidRateInput(text) {
			// rejected keystroke keeps the prior value
			return a, a.setNotice(noticeWarning, service.ErrBadRate.Error())
		}
		*buf = text
	}
	return a, nil
}

func (a *App) formBuffer(field int) *string {
	switch field {
	case fieldCollateral:
		return &a.form.Collateral
	case fieldRate:
		return &a.form.Rate
	case fieldDueDate:
		return &a.form.DueDate
	default:
		return &a.form.Amount
	}
}
