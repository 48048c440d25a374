package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mkell/chainlend/internal/chain"
	"github.com/mkell/chainlend/internal/service"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Background(lipgloss.Color("238")).Padding(0, 2)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	dangerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	activeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
)

func (a *App) View() string {
	var sections []string
	sections = append(sections, a.renderWallet())

	switch a.view {
	case viewActivity:
		sections = append(sections, a.renderActivity())
	default:
		sections = append(sections, a.renderForm(), a.renderLoans())
	}

	body := strings.Join(sections, "\n\n")
	return body + "\n" + a.renderNotice() + "\n" + a.renderFooter()
}

func (a *App) renderWallet() string {
	header := titleStyle.Render("Chainlend — Borrower")
	if !a.connected {
		return header + "\n" + boxStyle.Render(labelStyle.Render("wallet")+"  not connected — press c to connect")
	}
	line := fmt.Sprintf("%s  %s    %s  %s ETH",
		labelStyle.Render("account"), a.session.Address,
		labelStyle.Render("balance"), a.session.Balance())
	return header + "\n" + boxStyle.Render(line)
}

func (a *App) renderForm() string {
	labels := [fieldCount]string{"Amount (ETH)", "Collateral (ETH)", "Interest rate (%)", "Due date (YYYY-MM-DD)"}
	values := [fieldCount]string{a.form.Amount, a.form.Collateral, a.form.Rate, a.form.DueDate}

	var lines []string
	for i := 0; i < fieldCount; i++ {
		prefix := "  "
		if a.focus == focusForm && a.formField == i {
			prefix = "> "
		}
		value := values[i]
		if a.focus == focusForm && a.formField == i {
			value += "_"
		}
		lines = append(lines, fmt.Sprintf("%s%-22s %s", prefix, labels[i], value))
	}
	lines = append(lines, labelStyle.Render("  collateral must be at least 2x the amount; the contract enforces this"))

	title := titleStyle.Render("New Loan Request")
	if a.focus != focusForm {
		title += labelStyle.Render("  (press n to edit)")
	}
	return title + "\n" + boxStyle.Render(strings.Join(lines, "\n"))
}

func (a *App) renderLoans() string {
	title := titleStyle.Render("Your Loans & Requests")
	if len(a.rows) == 0 {
		return title + "\n" + boxStyle.Render(labelStyle.Render("no loans or pending requests for this account"))
	}

	header := fmt.Sprintf("  %-6s %-8s %12s %12s %6s  %-12s", "ID", "State", "Amount", "Stake", "Rate", "End/Term")
	lines := []string{labelStyle.Render(header)}
	for i, row := range a.rows {
		prefix := "  "
		if a.focus == focusList && i == a.cursor {
			prefix = "> "
		}
		state := string(row.State)
		switch row.State {
		case service.StateActive:
			state = activeStyle.Render(fmt.Sprintf("%-8s", state))
		default:
			state = pendingStyle.Render(fmt.Sprintf("%-8s", state))
		}
		lines = append(lines, fmt.Sprintf("%s%-6s %s %12s %12s %5d%%  %-12s",
			prefix, row.ID, state,
			chain.FormatEther(row.Amount), chain.FormatEther(row.Stake),
			row.Rate, row.Term))
	}
	return title + "\n" + boxStyle.Render(strings.Join(lines, "\n"))
}

func (a *App) renderActivity() string {
	title := titleStyle.Render("Activity")
	if len(a.activity) == 0 {
		return title + "\n" + boxStyle.Render(labelStyle.Render("no submitted transactions yet"))
	}
	header := fmt.Sprintf("  %-19s %-10s %-8s %14s  %s", "When", "Kind", "Loan", "Amount (wei)", "Tx")
	lines := []string{labelStyle.Render(header)}
	for _, e := range a.activity {
		loan := e.LoanID
		if loan == "" {
			loan = "-"
		}
		lines = append(lines, fmt.Sprintf("  %-19s %-10s %-8s %14s  %s",
			e.CreatedAt.In(a.loc).Format("2006-01-02 15:04:05"),
			e.Kind, loan, e.AmountWei, shortHash(e.TxHash)))
	}
	return title + "\n" + boxStyle.Render(strings.Join(lines, "\n"))
}

func (a *App) renderNotice() string {
	if a.busy {
		return warningStyle.Render("waiting for confirmation...")
	}
	if a.notice.text == "" {
		return ""
	}
	switch a.notice.level {
	case noticeSuccess:
		return successStyle.Render(a.notice.text)
	case noticeWarning:
		return warningStyle.Render(a.notice.text)
	default:
		return dangerStyle.Render(a.notice.text)
	}
}

func (a *App) renderFooter() string {
	var text string
	switch {
	case !a.connected:
		text = renderHelp(a.keys.disconnectedHelp())
	case a.focus == focusForm:
		text = renderHelp(a.keys.formHelp())
	default:
		text = renderHelp(a.keys.listHelp())
	}
	if a.width == 0 {
		return footerStyle.Render(text)
	}
	return footerStyle.Render(padRight(text, a.width-4))
}

func padRight(s string, width int) string {
	if width <= 0 {
		return s
	}
	w := lipgloss.Width(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

func shortAddr(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:8] + "…" + addr[len(addr)-4:]
}

func shortHash(hash string) string {
	if len(hash) <= 14 {
		return hash
	}
	return hash[:10] + "…"
}

func equalFoldAddr(a, b string) bool {
	return chain.EqualAddress(a, b)
}

func repaySummary(r service.RepayResult) string {
	return fmt.Sprintf("repaid %s ETH (≈%.2f %s), tx %s",
		chain.FormatEther(r.TotalWei), r.FiatEstimate,
		strings.ToUpper(r.FiatCurrency), shortHash(r.TxHash))
}
