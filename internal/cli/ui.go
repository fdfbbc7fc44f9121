package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/itzana/itzanago/internal/service"
	"github.com/itzana/itzanago/models"
)

// UI styles
var (
	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7C3AED")).
		Background(lipgloss.Color("#1F2937")).
		Padding(0, 1).
		MarginBottom(1)

	questionStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#3B82F6")).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#3B82F6")).
		Padding(0, 2).
		Width(80)

	answerStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#10B981")).
		Padding(1, 2)

	inProgressStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#F59E0B")).
		Bold(true)

	completedStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10B981")).
		Bold(true)

	errorStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#EF4444")).
		Bold(true)
)

// DisplayWelcomeBanner shows the welcome banner
func DisplayWelcomeBanner() {
	welcomeStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#7C3AED")).
		Bold(true).
		Align(lipgloss.Center).
		Width(80)

	taglineStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#3B82F6")).
		Italic(true).
		Align(lipgloss.Center).
		Width(80).
		MarginBottom(1)

	fmt.Println(welcomeStyle.Render("ITZANA " + Version))
	fmt.Println(taglineStyle.Render("Pregunta sobre reservaciones y cuentas agrupadas"))
}

func DisplayQuestion(question string) {
	fmt.Println(questionStyle.Render(question))
}

// DisplayMarkdown prints an answer inside a bordered panel.
func DisplayMarkdown(markdown string) {
	fmt.Println(answerStyle.Render(markdown))
}

func DisplayReload(res *models.ReloadResult) {
	DisplaySuccess(fmt.Sprintf("Snapshot rebuilt: %d reservations, %d grouped accounts",
		res.ReservationsLoaded, res.AccountsLoaded))
}

// DisplayChartOutcome explains a missing image. The HTTP API stays silent
// about chart failures; the terminal user gets a one-line hint.
func DisplayChartOutcome(out service.ChartOutcome) {
	switch {
	case !out.Requested:
		return
	case out.Err != nil:
		fmt.Println(inProgressStyle.Render(fmt.Sprintf("Chart skipped at %s stage: %v", out.Stage, out.Err)))
	case out.Stage == service.StageDone && out.Spec != nil:
		fmt.Println(completedStyle.Render(fmt.Sprintf("Chart: %s of %s by %s", out.Spec.ChartType, out.Spec.Y, out.Spec.X)))
	}
}

// DisplayError shows an error message
func DisplayError(err error) {
	fmt.Println(errorStyle.Render("Error: " + err.Error()))
}

// DisplayInfo shows an info message
func DisplayInfo(message string) {
	fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6")).Render(message))
}

// DisplaySuccess shows a success message
func DisplaySuccess(message string) {
	fmt.Println(completedStyle.Render(message))
}
