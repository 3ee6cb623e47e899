package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const defaultAPIURL = "http://localhost:8000"

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("170")).
			Bold(true).
			PaddingLeft(2)

	normalStyle = lipgloss.NewStyle().
			PaddingLeft(4)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	inputStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)
)

type step int

const (
	stepEnteringUsername step = iota
	stepEnteringPassword
	stepLoggingIn
	stepBrowsing
	stepEnteringCityID
	stepEnteringScore
	stepSaving
)

type model struct {
	client       *apiClient
	step         step
	rankings     []rankingView
	cursor       int
	sortDesc     bool
	username     string
	password     string
	cityID       uint
	currentInput string
	message      string
	quitting     bool
}

type loginSuccessMsg struct{}
type rankingsLoadedMsg []rankingView
type savedMsg struct{ text string }
type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

func initialModel(client *apiClient) model {
	return model{
		client:   client,
		step:     stepEnteringUsername,
		sortDesc: true,
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func loginUser(client *apiClient, username, password string) tea.Cmd {
	return func() tea.Msg {
		if err := client.login(username, password); err != nil {
			return errMsg{err}
		}
		return loginSuccessMsg{}
	}
}

func loadRankings(client *apiClient, sortDesc bool) tea.Cmd {
	return func() tea.Msg {
		rankings, err := client.listRankings(sortDesc)
		if err != nil {
			return errMsg{err}
		}
		return rankingsLoadedMsg(rankings)
	}
}

func saveRanking(client *apiClient, cityID uint, score float64) tea.Cmd {
	return func() tea.Msg {
		if err := client.putRanking(cityID, score); err != nil {
			return errMsg{err}
		}
		return savedMsg{fmt.Sprintf("Saved city %d with score %.1f", cityID, score)}
	}
}

func removeRanking(client *apiClient, cityID uint) tea.Cmd {
	return func() tea.Msg {
		if err := client.deleteRanking(cityID); err != nil {
			return errMsg{err}
		}
		return savedMsg{fmt.Sprintf("Deleted ranking for city %d", cityID)}
	}
}

func (m model) editing() bool {
	switch m.step {
	case stepEnteringUsername, stepEnteringPassword, stepEnteringCityID, stepEnteringScore:
		return true
	}
	return false
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.editing() {
			return m.updateInput(msg)
		}
		return m.updateBrowsing(msg)

	case loginSuccessMsg:
		m.step = stepBrowsing
		m.message = successStyle.Render("✓ Logged in as " + m.username)
		m.password = ""
		return m, loadRankings(m.client, m.sortDesc)

	case rankingsLoadedMsg:
		m.rankings = []rankingView(msg)
		if m.cursor >= len(m.rankings) {
			m.cursor = max(len(m.rankings)-1, 0)
		}

	case savedMsg:
		m.step = stepBrowsing
		m.message = successStyle.Render("✓ " + msg.text)
		return m, loadRankings(m.client, m.sortDesc)

	case errMsg:
		m.message = errorStyle.Render("✗ " + msg.err.Error())
		if m.step == stepLoggingIn {
			m.step = stepEnteringUsername
		} else {
			m.step = stepBrowsing
		}
	}

	return m, nil
}

func (m model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.quitting = true
		return m, tea.Quit

	case tea.KeyEsc:
		m.currentInput = ""
		if m.step == stepEnteringCityID || m.step == stepEnteringScore {
			m.step = stepBrowsing
		}
		return m, nil

	case tea.KeyBackspace:
		if len(m.currentInput) > 0 {
			m.currentInput = m.currentInput[:len(m.currentInput)-1]
		}
		return m, nil

	case tea.KeyEnter:
		input := strings.TrimSpace(m.currentInput)
		if input == "" {
			return m, nil
		}
		m.currentInput = ""

		switch m.step {
		case stepEnteringUsername:
			m.username = input
			m.step = stepEnteringPassword

		case stepEnteringPassword:
			m.password = input
			m.step = stepLoggingIn
			m.message = "Logging in..."
			return m, loginUser(m.client, m.username, m.password)

		case stepEnteringCityID:
			id, err := strconv.ParseUint(input, 10, 32)
			if err != nil || id == 0 {
				m.message = errorStyle.Render("✗ city id must be a positive integer")
				return m, nil
			}
			m.cityID = uint(id)
			m.step = stepEnteringScore

		case stepEnteringScore:
			score, err := strconv.ParseFloat(input, 64)
			if err != nil || score < 0 || score > 100 {
				m.message = errorStyle.Render("✗ score must be a number between 0 and 100")
				return m, nil
			}
			m.step = stepSaving
			m.message = "Saving..."
			return m, saveRanking(m.client, m.cityID, score)
		}
		return m, nil

	case tea.KeyRunes, tea.KeySpace:
		m.currentInput += msg.String()
	}
	return m, nil
}

func (m model) updateBrowsing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.step != stepBrowsing {
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	}

	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.rankings)-1 {
			m.cursor++
		}

	case "a":
		m.step = stepEnteringCityID
		m.message = ""

	case "d":
		if len(m.rankings) > 0 {
			m.step = stepSaving
			m.message = "Deleting..."
			return m, removeRanking(m.client, m.rankings[m.cursor].CityID)
		}

	case "r":
		return m, loadRankings(m.client, m.sortDesc)

	case "s":
		m.sortDesc = !m.sortDesc
		m.cursor = 0
		return m, loadRankings(m.client, m.sortDesc)
	}
	return m, nil
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var s strings.Builder

	s.WriteString(titleStyle.Render("SAFR city rankings\n\n"))

	switch m.step {
	case stepEnteringUsername:
		if m.message != "" {
			s.WriteString(m.message + "\n\n")
		}
		s.WriteString(promptStyle.Render("Enter your username:\n"))
		s.WriteString(inputStyle.Render("> " + m.currentInput))
		s.WriteString("\n\nPress Enter\n")

	case stepEnteringPassword:
		s.WriteString(promptStyle.Render("Enter your password:\n"))
		s.WriteString(inputStyle.Render("> " + strings.Repeat("•", len(m.currentInput))))
		s.WriteString("\n\nPress Enter\n")

	case stepLoggingIn, stepSaving:
		s.WriteString(m.message + "\n")

	case stepBrowsing:
		if m.message != "" {
			s.WriteString(m.message + "\n\n")
		}
		order := "highest first"
		if !m.sortDesc {
			order = "lowest first"
		}
		s.WriteString(promptStyle.Render(fmt.Sprintf("Your rankings (%s):\n\n", order)))

		if len(m.rankings) == 0 {
			s.WriteString(normalStyle.Render("No rankings yet") + "\n")
		}
		for i, r := range m.rankings {
			cursor := " "
			style := normalStyle
			if m.cursor == i {
				cursor = ">"
				style = selectedStyle
			}
			s.WriteString(fmt.Sprintf("%s %s\n", cursor, style.Render(rankingLine(r))))
		}

		s.WriteString("\n↑/↓ move, a add/update, d delete, r refresh, s sort, q quit\n")

	case stepEnteringCityID:
		if m.message != "" {
			s.WriteString(m.message + "\n\n")
		}
		s.WriteString(promptStyle.Render("Enter city id:\n"))
		s.WriteString(inputStyle.Render("> " + m.currentInput))
		s.WriteString("\n\nPress Enter, Esc to cancel\n")

	case stepEnteringScore:
		if m.message != "" {
			s.WriteString(m.message + "\n\n")
		}
		s.WriteString(promptStyle.Render(fmt.Sprintf("Score for city %d (0-100):\n", m.cityID)))
		s.WriteString(inputStyle.Render("> " + m.currentInput))
		s.WriteString("\n\nPress Enter, Esc to cancel\n")
	}

	return s.String()
}

func rankingLine(r rankingView) string {
	name := fmt.Sprintf("city %d", r.CityID)
	if r.City != nil && r.City.Name != "" {
		name = fmt.Sprintf("%s, %s (%d)", r.City.Name, r.City.Country, r.CityID)
	}
	return fmt.Sprintf("%-40s %6.1f", name, r.PersonalScore)
}

func main() {
	baseURL := os.Getenv("SAFR_API_URL")
	if baseURL == "" {
		baseURL = defaultAPIURL
	}

	p := tea.NewProgram(initialModel(newAPIClient(baseURL)))
	if _, err := p.Run(); err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}
