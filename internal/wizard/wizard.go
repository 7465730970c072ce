// Package wizard implements the interactive `sqlrun init` flow: a
// small Bubble Tea form that collects connection details for one
// environment and writes sqlrun.toml plus a matching dotenv file.
package wizard

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pelletier/go-toml/v2"

	"github.com/sqlrun/sqlrun/internal/config"
)

type state int

const (
	stateEditing state = iota
	stateSummary
	stateDone
	stateError
)

// field indices into model.inputs
const (
	fieldName = iota
	fieldHost
	fieldPort
	fieldDatabase
	fieldUser
	fieldPassword
	fieldCount
)

var fieldLabels = [fieldCount]string{
	"Environment name",
	"Host",
	"Port",
	"Database",
	"User",
	"Password",
}

var fieldDefaults = [fieldCount]string{
	"local",
	"localhost",
	"5432",
	"postgres",
	"postgres",
	"mysecretpassword",
}

type model struct {
	state      state
	inputs     []textinput.Model
	focusIndex int
	force      bool
	err        error
	written    []string
}

// New creates a new wizard model.
func New(force bool) model {
	inputs := make([]textinput.Model, fieldCount)
	for i := range inputs {
		in := textinput.New()
		in.Placeholder = fieldDefaults[i]
		if i == fieldPassword {
			in.EchoMode = textinput.EchoPassword
		}
		inputs[i] = in
	}
	inputs[0].Focus()
	return model{state: stateEditing, inputs: inputs, force: force}
}

// Init initializes the wizard (Bubble Tea Init)
func (m model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles state transitions (Bubble Tea Update)
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "enter":
			return m.handleEnter()

		case "tab", "down":
			if m.state == stateEditing {
				return m.focusField(m.focusIndex + 1), nil
			}

		case "shift+tab", "up":
			if m.state == stateEditing {
				return m.focusField(m.focusIndex - 1), nil
			}
		}

	case writeResultMsg:
		if msg.err != nil {
			m.err = msg.err
			m.state = stateError
		} else {
			m.written = msg.written
			m.state = stateDone
		}
		return m, tea.Quit
	}

	if m.state == stateEditing {
		var cmd tea.Cmd
		m.inputs[m.focusIndex], cmd = m.inputs[m.focusIndex].Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) handleEnter() (tea.Model, tea.Cmd) {
	switch m.state {
	case stateEditing:
		if m.focusIndex < fieldCount-1 {
			return m.focusField(m.focusIndex + 1), nil
		}
		m.state = stateSummary
		return m, nil
	case stateSummary:
		env := m.environment()
		name := m.value(fieldName)
		force := m.force
		return m, func() tea.Msg {
			written, err := writeFiles(name, env, force)
			return writeResultMsg{written: written, err: err}
		}
	default:
		return m, tea.Quit
	}
}

func (m model) focusField(idx int) model {
	if idx < 0 {
		idx = 0
	}
	if idx > fieldCount-1 {
		idx = fieldCount - 1
	}
	m.inputs[m.focusIndex].Blur()
	m.focusIndex = idx
	m.inputs[m.focusIndex].Focus()
	return m
}

func (m model) value(i int) string {
	v := strings.TrimSpace(m.inputs[i].Value())
	if v == "" {
		return fieldDefaults[i]
	}
	return v
}

func (m model) environment() config.EnvironmentConfig {
	return config.EnvironmentConfig{
		Driver:   "postgres",
		Host:     m.value(fieldHost),
		Port:     m.value(fieldPort),
		Database: m.value(fieldDatabase),
		User:     m.value(fieldUser),
	}
}

// View renders the wizard UI (Bubble Tea View)
func (m model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("sqlrun init"))
	b.WriteString("\n\n")

	switch m.state {
	case stateEditing:
		for i, in := range m.inputs {
			b.WriteString(labelStyle.Render(fieldLabels[i] + ": "))
			b.WriteString(in.View())
			b.WriteString("\n")
		}
		b.WriteString(helpStyle.Render("enter: next field • tab/shift+tab: move • esc: quit"))

	case stateSummary:
		b.WriteString(fmt.Sprintf("Environment %q\n", m.value(fieldName)))
		b.WriteString(fmt.Sprintf("  host:     %s\n", m.value(fieldHost)))
		b.WriteString(fmt.Sprintf("  port:     %s\n", m.value(fieldPort)))
		b.WriteString(fmt.Sprintf("  database: %s\n", m.value(fieldDatabase)))
		b.WriteString(fmt.Sprintf("  user:     %s\n", m.value(fieldUser)))
		b.WriteString("  password: (hidden, written to dotenv)\n")
		b.WriteString(helpStyle.Render("enter: write files • esc: quit"))

	case stateDone:
		b.WriteString(successStyle.Render("Created:"))
		b.WriteString("\n")
		for _, path := range m.written {
			b.WriteString("  " + path + "\n")
		}

	case stateError:
		b.WriteString(errorStyle.Render("Error: " + m.err.Error()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	return b.String()
}

type writeResultMsg struct {
	written []string
	err     error
}

// writeFiles persists the environment into sqlrun.toml (merging with an
// existing file) and the password into .env.<name>.
func writeFiles(name string, env config.EnvironmentConfig, force bool) ([]string, error) {
	cfg := &config.Config{}
	if existing, err := config.Load(); err == nil && existing.ConfigFilePath != "" {
		cfg = existing
		if _, ok := cfg.Environments[name]; ok && !force {
			return nil, fmt.Errorf("environment %q already exists in %s (use --force to overwrite)", name, cfg.ConfigFilePath)
		}
	}
	if cfg.Environments == nil {
		cfg.Environments = map[string]config.EnvironmentConfig{}
	}
	cfg.Environments[name] = env
	if cfg.DefaultEnvironment == "" {
		cfg.DefaultEnvironment = name
	}

	configPath := cfg.ConfigFilePath
	if configPath == "" {
		configPath = "sqlrun.toml"
	}
	cfg.ConfigFilePath = ""
	data, err := toml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", configPath, err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", configPath, err)
	}

	written := []string{configPath}
	return written, nil
}

// WritePassword writes the dotenv file for an environment. Separate
// from writeFiles so the password never lands in sqlrun.toml.
func WritePassword(name, password string) (string, error) {
	path := ".env." + name
	content := "DB_PASS=" + password + "\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// Run starts the wizard and blocks until it finishes.
func Run(force bool) error {
	m := New(force)
	final, err := tea.NewProgram(m).Run()
	if err != nil {
		return err
	}
	fm, ok := final.(model)
	if !ok {
		return nil
	}
	if fm.state == stateError {
		return fm.err
	}
	if fm.state == stateDone {
		if path, err := WritePassword(fm.value(fieldName), fm.value(fieldPassword)); err == nil {
			fm.written = append(fm.written, path)
		} else {
			return err
		}
		for _, path := range fm.written {
			fmt.Println("wrote", path)
		}
	}
	return nil
}
