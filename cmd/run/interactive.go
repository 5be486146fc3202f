package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/fibers/fiber"
	"github.com/wippyai/fibers/ledger"
	"github.com/wippyai/fibers/scenario"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	actionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	ledgerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type interactiveModel struct {
	err     error
	rt      *fiber.Runtime
	host    *ledger.Stack
	sc      *scenario.Scenario
	stepper *scenario.Stepper
	input   textinput.Model
	events  []scenario.Event
	state   modelState
}

type modelState int

const (
	stateStep modelState = iota
	stateEditValue
	stateFinished
)

type restartedMsg struct {
	err     error
	stepper *scenario.Stepper
}

func newInteractiveModel(rt *fiber.Runtime, host *ledger.Stack, sc *scenario.Scenario) *interactiveModel {
	ti := textinput.New()
	ti.Prompt = "value: "
	ti.Placeholder = "passed with the next run or throw"
	ti.Width = 40
	return &interactiveModel{
		rt:    rt,
		host:  host,
		sc:    sc,
		input: ti,
		state: stateStep,
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.restart
}

func (m *interactiveModel) restart() tea.Msg {
	if m.stepper != nil {
		if err := m.stepper.Close(); err != nil {
			return restartedMsg{err: err}
		}
	}
	st, err := scenario.NewStepper(m.rt, m.host, m.sc)
	return restartedMsg{stepper: st, err: err}
}

// step runs in Update so that View never observes a switch in progress.
func (m *interactiveModel) step(override bool, value string) {
	var (
		ev scenario.Event
		ok bool
	)
	if override {
		ev, ok = m.stepper.NextWith(value)
	} else {
		ev, ok = m.stepper.Next()
	}
	if ok {
		m.events = append(m.events, ev)
	}
	if m.stepper.Done() {
		m.state = stateFinished
	}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.state == stateEditValue {
			switch msg.String() {
			case "enter":
				m.state = stateStep
				m.input.Blur()
				m.step(true, m.input.Value())
				return m, nil
			case "esc":
				m.state = stateStep
				m.input.Blur()
				return m, nil
			}
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}

		switch msg.String() {
		case "ctrl+c", "q":
			if m.stepper != nil {
				_ = m.stepper.Close()
			}
			return m, tea.Quit

		case "enter", " ", "n":
			if m.stepper != nil && m.state == stateStep {
				m.step(false, "")
			}

		case "e":
			if m.stepper != nil && m.state == stateStep {
				m.state = stateEditValue
				m.input.SetValue("")
				return m, m.input.Focus()
			}

		case "r":
			m.events = nil
			m.err = nil
			m.state = stateStep
			return m.Update(m.restart())
		}

	case restartedMsg:
		m.err = msg.err
		m.stepper = msg.stepper
		if m.stepper != nil && m.stepper.Done() {
			m.state = stateFinished
		}
	}

	return m, nil
}

func (m *interactiveModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress r to restart or q to quit.", m.err))
	}
	if m.stepper == nil {
		return "Loading scenario..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Fiber Stepper"))
	b.WriteString(" ")
	b.WriteString(m.sc.Name)
	b.WriteString("\n\n")

	causality := "on"
	if !m.rt.Preserving() {
		causality = "off"
	}
	f := m.stepper.Fiber()
	b.WriteString(fmt.Sprintf("backend %s • causality %s • fiber %d %s\n",
		m.rt.Backend(), causality, f.ID(), actionStyle.Render(f.State().String())))
	b.WriteString(fmt.Sprintf("driver ledger: %s\n\n", ledgerStyle.Render(m.host.Frames().String())))

	for i, ev := range m.events {
		line := fmt.Sprintf("%2d. %s", i+1, actionStyle.Render(ev.Action))
		if ev.Input != nil {
			line += fmt.Sprintf(" %v", ev.Input)
		}
		line += " -> " + ev.State
		if ev.Output != nil {
			line += " " + resultStyle.Render(fmt.Sprintf("%v", ev.Output))
		}
		if ev.Error != "" {
			line += " " + errorStyle.Render(ev.Error)
		}
		b.WriteString(line)
		b.WriteString("\n")
		b.WriteString("    fiber  " + ledgerStyle.Render(ev.Fiber) + "\n")
		driver := ledgerStyle.Render(ev.Driver)
		if !ev.Restored {
			driver = errorStyle.Render(ev.Driver + " (changed)")
		}
		b.WriteString("    driver " + driver + "\n")
	}
	b.WriteString("\n")

	switch m.state {
	case stateStep:
		if act, ok := m.stepper.Pending(); ok {
			b.WriteString("next: ")
			b.WriteString(selectedStyle.Render(act.String()))
			b.WriteString("\n\n")
		}
		b.WriteString(helpStyle.Render("enter step • e step with value • r restart • q quit"))

	case stateEditValue:
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter step • esc back"))

	case stateFinished:
		tr := m.stepper.Trace()
		if tr.Consistent {
			b.WriteString(resultStyle.Render("Driver ledger preserved across every switch."))
		} else {
			b.WriteString(errorStyle.Render("Driver ledger changed across a switch."))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("r restart • q quit"))
	}

	return b.String()
}

func runInteractive(rt *fiber.Runtime, host *ledger.Stack, sc *scenario.Scenario) error {
	p := tea.NewProgram(newInteractiveModel(rt, host, sc), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
