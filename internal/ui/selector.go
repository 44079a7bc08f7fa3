// Package ui holds the small bubbletea components shared by the REPL
// and the setup wizard.
package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// SelectorItem is one row in a selector list. Disabled rows render but
// cannot be chosen, which is how unauthorized devices and providers
// without keys are shown.
type SelectorItem struct {
	ID          string
	Label       string
	Description string
	Current     bool
	Disabled    bool
}

// Selector is an interactive list picker driven by arrow keys.
type Selector struct {
	title    string
	items    []SelectorItem
	cursor   int
	selected int
	active   bool
	width    int
}

// NewSelector creates a selector with the cursor on the current item.
func NewSelector(title string, items []SelectorItem) Selector {
	selected := 0
	for i, item := range items {
		if item.Current {
			selected = i
			break
		}
	}

	return Selector{
		title:    title,
		items:    items,
		cursor:   selected,
		selected: selected,
		active:   true,
		width:    80,
	}
}

// SetWidth sets the selector width.
func (s *Selector) SetWidth(w int) {
	s.width = w
}

// Active reports whether the selector is still taking input.
func (s *Selector) Active() bool {
	return s.active
}

// Selected returns the chosen item ID, or empty when cancelled.
func (s *Selector) Selected() string {
	if s.selected >= 0 && s.selected < len(s.items) {
		return s.items[s.selected].ID
	}
	return ""
}

// Cancelled reports whether the user backed out without choosing.
func (s *Selector) Cancelled() bool {
	return !s.active && s.selected == -1
}

// Update handles selector input.
func (s *Selector) Update(msg tea.Msg) (*Selector, tea.Cmd) {
	if !s.active {
		return s, nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if s.cursor > 0 {
				s.cursor--
			}
		case "down", "j":
			if s.cursor < len(s.items)-1 {
				s.cursor++
			}
		case "enter":
			if !s.items[s.cursor].Disabled {
				s.selected = s.cursor
				s.active = false
			}
		case "esc", "q":
			s.selected = -1
			s.active = false
		}
	}

	return s, nil
}

// View renders the selector.
func (s *Selector) View() string {
	if !s.active {
		return ""
	}

	var b strings.Builder

	b.WriteString(HelpStyle.Render(s.title + " (↑/↓ navigate, enter select, esc cancel)"))
	b.WriteString("\n\n")

	for i, item := range s.items {
		isCursor := i == s.cursor

		if isCursor {
			b.WriteString(SelectorCursor.Render(SymbolArrow) + " ")
		} else {
			b.WriteString("  ")
		}

		display := item.Label
		if display == "" {
			display = item.ID
		}
		label := fmt.Sprintf("%-35s", display)
		switch {
		case item.Disabled:
			b.WriteString(SelectorDim.Render(label))
		case isCursor:
			b.WriteString(SelectorActive.Render(label))
		default:
			b.WriteString(SelectorItemStyle.Render(label))
		}

		if item.Description != "" {
			desc := item.Description
			if item.Current {
				desc += " (current)"
			}
			b.WriteString(SelectorDim.Render(desc))
		}

		b.WriteString("\n")
	}

	return b.String()
}
