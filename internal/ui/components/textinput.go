package components

import (
	"fmt"
	"strconv"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/pdfquiz/internal/ui/theme"
)

// NumberInput wraps bubbles/textinput for a bounded positive integer.
type NumberInput struct {
	Model textinput.Model
	Min   int
	Max   int
	err   string
}

// NewNumberInput creates a focused input prefilled with value.
func NewNumberInput(value, lo, hi int) NumberInput {
	ti := textinput.New()
	ti.Placeholder = strconv.Itoa(value)
	ti.CharLimit = len(strconv.Itoa(hi))
	ti.SetValue(strconv.Itoa(value))
	ti.Focus()

	return NumberInput{Model: ti, Min: lo, Max: hi}
}

// Init returns the initial command.
func (n NumberInput) Init() tea.Cmd {
	return n.Model.Focus()
}

// Update handles messages, dropping non-digit keys.
func (n NumberInput) Update(msg tea.Msg) (NumberInput, tea.Cmd) {
	if kmsg, ok := msg.(tea.KeyMsg); ok {
		key := kmsg.String()
		if len(key) == 1 && (key[0] < '0' || key[0] > '9') {
			return n, nil
		}
		n.err = ""
	}

	var cmd tea.Cmd
	n.Model, cmd = n.Model.Update(msg)
	return n, cmd
}

// Value parses the input, recording a message for View when it is out of
// range.
func (n *NumberInput) Value() (int, bool) {
	v, err := strconv.Atoi(n.Model.Value())
	if err != nil || v < n.Min || v > n.Max {
		n.err = fmt.Sprintf("enter a number from %d to %d", n.Min, n.Max)
		return 0, false
	}
	return v, true
}

// View renders the input and any validation message.
func (n NumberInput) View() string {
	view := n.Model.View()
	if n.err != "" {
		view += "  " + theme.ErrorText.Render(n.err)
	}
	return view
}
