package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/shophuyvan/shophuyvan-sub002/internal/domain/cart"
)

// Styles holds the lipgloss styles shared by list output and the watch view
type Styles struct {
	Header  lipgloss.Style
	Cell    lipgloss.Style
	Muted   lipgloss.Style
	Total   lipgloss.Style
	Savings lipgloss.Style
	Error   lipgloss.Style
	Border  lipgloss.Style
}

// DefaultStyles returns the cartctl palette
func DefaultStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#bd93f9")),
		Cell:    lipgloss.NewStyle().Foreground(lipgloss.Color("#f8f8f2")),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("#6272a4")),
		Total:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#50fa7b")),
		Savings: lipgloss.NewStyle().Foreground(lipgloss.Color("#ffb86c")),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff5555")),
		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#44475a")).
			Padding(0, 1),
	}
}

type column struct {
	title string
	width int
	right bool
}

var cartColumns = []column{
	{title: "KEY", width: 18},
	{title: "NAME", width: 24},
	{title: "QTY", width: 5, right: true},
	{title: "PRICE", width: 14, right: true},
	{title: "AMOUNT", width: 16, right: true},
}

// RenderCart lays out the cart as a table followed by its totals
func RenderCart(state cart.State, s Styles) string {
	if state.IsEmpty() {
		return s.Muted.Render("Cart is empty")
	}

	rows := make([]string, 0, len(state.Lines)+5)
	rows = append(rows, renderRow(s.Header, headerCells()))
	for _, line := range state.Lines {
		rows = append(rows, renderRow(s.Cell, []string{
			line.Key,
			displayName(line),
			fmt.Sprintf("%d", line.Quantity),
			FormatVND(line.UnitPrice),
			FormatVND(line.UnitPrice * float64(line.Quantity)),
		}))
	}

	rows = append(rows, "")
	rows = append(rows, totalRow(s.Cell, "Subtotal", FormatVND(state.Subtotal)))
	if state.Savings > 0 {
		rows = append(rows, totalRow(s.Savings, "Savings", FormatVND(state.Savings)))
	}
	rows = append(rows, totalRow(s.Total, "Total", FormatVND(state.Total)))
	rows = append(rows, s.Muted.Render(fmt.Sprintf("%d items", state.ItemCount())))
	return strings.Join(rows, "\n")
}

func headerCells() []string {
	cells := make([]string, len(cartColumns))
	for i, col := range cartColumns {
		cells[i] = col.title
	}
	return cells
}

func renderRow(style lipgloss.Style, cells []string) string {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		col := cartColumns[i]
		cellStyle := style.Width(col.width).MaxWidth(col.width)
		if col.right {
			cellStyle = cellStyle.Align(lipgloss.Right)
		}
		parts[i] = cellStyle.Render(truncate(cell, col.width))
	}
	return strings.Join(parts, " ")
}

func totalRow(style lipgloss.Style, label, value string) string {
	width := 0
	for _, col := range cartColumns {
		width += col.width + 1
	}
	labelWidth := width - cartColumns[len(cartColumns)-1].width - 1
	return style.Width(labelWidth).Align(lipgloss.Right).Render(label) + " " +
		style.Width(cartColumns[len(cartColumns)-1].width).Align(lipgloss.Right).Render(value)
}

func displayName(line cart.Line) string {
	name := line.DisplayName
	if name == "" {
		name = line.ProductID
	}
	if line.VariantLabel != "" {
		name += " (" + line.VariantLabel + ")"
	}
	return name
}

func truncate(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+1 > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}
