// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/gomlx/pooling/pkg/core/window"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Padding(1, 4, 1, 4)
	headerRowStyle = lipgloss.NewStyle().Reverse(true).Padding(0, 2, 0, 2).Align(lipgloss.Center)
	plainRowStyle  = lipgloss.NewStyle().PaddingLeft(1).PaddingRight(1)
	fadedRowStyle  = plainRowStyle.Faint(true)
	redRowStyle    = plainRowStyle.Foreground(lipgloss.AdaptiveColor{Light: "9", Dark: "9"}).Bold(true)
)

// newTable returns a table with alternating faint rows, and red rows where isRed(row) is true.
// Columns past the given alignments take the last one.
func newTable(withHeader bool, isRed func(row int) bool, alignments ...lipgloss.Position) *lgtable.Table {
	return lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if withHeader && row == lgtable.HeaderRow {
				return headerRowStyle
			}
			s := plainRowStyle
			switch {
			case isRed != nil && isRed(row):
				s = redRowStyle
			case row%2 == 1:
				s = fadedRowStyle
			}
			alignment := lipgloss.Left
			if col < len(alignments) {
				alignment = alignments[col]
			} else if len(alignments) > 0 {
				alignment = alignments[len(alignments)-1]
			}
			return s.Align(alignment)
		})
}

// newPlainTable returns a key/value table with no highlighted rows.
func newPlainTable(withHeader bool, alignments ...lipgloss.Position) *lgtable.Table {
	return newTable(withHeader, nil, alignments...)
}

// windowsTable lists pooling windows, highlighting in red the ones that only cover padding.
type windowsTable struct {
	table *lgtable.Table

	// paddingOnly[row] is set for windows with no input position.
	paddingOnly []bool
}

func newWindowsTable() *windowsTable {
	wt := &windowsTable{}
	wt.table = newTable(true, func(row int) bool {
		return row >= 0 && row < len(wt.paddingOnly) && wt.paddingOnly[row]
	}, lipgloss.Right, lipgloss.Right, lipgloss.Left, lipgloss.Left, lipgloss.Right)
	wt.table.Headers("Axis", "Output", "Window", "Clipped", "Size")
	return wt
}

// Add the window w of output position outputIdx of the given spatial axis, clipped to inputDim.
func (wt *windowsTable) Add(axis, outputIdx int, w window.Window, inputDim int) {
	clipped := w.Clip(inputDim)
	wt.paddingOnly = append(wt.paddingOnly, clipped.Size() == 0)
	wt.table.Row(strconv.Itoa(axis), strconv.Itoa(outputIdx), w.String(), clipped.String(),
		strconv.Itoa(clipped.Size()))
}

// NumPaddingOnly returns the number of windows added that only cover padding.
func (wt *windowsTable) NumPaddingOnly() (count int) {
	for _, isPad := range wt.paddingOnly {
		if isPad {
			count++
		}
	}
	return
}

func (wt *windowsTable) Render() string {
	return wt.table.Render()
}

// newViolationsTable returns the table of invariant violations of the sweep, all rows in red.
func newViolationsTable(violations []violation) *lgtable.Table {
	table := newTable(true, func(int) bool { return true },
		lipgloss.Left, lipgloss.Right, lipgloss.Right, lipgloss.Right, lipgloss.Right, lipgloss.Left)
	table.Headers("Invariant", "Input", "Kernel", "Stride", "Pad", "Detail")
	for _, v := range violations {
		table.Row(v.invariant, strconv.Itoa(v.input), strconv.Itoa(v.kernel), strconv.Itoa(v.stride),
			strconv.Itoa(v.pad), v.detail)
	}
	return table
}
