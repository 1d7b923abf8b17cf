// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/pooling/pkg/core/window"
	"github.com/schollz/progressbar/v3"
)

// maxViolationsReported limits the number of rows of the violations table.
const maxViolationsReported = 20

// violation of a window geometry invariant.
type violation struct {
	invariant                  string
	input, kernel, stride, pad int
	detail                     string
}

// checkInputDim checks the window geometry invariants for one input dimension, all kernels and strides up to
// maxValue, and all output sizes up to maxValue for adaptive windows. It returns the number of checks performed.
func checkInputDim(input, maxValue int) (numChecks int, violations []violation) {
	report := func(invariant string, kernel, stride, pad int, format string, args ...any) {
		violations = append(violations, violation{
			invariant: invariant, input: input, kernel: kernel, stride: stride, pad: pad,
			detail: fmt.Sprintf(format, args...),
		})
	}

	// Adaptive windows: non-empty, in bounds, and covering the whole input.
	for output := 1; output <= maxValue; output++ {
		numChecks++
		windows, err := window.AdaptiveWindows(input, output)
		if err != nil {
			report("adaptive", 0, 0, 0, "output=%d: %v", output, err)
			continue
		}
		covered := 0
		for ii, w := range windows {
			if w.Size() <= 0 || w.Start < 0 || w.End > input || w.Start > covered {
				report("adaptive", 0, 0, 0, "output=%d: window #%d is %s, covered so far [0, %d)",
					output, ii, w, covered)
				break
			}
			covered = max(covered, w.End)
		}
		if covered != input {
			report("adaptive", 0, 0, 0, "output=%d: windows cover [0, %d)", output, covered)
		}
	}

	for kernel := 1; kernel <= min(input, maxValue); kernel++ {
		for stride := 1; stride <= maxValue; stride++ {
			// SAME: output is ceil(input/stride), and the padding is split with the extra one at the end.
			numChecks++
			output, pairs := window.SamePadding(input, kernel, stride)
			if output != (input+stride-1)/stride {
				report("same", kernel, stride, 0, "output=%d", output)
			}
			if pairs[0] > pairs[1] || pairs[1]-pairs[0] > 1 || pairs[0] < 0 {
				report("same", kernel, stride, 0, "padding=%v", pairs)
			}
			last := window.FixedWindow(output-1, kernel, stride, pairs[0])
			if last.End > input+pairs[1] || last.Clip(input).Size() == 0 {
				report("same", kernel, stride, 0, "last window %s, padding %v", last, pairs)
			}

			for pad := 0; pad < kernel; pad++ {
				// Floor: the last window fits in the padded input, and one more window wouldn't.
				numChecks++
				floorOut := window.OutputDim(input, kernel, stride, pad, pad, false)
				last = window.FixedWindow(floorOut-1, kernel, stride, pad)
				next := window.FixedWindow(floorOut, kernel, stride, pad)
				if floorOut < 1 || last.End > input+pad || next.End <= input+pad {
					report("floor", kernel, stride, pad, "output=%d, last window %s", floorOut, last)
				}

				// Ceil: at most one more output. If stride <= kernel its window starts within the padded input,
				// otherwise it may only cover padding.
				numChecks++
				ceilOut := window.OutputDim(input, kernel, stride, pad, pad, true)
				if ceilOut-floorOut < 0 || ceilOut-floorOut > 1 {
					report("ceil", kernel, stride, pad, "output=%d, floor output=%d", ceilOut, floorOut)
				} else if ceilOut > floorOut && stride <= kernel &&
					window.FixedWindow(ceilOut-1, kernel, stride, pad).Start >= input+pad {
					report("ceil", kernel, stride, pad, "last window %s starts after the padded input",
						window.FixedWindow(ceilOut-1, kernel, stride, pad))
				}
			}
		}
	}
	return
}

// sweep checks the window geometry invariants for all input dimensions up to maxValue, and reports the results.
// It returns false if any invariant is violated.
func sweep(maxValue int) bool {
	bar := progressbar.NewOptions(maxValue,
		progressbar.OptionSetDescription("Checking window geometry"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("input dims"),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.ThemeASCII),
		progressbar.OptionClearOnFinish(),
	)
	var totalChecks int
	var violations []violation
	for input := 1; input <= maxValue; input++ {
		numChecks, inputViolations := checkInputDim(input, maxValue)
		totalChecks += numChecks
		violations = append(violations, inputViolations...)
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	fmt.Println(titleStyle.Render("Window geometry sweep"))
	summary := newPlainTable(false, lipgloss.Right, lipgloss.Left)
	summary.Row("max value", strconv.Itoa(maxValue))
	summary.Row("checks", humanize.Comma(int64(totalChecks)))
	summary.Row("violations", humanize.Comma(int64(len(violations))))
	fmt.Println(summary.Render())
	if len(violations) == 0 {
		return true
	}

	fmt.Println(newViolationsTable(violations[:min(len(violations), maxViolationsReported)]).Render())
	return false
}
