// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package pooling

// Kind of reduction done by the pooling.
type Kind uint8

//go:generate go tool enumer -type=Kind -trimprefix=Kind -output=gen_kind_enumer.go kinds.go

const (
	KindAvg Kind = iota
	KindMax
)

// Mode of the pooling: fixed-size windows, or adaptive windows derived from the requested output size.
type Mode uint8

//go:generate go tool enumer -type=Mode -trimprefix=Mode -output=gen_mode_enumer.go kinds.go

const (
	ModeFixed Mode = iota
	ModeAdaptive
)
