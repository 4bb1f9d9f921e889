package grid

import "strings"

// Header tokens of a transaction block. The date label must match exactly;
// the sibling labels are substring checks so trailing annotations in the
// header cells do not break discovery.
const (
	anchorToken       = "日期" // date column label, exact match
	totalDepositToken = "总进款" // label that marks the old summary header
)

// Fingerprint is an ordered structural signature: a row matches at column c
// when the anchor token sits at c and every (offset, substring) pair matches
// relative to c.
type Fingerprint struct {
	Anchor string
	Checks []FingerprintCheck
}

// FingerprintCheck requires a substring at a fixed offset from the anchor.
type FingerprintCheck struct {
	Offset   int
	Contains string
}

// TransactionFingerprint matches the start of one agent's block:
// 日期 | 客户 | 进款 | ... | 费率 | ... | 总数.
func TransactionFingerprint() Fingerprint {
	return Fingerprint{
		Anchor: anchorToken,
		Checks: []FingerprintCheck{
			{Offset: 1, Contains: "客户"},
			{Offset: 2, Contains: "进款"},
			{Offset: 4, Contains: "费率"},
			{Offset: 8, Contains: "总数"},
		},
	}
}

// MatchesAt reports whether the fingerprint matches row r at column c.
func (f Fingerprint) MatchesAt(g Grid, r, c int) bool {
	if g.CellString(r, c) != f.Anchor {
		return false
	}
	for _, chk := range f.Checks {
		if !strings.Contains(g.CellString(r, c+chk.Offset), chk.Contains) {
			return false
		}
	}
	return true
}

// FindHeaderRow scans at most maxDepth rows for the first row where the
// fingerprint matches at some column. ok=false means the sheet no longer has
// the expected structural shape; the caller must treat that as fatal, not
// retryable.
func FindHeaderRow(g Grid, f Fingerprint, maxDepth int) (row int, ok bool) {
	limit := g.Rows()
	if maxDepth > 0 && maxDepth < limit {
		limit = maxDepth
	}
	for r := 0; r < limit; r++ {
		width := len(g[r])
		for c := 0; c+OffTotal < width; c++ {
			if f.MatchesAt(g, r, c) {
				return r, true
			}
		}
	}
	return 0, false
}

// BlockStarts returns the 1-based start column of every block on the header
// row: each anchor token opens a block.
func BlockStarts(g Grid, headerRow int) []int {
	var starts []int
	if headerRow < 0 || headerRow >= g.Rows() {
		return starts
	}
	for c := range g[headerRow] {
		if g.CellString(headerRow, c) == anchorToken {
			starts = append(starts, c+1)
		}
	}
	return starts
}

// FindSummaryHeaderRow locates the header of a previously written daily
// summary at or after fromRow: column A holds the anchor token and column B
// carries the total-deposit label. ok=false means there is no prior summary
// to replace and the report should be appended after the transaction rows
// instead.
func FindSummaryHeaderRow(g Grid, fromRow int) (row int, ok bool) {
	for r := fromRow; r < g.Rows(); r++ {
		if g.CellString(r, 0) == anchorToken && strings.Contains(g.CellString(r, 1), totalDepositToken) {
			return r, true
		}
	}
	return 0, false
}
