package tournament

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// SaveLedger writes one ToString line per result to path, overwriting any
// existing file, so a subsequent run can resume via LoadLedger.
func SaveLedger(path string, results []*EngineDuelResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("tournament: creating ledger %v: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, r := range results {
		if _, err := fmt.Fprintln(w, r.ToString()); err != nil {
			return fmt.Errorf("tournament: writing ledger %v: %w", path, err)
		}
		var b strings.Builder
		r.WriteCauseStats(&b)
		if _, err := w.WriteString(b.String()); err != nil {
			return fmt.Errorf("tournament: writing ledger %v: %w", path, err)
		}
	}
	return w.Flush()
}

// LoadLedger reads a ledger previously written by SaveLedger, keyed by
// "first vs second" so a resumed tournament can match pairings back to
// their partially completed tallies.
func LoadLedger(path string) (map[string]*EngineDuelResult, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return map[string]*EngineDuelResult{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("tournament: opening ledger %v: %w", path, err)
	}
	defer f.Close()

	out := map[string]*EngineDuelResult{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		// wincauses/drawcauses/losscauses lines are informational
		// only (see EngineDuelResult.FromString); the next " vs "
		// line always rebuilds the tally that matters for resuming.
		if strings.HasPrefix(line, "wincauses:") ||
			strings.HasPrefix(line, "drawcauses:") ||
			strings.HasPrefix(line, "losscauses:") {
			continue
		}
		r, err := FromString(line)
		if err != nil {
			return nil, err
		}
		out[ledgerKey(r.First, r.Second)] = r
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("tournament: reading ledger %v: %w", path, err)
	}
	return out, nil
}

func ledgerKey(first, second string) string {
	return first + " vs " + second
}
