package output

import (
	"context"

	"fedhost/internal/compose"
)

// Exit codes reported in render.finished.
const (
	ExitOK           = 0
	ExitRegionFailed = 2
)

// Follow writes the lifecycle of v to m until every region has settled or ctx
// is done. It returns the number of failed regions.
func Follow(ctx context.Context, m *Manager, v *compose.View, regions []compose.Region, verbose bool) (int, error) {
	byID := make(map[string]compose.Region, len(regions))
	for _, reg := range regions {
		byID[reg.ID] = reg
	}

	if err := m.Write(StartedEvent(v, len(regions))); err != nil {
		return 0, err
	}
	for _, snap := range v.Snapshot() {
		if snap.Status == compose.StatusPending {
			if err := m.Write(SuspendedEvent(v, byID[snap.ID])); err != nil {
				return 0, err
			}
		}
	}

	failed := 0
	updates := v.Updates()
	for {
		select {
		case <-ctx.Done():
			return failed, ctx.Err()
		case u, ok := <-updates:
			if !ok {
				if err := v.Err(); err != nil {
					return failed, err
				}
				code := ExitOK
				if failed > 0 {
					code = ExitRegionFailed
				}
				return failed, m.Write(FinishedEvent(v, len(regions), failed, code))
			}
			if u.Status == compose.StatusFailed {
				failed++
			}
			if err := m.Write(RegionEvent(v, byID[u.Region], u, verbose)); err != nil {
				return failed, err
			}
		}
	}
}
