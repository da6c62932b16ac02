// Package scheduler splits a file set across scan lanes.
package scheduler

import (
	"errors"
	"fmt"
)

var ErrConfiguration = errors.New("invalid scan configuration")

// LanePlan is the ordered list of files one lane will read.
type LanePlan struct {
	Lane  int
	Files []int // global file indices, ascending
}

// Scheduler assigns file i to lane i mod N. The assignment is fixed for the
// lifetime of the scan, there is no rebalancing.
type Scheduler struct {
	files []string
	plans []LanePlan
}

// New clamps laneCount to [1, len(files)].
func New(files []string, laneCount int) (*Scheduler, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: empty file set", ErrConfiguration)
	}

	if laneCount < 1 {
		laneCount = 1
	}
	if laneCount > len(files) {
		laneCount = len(files)
	}

	s := &Scheduler{
		files: files,
		plans: make([]LanePlan, laneCount),
	}

	for lane := range s.plans {
		s.plans[lane].Lane = lane
	}
	for i := range files {
		lane := i % laneCount
		s.plans[lane].Files = append(s.plans[lane].Files, i)
	}

	return s, nil
}

func (s *Scheduler) LaneCount() int {
	return len(s.plans)
}

func (s *Scheduler) Files() []string {
	return s.files
}

func (s *Scheduler) Plans() []LanePlan {
	return s.plans
}

// FileSum is the number of files assigned to lane.
func (s *Scheduler) FileSum(lane int) int {
	if lane < 0 || lane >= len(s.plans) {
		return 0
	}
	return len(s.plans[lane].Files)
}

// GlobalIndex maps the i-th file of lane to its index in the file set, -1 when out of range.
func (s *Scheduler) GlobalIndex(lane, i int) int {
	if i < 0 || i >= s.FileSum(lane) {
		return -1
	}
	return s.plans[lane].Files[i]
}

func (s *Scheduler) FileName(lane, i int) string {
	g := s.GlobalIndex(lane, i)
	if g < 0 {
		return ""
	}
	return s.files[g]
}

// BatchID is the global, monotonic id of the i-th file of lane.
func (s *Scheduler) BatchID(lane, i int) int {
	return s.GlobalIndex(lane, i)
}
