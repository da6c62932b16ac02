package manager

import (
	"fmt"

	"github.com/dot5enko/simple-column-scan/reader"
)

type ManagerConfig struct {
	// scan lanes, <= 0 means one lane per file
	Threads int

	// rows per batch handed out by readers
	BatchSize int

	SkipCorruptRecords      bool
	TolerantSchemaEvolution bool

	// force the scalar compare path
	DisablePacked bool
}

func DefaultConfig() ManagerConfig {
	return ManagerConfig{
		Threads:                 0,
		BatchSize:               reader.DefaultBatchSize,
		SkipCorruptRecords:      true,
		TolerantSchemaEvolution: true,
	}
}

func (c ManagerConfig) Validate() error {
	if c.BatchSize < 0 {
		return fmt.Errorf("%w: batch size %d", ErrConfiguration, c.BatchSize)
	}
	return nil
}

func (c ManagerConfig) batchSize() int {
	if c.BatchSize == 0 {
		return reader.DefaultBatchSize
	}
	return c.BatchSize
}

func (c ManagerConfig) laneCount(files int) int {
	if c.Threads <= 0 {
		return files
	}
	return c.Threads
}
