package sandbox

import (
	"strconv"
	"time"
)

// Limits are the hard bounds isolate enforces on one run.
type Limits struct {
	CPUTime    time.Duration `yaml:"cpuTime"`
	WallTime   time.Duration `yaml:"wallTime"`
	MemoryKB   int64         `yaml:"memoryKB"`
	Processes  int           `yaml:"processes"`
	FileSizeKB int64         `yaml:"fileSizeKB"`
}

// MinWallFactor is the smallest wall/CPU ratio a run is given.
const MinWallFactor = 1.5

// Normalized raises the wall-clock bound to at least MinWallFactor x CPU.
func (l Limits) Normalized() Limits {
	floor := time.Duration(float64(l.CPUTime) * MinWallFactor)
	if l.WallTime < floor {
		l.WallTime = floor
	}
	if l.Processes <= 0 {
		l.Processes = 1
	}
	return l
}

// Scaled applies per-language multipliers to CPU time and memory.
func (l Limits) Scaled(timeFactor, memFactor float64) Limits {
	if timeFactor > 0 {
		l.CPUTime = time.Duration(float64(l.CPUTime) * timeFactor)
		l.WallTime = time.Duration(float64(l.WallTime) * timeFactor)
	}
	if memFactor > 0 {
		l.MemoryKB = int64(float64(l.MemoryKB) * memFactor)
	}
	return l
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}
