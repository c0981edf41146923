package sandbox

import (
	"bufio"
	"math"
	"strconv"
	"strings"
)

// Report status codes written by isolate.
const (
	CodeTimeout  = "TO"
	CodeRuntime  = "RE"
	CodeSignal   = "SG"
	CodeInternal = "XX"
)

// Report is the parsed isolate meta file.
type Report struct {
	// Status is empty when the program exited normally with code 0.
	Status    string
	Message   string
	Time      float64
	WallTime  float64
	MaxRSSKB  int64
	CGMemKB   int64
	OOMKilled bool
	ExitSig   int
	ExitCode  int
	Killed    bool

	Raw map[string]string
}

// ParseReport reads newline-delimited key:value pairs. Unknown keys are
// kept in Raw; malformed numbers are ignored.
func ParseReport(data string) *Report {
	r := &Report{Raw: make(map[string]string)}
	sc := bufio.NewScanner(strings.NewReader(data))
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		r.Raw[key] = value

		switch key {
		case "status":
			r.Status = value
		case "message":
			r.Message = value
		case "time":
			r.Time = parseFloat(value)
		case "time-wall":
			r.WallTime = parseFloat(value)
		case "max-rss":
			r.MaxRSSKB = parseInt(value)
		case "cg-mem":
			r.CGMemKB = parseInt(value)
		case "cg-oom-killed":
			r.OOMKilled = value == "1"
		case "exitsig":
			r.ExitSig = int(parseInt(value))
		case "exitcode":
			r.ExitCode = int(parseInt(value))
		case "killed":
			r.Killed = value == "1"
		}
	}
	return r
}

// Failed reports whether isolate classified the run as abnormal.
func (r *Report) Failed() bool {
	return r != nil && r.Status != ""
}

// PeakMemoryKB is the best available peak memory figure.
func (r *Report) PeakMemoryKB() int64 {
	if r == nil {
		return 0
	}
	if r.MaxRSSKB > 0 {
		return r.MaxRSSKB
	}
	return r.CGMemKB
}

// MemoryExceeded reports an OOM kill or peak memory at or above ceilingKB.
func (r *Report) MemoryExceeded(ceilingKB int64) bool {
	if r == nil {
		return false
	}
	return r.OOMKilled || (ceilingKB > 0 && r.PeakMemoryKB() >= ceilingKB)
}

// TimeoutSeconds is the time charged to a timed-out run: the largest of
// CPU time, wall time and limit, since a wall-clock kill leaves CPU time low.
func (r *Report) TimeoutSeconds(limit float64) float64 {
	if r == nil {
		return limit
	}
	return math.Max(limit, math.Max(r.Time, r.WallTime))
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseInt(s string) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}
