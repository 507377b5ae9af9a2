package job

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// declaring job context struct, shared by every tool in the suite
type JobContext struct {
	Tool      string
	Target    string
	JobID     string
	StartTime time.Time
	DryRun    bool
}

// creates a new job context for a tool run, timer begins now
func NewJobContext(tool, target string) *JobContext {
	return &JobContext{
		Tool:      tool,
		Target:    target,
		JobID:     GenerateJobID(),
		StartTime: time.Now(),
	}
}

// seconds elapsed since job start
func (j *JobContext) DurationSeconds() float64 {
	return time.Since(j.StartTime).Seconds()
}

func GenerateJobID() string {
	// gen new random UUID
	u := uuid.New().String()
	parts := strings.Split(u, "-")
	q1 := parts[0] // initial 8-character sequence from UUID
	q2 := parts[1] // 1st 4-character sequence from UUID

	return q1 + q2
}
