package smart

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mbeisser1/homelab/job"
	"github.com/mbeisser1/homelab/logger"
	"github.com/mbeisser1/homelab/sysutil"
)

// SMART attributes worth reporting, mapped to short column names
var KeyAttrs = map[string]string{
	"Reallocated_Sector_Ct":   "Realloc",
	"Current_Pending_Sector":  "Pending",
	"Offline_Uncorrectable":   "Uncorr",
	"Reported_Uncorrect":      "Reported",
	"UDMA_CRC_Error_Count":    "CRC",
	"Temperature_Celsius":     "Temp",
	"Power_On_Hours":          "POH",
}

// column order for tables & summaries
var AttrOrder = []string{"Realloc", "Pending", "Uncorr", "Reported", "CRC", "Temp", "POH"}

// any non-zero value here flips the report to ALERT
var alertKeys = []string{"Realloc", "Pending", "Uncorr", "Reported", "CRC"}

// DriveReport holds parsed SMART state for one device
type DriveReport struct {
	Device string            // /dev/sdb
	Name   string            // sdb
	Model  string
	Attrs  map[string]string // short name -> raw value
	Raw    string            // full smartctl output for the attachment
	Err    error
}

// HasAlert reports whether any error counter is non-zero
func (r *DriveReport) HasAlert() bool {
	if r.Err != nil {
		return true
	}
	for _, key := range alertKeys {
		value := r.Attrs[key]
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return true
		}
	}
	return false
}

// Collector shells to smartctl per device
type Collector struct {
	Runner sysutil.Runner
	Job    *job.JobContext
}

func NewCollector(runner sysutil.Runner, jobctx *job.JobContext) *Collector {
	return &Collector{Runner: runner, Job: jobctx}
}

// Collect runs smartctl against one device. The sat transport is tried
// first, falling back to sat,12 for bridges that need the short command set.
func (c *Collector) Collect(device string) DriveReport {
	report := DriveReport{
		Device: device,
		Name:   filepath.Base(device),
		Model:  "Unknown",
		Attrs:  map[string]string{},
	}

	verboseFields := logger.MergeFields(logger.CoreLogFields(c.Job, "smart"), map[string]interface{}{
		"device": device,
	})

	output, err := c.Runner.Output("smartctl", "-A", "-d", "sat", device)
	if err != nil {
		logger.LogxWithFields("debug", fmt.Sprintf("smartctl -d sat failed on %s, retrying with sat,12", device), verboseFields)
		output, err = c.Runner.Output("smartctl", "-A", "-d", "sat,12", device)
	}
	if err != nil {
		report.Err = fmt.Errorf("smartctl failed on %s: %v", device, err)
		logger.LogxWithFields("error", report.Err.Error(), verboseFields)
		return report
	}

	report.Raw = output
	report.Model = ParseModel(output)
	report.Attrs = ParseAttributes(output)

	// overall health verdict, best effort
	if healthOut, healthErr := c.Runner.Output("smartctl", "-H", "-d", "sat", device); healthErr == nil {
		report.Raw += "\n" + healthOut
	}

	logger.LogxWithFields("debug", fmt.Sprintf("Collected SMART data for %s (%s)", device, report.Model), verboseFields)
	return report
}

// ParseAttributes extracts key attributes from smartctl -A output.
// Attribute rows have a numeric id first and at least 10 columns, the raw
// value is the last one.
func ParseAttributes(output string) map[string]string {
	attrs := map[string]string{}
	for _, line := range strings.Split(output, "\n") {
		parts := strings.Fields(line)
		if len(parts) < 10 {
			continue
		}
		if _, err := strconv.Atoi(parts[0]); err != nil {
			continue
		}
		name := parts[1]
		raw := parts[len(parts)-1]
		short, wanted := KeyAttrs[name]
		if !wanted {
			continue
		}
		// clean temperature values like "35 (Min/Max 31/39)" or "22/50"
		if name == "Temperature_Celsius" {
			raw = splitTempValue(raw)
		}
		attrs[short] = raw
	}
	return attrs
}

// leading integer before any of " /()" separators
func splitTempValue(raw string) string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ' ' || r == '/' || r == '(' || r == ')'
	})
	if len(fields) > 0 {
		return fields[0]
	}
	return raw
}

// ParseModel extracts the drive model from smartctl output
func ParseModel(output string) string {
	for _, line := range strings.Split(output, "\n") {
		if strings.Contains(line, "Device Model:") || strings.Contains(line, "Model Family:") {
			parts := strings.SplitN(line, ":", 2)
			if len(parts) == 2 {
				return strings.TrimSpace(parts[1])
			}
		}
	}
	return "Unknown"
}
