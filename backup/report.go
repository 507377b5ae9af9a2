package backup

import (
	"fmt"
	"html"
	"os"
	"strings"
	"time"

	"github.com/mbeisser1/homelab/mailer"
)

// BuildReportMail renders the completion mail, carrying the step log as a
// text attachment. A failed run gets an ALERT subject.
func (o *Orchestrator) BuildReportMail(success bool) *mailer.Message {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}

	status := "OK"
	statusLine := "<span style='color:green'>Backup sequence completed</span>"
	if !success {
		status = "ALERT"
		statusLine = "<span style='color:red'>Backup sequence failed!</span>"
	}

	var rows strings.Builder
	for _, result := range o.results {
		state := "<td style='color:green'>OK</td>"
		if result.Err != nil {
			state = "<td style='color:red;font-weight:bold;'>FAILED</td>"
		}
		fmt.Fprintf(&rows, "<tr><td>%s</td>%s<td>%.1fs</td></tr>\n",
			html.EscapeString(result.Name), state, result.Duration.Seconds())
	}

	body := fmt.Sprintf(`
	<html>
	<body style="font-family: Arial, sans-serif;">
	<h2>Pool Backup Report</h2>
	<p><b>Host:</b> %s<br>
	   <b>Date:</b> %s<br>
	   <b>Job:</b> %s<br>
	   <b>Status:</b> %s</p>
	<table border='1' cellpadding='6' cellspacing='0' style='border-collapse: collapse; font-family: monospace;'>
	<tr style='background:#333;color:#fff;'><th>Step</th><th>Result</th><th>Duration</th></tr>
	%s
	</table>
	<p>Full step log attached.</p>
	</body>
	</html>
	`, html.EscapeString(host), time.Now().Format("2006-01-02 15:04:05"), o.Job.JobID, statusLine, rows.String())

	return &mailer.Message{
		Subject:  fmt.Sprintf("Pool Backup %s - %s", status, host),
		HTMLBody: body,
		Attachments: []mailer.Attachment{
			{
				Filename: fmt.Sprintf("backup-%s.log", o.Job.JobID),
				Data:     []byte(o.StepLog()),
			},
		},
	}
}
