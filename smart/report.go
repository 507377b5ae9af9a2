package smart

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/mbeisser1/homelab/mailer"
)

// attrOrDash returns the attribute value or a dash placeholder
func attrOrDash(report DriveReport, key string) string {
	if value, ok := report.Attrs[key]; ok && value != "" {
		return value
	}
	return "-"
}

// BuildHTMLTable renders the per-drive attribute table with alert colouring
func BuildHTMLTable(reports []DriveReport) string {
	headers := append([]string{"Drive", "Model"}, AttrOrder...)

	var sb strings.Builder
	sb.WriteString("<table border='1' cellpadding='6' cellspacing='0' style='border-collapse: collapse; font-family: monospace;'>\n")
	sb.WriteString("<tr style='background:#333;color:#fff;'>")
	for _, header := range headers {
		fmt.Fprintf(&sb, "<th>%s</th>", header)
	}
	sb.WriteString("</tr>\n")

	alertCols := map[string]bool{"Realloc": true, "Pending": true, "Uncorr": true, "Reported": true, "CRC": true}

	for _, report := range reports {
		sb.WriteString("<tr>")
		for _, header := range headers {
			var value string
			switch header {
			case "Drive":
				value = report.Name
			case "Model":
				value = report.Model
			default:
				value = attrOrDash(report, header)
			}
			escaped := html.EscapeString(value)

			n, numeric := 0, false
			if parsed, err := strconv.Atoi(value); err == nil {
				n, numeric = parsed, true
			}

			switch {
			// highlight alert fields
			case alertCols[header] && numeric && n > 0:
				fmt.Fprintf(&sb, "<td style='color:red;font-weight:bold;'>%s</td>", escaped)
			case header == "Temp" && numeric && n >= 50:
				fmt.Fprintf(&sb, "<td style='color:red;font-weight:bold;'>%s</td>", escaped)
			case header == "Temp" && numeric && n >= 40:
				fmt.Fprintf(&sb, "<td style='color:orange;'>%s</td>", escaped)
			default:
				fmt.Fprintf(&sb, "<td>%s</td>", escaped)
			}
		}
		sb.WriteString("</tr>\n")
	}
	sb.WriteString("</table>")
	return sb.String()
}

// BuildSummary renders the short per-drive bullet list
func BuildSummary(reports []DriveReport) string {
	var sb strings.Builder
	sb.WriteString("<h3>Drive Summary</h3><ul>")
	for _, report := range reports {
		fmt.Fprintf(&sb, "<li><b>%s (%s):</b> ", html.EscapeString(report.Name), html.EscapeString(report.Model))
		if report.Err != nil {
			fmt.Fprintf(&sb, "smartctl failed: %s</li>", html.EscapeString(report.Err.Error()))
			continue
		}
		fmt.Fprintf(&sb, "Realloc=%s, Pending=%s, Uncorr=%s, Reported=%s, CRC=%s, Temp=%s&deg;C, POH=%s</li>",
			attrOrDash(report, "Realloc"),
			attrOrDash(report, "Pending"),
			attrOrDash(report, "Uncorr"),
			attrOrDash(report, "Reported"),
			attrOrDash(report, "CRC"),
			attrOrDash(report, "Temp"),
			attrOrDash(report, "POH"))
	}
	sb.WriteString("</ul>")
	return sb.String()
}

// BuildMail assembles the full report mail with raw output attached
func BuildMail(host string, reports []DriveReport) *mailer.Message {
	overallOK := true
	var raw strings.Builder
	for _, report := range reports {
		if report.HasAlert() {
			overallOK = false
		}
		fmt.Fprintf(&raw, "=== RAW SMART OUTPUT for %s (%s) ===\n", report.Device, report.Model)
		if report.Err != nil {
			fmt.Fprintf(&raw, "error: %v\n", report.Err)
		}
		raw.WriteString(report.Raw)
		raw.WriteString("\n\n")
	}

	status := "OK"
	statusLine := "<span style='color:green'>All drives healthy</span>"
	if !overallOK {
		status = "ALERT"
		statusLine = "<span style='color:red'>Issues detected!</span>"
	}

	body := fmt.Sprintf(`
	<html>
	<body style="font-family: Arial, sans-serif;">
	<h2>SMART Health Report</h2>
	<p><b>Host:</b> %s<br>
	   <b>Date:</b> %s<br>
	   <b>Status:</b> %s</p>
	%s
	%s
	</body>
	</html>
	`, html.EscapeString(host), time.Now().Format("2006-01-02 15:04:05"), statusLine, BuildSummary(reports), BuildHTMLTable(reports))

	return &mailer.Message{
		Subject:  fmt.Sprintf("SMART Report %s - %s", status, host),
		HTMLBody: body,
		Attachments: []mailer.Attachment{
			{
				Filename: "smart-raw.txt",
				Data:     []byte(raw.String()),
			},
		},
	}
}
