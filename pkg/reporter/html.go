package reporter

import (
	"fmt"
	"html/template"
	"io"
	"strings"
)

const htmlTemplate = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>PostgreSQL CPU Metrics - {{.Target}} ({{.Region}})</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            background: #f5f7fa;
            color: #333;
            padding: 20px;
            line-height: 1.6;
        }
        .container {
            max-width: 1400px;
            margin: 0 auto;
            background: white;
            border-radius: 8px;
            box-shadow: 0 2px 8px rgba(0, 0, 0, 0.1);
            overflow: hidden;
        }
        .header {
            background: linear-gradient(135deg, #2f5d8a 0%, #16324f 100%);
            color: white;
            padding: 40px;
        }
        .header h1 { font-size: 2.4em; margin-bottom: 10px; }
        .header .meta { opacity: 0.95; font-size: 1.05em; }
        .summary {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(200px, 1fr));
            gap: 20px;
            padding: 40px;
            background: linear-gradient(to bottom, #f8f9fa 0%, #fff 100%);
        }
        .summary-card {
            background: white;
            padding: 25px;
            border-radius: 12px;
            border: 2px solid #e8eaed;
            border-left: 6px solid #2f5d8a;
        }
        .summary-card h3 {
            color: #5f6368;
            font-size: 0.8em;
            text-transform: uppercase;
            letter-spacing: 1.5px;
            margin-bottom: 12px;
        }
        .summary-card .value { font-size: 2.6em; font-weight: 700; color: #202124; line-height: 1; }
        .summary-card.skipped { border-left-color: #d93025; }
        .section { padding: 40px; }
        .section h2 { font-size: 1.8em; margin-bottom: 25px; color: #202124; }
        .stats-grid {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(300px, 1fr));
            gap: 25px;
        }
        .stat-card { padding: 25px; border-radius: 10px; border: 1px solid #e8eaed; }
        .stat-card h4 { font-size: 1.3em; margin-bottom: 15px; }
        .stat-row { display: flex; justify-content: space-between; padding: 10px 0; border-bottom: 1px solid #f0f2f4; }
        .stat-row:last-child { border-bottom: none; }
        .stat-label { color: #5f6368; font-weight: 500; }
        .stat-value { font-weight: 700; color: #202124; }
        table { width: 100%; border-collapse: collapse; margin-top: 15px; }
        th {
            background: #2f5d8a;
            color: white;
            padding: 14px 12px;
            text-align: left;
            font-size: 0.85em;
            text-transform: uppercase;
            letter-spacing: 0.5px;
        }
        td { padding: 14px 12px; border-bottom: 1px solid #f0f2f4; }
        tbody tr:hover { background: #f8f9fa; }
        .badge {
            padding: 5px 12px;
            border-radius: 6px;
            font-size: 0.75em;
            font-weight: 700;
            text-transform: uppercase;
            display: inline-block;
            background: #f1f3f4;
            color: #5f6368;
        }
        .pattern-consistent { background: #e6f4ea; color: #1e8e3e; }
        .pattern-outliers { background: #fce8e6; color: #d93025; }
        .pattern-peaks-and-valleys { background: #fef7e0; color: #f9ab00; }
        .pattern-random { background: #e8f0fe; color: #1a73e8; }
        .footer { background: #202124; color: #9aa0a6; padding: 30px; text-align: center; }
        .footer strong { color: #fff; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>PostgreSQL CPU Metrics</h1>
            <div class="meta">
                <p><strong>Target:</strong> {{.Target}} | <strong>Region:</strong> {{.Region}} | <strong>Account:</strong> {{.AccountID}}</p>
                <p><strong>Sample period:</strong> {{.SamplePeriodDays}} days | <strong>Run:</strong> {{.RunID}}</p>
                <p><strong>Generated:</strong> {{.GeneratedAt.Format "January 2, 2006 15:04:05 MST"}}</p>
            </div>
        </div>

        <div class="summary">
            <div class="summary-card"><h3>Clusters</h3><div class="value">{{.Clusters}}</div></div>
            <div class="summary-card"><h3>Aurora Instances</h3><div class="value">{{.AuroraInstances}}</div></div>
            <div class="summary-card"><h3>RDS Instances</h3><div class="value">{{.RDSInstances}}</div></div>
            <div class="summary-card"><h3>Serverless</h3><div class="value">{{.ServerlessInstances}}</div></div>
            <div class="summary-card skipped"><h3>Skipped Units</h3><div class="value">{{len .Skipped}}</div></div>
        </div>

        {{if .PlatformStats}}
        <div class="section">
            <h2>By Platform</h2>
            <div class="stats-grid">
                {{range .SortedPlatformStats}}
                <div class="stat-card">
                    <h4>{{.Platform}}</h4>
                    <div class="stat-row"><span class="stat-label">Instances</span><span class="stat-value">{{.Instances}}</span></div>
                    <div class="stat-row"><span class="stat-label">Serverless</span><span class="stat-value">{{.Serverless}}</span></div>
                    <div class="stat-row"><span class="stat-label">On-Demand Monthly</span><span class="stat-value">${{printf "%.2f" .OnDemandMonthly}}</span></div>
                </div>
                {{end}}
            </div>
        </div>
        {{end}}

        <div class="section">
            <h2>Instances</h2>
            <table>
                <thead>
                    <tr>
                        <th>Instance</th>
                        <th>Class</th>
                        <th>Deployment</th>
                        <th>Hours With Data</th>
                        <th>Peak P95 CPU</th>
                        <th>Peak Adjusted ACU</th>
                        <th>On-Demand/Month</th>
                        <th>Usage Pattern</th>
                    </tr>
                </thead>
                <tbody>
                    {{range .Instances}}
                    <tr>
                        <td><strong>{{.ClusterIdentifier}}/{{.InstanceIdentifier}}</strong><br>{{.PlatformType}}</td>
                        <td>{{.InstanceClass}}</td>
                        <td>{{.DeploymentOption}}</td>
                        <td>{{.ObservedHours}}/24</td>
                        <td>{{optional .PeakP95CPU "%.2f%%"}}</td>
                        <td>{{optional .PeakAdjustedACU "%.1f"}}</td>
                        <td>{{optional .OnDemandMonthly "$%.2f"}}</td>
                        <td>{{if .UsagePattern}}<span class="badge pattern-{{slug .UsagePattern}}">{{.UsagePattern}}</span>{{end}}</td>
                    </tr>
                    {{end}}
                </tbody>
            </table>
        </div>

        {{if .Skipped}}
        <div class="section">
            <h2>Skipped</h2>
            <table>
                <thead><tr><th>Cluster</th><th>Instance</th><th>Stage</th><th>Reason</th></tr></thead>
                <tbody>
                    {{range .Skipped}}
                    <tr><td>{{.ClusterIdentifier}}</td><td>{{.InstanceIdentifier}}</td><td>{{.Skip.Stage}}</td><td>{{.Skip.Err}}</td></tr>
                    {{end}}
                </tbody>
            </table>
        </div>
        {{end}}

        <div class="footer">
            <p>Generated by <strong>rds-metrics-collector</strong></p>
        </div>
    </div>
</body>
</html>
`

// GenerateHTML renders the run summary page
func GenerateHTML(report *Report, writer io.Writer) error {
	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"slug": func(s string) string {
			return strings.ReplaceAll(strings.ToLower(s), " ", "-")
		},
		"optional": func(v *float64, format string) string {
			if v == nil {
				return "n/a"
			}
			return fmt.Sprintf(format, *v)
		},
	}).Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	if err := tmpl.Execute(writer, report); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}
	return nil
}
