package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/ftahirops/circuittop/engine"
	"github.com/ftahirops/circuittop/model"
	"github.com/ftahirops/circuittop/ui"
)

// CheckStatus represents the severity of a doctor check result.
type CheckStatus int

const (
	CheckOK   CheckStatus = 0
	CheckWarn CheckStatus = 1
	CheckCrit CheckStatus = 2
	CheckSkip CheckStatus = 3
)

func (s CheckStatus) String() string {
	switch s {
	case CheckOK:
		return "OK"
	case CheckWarn:
		return "WARN"
	case CheckCrit:
		return "CRIT"
	case CheckSkip:
		return "SKIP"
	}
	return "UNKNOWN"
}

// MarshalJSON writes the status name.
func (s CheckStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// CheckResult holds the outcome of a single health check.
type CheckResult struct {
	Category string      `json:"category"`
	Name     string      `json:"name"`
	Status   CheckStatus `json:"status"`
	Detail   string      `json:"detail"`
	Advice   string      `json:"advice,omitempty"`
}

// DoctorReport holds the full health check output.
type DoctorReport struct {
	Timestamp   time.Time     `json:"timestamp"`
	Source      string        `json:"source"`
	Checks      []CheckResult `json:"checks"`
	WorstStatus CheckStatus   `json:"worst_status"`
}

// ExitCodeError signals a non-zero exit code without calling os.Exit directly.
type ExitCodeError struct{ Code int }

func (e ExitCodeError) Error() string { return fmt.Sprintf("exit %d", e.Code) }

// Battery thresholds in percent.
const (
	tBatteryWarn = 30.0
	tBatteryCrit = 15.0
)

// runDoctor checks the configuration, the endpoint and the circuits it
// reports, then prints the report.
func runDoctor(ctx context.Context, a *app, w io.Writer, jsonMode bool) error {
	report := DoctorReport{
		Timestamp: time.Now(),
		Source:    a.sourceLabel(),
	}

	report.Checks = append(report.Checks, checkConfig(a)...)
	ds, endpoint := checkEndpoint(ctx, a)
	report.Checks = append(report.Checks, endpoint...)
	report.Checks = append(report.Checks, checkCircuits(ds)...)
	report.Checks = append(report.Checks, checkAlerts(a)...)
	report.Checks = append(report.Checks, checkEventLog(a)...)

	for _, c := range report.Checks {
		if c.Status < CheckSkip && c.Status > report.WorstStatus {
			report.WorstStatus = c.Status
		}
	}

	if jsonMode {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		renderDoctorCLI(w, report)
	}

	if report.WorstStatus == CheckCrit {
		return ExitCodeError{Code: 2}
	}
	if report.WorstStatus == CheckWarn {
		return ExitCodeError{Code: 1}
	}
	return nil
}

func checkConfig(a *app) []CheckResult {
	var out []CheckResult
	if a.cfg.LogPath == "" {
		out = append(out, CheckResult{
			Category: "Config", Name: "Logging", Status: CheckSkip,
			Detail: "disabled", Advice: "set log_path or pass -log to keep a poll log",
		})
	} else {
		out = append(out, CheckResult{
			Category: "Config", Name: "Logging", Status: CheckOK,
			Detail: fmt.Sprintf("%s (%s)", a.cfg.LogPath, a.cfg.LogLevel),
		})
	}

	interval := a.cfg.Interval()
	c := CheckResult{Category: "Config", Name: "Poll interval", Status: CheckOK,
		Detail: fmt.Sprintf("%s, timeout %s", interval, a.cfg.Timeout())}
	if a.cfg.Timeout() == 0 {
		c.Status = CheckWarn
		c.Detail = fmt.Sprintf("%s, no timeout", interval)
		c.Advice = "a hung server stalls every later poll; set timeout_sec"
	}
	return append(out, c)
}

// checkEndpoint collects once straight from the source so the real error is
// visible instead of the fallback.
func checkEndpoint(ctx context.Context, a *app) (model.Dataset, []CheckResult) {
	start := time.Now()
	ds, err := a.source.Collect(ctx)
	took := time.Since(start).Round(time.Millisecond)

	reach := CheckResult{Category: "Endpoint", Name: "Poll", Status: CheckOK,
		Detail: fmt.Sprintf("%s answered in %s", a.sourceLabel(), took)}
	payload := CheckResult{Category: "Endpoint", Name: "Payload", Status: CheckOK,
		Detail: fmt.Sprintf("%d circuits", len(ds))}

	switch {
	case err == nil:
		if len(ds) == 0 {
			payload.Status = CheckWarn
			payload.Advice = "the server reports no circuits yet"
		}
	case errors.Is(err, model.ErrMalformedPayload) || errors.Is(err, model.ErrMissingField):
		payload.Status = CheckCrit
		payload.Detail = err.Error()
		payload.Advice = "the dashboard will show testing data until the payload is fixed"
	default:
		reach.Status = CheckCrit
		reach.Detail = err.Error()
		reach.Advice = "check base_url and that the web server is running"
		payload.Status = CheckSkip
		payload.Detail = "no response"
	}

	reset := CheckResult{Category: "Endpoint", Name: "Reset", Status: CheckOK,
		Detail: a.cfg.ResetPath + "?circuit=<id>&action=reset"}
	if a.resetter == nil {
		reset.Status = CheckSkip
		reset.Detail = "not available for " + a.source.Name() + " sources"
	}
	return ds, []CheckResult{reach, payload, reset}
}

func checkCircuits(ds model.Dataset) []CheckResult {
	if len(ds) == 0 {
		return []CheckResult{{Category: "Circuits", Name: "Circuits", Status: CheckSkip, Detail: "no data"}}
	}
	var out []CheckResult
	for _, e := range ds {
		r := e.Record
		name := "Circuit " + string(r.CircuitID)
		c := CheckResult{Category: "Circuits", Name: name, Status: CheckOK,
			Detail: fmt.Sprintf("%s of %s used, battery %s",
				ui.FormatMW(r.PowerConsumed), ui.FormatMW(r.PowerCapacity), ui.FormatPercent(r.BatteryPercent))}
		switch {
		case r.FuseTriggered:
			c.Status = CheckCrit
			c.Detail = "fuse tripped, " + c.Detail
			c.Advice = "reduce load, then reset the circuit"
		case r.PowerCapacity > 0 && r.PowerConsumed > r.PowerCapacity:
			c.Status = CheckWarn
			c.Detail = "over capacity, " + c.Detail
			c.Advice = "running on battery; time to empty " + string(r.BatteryTimeEmpty)
		case r.BatteryCapacity > 0 && r.BatteryPercent < tBatteryCrit:
			c.Status = CheckCrit
			c.Advice = "battery nearly empty"
		case r.BatteryCapacity > 0 && r.BatteryPercent < tBatteryWarn:
			c.Status = CheckWarn
			c.Advice = "battery low"
		}
		out = append(out, c)
	}
	return out
}

func checkAlerts(a *app) []CheckResult {
	var out []CheckResult
	if hook := a.cfg.Alerts.Webhook; hook != "" {
		c := CheckResult{Category: "Alerts", Name: "Webhook", Status: CheckOK, Detail: hook}
		if err := engine.ValidateWebhookURL(hook); err != nil {
			c.Status = CheckCrit
			c.Detail = err.Error()
			c.Advice = "alerts.webhook must be a public http(s) URL"
		}
		out = append(out, c)
	}
	if command := a.cfg.Alerts.Command; command != "" {
		c := CheckResult{Category: "Alerts", Name: "Command", Status: CheckOK, Detail: command}
		fields := strings.Fields(command)
		switch {
		case len(fields) == 0:
			c.Status = CheckWarn
			c.Detail = "empty command"
			c.Advice = "alerts.command is blank; remove it or name a program"
		default:
			if _, err := exec.LookPath(fields[0]); err != nil {
				c.Status = CheckWarn
				c.Detail = fmt.Sprintf("%s not found in PATH", fields[0])
			}
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		out = append(out, CheckResult{Category: "Alerts", Name: "Notifications", Status: CheckSkip,
			Detail: "none configured", Advice: "set alerts.webhook or alerts.command"})
	}
	return out
}

// checkEventLog summarizes the recorded fuse trips.
func checkEventLog(a *app) []CheckResult {
	if a.cfg.EventLog == "" {
		return nil
	}
	c := CheckResult{Category: "Alerts", Name: "Fuse log", Status: CheckOK}
	events, err := engine.ReadEventLog(a.cfg.EventLog)
	if err != nil {
		c.Status = CheckWarn
		c.Detail = err.Error()
		return []CheckResult{c}
	}
	trips := 0
	var last engine.FuseEvent
	for _, ev := range events {
		if ev.Active {
			trips++
			last = ev
		}
	}
	c.Detail = fmt.Sprintf("%d trips recorded", trips)
	if trips > 0 {
		c.Detail += fmt.Sprintf(", last on circuit %s at %s", last.Circuit, last.StartTime.Format(time.RFC3339))
	}
	return []CheckResult{c}
}

func renderDoctorCLI(w io.Writer, report DoctorReport) {
	// Title bar
	ts := report.Timestamp.Format("2006-01-02 15:04:05")
	fmt.Fprintf(w, "\n %s%s circuittop doctor v%s %s  %s%s%s  %s%s%s\n\n",
		B, BBlu+FBWht, Version, R,
		B, report.Source, R,
		D, ts, R)

	const nameW = 22 // fixed-width name column

	lastCategory := ""
	for _, c := range report.Checks {
		if c.Category != lastCategory {
			fmt.Fprintln(w, titleLine(c.Category))
			lastCategory = c.Category
		}

		var icon string
		switch c.Status {
		case CheckOK:
			icon = fmt.Sprintf("%s✓%s", FBGrn, R)
		case CheckWarn:
			icon = fmt.Sprintf("%s⚠%s", FBYel, R)
		case CheckCrit:
			icon = fmt.Sprintf("%s%s✗%s", B, FBRed, R)
		case CheckSkip:
			icon = fmt.Sprintf("%s○%s", D, R)
		}

		fmt.Fprintf(w, " %s %s%s%s  %s\n", icon, B, padName(c.Name, nameW), R, c.Detail)
		if c.Advice != "" {
			indent := strings.Repeat(" ", nameW+5)
			fmt.Fprintf(w, "%s%s→ %s%s\n", indent, D, c.Advice, R)
		}
	}

	// Summary footer
	fmt.Fprintln(w)
	fmt.Fprintln(w, hr())
	switch report.WorstStatus {
	case CheckOK:
		fmt.Fprintf(w, " %s%s✓ All checks passed%s\n", B, FBGrn, R)
	case CheckWarn:
		fmt.Fprintf(w, " %s%s⚠ Some warnings detected%s\n", B, FBYel, R)
	case CheckCrit:
		fmt.Fprintf(w, " %s%s✗ Critical issues found%s\n", B, FBRed, R)
	}
	fmt.Fprintln(w)
}

func padName(name string, width int) string {
	runes := []rune(name)
	if len(runes) > width {
		return string(runes[:width])
	}
	return name + strings.Repeat(" ", width-len(runes))
}

func titleLine(t string) string {
	pad := 78 - len(t) - 2
	if pad < 0 {
		pad = 0
	}
	return fmt.Sprintf("%s%s== %s %s%s", B, FCyn, t, strings.Repeat("=", pad), R)
}
