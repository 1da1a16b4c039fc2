package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/ftahirops/circuittop/engine"
	"github.com/ftahirops/circuittop/model"
)

func TestWriteSummary(t *testing.T) {
	at := time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)
	ds := model.NewDataset(
		model.CircuitRecord{CircuitID: "1", PowerCapacity: 100, PowerProduction: 80, PowerConsumed: 60.4, BatteryPercent: 40},
		model.CircuitRecord{CircuitID: "2", PowerCapacity: 50, PowerProduction: 20, PowerConsumed: 10, BatteryPercent: 61, FuseTriggered: true},
	)

	var buf bytes.Buffer
	writeSummary(&buf, engine.PollResult{At: at, Fallback: true}, ds)
	got := buf.String()

	for _, want := range []string{"[15:04:05]", "FALLBACK", "circuits=2", "cap=150MW", "prod=100MW", "used=70MW", "battery=50.5%", "fuses=1"} {
		if !strings.Contains(got, want) {
			t.Errorf("summary %q missing %q", got, want)
		}
	}
}

func TestWriteSummary_Empty(t *testing.T) {
	var buf bytes.Buffer
	writeSummary(&buf, engine.PollResult{At: time.Now()}, model.Dataset{})
	if !strings.Contains(buf.String(), "LIVE") || !strings.Contains(buf.String(), "circuits=0") {
		t.Errorf("unexpected summary %q", buf.String())
	}
}

func TestWriteEvent(t *testing.T) {
	start := time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)
	ev := engine.FuseEvent{Circuit: "3", StartTime: start, PeakConsumed: 60, Capacity: 50, Active: true}

	var buf bytes.Buffer
	writeEvent(&buf, ev)
	if got := buf.String(); !strings.Contains(got, "[15:04:05]") || !strings.Contains(got, "Circuit 3 fuse tripped") {
		t.Errorf("unexpected trip line %q", got)
	}

	buf.Reset()
	ev.Active = false
	ev.EndTime = start.Add(time.Minute)
	ev.Duration = 60
	writeEvent(&buf, ev)
	if got := buf.String(); !strings.Contains(got, "[15:05:05]") || !strings.Contains(got, "cleared after 60s") {
		t.Errorf("unexpected clear line %q", got)
	}
}
