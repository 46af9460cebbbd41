package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/loadline/barrage/internal/report"
	"github.com/loadline/barrage/internal/threshold"
)

const barWidth = 40

// Report is everything printed at the end of a run.
type Report struct {
	Summary    report.Summary     `json:"summary" yaml:"summary"`
	Thresholds []threshold.Result `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`
}

// PrintReport outputs a human-readable summary report.
func PrintReport(w io.Writer, rep Report, p *Palette) {
	if p == nil {
		p = NewPalette(false)
	}
	s := rep.Summary

	fmt.Fprintln(w)
	p.Heading.Fprintln(w, "Summary:")
	row(w, p, "Target", fmt.Sprintf("%s %s", s.Method, s.URL))
	row(w, p, "Concurrency", fmt.Sprintf("%d", s.Concurrency))
	row(w, p, "Total", secs(s.Elapsed))
	if s.StopReason != "" {
		row(w, p, "Stopped by", s.StopReason)
	}
	if s.NoData {
		fmt.Fprintln(w)
		p.Warn.Fprintln(w, "No requests completed.")
		printThresholds(w, rep.Thresholds, p)
		return
	}
	row(w, p, "Requests", fmt.Sprintf("%d (%d ok, %d failed)", s.Total, s.Successful, s.Failed))
	successRate := float64(s.Successful) / float64(s.Total) * 100
	rate := p.OK
	if s.Failed > 0 {
		rate = p.Warn
	}
	row(w, p, "Success rate", rate.Sprintf("%.2f%%", successRate))
	if s.Successful > 0 {
		row(w, p, "Slowest", secs(s.Latency.Max))
		row(w, p, "Fastest", secs(s.Latency.Min))
		row(w, p, "Average", secs(s.Latency.Mean))
		row(w, p, "Std dev", secs(s.Latency.StdDev))
	}
	row(w, p, "Requests/sec", fmt.Sprintf("%.4f", s.RequestsPerSec))
	if s.TotalBytes > 0 {
		row(w, p, "Total data", fmt.Sprintf("%d bytes", s.TotalBytes))
		row(w, p, "Size/response", fmt.Sprintf("%.0f bytes", s.AvgBytesPerResp))
		row(w, p, "Bytes/sec", fmt.Sprintf("%.0f", s.BytesPerSec))
	}

	if len(s.Histogram) > 0 {
		fmt.Fprintln(w)
		p.Heading.Fprintln(w, "Response time histogram:")
		printHistogram(w, s.Histogram, p)
	}

	if len(s.Distribution) > 0 {
		fmt.Fprintln(w)
		p.Heading.Fprintln(w, "Latency distribution:")
		for _, d := range s.Distribution {
			fmt.Fprintf(w, "  %6.2f%% in %s\n", d.Quantile*100, secs(d.Latency))
		}
	}

	if rows := s.StatusRows(); len(rows) > 0 {
		fmt.Fprintln(w)
		p.Heading.Fprintln(w, "Status code distribution:")
		for _, r := range rows {
			fmt.Fprintf(w, "  %s\t%d responses\n", p.status(r.Code).Sprintf("[%d]", r.Code), r.Count)
		}
	}

	if rows := s.ErrorRows(); len(rows) > 0 {
		fmt.Fprintln(w)
		p.Heading.Fprintln(w, "Error distribution:")
		for _, r := range rows {
			fmt.Fprintf(w, "  %s\t%s\n", p.Error.Sprintf("[%d]", r.Count), r.Message)
		}
	}

	printThresholds(w, rep.Thresholds, p)
}

func printHistogram(w io.Writer, buckets []report.Bucket, p *Palette) {
	var peak int64
	for _, b := range buckets {
		if b.Count > peak {
			peak = b.Count
		}
	}
	for _, b := range buckets {
		width := 0
		if peak > 0 {
			width = int(b.Count * barWidth / peak)
		}
		fmt.Fprintf(w, "  %s [%d]\t|%s\n", secs(b.Mark), b.Count, p.Bar.Sprint(strings.Repeat("■", width)))
	}
}

func printThresholds(w io.Writer, results []threshold.Result, p *Palette) {
	if len(results) == 0 {
		return
	}
	fmt.Fprintln(w)
	p.Heading.Fprintln(w, "Thresholds:")
	for _, r := range results {
		c := p.OK
		if !r.Pass {
			c = p.Error
		}
		fmt.Fprintf(w, "  %s\n", c.Sprint(r.Message))
	}
}

func row(w io.Writer, p *Palette, label, value string) {
	fmt.Fprintf(w, "  %s %s\n", p.Label.Sprintf("%-14s", label+":"), value)
}

func secs(d time.Duration) string {
	return fmt.Sprintf("%.4f secs", d.Seconds())
}
