// Package viewmodels turns a report into a human-readable terminal summary.
package viewmodels

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"recmon/internal/recmon"
)

var (
	colorRed    = lipgloss.Color("#FF0000")
	colorGreen  = lipgloss.Color("#00FF00")
	colorYellow = lipgloss.Color("#FFFF00")
	colorCyan   = lipgloss.Color("#00FFFF")
	colorGray   = lipgloss.Color("#666666")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan)

	dateStyle = lipgloss.NewStyle().
			Foreground(colorCyan)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	okStyle = lipgloss.NewStyle().
		Foreground(colorGreen).
		Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(colorYellow).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)
)

// DaySegments is the offline segments of one date.
type DaySegments struct {
	Date     string
	Segments []recmon.OfflineSegment
}

// Summary is the view model of a report.
type Summary struct {
	BoardID       string
	Status        recmon.Status
	StatusEmoji   string
	StatusMessage string
	LastSeen      string
	Latest        string
	Storage       string
	Days          []DaySegments
	TotalVideos   int
	TotalSegments int
	TotalMinutes  float64
}

// BuildSummary creates the view model for a report. Days are sorted by date.
func BuildSummary(r *recmon.Report) *Summary {
	s := &Summary{
		BoardID:       r.BoardID,
		Status:        r.CameraStatus,
		StatusMessage: r.StatusMessage,
		TotalVideos:   r.TotalVideos,
		TotalSegments: r.TotalOfflineSegments,
		TotalMinutes:  r.TotalOfflineMinutes,
	}

	switch r.CameraStatus {
	case recmon.StatusRecording:
		s.StatusEmoji = "🟢"
	case recmon.StatusFinishing:
		s.StatusEmoji = "🟡"
	case recmon.StatusOffline:
		s.StatusEmoji = "🔴"
	default:
		s.StatusEmoji = "⚪"
	}

	if r.MinutesSinceLast != nil {
		s.LastSeen = fmt.Sprintf("%d minutes ago", *r.MinutesSinceLast)
	}

	if lr := r.LatestRecording; lr != nil {
		s.Latest = fmt.Sprintf("%s (%s)", lr.Filename, lr.Timestamp)
		if lr.SizeBytes != nil && *lr.SizeBytes >= 0 {
			s.Latest = fmt.Sprintf("%s (%s, %s)", lr.Filename, lr.Timestamp, humanize.IBytes(uint64(*lr.SizeBytes)))
		}
	}

	if st := r.Storage; st != nil {
		s.Storage = fmt.Sprintf("%s free of %s (%.1f%% used)",
			humanize.IBytes(st.FreeBytes), humanize.IBytes(st.TotalBytes), st.UsedPercent)
	}

	dates := make([]string, 0, len(r.OfflineSegments))
	for date := range r.OfflineSegments {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	for _, date := range dates {
		s.Days = append(s.Days, DaySegments{Date: date, Segments: r.OfflineSegments[date]})
	}

	return s
}

// Render formats the summary for a terminal. Styling degrades to plain
// text when stdout is not a color terminal.
func (s *Summary) Render() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("RECORDINGS SUMMARY"))
	if s.BoardID != "" {
		b.WriteString(dimStyle.Render(" board " + s.BoardID))
	}
	b.WriteString("\n\n")

	if len(s.Days) == 0 {
		b.WriteString(okStyle.Render("✅ No offline segments detected"))
		b.WriteString("\n")
	} else {
		b.WriteString(warnStyle.Render("⚠️ OFFLINE SEGMENTS DETECTED:"))
		b.WriteString("\n")
		for _, day := range s.Days {
			b.WriteString("\n  " + dateStyle.Render("📅 "+day.Date+":") + "\n")
			for _, seg := range day.Segments {
				fmt.Fprintf(&b, "    • %s → %s %s\n", seg.Start, seg.End,
					dimStyle.Render("("+humanize.Ftoa(seg.Minutes())+" min)"))
			}
		}
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "📊 Camera Status: %s %s\n", s.StatusEmoji, statusStyle(s.Status).Render(string(s.Status)))
	fmt.Fprintf(&b, "   %s\n", s.StatusMessage)
	if s.LastSeen != "" {
		fmt.Fprintf(&b, "   Last recording %s\n", s.LastSeen)
	}
	if s.Latest != "" {
		fmt.Fprintf(&b, "   Latest: %s\n", s.Latest)
	}

	b.WriteString("\n📈 Statistics:\n")
	fmt.Fprintf(&b, "   Total videos: %s\n", humanize.Comma(int64(s.TotalVideos)))
	fmt.Fprintf(&b, "   Offline segments: %d\n", s.TotalSegments)
	fmt.Fprintf(&b, "   Total offline time: %s minutes\n", humanize.Ftoa(s.TotalMinutes))
	if s.Storage != "" {
		fmt.Fprintf(&b, "   Storage: %s\n", s.Storage)
	}

	return b.String()
}

func statusStyle(st recmon.Status) lipgloss.Style {
	switch st {
	case recmon.StatusRecording:
		return okStyle
	case recmon.StatusFinishing:
		return warnStyle
	case recmon.StatusOffline:
		return errorStyle
	default:
		return dimStyle
	}
}
