package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/themizzi/uiverify/internal/models"
	"github.com/themizzi/uiverify/internal/services"
)

// RunHistory prints the most recent runs to w
func RunHistory(service services.HistoryService, limit int, w io.Writer) error {
	runs, err := service.RecentRuns(limit)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded")
		return nil
	}
	return PrintRuns(w, runs)
}

// PrintRuns writes runs as an aligned table
func PrintRuns(w io.Writer, runs []*models.Run) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tSCENARIO\tENGINE\tSTATUS\tDURATION\tDETAIL")
	for _, run := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.ScenarioName,
			run.Engine,
			run.Status,
			run.Duration().Round(time.Millisecond),
			runDetail(run),
		)
	}
	return tw.Flush()
}

func runDetail(run *models.Run) string {
	if run.IsFailed() {
		// Keep each run on one row
		return strings.ReplaceAll(run.Error, "\n", " ")
	}
	return strings.Join(run.Artifacts, ", ")
}
