package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
	"github.com/taskora/event-delivery-service/internal/domain/model"
	"github.com/urfave/cli/v2"
)

// topCmd renders a live terminal view of a running instance's hub, polling
// its stats endpoint. Operator convenience only; nothing here touches
// delivery paths.
func topCmd() *cli.Command {
	return &cli.Command{
		Name:  "top",
		Usage: "Live view of hub connections on a running instance",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Base URL of the instance to watch",
				Value: "http://localhost:8081",
			},
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "Poll interval",
				Value: 2 * time.Second,
			},
		},
		Action: func(c *cli.Context) error {
			return runTop(c.String("addr"), c.Duration("interval"))
		},
	}
}

func runTop(addr string, interval time.Duration) error {
	if err := ui.Init(); err != nil {
		return fmt.Errorf("failed to initialize terminal ui: %w", err)
	}
	defer ui.Close()

	header := widgets.NewParagraph()
	header.Title = " event-delivery-service "

	users := widgets.NewList()
	users.Title = " connections per user "
	users.WrapText = false

	trend := widgets.NewSparkline()
	trend.LineColor = ui.ColorGreen
	trendGroup := widgets.NewSparklineGroup(trend)
	trendGroup.Title = " total connections "

	layout := func() {
		w, h := ui.TerminalDimensions()
		header.SetRect(0, 0, w, 3)
		users.SetRect(0, 3, w/2, h)
		trendGroup.SetRect(w/2, 3, w, h)
	}
	layout()

	const maxPoints = 120
	client := &http.Client{Timeout: interval}
	history := make([]float64, 0, maxPoints)

	redraw := func() {
		stats, err := fetchStats(client, addr)
		if err != nil {
			header.Text = fmt.Sprintf("unreachable: %v", err)
			ui.Render(header, users, trendGroup)
			return
		}

		header.Text = fmt.Sprintf("users: %d  connections: %d  uptime: %s",
			stats.TotalUsers, stats.TotalConnections, stats.Uptime.Truncate(time.Second))

		rows := make([]string, 0, len(stats.Users))
		for id, n := range stats.Users {
			rows = append(rows, fmt.Sprintf("%-24s %d", id, n))
		}
		sort.Strings(rows)
		users.Rows = rows

		history = append(history, float64(stats.TotalConnections))
		if len(history) > maxPoints {
			history = history[len(history)-maxPoints:]
		}
		trend.Data = history

		ui.Render(header, users, trendGroup)
	}
	redraw()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	events := ui.PollEvents()

	for {
		select {
		case e := <-events:
			switch e.ID {
			case "q", "<C-c>":
				return nil
			case "<Resize>":
				layout()
				ui.Clear()
				redraw()
			}
		case <-ticker.C:
			redraw()
		}
	}
}

func fetchStats(client *http.Client, addr string) (*model.HubStats, error) {
	resp, err := client.Get(addr + "/api/events/stats")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var stats model.HubStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
