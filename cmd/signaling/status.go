package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mossy-p/ptt-signaling/internal/models"
	"github.com/spf13/cobra"
)

var statusURL string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show connected security and management users of a running relay",
	RunE: func(cmd *cobra.Command, _ []string) error {
		status, err := fetchStatus(statusURL)
		if err != nil {
			return err
		}
		renderStatus(cmd.OutOrStdout(), status)
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVarP(&statusURL, "url", "u", "http://localhost:3000", "base URL of the relay")
}

func fetchStatus(baseURL string) (*models.StatusResponse, error) {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(strings.TrimRight(baseURL, "/") + "/api/status")
	if err != nil {
		return nil, fmt.Errorf("query relay: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("relay answered %s", resp.Status)
	}

	var status models.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return &status, nil
}

func renderStatus(w io.Writer, status *models.StatusResponse) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("relay " + status.Status)
	t.AppendHeader(table.Row{"Channel", "Connected"})
	t.AppendRows([]table.Row{
		{"security", strconv.Itoa(status.Security)},
		{"management", strconv.Itoa(status.Management)},
	})
	t.AppendFooter(table.Row{"registered", strconv.Itoa(status.Total)})
	t.SetStyle(table.StyleLight)
	t.Render()
}
