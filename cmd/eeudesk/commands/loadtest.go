package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/spf13/cobra"
	vegeta "github.com/tsenart/vegeta/v12/lib"
)

var complaintCategories = []string{"power_outage", "billing", "meter_fault", "new_connection", "voltage_fluctuation"}

func (c *CLI) newLoadtestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Hammer a running agent API with complaint reads and writes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			target, _ := cmd.Flags().GetString("target")
			freq, _ := cmd.Flags().GetInt("rate")
			duration, _ := cmd.Flags().GetDuration("duration")
			writeEvery, _ := cmd.Flags().GetInt("write-every")

			rate := vegeta.Rate{Freq: freq, Per: time.Second}
			attacker := vegeta.NewAttacker()

			var metrics vegeta.Metrics
			for res := range attacker.Attack(complaintTargeter(target, writeEvery), rate, duration, "eeudesk") {
				metrics.Add(res)
			}
			metrics.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "99th percentile: %s\n", metrics.Latencies.P99)
			fmt.Fprintf(out, "95th percentile: %s\n", metrics.Latencies.P95)
			fmt.Fprintf(out, "Mean: %s\n", metrics.Latencies.Mean)
			fmt.Fprintf(out, "Requests per second: %.2f\n", metrics.Rate)
			fmt.Fprintf(out, "Success ratio: %.2f%%\n", metrics.Success*100)
			fmt.Fprintf(out, "Status codes: %v\n", metrics.StatusCodes)

			return vegeta.NewTextReporter(&metrics).Report(out)
		},
	}

	cmd.Flags().String("target", "http://localhost:8080", "Agent API base URL")
	cmd.Flags().Int("rate", 50, "Requests per second")
	cmd.Flags().Duration("duration", 30*time.Second, "Attack duration")
	cmd.Flags().Int("write-every", 4, "Send one optimistic complaint create every N requests; 0 reads only")
	return cmd
}

// complaintTargeter mostly lists complaints, which the agent serves from
// cache, and periodically creates one with fake data.
func complaintTargeter(baseURL string, writeEvery int) vegeta.Targeter {
	baseURL = strings.TrimRight(baseURL, "/")
	var n atomic.Int64

	return func(tgt *vegeta.Target) error {
		i := n.Add(1)

		if writeEvery <= 0 || i%int64(writeEvery) != 0 {
			tgt.Method = http.MethodGet
			tgt.URL = baseURL + "/api/complaints?status=open"
			tgt.Body = nil
			tgt.Header = nil
			return nil
		}

		body, err := json.Marshal(map[string]any{
			"customerName":  gofakeit.Name(),
			"phone":         gofakeit.Phone(),
			"accountNumber": gofakeit.DigitN(10),
			"region":        gofakeit.City(),
			"category":      gofakeit.RandomString(complaintCategories),
			"description":   gofakeit.Sentence(12),
		})
		if err != nil {
			return err
		}

		tgt.Method = http.MethodPost
		tgt.URL = baseURL + "/api/complaints?optimistic=true"
		tgt.Body = body
		tgt.Header = http.Header{"Content-Type": {"application/json"}}
		return nil
	}
}
