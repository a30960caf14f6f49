// Package cmdlistjobs implements the "list-jobs" command, rendering the
// spool's current contents as a table with pterm, the way the original
// codebase pulled in pterm for its own CLI output.
package cmdlistjobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pterm/pterm"

	"github.com/rrohitkmr/vprinter/cmd/vprinter/internal/adminclient"
	"github.com/rrohitkmr/vprinter/cmd/vprinter/internal/cfg"
	"github.com/rrohitkmr/vprinter/cmd/vprinter/internal/golang/base"
)

var CmdListJobs = &base.Command{
	Run:       runListJobs,
	UsageLine: "vprinter list-jobs",
	Short:     "list jobs currently held in the spool",
	Long: `
List-jobs prints a table of every job the printer at -admin-addr
currently holds: its id, name, state, submission time, and size.
`,
}

// job mirrors the subset of jobsvc.Job's exported fields the /admin/jobs
// endpoint serializes that are worth a table column; state arrives as its
// underlying RFC 2911 integer since jobsvc.JobState has no MarshalJSON.
type job struct {
	ID             int64     `json:"ID"`
	Name           string    `json:"Name"`
	State          int32     `json:"State"`
	SubmissionTime time.Time `json:"SubmissionTime"`
	Size           int64     `json:"Size"`
}

func (j job) stateString() string {
	switch j.State {
	case 3:
		return "pending"
	case 4, 5:
		return "processing"
	case 7:
		return "canceled"
	case 8:
		return "aborted"
	case 9:
		return "completed"
	default:
		return "unknown"
	}
}

func runListJobs(ctx context.Context, cmd *base.Command, args []string) error {
	if len(args) > 0 {
		base.SetExitStatus(base.SInvalidParameters)
		return fmt.Errorf("unexpected arguments: %v", args)
	}

	body, err := adminclient.Get(ctx, cfg.AdminAddr, "/admin/jobs")
	if err != nil {
		base.SetExitStatus(base.SGenericError)
		return err
	}

	var jobs []job
	if err := json.Unmarshal(body, &jobs); err != nil {
		base.SetExitStatus(base.SGenericError)
		return fmt.Errorf("failed to decode job list: %w", err)
	}

	rows := pterm.TableData{{"ID", "NAME", "STATE", "SUBMITTED", "SIZE"}}
	for _, j := range jobs {
		rows = append(rows, []string{
			fmt.Sprintf("%d", j.ID),
			j.Name,
			j.stateString(),
			j.SubmissionTime.Local().Format(time.RFC3339),
			fmt.Sprintf("%d", j.Size),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}
