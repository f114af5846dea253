package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRunCmd создаёт группу команд для управления runs.
func NewRunCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Manage release runs",
	}

	cmd.AddCommand(
		newRunListCmd(clientFn, outputFn),
		newRunStartCmd(clientFn, outputFn),
		newRunShowCmd(clientFn, outputFn),
		newRunStagesCmd(clientFn, outputFn),
		newRunResumePushCmd(clientFn, outputFn),
	)

	return cmd
}

func newRunListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var projectID string
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			runs, err := client.ListRuns(ListRunsOpts{
				ProjectID: projectID,
				Status:    status,
				Limit:     limit,
			})
			if err != nil {
				return err
			}

			headers := []string{"ID", "PROJECT_ID", "TRIGGER", "BRANCH", "STATUS", "VERSION", "CREATED"}
			rows := make([][]string, len(runs))
			for i, r := range runs {
				rows[i] = []string{r.ID, r.ProjectID, r.TriggerKind, r.Branch, r.Status, r.NewVersion, r.CreatedAt}
			}

			out.Print(headers, rows, runs)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project-id", "", "Filter by project ID")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (PENDING, RUNNING, SUCCEEDED, FAILED, PUBLISHED_NOT_PUSHED, SUPERSEDED)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newRunStartCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "start PROJECT_ID",
		Short: "Start a release run manually",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			run, err := client.CreateRun(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Run started: %s", run.ID))
			out.Print(
				[]string{"ID", "PROJECT_ID", "TRIGGER", "BRANCH", "STATUS", "CREATED"},
				[][]string{{run.ID, run.ProjectID, run.TriggerKind, run.Branch, run.Status, run.CreatedAt}},
				run,
			)
			return nil
		},
	}
}

func newRunShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show run details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			run, err := client.GetRun(args[0])
			if err != nil {
				return err
			}

			out.Print(
				[]string{"ID", "STATUS", "FAILED_STAGE", "FAILURE_KIND", "PREV", "NEW", "ERROR"},
				[][]string{{run.ID, run.Status, run.FailedStage, run.FailureKind, run.PrevVersion, run.NewVersion, run.Error}},
				run,
			)
			return nil
		},
	}
}

func newRunStagesCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "stages RUN_ID",
		Short: "List stage results of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			stages, err := client.ListStages(args[0])
			if err != nil {
				return err
			}

			headers := []string{"STAGE", "STATUS", "STARTED", "FINISHED", "ERROR"}
			rows := make([][]string, len(stages))
			for i, s := range stages {
				rows[i] = []string{s.Stage, s.Status, s.StartedAt, s.FinishedAt, s.Error}
			}

			out.Print(headers, rows, stages)
			return nil
		},
	}
}

func newRunResumePushCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "resume-push RUN_ID",
		Short: "Retry the push stage of a PUBLISHED_NOT_PUSHED run",
		Long: "Retry the push stage of a run that published a version but failed to push " +
			"the release commit and tag. The published version is never re-published.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			run, err := client.ResumePush(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Resume-push requested: %s", run.ID))
			return nil
		},
	}
}
