package main

import (
	"errors"
	"fmt"

	tea "charm.land/bubbletea/v2"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/school-backend/internal/client"
	"github.com/yungbote/school-backend/internal/platform/logger"
	"github.com/yungbote/school-backend/internal/reconciler"
	"github.com/yungbote/school-backend/internal/tui"
)

var watchCmd = &cobra.Command{
	Use:   "watch <course-id>",
	Short: "Follow a course's generation progress from a running server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		courseID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid course id: %w", err)
		}
		// The terminal belongs to the view; logs would tear it.
		log := logger.Nop()
		c, err := client.NewFromEnv(log)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		if generate, _ := cmd.Flags().GetBool("generate"); generate {
			jobID, err := c.GenerateCourse(ctx, courseID)
			if err != nil {
				return fmt.Errorf("queue generation: %w", err)
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "Queued job", jobID)
		}

		title := courseID.String()
		if snap, err := c.Course(ctx, courseID); err == nil && snap.Course.Title != "" {
			title = snap.Course.Title
		}

		model := tui.NewWatchModel(title)
		model.ExitOnComplete, _ = cmd.Flags().GetBool("exit")
		p := tea.NewProgram(model, tea.WithContext(ctx))

		r := reconciler.New(log, c, c, func(v reconciler.View) {
			p.Send(tui.ViewMsg(v))
		})
		defer r.Close()
		go func() {
			if err := r.Init(ctx, courseID); err != nil {
				p.Send(tui.ErrMsg{Err: err})
			}
		}()

		final, err := p.Run()
		if err != nil {
			if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
				return nil
			}
			return err
		}
		if m, ok := final.(tui.WatchModel); ok && m.Err() != nil {
			return m.Err()
		}
		return nil
	},
}

func init() {
	watchCmd.Flags().Bool("generate", false, "Queue generation before watching")
	watchCmd.Flags().Bool("exit", false, "Exit once generation settles")
}
