package main

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/yungbote/school-backend/internal/app"
	"github.com/yungbote/school-backend/internal/platform/envutil"
	"github.com/yungbote/school-backend/internal/services/catalog"
)

var (
	catalogName = lipgloss.NewStyle().Bold(true)
	catalogMeta = lipgloss.NewStyle().Foreground(lipgloss.Color("#94A3B8"))
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the predefined courses in a catalog directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := app.NewLogger()
		if err != nil {
			return err
		}
		defer log.Sync()
		app.LoadDotenv(log)

		dir, _ := cmd.Flags().GetString("dir")
		if dir == "" {
			dir = envutil.String("CATALOG_DIR", "catalog", log)
		}
		search, _ := cmd.Flags().GetString("search")
		tag, _ := cmd.Flags().GetString("tag")

		// Listing never creates drafts.
		c := catalog.New(log, nil)
		if err := c.Load(dir); err != nil {
			return err
		}
		courses := c.List(search, tag)
		if len(courses) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No courses found in", dir)
			return nil
		}
		for _, course := range courses {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", catalogName.Render(course.Name), catalogMeta.Render(course.CourseID+"@"+course.Version))
			if course.Description != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", course.Description)
			}
			meta := fmt.Sprintf("  %d objectives", len(course.LearningObjectives))
			if course.EstimatedHours > 0 {
				meta += fmt.Sprintf(" · %.1fh", course.EstimatedHours)
			}
			if len(course.Tags) > 0 {
				meta += " · " + strings.Join(course.Tags, ", ")
			}
			fmt.Fprintln(cmd.OutOrStdout(), catalogMeta.Render(meta))
		}
		return nil
	},
}

func init() {
	catalogCmd.Flags().String("dir", "", "Catalog directory (overrides CATALOG_DIR)")
	catalogCmd.Flags().String("search", "", "Filter by name or description")
	catalogCmd.Flags().String("tag", "", "Filter by tag")
}
