package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/school-backend/internal/domain/learning"
	"github.com/yungbote/school-backend/internal/platform/logger"
	"github.com/yungbote/school-backend/internal/services"
)

var ErrNotFound = errors.New("course not found in catalog")

const defaultVersion = "1.0.0"

// Course is a predefined course definition. The keys match the course.json
// files authored for the catalog.
type Course struct {
	CourseID           string   `json:"courseId" yaml:"courseId"`
	Version            string   `json:"version" yaml:"version"`
	Name               string   `json:"name" yaml:"name"`
	Description        string   `json:"description" yaml:"description"`
	LearningObjectives []string `json:"learningObjectives" yaml:"learningObjectives"`
	Tags               []string `json:"tags" yaml:"tags"`
	EstimatedHours     float64  `json:"estimatedHours" yaml:"estimatedHours"`
}

// Drafts creates the learner's copy of a catalog course.
type Drafts interface {
	CreateDraft(ctx context.Context, userID string, in services.DraftInput) (*learning.Course, error)
}

type Catalog struct {
	log    *logger.Logger
	drafts Drafts

	mu      sync.RWMutex
	courses map[string]Course
	order   []string
}

func New(baseLog *logger.Logger, drafts Drafts) *Catalog {
	return &Catalog{
		log:     baseLog.With("service", "Catalog"),
		drafts:  drafts,
		courses: map[string]Course{},
	}
}

// Load replaces the catalog with the courses found under dir. Each course
// lives in its own subdirectory as course.json or course.yaml; a missing
// dir yields an empty catalog.
func (c *Catalog) Load(dir string) error {
	courses := map[string]Course{}
	var order []string

	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		c.log.Warn("Catalog directory missing", "dir", dir)
		entries = nil
	} else if err != nil {
		return fmt.Errorf("read catalog dir: %w", err)
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		course, ok, err := readCourse(filepath.Join(dir, e.Name()))
		if err != nil {
			return fmt.Errorf("catalog %s: %w", e.Name(), err)
		}
		if !ok {
			continue
		}
		if course.CourseID == "" {
			course.CourseID = e.Name()
		}
		if course.Version == "" {
			course.Version = defaultVersion
		}
		if _, dup := courses[course.CourseID]; dup {
			return fmt.Errorf("catalog %s: duplicate courseId %q", e.Name(), course.CourseID)
		}
		courses[course.CourseID] = course
		order = append(order, course.CourseID)
	}
	sort.Strings(order)

	c.mu.Lock()
	c.courses = courses
	c.order = order
	c.mu.Unlock()
	c.log.Info("Catalog loaded", "dir", dir, "courses", len(order))
	return nil
}

func readCourse(dir string) (Course, bool, error) {
	var course Course
	if raw, err := os.ReadFile(filepath.Join(dir, "course.json")); err == nil {
		if err := json.Unmarshal(raw, &course); err != nil {
			return course, false, fmt.Errorf("decode course.json: %w", err)
		}
		return course, true, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return course, false, err
	}
	for _, name := range []string{"course.yaml", "course.yml"} {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return course, false, err
		}
		if err := yaml.Unmarshal(raw, &course); err != nil {
			return course, false, fmt.Errorf("decode %s: %w", name, err)
		}
		return course, true, nil
	}
	return course, false, nil
}

// List filters by a case-insensitive search over name and description and
// by an exact tag. Empty filters match everything.
func (c *Catalog) List(search, tag string) []Course {
	c.mu.RLock()
	defer c.mu.RUnlock()
	needle := strings.ToLower(strings.TrimSpace(search))
	tag = strings.TrimSpace(tag)

	out := make([]Course, 0, len(c.order))
	for _, id := range c.order {
		course := c.courses[id]
		if needle != "" &&
			!strings.Contains(strings.ToLower(course.Name), needle) &&
			!strings.Contains(strings.ToLower(course.Description), needle) {
			continue
		}
		if tag != "" && !hasTag(course.Tags, tag) {
			continue
		}
		out = append(out, course)
	}
	return out
}

func (c *Catalog) Get(id string) (Course, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	course, ok := c.courses[id]
	return course, ok
}

// Start creates a predefined draft course from a catalog entry.
func (c *Catalog) Start(ctx context.Context, userID, id string) (*learning.Course, error) {
	course, ok := c.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return c.drafts.CreateDraft(ctx, userID, services.DraftInput{
		Description:    course.Description,
		Objectives:     course.LearningObjectives,
		SourceType:     learning.SourcePredefined,
		SourceCourseID: course.CourseID,
	})
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
