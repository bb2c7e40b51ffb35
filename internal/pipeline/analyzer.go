package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ShayCichocki/kai/internal/events"
	"github.com/ShayCichocki/kai/internal/graph"
	"github.com/ShayCichocki/kai/internal/llm"
	"github.com/ShayCichocki/kai/internal/memory"
	"github.com/ShayCichocki/kai/pkg/models"
)

// Relations recorded in the memory graph for an analyzed project.
const (
	RelPartOf    = "part_of"
	RelDependsOn = "depends_on"
)

const analysisSystem = `You are an experienced software architect. You analyze project descriptions and
break them down into Epic -> Feature -> Task. Return only valid JSON.
Give every task the right category (DESIGN, BACKEND, FRONTEND, DEVOPS, TESTING, DOCUMENTATION),
priority (CRITICAL, HIGH, MEDIUM, LOW) and complexity (1-5).
Declare dependencies between tasks with dependsOnTitles.`

// AnalysisPrompt is the user prompt for breaking a project down.
func AnalysisPrompt(p models.Project) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Project name: %s\nProject description: %s\n", p.Name, p.Description)
	if p.RepoURL != "" {
		fmt.Fprintf(&b, "Repository: %s\n", p.RepoURL)
	}
	b.WriteString(`
Analyze this project and return an Epic/Feature/Task breakdown in this JSON format:

{
  "epics": [
    {
      "title": "Epic title",
      "description": "Epic description",
      "features": [
        {
          "title": "Feature title",
          "description": "Feature description",
          "acceptanceCriteria": "Acceptance criteria",
          "tasks": [
            {
              "title": "Task title",
              "description": "Detailed task description",
              "category": "BACKEND",
              "priority": "HIGH",
              "estimatedComplexity": 3,
              "dependsOnTitles": ["Title of another task"]
            }
          ]
        }
      ]
    }
  ]
}

Rules:
- Every epic has at least 1 feature
- Every feature has at least 1 task
- category: DESIGN, BACKEND, FRONTEND, DEVOPS, TESTING, DOCUMENTATION
- priority: CRITICAL, HIGH, MEDIUM, LOW
- estimatedComplexity: 1 (simple) to 5 (very complex)
- dependsOnTitles: exact titles of tasks this task depends on (may be empty)
- Return only the JSON, no explanation
`)
	return b.String()
}

// ParseAnalysis extracts an analysis from a model reply. A reply without
// any epic is an error.
func ParseAnalysis(text string) (models.AnalysisResult, error) {
	var result models.AnalysisResult
	if err := json.Unmarshal([]byte(llm.ExtractJSON(text)), &result); err != nil {
		return result, fmt.Errorf("parse analysis: %w", err)
	}
	if len(result.Epics) == 0 {
		return result, errors.New("parse analysis: no epics")
	}
	return result, nil
}

// FallbackAnalysis is the minimal breakdown used when analysis fails.
func FallbackAnalysis() models.AnalysisResult {
	return models.AnalysisResult{Epics: []models.EpicPlan{{
		Title:       "Core Implementation",
		Description: "Main project implementation",
		Features: []models.FeaturePlan{{
			Title:       "Initial Setup",
			Description: "Project setup and core functionality",
			Tasks: []models.TaskPlan{{
				Title:               "Project scaffolding",
				Description:         "Set up project structure and dependencies",
				Category:            string(models.CategoryDevOps),
				Priority:            string(models.PriorityHigh),
				EstimatedComplexity: 2,
			}},
		}},
	}}}
}

// AnalyzeProject breaks a project into epics, features and tasks and
// persists them. Tasks start CREATED. Dependencies are resolved by exact
// title; unknown titles and edges that would close a cycle are skipped.
func (o *Orchestrator) AnalyzeProject(ctx context.Context, projectID int64, sink events.Sink) (models.AnalysisResult, error) {
	project, err := o.store.GetProject(ctx, projectID)
	if err != nil {
		return models.AnalysisResult{}, fmt.Errorf("analyze project: %w", err)
	}
	o.logger.Info("analyzing project", zap.Int64("project", projectID), zap.String("name", project.Name))

	result := o.analyze(ctx, *project)
	if err := o.persistAnalysis(ctx, *project, result, sink); err != nil {
		return result, fmt.Errorf("analyze project: %w", err)
	}

	features, tasks := 0, 0
	for _, e := range result.Epics {
		features += len(e.Features)
		for _, f := range e.Features {
			tasks += len(f.Tasks)
		}
	}
	o.logger.Info("analysis complete",
		zap.Int("epics", len(result.Epics)),
		zap.Int("features", features),
		zap.Int("tasks", tasks))
	return result, nil
}

func (o *Orchestrator) analyze(ctx context.Context, project models.Project) models.AnalysisResult {
	if o.analyzer == nil {
		o.logger.Warn("no analyzer configured, using fallback breakdown")
		return FallbackAnalysis()
	}
	reply, err := o.analyzer.Chat(ctx, analysisSystem, AnalysisPrompt(project))
	if err != nil {
		o.logger.Warn("analysis call failed, using fallback breakdown", zap.Error(err))
		return FallbackAnalysis()
	}
	result, err := ParseAnalysis(reply)
	if err != nil {
		o.logger.Warn("analysis unparsable, using fallback breakdown",
			zap.Error(err), zap.String("reply", models.Truncate(reply, 500)))
		return FallbackAnalysis()
	}
	return result
}

func (o *Orchestrator) persistAnalysis(ctx context.Context, project models.Project, result models.AnalysisResult, sink events.Sink) error {
	projectID := project.ID
	titleToID := make(map[string]int64)
	var facts []memory.Fact
	type deferred struct {
		taskID int64
		title  string
		titles []string
	}
	var pending []deferred

	for i, ep := range result.Epics {
		epic := &models.Epic{ProjectID: projectID, Title: ep.Title, Description: ep.Description, Order: i}
		if err := o.store.CreateEpic(ctx, epic); err != nil {
			return err
		}
		facts = append(facts, memory.Fact{Subject: epic.Title, Relation: RelPartOf, Object: project.Name})
		for _, fp := range ep.Features {
			feature := &models.Feature{
				EpicID:             epic.ID,
				Title:              fp.Title,
				Description:        fp.Description,
				AcceptanceCriteria: fp.AcceptanceCriteria,
			}
			if err := o.store.CreateFeature(ctx, feature); err != nil {
				return err
			}
			facts = append(facts, memory.Fact{Subject: feature.Title, Relation: RelPartOf, Object: epic.Title})
			for _, tp := range fp.Tasks {
				task := &models.DevTask{
					FeatureID:           feature.ID,
					Title:               tp.Title,
					Description:         tp.Description,
					Category:            models.ParseCategory(tp.Category),
					Priority:            models.ParsePriority(tp.Priority),
					Status:              models.TaskCreated,
					EstimatedComplexity: models.ClampComplexity(tp.EstimatedComplexity),
				}
				if err := o.store.CreateTask(ctx, task); err != nil {
					return err
				}
				events.Emit(sink, models.TaskCreatedEvent(task.ID, task.Title, task.Category))
				facts = append(facts, memory.Fact{Subject: task.Title, Relation: RelPartOf, Object: feature.Title})
				titleToID[task.Title] = task.ID
				if len(tp.DependsOnTitles) > 0 {
					pending = append(pending, deferred{taskID: task.ID, title: task.Title, titles: tp.DependsOnTitles})
				}
			}
		}
	}

	deps := graph.New()
	for _, d := range pending {
		for _, title := range d.titles {
			depID, ok := titleToID[title]
			if !ok {
				o.logger.Warn("could not resolve dependency",
					zap.String("title", title), zap.Int64("task", d.taskID))
				continue
			}
			if err := deps.AddEdge(strconv.FormatInt(d.taskID, 10), strconv.FormatInt(depID, 10)); err != nil {
				o.logger.Warn("dependency rejected",
					zap.Int64("task", d.taskID), zap.Int64("depends_on", depID), zap.Error(err))
				continue
			}
			if err := o.store.AddDependency(ctx, d.taskID, depID); err != nil {
				o.logger.Warn("add dependency", zap.Int64("task", d.taskID), zap.Error(err))
				continue
			}
			facts = append(facts, memory.Fact{Subject: d.title, Relation: RelDependsOn, Object: title})
		}
	}

	if o.graph != nil {
		if err := o.graph.UpdateGraph(ctx, facts); err != nil {
			o.logger.Warn("record breakdown facts", zap.Error(err))
		}
	}
	return nil
}
