package state

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ShayCichocki/kai/internal/memory"
	"github.com/ShayCichocki/kai/pkg/models"
)

// backends runs fn against the SQLite and in-memory stores.
func backends(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Helper()
	t.Run("sqlite", func(t *testing.T) { fn(t, setupTestDB(t)) })
	t.Run("memory", func(t *testing.T) { fn(t, NewMemory()) })
}

// seedTasks creates a project with one epic, one feature and n tasks.
func seedTasks(t *testing.T, s Store, n int) (*models.Project, []*models.DevTask) {
	t.Helper()
	ctx := context.Background()

	p := &models.Project{Name: "shop", Description: "web shop"}
	if err := s.CreateProject(ctx, p); err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	e := &models.Epic{ProjectID: p.ID, Title: "Core"}
	if err := s.CreateEpic(ctx, e); err != nil {
		t.Fatalf("CreateEpic failed: %v", err)
	}
	f := &models.Feature{EpicID: e.ID, Title: "Cart"}
	if err := s.CreateFeature(ctx, f); err != nil {
		t.Fatalf("CreateFeature failed: %v", err)
	}

	var tasks []*models.DevTask
	for i := 0; i < n; i++ {
		task := &models.DevTask{
			FeatureID:           f.ID,
			Title:               fmt.Sprintf("task %d", i+1),
			Category:            models.CategoryBackend,
			Priority:            models.PriorityMedium,
			EstimatedComplexity: 3,
		}
		if err := s.CreateTask(ctx, task); err != nil {
			t.Fatalf("CreateTask failed: %v", err)
		}
		tasks = append(tasks, task)
	}
	return p, tasks
}

func TestProjects(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		a := &models.Project{Name: "a"}
		b := &models.Project{Name: "b", RepoURL: "https://github.com/acme/b"}
		for _, p := range []*models.Project{a, b} {
			if err := s.CreateProject(ctx, p); err != nil {
				t.Fatalf("CreateProject failed: %v", err)
			}
		}
		if a.ID == 0 || a.Status != models.ProjectActive || a.CreatedAt.IsZero() {
			t.Errorf("CreateProject did not fill defaults: %+v", a)
		}

		got, err := s.GetProject(ctx, b.ID)
		if err != nil {
			t.Fatalf("GetProject failed: %v", err)
		}
		if got.RepoURL != b.RepoURL {
			t.Errorf("RepoURL = %q, want %q", got.RepoURL, b.RepoURL)
		}

		list, err := s.ListProjects(ctx)
		if err != nil {
			t.Fatalf("ListProjects failed: %v", err)
		}
		if len(list) != 2 || list[0].ID != b.ID {
			t.Errorf("ListProjects = %+v, want newest first", list)
		}

		if _, err := s.GetProject(ctx, 12345); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetProject(missing) error = %v, want ErrNotFound", err)
		}
		if err := s.DeleteProject(ctx, 12345); !errors.Is(err, ErrNotFound) {
			t.Errorf("DeleteProject(missing) error = %v, want ErrNotFound", err)
		}
	})
}

func TestEpicsOrderedAndFeaturesByProject(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		p := &models.Project{Name: "p"}
		if err := s.CreateProject(ctx, p); err != nil {
			t.Fatal(err)
		}
		second := &models.Epic{ProjectID: p.ID, Title: "second", Order: 1}
		first := &models.Epic{ProjectID: p.ID, Title: "first", Order: 0}
		for _, e := range []*models.Epic{second, first} {
			if err := s.CreateEpic(ctx, e); err != nil {
				t.Fatalf("CreateEpic failed: %v", err)
			}
		}
		f2 := &models.Feature{EpicID: second.ID, Title: "f2"}
		f1 := &models.Feature{EpicID: first.ID, Title: "f1", AcceptanceCriteria: "works"}
		for _, f := range []*models.Feature{f2, f1} {
			if err := s.CreateFeature(ctx, f); err != nil {
				t.Fatalf("CreateFeature failed: %v", err)
			}
		}

		epics, err := s.ListEpics(ctx, p.ID)
		if err != nil {
			t.Fatalf("ListEpics failed: %v", err)
		}
		if len(epics) != 2 || epics[0].Title != "first" || epics[1].Title != "second" {
			t.Errorf("ListEpics = %+v, want ordered by order", epics)
		}

		features, err := s.ListFeaturesByProject(ctx, p.ID)
		if err != nil {
			t.Fatalf("ListFeaturesByProject failed: %v", err)
		}
		if len(features) != 2 || features[0].Title != "f1" || features[0].AcceptanceCriteria != "works" {
			t.Errorf("ListFeaturesByProject = %+v", features)
		}

		byEpic, err := s.ListFeaturesByEpic(ctx, second.ID)
		if err != nil {
			t.Fatalf("ListFeaturesByEpic failed: %v", err)
		}
		if len(byEpic) != 1 || byEpic[0].Title != "f2" {
			t.Errorf("ListFeaturesByEpic = %+v", byEpic)
		}
	})
}

func TestTasks(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		p, tasks := seedTasks(t, s, 3)

		if tasks[0].Status != models.TaskCreated {
			t.Errorf("Status = %s, want CREATED", tasks[0].Status)
		}

		if err := s.AddDependency(ctx, tasks[2].ID, tasks[0].ID); err != nil {
			t.Fatalf("AddDependency failed: %v", err)
		}
		if err := s.AddDependency(ctx, tasks[2].ID, tasks[1].ID); err != nil {
			t.Fatalf("AddDependency failed: %v", err)
		}
		// Duplicate edges are ignored.
		if err := s.AddDependency(ctx, tasks[2].ID, tasks[0].ID); err != nil {
			t.Fatalf("AddDependency (duplicate) failed: %v", err)
		}
		if err := s.AddDependency(ctx, tasks[0].ID, tasks[0].ID); err == nil {
			t.Error("expected error for self dependency")
		}

		got, err := s.GetTask(ctx, tasks[2].ID)
		if err != nil {
			t.Fatalf("GetTask failed: %v", err)
		}
		if len(got.DependsOn) != 2 || got.DependsOn[0] != tasks[0].ID || got.DependsOn[1] != tasks[1].ID {
			t.Errorf("DependsOn = %v, want [%d %d]", got.DependsOn, tasks[0].ID, tasks[1].ID)
		}

		got.BranchName = "feature/task-3-x"
		got.PRURL = "https://github.com/acme/shop/pull/1"
		got.AssignedAgent = string(models.RoleCodeWriter)
		got.Status = models.TaskDeployed // ignored by UpdateTask
		if err := s.UpdateTask(ctx, got); err != nil {
			t.Fatalf("UpdateTask failed: %v", err)
		}
		reread, _ := s.GetTask(ctx, tasks[2].ID)
		if reread.BranchName != got.BranchName || reread.PRURL != got.PRURL || reread.AssignedAgent != "CODE_WRITER" {
			t.Errorf("UpdateTask did not persist fields: %+v", reread)
		}
		if reread.Status != models.TaskCreated {
			t.Errorf("UpdateTask changed status to %s", reread.Status)
		}

		all, err := s.ListTasks(ctx, p.ID, "")
		if err != nil {
			t.Fatalf("ListTasks failed: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("ListTasks returned %d tasks, want 3", len(all))
		}
		if len(all[2].DependsOn) != 2 {
			t.Errorf("ListTasks did not load dependencies: %+v", all[2])
		}

		if _, err := s.GetTask(ctx, 9999); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetTask(missing) error = %v, want ErrNotFound", err)
		}
	})
}

func TestTransitionTask(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		p, tasks := seedTasks(t, s, 2)
		id := tasks[0].ID

		got, err := s.TransitionTask(ctx, id, models.TaskPlanned, "planned", "pipeline", nil)
		if err != nil {
			t.Fatalf("TransitionTask failed: %v", err)
		}
		if got.Status != models.TaskPlanned {
			t.Errorf("Status = %s, want PLANNED", got.Status)
		}

		rejected := errors.New("not allowed")
		var seenFrom models.TaskStatus
		_, err = s.TransitionTask(ctx, id, models.TaskDeployed, "skip", "user", func(from, to models.TaskStatus) error {
			seenFrom = from
			return rejected
		})
		if !errors.Is(err, rejected) {
			t.Fatalf("TransitionTask error = %v, want check error", err)
		}
		if seenFrom != models.TaskPlanned {
			t.Errorf("check saw from = %s, want PLANNED", seenFrom)
		}

		unchanged, _ := s.GetTask(ctx, id)
		if unchanged.Status != models.TaskPlanned {
			t.Errorf("rejected transition changed status to %s", unchanged.Status)
		}

		history, err := s.TaskHistory(ctx, id)
		if err != nil {
			t.Fatalf("TaskHistory failed: %v", err)
		}
		if len(history) != 1 {
			t.Fatalf("TaskHistory has %d entries, want 1", len(history))
		}
		h := history[0]
		if h.FromStatus != models.TaskCreated || h.ToStatus != models.TaskPlanned || h.Reason != "planned" || h.TriggeredBy != "pipeline" {
			t.Errorf("transition = %+v", h)
		}

		planned, err := s.ListTasks(ctx, p.ID, models.TaskPlanned)
		if err != nil {
			t.Fatalf("ListTasks failed: %v", err)
		}
		if len(planned) != 1 || planned[0].ID != id {
			t.Errorf("ListTasks(PLANNED) = %+v", planned)
		}
		created, _ := s.ListTasksByStatus(ctx, models.TaskCreated)
		if len(created) != 1 || created[0].ID != tasks[1].ID {
			t.Errorf("ListTasksByStatus(CREATED) = %+v", created)
		}

		if _, err := s.TransitionTask(ctx, 9999, models.TaskPlanned, "", "user", nil); !errors.Is(err, ErrNotFound) {
			t.Errorf("TransitionTask(missing) error = %v, want ErrNotFound", err)
		}
	})
}

func TestTaskOutputs(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		_, tasks := seedTasks(t, s, 1)
		id := tasks[0].ID

		for _, o := range []*models.TaskOutput{
			{TaskID: id, OutputType: models.OutputCodeGeneration, Content: "code", Agent: "CODE_WRITER"},
			{TaskID: id, OutputType: models.OutputReview, Content: "lgtm", Agent: "REVIEWER"},
		} {
			if err := s.SaveTaskOutput(ctx, o); err != nil {
				t.Fatalf("SaveTaskOutput failed: %v", err)
			}
		}

		outputs, err := s.TaskOutputs(ctx, id)
		if err != nil {
			t.Fatalf("TaskOutputs failed: %v", err)
		}
		if len(outputs) != 2 || outputs[0].OutputType != models.OutputCodeGeneration || outputs[1].Content != "lgtm" {
			t.Errorf("TaskOutputs = %+v", outputs)
		}
	})
}

func TestDeleteProjectCascades(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		p, tasks := seedTasks(t, s, 2)
		if err := s.AddDependency(ctx, tasks[1].ID, tasks[0].ID); err != nil {
			t.Fatal(err)
		}
		if _, err := s.TransitionTask(ctx, tasks[0].ID, models.TaskPlanned, "", "user", nil); err != nil {
			t.Fatal(err)
		}
		if err := s.SaveTaskOutput(ctx, &models.TaskOutput{TaskID: tasks[0].ID, OutputType: "X", Content: "y"}); err != nil {
			t.Fatal(err)
		}

		if err := s.DeleteProject(ctx, p.ID); err != nil {
			t.Fatalf("DeleteProject failed: %v", err)
		}

		if _, err := s.GetTask(ctx, tasks[0].ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("task survived project deletion: %v", err)
		}
		epics, _ := s.ListEpics(ctx, p.ID)
		if len(epics) != 0 {
			t.Errorf("epics survived project deletion: %+v", epics)
		}
		history, _ := s.TaskHistory(ctx, tasks[0].ID)
		if len(history) != 0 {
			t.Errorf("transitions survived project deletion: %+v", history)
		}
		outputs, _ := s.TaskOutputs(ctx, tasks[0].ID)
		if len(outputs) != 0 {
			t.Errorf("outputs survived project deletion: %+v", outputs)
		}
	})
}

func TestFacts(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		facts := []memory.Fact{
			{Subject: "Cache", Relation: "uses", Object: "LRU"},
			{Subject: "Server", Relation: "depends_on", Object: "cache"},
			{Subject: "Server", Relation: "listens_on", Object: "8080"},
			{Subject: "Cache", Relation: "uses", Object: "LRU"},
		}
		if err := s.AddFacts(ctx, facts); err != nil {
			t.Fatalf("AddFacts failed: %v", err)
		}

		got, err := s.FactsAbout(ctx, []string{"cache"}, 0)
		if err != nil {
			t.Fatalf("FactsAbout failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("FactsAbout(cache) = %+v, want 2 facts", got)
		}
		if got[0].String() != "Cache --[uses]--> LRU" {
			t.Errorf("first fact = %s", got[0])
		}

		limited, _ := s.FactsAbout(ctx, []string{"server"}, 1)
		if len(limited) != 1 {
			t.Errorf("FactsAbout with limit 1 returned %d facts", len(limited))
		}

		none, _ := s.FactsAbout(ctx, []string{"nothing"}, 10)
		if len(none) != 0 {
			t.Errorf("FactsAbout(nothing) = %+v", none)
		}
	})
}
