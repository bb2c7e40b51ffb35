package graph

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestLayers_ParallelThenJoin(t *testing.T) {
	g := New()
	g.Add(
		Node{ID: "s1"},
		Node{ID: "s2"},
		Node{ID: "s3", DependsOn: []string{"s1", "s2"}},
	)

	layers, err := g.Layers()
	if err != nil {
		t.Fatalf("Layers() error = %v", err)
	}
	want := [][]string{{"s1", "s2"}, {"s3"}}
	if !reflect.DeepEqual(layers, want) {
		t.Errorf("Layers() = %v, want %v", layers, want)
	}
}

func TestLayers_CoversEveryNodeOnce(t *testing.T) {
	nodes := []Node{
		{ID: "a"},
		{ID: "b", DependsOn: []string{"a"}},
		{ID: "c", DependsOn: []string{"a"}},
		{ID: "d", DependsOn: []string{"b", "c"}},
		{ID: "e"},
	}
	g := New()
	g.Add(nodes...)

	layers, err := g.Layers()
	if err != nil {
		t.Fatalf("Layers() error = %v", err)
	}

	seen := make(map[string]int)
	wave := make(map[string]int)
	for i, layer := range layers {
		for _, id := range layer {
			seen[id]++
			wave[id] = i
		}
	}
	if len(seen) != 5 {
		t.Fatalf("covered %d nodes, want 5", len(seen))
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("node %s appears %d times", id, n)
		}
	}
	for _, n := range nodes {
		for _, dep := range n.DependsOn {
			if wave[dep] >= wave[n.ID] {
				t.Errorf("dependency %s (wave %d) not before %s (wave %d)", dep, wave[dep], n.ID, wave[n.ID])
			}
		}
	}
}

func TestLayers_Cycle(t *testing.T) {
	g := New()
	g.Add(
		Node{ID: "a", DependsOn: []string{"b"}},
		Node{ID: "b", DependsOn: []string{"a"}},
	)

	_, err := g.Layers()
	if !errors.Is(err, ErrCycleDetected) {
		t.Fatalf("Layers() error = %v, want ErrCycleDetected", err)
	}
	if !strings.Contains(err.Error(), "a, b") {
		t.Errorf("error %q should list remaining ids", err)
	}
}

func TestLayers_UnknownDependencyIsUnschedulable(t *testing.T) {
	g := New()
	g.Add(Node{ID: "a", DependsOn: []string{"missing"}})

	if _, err := g.Layers(); !errors.Is(err, ErrCycleDetected) {
		t.Fatalf("Layers() error = %v, want ErrCycleDetected", err)
	}
}

func TestAddEdge_RejectsCycle(t *testing.T) {
	g := New()
	if err := g.AddEdge("2", "1"); err != nil {
		t.Fatalf("AddEdge(2, 1) error = %v", err)
	}
	if err := g.AddEdge("3", "2"); err != nil {
		t.Fatalf("AddEdge(3, 2) error = %v", err)
	}
	if err := g.AddEdge("1", "3"); !errors.Is(err, ErrCycleDetected) {
		t.Errorf("AddEdge(1, 3) error = %v, want ErrCycleDetected", err)
	}
	if err := g.AddEdge("1", "1"); !errors.Is(err, ErrCycleDetected) {
		t.Errorf("AddEdge(1, 1) error = %v, want ErrCycleDetected", err)
	}
	if _, err := g.Layers(); err != nil {
		t.Errorf("rejected edges must not be stored: %v", err)
	}
}

func TestGetReady(t *testing.T) {
	g := New()
	g.Add(
		Node{ID: "7"},
		Node{ID: "8"},
		Node{ID: "9", DependsOn: []string{"7", "8"}},
	)

	if got := g.GetReady(); !reflect.DeepEqual(got, []string{"7", "8"}) {
		t.Errorf("GetReady() = %v, want [7 8]", got)
	}

	g.MarkComplete("7")
	if got := g.GetReady(); !reflect.DeepEqual(got, []string{"8"}) {
		t.Errorf("GetReady() after 7 = %v, want [8]", got)
	}

	g.MarkComplete("8")
	if got := g.GetReady(); !reflect.DeepEqual(got, []string{"9"}) {
		t.Errorf("GetReady() after 7, 8 = %v, want [9]", got)
	}

	g.MarkComplete("9")
	if got := g.GetReady(); len(got) != 0 {
		t.Errorf("GetReady() with all complete = %v, want none", got)
	}
}
