package dispatch

import (
	"testing"

	"dispatchd/pkg/types"
)

func testTable(tags ...string) (*RoutingTable, []*WorkerHandle) {
	var handles []*WorkerHandle
	groups := make(map[string]chan *envelope)
	for i, tag := range tags {
		h := &WorkerHandle{Index: i, Tag: tag, queue: make(chan *envelope, 1)}
		if tag != "" {
			if groups[tag] == nil {
				groups[tag] = make(chan *envelope, 4)
			}
			h.group = groups[tag]
		}
		handles = append(handles, h)
	}
	return buildRoutingTable(handles, groups, make(chan *envelope, 4)), handles
}

func TestResolveByIndexUsesOwnQueue(t *testing.T) {
	table, handles := testTable("llm", "tts")
	rt, err := table.Resolve(types.Target{ByIndex: true, Index: 1})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if rt.queue != handles[1].queue {
		t.Fatalf("index target must address that worker's own queue")
	}
	if rt.name != "tts/1" {
		t.Fatalf("route name = %q", rt.name)
	}
}

func TestResolveIndexOutOfRange(t *testing.T) {
	table, _ := testTable("llm", "tts")
	for _, idx := range []int{-1, 2, 99} {
		if _, err := table.Resolve(types.Target{ByIndex: true, Index: idx}); err == nil || !IsRoutingError(err) {
			t.Fatalf("index %d: expected routing error, got %v", idx, err)
		}
	}
}

func TestResolveTagUsesGroupQueue(t *testing.T) {
	table, handles := testTable("llm", "tts")
	rt, err := table.Resolve(types.Target{Tag: "tts"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if rt.queue != handles[1].group {
		t.Fatalf("tag target must address the group queue")
	}
	if rt.name != "tts" {
		t.Fatalf("route name = %q", rt.name)
	}
}

func TestResolveUnknownTag(t *testing.T) {
	table, _ := testTable("llm", "tts")
	if _, err := table.Resolve(types.Target{Tag: "vision"}); err == nil || !IsRoutingError(err) {
		t.Fatalf("expected routing error, got %v", err)
	}
}

func TestReplicasShareOneGroupQueue(t *testing.T) {
	table, handles := testTable("gen", "gen", "gen")
	if handles[0].group != handles[1].group || handles[1].group != handles[2].group {
		t.Fatalf("replicas with one tag must service one queue")
	}
	rt, err := table.Resolve(types.Target{Tag: "gen"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if rt.queue != handles[0].group {
		t.Fatalf("tag target must address the shared replica queue")
	}
}

func TestResolveAnyUsesPoolQueue(t *testing.T) {
	table, handles := testTable("llm", "tts")
	for _, target := range []types.Target{{}, {Tag: "any"}} {
		rt, err := table.Resolve(target)
		if err != nil {
			t.Fatalf("resolve %v: %v", target, err)
		}
		if rt.queue != table.anyq {
			t.Fatalf("any target must address the pool-wide queue")
		}
		if rt.name != "any" {
			t.Fatalf("route name = %q", rt.name)
		}
		for _, h := range handles {
			if rt.queue == h.queue || rt.queue == h.group {
				t.Fatalf("pool-wide queue must be distinct from worker queues")
			}
		}
	}
}

func TestUntaggedWorkerHasNoGroup(t *testing.T) {
	_, handles := testTable("", "tts")
	if handles[0].group != nil {
		t.Fatalf("untagged workers must not join a replica group")
	}
}
