package ecs

import (
	"testing"

	"github.com/phanxgames/camlattice"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

func TestNewDonburiSink(t *testing.T) {
	world := donburi.NewWorld()
	if NewDonburiSink(world) == nil {
		t.Fatal("NewDonburiSink returned nil")
	}
}

func TestDonburiSink_ForwardsSceneEvents(t *testing.T) {
	world := donburi.NewWorld()
	scene := camlattice.NewScene(camlattice.WithEventSink(NewDonburiSink(world)))

	var received []SceneEvent
	SceneEventType.Subscribe(world, func(w donburi.World, e SceneEvent) {
		received = append(received, e)
	})

	cam, err := scene.CreateCamera("cam", camlattice.DefaultCameraShape())
	if err != nil {
		t.Fatal(err)
	}
	if err := scene.Rename(cam, "shotCam"); err != nil {
		t.Fatal(err)
	}

	// Events are queued until processed.
	if len(received) != 0 {
		t.Fatalf("expected no events before processing, got %d", len(received))
	}
	SceneEventType.ProcessEvents(world)

	if len(received) != 2 {
		t.Fatalf("expected 2 events, got %d", len(received))
	}
	e0 := received[0]
	if e0.Kind != camlattice.EventNodeCreated || e0.NodeID != cam.ID || e0.Type != camlattice.NodeTypeCamera {
		t.Errorf("event 0: %+v", e0)
	}
	e1 := received[1]
	if e1.Kind != camlattice.EventNameChanged || e1.Node != "shotCam" || e1.OldName != "cam" {
		t.Errorf("event 1: %+v", e1)
	}
}

func TestDonburiSink_UndoCarriesChunk(t *testing.T) {
	world := donburi.NewWorld()
	scene := camlattice.NewScene(camlattice.WithEventSink(NewDonburiSink(world)))
	cam, _ := scene.CreateCamera("cam", camlattice.DefaultCameraShape())
	if _, err := scene.CreateCameraLattice(cam, 4, 4); err != nil {
		t.Fatal(err)
	}
	events.ProcessAllEvents(world)

	var undo []SceneEvent
	SceneEventType.Subscribe(world, func(w donburi.World, e SceneEvent) {
		if e.Kind == camlattice.EventUndo {
			undo = append(undo, e)
		}
	})
	if _, err := scene.Undo(); err != nil {
		t.Fatal(err)
	}
	events.ProcessAllEvents(world)

	if len(undo) != 1 || undo[0].Chunk != camlattice.ChunkCreateLattice {
		t.Fatalf("undo events: %+v", undo)
	}
	if undo[0].NodeID != 0 || undo[0].Node != "" {
		t.Error("undo events carry no node")
	}
}

func TestDonburiSink_MultipleSubscribers(t *testing.T) {
	world := donburi.NewWorld()
	sink := NewDonburiSink(world)

	var count1, count2 int
	SceneEventType.Subscribe(world, func(w donburi.World, e SceneEvent) {
		count1++
	})
	SceneEventType.Subscribe(world, func(w donburi.World, e SceneEvent) {
		count2++
	})

	sink.SceneEvent(camlattice.Event{Kind: camlattice.EventDeleteAll})
	events.ProcessAllEvents(world)

	if count1 != 1 || count2 != 1 {
		t.Errorf("expected both subscribers called once, got %d and %d", count1, count2)
	}
}
