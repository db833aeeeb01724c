// Package camlattice deforms meshes through a 2D control grid that sits on a
// camera's gate.
//
// A camera lattice is a grid of points placed just in front of a camera's near
// clip plane and scaled to exactly cover its film gate. Moving a lattice point
// bends every attached mesh as seen through that camera, while depth is
// preserved. Influence areas limit the effect to a spherical region with a
// soft falloff band.
//
// # Quick start
//
//	s := camlattice.NewScene()
//	cam, _ := s.CreateCamera("shotCam", camlattice.DefaultCameraShape())
//	lattice, _ := s.CreateCameraLattice(cam, 10, 10)
//	mesh := s.CreateMesh("face", points, faces)
//	s.AttachObjects(lattice, mesh)
//	s.MovePoints(lattice, []int{44, 45}, mgl64.Vec2{0.02, 0})
//	deformed, _ := s.Evaluate(ctx, mesh)
//
// # Scene graph
//
// [Scene] owns a tree of [Node] values rooted at [Scene.Root]. A node carries
// a local transform and at most one shape: [CameraShape], [MeshShape],
// [LatticeShape], [Deformer] or [InfluenceArea]. Node names are unique within
// a scene; clashes get a numeric suffix.
//
// # Deformation
//
// [Deform] is the pure evaluation kernel. It takes a [DeformInput] snapshot
// (points, lattice, camera, influencers) and returns new points, splitting the
// work across goroutines. [Scene.Evaluate] builds the inputs from the scene
// and runs a mesh's deformer stack in creation order.
//
// # Editing and undo
//
// Rig operations, point tools and panel edits each run inside a named undo
// chunk (see the Chunk* constants); [Scene.Chunk] groups your own edits the
// same way. Direct edits such as [Scene.CreateMesh], [Scene.Rename] or the
// shape setters are not recorded. [Scene.Undo] and [Scene.Redo] write back
// only the nodes and fields the chunk changed, so those edits survive, and
// publish [EventUndo] and [EventRedo] so views can refresh.
//
// # Events
//
// [Scene.Subscribe] registers handlers per [EventKind]. An [EventSink] set
// with [WithEventSink] receives every event after the subscribers.
//
// # Persistence
//
// Scenes save to and load from YAML with [Scene.SaveScene] and [LoadScene].
// Meshes import and export as Wavefront OBJ. [Script] runs a YAML list of
// rigging steps against a scene.
//
// # Panel
//
// [Panel] is the headless model of the lattice editor panel: it tracks the
// selected camera, its lattices and the current lattice's objects and
// influence areas, and keeps its controls in sync with the scene.
package camlattice
