// Package ecs forwards camlattice scene events into a [Donburi] world.
//
// [NewDonburiSink] returns a [camlattice.EventSink] that republishes every
// scene event as a [SceneEvent] on [SceneEventType]. Subscribe to it from
// your ECS systems and drain the queue with ProcessEvents.
//
// Usage:
//
//	sink := ecs.NewDonburiSink(world)
//	scene := camlattice.NewScene(camlattice.WithEventSink(sink))
//
// [Donburi]: https://github.com/yohamta/donburi
package ecs
