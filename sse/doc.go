// Package sse streams run events to dashboard clients over Server-Sent
// Events.
//
// A Hub tracks connected clients. Each client watches one run and its ID
// has the form "run:<run id>:<uuid>", so a run's audience is the glob
// ClientPattern(runID). Forward drains an events.Subscription into the hub
// and Handler serves the stream from a gin router.
//
//	hub := sse.NewHub()
//	go hub.Run()
//	defer hub.Stop()
//
//	sub := bus.Subscribe()
//	go sse.Forward(ctx, sub, hub, "")
//
//	router.GET("/runs/:run/events", sse.Handler(hub))
package sse
