// bizmatch is the business matching and engagement service.
//
// Scores jobs against talent profiles, recommends pairs, and drives the
// match (pending → accepted/rejected → contracted) and assignment
// (active ⇄ paused → completed) lifecycles.
// Exposes HTTP (JSON + SSE) and gRPC APIs; publishes every change to Redis.
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
