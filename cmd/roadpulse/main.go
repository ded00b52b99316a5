// Command roadpulse analyzes regional traffic environment data: it imports
// CSV snapshots, scores and ranks regions, and serves a local dashboard.
package main

import "github.com/jinhakim/roadpulse/pkg/cli"

func main() {
	cli.Execute()
}
