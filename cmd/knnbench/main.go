// Command knnbench times the neighbourhood search algorithms on a synthetic
// point cloud and checks that they agree.
package main

import (
	"os"

	log "github.com/sirupsen/logrus"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
