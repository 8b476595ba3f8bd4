package main

import (
	log "github.com/sirupsen/logrus"
)

func main() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})

	cmd := NewRootCommand(&RootOptions{Logger: log.StandardLogger()})
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
