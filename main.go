package main

import "github.com/klytics/mergekit/cmd"

func main() {
	cmd.Execute()
}
