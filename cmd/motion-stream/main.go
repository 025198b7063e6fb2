package main

import "github.com/oshokin/motion-stream/cmd/motion-stream/cmd"

func main() {
	cmd.Execute()
}
