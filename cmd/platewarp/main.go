package main

import "github.com/MeKo-Tech/platewarp/cmd/platewarp/cmd"

func main() {
	cmd.Execute()
}
