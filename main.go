package main

import "github.com/KaramelBytes/tablescope/cmd"

func main() {
	cmd.Execute()
}
