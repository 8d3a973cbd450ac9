package main

import "github.com/KaramelBytes/insightdb-cli/cmd"

func main() {
	cmd.Execute()
}
