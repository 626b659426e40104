package main

import "github.com/nextlevelbuilder/agdabot/cmd"

func main() {
	cmd.Execute()
}
